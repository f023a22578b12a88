package models

import (
	"time"

	"github.com/google/uuid"
)

type RequestStatus string

const (
	RequestStatusPending  RequestStatus = "pending"
	RequestStatusAccepted RequestStatus = "accepted"
	RequestStatusRejected RequestStatus = "rejected"
)

type ConnectionRequest struct {
	ID         uuid.UUID     `json:"id"`
	Sender     PartyRef      `json:"sender"`
	Receiver   PartyRef      `json:"receiver"`
	Status     RequestStatus `json:"status"`
	CreatedAt  time.Time     `json:"created_at"`
	ResolvedAt *time.Time    `json:"resolved_at,omitempty"`
}

func (r *ConnectionRequest) IsPending() bool {
	return r.Status == RequestStatusPending
}

// Connection is an accepted, symmetric relationship. PartyA and PartyB are
// stored in canonical order.
type Connection struct {
	ID        uuid.UUID     `json:"id"`
	PartyA    PartyRef      `json:"party_a"`
	PartyB    PartyRef      `json:"party_b"`
	Status    RequestStatus `json:"status"`
	CreatedAt time.Time     `json:"created_at"`
}

func (c *Connection) Involves(p PartyRef) bool {
	return c.PartyA.Equal(p) || c.PartyB.Equal(p)
}

// Other returns the counterpart of p, or false if p is not part of c.
func (c *Connection) Other(p PartyRef) (PartyRef, bool) {
	switch {
	case c.PartyA.Equal(p):
		return c.PartyB, true
	case c.PartyB.Equal(p):
		return c.PartyA, true
	default:
		return PartyRef{}, false
	}
}
