package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

// RequestServiceInterface defines the contract for connection request operations.
type RequestServiceInterface interface {
	SendRequest(ctx context.Context, sender, receiver models.PartyRef) (*models.ConnectionRequest, error)
	AcceptRequest(ctx context.Context, requestID uuid.UUID) (*models.Connection, error)
	RejectRequest(ctx context.Context, requestID uuid.UUID) error
	CancelRequest(ctx context.Context, requestID uuid.UUID) error
	GetRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error)
	ListRequestsFor(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
	ListIncomingRequests(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
	ListOutgoingRequests(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
}

// ConnectionServiceInterface defines the read side of the connection graph.
type ConnectionServiceInterface interface {
	ListConnectionsFor(ctx context.Context, party models.PartyRef) ([]models.Connection, error)
	AreConnected(ctx context.Context, a, b models.PartyRef) (bool, error)
	CountConnections(ctx context.Context, party models.PartyRef) (int, error)
}

var (
	_ RequestServiceInterface    = (*RequestService)(nil)
	_ ConnectionServiceInterface = (*ConnectionService)(nil)
)
