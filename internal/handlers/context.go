package handlers

import (
	"context"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

type contextKey string

const partyContextKey contextKey = "party"

// SetPartyInContext stores the authenticated caller.
func SetPartyInContext(ctx context.Context, party models.PartyRef) context.Context {
	return context.WithValue(ctx, partyContextKey, party)
}

// GetPartyFromContext returns the authenticated caller, if any.
func GetPartyFromContext(ctx context.Context) (models.PartyRef, bool) {
	party, ok := ctx.Value(partyContextKey).(models.PartyRef)
	return party, ok
}
