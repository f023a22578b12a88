package middleware

import (
	"net/http"
	"strings"

	"github.com/HammerMeetNail/campusconnect/internal/handlers"
	"github.com/HammerMeetNail/campusconnect/internal/models"
)

// Headers set by the upstream gateway once it has authenticated the caller.
const (
	PartyIDHeader   = "X-Party-ID"
	PartyKindHeader = "X-Party-Kind"
)

type AuthMiddleware struct{}

func NewAuthMiddleware() *AuthMiddleware {
	return &AuthMiddleware{}
}

// Authenticate reads the caller identity headers and adds the party to the
// context. Requests without identity headers pass through unauthenticated;
// malformed identities are rejected.
func (m *AuthMiddleware) Authenticate(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := r.Header.Get(PartyIDHeader)
		kind := r.Header.Get(PartyKindHeader)
		if strings.TrimSpace(id) == "" && kind == "" {
			next.ServeHTTP(w, r)
			return
		}

		party, err := models.NewPartyRef(id, kind)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "Invalid caller identity")
			return
		}

		ctx := handlers.SetPartyInContext(r.Context(), party)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// RequireAuth rejects unauthenticated requests with 401.
func (m *AuthMiddleware) RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := handlers.GetPartyFromContext(r.Context()); !ok {
			writeError(w, http.StatusUnauthorized, "Authentication required")
			return
		}
		next.ServeHTTP(w, r)
	})
}
