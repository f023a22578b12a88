package handlers

import (
	"net/http"

	"github.com/HammerMeetNail/campusconnect/internal/models"
	"github.com/HammerMeetNail/campusconnect/internal/services"
)

type ConnectionHandler struct {
	connectionService services.ConnectionServiceInterface
}

func NewConnectionHandler(connectionService services.ConnectionServiceInterface) *ConnectionHandler {
	return &ConnectionHandler{connectionService: connectionService}
}

type ConnectionListResponse struct {
	Connections []models.Connection `json:"connections"`
	Count       int                 `json:"count"`
}

type ConnectionCheckResponse struct {
	Connected bool `json:"connected"`
}

func (h *ConnectionHandler) List(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetPartyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	conns, err := h.connectionService.ListConnectionsFor(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, "list connections", err)
		return
	}
	if conns == nil {
		conns = []models.Connection{}
	}

	writeJSON(w, http.StatusOK, ConnectionListResponse{Connections: conns, Count: len(conns)})
}

func (h *ConnectionHandler) Check(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetPartyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	query := r.URL.Query()
	other, err := models.NewPartyRef(query.Get("party_id"), query.Get("party_kind"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid party")
		return
	}

	connected, err := h.connectionService.AreConnected(r.Context(), caller, other)
	if err != nil {
		writeServiceError(w, r, "check connection", err)
		return
	}

	writeJSON(w, http.StatusOK, ConnectionCheckResponse{Connected: connected})
}
