package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/HammerMeetNail/campusconnect/internal/logging"
	"github.com/HammerMeetNail/campusconnect/internal/services"
)

// retryAfterSeconds is sent with 503 responses when storage is unreachable.
const retryAfterSeconds = "5"

type ErrorResponse struct {
	Error string `json:"error"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: message})
}

// writeServiceError maps the service error taxonomy onto HTTP statuses.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	switch {
	case errors.Is(err, services.ErrInvalidParty):
		writeError(w, http.StatusBadRequest, "Invalid party")
	case errors.Is(err, services.ErrDuplicateRequest):
		writeError(w, http.StatusConflict, "Connection request already pending")
	case errors.Is(err, services.ErrRequestNotFound):
		writeError(w, http.StatusNotFound, "Connection request not found")
	case errors.Is(err, services.ErrRequestNotPending):
		writeError(w, http.StatusBadRequest, "Request is not pending")
	case errors.Is(err, services.ErrNotRecipient):
		writeError(w, http.StatusForbidden, "Only the recipient can respond to this request")
	case errors.Is(err, services.ErrNotSender):
		writeError(w, http.StatusForbidden, "Only the sender can cancel this request")
	case errors.Is(err, services.ErrStorageUnavailable):
		requestLogger(r, op).WithError(err).Warn("Storage unavailable")
		w.Header().Set("Retry-After", retryAfterSeconds)
		writeError(w, http.StatusServiceUnavailable, "Service temporarily unavailable")
	default:
		requestLogger(r, op).WithError(err).Error("Unexpected error")
		writeError(w, http.StatusInternalServerError, "Internal server error")
	}
}

func requestLogger(r *http.Request, op string) *logging.Logger {
	return logging.Default.WithFields(map[string]interface{}{
		"operation": op,
		"path":      r.URL.Path,
	})
}
