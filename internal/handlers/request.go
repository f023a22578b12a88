package handlers

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/HammerMeetNail/campusconnect/internal/models"
	"github.com/HammerMeetNail/campusconnect/internal/services"
)

type RequestHandler struct {
	requestService services.RequestServiceInterface
	validate       *validator.Validate
}

func NewRequestHandler(requestService services.RequestServiceInterface) *RequestHandler {
	return &RequestHandler{
		requestService: requestService,
		validate:       validator.New(validator.WithRequiredStructEnabled()),
	}
}

type SendConnectionRequest struct {
	ReceiverID   string `json:"receiver_id" validate:"required,max=128"`
	ReceiverKind string `json:"receiver_kind" validate:"required,oneof=student alumni"`
}

type RequestResponse struct {
	Request *models.ConnectionRequest `json:"request"`
}

type RequestListResponse struct {
	Requests []models.ConnectionRequest `json:"requests"`
}

type AcceptResponse struct {
	Connection *models.Connection `json:"connection"`
	Message    string             `json:"message"`
}

func (h *RequestHandler) Send(w http.ResponseWriter, r *http.Request) {
	caller, ok := GetPartyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	var req SendConnectionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if err := h.validate.Struct(req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver")
		return
	}

	receiver, err := models.NewPartyRef(req.ReceiverID, req.ReceiverKind)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid receiver")
		return
	}

	created, err := h.requestService.SendRequest(r.Context(), caller, receiver)
	if err != nil {
		writeServiceError(w, r, "send request", err)
		return
	}

	writeJSON(w, http.StatusCreated, RequestResponse{Request: created})
}

func (h *RequestHandler) List(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list requests", h.requestService.ListRequestsFor)
}

func (h *RequestHandler) Incoming(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list incoming requests", h.requestService.ListIncomingRequests)
}

func (h *RequestHandler) Outgoing(w http.ResponseWriter, r *http.Request) {
	h.list(w, r, "list outgoing requests", h.requestService.ListOutgoingRequests)
}

func (h *RequestHandler) list(w http.ResponseWriter, r *http.Request, op string, fetch func(context.Context, models.PartyRef) ([]models.ConnectionRequest, error)) {
	caller, ok := GetPartyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return
	}

	reqs, err := fetch(r.Context(), caller)
	if err != nil {
		writeServiceError(w, r, op, err)
		return
	}
	if reqs == nil {
		reqs = []models.ConnectionRequest{}
	}

	writeJSON(w, http.StatusOK, RequestListResponse{Requests: reqs})
}

func (h *RequestHandler) Accept(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadOwnRequest(w, r, "accept request", services.ErrNotRecipient)
	if !ok {
		return
	}

	conn, err := h.requestService.AcceptRequest(r.Context(), req.ID)
	if err != nil {
		writeServiceError(w, r, "accept request", err)
		return
	}

	writeJSON(w, http.StatusOK, AcceptResponse{Connection: conn, Message: "Connection request accepted"})
}

func (h *RequestHandler) Reject(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadOwnRequest(w, r, "reject request", services.ErrNotRecipient)
	if !ok {
		return
	}

	if err := h.requestService.RejectRequest(r.Context(), req.ID); err != nil {
		writeServiceError(w, r, "reject request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Connection request rejected"})
}

func (h *RequestHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	req, ok := h.loadOwnRequest(w, r, "cancel request", services.ErrNotSender)
	if !ok {
		return
	}

	if err := h.requestService.CancelRequest(r.Context(), req.ID); err != nil {
		writeServiceError(w, r, "cancel request", err)
		return
	}

	writeJSON(w, http.StatusOK, MessageResponse{Message: "Connection request cancelled"})
}

// loadOwnRequest resolves the {id} path value and checks that the caller
// holds the role required by denied: the receiver for ErrNotRecipient, the
// sender for ErrNotSender. It writes the error response itself.
func (h *RequestHandler) loadOwnRequest(w http.ResponseWriter, r *http.Request, op string, denied error) (*models.ConnectionRequest, bool) {
	caller, ok := GetPartyFromContext(r.Context())
	if !ok {
		writeError(w, http.StatusUnauthorized, "Authentication required")
		return nil, false
	}

	requestID, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request ID")
		return nil, false
	}

	req, err := h.requestService.GetRequest(r.Context(), requestID)
	if err != nil {
		writeServiceError(w, r, op, err)
		return nil, false
	}

	owner := req.Receiver
	if denied == services.ErrNotSender {
		owner = req.Sender
	}
	if !owner.Equal(caller) {
		writeServiceError(w, r, op, denied)
		return nil, false
	}

	return req, true
}
