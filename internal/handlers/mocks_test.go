package handlers

import (
	"context"

	"github.com/google/uuid"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

type mockRequestService struct {
	SendRequestFunc          func(ctx context.Context, sender, receiver models.PartyRef) (*models.ConnectionRequest, error)
	AcceptRequestFunc        func(ctx context.Context, requestID uuid.UUID) (*models.Connection, error)
	RejectRequestFunc        func(ctx context.Context, requestID uuid.UUID) error
	CancelRequestFunc        func(ctx context.Context, requestID uuid.UUID) error
	GetRequestFunc           func(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error)
	ListRequestsForFunc      func(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
	ListIncomingRequestsFunc func(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
	ListOutgoingRequestsFunc func(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error)
}

func (m *mockRequestService) SendRequest(ctx context.Context, sender, receiver models.PartyRef) (*models.ConnectionRequest, error) {
	if m.SendRequestFunc != nil {
		return m.SendRequestFunc(ctx, sender, receiver)
	}
	return nil, nil
}

func (m *mockRequestService) AcceptRequest(ctx context.Context, requestID uuid.UUID) (*models.Connection, error) {
	if m.AcceptRequestFunc != nil {
		return m.AcceptRequestFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockRequestService) RejectRequest(ctx context.Context, requestID uuid.UUID) error {
	if m.RejectRequestFunc != nil {
		return m.RejectRequestFunc(ctx, requestID)
	}
	return nil
}

func (m *mockRequestService) CancelRequest(ctx context.Context, requestID uuid.UUID) error {
	if m.CancelRequestFunc != nil {
		return m.CancelRequestFunc(ctx, requestID)
	}
	return nil
}

func (m *mockRequestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	if m.GetRequestFunc != nil {
		return m.GetRequestFunc(ctx, requestID)
	}
	return nil, nil
}

func (m *mockRequestService) ListRequestsFor(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error) {
	if m.ListRequestsForFunc != nil {
		return m.ListRequestsForFunc(ctx, party)
	}
	return nil, nil
}

func (m *mockRequestService) ListIncomingRequests(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error) {
	if m.ListIncomingRequestsFunc != nil {
		return m.ListIncomingRequestsFunc(ctx, party)
	}
	return nil, nil
}

func (m *mockRequestService) ListOutgoingRequests(ctx context.Context, party models.PartyRef) ([]models.ConnectionRequest, error) {
	if m.ListOutgoingRequestsFunc != nil {
		return m.ListOutgoingRequestsFunc(ctx, party)
	}
	return nil, nil
}

type mockConnectionService struct {
	ListConnectionsForFunc func(ctx context.Context, party models.PartyRef) ([]models.Connection, error)
	AreConnectedFunc       func(ctx context.Context, a, b models.PartyRef) (bool, error)
	CountConnectionsFunc   func(ctx context.Context, party models.PartyRef) (int, error)
}

func (m *mockConnectionService) ListConnectionsFor(ctx context.Context, party models.PartyRef) ([]models.Connection, error) {
	if m.ListConnectionsForFunc != nil {
		return m.ListConnectionsForFunc(ctx, party)
	}
	return nil, nil
}

func (m *mockConnectionService) AreConnected(ctx context.Context, a, b models.PartyRef) (bool, error) {
	if m.AreConnectedFunc != nil {
		return m.AreConnectedFunc(ctx, a, b)
	}
	return false, nil
}

func (m *mockConnectionService) CountConnections(ctx context.Context, party models.PartyRef) (int, error) {
	if m.CountConnectionsFunc != nil {
		return m.CountConnectionsFunc(ctx, party)
	}
	return 0, nil
}
