package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.opentelemetry.io/otel/attribute"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

const requestColumns = `id, sender_id, sender_kind, receiver_id, receiver_kind, status, created_at, resolved_at`

// RequestService owns connection requests and orchestrates the accept flow,
// which writes the connection edge through graph on the same transaction.
type RequestService struct {
	db    DB
	graph *ConnectionService
}

func NewRequestService(db DB, graph *ConnectionService) *RequestService {
	return &RequestService{db: db, graph: graph}
}

func (s *RequestService) SendRequest(ctx context.Context, sender, receiver models.PartyRef) (req *models.ConnectionRequest, err error) {
	attrs := append(partyAttrs("sender", sender), partyAttrs("receiver", receiver)...)
	ctx, done := instrument(ctx, "send_request", attrs...)
	defer func() { done(err) }()

	if err := validatePair(sender, receiver); err != nil {
		return nil, err
	}

	// The partial unique index on pending rows makes the insert a no-op for
	// a duplicate, including one racing with this call.
	req, err = scanRequest(s.db.QueryRow(ctx,
		`INSERT INTO connection_requests (sender_id, sender_kind, receiver_id, receiver_kind, status)
		 VALUES ($1, $2, $3, $4, 'pending')
		 ON CONFLICT DO NOTHING
		 RETURNING `+requestColumns,
		sender.ID, string(sender.Kind), receiver.ID, string(receiver.Kind),
	))
	if errors.Is(err, pgx.ErrNoRows) || isUniqueViolation(err) {
		return nil, ErrDuplicateRequest
	}
	if err != nil {
		return nil, storageError("creating request", err)
	}
	return req, nil
}

func (s *RequestService) AcceptRequest(ctx context.Context, requestID uuid.UUID) (conn *models.Connection, err error) {
	ctx, done := instrument(ctx, "accept_request", attribute.String("request.id", requestID.String()))
	defer func() { done(err) }()

	err = s.withTx(ctx, "accepting request", func(tx Tx) error {
		req, err := s.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}

		conn, err = s.graph.createConnection(ctx, tx, req.Sender, req.Receiver)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`UPDATE connection_requests
			 SET status = 'accepted', resolved_at = NOW()
			 WHERE id = $1`,
			requestID,
		); err != nil {
			return storageError("marking request accepted", err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// RejectRequest removes the request from the live table and keeps a copy in
// connection_request_rejections, so the sender may ask again.
func (s *RequestService) RejectRequest(ctx context.Context, requestID uuid.UUID) (err error) {
	ctx, done := instrument(ctx, "reject_request", attribute.String("request.id", requestID.String()))
	defer func() { done(err) }()

	return s.withTx(ctx, "rejecting request", func(tx Tx) error {
		req, err := s.lockPending(ctx, tx, requestID)
		if err != nil {
			return err
		}

		if _, err := tx.Exec(ctx,
			`INSERT INTO connection_request_rejections
			   (request_id, sender_id, sender_kind, receiver_id, receiver_kind, requested_at)
			 VALUES ($1, $2, $3, $4, $5, $6)`,
			req.ID, req.Sender.ID, string(req.Sender.Kind), req.Receiver.ID, string(req.Receiver.Kind), req.CreatedAt,
		); err != nil {
			return storageError("recording rejection", err)
		}

		if _, err := tx.Exec(ctx, "DELETE FROM connection_requests WHERE id = $1", requestID); err != nil {
			return storageError("deleting rejected request", err)
		}
		return nil
	})
}

// CancelRequest lets the sender withdraw a request that is still pending.
func (s *RequestService) CancelRequest(ctx context.Context, requestID uuid.UUID) (err error) {
	ctx, done := instrument(ctx, "cancel_request", attribute.String("request.id", requestID.String()))
	defer func() { done(err) }()

	return s.withTx(ctx, "canceling request", func(tx Tx) error {
		if _, err := s.lockPending(ctx, tx, requestID); err != nil {
			return err
		}
		if _, err := tx.Exec(ctx, "DELETE FROM connection_requests WHERE id = $1", requestID); err != nil {
			return storageError("deleting canceled request", err)
		}
		return nil
	})
}

func (s *RequestService) GetRequest(ctx context.Context, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := scanRequest(s.db.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM connection_requests WHERE id = $1`,
		requestID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, storageError("getting request", err)
	}
	return req, nil
}

// ListRequestsFor returns every request the party sent or received, in any
// status, newest first.
func (s *RequestService) ListRequestsFor(ctx context.Context, party models.PartyRef) (reqs []models.ConnectionRequest, err error) {
	ctx, done := instrument(ctx, "list_requests", partyAttrs("party", party)...)
	defer func() { done(err) }()

	if err := validateParty(party); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, "listing requests",
		`(sender_kind = $1 AND sender_id = $2) OR (receiver_kind = $1 AND receiver_id = $2)`,
		string(party.Kind), party.ID,
	)
}

func (s *RequestService) ListIncomingRequests(ctx context.Context, party models.PartyRef) (reqs []models.ConnectionRequest, err error) {
	ctx, done := instrument(ctx, "list_incoming_requests", partyAttrs("party", party)...)
	defer func() { done(err) }()

	if err := validateParty(party); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, "listing incoming requests",
		`receiver_kind = $1 AND receiver_id = $2 AND status = 'pending'`,
		string(party.Kind), party.ID,
	)
}

func (s *RequestService) ListOutgoingRequests(ctx context.Context, party models.PartyRef) (reqs []models.ConnectionRequest, err error) {
	ctx, done := instrument(ctx, "list_outgoing_requests", partyAttrs("party", party)...)
	defer func() { done(err) }()

	if err := validateParty(party); err != nil {
		return nil, err
	}
	return s.listRequests(ctx, "listing outgoing requests",
		`sender_kind = $1 AND sender_id = $2 AND status = 'pending'`,
		string(party.Kind), party.ID,
	)
}

func (s *RequestService) listRequests(ctx context.Context, op, where string, args ...any) ([]models.ConnectionRequest, error) {
	rows, err := s.db.Query(ctx,
		`SELECT `+requestColumns+`
		 FROM connection_requests
		 WHERE `+where+`
		 ORDER BY created_at DESC, id`,
		args...,
	)
	if err != nil {
		return nil, storageError(op, err)
	}
	defer rows.Close()

	var reqs []models.ConnectionRequest
	for rows.Next() {
		r, err := scanRequest(rows)
		if err != nil {
			return nil, storageError("scanning request", err)
		}
		reqs = append(reqs, *r)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError(op, err)
	}

	if reqs == nil {
		reqs = []models.ConnectionRequest{}
	}
	return reqs, nil
}

// lockPending loads the request with a row lock so concurrent resolutions of
// the same request serialize on it.
func (s *RequestService) lockPending(ctx context.Context, tx Tx, requestID uuid.UUID) (*models.ConnectionRequest, error) {
	req, err := scanRequest(tx.QueryRow(ctx,
		`SELECT `+requestColumns+` FROM connection_requests WHERE id = $1 FOR UPDATE`,
		requestID,
	))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrRequestNotFound
	}
	if err != nil {
		return nil, storageError("locking request", err)
	}
	if !req.IsPending() {
		return nil, ErrRequestNotPending
	}
	return req, nil
}

func (s *RequestService) withTx(ctx context.Context, op string, fn func(tx Tx) error) error {
	tx, err := s.db.Begin(ctx)
	if err != nil {
		return storageError(fmt.Sprintf("begin %s transaction", op), err)
	}

	committed := false
	defer func() {
		if !committed {
			_ = tx.Rollback(ctx)
		}
	}()

	if err := fn(tx); err != nil {
		return err
	}

	if err := tx.Commit(ctx); err != nil {
		return storageError(fmt.Sprintf("commit %s", op), err)
	}
	committed = true
	return nil
}

func scanRequest(row Row) (*models.ConnectionRequest, error) {
	r := &models.ConnectionRequest{}
	err := row.Scan(&r.ID, &r.Sender.ID, &r.Sender.Kind, &r.Receiver.ID, &r.Receiver.Kind, &r.Status, &r.CreatedAt, &r.ResolvedAt)
	if err != nil {
		return nil, err
	}
	return r, nil
}
