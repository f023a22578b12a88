package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/HammerMeetNail/campusconnect/internal/models"
)

const connectionColumns = `id, party_a_id, party_a_kind, party_b_id, party_b_kind, status, created_at`

// ConnectionService owns the accepted, symmetric connection graph. Edges are
// only written through RequestService.AcceptRequest.
type ConnectionService struct {
	db DB
}

func NewConnectionService(db DB) *ConnectionService {
	return &ConnectionService{db: db}
}

// createConnection is idempotent per unordered pair: a second call for the
// same two parties returns the edge created by the first.
func (s *ConnectionService) createConnection(ctx context.Context, q Querier, a, b models.PartyRef) (*models.Connection, error) {
	if err := validatePair(a, b); err != nil {
		return nil, err
	}
	lo, hi := models.CanonicalPair(a, b)

	conn, err := scanConnection(q.QueryRow(ctx,
		`INSERT INTO connections (party_a_id, party_a_kind, party_b_id, party_b_kind)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (party_a_kind, party_a_id, party_b_kind, party_b_id) DO NOTHING
		 RETURNING `+connectionColumns,
		lo.ID, string(lo.Kind), hi.ID, string(hi.Kind),
	))
	if err == nil {
		return conn, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, storageError("creating connection", err)
	}

	conn, err = scanConnection(q.QueryRow(ctx,
		`SELECT `+connectionColumns+`
		 FROM connections
		 WHERE party_a_kind = $1 AND party_a_id = $2
		   AND party_b_kind = $3 AND party_b_id = $4`,
		string(lo.Kind), lo.ID, string(hi.Kind), hi.ID,
	))
	if err != nil {
		return nil, storageError("loading existing connection", err)
	}
	return conn, nil
}

func (s *ConnectionService) ListConnectionsFor(ctx context.Context, party models.PartyRef) (conns []models.Connection, err error) {
	ctx, done := instrument(ctx, "list_connections", partyAttrs("party", party)...)
	defer func() { done(err) }()

	if err := validateParty(party); err != nil {
		return nil, err
	}

	rows, err := s.db.Query(ctx,
		`SELECT `+connectionColumns+`
		 FROM connections
		 WHERE (party_a_kind = $1 AND party_a_id = $2)
		    OR (party_b_kind = $1 AND party_b_id = $2)
		 ORDER BY created_at DESC, id`,
		string(party.Kind), party.ID,
	)
	if err != nil {
		return nil, storageError("listing connections", err)
	}
	defer rows.Close()

	for rows.Next() {
		c, err := scanConnection(rows)
		if err != nil {
			return nil, storageError("scanning connection", err)
		}
		conns = append(conns, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, storageError("listing connections", err)
	}

	if conns == nil {
		conns = []models.Connection{}
	}
	return conns, nil
}

// AreConnected is symmetric in a and b. A party is never connected to itself.
func (s *ConnectionService) AreConnected(ctx context.Context, a, b models.PartyRef) (connected bool, err error) {
	attrs := append(partyAttrs("party_a", a), partyAttrs("party_b", b)...)
	ctx, done := instrument(ctx, "are_connected", attrs...)
	defer func() { done(err) }()

	if err := validateParty(a); err != nil {
		return false, err
	}
	if err := validateParty(b); err != nil {
		return false, err
	}
	if a.Equal(b) {
		return false, nil
	}
	lo, hi := models.CanonicalPair(a, b)

	err = s.db.QueryRow(ctx,
		`SELECT EXISTS(
			SELECT 1 FROM connections
			WHERE party_a_kind = $1 AND party_a_id = $2
			  AND party_b_kind = $3 AND party_b_id = $4
		)`,
		string(lo.Kind), lo.ID, string(hi.Kind), hi.ID,
	).Scan(&connected)
	if err != nil {
		return false, storageError("checking connection", err)
	}
	return connected, nil
}

func (s *ConnectionService) CountConnections(ctx context.Context, party models.PartyRef) (count int, err error) {
	ctx, done := instrument(ctx, "count_connections", partyAttrs("party", party)...)
	defer func() { done(err) }()

	if err := validateParty(party); err != nil {
		return 0, err
	}

	err = s.db.QueryRow(ctx,
		`SELECT COUNT(*) FROM connections
		 WHERE (party_a_kind = $1 AND party_a_id = $2)
		    OR (party_b_kind = $1 AND party_b_id = $2)`,
		string(party.Kind), party.ID,
	).Scan(&count)
	if err != nil {
		return 0, storageError("counting connections", err)
	}
	return count, nil
}

func scanConnection(row Row) (*models.Connection, error) {
	c := &models.Connection{}
	err := row.Scan(&c.ID, &c.PartyA.ID, &c.PartyA.Kind, &c.PartyB.ID, &c.PartyB.Kind, &c.Status, &c.CreatedAt)
	if err != nil {
		return nil, err
	}
	return c, nil
}

func validateParty(p models.PartyRef) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidParty, err)
	}
	return nil
}

func validatePair(a, b models.PartyRef) error {
	if err := validateParty(a); err != nil {
		return err
	}
	if err := validateParty(b); err != nil {
		return err
	}
	if a.Equal(b) {
		return fmt.Errorf("%w: a party cannot connect to itself", ErrInvalidParty)
	}
	return nil
}
