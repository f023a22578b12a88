package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

type memRequest struct {
	id                       uuid.UUID
	senderID, senderKind     string
	receiverID, receiverKind string
	status                   string
	createdAt                time.Time
	resolvedAt               *time.Time
}

func (r memRequest) values() []any {
	return []any{r.id, r.senderID, r.senderKind, r.receiverID, r.receiverKind, r.status, r.createdAt, r.resolvedAt}
}

type memConnection struct {
	id         uuid.UUID
	aID, aKind string
	bID, bKind string
	createdAt  time.Time
}

func (c memConnection) values() []any {
	return []any{c.id, c.aID, c.aKind, c.bID, c.bKind, "accepted", c.createdAt}
}

type memState struct {
	requests    map[uuid.UUID]memRequest
	connections []memConnection
	rejections  []uuid.UUID
}

func (s memState) clone() memState {
	c := memState{
		requests:    make(map[uuid.UUID]memRequest, len(s.requests)),
		connections: append([]memConnection(nil), s.connections...),
		rejections:  append([]uuid.UUID(nil), s.rejections...),
	}
	for k, v := range s.requests {
		c.requests[k] = v
	}
	return c
}

// memDB is a stateful stand-in for Postgres that understands exactly the
// statements issued by RequestService and ConnectionService. Transactions
// are serialized and roll back to a snapshot, which mirrors the row locks
// and unique indexes of the real schema closely enough for behavior tests.
type memDB struct {
	txMu sync.Mutex
	mu   sync.Mutex

	state memState
	clock time.Time
}

func newMemDB() *memDB {
	return &memDB{
		state: memState{requests: make(map[uuid.UUID]memRequest)},
		clock: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memDB) now() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func normalize(sql string) string {
	return strings.Join(strings.Fields(sql), " ")
}

func (m *memDB) Begin(ctx context.Context) (Tx, error) {
	m.txMu.Lock()
	m.mu.Lock()
	snapshot := m.state.clone()
	m.mu.Unlock()
	return &memTx{db: m, snapshot: snapshot}, nil
}

func (m *memDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.exec(normalize(sql), args)
}

func (m *memDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.queryRow(normalize(sql), args)
}

func (m *memDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.query(normalize(sql), args)
}

func (m *memDB) exec(sql string, args []any) (CommandTag, error) {
	switch {
	case strings.HasPrefix(sql, "UPDATE connection_requests SET status = 'accepted'"):
		id := args[0].(uuid.UUID)
		r, ok := m.state.requests[id]
		if !ok {
			return fakeCommandTag{}, nil
		}
		now := m.now()
		r.status = "accepted"
		r.resolvedAt = &now
		m.state.requests[id] = r
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.HasPrefix(sql, "INSERT INTO connection_request_rejections"):
		m.state.rejections = append(m.state.rejections, args[0].(uuid.UUID))
		return fakeCommandTag{rowsAffected: 1}, nil

	case strings.HasPrefix(sql, "DELETE FROM connection_requests WHERE id = $1"):
		id := args[0].(uuid.UUID)
		if _, ok := m.state.requests[id]; !ok {
			return fakeCommandTag{}, nil
		}
		delete(m.state.requests, id)
		return fakeCommandTag{rowsAffected: 1}, nil
	}
	return nil, fmt.Errorf("memdb: unsupported exec %q", sql)
}

func (m *memDB) queryRow(sql string, args []any) Row {
	switch {
	case strings.HasPrefix(sql, "INSERT INTO connection_requests"):
		sID, sKind, rID, rKind := args[0].(string), args[1].(string), args[2].(string), args[3].(string)
		for _, r := range m.state.requests {
			if r.status == "pending" && r.senderID == sID && r.senderKind == sKind && r.receiverID == rID && r.receiverKind == rKind {
				return rowWithError(pgx.ErrNoRows)
			}
		}
		r := memRequest{
			id: uuid.New(), senderID: sID, senderKind: sKind, receiverID: rID, receiverKind: rKind,
			status: "pending", createdAt: m.now(),
		}
		m.state.requests[r.id] = r
		return rowFromValues(r.values()...)

	case strings.HasPrefix(sql, "SELECT id, sender_id") && strings.Contains(sql, "FROM connection_requests WHERE id = $1"):
		r, ok := m.state.requests[args[0].(uuid.UUID)]
		if !ok {
			return rowWithError(pgx.ErrNoRows)
		}
		return rowFromValues(r.values()...)

	case strings.HasPrefix(sql, "INSERT INTO connections"):
		if _, ok := m.findConnection(args[1].(string), args[0].(string), args[3].(string), args[2].(string)); ok {
			return rowWithError(pgx.ErrNoRows)
		}
		c := memConnection{
			id: uuid.New(), aID: args[0].(string), aKind: args[1].(string),
			bID: args[2].(string), bKind: args[3].(string), createdAt: m.now(),
		}
		m.state.connections = append(m.state.connections, c)
		return rowFromValues(c.values()...)

	case strings.HasPrefix(sql, "SELECT EXISTS( SELECT 1 FROM connections"):
		_, ok := m.findConnection(args[0].(string), args[1].(string), args[2].(string), args[3].(string))
		return rowFromValues(ok)

	case strings.HasPrefix(sql, "SELECT COUNT(*) FROM connections"):
		return rowFromValues(len(m.connectionsFor(args[0].(string), args[1].(string))))

	case strings.HasPrefix(sql, "SELECT id, party_a_id"):
		c, ok := m.findConnection(args[0].(string), args[1].(string), args[2].(string), args[3].(string))
		if !ok {
			return rowWithError(pgx.ErrNoRows)
		}
		return rowFromValues(c.values()...)
	}
	return rowWithError(fmt.Errorf("memdb: unsupported query row %q", sql))
}

func (m *memDB) query(sql string, args []any) (Rows, error) {
	switch {
	case strings.Contains(sql, "FROM connection_requests WHERE"):
		kind, id := args[0].(string), args[1].(string)
		var matched []memRequest
		for _, r := range m.state.requests {
			isSender := r.senderKind == kind && r.senderID == id
			isReceiver := r.receiverKind == kind && r.receiverID == id
			switch {
			case strings.Contains(sql, "OR (receiver_kind"):
				if isSender || isReceiver {
					matched = append(matched, r)
				}
			case strings.HasPrefix(sql[strings.Index(sql, "WHERE "):], "WHERE receiver_kind"):
				if isReceiver && r.status == "pending" {
					matched = append(matched, r)
				}
			default:
				if isSender && r.status == "pending" {
					matched = append(matched, r)
				}
			}
		}
		sort.Slice(matched, func(i, j int) bool {
			return matched[i].createdAt.After(matched[j].createdAt)
		})
		rows := &fakeRows{}
		for _, r := range matched {
			rows.rows = append(rows.rows, r.values())
		}
		return rows, nil

	case strings.Contains(sql, "FROM connections WHERE (party_a_kind"):
		rows := &fakeRows{}
		for _, c := range m.connectionsFor(args[0].(string), args[1].(string)) {
			rows.rows = append(rows.rows, c.values())
		}
		return rows, nil
	}
	return nil, fmt.Errorf("memdb: unsupported query %q", sql)
}

func (m *memDB) findConnection(aKind, aID, bKind, bID string) (memConnection, bool) {
	for _, c := range m.state.connections {
		if c.aKind == aKind && c.aID == aID && c.bKind == bKind && c.bID == bID {
			return c, true
		}
	}
	return memConnection{}, false
}

func (m *memDB) connectionsFor(kind, id string) []memConnection {
	var out []memConnection
	for _, c := range m.state.connections {
		if (c.aKind == kind && c.aID == id) || (c.bKind == kind && c.bID == id) {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].createdAt.After(out[j].createdAt)
	})
	return out
}

type memTx struct {
	db       *memDB
	snapshot memState
	done     bool

	failOn string
}

var errInjected = errors.New("injected failure")

func (t *memTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if t.failOn != "" && strings.Contains(normalize(sql), t.failOn) {
		return nil, errInjected
	}
	return t.db.Exec(ctx, sql, args...)
}

func (t *memTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *memTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *memTx) Commit(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.txMu.Unlock()
	return nil
}

func (t *memTx) Rollback(ctx context.Context) error {
	if t.done {
		return pgx.ErrTxClosed
	}
	t.done = true
	t.db.mu.Lock()
	t.db.state = t.snapshot
	t.db.mu.Unlock()
	t.db.txMu.Unlock()
	return nil
}

// failingMemDB hands out transactions whose Exec fails for statements
// containing failOn.
type failingMemDB struct {
	*memDB
	failOn string
}

func (f *failingMemDB) Begin(ctx context.Context) (Tx, error) {
	tx, err := f.memDB.Begin(ctx)
	if err != nil {
		return nil, err
	}
	tx.(*memTx).failOn = f.failOn
	return tx, nil
}
