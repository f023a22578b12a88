package services

import (
	"context"
	"fmt"
	"reflect"
)

type fakeCommandTag struct {
	rowsAffected int64
}

func (t fakeCommandTag) RowsAffected() int64 {
	return t.rowsAffected
}

type fakeRow struct {
	values []any
	err    error
}

func (r fakeRow) Scan(dest ...any) error {
	if r.err != nil {
		return r.err
	}
	return scanValues(r.values, dest)
}

func rowFromValues(values ...any) Row {
	return fakeRow{values: values}
}

func rowWithError(err error) Row {
	return fakeRow{err: err}
}

type fakeRows struct {
	rows    [][]any
	idx     int
	err     error
	scanErr error
	closed  bool
}

func (r *fakeRows) Next() bool {
	if r.idx >= len(r.rows) {
		return false
	}
	r.idx++
	return true
}

func (r *fakeRows) Scan(dest ...any) error {
	if r.scanErr != nil {
		return r.scanErr
	}
	return scanValues(r.rows[r.idx-1], dest)
}

func (r *fakeRows) Close() {
	r.closed = true
}

func (r *fakeRows) Err() error {
	return r.err
}

type fakeDB struct {
	QueryFunc    func(ctx context.Context, sql string, args ...any) (Rows, error)
	QueryRowFunc func(ctx context.Context, sql string, args ...any) Row
	ExecFunc     func(ctx context.Context, sql string, args ...any) (CommandTag, error)
	BeginFunc    func(ctx context.Context) (Tx, error)

	lastTx *fakeTx
}

func (f *fakeDB) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	if f.QueryFunc != nil {
		return f.QueryFunc(ctx, sql, args...)
	}
	return &fakeRows{}, nil
}

func (f *fakeDB) QueryRow(ctx context.Context, sql string, args ...any) Row {
	if f.QueryRowFunc != nil {
		return f.QueryRowFunc(ctx, sql, args...)
	}
	return rowWithError(fmt.Errorf("unexpected QueryRow: %s", sql))
}

func (f *fakeDB) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	if f.ExecFunc != nil {
		return f.ExecFunc(ctx, sql, args...)
	}
	return fakeCommandTag{rowsAffected: 1}, nil
}

func (f *fakeDB) Begin(ctx context.Context) (Tx, error) {
	if f.BeginFunc != nil {
		return f.BeginFunc(ctx)
	}
	f.lastTx = &fakeTx{db: f}
	return f.lastTx, nil
}

// fakeTx routes statements back through the owning fakeDB and records how
// the transaction ended.
type fakeTx struct {
	db         *fakeDB
	CommitErr  error
	committed  bool
	rolledBack bool
}

func (t *fakeTx) Query(ctx context.Context, sql string, args ...any) (Rows, error) {
	return t.db.Query(ctx, sql, args...)
}

func (t *fakeTx) QueryRow(ctx context.Context, sql string, args ...any) Row {
	return t.db.QueryRow(ctx, sql, args...)
}

func (t *fakeTx) Exec(ctx context.Context, sql string, args ...any) (CommandTag, error) {
	return t.db.Exec(ctx, sql, args...)
}

func (t *fakeTx) Commit(ctx context.Context) error {
	if t.CommitErr != nil {
		return t.CommitErr
	}
	t.committed = true
	return nil
}

func (t *fakeTx) Rollback(ctx context.Context) error {
	if !t.committed {
		t.rolledBack = true
	}
	return nil
}

func scanValues(values, dest []any) error {
	if len(values) != len(dest) {
		return fmt.Errorf("scan: got %d values for %d destinations", len(values), len(dest))
	}
	for i := range dest {
		if err := assign(dest[i], values[i]); err != nil {
			return fmt.Errorf("scan column %d: %w", i, err)
		}
	}
	return nil
}

func assign(dest, value any) error {
	dv := reflect.ValueOf(dest)
	if dv.Kind() != reflect.Pointer || dv.IsNil() {
		return fmt.Errorf("destination must be a non-nil pointer, got %T", dest)
	}
	target := dv.Elem()
	if value == nil {
		target.Set(reflect.Zero(target.Type()))
		return nil
	}

	v := reflect.ValueOf(value)
	switch {
	case v.Type().AssignableTo(target.Type()):
		target.Set(v)
	case v.Kind() == reflect.String && target.Kind() == reflect.String:
		target.SetString(v.String())
	case target.Kind() == reflect.Pointer && v.Type().AssignableTo(target.Type().Elem()):
		p := reflect.New(target.Type().Elem())
		p.Elem().Set(v)
		target.Set(p)
	case v.CanInt() && target.CanInt():
		target.SetInt(v.Int())
	default:
		return fmt.Errorf("cannot assign %T to %s", value, target.Type())
	}
	return nil
}
