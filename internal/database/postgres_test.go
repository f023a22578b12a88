package database

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// pgSeams replaces the pool constructors for one test and records what the
// code under test did with them.
type pgSeams struct {
	cfg       *pgxpool.Config
	pool      *pgxpool.Pool
	parseErr  error
	newErr    error
	pingErr   error
	closed    int
	pingCalls int
}

func stubPG(t *testing.T) *pgSeams {
	t.Helper()
	s := &pgSeams{cfg: &pgxpool.Config{}, pool: &pgxpool.Pool{}}

	origParse, origNew, origPing, origClose := parsePGConfig, newPGPool, pingPGPool, closePGPool
	t.Cleanup(func() {
		parsePGConfig, newPGPool, pingPGPool, closePGPool = origParse, origNew, origPing, origClose
	})

	parsePGConfig = func(string) (*pgxpool.Config, error) {
		if s.parseErr != nil {
			return nil, s.parseErr
		}
		return s.cfg, nil
	}
	newPGPool = func(context.Context, *pgxpool.Config) (*pgxpool.Pool, error) {
		if s.newErr != nil {
			return nil, s.newErr
		}
		return s.pool, nil
	}
	pingPGPool = func(context.Context, *pgxpool.Pool) error {
		s.pingCalls++
		return s.pingErr
	}
	closePGPool = func(*pgxpool.Pool) { s.closed++ }
	return s
}

func TestNewPostgresDB_Errors(t *testing.T) {
	tests := []struct {
		name      string
		setup     func(*pgSeams)
		wantMsg   string
		wantClose int
	}{
		{name: "parse", setup: func(s *pgSeams) { s.parseErr = errors.New("bad dsn") }, wantMsg: "parsing database config"},
		{name: "pool", setup: func(s *pgSeams) { s.newErr = errors.New("no pool") }, wantMsg: "creating connection pool"},
		{name: "ping", setup: func(s *pgSeams) { s.pingErr = errors.New("refused") }, wantMsg: "pinging database", wantClose: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := stubPG(t)
			tt.setup(s)

			db, err := NewPostgresDB("postgres://campus@localhost/campusconnect")
			require.Error(t, err)
			assert.Nil(t, db)
			assert.Contains(t, err.Error(), tt.wantMsg)
			assert.Equal(t, tt.wantClose, s.closed, "pool closes only after a failed ping")
		})
	}
}

func TestNewPostgresDB_PoolSettings(t *testing.T) {
	s := stubPG(t)

	db, err := NewPostgresDB("postgres://campus@localhost/campusconnect")
	require.NoError(t, err)
	assert.Same(t, s.pool, db.Pool)

	assert.EqualValues(t, 25, s.cfg.MaxConns)
	assert.EqualValues(t, 5, s.cfg.MinConns)
	assert.Equal(t, time.Hour, s.cfg.MaxConnLifetime)
	assert.Equal(t, 30*time.Minute, s.cfg.MaxConnIdleTime)
	assert.Equal(t, time.Minute, s.cfg.HealthCheckPeriod)
}

func TestPostgresDB_Health(t *testing.T) {
	s := stubPG(t)
	db := &PostgresDB{Pool: s.pool}

	require.NoError(t, db.Health(context.Background()))

	s.pingErr = errors.New("connection reset")
	assert.EqualError(t, db.Health(context.Background()), "connection reset")
	assert.Equal(t, 2, s.pingCalls)
}

func TestPostgresDB_Close(t *testing.T) {
	s := stubPG(t)

	(&PostgresDB{Pool: s.pool}).Close()
	(&PostgresDB{}).Close()

	assert.Equal(t, 1, s.closed)
}
