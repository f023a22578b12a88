package handlers

import (
	"context"
	"net/http"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
)

type HealthChecker interface {
	Health(ctx context.Context) error
}

type HealthHandler struct {
	db    HealthChecker
	redis HealthChecker
}

// NewHealthHandler builds the probe handler. redis may be nil when the rate
// limiter runs without Redis.
func NewHealthHandler(db, redis HealthChecker) *HealthHandler {
	return &HealthHandler{
		db:    db,
		redis: redis,
	}
}

type HealthResponse struct {
	Status    string            `json:"status"`
	Checks    map[string]string `json:"checks"`
	Timestamp string            `json:"timestamp"`
}

// check probes every dependency concurrently and returns one result per
// dependency name.
func (h *HealthHandler) check(ctx context.Context) map[string]error {
	deps := map[string]HealthChecker{"postgres": h.db}
	if h.redis != nil {
		deps["redis"] = h.redis
	}

	var (
		mu      sync.Mutex
		results = make(map[string]error, len(deps))
	)
	g, gctx := errgroup.WithContext(ctx)
	for name, dep := range deps {
		g.Go(func() error {
			err := dep.Health(gctx)
			mu.Lock()
			results[name] = err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	response := HealthResponse{
		Status:    "healthy",
		Checks:    make(map[string]string),
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}

	for name, err := range h.check(ctx) {
		if err != nil {
			response.Status = "unhealthy"
			response.Checks[name] = "unhealthy: " + err.Error()
			continue
		}
		response.Checks[name] = "healthy"
	}

	status := http.StatusOK
	if response.Status == "unhealthy" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, response)
}

func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	for _, err := range h.check(ctx) {
		if err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			w.Write([]byte("not ready"))
			return
		}
	}

	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ready"))
}

func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("alive"))
}
