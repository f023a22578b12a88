package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/HammerMeetNail/campusconnect/internal/config"
	"github.com/HammerMeetNail/campusconnect/internal/database"
	"github.com/HammerMeetNail/campusconnect/internal/handlers"
	"github.com/HammerMeetNail/campusconnect/internal/logging"
	"github.com/HammerMeetNail/campusconnect/internal/middleware"
	"github.com/HammerMeetNail/campusconnect/internal/services"
)

func runServer(ctx context.Context, cfg *config.Config, logger *logging.Logger) error {
	logger.Info("Starting campusconnect server...", map[string]interface{}{"env": cfg.Server.Environment})

	shutdownTracing, err := setupTracing(cfg.Tracing.Enabled)
	if err != nil {
		return err
	}
	defer func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownTracing(ctx); err != nil {
			logger.WithError(err).Warn("Tracer shutdown failed")
		}
	}()

	logger.Info("Connecting to PostgreSQL", map[string]interface{}{
		"host": cfg.Database.Host,
		"port": cfg.Database.Port,
	})
	db, err := database.NewPostgresDB(cfg.Database.DSN())
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer db.Close()
	logger.Info("Connected to PostgreSQL")

	if cfg.Database.AutoMigrate {
		logger.Info("Running database migrations...")
		m, err := newMigrator(cfg.Database.DSN(), cfg.Database.MigrationsPath)
		if err != nil {
			return err
		}
		if err := m.Up(); err != nil {
			_ = m.Close()
			return err
		}
		_ = m.Close()
		logger.Info("Migrations completed")
	}

	var (
		redisClient *redis.Client
		redisHealth handlers.HealthChecker
	)
	if cfg.Redis.Enabled {
		logger.Info("Connecting to Redis", map[string]interface{}{"addr": cfg.Redis.Addr()})
		redisDB, err := database.NewRedisDB(cfg.Redis.Addr(), cfg.Redis.Password, cfg.Redis.DB)
		if err != nil {
			return fmt.Errorf("connecting to redis: %w", err)
		}
		defer func() { _ = redisDB.Close() }()
		redisClient = redisDB.Client
		redisHealth = redisDB
		logger.Info("Connected to Redis")
	} else {
		logger.Warn("Redis disabled; send rate limiting is off")
	}

	dbAdapter := services.NewPoolAdapter(db.Pool)
	connectionService := services.NewConnectionService(dbAdapter)
	requestService := services.NewRequestService(dbAdapter, connectionService)

	handler := newRouter(routerDeps{
		requests:    handlers.NewRequestHandler(requestService),
		connections: handlers.NewConnectionHandler(connectionService),
		health:      handlers.NewHealthHandler(db, redisHealth),
		sendLimiter: middleware.NewSendRateLimiter(redisClient, cfg.RateLimit.SendLimit, time.Duration(cfg.RateLimit.WindowSeconds)*time.Second),
		logger:      logger,
		secure:      cfg.Server.Secure,
	})

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan struct{})
	go func() {
		defer close(done)
		<-ctx.Done()
		logger.Info("Server is shutting down...")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()

		server.SetKeepAlivesEnabled(false)
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.WithError(err).Error("Could not gracefully shutdown the server")
		}
	}()

	logger.Info("Server listening", map[string]interface{}{"addr": addr})
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		stop()
		<-done
		return fmt.Errorf("server error: %w", err)
	}

	<-done
	logger.Info("Server stopped")
	return nil
}

type routerDeps struct {
	requests    *handlers.RequestHandler
	connections *handlers.ConnectionHandler
	health      *handlers.HealthHandler
	sendLimiter *middleware.RateLimiter
	logger      *logging.Logger
	secure      bool
}

func newRouter(deps routerDeps) http.Handler {
	auth := middleware.NewAuthMiddleware()
	requireAuth := auth.RequireAuth

	mux := http.NewServeMux()

	// Health endpoints (no auth, no rate limit)
	mux.HandleFunc("GET /health", deps.health.Health)
	mux.HandleFunc("GET /ready", deps.health.Ready)
	mux.HandleFunc("GET /live", deps.health.Live)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Connection requests
	mux.Handle("POST /api/requests", requireAuth(deps.sendLimiter.Middleware(http.HandlerFunc(deps.requests.Send))))
	mux.Handle("GET /api/requests", requireAuth(http.HandlerFunc(deps.requests.List)))
	mux.Handle("GET /api/requests/incoming", requireAuth(http.HandlerFunc(deps.requests.Incoming)))
	mux.Handle("GET /api/requests/outgoing", requireAuth(http.HandlerFunc(deps.requests.Outgoing)))
	mux.Handle("PUT /api/requests/{id}/accept", requireAuth(http.HandlerFunc(deps.requests.Accept)))
	mux.Handle("PUT /api/requests/{id}/reject", requireAuth(http.HandlerFunc(deps.requests.Reject)))
	mux.Handle("DELETE /api/requests/{id}", requireAuth(http.HandlerFunc(deps.requests.Cancel)))

	// Connections
	mux.Handle("GET /api/connections", requireAuth(http.HandlerFunc(deps.connections.List)))
	mux.Handle("GET /api/connections/check", requireAuth(http.HandlerFunc(deps.connections.Check)))

	// Build middleware chain (order matters: outermost last)
	var handler http.Handler = mux
	handler = middleware.NewHTTPMetrics().Apply(handler)
	handler = middleware.NewRequestLogger(deps.logger).Apply(handler)
	handler = auth.Authenticate(handler)
	handler = middleware.NewCompress().Apply(handler)
	handler = middleware.NewSecurityHeaders(deps.secure).Apply(handler)
	return handler
}
