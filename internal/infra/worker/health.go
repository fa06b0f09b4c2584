package worker

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"sync/atomic"
	"time"

	"workshop-announcer/internal/observability/tracing"
	"workshop-announcer/internal/usecase/watch"
)

// StatusSource reports the poller state. *watch.Poller implements it.
type StatusSource interface {
	Status() watch.Status
}

// HealthServer serves the health checks:
//   - GET /health: liveness, always 200
//   - GET /health/ready: 200 once SetReady(true) was called, 503 before
type HealthServer struct {
	addr    string
	logger  *slog.Logger
	isReady *atomic.Bool
	metrics *WorkerMetrics
	server  *http.Server
}

type healthResponse struct {
	Status string `json:"status"`
}

// NewHealthServer creates a server for addr. metrics may be nil.
func NewHealthServer(addr string, logger *slog.Logger, metrics *WorkerMetrics) *HealthServer {
	return &HealthServer{
		addr:    addr,
		logger:  logger,
		isReady: &atomic.Bool{},
		metrics: metrics,
	}
}

// Handler returns the health routes wrapped in the tracing middleware.
func (h *HealthServer) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/health", h.handleLiveness)
	mux.HandleFunc("/health/ready", h.handleReadiness)
	return tracing.Middleware(mux)
}

// Start serves until ctx is cancelled, then shuts down within 5 seconds. It
// returns http.ErrServerClosed after a graceful shutdown.
func (h *HealthServer) Start(ctx context.Context) error {
	h.server = &http.Server{
		Addr:         h.addr,
		Handler:      h.Handler(),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 5 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
	return Serve(ctx, h.server, h.logger, "health")
}

// SetReady flips the readiness check.
func (h *HealthServer) SetReady(ready bool) {
	h.isReady.Store(ready)
	if h.metrics != nil {
		h.metrics.SetReady(ready)
	}
	h.logger.Info("health server readiness changed", slog.Bool("ready", ready))
}

func (h *HealthServer) handleLiveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
}

func (h *HealthServer) handleReadiness(w http.ResponseWriter, _ *http.Request) {
	if h.isReady.Load() {
		writeJSON(w, h.logger, http.StatusOK, healthResponse{Status: "ok"})
		return
	}
	writeJSON(w, h.logger, http.StatusServiceUnavailable, healthResponse{Status: "not ready"})
}

// PollerStatusHandler serves the poller status as JSON. It answers 503 when
// cycles have run but none has ever succeeded.
func PollerStatusHandler(src StatusSource, logger *slog.Logger) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		status := src.Status()
		code := http.StatusOK
		if status.LastCycle != nil && status.LastSuccessAt == nil {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, logger, code, status)
	}
}

func writeJSON(w http.ResponseWriter, logger *slog.Logger, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		logger.Error("failed to encode health response", slog.Any("error", err))
	}
}

// Serve runs srv until ctx is done or ListenAndServe fails, shutting down
// gracefully on cancellation.
func Serve(ctx context.Context, srv *http.Server, logger *slog.Logger, name string) error {
	errChan := make(chan error, 1)
	go func() {
		logger.Info(name+" server starting", slog.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil {
			errChan <- err
		}
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		logger.Info(name + " server shutting down")
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error(name+" server shutdown failed", slog.Any("error", err))
			return err
		}
		logger.Info(name + " server stopped")
		return http.ErrServerClosed

	case err := <-errChan:
		if !errors.Is(err, http.ErrServerClosed) {
			logger.Error(name+" server failed", slog.Any("error", err))
		}
		return err
	}
}
