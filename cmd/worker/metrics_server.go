package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	workerPkg "workshop-announcer/internal/infra/worker"
	"workshop-announcer/internal/observability/tracing"
)

// newMetricsMux exposes:
//   - GET /metrics: Prometheus scrape endpoint
//   - GET /health: liveness, always 200
//   - GET /health/poller: detector and last cycle state, 503 while no cycle has succeeded
func newMetricsMux(logger *slog.Logger, poller workerPkg.StatusSource) http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"healthy"}` + "\n"))
	})
	mux.Handle("/health/poller", tracing.Middleware(workerPkg.PollerStatusHandler(poller, logger)))
	return mux
}

// startMetricsServer serves newMetricsMux on port in the background and
// shuts it down when ctx is cancelled.
func startMetricsServer(ctx context.Context, logger *slog.Logger, port int, poller workerPkg.StatusSource) *http.Server {
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", port),
		Handler:      newMetricsMux(logger, poller),
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	go func() {
		if err := workerPkg.Serve(ctx, server, logger, "metrics"); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("metrics server error", slog.Any("error", err))
		}
	}()

	return server
}
