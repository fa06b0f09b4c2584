package worker

import (
	"fmt"
	"log/slog"
	"time"

	"workshop-announcer/internal/pkg/config"
)

// WorkerConfig holds the process level settings read from the environment.
// Catalog and Discord settings live in the YAML file instead.
type WorkerConfig struct {
	// DetailMaxConcurrent bounds parallel detail page fetches (DETAIL_MAX_CONCURRENT)
	DetailMaxConcurrent int

	// RequestTimeout applies to each outbound HTTP request (REQUEST_TIMEOUT)
	RequestTimeout time.Duration

	// CycleTimeout bounds one poll cycle end to end (CYCLE_TIMEOUT)
	CycleTimeout time.Duration

	// HealthPort serves liveness and readiness checks (WORKER_HEALTH_PORT)
	HealthPort int

	// MetricsPort serves /metrics and poller status (METRICS_PORT)
	MetricsPort int

	// DryRun logs announcements instead of posting them (DRY_RUN)
	DryRun bool
}

// DefaultConfig returns the settings used when no environment is set.
func DefaultConfig() *WorkerConfig {
	return &WorkerConfig{
		DetailMaxConcurrent: 4,
		RequestTimeout:      20 * time.Second,
		CycleTimeout:        10 * time.Minute,
		HealthPort:          9091,
		MetricsPort:         9090,
		DryRun:              false,
	}
}

// Validate checks every field against its allowed range.
func (c *WorkerConfig) Validate() error {
	if err := config.ValidateIntRange(c.DetailMaxConcurrent, 1, 16); err != nil {
		return fmt.Errorf("detail_max_concurrent: %w", err)
	}
	if err := config.ValidateDuration(c.RequestTimeout, time.Second, 2*time.Minute); err != nil {
		return fmt.Errorf("request_timeout: %w", err)
	}
	if err := config.ValidateDuration(c.CycleTimeout, 30*time.Second, time.Hour); err != nil {
		return fmt.Errorf("cycle_timeout: %w", err)
	}
	if err := config.ValidatePort(c.HealthPort); err != nil {
		return fmt.Errorf("health_port: %w", err)
	}
	if err := config.ValidatePort(c.MetricsPort); err != nil {
		return fmt.Errorf("metrics_port: %w", err)
	}
	if c.HealthPort == c.MetricsPort {
		return fmt.Errorf("health_port and metrics_port must differ: both %d", c.HealthPort)
	}
	return nil
}

// LoadConfigFromEnv reads WorkerConfig from the environment. Invalid values
// never fail startup: each one falls back to its default, is logged as a
// warning and is counted in metrics.
func LoadConfigFromEnv(logger *slog.Logger, metrics *WorkerMetrics) (*WorkerConfig, error) {
	defaults := DefaultConfig()
	cfg := &WorkerConfig{}
	fallback := false

	note := func(field string, applied bool, warnings []string) {
		if !applied {
			return
		}
		fallback = true
		metrics.RecordFallback(field)
		for _, w := range warnings {
			logger.Warn("Configuration fallback applied",
				slog.String("field", field),
				slog.String("warning", w))
		}
	}

	concurrency := config.LoadEnvInt("DETAIL_MAX_CONCURRENT", defaults.DetailMaxConcurrent, func(v int) error {
		return config.ValidateIntRange(v, 1, 16)
	})
	cfg.DetailMaxConcurrent = concurrency.Value
	note("detail_max_concurrent", concurrency.FallbackApplied, concurrency.Warnings)

	requestTimeout := config.LoadEnvDuration("REQUEST_TIMEOUT", defaults.RequestTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, time.Second, 2*time.Minute)
	})
	cfg.RequestTimeout = requestTimeout.Value
	note("request_timeout", requestTimeout.FallbackApplied, requestTimeout.Warnings)

	cycleTimeout := config.LoadEnvDuration("CYCLE_TIMEOUT", defaults.CycleTimeout, func(d time.Duration) error {
		return config.ValidateDuration(d, 30*time.Second, time.Hour)
	})
	cfg.CycleTimeout = cycleTimeout.Value
	note("cycle_timeout", cycleTimeout.FallbackApplied, cycleTimeout.Warnings)

	healthPort := config.LoadEnvInt("WORKER_HEALTH_PORT", defaults.HealthPort, config.ValidatePort)
	cfg.HealthPort = healthPort.Value
	note("health_port", healthPort.FallbackApplied, healthPort.Warnings)

	metricsPort := config.LoadEnvInt("METRICS_PORT", defaults.MetricsPort, config.ValidatePort)
	cfg.MetricsPort = metricsPort.Value
	note("metrics_port", metricsPort.FallbackApplied, metricsPort.Warnings)

	if cfg.HealthPort == cfg.MetricsPort {
		logger.Warn("Configuration fallback applied",
			slog.String("field", "ports"),
			slog.String("warning", fmt.Sprintf("health and metrics ports collide on %d, using defaults", cfg.HealthPort)))
		cfg.HealthPort, cfg.MetricsPort = defaults.HealthPort, defaults.MetricsPort
		fallback = true
		metrics.RecordFallback("ports")
	}

	dryRun := config.LoadEnvBool("DRY_RUN", defaults.DryRun)
	cfg.DryRun = dryRun.Value
	note("dry_run", dryRun.FallbackApplied, dryRun.Warnings)

	metrics.SetFallbackActive(fallback)
	metrics.RecordLoadTimestamp()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("worker config: %w", err)
	}
	return cfg, nil
}
