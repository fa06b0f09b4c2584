package worker

import (
	"workshop-announcer/internal/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// WorkerMetrics embeds the worker_config_* metrics and adds process level
// gauges. Poll cycle metrics are owned by the watch package.
type WorkerMetrics struct {
	*config.ConfigMetrics

	// Ready is 1 once startup finished and the poll loop is running
	Ready prometheus.Gauge

	// StartTimestamp is the Unix time the process started
	StartTimestamp prometheus.Gauge

	// DryRun is 1 when announcements are logged instead of posted
	DryRun prometheus.Gauge
}

// NewWorkerMetrics creates and registers the worker metrics. It must be called
// at most once per process.
func NewWorkerMetrics() *WorkerMetrics {
	return &WorkerMetrics{
		ConfigMetrics: config.NewConfigMetrics("worker"),
		Ready: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_ready",
			Help: "1 if the worker finished startup and is polling, 0 otherwise",
		}),
		StartTimestamp: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_start_timestamp",
			Help: "Unix timestamp of worker process start",
		}),
		DryRun: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "worker_dry_run",
			Help: "1 if announcements are logged instead of sent to Discord",
		}),
	}
}

// RecordStart marks process start and the dry-run mode.
func (m *WorkerMetrics) RecordStart(dryRun bool) {
	m.StartTimestamp.SetToCurrentTime()
	if dryRun {
		m.DryRun.Set(1)
	} else {
		m.DryRun.Set(0)
	}
}

// SetReady updates the readiness gauge.
func (m *WorkerMetrics) SetReady(ready bool) {
	if ready {
		m.Ready.Set(1)
		return
	}
	m.Ready.Set(0)
}
