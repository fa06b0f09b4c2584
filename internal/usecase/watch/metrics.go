package watch

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// cyclesTotal tracks poll cycles by outcome
	cyclesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_poll_cycles_total",
			Help: "Total number of poll cycles by status",
		},
		[]string{"status"}, // primed|priming|completed|skipped|canceled|timed_out
	)

	// cycleDuration tracks the wall time of one cycle
	cycleDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workshop_poll_cycle_duration_seconds",
			Help:    "Duration of a poll cycle in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 30, 60, 120, 300},
		},
	)

	// snapshotItems is the size of the last catalog snapshot
	snapshotItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshop_snapshot_items",
			Help: "Number of item ids on the last fetched listing page",
		},
	)

	// newItemsTotal counts items detected as new
	newItemsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "workshop_new_items_total",
			Help: "Total number of newly detected catalog items",
		},
	)

	// seenItems is the size of the seen set
	seenItems = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshop_seen_items",
			Help: "Number of item ids in the seen set",
		},
	)

	// itemFailuresTotal counts per-item failures by stage and error kind
	itemFailuresTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_item_failures_total",
			Help: "Total number of items that could not be announced",
		},
		[]string{"stage", "kind"}, // stage: detail|announce
	)

	// lastSuccessTimestamp is the finish time of the last successful cycle
	lastSuccessTimestamp = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "workshop_poll_last_success_timestamp_seconds",
			Help: "Unix timestamp of the last successful poll cycle",
		},
	)
)

func recordCycle(r CycleReport, seen int) {
	cyclesTotal.WithLabelValues(r.Status).Inc()
	cycleDuration.Observe(r.FinishedAt.Sub(r.StartedAt).Seconds())
	seenItems.Set(float64(seen))

	if r.Status == CycleStatusSkipped || r.Status == CycleStatusCanceled {
		return
	}
	snapshotItems.Set(float64(r.SnapshotSize))
	newItemsTotal.Add(float64(r.NewItems))
	if r.Status == CycleStatusPrimed || r.Status == CycleStatusCompleted {
		lastSuccessTimestamp.Set(float64(r.FinishedAt.Unix()))
	}
}

func recordItemFailure(stage string, err error) {
	itemFailuresTotal.WithLabelValues(stage, errorKind(err)).Inc()
}
