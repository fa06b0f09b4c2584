package announce

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// announcementsTotal tracks announcement results
	announcementsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workshop_announcements_total",
			Help: "Total number of item announcements by result",
		},
		[]string{"status"}, // status: success|failure
	)

	// announceDuration tracks how long a single send took, including retries
	announceDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "workshop_announce_duration_seconds",
			Help:    "Announcement send duration in seconds",
			Buckets: []float64{0.1, 0.5, 1, 5, 10, 30},
		},
	)
)

// RecordSuccess records a delivered announcement.
func RecordSuccess(duration time.Duration) {
	announcementsTotal.WithLabelValues("success").Inc()
	announceDuration.Observe(duration.Seconds())
}

// RecordFailure records an announcement that could not be delivered.
func RecordFailure(duration time.Duration) {
	announcementsTotal.WithLabelValues("failure").Inc()
	announceDuration.Observe(duration.Seconds())
}
