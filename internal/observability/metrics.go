package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	snapshotPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "ranking_service",
		Subsystem: "persistence",
		Name:      "last_snapshot_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent snapshot write.",
	})
	submissionTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "ranking_service",
		Subsystem: "lifecycle",
		Name:      "submission_transitions_total",
		Help:      "Submission state transitions, labeled by resulting status.",
	}, []string{"status"})
	attachmentReleaseFailures = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "ranking_service",
		Subsystem: "lifecycle",
		Name:      "attachment_release_failures_total",
		Help:      "Attachment deletes that failed inline and were left to the janitor.",
	})
	rankingDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: "ranking_service",
		Subsystem: "ranking",
		Name:      "compute_duration_seconds",
		Help:      "Time spent recomputing the ranking from a snapshot.",
		Buckets:   prometheus.ExponentialBuckets(0.0001, 2, 12),
	})
)

func init() {
	prometheus.MustRegister(snapshotPersistGauge, submissionTransitions, attachmentReleaseFailures, rankingDuration)
}

// RecordSnapshotPersisted updates the persistence watermark gauge.
func RecordSnapshotPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	snapshotPersistGauge.Set(float64(ts.Unix()))
}

// RecordTransition counts a submission moving into status.
func RecordTransition(status string) {
	submissionTransitions.WithLabelValues(status).Inc()
}

// RecordAttachmentReleaseFailure counts an inline attachment delete that failed.
func RecordAttachmentReleaseFailure() {
	attachmentReleaseFailures.Inc()
}

// ObserveRanking records how long a ranking computation took.
func ObserveRanking(d time.Duration) {
	rankingDuration.Observe(d.Seconds())
}
