package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	completionPersistGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "habit_service",
		Subsystem: "persistence",
		Name:      "last_completion_persisted_timestamp_seconds",
		Help:      "Unix timestamp of the most recent completion log persisted to Postgres.",
	})
	streakRecomputeGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "habit_service",
		Subsystem: "persistence",
		Name:      "last_streak_recompute_timestamp_seconds",
		Help:      "Unix timestamp of the most recent streak recompute written back to a habit.",
	})
	streakRecomputeCounter = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "habit_service",
		Subsystem: "persistence",
		Name:      "streak_recomputes_total",
		Help:      "Number of streak recomputations persisted onto habits.",
	})
)

func init() {
	prometheus.MustRegister(completionPersistGauge, streakRecomputeGauge, streakRecomputeCounter)
}

// RecordCompletionPersisted updates the persistence watermark gauge.
func RecordCompletionPersisted(ts time.Time) {
	if ts.IsZero() {
		return
	}
	completionPersistGauge.Set(float64(ts.Unix()))
}

// RecordStreakRecomputed updates the streak recompute watermark and counter.
func RecordStreakRecomputed(ts time.Time) {
	if ts.IsZero() {
		return
	}
	streakRecomputeGauge.Set(float64(ts.Unix()))
	streakRecomputeCounter.Inc()
}
