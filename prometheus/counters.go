package prometheus

import (
	"time"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	OutcomePublished = "published"
	OutcomeRetried   = "retried"
	OutcomeDead      = "dead"
	OutcomeSent      = "sent"
	OutcomeFailed    = "failed"
)

var (
	outboxRecords = promauto.NewCounterVec(prom.CounterOpts{
		Name: "outbox_relay_records_total",
		Help: "The number of outbox records processed, by outcome",
	}, []string{"outcome"})
	notifications = promauto.NewCounterVec(prom.CounterOpts{
		Name: "outbox_relay_notifications_total",
		Help: "The number of notifications dispatched, by channel and outcome",
	}, []string{"channel", "outcome"})
	reclaimedRecords = promauto.NewCounter(prom.CounterOpts{
		Name: "outbox_relay_reclaimed_records_total",
		Help: "The number of stale PUBLISHING records handed back to the queue",
	})
	tickDuration = promauto.NewHistogramVec(prom.HistogramOpts{
		Name:    "outbox_relay_tick_duration_seconds",
		Help:    "The time taken by one claim, deliver and commit cycle",
		Buckets: prom.DefBuckets,
	}, []string{"loop"})
)

func RecordOutboxOutcome(outcome string, n int) {
	if n > 0 {
		outboxRecords.WithLabelValues(outcome).Add(float64(n))
	}
}

func RecordNotificationOutcome(channel, outcome string, n int) {
	if n > 0 {
		notifications.WithLabelValues(channel, outcome).Add(float64(n))
	}
}

func RecordReclaimed(n int64) {
	if n > 0 {
		reclaimedRecords.Add(float64(n))
	}
}

func ObserveTickDuration(loop string, d time.Duration) {
	tickDuration.WithLabelValues(loop).Observe(d.Seconds())
}
