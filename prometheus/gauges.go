package prometheus

import (
	"context"
	"time"

	"careplatform/outbox-relay/log"

	prom "github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	observeInterval = time.Second * 1

	outboxQueueSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "outbox_relay_queue_size",
		Help: "The current size of the outbox (all unpublished records)",
	})
	outboxTotalSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "outbox_relay_total_size",
		Help: "The total size of the outbox (all records)",
	})
	outboxOverAttemptsSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "outbox_relay_over_attempts_size",
		Help: "The number of unpublished records that reached the delivery attempts alert threshold",
	})
	notificationQueueSize = promauto.NewGauge(prom.GaugeOpts{
		Name: "outbox_relay_notification_queue_size",
		Help: "The current number of pending notifications",
	})
)

func ObserveQueueSize(ctx context.Context, sizer queueSizer) {
	observe(ctx, outboxQueueSize, "the outbox queue", sizer.GetQueueSize)
}

func ObserveTotalSize(ctx context.Context, sizer totalSizer) {
	observe(ctx, outboxTotalSize, "the outbox", sizer.GetTotalSize)
}

func ObserveOverAttemptsSize(ctx context.Context, sizer overAttemptsSizer, threshold int) {
	observe(ctx, outboxOverAttemptsSize, "the records over the attempts threshold", func() (uint, error) {
		return sizer.GetOverAttemptsSize(threshold)
	})
}

func ObserveNotificationQueueSize(ctx context.Context, sizer queueSizer) {
	observe(ctx, notificationQueueSize, "the notification queue", sizer.GetQueueSize)
}

// ObserveAll starts one observer goroutine per gauge.
func ObserveAll(ctx context.Context, outbox Sizer, notifications queueSizer, threshold int) {
	go ObserveQueueSize(ctx, outbox)
	go ObserveTotalSize(ctx, outbox)
	go ObserveOverAttemptsSize(ctx, outbox, threshold)
	go ObserveNotificationQueueSize(ctx, notifications)
}

func observe(ctx context.Context, gauge prom.Gauge, what string, size func() (uint, error)) {
	for {
		n, err := size()
		if err != nil {
			log.Logger.WithError(err).Errorf("an error occurred determining the size of %s", what)
		} else {
			gauge.Set(float64(n))
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(observeInterval):
		}
	}
}
