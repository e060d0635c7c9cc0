package poller

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	nr "github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/job"
	"careplatform/outbox-relay/kafka"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/notification"
	"careplatform/outbox-relay/outbox"
	"careplatform/outbox-relay/outbox/processor"
)

// relay holds every loop a running relay polls with.
type relay struct {
	publishers  []processor.OutboxPublisher
	dispatchers []notification.Dispatcher
	reclaim     *job.Reclaim
}

// Start builds the outbox publishers, one dispatcher per configured
// notification channel and the stale claim reclaimer, and polls each of them
// until ctx is cancelled. The returned func waits for the loops to finish
// their current tick and then closes the broker connection, so it must only
// be called once ctx is cancelled.
func Start(ctx context.Context, cfg *config.Config, db *sql.DB, nrApp *nr.Application) (func(), error) {
	logger := log.Logger.WithField("config", cfg)

	if cfg.PollingDisabled {
		logger.Info("starting outbox relay in simulate mode, not polling")
		return func() {}, nil
	}

	logger.Info("starting outbox relay polling")

	pub, err := kafka.NewPublisher(cfg.KafkaHost, kafka.NewSaramaConfig(cfg.TLSEnable, cfg.TLSSkipVerifyPeer), cfg.KafkaTopic, cfg.KafkaInAppTopic)
	if err != nil {
		return nil, err
	}
	closePublisher := func() {
		if err := pub.Close(); err != nil {
			log.Logger.WithError(err).Error("error closing kafka publisher during shutdown")
		}
	}

	senders, err := newSenders(cfg, pub)
	if err != nil {
		closePublisher()
		return nil, err
	}

	r, err := newRelay(cfg, outbox.NewRepository(db, cfg), pub, notification.NewRepository(db, cfg), senders, nrApp)
	if err != nil {
		closePublisher()
		return nil, err
	}

	return stopAfter(r.run(ctx, cfg), closePublisher), nil
}

func stopAfter(loops *sync.WaitGroup, closeFn func()) func() {
	return func() {
		loops.Wait()
		closeFn()
	}
}

func newSenders(cfg *config.Config, pub *kafka.Publisher) (notification.Senders, error) {
	senders := notification.Senders{}
	for _, ch := range cfg.NotificationChannels {
		switch ch {
		case config.ChannelEmail:
			s, err := notification.NewEmailSender(cfg)
			if err != nil {
				return nil, err
			}
			senders[ch] = s
		case config.ChannelInApp:
			senders[ch] = pub
		}
	}
	return senders, nil
}

type outboxRepository interface {
	processor.Repository
	job.StaleReclaimer
}

func newRelay(
	cfg *config.Config,
	records outboxRepository,
	deliverer outbox.Deliverer,
	notifications notification.Repository,
	senders notification.Senders,
	nrApp *nr.Application,
) (relay, error) {
	var r relay
	for i := 0; i < cfg.WriteConcurrency; i++ {
		r.publishers = append(r.publishers, processor.NewOutboxPublisher(records, deliverer, cfg.BatchSize, nrApp))
	}

	for _, ch := range cfg.NotificationChannels {
		s, err := senders.For(ch)
		if err != nil {
			return relay{}, errors.Wrapf(err, "channel %s", ch)
		}
		r.dispatchers = append(r.dispatchers, notification.NewDispatcher(notifications, ch, s, cfg.NotificationBatchSize, nrApp))
	}

	if cfg.ReclaimEnabled() {
		r.reclaim = job.NewReclaim(records, cfg.GetStalePublishingDuration())
	}

	return r, nil
}

func (r relay) run(ctx context.Context, cfg *config.Config) *sync.WaitGroup {
	var wg sync.WaitGroup
	poll := func(p Poller, delay time.Duration) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			p.Poll(ctx, delay)
		}()
	}

	for i, p := range r.publishers {
		poll(New(fmt.Sprintf("outbox-%d", i), publisherTick(p)), cfg.GetDelayDuration())
	}

	for _, d := range r.dispatchers {
		poll(New("notification-"+d.Channel(), dispatcherTick(d)), cfg.GetNotificationDelayDuration())
	}

	if r.reclaim != nil {
		poll(New("reclaim", r.reclaim.Tick), cfg.GetReclaimIntervalDuration())
	}

	return &wg
}

func publisherTick(p processor.OutboxPublisher) TickFunc {
	return func(ctx context.Context) error {
		_, err := p.Tick(ctx)
		return err
	}
}

func dispatcherTick(d notification.Dispatcher) TickFunc {
	return func(ctx context.Context) error {
		_, err := d.Tick(ctx)
		return err
	}
}
