package poller

import (
	"context"
	"time"

	"careplatform/outbox-relay/log"
)

// TickFunc runs one claim, deliver and commit cycle.
type TickFunc func(ctx context.Context) error

type Poller interface {
	Poll(ctx context.Context, delay time.Duration)
}

func New(name string, tick TickFunc) Poller {
	return &fixedDelayPoller{
		name: name,
		tick: tick,
	}
}

type fixedDelayPoller struct {
	name string
	tick TickFunc
}

// Poll runs tick until ctx is cancelled, waiting delay after each tick ends.
// Ticks never overlap, and an error only ends the current tick.
func (p fixedDelayPoller) Poll(ctx context.Context, delay time.Duration) {
	logger := log.Logger.WithField("poller", p.name)

	for {
		if err := p.tick(ctx); err != nil {
			logger.WithError(err).Errorf("an unexpected error occurred when polling: %s", err)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(delay):
		}
	}
}
