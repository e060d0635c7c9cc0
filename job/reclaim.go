package job

import (
	"context"
	"time"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/prometheus"
)

const reclaimLimit = 500

type StaleReclaimer interface {
	ReclaimStale(ctx context.Context, olderThan time.Time, limit int) (int64, error)
}

// Reclaim returns outbox records stuck in PUBLISHING for longer than
// staleAfter to PENDING. The relay runs it periodically and it can also be
// started as a one-shot job.
type Reclaim struct {
	r          StaleReclaimer
	staleAfter time.Duration
	limit      int
	SidecarQuitter
}

func NewReclaim(r StaleReclaimer, staleAfter time.Duration) *Reclaim {
	return &Reclaim{
		r:          r,
		staleAfter: staleAfter,
		limit:      reclaimLimit,
	}
}

func RunReclaim(ctx context.Context, r StaleReclaimer, cfg *config.Config) int {
	if !cfg.ReclaimEnabled() {
		log.Logger.Warn("reclaiming is disabled, STALE_PUBLISHING_MS is 0")
		return 0
	}

	j := NewReclaim(r, cfg.GetStalePublishingDuration())
	j.SidecarQuitter = defaultSidecarQuitter(cfg)

	_, err := j.Execute(ctx)
	return exitCode(err)
}

// Execute keeps reclaiming in chunks of limit until a chunk comes back short.
func (j *Reclaim) Execute(ctx context.Context) (int64, error) {
	total, err := j.reclaim(ctx)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst reclaiming stale outbox records")
	} else if total > 0 {
		log.Logger.Warnf("reclaimed %d outbox records stuck in PUBLISHING", total)
	}

	if err = j.quitIfEnabled(err); err != nil {
		return total, err
	}

	return total, nil
}

// Tick adapts Execute to a poller.
func (j *Reclaim) Tick(ctx context.Context) error {
	_, err := j.Execute(ctx)
	return err
}

func (j *Reclaim) reclaim(ctx context.Context) (int64, error) {
	olderThan := time.Now().UTC().Add(-j.staleAfter)

	var total int64
	for {
		n, err := j.r.ReclaimStale(ctx, olderThan, j.limit)
		if err != nil {
			return total, err
		}
		total += n
		prometheus.RecordReclaimed(n)

		if n < int64(j.limit) || ctx.Err() != nil {
			return total, nil
		}
	}
}
