package job

import (
	"context"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
)

type FailedRetrier interface {
	RetryFailed(ctx context.Context, limit int) (int64, error)
}

type retryFailed struct {
	outbox        FailedRetrier
	notifications FailedRetrier
	limit         int
	SidecarQuitter
}

// RunRetryFailed resubmits FAILED outbox records and notifications, up to
// RETRY_FAILED_LIMIT of each, oldest first.
func RunRetryFailed(ctx context.Context, outbox FailedRetrier, notifications FailedRetrier, cfg *config.Config) int {
	j := newRetryFailed(outbox, notifications, cfg.RetryFailedLimit, defaultSidecarQuitter(cfg))

	_, err := j.Execute(ctx)
	return exitCode(err)
}

func newRetryFailed(outbox FailedRetrier, notifications FailedRetrier, limit int, sq SidecarQuitter) *retryFailed {
	return &retryFailed{
		outbox:         outbox,
		notifications:  notifications,
		limit:          limit,
		SidecarQuitter: sq,
	}
}

func (j *retryFailed) Execute(ctx context.Context) (int64, error) {
	records, err := j.outbox.RetryFailed(ctx, j.limit)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst resubmitting failed outbox records")
		return 0, j.quitIfEnabled(err)
	}
	log.Logger.Infof("resubmitted %d failed outbox records", records)

	notifications, err := j.notifications.RetryFailed(ctx, j.limit)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst resubmitting failed notifications")
		return records, j.quitIfEnabled(err)
	}
	log.Logger.Infof("resubmitted %d failed notifications", notifications)

	return records + notifications, j.quitIfEnabled(nil)
}
