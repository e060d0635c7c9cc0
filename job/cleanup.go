package job

import (
	"time"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
)

type PublishedDeleter interface {
	DeletePublished(olderThan time.Time) (int64, error)
}

type SentDeleter interface {
	DeleteSent(olderThan time.Time) (int64, error)
}

type cleanup struct {
	pd        PublishedDeleter
	sd        SentDeleter
	retention time.Duration
	SidecarQuitter
}

// RunCleanup deletes delivered outbox records and sent notifications that
// are older than the configured retention and returns the process exit code.
func RunCleanup(pd PublishedDeleter, sd SentDeleter, cfg *config.Config) int {
	j := newCleanup(pd, sd, cfg.GetRetentionDuration(), defaultSidecarQuitter(cfg))

	_, err := j.Execute()
	return exitCode(err)
}

func newCleanup(pd PublishedDeleter, sd SentDeleter, retention time.Duration, sq SidecarQuitter) *cleanup {
	return &cleanup{
		pd:             pd,
		sd:             sd,
		retention:      retention,
		SidecarQuitter: sq,
	}
}

// Execute returns the number of rows deleted across both tables. Both tables
// are cleaned even when the first one fails.
func (c *cleanup) Execute() (int64, error) {
	olderThan := time.Now().UTC().Add(-c.retention)
	var firstErr error

	published, err := c.pd.DeletePublished(olderThan)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst deleting published outbox records")
		firstErr = err
	} else {
		log.Logger.Infof("deleted %d published outbox records", published)
	}

	sent, err := c.sd.DeleteSent(olderThan)
	if err != nil {
		log.Logger.WithError(err).Error("an error occurred whilst deleting sent notifications")
		if firstErr == nil {
			firstErr = err
		}
	} else {
		log.Logger.Infof("deleted %d sent notifications", sent)
	}

	if err = c.quitIfEnabled(firstErr); err != nil {
		return 0, err
	}

	return published + sent, nil
}
