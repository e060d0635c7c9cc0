package job

import (
	"context"
	"errors"
	"time"
)

type mockNotificationRepository struct {
	deleted     int64
	retried     int64
	returnError bool
	retryLimit  int
}

func (m *mockNotificationRepository) DeleteSent(olderThan time.Time) (int64, error) {
	if m.returnError {
		return 0, errors.New("oops")
	}
	return m.deleted, nil
}

func (m *mockNotificationRepository) RetryFailed(ctx context.Context, limit int) (int64, error) {
	if m.returnError {
		return 0, errors.New("oops")
	}
	m.retryLimit = limit
	return m.retried, nil
}

// chunkedReclaimer hands out remaining stale records limit at a time.
type chunkedReclaimer struct {
	remaining int64
	calls     int
	olderThan time.Time
}

func (c *chunkedReclaimer) ReclaimStale(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	c.calls++
	c.olderThan = olderThan

	n := c.remaining
	if n > int64(limit) {
		n = int64(limit)
	}
	c.remaining -= n
	return n, nil
}
