package notification

import (
	"context"
	"database/sql"
	"time"

	"careplatform/outbox-relay/claim"
	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/lifecycle"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/outbox"
	s "careplatform/outbox-relay/outbox/data/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var (
	ErrClaimLost = errors.New("notification: notification is no longer held by this claim")

	columns = []string{"id", "channel", "recipient", "subject", "body", "status", "created_at", "sent_at", "error_message"}
)

type Batch = claim.Batch[*Notification]

type queryProvider interface {
	insertProvider
	ClaimSql(batchSize int) string
	MarkSentSql() string
	MarkFailedSql() string
	RetryFailedSql(limit int) string
	DeleteSentSql() string
	GetQueueSizeSql() string
}

type Repository struct {
	db            *sql.DB
	queryProvider queryProvider
	claimer       claim.Claimer[*Notification]
}

func NewRepository(db *sql.DB, cfg *config.Config) Repository {
	return NewRepositoryWithQueryProvider(db, newQueryProvider(cfg.DBDriver, cfg.DBNotificationTable, columns))
}

func NewRepositoryWithQueryProvider(db *sql.DB, qp queryProvider) Repository {
	return Repository{
		db:            db,
		queryProvider: qp,
		claimer:       claim.New[*Notification](db, scanNotification),
	}
}

// ClaimBatch locks up to size PENDING notifications of one channel, oldest
// first. Rows locked by another dispatcher are skipped.
func (r Repository) ClaimBatch(ctx context.Context, channel string, size int) (*Batch, error) {
	b, err := r.claimer.Claim(ctx, claim.Statement{
		Query: r.queryProvider.ClaimSql(size),
		Args:  []interface{}{string(StatusPending), channel},
	})
	if err != nil {
		return nil, &outbox.PersistenceError{Op: "notification claim", Err: err}
	}

	return b, nil
}

func (r Repository) MarkSent(ctx context.Context, b *Batch, n *Notification) error {
	if err := r.update(ctx, b, n, StatusSent, r.queryProvider.MarkSentSql(), string(StatusSent), uint64(n.Id), string(StatusPending)); err != nil {
		return err
	}

	n.SentAt = sql.NullTime{Time: time.Now(), Valid: true}
	n.ErrorMessage = sql.NullString{}

	return nil
}

// MarkFailed parks the notification in FAILED with the reason, sent_at is
// left empty.
func (r Repository) MarkFailed(ctx context.Context, b *Batch, n *Notification, cause error) error {
	reason := cause.Error()
	if err := r.update(ctx, b, n, StatusFailed, r.queryProvider.MarkFailedSql(), string(StatusFailed), reason, uint64(n.Id), string(StatusPending)); err != nil {
		return err
	}

	n.ErrorMessage = sql.NullString{String: reason, Valid: true}

	return nil
}

func (r Repository) CommitBatch(b *Batch) error {
	if err := b.Commit(); err != nil {
		r.ReleaseBatch(b)
		return &outbox.PersistenceError{Op: "notification commit", Err: err}
	}

	return nil
}

func (r Repository) ReleaseBatch(b *Batch) {
	if err := b.Rollback(); err != nil {
		log.Logger.WithField("batch_id", b.Id.String()).Errorf("error rolling back the notification claim transaction: %s", err)
	}
}

// RetryFailed resubmits up to limit FAILED notifications.
func (r Repository) RetryFailed(ctx context.Context, limit int) (int64, error) {
	if err := Lifecycle.Validate(StatusFailed, StatusPending); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.queryProvider.RetryFailedSql(limit), string(StatusPending), string(StatusFailed))
	if err != nil {
		return 0, &outbox.PersistenceError{Op: "notification retry", Err: err}
	}

	return res.RowsAffected()
}

func (r Repository) DeleteSent(olderThan time.Time) (int64, error) {
	res, err := r.db.Exec(r.queryProvider.DeleteSentSql(), string(StatusSent), olderThan.UTC())
	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// GetQueueSize counts the PENDING notifications of every channel.
func (r Repository) GetQueueSize() (uint, error) {
	var count uint
	if err := r.db.QueryRow(r.queryProvider.GetQueueSizeSql(), string(StatusPending)).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r Repository) update(ctx context.Context, b *Batch, n *Notification, to lifecycle.Status, q string, args ...interface{}) error {
	from := n.Status
	if err := Lifecycle.Validate(from, to); err != nil {
		return err
	}

	log.Logger.WithFields(logrus.Fields{
		"batch_id":        b.Id.String(),
		"notification_id": n.Id,
		"status":          to,
	}).Debug("updating notification")

	affected, err := b.Exec(ctx, q, args...)
	if err != nil {
		return &outbox.PersistenceError{Op: "notification mark " + string(to), Err: err}
	}

	if affected != 1 {
		return errors.Wrapf(ErrClaimLost, "notification %d was not %s", n.Id, from)
	}

	n.Status = to

	return nil
}

func newQueryProvider(d config.DbDriver, table string, columns []string) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresNotificationQueryProvider{
			Table:   table,
			Columns: columns,
		}
	case d.MySQL():
		return &s.MysqlNotificationQueryProvider{
			Table:   table,
			Columns: columns,
		}
	}

	return nil
}
