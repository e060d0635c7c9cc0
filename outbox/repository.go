package outbox

import (
	"context"
	"database/sql"
	"time"

	"careplatform/outbox-relay/claim"
	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/log"
	s "careplatform/outbox-relay/outbox/data/sql"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// ReclaimedReason is stored as last_error on records moved back to PENDING by
// the stale sweep.
const ReclaimedReason = "reclaimed: publishing claim went stale"

var columns = []string{"id", "aggregate_type", "aggregate_id", "event_type", "payload", "headers", "status", "attempts", "last_error", "created_at", "updated_at", "published_at"}

// Batch is a claimed set of outbox records, see package claim.
type Batch = claim.Batch[*Record]

type queryProvider interface {
	insertProvider
	ClaimSql(batchSize int) string
	StatusTransitionSql(idCount int) string
	MessagePublishedSql() string
	MessageErroredUpdateSql() string
	ReclaimStaleSql(limit int) string
	RetryFailedSql(limit int) string
	DeletePublishedMessagesSql() string
	GetQueueSizeSql() string
	GetTotalSizeSql() string
	GetOverAttemptsSizeSql() string
}

type Repository struct {
	db            *sql.DB
	cfg           *config.Config
	queryProvider queryProvider
	claimer       claim.Claimer[*Record]
}

func NewRepository(db *sql.DB, cfg *config.Config) Repository {
	return NewRepositoryWithQueryProvider(db, cfg, newQueryProvider(cfg.DBDriver, cfg.DBOutboxTable, columns))
}

func NewRepositoryWithQueryProvider(db *sql.DB, cfg *config.Config, qp queryProvider) Repository {
	return Repository{
		db:            db,
		cfg:           cfg,
		queryProvider: qp,
		claimer:       claim.New[*Record](db, scanRecord),
	}
}

// ClaimBatch locks up to size PENDING records, oldest first, skipping rows
// another claimer holds, and moves them to PUBLISHING inside the claiming
// transaction. Until the batch is committed other readers still see the rows
// as PENDING but cannot lock them. An empty batch is not an error.
func (r Repository) ClaimBatch(ctx context.Context, size int) (*Batch, error) {
	b, err := r.claimer.Claim(ctx, claim.Statement{
		Query: r.queryProvider.ClaimSql(size),
		Args:  []interface{}{string(StatusPending)},
	})
	if err != nil {
		return nil, &PersistenceError{Op: "claim", Err: err}
	}

	if b.Empty() {
		return b, nil
	}

	args := []interface{}{string(StatusPublishing), string(StatusPending)}
	for _, rec := range b.Items {
		if err := rec.transition(StatusPublishing); err != nil {
			r.rollback(b)
			return nil, err
		}
		args = append(args, uint64(rec.Id))
	}

	n, err := b.Exec(ctx, r.queryProvider.StatusTransitionSql(b.Len()), args...)
	if err != nil {
		r.rollback(b)
		return nil, &PersistenceError{Op: "mark publishing", Err: err}
	}

	if n != int64(b.Len()) {
		r.rollback(b)
		return nil, errors.Wrapf(ErrClaimLost, "marked %d of %d claimed records as %s", n, b.Len(), StatusPublishing)
	}

	log.Logger.WithFields(logrus.Fields{
		"batch_id":    b.Id.String(),
		"num_records": b.Len(),
	}).Debug("claimed outbox batch")

	return b, nil
}

// MarkPublished records a successful delivery.
func (r Repository) MarkPublished(ctx context.Context, b *Batch, rec *Record) error {
	return r.update(ctx, b, rec, StatusPublished, r.queryProvider.MessagePublishedSql(), string(StatusPublished), uint64(rec.Id), string(StatusPublishing))
}

// MarkFailed records a failed delivery and hands the record back to the
// queue, it is retried on a later tick.
func (r Repository) MarkFailed(ctx context.Context, b *Batch, rec *Record, cause error) error {
	reason := cause.Error()
	err := r.update(ctx, b, rec, StatusPending, r.queryProvider.MessageErroredUpdateSql(), string(StatusPending), reason, uint64(rec.Id), string(StatusPublishing))
	if err == nil {
		rec.LastError = sql.NullString{String: reason, Valid: true}
	}
	return err
}

// MarkDead parks a record that can never be delivered in FAILED, only an
// explicit retry brings it back.
func (r Repository) MarkDead(ctx context.Context, b *Batch, rec *Record, cause error) error {
	reason := cause.Error()
	err := r.update(ctx, b, rec, StatusFailed, r.queryProvider.MessageErroredUpdateSql(), string(StatusFailed), reason, uint64(rec.Id), string(StatusPublishing))
	if err == nil {
		rec.LastError = sql.NullString{String: reason, Valid: true}
	}
	return err
}

// CommitBatch persists the status updates made on the batch and releases its
// row locks. When the commit fails the updates are lost and every record is
// PENDING again.
func (r Repository) CommitBatch(b *Batch) error {
	log.Logger.WithFields(logrus.Fields{
		"batch_id":    b.Id.String(),
		"num_records": b.Len(),
	}).Debug("committing outbox batch")

	if err := b.Commit(); err != nil {
		r.rollback(b)
		return &PersistenceError{Op: "commit batch", Err: err}
	}

	return nil
}

// ReleaseBatch abandons the batch, every record returns to PENDING untouched.
func (r Repository) ReleaseBatch(b *Batch) {
	r.rollback(b)
}

// ReclaimStale moves records stuck in PUBLISHING since before olderThan back
// to PENDING. A record only gets stuck when a batch committed without its
// final status update. Stored timestamps are UTC, so is the cut-off.
func (r Repository) ReclaimStale(ctx context.Context, olderThan time.Time, limit int) (int64, error) {
	if err := Lifecycle.Validate(StatusPublishing, StatusPending); err != nil {
		return 0, err
	}

	q := r.queryProvider.ReclaimStaleSql(limit)
	res, err := r.db.ExecContext(ctx, q, string(StatusPending), ReclaimedReason, string(StatusPublishing), olderThan.UTC())
	if err != nil {
		return 0, &PersistenceError{Op: "reclaim stale", Err: err}
	}

	return res.RowsAffected()
}

// RetryFailed resubmits up to limit FAILED records, oldest first.
func (r Repository) RetryFailed(ctx context.Context, limit int) (int64, error) {
	if err := Lifecycle.Validate(StatusFailed, StatusPending); err != nil {
		return 0, err
	}

	res, err := r.db.ExecContext(ctx, r.queryProvider.RetryFailedSql(limit), string(StatusPending), string(StatusFailed))
	if err != nil {
		return 0, &PersistenceError{Op: "retry failed", Err: err}
	}

	return res.RowsAffected()
}

func (r Repository) DeletePublished(olderThan time.Time) (int64, error) {
	q := r.queryProvider.DeletePublishedMessagesSql()
	res, err := r.db.Exec(q, string(StatusPublished), olderThan.UTC())

	if err != nil {
		return 0, err
	}

	return res.RowsAffected()
}

// GetQueueSize counts the records not yet published.
func (r Repository) GetQueueSize() (uint, error) {
	return r.count(r.queryProvider.GetQueueSizeSql(), string(StatusPublished))
}

func (r Repository) GetTotalSize() (uint, error) {
	return r.count(r.queryProvider.GetTotalSizeSql())
}

// GetOverAttemptsSize counts unpublished records that failed at least
// threshold times. Nothing stops such records from being retried, the count
// only feeds alerting.
func (r Repository) GetOverAttemptsSize(threshold int) (uint, error) {
	return r.count(r.queryProvider.GetOverAttemptsSizeSql(), string(StatusPublished), threshold)
}

func (r Repository) update(ctx context.Context, b *Batch, rec *Record, to Status, q string, args ...interface{}) error {
	from := rec.Status
	if err := Lifecycle.Validate(from, to); err != nil {
		return err
	}

	log.Logger.WithFields(logrus.Fields{
		"batch_id":  b.Id.String(),
		"record_id": rec.Id,
		"status":    to,
	}).Debug("updating outbox record")

	n, err := b.Exec(ctx, q, args...)
	if err != nil {
		return &PersistenceError{Op: "mark " + string(to), Err: err}
	}

	if n != 1 {
		return errors.Wrapf(ErrClaimLost, "record %d was not %s", rec.Id, from)
	}

	rec.Status = to
	rec.Attempts++

	return nil
}

func (r Repository) count(q string, args ...interface{}) (uint, error) {
	var count uint
	if err := r.db.QueryRow(q, args...).Scan(&count); err != nil {
		return 0, err
	}

	return count, nil
}

func (r Repository) rollback(b *Batch) {
	if err := b.Rollback(); err != nil {
		log.Logger.WithField("batch_id", b.Id.String()).Errorf("error rolling back the claim transaction: %s", err)
	}
}

func newQueryProvider(d config.DbDriver, table string, columns []string) queryProvider {
	switch true {
	case d.Postgres():
		return &s.PostgresQueryProvider{
			Table:   table,
			Columns: columns,
		}
	case d.MySQL():
		return &s.MysqlQueryProvider{
			Table:   table,
			Columns: columns,
		}
	}

	return nil
}
