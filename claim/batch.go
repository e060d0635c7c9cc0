package claim

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// ErrBatchReleased is returned when a batch is used after its transaction
// ended.
var ErrBatchReleased = errors.New("claim: batch has already been released")

// Batch is a set of claimed rows together with the transaction holding their
// locks.
type Batch[T any] struct {
	Id    uuid.UUID
	Items []T

	tx *sql.Tx
}

func (b *Batch[T]) Len() int {
	return len(b.Items)
}

func (b *Batch[T]) Empty() bool {
	return len(b.Items) == 0
}

// Exec runs a statement inside the claiming transaction and returns the number
// of affected rows.
func (b *Batch[T]) Exec(ctx context.Context, query string, args ...interface{}) (int64, error) {
	if b.tx == nil {
		return 0, ErrBatchReleased
	}

	res, err := b.tx.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}

	// the drivers in use never fail here
	n, _ := res.RowsAffected()

	return n, nil
}

// Commit persists the updates made through Exec and releases the row locks.
func (b *Batch[T]) Commit() error {
	if b.tx == nil {
		if b.Empty() {
			return nil
		}
		return ErrBatchReleased
	}

	tx := b.tx
	b.tx = nil

	return tx.Commit()
}

// Rollback discards the updates made through Exec and releases the row locks,
// the rows become eligible again. Rolling back a released batch is a no-op.
func (b *Batch[T]) Rollback() error {
	if b.tx == nil {
		return nil
	}

	tx := b.tx
	b.tx = nil

	err := tx.Rollback()
	if errors.Is(err, sql.ErrTxDone) {
		return nil
	}

	return err
}
