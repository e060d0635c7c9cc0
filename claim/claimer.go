// Package claim implements skip-locked batch claiming. A claimed batch owns the
// database transaction that locked its rows: until that transaction is
// committed or rolled back no other claimer can return the same rows, and
// rows locked by somebody else are skipped instead of waited on.
package claim

import (
	"context"
	"database/sql"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// Statement is an eligibility query. It must select the rows to claim ordered
// by creation (oldest first), be limited to the batch size and end with a
// row-locking clause that skips locked rows (FOR UPDATE SKIP LOCKED).
type Statement struct {
	Query string
	Args  []interface{}
}

// Scanner turns the current row of rows into a T.
type Scanner[T any] func(rows *sql.Rows) (T, error)

type Claimer[T any] struct {
	db   *sql.DB
	scan Scanner[T]
}

func New[T any](db *sql.DB, scan Scanner[T]) Claimer[T] {
	return Claimer[T]{
		db:   db,
		scan: scan,
	}
}

// Claim begins a READ COMMITTED transaction, runs the eligibility statement and
// returns the locked rows in query order. When nothing is eligible the
// transaction is rolled back straight away and an empty batch is returned.
func (c Claimer[T]) Claim(ctx context.Context, stmt Statement) (*Batch[T], error) {
	tx, err := c.db.BeginTx(ctx, &sql.TxOptions{Isolation: sql.LevelReadCommitted})
	if err != nil {
		return nil, errors.Wrap(err, "claim: unable to begin transaction")
	}

	items, err := c.query(ctx, tx, stmt)
	if err != nil {
		_ = tx.Rollback()
		return nil, err
	}

	b := &Batch[T]{
		Id:    uuid.New(),
		Items: items,
	}

	if len(items) == 0 {
		if err := tx.Rollback(); err != nil {
			return nil, errors.Wrap(err, "claim: unable to release empty claim")
		}
		return b, nil
	}

	b.tx = tx

	return b, nil
}

func (c Claimer[T]) query(ctx context.Context, tx *sql.Tx, stmt Statement) ([]T, error) {
	rows, err := tx.QueryContext(ctx, stmt.Query, stmt.Args...)
	if err != nil {
		return nil, errors.Wrap(err, "claim: eligibility query failed")
	}
	defer rows.Close()

	items := []T{}
	for rows.Next() {
		item, err := c.scan(rows)
		if err != nil {
			return nil, errors.Wrap(err, "claim: unable to scan claimed row")
		}
		items = append(items, item)
	}

	if err := rows.Err(); err != nil {
		return nil, errors.Wrap(err, "claim: error iterating claimed rows")
	}

	return items, nil
}
