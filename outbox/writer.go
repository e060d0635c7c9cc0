package outbox

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"

	"careplatform/outbox-relay/config"

	"github.com/google/uuid"
	"github.com/pkg/errors"
)

// EventIdHeader carries a unique id per appended event, consumers use it to
// drop the duplicates an at-least-once relay produces.
const EventIdHeader = "x-event-id"

// Executor is the open transaction the business mutation runs in. *sql.Tx
// satisfies it.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...interface{}) *sql.Row
}

type AppendRequest struct {
	AggregateType string
	AggregateId   string
	EventType     string
	Payload       []byte
	// Headers is an optional JSON object forwarded to the broker.
	Headers []byte
}

type insertProvider interface {
	InsertSql() string
	UsesReturning() bool
}

type Writer struct {
	queryProvider insertProvider
}

func NewWriter(cfg *config.Config) Writer {
	return NewWriterWithQueryProvider(newQueryProvider(cfg.DBDriver, cfg.DBOutboxTable, columns))
}

func NewWriterWithQueryProvider(qp insertProvider) Writer {
	return Writer{queryProvider: qp}
}

// Append inserts a PENDING record using the caller's transaction. It never
// commits, so the record and the business mutation persist together or not
// at all.
func (w Writer) Append(ctx context.Context, exec Executor, req AppendRequest) (RecordId, error) {
	if err := req.validate(); err != nil {
		return 0, err
	}

	headers, err := withEventId(req.Headers)
	if err != nil {
		return 0, err
	}

	args := []interface{}{req.AggregateType, req.AggregateId, req.EventType, req.Payload, headers, string(StatusPending)}

	if w.queryProvider.UsesReturning() {
		var id RecordId
		if err := exec.QueryRowContext(ctx, w.queryProvider.InsertSql(), args...).Scan(&id); err != nil {
			return 0, &PersistenceError{Op: "append", Err: err}
		}
		return id, nil
	}

	res, err := exec.ExecContext(ctx, w.queryProvider.InsertSql(), args...)
	if err != nil {
		return 0, &PersistenceError{Op: "append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &PersistenceError{Op: "append", Err: err}
	}

	return RecordId(id), nil
}

func (r AppendRequest) validate() error {
	var missing []string
	if r.AggregateType == "" {
		missing = append(missing, "aggregate type")
	}
	if r.AggregateId == "" {
		missing = append(missing, "aggregate id")
	}
	if r.EventType == "" {
		missing = append(missing, "event type")
	}
	if r.Payload == nil {
		missing = append(missing, "payload")
	}

	if len(missing) > 0 {
		return errors.Wrapf(ErrInvalidRecord, "missing %s", strings.Join(missing, ", "))
	}

	return nil
}

func withEventId(raw []byte) ([]byte, error) {
	headers := map[string]interface{}{}
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &headers); err != nil {
			return nil, errors.Wrapf(ErrInvalidRecord, "headers must be a JSON object: %s", err)
		}
	}

	if _, ok := headers[EventIdHeader]; !ok {
		headers[EventIdHeader] = uuid.New().String()
	}

	return json.Marshal(headers)
}

// RunInTx runs fn in a new transaction, committing when fn succeeds and
// rolling back on error or panic. It is the usual way to pair a business
// mutation with Writer.Append.
func RunInTx(ctx context.Context, db *sql.DB, fn func(tx *sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return &PersistenceError{Op: "begin", Err: err}
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
	}()

	if err := fn(tx); err != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			return errors.Wrapf(err, "rollback also failed: %s", rbErr)
		}
		return err
	}

	if err := tx.Commit(); err != nil {
		return &PersistenceError{Op: "commit", Err: err}
	}

	return nil
}
