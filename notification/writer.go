package notification

import (
	"context"
	"strings"

	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/outbox"

	"github.com/pkg/errors"
)

var ErrInvalidNotification = errors.New("notification: invalid notification")

type Request struct {
	Channel   string
	Recipient string
	Subject   string
	Body      string
}

type insertProvider interface {
	InsertSql() string
	UsesReturning() bool
}

type Writer struct {
	queryProvider insertProvider
}

func NewWriter(cfg *config.Config) Writer {
	return NewWriterWithQueryProvider(newQueryProvider(cfg.DBDriver, cfg.DBNotificationTable, columns))
}

func NewWriterWithQueryProvider(qp insertProvider) Writer {
	return Writer{queryProvider: qp}
}

// Append queues a PENDING notification in the caller's transaction, the same
// way outbox.Writer does for domain events.
func (w Writer) Append(ctx context.Context, exec outbox.Executor, req Request) (Id, error) {
	req.Channel = strings.ToUpper(req.Channel)
	if req.Channel != ChannelEmail && req.Channel != ChannelInApp {
		return 0, errors.Wrapf(ErrInvalidNotification, "unsupported channel %q", req.Channel)
	}
	if req.Recipient == "" {
		return 0, errors.Wrap(ErrInvalidNotification, "missing recipient")
	}

	args := []interface{}{req.Channel, req.Recipient, req.Subject, req.Body, string(StatusPending)}

	if w.queryProvider.UsesReturning() {
		var id Id
		if err := exec.QueryRowContext(ctx, w.queryProvider.InsertSql(), args...).Scan(&id); err != nil {
			return 0, &outbox.PersistenceError{Op: "notification append", Err: err}
		}
		return id, nil
	}

	res, err := exec.ExecContext(ctx, w.queryProvider.InsertSql(), args...)
	if err != nil {
		return 0, &outbox.PersistenceError{Op: "notification append", Err: err}
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, &outbox.PersistenceError{Op: "notification append", Err: err}
	}

	return Id(id), nil
}
