package notification

import (
	"context"
	"time"

	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
	"careplatform/outbox-relay/prometheus"

	nr "github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

var errNoRecipient = errors.New("notification has no recipient")

type repository interface {
	ClaimBatch(ctx context.Context, channel string, size int) (*Batch, error)
	MarkSent(ctx context.Context, b *Batch, n *Notification) error
	MarkFailed(ctx context.Context, b *Batch, n *Notification, cause error) error
	CommitBatch(b *Batch) error
	ReleaseBatch(b *Batch)
}

type Result struct {
	Claimed int
	Sent    int
	Failed  int
}

// Dispatcher sends the pending notifications of one channel.
type Dispatcher struct {
	repo      repository
	channel   string
	sender    Sender
	batchSize int
	nrApp     *nr.Application
}

func NewDispatcher(r repository, channel string, sender Sender, batchSize int, nrApp *nr.Application) Dispatcher {
	return Dispatcher{
		repo:      r,
		channel:   channel,
		sender:    sender,
		batchSize: batchSize,
		nrApp:     nrApp,
	}
}

func (d Dispatcher) Channel() string {
	return d.channel
}

// Tick claims one batch, sends every notification in claimed order and
// commits the outcomes. A failed send marks that notification FAILED and
// the rest of the batch carries on. An error is only returned when the batch
// could not be claimed or its outcomes could not be stored, the claimed rows
// are PENDING again in that case.
func (d Dispatcher) Tick(parent context.Context) (Result, error) {
	var res Result
	start := time.Now()
	defer func() {
		prometheus.ObserveTickDuration("notification_"+d.channel, time.Since(start))
	}()

	ctx, txn := newrelic.ContextWithTxn(parent, "notification: Dispatcher.Tick()", d.nrApp)
	defer txn.End()
	txn.AddAttribute("channel", d.channel)

	b, err := d.repo.ClaimBatch(ctx, d.channel, d.batchSize)
	if err != nil {
		txn.NoticeError(err)
		return res, err
	}
	if b.Empty() {
		return res, nil
	}
	res.Claimed = b.Len()

	logger := log.Logger.WithFields(logrus.Fields{"batch_id": b.Id.String(), "channel": d.channel})

	for _, n := range b.Items {
		cause := d.send(ctx, n)

		if cause == nil {
			err = d.repo.MarkSent(ctx, b, n)
			res.Sent++
		} else {
			logger.WithError(cause).WithField("notification_id", n.Id).Info("notification could not be sent")
			txn.NoticeError(cause)
			err = d.repo.MarkFailed(ctx, b, n, cause)
			res.Failed++
		}

		if err != nil {
			d.repo.ReleaseBatch(b)
			txn.NoticeError(err)
			return Result{Claimed: res.Claimed}, errors.Wrapf(err, "recording outcome of notification %d", n.Id)
		}
	}

	if err := d.repo.CommitBatch(b); err != nil {
		txn.NoticeError(err)
		return Result{Claimed: res.Claimed}, err
	}

	prometheus.RecordNotificationOutcome(d.channel, prometheus.OutcomeSent, res.Sent)
	prometheus.RecordNotificationOutcome(d.channel, prometheus.OutcomeFailed, res.Failed)

	logger.WithFields(logrus.Fields{"sent": res.Sent, "failed": res.Failed}).Debug("notification batch dispatched")

	return res, nil
}

func (d Dispatcher) send(ctx context.Context, n *Notification) error {
	if n.Recipient == "" {
		return errNoRecipient
	}

	return d.sender.Send(ctx, n)
}
