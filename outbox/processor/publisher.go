package processor

import (
	"context"
	"time"

	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/newrelic"
	"careplatform/outbox-relay/outbox"
	"careplatform/outbox-relay/prometheus"

	nr "github.com/newrelic/go-agent/v3/newrelic"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Repository is the part of the outbox store a publisher works with.
type Repository interface {
	ClaimBatch(ctx context.Context, size int) (*outbox.Batch, error)
	MarkPublished(ctx context.Context, b *outbox.Batch, r *outbox.Record) error
	MarkFailed(ctx context.Context, b *outbox.Batch, r *outbox.Record, cause error) error
	MarkDead(ctx context.Context, b *outbox.Batch, r *outbox.Record, cause error) error
	CommitBatch(b *outbox.Batch) error
	ReleaseBatch(b *outbox.Batch)
}

// Result counts what happened to the records of one batch.
type Result struct {
	Claimed   int
	Published int
	Failed    int
	Dead      int
}

// OutboxPublisher relays claimed outbox records to the broker. Several
// publishers may run against the same table, the claim keeps them from ever
// handling the same record at the same time.
type OutboxPublisher struct {
	repo      Repository
	deliverer outbox.Deliverer
	batchSize int
	nrApp     *nr.Application
}

func NewOutboxPublisher(r Repository, d outbox.Deliverer, batchSize int, nrApp *nr.Application) OutboxPublisher {
	return OutboxPublisher{
		repo:      r,
		deliverer: d,
		batchSize: batchSize,
		nrApp:     nrApp,
	}
}

// Tick claims one batch and delivers its records one at a time in claimed
// order. A failed delivery sends that record back to PENDING and the rest of
// the batch carries on, a record missing its routing fields is parked in
// FAILED without reaching the broker. All outcomes are committed together.
// An error is only returned when the batch could not be claimed or its
// outcomes could not be stored, the claimed records are PENDING again then
// and will be delivered again on a later tick.
func (p OutboxPublisher) Tick(parent context.Context) (Result, error) {
	var res Result
	start := time.Now()
	defer func() {
		prometheus.ObserveTickDuration("outbox", time.Since(start))
	}()

	ctx, txn := newrelic.ContextWithTxn(parent, "processor: OutboxPublisher.Tick()", p.nrApp)
	defer txn.End()

	b, err := p.repo.ClaimBatch(ctx, p.batchSize)
	if err != nil {
		txn.NoticeError(err)
		return res, err
	}
	if b.Empty() {
		return res, nil
	}
	res.Claimed = b.Len()

	logger := log.Logger.WithField("batch_id", b.Id.String())

	for _, rec := range b.Items {
		if err := p.process(ctx, b, rec, &res, logger); err != nil {
			p.repo.ReleaseBatch(b)
			txn.NoticeError(err)
			return Result{Claimed: res.Claimed}, errors.Wrapf(err, "recording outcome of record %d", rec.Id)
		}
	}

	if err := p.repo.CommitBatch(b); err != nil {
		txn.NoticeError(err)
		return Result{Claimed: res.Claimed}, err
	}

	prometheus.RecordOutboxOutcome(prometheus.OutcomePublished, res.Published)
	prometheus.RecordOutboxOutcome(prometheus.OutcomeRetried, res.Failed)
	prometheus.RecordOutboxOutcome(prometheus.OutcomeDead, res.Dead)

	logger.WithFields(logrus.Fields{
		"published": res.Published,
		"failed":    res.Failed,
		"dead":      res.Dead,
	}).Debug("outbox batch processed")

	return res, nil
}

func (p OutboxPublisher) process(ctx context.Context, b *outbox.Batch, rec *outbox.Record, res *Result, logger *logrus.Entry) error {
	recLogger := logger.WithField("record_id", rec.Id)

	if !rec.Deliverable() {
		cause := errors.Wrap(outbox.ErrInvalidRecord, "record has no aggregate or event type")
		recLogger.WithError(cause).Error("an undeliverable record was detected in the outbox")
		res.Dead++
		return p.repo.MarkDead(ctx, b, rec, cause)
	}

	if err := p.deliverer.Deliver(ctx, rec); err != nil {
		cause := &outbox.DeliveryError{RecordId: rec.Id, Err: err}
		recLogger.WithError(cause).Info("record delivery failed, it will be retried")
		res.Failed++
		return p.repo.MarkFailed(ctx, b, rec, cause)
	}

	res.Published++
	return p.repo.MarkPublished(ctx, b, rec)
}
