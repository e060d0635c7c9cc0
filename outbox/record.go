package outbox

import (
	"database/sql"
	"time"

	"careplatform/outbox-relay/lifecycle"
)

type Status = lifecycle.Status

const (
	StatusPending    Status = "PENDING"
	StatusPublishing Status = "PUBLISHING"
	StatusPublished  Status = "PUBLISHED"
	StatusFailed     Status = "FAILED"
)

// Lifecycle is the state machine every outbox record follows. PUBLISHING goes
// back to PENDING when a delivery fails or a stale claim is reclaimed.
var Lifecycle = lifecycle.NewMachine("outbox", map[Status][]Status{
	StatusPending:    {StatusPublishing},
	StatusPublishing: {StatusPublished, StatusPending, StatusFailed},
	StatusFailed:     {StatusPending},
})

type RecordId uint64

type Record struct {
	Id            RecordId
	AggregateType string
	AggregateId   string
	EventType     string
	Payload       []byte
	Headers       []byte
	Status        Status
	Attempts      int
	LastError     sql.NullString
	CreatedAt     time.Time
	UpdatedAt     time.Time
	PublishedAt   sql.NullTime
}

// PartitionKey keeps every event of one aggregate on the same partition.
func (r *Record) PartitionKey() string {
	return r.AggregateType + "/" + r.AggregateId
}

// Deliverable reports whether the record carries enough routing information
// to be handed to the broker.
func (r *Record) Deliverable() bool {
	return r.AggregateType != "" && r.AggregateId != "" && r.EventType != ""
}

func (r *Record) transition(to Status) error {
	if err := Lifecycle.Validate(r.Status, to); err != nil {
		return err
	}
	r.Status = to
	return nil
}

func scanRecord(rows *sql.Rows) (*Record, error) {
	r := &Record{}
	err := rows.Scan(
		&r.Id,
		&r.AggregateType,
		&r.AggregateId,
		&r.EventType,
		&r.Payload,
		&r.Headers,
		&r.Status,
		&r.Attempts,
		&r.LastError,
		&r.CreatedAt,
		&r.UpdatedAt,
		&r.PublishedAt,
	)
	if err != nil {
		return nil, err
	}

	return r, nil
}
