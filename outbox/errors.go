package outbox

import (
	"fmt"

	"github.com/pkg/errors"
)

var (
	ErrInvalidRecord = errors.New("outbox: invalid record")
	ErrClaimLost     = errors.New("outbox: record is no longer held by this claim")
)

// PersistenceError is returned when the store is unavailable or rejects a
// write. Callers appending inside a transaction should roll it back.
type PersistenceError struct {
	Op  string
	Err error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persistence: %s failed: %s", e.Op, e.Err)
}

func (e *PersistenceError) Unwrap() error {
	return e.Err
}

// DeliveryError describes a failed broker hand-off. It is recorded on the
// record and never surfaces to the writers.
type DeliveryError struct {
	RecordId RecordId
	Err      error
}

func (e *DeliveryError) Error() string {
	return fmt.Sprintf("outbox: delivery of record %d failed: %s", e.RecordId, e.Err)
}

func (e *DeliveryError) Unwrap() error {
	return e.Err
}
