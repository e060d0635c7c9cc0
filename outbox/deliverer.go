package outbox

import (
	"context"
)

// Deliverer hands one record to the message broker. A nil error means the
// broker acknowledged it.
type Deliverer interface {
	Deliver(ctx context.Context, r *Record) error
}
