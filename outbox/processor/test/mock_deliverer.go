package test

import (
	"context"
	"errors"
	"sync"

	"careplatform/outbox-relay/outbox"
)

var ErrBrokerUnavailable = errors.New("broker unavailable")

type MockDeliverer struct {
	sync.Mutex
	delivered []outbox.RecordId
	failures  map[outbox.RecordId]int
}

func NewMockDeliverer() *MockDeliverer {
	return &MockDeliverer{
		failures: map[outbox.RecordId]int{},
	}
}

// FailTimes makes the next n deliveries of the record fail.
func (d *MockDeliverer) FailTimes(id outbox.RecordId, n int) {
	d.Lock()
	defer d.Unlock()
	d.failures[id] = n
}

func (d *MockDeliverer) Deliver(ctx context.Context, r *outbox.Record) error {
	d.Lock()
	defer d.Unlock()

	if d.failures[r.Id] > 0 {
		d.failures[r.Id]--
		return ErrBrokerUnavailable
	}

	d.delivered = append(d.delivered, r.Id)

	return nil
}

func (d *MockDeliverer) Delivered() []outbox.RecordId {
	d.Lock()
	defer d.Unlock()
	return append([]outbox.RecordId{}, d.delivered...)
}

func (d *MockDeliverer) DeliveryCount(id outbox.RecordId) int {
	d.Lock()
	defer d.Unlock()
	n := 0
	for _, delivered := range d.delivered {
		if delivered == id {
			n++
		}
	}
	return n
}
