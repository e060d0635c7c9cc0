//go:build integration
// +build integration

package kafka

import (
	"sync"

	"github.com/Shopify/sarama"
)

// ConsumerHandler crosses off expectations as matching messages arrive and
// closes Done once none are left.
type ConsumerHandler struct {
	sync.Mutex
	Done    chan struct{}
	pending []MessageExpectation
	closed  bool
}

func NewConsumerHandler(exp []MessageExpectation) *ConsumerHandler {
	pending := make([]MessageExpectation, len(exp))
	copy(pending, exp)

	return &ConsumerHandler{
		Done:    make(chan struct{}),
		pending: pending,
	}
}

func (c *ConsumerHandler) MessagesFound() bool {
	c.Lock()
	defer c.Unlock()
	return c.closed
}

// Missing returns the expectations not met yet.
func (c *ConsumerHandler) Missing() []MessageExpectation {
	c.Lock()
	defer c.Unlock()
	return append([]MessageExpectation{}, c.pending...)
}

func (c *ConsumerHandler) ConsumeClaim(session sarama.ConsumerGroupSession, claim sarama.ConsumerGroupClaim) error {
	for message := range claim.Messages() {
		c.consume(message)
		session.MarkMessage(message, "")
	}

	return nil
}

func (c *ConsumerHandler) consume(m *sarama.ConsumerMessage) {
	c.Lock()
	defer c.Unlock()

	for i, exp := range c.pending {
		if exp.Matches(m) {
			c.pending = append(c.pending[:i], c.pending[i+1:]...)
			break
		}
	}

	if len(c.pending) == 0 && !c.closed {
		c.closed = true
		close(c.Done)
	}
}

func (c *ConsumerHandler) Cleanup(sarama.ConsumerGroupSession) error {
	return nil
}

func (c *ConsumerHandler) Setup(sarama.ConsumerGroupSession) error {
	return nil
}
