//go:build integration
// +build integration

package kafka

import (
	"bytes"

	"github.com/Shopify/sarama"
)

// MessageExpectation describes a message the relay should have produced.
// Only the listed headers are compared, and a nil Value matches any body.
type MessageExpectation struct {
	Topic   string
	Key     []byte
	Value   []byte
	Headers map[string]string
}

func (e MessageExpectation) Matches(m *sarama.ConsumerMessage) bool {
	if m.Topic != e.Topic || !bytes.Equal(m.Key, e.Key) {
		return false
	}

	if e.Value != nil && !bytes.Equal(m.Value, e.Value) {
		return false
	}

	for k, v := range e.Headers {
		if !hasHeader(m.Headers, k, v) {
			return false
		}
	}

	return true
}

func hasHeader(headers []*sarama.RecordHeader, key, value string) bool {
	for _, h := range headers {
		if string(h.Key) == key && string(h.Value) == value {
			return true
		}
	}
	return false
}
