package test

import (
	"fmt"
	"sync"

	"github.com/Shopify/sarama"
	"github.com/go-test/deep"
)

type MockSyncProducer struct {
	sync.Mutex
	producedMessages map[string][]*sarama.ProducerMessage
	failures         map[string]error
	closed           bool
}

func NewMockSyncProducer() *MockSyncProducer {
	return &MockSyncProducer{
		producedMessages: map[string][]*sarama.ProducerMessage{},
		failures:         map[string]error{},
	}
}

// FailKey makes every message with the given key fail to produce.
func (m *MockSyncProducer) FailKey(key string, err error) {
	m.Lock()
	defer m.Unlock()
	m.failures[key] = err
}

func (m *MockSyncProducer) MessageWasProduced(topic string, exp *sarama.ProducerMessage) error {
	m.Lock()
	defer m.Unlock()
	if _, ok := m.producedMessages[topic]; !ok {
		return fmt.Errorf("0 messages produced for the %s topic", topic)
	}

	for _, msg := range m.producedMessages[topic] {
		if diff := deep.Equal(exp, msg); diff == nil {
			return nil
		}
	}
	return fmt.Errorf("no message published in topic %s that matches provided message %#v", topic, exp)
}

func (m *MockSyncProducer) Produced(topic string) []*sarama.ProducerMessage {
	m.Lock()
	defer m.Unlock()
	return append([]*sarama.ProducerMessage{}, m.producedMessages[topic]...)
}

func (m *MockSyncProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	m.Lock()
	defer m.Unlock()

	if msg.Key != nil {
		key, _ := msg.Key.Encode()
		if err, ok := m.failures[string(key)]; ok {
			return -1, -1, err
		}
	}

	m.producedMessages[msg.Topic] = append(m.producedMessages[msg.Topic], msg)

	return 0, int64(len(m.producedMessages[msg.Topic]) - 1), nil
}

func (m *MockSyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	for _, msg := range msgs {
		if _, _, err := m.SendMessage(msg); err != nil {
			return err
		}
	}
	return nil
}

func (m *MockSyncProducer) Close() error {
	m.Lock()
	defer m.Unlock()
	m.closed = true
	return nil
}

func (m *MockSyncProducer) Closed() bool {
	m.Lock()
	defer m.Unlock()
	return m.closed
}
