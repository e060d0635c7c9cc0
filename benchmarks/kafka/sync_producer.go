//go:build benchmarks
// +build benchmarks

package kafka

import (
	"sync"

	"careplatform/outbox-relay/kafka"

	"github.com/Shopify/sarama"
)

// CountingProducer wraps a real producer and keeps, per topic, the number of
// messages the brokers acknowledged.
type CountingProducer struct {
	sarama.SyncProducer

	mu    sync.Mutex
	acked map[string]int
}

func NewCountingProducer(kafkaHost []string) *CountingProducer {
	p, err := sarama.NewSyncProducer(kafkaHost, kafka.NewSaramaConfig(false, false))
	if err != nil {
		panic(err)
	}

	return &CountingProducer{SyncProducer: p, acked: map[string]int{}}
}

func (cp *CountingProducer) Acked(topic string) int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return cp.acked[topic]
}

func (cp *CountingProducer) Reset() {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.acked = map[string]int{}
}

func (cp *CountingProducer) SendMessage(msg *sarama.ProducerMessage) (int32, int64, error) {
	partition, offset, err := cp.SyncProducer.SendMessage(msg)
	if err == nil {
		cp.mu.Lock()
		cp.acked[msg.Topic]++
		cp.mu.Unlock()
	}

	return partition, offset, err
}
