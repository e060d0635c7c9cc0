package kafka

import (
	"github.com/Shopify/sarama"
)

// MessageKey is the Kafka key of a produced message. Only Key is written to
// the broker, PartitionKey picks the partition.
type MessageKey struct {
	Key          string
	PartitionKey string
	sarama.StringEncoder
}

func newMessageKey(key, partitionKey string) MessageKey {
	return MessageKey{
		Key:           key,
		PartitionKey:  partitionKey,
		StringEncoder: sarama.StringEncoder(key),
	}
}

func (k MessageKey) KeyForPartitioning() string {
	if k.PartitionKey == "" {
		return k.Key
	}
	return k.PartitionKey
}
