package kafka

import (
	"github.com/Shopify/sarama"
)

// AggregatePartitioner hashes the partition key of a MessageKey so that all
// the events of one aggregate land on one partition, in the order they were
// produced.
type AggregatePartitioner struct {
	topic           string
	hashPartitioner sarama.Partitioner
}

func NewAggregatePartitioner(topic string) sarama.Partitioner {
	return NewAggregatePartitionerWithCustomPartitioner(topic, sarama.NewHashPartitioner(topic))
}

func NewAggregatePartitionerWithCustomPartitioner(topic string, p sarama.Partitioner) sarama.Partitioner {
	return AggregatePartitioner{
		topic:           topic,
		hashPartitioner: p,
	}
}

func (o AggregatePartitioner) Partition(message *sarama.ProducerMessage, numPartitions int32) (int32, error) {
	mk, ok := message.Key.(MessageKey)
	if !ok {
		return o.hashPartitioner.Partition(message, numPartitions)
	}

	// the hash partitioner reads message.Key, swap it for the partition key
	// while it runs
	message.Key = sarama.StringEncoder(mk.KeyForPartitioning())
	defer func() {
		message.Key = mk
	}()

	return o.hashPartitioner.Partition(message, numPartitions)
}

func (o AggregatePartitioner) RequiresConsistency() bool {
	return true
}
