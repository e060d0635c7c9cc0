//go:build integration
// +build integration

package kafka

import (
	"sync"

	"careplatform/outbox-relay/kafka"

	"github.com/Shopify/sarama"
)

// SyncProducer produces to a real broker, except for message bodies that
// were told to fail.
type SyncProducer struct {
	sync.RWMutex
	realSyncProducer sarama.SyncProducer
	msgsToError      map[string]error
}

func NewSyncProducer(kafkaHost []string) *SyncProducer {
	rp, err := sarama.NewSyncProducer(kafkaHost, kafka.NewSaramaConfig(false, false))
	if err != nil {
		panic(err)
	}

	return &SyncProducer{
		realSyncProducer: rp,
		msgsToError:      map[string]error{},
	}
}

func (sp *SyncProducer) AddError(msgBody string, err error) {
	sp.Lock()
	defer sp.Unlock()
	sp.msgsToError[msgBody] = err
}

func (sp *SyncProducer) RemoveError(msgBody string) {
	sp.Lock()
	defer sp.Unlock()
	delete(sp.msgsToError, msgBody)
}

func (sp *SyncProducer) SendMessage(msg *sarama.ProducerMessage) (partition int32, offset int64, err error) {
	sp.RLock()
	b, err := msg.Value.Encode()
	if err != nil {
		sp.RUnlock()
		panic(err)
	}
	err, ok := sp.msgsToError[string(b)]
	sp.RUnlock()
	if ok {
		return 0, 0, err
	}

	return sp.realSyncProducer.SendMessage(msg)
}

func (sp *SyncProducer) SendMessages(msgs []*sarama.ProducerMessage) error {
	for _, m := range msgs {
		if _, _, err := sp.SendMessage(m); err != nil {
			return err
		}
	}
	return nil
}

func (sp *SyncProducer) Close() error {
	return sp.realSyncProducer.Close()
}
