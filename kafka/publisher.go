package kafka

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strconv"

	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/notification"
	"careplatform/outbox-relay/outbox"

	"github.com/Shopify/sarama"
	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

const (
	HeaderOutboxId       = "x-outbox-id"
	HeaderEventType      = "x-event-type"
	HeaderAggregateType  = "x-aggregate-type"
	HeaderAggregateId    = "x-aggregate-id"
	HeaderNotificationId = "x-notification-id"
)

// Publisher produces domain events and in-app notifications. A nil error
// means the broker acknowledged the message.
type Publisher struct {
	producer   sarama.SyncProducer
	topic      string
	inAppTopic string
}

type inAppMessage struct {
	Id        notification.Id `json:"id"`
	Recipient string          `json:"recipient"`
	Subject   string          `json:"subject"`
	Body      string          `json:"body"`
	CreatedAt string          `json:"created_at"`
}

func NewPublisher(kafkaHost []string, cfg *sarama.Config, topic, inAppTopic string) (*Publisher, error) {
	producer, err := sarama.NewSyncProducer(kafkaHost, cfg)
	if err != nil {
		return nil, errors.Wrap(err, "could not start kafka producer")
	}

	return NewPublisherWithProducer(producer, topic, inAppTopic), nil
}

func NewPublisherWithProducer(prod sarama.SyncProducer, topic, inAppTopic string) *Publisher {
	return &Publisher{
		producer:   prod,
		topic:      topic,
		inAppTopic: inAppTopic,
	}
}

// Deliver produces an outbox record onto the domain events topic, keyed by
// its aggregate id.
func (p *Publisher) Deliver(ctx context.Context, r *outbox.Record) error {
	headers, err := createRecordHeaders(r.Headers)
	if err != nil {
		return errors.Wrap(err, "error unmarshalling record headers for publishing to Kafka")
	}

	headers = append([]sarama.RecordHeader{
		header(HeaderOutboxId, strconv.FormatUint(uint64(r.Id), 10)),
		header(HeaderEventType, r.EventType),
		header(HeaderAggregateType, r.AggregateType),
		header(HeaderAggregateId, r.AggregateId),
	}, headers...)

	return p.produce(&sarama.ProducerMessage{
		Topic:   p.topic,
		Key:     newMessageKey(r.AggregateId, r.PartitionKey()),
		Headers: headers,
		Value:   sarama.ByteEncoder(r.Payload),
	}, logrus.Fields{"record_id": r.Id})
}

// Send produces an IN_APP notification, keyed by recipient so a user's
// notifications stay in order.
func (p *Publisher) Send(ctx context.Context, n *notification.Notification) error {
	body, err := json.Marshal(inAppMessage{
		Id:        n.Id,
		Recipient: n.Recipient,
		Subject:   n.Subject,
		Body:      n.Body,
		CreatedAt: n.CreatedAt.UTC().Format("2006-01-02T15:04:05.000000Z07:00"),
	})
	if err != nil {
		return err
	}

	return p.produce(&sarama.ProducerMessage{
		Topic:   p.inAppTopic,
		Key:     newMessageKey(n.Recipient, ""),
		Headers: []sarama.RecordHeader{header(HeaderNotificationId, strconv.FormatUint(uint64(n.Id), 10))},
		Value:   sarama.ByteEncoder(body),
	}, logrus.Fields{"notification_id": n.Id})
}

func (p *Publisher) Close() error {
	return p.producer.Close()
}

func (p *Publisher) produce(msg *sarama.ProducerMessage, fields logrus.Fields) error {
	partition, offset, err := p.producer.SendMessage(msg)
	if err != nil {
		return errors.Wrap(err, "error producing message in Kafka")
	}

	log.Logger.WithFields(fields).Debugf("produced message in Kafka (topic: %s, partition: %d, offset: %d)", msg.Topic, partition, offset)

	return nil
}

// createRecordHeaders turns a JSON object into Kafka headers, sorted by key.
// Only string and number values are forwarded.
func createRecordHeaders(headers []byte) ([]sarama.RecordHeader, error) {
	if len(headers) == 0 || bytes.Equal(headers, []byte("{}")) {
		return []sarama.RecordHeader{}, nil
	}

	h := map[string]interface{}{}

	dec := json.NewDecoder(bytes.NewBuffer(headers))
	dec.UseNumber()

	if err := dec.Decode(&h); err != nil {
		return nil, err
	}

	keys := make([]string, 0, len(h))
	for k := range h {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	recs := []sarama.RecordHeader{}
	for _, k := range keys {
		switch v := h[k].(type) {
		case string:
			recs = append(recs, header(k, v))
		case json.Number:
			recs = append(recs, header(k, v.String()))
		}
	}

	return recs, nil
}

func header(key, value string) sarama.RecordHeader {
	return sarama.RecordHeader{Key: []byte(key), Value: []byte(value)}
}
