//go:build integration
// +build integration

package integration

import (
	"context"
	"database/sql"
	"net/http/httptest"
	"os"
	"time"

	"careplatform/outbox-relay/config"
	h "careplatform/outbox-relay/integration/http"
	testkafka "careplatform/outbox-relay/integration/kafka"
	"careplatform/outbox-relay/kafka"
	"careplatform/outbox-relay/log"
	"careplatform/outbox-relay/notification"
	"careplatform/outbox-relay/outbox"
	"careplatform/outbox-relay/outbox/data"
	"careplatform/outbox-relay/outbox/processor"

	"github.com/Shopify/sarama"
	"github.com/google/uuid"
)

const (
	testModeDocker = "docker"
	eventsTopic    = "test-domain-events"
	inAppTopic     = "test-in-app-notifications"
)

var (
	cfg           *config.Config
	db            *sql.DB
	syncProducer  *testkafka.SyncProducer
	repo          outbox.Repository
	notifications notification.Repository
	server        *httptest.Server
	pub           *kafka.Publisher
)

func init() {
	server = httptest.NewServer(h.GetHttpTestHandlerFunc())
	setupConfig()

	syncProducer = testkafka.NewSyncProducer(cfg.KafkaHost)
	pub = kafka.NewPublisherWithProducer(syncProducer, cfg.KafkaTopic, cfg.KafkaInAppTopic)

	db, _ = data.NewDB(cfg)
	purgeTables()

	repo = outbox.NewRepository(db, cfg)
	notifications = notification.NewRepository(db, cfg)
}

func returnErrorFromSyncProducerForMessage(msgBody string, err error) {
	syncProducer.AddError(msgBody, err)
}

func newPublisher(batchSize int) processor.OutboxPublisher {
	return processor.NewOutboxPublisher(repo, pub, batchSize, nil)
}

// publishUntilEmpty ticks p until a tick claims nothing.
func publishUntilEmpty(p processor.OutboxPublisher) []processor.Result {
	var results []processor.Result
	for i := 0; i < 100; i++ {
		res, err := p.Tick(context.Background())
		if err != nil {
			log.Logger.WithError(err).Panic("unexpected error publishing the outbox")
		}
		if res.Claimed == 0 {
			return results
		}
		results = append(results, res)
	}
	panic("the outbox was never drained")
}

func consumeFromKafkaUntilMessagesReceived(exp []testkafka.MessageExpectation) *testkafka.ConsumerHandler {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	cons := testkafka.NewConsumerHandler(exp)

	saramaCfg := kafka.NewSaramaConfig(false, false)
	saramaCfg.Consumer.Offsets.Initial = sarama.OffsetOldest
	cl, err := sarama.NewConsumerGroup(cfg.KafkaHost, "test-cons-"+uuid.NewString(), saramaCfg)
	if err != nil {
		log.Logger.WithError(err).Panic("error occurred creating Kafka consumer group client")
	}

	topics := testkafka.GetTopicsFromMessageExpectations(exp)
	go func() {
		for ctx.Err() == nil {
			log.Logger.Debugf("about to consume topics %s", topics)
			if err := cl.Consume(ctx, topics, cons); err != nil && ctx.Err() == nil {
				log.Logger.WithError(err).Error("error when consuming from Kafka")
			}
		}
	}()

	select {
	case <-time.After(10 * time.Second):
	case <-cons.Done:
	}

	cancel()

	if err := cl.Close(); err != nil {
		log.Logger.WithError(err).Panic("error occurred closing Kafka client")
	}

	return cons
}

func setupConfig() *config.Config {
	var runInDocker bool
	if os.Getenv("GO_TEST_MODE") == testModeDocker {
		runInDocker = true
	}

	cfg = &config.Config{
		DBUser:                 "outbox-relay",
		DBPass:                 "outbox-relay",
		DBSchema:               "outbox-relay",
		DBOutboxTable:          "outbox",
		DBNotificationTable:    "notification",
		KafkaHost:              []string{"localhost:9092"},
		KafkaTopic:             eventsTopic,
		KafkaInAppTopic:        inAppTopic,
		WriteConcurrency:       1,
		DelayMs:                100,
		BatchSize:              250,
		NotificationBatchSize:  50,
		NotificationChannels:   []string{config.ChannelEmail, config.ChannelInApp},
		StalePublishingMs:      600000,
		AttemptsAlertThreshold: 5,
		RetentionMinutes:       60,
		RetryFailedLimit:       1000,
		SidecarProxyUrl:        server.URL,
	}

	if os.Getenv("DB_DRIVER") == string(config.MySQL) {
		cfg.DBDriver = config.MySQL
		cfg.DBPort = 13306
	} else {
		cfg.DBDriver = config.Postgres
		cfg.DBPort = 15432
	}

	if runInDocker {
		cfg.DBHost = cfg.DBDriver.String()
		cfg.DBPort = cfg.DBPort - 10000
		cfg.KafkaHost = []string{"kafka:29092"}
	} else {
		cfg.DBHost = "localhost"
	}

	return cfg
}
