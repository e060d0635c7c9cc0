//go:build benchmarks
// +build benchmarks

package benchmarks

import (
	"context"
	"database/sql"
	"fmt"

	benchkafka "careplatform/outbox-relay/benchmarks/kafka"
	"careplatform/outbox-relay/config"
	"careplatform/outbox-relay/kafka"
	"careplatform/outbox-relay/outbox"
	"careplatform/outbox-relay/outbox/data"
)

var (
	repo         outbox.Repository
	writer       outbox.Writer
	cfg          *config.Config
	db           *sql.DB
	pub          *kafka.Publisher
	syncProducer *benchkafka.CountingProducer
)

func init() {
	cfg = createConfig()

	db, _ = data.NewDB(cfg)

	repo = outbox.NewRepository(db, cfg)
	writer = outbox.NewWriter(cfg)
	syncProducer = benchkafka.NewCountingProducer(cfg.KafkaHost)
	pub = kafka.NewPublisherWithProducer(syncProducer, cfg.KafkaTopic, cfg.KafkaInAppTopic)
}

func purgeOutboxTable() {
	_, err := db.Exec(fmt.Sprintf("TRUNCATE TABLE `%s`;", cfg.DBOutboxTable))
	if err != nil {
		panic(fmt.Sprintf("an error occurred cleaning the outbox table for benchmarks: %s", err))
	}
}

func appendRecords(n int) {
	err := outbox.RunInTx(context.Background(), db, func(tx *sql.Tx) error {
		for i := 0; i < n; i++ {
			_, err := writer.Append(context.Background(), tx, outbox.AppendRequest{
				AggregateType: "prescription",
				AggregateId:   fmt.Sprintf("rx-%d", i%100),
				EventType:     "PrescriptionAmended",
				Payload:       []byte(`{"foo": "bar"}`),
			})
			if err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		panic(fmt.Sprintf("failed to append outbox records: %s", err))
	}
}

func createConfig() *config.Config {
	return &config.Config{
		DBHost:              "localhost",
		DBPort:              13306,
		DBUser:              "outbox-relay",
		DBPass:              "outbox-relay",
		DBSchema:            "outbox-relay",
		DBDriver:            config.MySQL,
		DBOutboxTable:       "outbox",
		DBNotificationTable: "notification",
		KafkaHost:           []string{"localhost:9092"},
		KafkaTopic:          "bench-domain-events",
		KafkaInAppTopic:     "bench-in-app-notifications",
		WriteConcurrency:    1,
		DelayMs:             500,
	}
}
