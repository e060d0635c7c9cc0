package kafka

import (
	"crypto/tls"
	"os"
	"time"

	"github.com/Shopify/sarama"
)

// NewSaramaConfig returns the producer settings shared by the domain event
// and in-app notification publishers. A send only succeeds once every in-sync
// replica has the message.
func NewSaramaConfig(kafkaTlsEnabled bool, tlsSkipVerify bool) *sarama.Config {
	cfg := sarama.NewConfig()

	host, _ := os.Hostname()

	cfg.ClientID = host
	cfg.Version = sarama.V2_4_0_0
	cfg.Producer.Return.Successes = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	cfg.Producer.Idempotent = true
	cfg.Producer.Retry.Max = 5
	cfg.Producer.Retry.Backoff = 250 * time.Millisecond
	cfg.Producer.Compression = sarama.CompressionGZIP
	cfg.Producer.Partitioner = NewAggregatePartitioner
	cfg.Net.MaxOpenRequests = 1
	cfg.Metadata.Retry.Max = 10
	cfg.Metadata.Retry.Backoff = 2 * time.Second

	if kafkaTlsEnabled {
		cfg.Net.TLS.Enable = true
		// #nosec G402
		// InsecureSkipVerify comes from TLS_SKIP_VERIFY_PEER
		cfg.Net.TLS.Config = &tls.Config{InsecureSkipVerify: tlsSkipVerify}
	}

	return cfg
}
