package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"time"

	"careplatform/outbox-relay/log"

	"github.com/alexflint/go-arg"
)

const (
	MySQL    DbDriver = "mysql"
	Postgres DbDriver = "postgres"

	ChannelEmail = "EMAIL"
	ChannelInApp = "IN_APP"

	masked = "xxxxx"
)

type DbDriver string

var supportedDbTypes = map[DbDriver]bool{
	Postgres: true,
	MySQL:    true,
}

var supportedChannels = map[string]bool{
	ChannelEmail: true,
	ChannelInApp: true,
}

type Config struct {
	SkipMigrations         bool     `arg:"--skip-migrations,env:SKIP_MIGRATIONS"`
	DBHost                 string   `arg:"--db-host,env:DB_HOST,required"`
	DBPort                 uint32   `arg:"--db-port,env:DB_PORT,required"`
	DBUser                 string   `arg:"--db-user,env:DB_USER,required"`
	DBPass                 string   `arg:"--db-pass,env:DB_PASS,required"`
	DBSchema               string   `arg:"--db-schema,env:DB_SCHEMA,required"`
	DBDriver               DbDriver `arg:"--db-driver,env:DB_DRIVER,required"`
	DBOutboxTable          string   `arg:"--db-outbox-table,env:DB_OUTBOX_TABLE"`
	DBNotificationTable    string   `arg:"--db-notification-table,env:DB_NOTIFICATION_TABLE"`
	KafkaHost              []string `arg:"--kafka-host,env:KAFKA_HOST,required"`
	KafkaTopic             string   `arg:"--kafka-topic,env:KAFKA_TOPIC"`
	KafkaInAppTopic        string   `arg:"--kafka-in-app-topic,env:KAFKA_IN_APP_TOPIC"`
	TLSEnable              bool     `arg:"--kafka-tls,env:TLS_ENABLE"`
	TLSSkipVerifyPeer      bool     `arg:"--kafka-tls-verify-peer,env:TLS_SKIP_VERIFY_PEER"`
	WriteConcurrency       int      `arg:"--write-concurrency,env:WRITE_CONCURRENCY"`
	DelayMs                int      `arg:"--delay-ms,env:DELAY_MS"`
	BatchSize              int      `arg:"--batch-size,env:BATCH_SIZE"`
	NotificationDelayMs    int      `arg:"--notification-delay-ms,env:NOTIFICATION_DELAY_MS"`
	NotificationBatchSize  int      `arg:"--notification-batch-size,env:NOTIFICATION_BATCH_SIZE"`
	NotificationChannels   []string `arg:"--notification-channels,env:NOTIFICATION_CHANNELS"`
	StalePublishingMs      int      `arg:"--stale-publishing-ms,env:STALE_PUBLISHING_MS"`
	ReclaimIntervalMs      int      `arg:"--reclaim-interval-ms,env:RECLAIM_INTERVAL_MS"`
	AttemptsAlertThreshold int      `arg:"--attempts-alert-threshold,env:ATTEMPTS_ALERT_THRESHOLD"`
	RetentionMinutes       int      `arg:"--retention-minutes,env:RETENTION_MINUTES"`
	PollingDisabled        bool     `arg:"--polling-disabled,env:POLLING_DISABLED"`
	RunCleanup             bool     `arg:"--cleanup,env:RUN_CLEANUP"`
	RunOptimize            bool     `arg:"--optimize,env:RUN_OPTIMIZE"`
	RunReclaim             bool     `arg:"--reclaim,env:RUN_RECLAIM"`
	RunRetryFailed         bool     `arg:"--retry-failed,env:RUN_RETRY_FAILED"`
	RetryFailedLimit       int      `arg:"--retry-failed-limit,env:RETRY_FAILED_LIMIT"`
	SidecarProxyUrl        string   `arg:"--sidecar-proxy-url,env:SIDECAR_PROXY_URL"`
	HttpAddr               string   `arg:"--http-addr,env:HTTP_ADDR"`
	SMTPHost               string   `arg:"--smtp-host,env:SMTP_HOST"`
	SMTPPort               int      `arg:"--smtp-port,env:SMTP_PORT"`
	SMTPUser               string   `arg:"--smtp-user,env:SMTP_USER"`
	SMTPPass               string   `arg:"--smtp-pass,env:SMTP_PASS"`
	SMTPFrom               string   `arg:"--smtp-from,env:SMTP_FROM"`
}

func NewConfig() (*Config, error) {
	c := defaultConfig()
	arg.MustParse(c)

	if err := c.validate(); err != nil {
		return nil, err
	}

	return c, nil
}

func defaultConfig() *Config {
	return &Config{
		DBOutboxTable:          "outbox",
		DBNotificationTable:    "notification",
		KafkaTopic:             "domain-events",
		KafkaInAppTopic:        "in-app-notifications",
		WriteConcurrency:       1,
		DelayMs:                500,
		BatchSize:              250,
		NotificationDelayMs:    1000,
		NotificationBatchSize:  50,
		StalePublishingMs:      600000,
		ReclaimIntervalMs:      60000,
		AttemptsAlertThreshold: 5,
		RetentionMinutes:       60,
		RetryFailedLimit:       1000,
		HttpAddr:               ":80",
		SMTPPort:               587,
	}
}

func (c *Config) validate() error {
	if !supportedDbTypes[c.DBDriver] {
		return fmt.Errorf("the DB_DRIVER provided (%s) is not supported", c.DBDriver)
	}

	if c.BatchSize < 1 || c.NotificationBatchSize < 1 {
		return fmt.Errorf("batch sizes must be positive (BATCH_SIZE=%d, NOTIFICATION_BATCH_SIZE=%d)", c.BatchSize, c.NotificationBatchSize)
	}

	if c.RetryFailedLimit < 1 {
		return fmt.Errorf("RETRY_FAILED_LIMIT must be at least 1, got %d", c.RetryFailedLimit)
	}

	if c.WriteConcurrency < 1 {
		return fmt.Errorf("WRITE_CONCURRENCY must be at least 1, got %d", c.WriteConcurrency)
	}

	// go-arg cannot carry a slice default, so the channel default is applied
	// once parsing is done.
	if len(c.NotificationChannels) == 0 {
		c.NotificationChannels = []string{ChannelEmail}
	}

	for i, ch := range c.NotificationChannels {
		ch = strings.ToUpper(strings.TrimSpace(ch))
		if !supportedChannels[ch] {
			return fmt.Errorf("the notification channel provided (%s) is not supported", ch)
		}
		c.NotificationChannels[i] = ch
	}

	if c.DispatchesChannel(ChannelEmail) && !c.RunsJob() && c.SMTPHost == "" {
		return fmt.Errorf("SMTP_HOST is required when the %s channel is dispatched", ChannelEmail)
	}

	return nil
}

func (c *Config) GetDelayDuration() time.Duration {
	return time.Duration(c.DelayMs) * time.Millisecond
}

func (c *Config) GetNotificationDelayDuration() time.Duration {
	return time.Duration(c.NotificationDelayMs) * time.Millisecond
}

func (c *Config) GetStalePublishingDuration() time.Duration {
	return time.Duration(c.StalePublishingMs) * time.Millisecond
}

func (c *Config) GetReclaimIntervalDuration() time.Duration {
	return time.Duration(c.ReclaimIntervalMs) * time.Millisecond
}

func (c *Config) GetRetentionDuration() time.Duration {
	return time.Duration(c.RetentionMinutes) * time.Minute
}

func (c *Config) ReclaimEnabled() bool {
	return c.StalePublishingMs > 0
}

// RunsJob reports whether the process was started as a one-shot job instead
// of the relay itself.
func (c *Config) RunsJob() bool {
	return c.RunCleanup || c.RunOptimize || c.RunReclaim || c.RunRetryFailed
}

func (c *Config) DispatchesChannel(channel string) bool {
	for _, ch := range c.NotificationChannels {
		if ch == channel {
			return true
		}
	}
	return false
}

func (c *Config) GetDSN() string {
	switch c.DBDriver {
	case MySQL:
		tls := "false"
		if c.TLSEnable {
			if c.TLSSkipVerifyPeer {
				tls = "skip-verify"
			} else {
				tls = "true"
			}
		}
		return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?parseTime=true&loc=UTC&time_zone=%%27%%2B00%%3A00%%27&tls=%s&multiStatements=true", c.DBUser, c.DBPass, c.DBHost, c.DBPort, c.DBSchema, tls)
	case Postgres:
		sslMode := "disable"
		if c.TLSEnable {
			if c.TLSSkipVerifyPeer {
				sslMode = "require"
			} else {
				sslMode = "verify-full"
			}
		}
		return fmt.Sprintf("%s://%s@%s:%d/%s?sslmode=%s&timezone=UTC", c.DBDriver, url.UserPassword(c.DBUser, c.DBPass), c.DBHost, c.DBPort, c.DBSchema, sslMode)
	default:
		log.Logger.Fatalf("the DB driver configured (%s) is not supported", c.DBDriver)
		return ""
	}
}

// GetDependencySystemAddresses lists the host:port pairs checked by the
// readiness probe.
func (c *Config) GetDependencySystemAddresses() []string {
	addrs := append([]string{}, c.KafkaHost...)
	if c.DispatchesChannel(ChannelEmail) && c.SMTPHost != "" {
		addrs = append(addrs, net.JoinHostPort(c.SMTPHost, strconv.Itoa(c.SMTPPort)))
	}
	return addrs
}

func (c Config) MarshalJSON() ([]byte, error) {
	return json.Marshal(map[string]interface{}{
		"SkipMigrations":         c.SkipMigrations,
		"DBHost":                 c.DBHost,
		"DBPort":                 c.DBPort,
		"DBUser":                 c.DBUser,
		"DBPass":                 masked,
		"DBSchema":               c.DBSchema,
		"DBDriver":               c.DBDriver,
		"DBOutboxTable":          c.DBOutboxTable,
		"DBNotificationTable":    c.DBNotificationTable,
		"KafkaHost":              c.KafkaHost,
		"KafkaTopic":             c.KafkaTopic,
		"KafkaInAppTopic":        c.KafkaInAppTopic,
		"TLSEnable":              c.TLSEnable,
		"TLSSkipVerifyPeer":      c.TLSSkipVerifyPeer,
		"WriteConcurrency":       c.WriteConcurrency,
		"DelayMs":                c.DelayMs,
		"BatchSize":              c.BatchSize,
		"NotificationDelayMs":    c.NotificationDelayMs,
		"NotificationBatchSize":  c.NotificationBatchSize,
		"NotificationChannels":   c.NotificationChannels,
		"StalePublishingMs":      c.StalePublishingMs,
		"ReclaimIntervalMs":      c.ReclaimIntervalMs,
		"AttemptsAlertThreshold": c.AttemptsAlertThreshold,
		"RetentionMinutes":       c.RetentionMinutes,
		"PollingDisabled":        c.PollingDisabled,
		"RunCleanup":             c.RunCleanup,
		"RunOptimize":            c.RunOptimize,
		"RunReclaim":             c.RunReclaim,
		"RunRetryFailed":         c.RunRetryFailed,
		"RetryFailedLimit":       c.RetryFailedLimit,
		"SidecarProxyUrl":        c.SidecarProxyUrl,
		"HttpAddr":               c.HttpAddr,
		"SMTPHost":               c.SMTPHost,
		"SMTPPort":               c.SMTPPort,
		"SMTPUser":               c.SMTPUser,
		"SMTPPass":               masked,
		"SMTPFrom":               c.SMTPFrom,
	})
}

func (d DbDriver) MySQL() bool {
	return d == MySQL
}

func (d DbDriver) Postgres() bool {
	return d == Postgres
}

func (d DbDriver) String() string {
	return string(d)
}
