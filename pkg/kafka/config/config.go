package kafka_config

import (
	"fmt"
	"os"
	"slices"
	"strconv"
	"strings"
	"time"

	"gatherly/pkg/logger"
)

// Config holds the broker settings shared by the API, which publishes
// activity, and the notifier, which consumes it.
type Config struct {
	Brokers []string

	Activity ActivityConfig
	Producer ProducerConfig
	Consumer ConsumerConfig

	EnableMiddleware bool
}

// ActivityConfig names the activity stream and its dead-letter topic.
type ActivityConfig struct {
	Topic           string
	DLQTopic        string
	NotifierGroupID string
}

type ProducerConfig struct {
	MaxAttempts  int
	BatchTimeout time.Duration
	RequireAcks  int    // -1 = all, 0 = none, 1 = leader only
	Compression  string // none, gzip, snappy, lz4, zstd
	Async        bool
}

type ConsumerConfig struct {
	StartOffset       int64 // -1 = newest, -2 = oldest
	MinBytes          int
	MaxBytes          int
	MaxWait           time.Duration
	CommitInterval    time.Duration
	HeartbeatInterval time.Duration
	SessionTimeout    time.Duration
	RebalanceTimeout  time.Duration
	MaxRetries        int
}

var (
	compressions = []string{"none", "gzip", "snappy", "lz4", "zstd"}
	acks         = []int{-1, 0, 1}
)

// Load reads the Kafka settings from the environment and validates them.
func Load() (*Config, error) {
	cfg := &Config{
		Brokers: parseBrokers(getEnvStr(EnvKafkaBrokers, DefaultKafkaBrokers)),

		Activity: ActivityConfig{
			Topic:           getEnvStr(EnvKafkaActivityTopic, DefaultActivityTopic),
			DLQTopic:        getEnvStr(EnvKafkaActivityDLQTopic, DefaultActivityDLQTopic),
			NotifierGroupID: getEnvStr(EnvKafkaNotifierGroupID, DefaultNotifierGroupID),
		},

		Producer: ProducerConfig{
			MaxAttempts:  getEnvInt(EnvKafkaProducerMaxAttempts, DefaultProducerMaxAttempts),
			BatchTimeout: getEnvDuration(EnvKafkaProducerBatchTimeout, DefaultProducerBatchTimeout),
			RequireAcks:  getEnvInt(EnvKafkaProducerRequireAcks, DefaultProducerRequireAcks),
			Compression:  getEnvStr(EnvKafkaProducerCompression, DefaultProducerCompression),
			Async:        getEnvBool(EnvKafkaProducerAsync, DefaultProducerAsync),
		},

		Consumer: ConsumerConfig{
			StartOffset:       int64(getEnvInt(EnvKafkaConsumerStartOffset, DefaultConsumerStartOffset)),
			MinBytes:          getEnvInt(EnvKafkaConsumerMinBytes, DefaultConsumerMinBytes),
			MaxBytes:          getEnvInt(EnvKafkaConsumerMaxBytes, DefaultConsumerMaxBytes),
			MaxWait:           getEnvDuration(EnvKafkaConsumerMaxWait, DefaultConsumerMaxWait),
			CommitInterval:    getEnvDuration(EnvKafkaConsumerCommitInterval, DefaultConsumerCommitInterval),
			HeartbeatInterval: getEnvDuration(EnvKafkaConsumerHeartbeatInterval, DefaultConsumerHeartbeatInterval),
			SessionTimeout:    getEnvDuration(EnvKafkaConsumerSessionTimeout, DefaultConsumerSessionTimeout),
			RebalanceTimeout:  getEnvDuration(EnvKafkaConsumerRebalanceTimeout, DefaultConsumerRebalanceTimeout),
			MaxRetries:        getEnvInt(EnvKafkaConsumerMaxRetries, DefaultConsumerMaxRetries),
		},

		EnableMiddleware: getEnvBool(EnvKafkaEnableMiddleware, DefaultEnableMiddleware),
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// parseBrokers splits a comma separated list, dropping blank entries.
func parseBrokers(raw string) []string {
	var brokers []string
	for _, b := range strings.Split(raw, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	return brokers
}

func (cfg *Config) Validate() error {
	var problems []string
	check := func(ok bool, format string, args ...any) {
		if !ok {
			problems = append(problems, fmt.Sprintf(format, args...))
		}
	}

	check(len(cfg.Brokers) > 0, "At least one Kafka broker is required")

	check(cfg.Activity.Topic != "", "Activity topic cannot be empty")
	check(cfg.Activity.DLQTopic == "" || cfg.Activity.DLQTopic != cfg.Activity.Topic,
		"Activity DLQ topic must differ from the activity topic, got: %s", cfg.Activity.DLQTopic)
	check(cfg.Activity.NotifierGroupID != "", "Notifier group ID cannot be empty")

	p := cfg.Producer
	check(p.MaxAttempts > 0, "Producer.MaxAttempts must be positive, got: %d", p.MaxAttempts)
	check(p.BatchTimeout > 0, "Producer.BatchTimeout must be positive, got: %s", p.BatchTimeout)
	check(slices.Contains(compressions, p.Compression),
		"Producer.Compression must be one of %v, got: %s", compressions, p.Compression)
	check(slices.Contains(acks, p.RequireAcks), "Producer.RequireAcks must be -1, 0, or 1, got: %d", p.RequireAcks)

	c := cfg.Consumer
	check(c.StartOffset >= -2, "Consumer.StartOffset must be -1 (newest), -2 (oldest), or >= 0, got: %d", c.StartOffset)
	check(c.MinBytes > 0, "Consumer.MinBytes must be positive, got: %d", c.MinBytes)
	check(c.MaxBytes >= c.MinBytes, "Consumer.MaxBytes must be at least MinBytes, got: %d", c.MaxBytes)
	check(c.MaxWait > 0, "Consumer.MaxWait must be positive, got: %s", c.MaxWait)
	check(c.CommitInterval > 0, "Consumer.CommitInterval must be positive, got: %s", c.CommitInterval)
	check(c.HeartbeatInterval > 0, "Consumer.HeartbeatInterval must be positive, got: %s", c.HeartbeatInterval)
	check(c.SessionTimeout > c.HeartbeatInterval,
		"Consumer.SessionTimeout must exceed HeartbeatInterval, got: %s", c.SessionTimeout)
	check(c.RebalanceTimeout > 0, "Consumer.RebalanceTimeout must be positive, got: %s", c.RebalanceTimeout)
	check(c.MaxRetries >= 0, "Consumer.MaxRetries cannot be negative, got: %d", c.MaxRetries)

	if len(problems) == 0 {
		return nil
	}
	var b strings.Builder
	b.WriteString("Kafka configuration validation failed:\n")
	for i, problem := range problems {
		fmt.Fprintf(&b, "  %d. %s\n", i+1, problem)
	}
	return fmt.Errorf("%s", b.String())
}

func (cfg *Config) LogConfiguration(log *logger.Logger) {
	log.Info("Kafka configuration loaded successfully",
		"brokers", cfg.Brokers,
		"activity_topic", cfg.Activity.Topic,
		"activity_dlq_topic", cfg.Activity.DLQTopic,
		"notifier_group_id", cfg.Activity.NotifierGroupID,
		"producer_require_acks", cfg.Producer.RequireAcks,
		"producer_compression", cfg.Producer.Compression,
		"producer_async", cfg.Producer.Async,
		"consumer_start_offset", cfg.Consumer.StartOffset,
		"consumer_max_retries", cfg.Consumer.MaxRetries,
		"enable_middleware", cfg.EnableMiddleware,
	)
}

func getEnvStr(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if n, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return n
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if b, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return b
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if d, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return d
	}
	return fallback
}
