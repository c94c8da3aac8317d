package kafka_config

import "time"

const (
	DefaultKafkaBrokers = "localhost:9092"

	DefaultActivityTopic    = "gatherly.activity"
	DefaultActivityDLQTopic = "gatherly.activity.dlq"
	DefaultNotifierGroupID  = "gatherly-notifier"

	DefaultProducerMaxAttempts  = 3
	DefaultProducerBatchTimeout = 10 * time.Millisecond
	DefaultProducerRequireAcks  = -1
	DefaultProducerCompression  = "snappy"
	DefaultProducerAsync        = false

	// A new notifier group starts from the oldest offset and backfills.
	DefaultConsumerStartOffset       = -2
	DefaultConsumerMinBytes          = 1
	DefaultConsumerMaxBytes          = 10 * 1024 * 1024
	DefaultConsumerMaxWait           = 500 * time.Millisecond
	DefaultConsumerCommitInterval    = time.Second
	DefaultConsumerHeartbeatInterval = 3 * time.Second
	DefaultConsumerSessionTimeout    = 10 * time.Second
	DefaultConsumerRebalanceTimeout  = time.Minute
	DefaultConsumerMaxRetries        = 3

	DefaultEnableMiddleware = true
)
