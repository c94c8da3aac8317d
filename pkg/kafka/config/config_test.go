package kafka_config

import (
	"strings"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv(EnvKafkaBrokers, " broker-1:9092, ,broker-2:9092 ")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(cfg.Brokers) != 2 || cfg.Brokers[0] != "broker-1:9092" || cfg.Brokers[1] != "broker-2:9092" {
		t.Errorf("Brokers = %v", cfg.Brokers)
	}
	if cfg.Activity.Topic != DefaultActivityTopic || cfg.Activity.NotifierGroupID != DefaultNotifierGroupID {
		t.Errorf("Activity = %+v", cfg.Activity)
	}
	if cfg.Consumer.StartOffset != DefaultConsumerStartOffset {
		t.Errorf("StartOffset = %d", cfg.Consumer.StartOffset)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv(EnvKafkaActivityTopic, "events.activity")
	t.Setenv(EnvKafkaProducerCompression, "zstd")
	t.Setenv(EnvKafkaConsumerMaxRetries, "not-a-number")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Activity.Topic != "events.activity" {
		t.Errorf("Topic = %s", cfg.Activity.Topic)
	}
	if cfg.Producer.Compression != "zstd" {
		t.Errorf("Compression = %s", cfg.Producer.Compression)
	}
	if cfg.Consumer.MaxRetries != DefaultConsumerMaxRetries {
		t.Errorf("MaxRetries = %d, want fallback %d", cfg.Consumer.MaxRetries, DefaultConsumerMaxRetries)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{"no brokers", func(c *Config) { c.Brokers = nil }, "broker"},
		{"dlq equals topic", func(c *Config) { c.Activity.DLQTopic = c.Activity.Topic }, "DLQ topic"},
		{"unknown compression", func(c *Config) { c.Producer.Compression = "brotli" }, "Producer.Compression"},
		{"bad acks", func(c *Config) { c.Producer.RequireAcks = 2 }, "Producer.RequireAcks"},
		{"bad offset", func(c *Config) { c.Consumer.StartOffset = -3 }, "Consumer.StartOffset"},
		{"session shorter than heartbeat", func(c *Config) { c.Consumer.SessionTimeout = c.Consumer.HeartbeatInterval }, "Consumer.SessionTimeout"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load()
			if err != nil {
				t.Fatalf("Load() error = %v", err)
			}
			tt.mutate(cfg)

			err = cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want mention of %q", err, tt.wantErr)
			}
		})
	}
}

func TestValidate_NumbersEveryProblem(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	cfg.Brokers = nil
	cfg.Producer.MaxAttempts = 0

	msg := cfg.Validate().Error()
	if !strings.Contains(msg, "1. At least one Kafka broker") || !strings.Contains(msg, "2. Producer.MaxAttempts") {
		t.Errorf("unexpected message:\n%s", msg)
	}
}
