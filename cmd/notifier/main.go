package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"gatherly/internal/notifications/notifier"
	notificationsrepo "gatherly/internal/notifications/repository"
	usersrepo "gatherly/internal/users/repository"
	"gatherly/pkg/config"
	"gatherly/pkg/kafka"
	kafka_config "gatherly/pkg/kafka/config"
	kafka_middleware "gatherly/pkg/kafka/middleware"
)

const ServiceName = "gatherly-notifier"

// The notifier consumes the activity topic and stores in-app notifications
// for the affected users.
func main() {
	cfg := config.Load(ServiceName)
	cfg.SetMongo()
	defer cfg.GracefulShutdown()

	cfg.Log.Info("Starting Gatherly notifier")

	kafkaCfg, err := kafka_config.Load()
	if err != nil {
		cfg.Log.Fatal("Invalid Kafka configuration", "error", err)
	}
	kafkaCfg.LogConfiguration(cfg.Log)

	n := notifier.New(
		notificationsrepo.NewMongoNotificationRepository(cfg),
		usersrepo.NewMongoUserRepository(cfg),
		cfg.Log,
	)

	consumer, err := kafka.NewConsumer(
		kafkaCfg,
		kafkaCfg.Activity.Topic,
		kafkaCfg.Activity.NotifierGroupID,
		kafkaCfg.Activity.DLQTopic,
		n.Handle,
		cfg.Log,
	)
	if err != nil {
		cfg.Log.Fatal("Failed to create activity consumer", "error", err)
	}

	metrics := kafka_middleware.NewMetrics()
	if kafkaCfg.EnableMiddleware {
		consumer.Use(kafka_middleware.LoggingConsumerMiddleware(cfg.Log))
		consumer.Use(kafka_middleware.MetricsConsumerMiddleware(metrics))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		cfg.Log.Error("Activity consumer stopped", "error", err)
	}

	cfg.Log.Info("Shutdown signal received, closing consumer", append(metrics.Snapshot().LogArgs(), "lag", consumer.Lag())...)
	if err := consumer.Close(); err != nil {
		cfg.Log.Error("Failed to close consumer", "error", err)
	}
	cfg.Log.Info("Notifier stopped gracefully")
}
