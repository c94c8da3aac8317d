package kafka_middleware

import (
	"context"
	"time"

	"gatherly/pkg/kafka"
	"gatherly/pkg/logger"
)

func LoggingProducerMiddleware(log *logger.Logger) kafka.ProducerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next func(ctx context.Context, msg kafka.Message) error) error {
		start := time.Now()
		err := next(ctx, msg)

		attrs := []any{
			"topic", msg.Topic,
			"key", msg.Key,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
			"correlation_id", msg.GetCorrelationID(),
			"duration_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			log.Error("Failed to publish message", append(attrs, "error", err)...)
		} else {
			log.Debug("Published message", attrs...)
		}

		return err
	}
}

func LoggingConsumerMiddleware(log *logger.Logger) kafka.ConsumerMiddleware {
	return func(ctx context.Context, msg kafka.Message, next kafka.MessageHandler) error {
		start := time.Now()

		msgLog := log.With(
			"topic", msg.Topic,
			"partition", msg.Partition,
			"offset", msg.Offset,
			"event_id", msg.GetEventID(),
			"event_type", msg.GetEventType(),
		)
		ctx = logger.IntoContext(ctx, msgLog)

		err := next(ctx, msg)

		if err != nil {
			msgLog.Error("Failed to process message",
				"duration_ms", time.Since(start).Milliseconds(),
				"classification", kafka.ClassifyError(err).String(),
				"error", err,
			)
		} else {
			msgLog.Info("Processed message", "duration_ms", time.Since(start).Milliseconds())
		}

		return err
	}
}
