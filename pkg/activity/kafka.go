package activity

import (
	"context"
	"fmt"
	"time"

	"gatherly/pkg/kafka"
	"gatherly/pkg/middleware"
)

const source = "gatherly-api"

type messagePublisher interface {
	Publish(ctx context.Context, msg kafka.Message) error
}

type KafkaPublisher struct {
	producer messagePublisher
}

func NewKafkaPublisher(producer *kafka.Producer) *KafkaPublisher {
	return &KafkaPublisher{producer: producer}
}

func (p *KafkaPublisher) Publish(ctx context.Context, a Activity) error {
	if a.OccurredAt.IsZero() {
		a.OccurredAt = time.Now().UTC()
	}

	msg, err := kafka.NewMessage().
		WithKey(a.Key()).
		WithValue(a).
		WithEventType(a.Type).
		WithCorrelationID(middleware.RequestIDFromContext(ctx)).
		WithSchemaVersion(SchemaVersion).
		WithSource(source).
		Build()
	if err != nil {
		return fmt.Errorf("build activity message: %w", err)
	}

	return p.producer.Publish(ctx, msg)
}

// Decode extracts the activity carried by msg.
func Decode(msg kafka.Message) (Activity, error) {
	var a Activity
	if err := msg.DecodeValue(&a); err != nil {
		return Activity{}, fmt.Errorf("decode activity: %w", err)
	}
	if a.Type == "" {
		a.Type = msg.GetEventType()
	}
	return a, nil
}
