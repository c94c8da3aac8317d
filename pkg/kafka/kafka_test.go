package kafka

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"gatherly/pkg/logger"

	"github.com/segmentio/kafka-go"
)

type fakeWriter struct {
	mu       sync.Mutex
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.err != nil {
		return w.err
	}
	w.messages = append(w.messages, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func header(km kafka.Message, key string) string {
	for _, h := range km.Headers {
		if h.Key == key {
			return string(h.Value)
		}
	}
	return ""
}

func TestMessageBuilder(t *testing.T) {
	msg, err := NewMessage().
		WithKey("event-1").
		WithValue(map[string]string{"type": "guest.created"}).
		WithEventType("guest.created").
		WithCorrelationID("req-1").
		Build()
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if msg.GetEventID() == "" {
		t.Error("expected generated event id")
	}
	if msg.Headers[HeaderTimestamp] == "" {
		t.Error("expected timestamp header")
	}
	if msg.GetEventType() != "guest.created" || msg.GetCorrelationID() != "req-1" {
		t.Errorf("unexpected headers: %v", msg.Headers)
	}

	var decoded map[string]string
	if err := msg.DecodeValue(&decoded); err != nil || decoded["type"] != "guest.created" {
		t.Errorf("decode: %v %v", err, decoded)
	}

	if _, err := NewMessage().WithKey("k").WithValue(make(chan int)).Build(); err == nil {
		t.Error("expected encoding error from Build")
	}
}

func TestRetryCount(t *testing.T) {
	msg := Message{}
	for i := 0; i < 12; i++ {
		msg.IncrementRetryCount()
	}
	if msg.GetRetryCount() != 12 {
		t.Errorf("retry count = %d, want 12", msg.GetRetryCount())
	}
}

func TestClassifyError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want ErrorType
	}{
		{"nil", nil, ErrorTypeUnknown},
		{"tagged transient", NewTransientError("db", errors.New("x")), ErrorTypeTransient},
		{"wrapped permanent", fmt.Errorf("outer: %w", NewPermanentError("bad", nil)), ErrorTypePermanent},
		{"deadline", context.DeadlineExceeded, ErrorTypeTransient},
		{"connection refused text", errors.New("dial tcp: Connection Refused"), ErrorTypeTransient},
		{"unknown", errors.New("json: cannot unmarshal"), ErrorTypePermanent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClassifyError(tt.err); got != tt.want {
				t.Errorf("got %s, want %s", got, tt.want)
			}
		})
	}
}

func TestProducer_PublishParksFailuresInDLQ(t *testing.T) {
	primary := &fakeWriter{err: errors.New("leader not available")}
	dlq := &fakeWriter{}
	p := &Producer{writer: primary, dlqWriter: dlq, topic: "activity", dlqTopic: "activity.dlq", log: logger.Discard()}

	msg, _ := NewMessage().WithKey("k").WithValue("v").Build()
	if err := p.Publish(context.Background(), msg); err == nil {
		t.Fatal("expected original error")
	}
	if len(dlq.messages) != 1 {
		t.Fatalf("expected 1 DLQ message, got %d", len(dlq.messages))
	}
	if header(dlq.messages[0], HeaderOriginalTopic) != "activity" {
		t.Error("expected original-topic header")
	}
	if _, ok := msg.Headers[HeaderDLQError]; ok {
		t.Error("caller's headers must not be mutated")
	}
}

func TestProducer_Validation(t *testing.T) {
	p := &Producer{writer: &fakeWriter{}, topic: "t", log: logger.Discard()}
	if err := p.Publish(context.Background(), Message{Value: []byte("x")}); !errors.Is(err, ErrEmptyKey) {
		t.Errorf("expected ErrEmptyKey, got %v", err)
	}
	if err := p.Publish(context.Background(), Message{Key: "k"}); !errors.Is(err, ErrEmptyValue) {
		t.Errorf("expected ErrEmptyValue, got %v", err)
	}
	_ = p.Close()
	if err := p.Publish(context.Background(), Message{Key: "k", Value: []byte("x")}); !errors.Is(err, ErrProducerClosed) {
		t.Errorf("expected ErrProducerClosed, got %v", err)
	}
}

func TestProducer_MiddlewareOrder(t *testing.T) {
	var order []string
	p := &Producer{writer: &fakeWriter{}, topic: "t", log: logger.Discard()}
	for _, name := range []string{"outer", "inner"} {
		name := name
		p.Use(func(ctx context.Context, msg Message, next func(context.Context, Message) error) error {
			order = append(order, name)
			return next(ctx, msg)
		})
	}
	msg, _ := NewMessage().WithKey("k").WithValue(1).Build()
	if err := p.Publish(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if len(order) != 2 || order[0] != "outer" || order[1] != "inner" {
		t.Errorf("unexpected order %v", order)
	}
}

func newTestConsumer(handler MessageHandler, dlq *fakeWriter) *Consumer {
	c := &Consumer{
		topic:        "activity",
		groupID:      "notifier",
		maxRetries:   3,
		retryBackoff: time.Millisecond,
		handler:      handler,
		log:          logger.Discard(),
	}
	if dlq != nil {
		c.dlqWriter = dlq
	}
	return c
}

func TestConsumer_RetriesTransientErrors(t *testing.T) {
	attempts := 0
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		attempts++
		if attempts < 3 {
			return NewTransientError("mongo unavailable", nil)
		}
		return nil
	}, &fakeWriter{})

	msg, _ := NewMessage().WithKey("k").WithValue(1).Build()
	if err := c.processMessage(context.Background(), msg); err != nil {
		t.Fatalf("expected success after retries, got %v", err)
	}
	if attempts != 3 {
		t.Errorf("attempts = %d, want 3", attempts)
	}
}

func TestConsumer_PermanentErrorGoesToDLQ(t *testing.T) {
	attempts := 0
	dlq := &fakeWriter{}
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		attempts++
		return NewPermanentError("unknown activity type", nil)
	}, dlq)

	msg, _ := NewMessage().WithKey("k").WithValue(1).Build()
	if err := c.processMessage(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if attempts != 1 {
		t.Errorf("permanent errors must not be retried, attempts = %d", attempts)
	}
	if len(dlq.messages) != 1 || header(dlq.messages[0], HeaderDLQConsumerGroup) != "notifier" {
		t.Errorf("expected DLQ message with consumer group, got %+v", dlq.messages)
	}
}

func TestConsumer_ExhaustedRetriesGoToDLQ(t *testing.T) {
	attempts := 0
	dlq := &fakeWriter{}
	c := newTestConsumer(func(ctx context.Context, msg Message) error {
		attempts++
		return NewTransientError("timeout", nil)
	}, dlq)

	msg, _ := NewMessage().WithKey("k").WithValue(1).Build()
	_ = c.processMessage(context.Background(), msg)
	if attempts != 4 {
		t.Errorf("attempts = %d, want 4 (1 + 3 retries)", attempts)
	}
	if len(dlq.messages) != 1 || header(dlq.messages[0], HeaderRetryCount) != "3" {
		t.Errorf("expected DLQ message with retry-count 3")
	}
}
