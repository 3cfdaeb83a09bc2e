package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"banking-ledger/internal/core/domain"

	"github.com/rs/zerolog"
	kafkago "github.com/segmentio/kafka-go"
)

// MessageWriter is the subset of *kafka.Writer used by the publisher.
type MessageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafkago.Message) error
	Close() error
}

// ActivityPublisher sends activity events to a Kafka topic keyed by user ID,
// so one user's events stay ordered within a partition. It implements ports.ActivitySink.
type ActivityPublisher struct {
	writer MessageWriter
}

// NewWriter builds a synchronous Kafka writer for activity events.
func NewWriter(brokers []string, topic string, log zerolog.Logger) *kafkago.Writer {
	return &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireOne,
		MaxAttempts:  3,
		BatchTimeout: 10 * time.Millisecond,
		WriteTimeout: 5 * time.Second,
		Compression:  kafkago.Snappy,
		Logger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Debug().Msgf(msg, args...)
		}),
		ErrorLogger: kafkago.LoggerFunc(func(msg string, args ...interface{}) {
			log.Warn().Msgf(msg, args...)
		}),
	}
}

// NewActivityPublisher wraps writer as an activity sink.
func NewActivityPublisher(writer MessageWriter) *ActivityPublisher {
	return &ActivityPublisher{writer: writer}
}

// activityMessage is the wire form of an activity event.
type activityMessage struct {
	EventID    string            `json:"event_id"`
	EventType  string            `json:"event_type"`
	UserID     string            `json:"user_id"`
	Details    map[string]string `json:"details,omitempty"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// Publish writes one event. Delivery is bounded by ctx.
func (p *ActivityPublisher) Publish(ctx context.Context, e *domain.ActivityEvent) error {
	body, err := json.Marshal(activityMessage{
		EventID:    e.ID.String(),
		EventType:  "activity." + string(e.ActionType),
		UserID:     e.UserID.String(),
		Details:    e.Details,
		OccurredAt: e.Timestamp,
	})
	if err != nil {
		return fmt.Errorf("marshal activity event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafkago.Message{
		Key:   []byte(e.UserID.String()),
		Value: body,
		Time:  e.Timestamp,
		Headers: []kafkago.Header{
			{Key: "event_type", Value: []byte(e.ActionType)},
		},
	})
	if err != nil {
		return fmt.Errorf("kafka write activity: %w", err)
	}
	return nil
}

// Name returns the sink name.
func (p *ActivityPublisher) Name() string {
	return "kafka"
}

// Close flushes and closes the underlying writer.
func (p *ActivityPublisher) Close() error {
	return p.writer.Close()
}
