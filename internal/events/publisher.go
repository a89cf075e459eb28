// Package events publishes order lifecycle events to Kafka.
package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/safar/storefront/internal/logger"
	"github.com/safar/storefront/internal/models"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// DefaultPublishTimeout bounds a single publish, independent of the caller's
// context.
const DefaultPublishTimeout = 2 * time.Second

const (
	TypeOrderPlaced        = "order.placed"
	TypeOrderStatusChanged = "order.status_changed"
)

// Event is the JSON envelope written as the message value.
type Event struct {
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurredAt"`
	Order      *models.Order `json:"order"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

// KafkaPublisher writes one message per event, keyed by order number so
// all events of an order land on the same partition.
type KafkaPublisher struct {
	writer  messageWriter
	timeout time.Duration
	now     func() time.Time
}

type PublisherOption func(*KafkaPublisher)

func WithPublishTimeout(d time.Duration) PublisherOption {
	return func(p *KafkaPublisher) { p.timeout = d }
}

// NewKafkaWriter returns an async writer: WriteMessages only enqueues, and
// delivery failures are logged from the completion callback.
func NewKafkaWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		AllowAutoTopicCreation: true,
		Async:                  true,
		BatchTimeout:           10 * time.Millisecond,
		WriteTimeout:           5 * time.Second,
		MaxAttempts:            3,
		Completion:             logDeliveryFailure,
	}
}

func logDeliveryFailure(msgs []kafka.Message, err error) {
	if err == nil {
		return
	}
	for _, msg := range msgs {
		logger.Get().Error("Deliver order event",
			zap.String("key", string(msg.Key)),
			zap.Error(err),
		)
	}
}

func NewKafkaPublisher(writer messageWriter, opts ...PublisherOption) *KafkaPublisher {
	p := &KafkaPublisher{writer: writer, timeout: DefaultPublishTimeout, now: time.Now}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *KafkaPublisher) PublishOrderPlaced(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, TypeOrderPlaced, order)
}

func (p *KafkaPublisher) PublishOrderStatusChanged(ctx context.Context, order *models.Order) error {
	return p.publish(ctx, TypeOrderStatusChanged, order)
}

func (p *KafkaPublisher) publish(ctx context.Context, eventType string, order *models.Order) error {
	value, err := json.Marshal(Event{Type: eventType, OccurredAt: p.now().UTC(), Order: order})
	if err != nil {
		return fmt.Errorf("encode %s event: %w", eventType, err)
	}

	msg := kafka.Message{
		Key:   []byte(order.OrderNumber),
		Value: value,
	}

	// Events follow a commit, so a cancelled request must not drop them.
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.timeout)
	defer cancel()

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("write %s event: %w", eventType, err)
	}
	return nil
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NopPublisher discards events. It is used when no brokers are configured.
type NopPublisher struct{}

func (NopPublisher) PublishOrderPlaced(context.Context, *models.Order) error        { return nil }
func (NopPublisher) PublishOrderStatusChanged(context.Context, *models.Order) error { return nil }
func (NopPublisher) Close() error                                                   { return nil }
