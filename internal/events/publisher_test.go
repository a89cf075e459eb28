package events

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/safar/storefront/internal/models"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
)

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	args := m.Called(ctx, msgs)
	return args.Error(0)
}

func (m *mockWriter) Close() error {
	return m.Called().Error(0)
}

func TestKafkaPublisher_OrderPlaced(t *testing.T) {
	w := &mockWriter{}
	var sent []kafka.Message
	w.On("WriteMessages", mock.Anything, mock.Anything).
		Run(func(args mock.Arguments) { sent = args.Get(1).([]kafka.Message) }).
		Return(nil)

	p := NewKafkaPublisher(w)
	p.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	order := &models.Order{ID: 9, OrderNumber: "ORD-ABCDEF0123", Status: models.OrderStatusPending}
	require.NoError(t, p.PublishOrderPlaced(context.Background(), order))

	require.Len(t, sent, 1)
	assert.Equal(t, "ORD-ABCDEF0123", string(sent[0].Key))

	var ev Event
	require.NoError(t, json.Unmarshal(sent[0].Value, &ev))
	assert.Equal(t, TypeOrderPlaced, ev.Type)
	assert.Equal(t, "ORD-ABCDEF0123", ev.Order.OrderNumber)
	assert.True(t, ev.OccurredAt.Equal(time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)))
	w.AssertExpectations(t)
}

func TestKafkaPublisher_WriteError(t *testing.T) {
	w := &mockWriter{}
	w.On("WriteMessages", mock.Anything, mock.Anything).Return(errors.New("no leader"))

	p := NewKafkaPublisher(w)
	err := p.PublishOrderStatusChanged(context.Background(), &models.Order{OrderNumber: "ORD-1"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "order.status_changed")
}

func TestKafkaPublisher_Close(t *testing.T) {
	w := &mockWriter{}
	w.On("Close").Return(nil)

	require.NoError(t, NewKafkaPublisher(w).Close())
	w.AssertExpectations(t)
}

func TestNewKafkaWriter(t *testing.T) {
	w := NewKafkaWriter([]string{"k1:9092", "k2:9092"}, "order-events")
	assert.Equal(t, "order-events", w.Topic)
	assert.NotNil(t, w.Addr)
	assert.IsType(t, &kafka.LeastBytes{}, w.Balancer)
	assert.True(t, w.Async)
	assert.LessOrEqual(t, w.BatchTimeout, 50*time.Millisecond)
	assert.Equal(t, 3, w.MaxAttempts)
	require.NotNil(t, w.Completion)

	// Completion tolerates both outcomes.
	w.Completion([]kafka.Message{{Key: []byte("ORD-1")}}, nil)
	w.Completion([]kafka.Message{{Key: []byte("ORD-1")}}, errors.New("no leader"))
}

// blockingWriter never completes a write until its context ends.
type blockingWriter struct {
	callerErr error
}

func (w *blockingWriter) WriteMessages(ctx context.Context, msgs ...kafka.Message) error {
	w.callerErr = ctx.Err()
	<-ctx.Done()
	return ctx.Err()
}

func (w *blockingWriter) Close() error { return nil }

func TestKafkaPublisher_SlowWriterIsBounded(t *testing.T) {
	w := &blockingWriter{}
	p := NewKafkaPublisher(w, WithPublishTimeout(20*time.Millisecond))

	start := time.Now()
	err := p.PublishOrderPlaced(context.Background(), &models.Order{OrderNumber: "ORD-1"})

	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Less(t, time.Since(start), time.Second)
}

func TestKafkaPublisher_DetachedFromCallerCancellation(t *testing.T) {
	w := &blockingWriter{}
	p := NewKafkaPublisher(w, WithPublishTimeout(20*time.Millisecond))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.PublishOrderPlaced(ctx, &models.Order{OrderNumber: "ORD-1"})

	assert.NoError(t, w.callerErr, "write must not see the caller's cancellation")
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestNopPublisher(t *testing.T) {
	var p NopPublisher
	assert.NoError(t, p.PublishOrderPlaced(context.Background(), &models.Order{}))
	assert.NoError(t, p.PublishOrderStatusChanged(context.Background(), &models.Order{}))
	assert.NoError(t, p.Close())
}
