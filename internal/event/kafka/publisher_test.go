package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/notification"
	"github.com/shestoi/coachcarter/internal/repository"
)

type fakeWriter struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
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

func TestBookingEventPublisher_PublishBookingCreated(t *testing.T) {
	w := &fakeWriter{}
	p := newBookingEventPublisher(zap.NewNop(), w, "booking.created")
	createdAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	err := p.PublishBookingCreated(context.Background(), repository.Booking{
		Reference:     "CC-PG000001",
		CustomerEmail: "jane@example.com",
		PackageType:   repository.PackagePassGuarantee,
		Status:        repository.StatusPendingVerification,
		AmountMinor:   120000,
		Currency:      "gbp",
		CreatedAt:     createdAt,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)

	msg := w.messages[0]
	assert.Equal(t, "CC-PG000001", string(msg.Key))

	var event BookingCreatedEvent
	require.NoError(t, json.Unmarshal(msg.Value, &event))
	assert.NotEmpty(t, event.EventID)
	assert.Equal(t, EventTypeBookingCreated, event.EventType)
	assert.Equal(t, "pass_guarantee", event.PackageType)
	assert.Equal(t, "PAID_PENDING_VERIFICATION", event.Status)
	assert.Equal(t, int64(120000), event.AmountMinor)
	assert.True(t, createdAt.Equal(event.CreatedAt))
	assert.NotContains(t, string(msg.Value), "jane@example.com")

	require.NoError(t, p.Close())
	assert.True(t, w.closed)
}

func TestBookingEventPublisher_WriteError(t *testing.T) {
	p := newBookingEventPublisher(zap.NewNop(), &fakeWriter{err: errors.New("leader not available")}, "booking.created")
	require.Error(t, p.PublishBookingCreated(context.Background(), repository.Booking{Reference: "CC-1"}))
}

func TestDLQPublisher_PublishFailedNotification(t *testing.T) {
	w := &fakeWriter{}
	p := newDLQPublisher(zap.NewNop(), w, "booking.notification.dlq")
	failedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	err := p.PublishFailedNotification(context.Background(), notification.DeadLetter{
		Notification:     notification.BookingCreated,
		Channel:          notification.ChannelChat,
		BookingReference: "CC-PG000001",
		Error:            "slack: 500",
		FailedAt:         failedAt,
	})
	require.NoError(t, err)
	require.Len(t, w.messages, 1)
	assert.Equal(t, "CC-PG000001", string(w.messages[0].Key))

	var msg DLQMessage
	require.NoError(t, json.Unmarshal(w.messages[0].Value, &msg))
	assert.Equal(t, "chat", msg.Channel)
	assert.Equal(t, "slack: 500", msg.ErrorMessage)
	assert.True(t, failedAt.Equal(msg.FailedAt))
}

func TestNoopPublishers(t *testing.T) {
	require.NoError(t, NewNoopBookingEventPublisher(zap.NewNop()).PublishBookingCreated(context.Background(), repository.Booking{Reference: "CC-1"}))
	require.NoError(t, NewNoopDLQPublisher(zap.NewNop()).PublishFailedNotification(context.Background(), notification.DeadLetter{}))
}
