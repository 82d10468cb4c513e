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
)

type fakeReader struct {
	messages []kafka.Message
	err      error
	closed   bool
}

func (r *fakeReader) FetchMessage(ctx context.Context) (kafka.Message, error) {
	if len(r.messages) == 0 {
		if r.err != nil {
			return kafka.Message{}, r.err
		}
		<-ctx.Done()
		return kafka.Message{}, ctx.Err()
	}
	msg := r.messages[0]
	r.messages = r.messages[1:]
	return msg, nil
}

func (r *fakeReader) Close() error {
	r.closed = true
	return nil
}

func dlqMessage(t *testing.T, offset int64, m DLQMessage) kafka.Message {
	t.Helper()
	value, err := json.Marshal(m)
	require.NoError(t, err)
	return kafka.Message{Key: []byte(m.BookingReference), Value: value, Offset: offset}
}

func TestDLQReader_Preview(t *testing.T) {
	failedAt := time.Date(2026, 3, 14, 10, 0, 0, 0, time.UTC)

	t.Run("reads until timeout", func(t *testing.T) {
		fr := &fakeReader{messages: []kafka.Message{
			dlqMessage(t, 0, DLQMessage{Notification: "booking_created", Channel: "customer_email", BookingReference: "CC-1", ErrorMessage: "smtp down", FailedAt: failedAt}),
			{Key: []byte("CC-2"), Value: []byte("not json"), Offset: 1},
		}}
		r := newDLQReader(fr)

		ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
		defer cancel()

		entries, err := r.Preview(ctx, 0)
		require.NoError(t, err)
		require.Len(t, entries, 2)

		assert.Equal(t, "customer_email", entries[0].Channel)
		assert.Equal(t, "smtp down", entries[0].ErrorMessage)
		assert.False(t, entries[0].Malformed)

		assert.True(t, entries[1].Malformed)
		assert.Equal(t, "CC-2", entries[1].BookingReference)
		assert.Equal(t, int64(1), entries[1].Offset)

		require.NoError(t, r.Close())
		assert.True(t, fr.closed)
	})

	t.Run("stops at limit", func(t *testing.T) {
		fr := &fakeReader{messages: []kafka.Message{
			dlqMessage(t, 0, DLQMessage{BookingReference: "CC-1"}),
			dlqMessage(t, 1, DLQMessage{BookingReference: "CC-2"}),
			dlqMessage(t, 2, DLQMessage{BookingReference: "CC-3"}),
		}}

		entries, err := newDLQReader(fr).Preview(context.Background(), 2)
		require.NoError(t, err)
		assert.Len(t, entries, 2)
		assert.Len(t, fr.messages, 1)
	})

	t.Run("broker error", func(t *testing.T) {
		fr := &fakeReader{err: errors.New("leader not available")}

		_, err := newDLQReader(fr).Preview(context.Background(), 10)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "leader not available")
	})
}
