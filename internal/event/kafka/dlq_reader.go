package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/segmentio/kafka-go"
)

// messageReader часть *kafka.Reader, которая нужна DLQReader
type messageReader interface {
	FetchMessage(ctx context.Context) (kafka.Message, error)
	Close() error
}

// DLQEntry сообщение DLQ с позицией в топике
type DLQEntry struct {
	DLQMessage
	Partition int
	Offset    int64
	// Malformed тело не разобралось как DLQMessage
	Malformed bool
}

// DLQReader просмотр DLQ без коммита offset-ов: повторный просмотр видит те же сообщения
type DLQReader struct {
	reader messageReader
}

// NewDLQReader читает topic с начала через отдельную consumer group
func NewDLQReader(brokers []string, topic, groupID string) *DLQReader {
	return newDLQReader(kafka.NewReader(kafka.ReaderConfig{
		Brokers:     brokers,
		GroupID:     groupID,
		Topic:       topic,
		StartOffset: kafka.FirstOffset,
		MinBytes:    1,
		MaxBytes:    10e6, // 10MB
	}))
}

func newDLQReader(reader messageReader) *DLQReader {
	return &DLQReader{reader: reader}
}

// Preview читает до limit сообщений. Окончание ctx (таймаут) означает, что новых сообщений нет.
func (r *DLQReader) Preview(ctx context.Context, limit int) ([]DLQEntry, error) {
	var entries []DLQEntry
	for limit <= 0 || len(entries) < limit {
		msg, err := r.reader.FetchMessage(ctx)
		if err != nil {
			if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
				return entries, nil
			}
			return entries, fmt.Errorf("failed to fetch DLQ message: %w", err)
		}

		entry := DLQEntry{Partition: msg.Partition, Offset: msg.Offset}
		if err := json.Unmarshal(msg.Value, &entry.DLQMessage); err != nil {
			entry.Malformed = true
			entry.BookingReference = string(msg.Key)
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

// Close закрывает reader
func (r *DLQReader) Close() error {
	return r.reader.Close()
}
