package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
)

// EventTypeBookingCreated тип integration события о новом бронировании
const EventTypeBookingCreated = "booking.created"

// BookingCreatedEvent payload события. Контактные данные клиента в событие не попадают.
type BookingCreatedEvent struct {
	EventID          string    `json:"event_id"`
	EventType        string    `json:"event_type"`
	EventVersion     int       `json:"event_version"`
	OccurredAt       time.Time `json:"occurred_at"`
	BookingReference string    `json:"booking_reference"`
	PackageType      string    `json:"package_type"`
	Status           string    `json:"status"`
	AmountMinor      int64     `json:"amount_minor"`
	Currency         string    `json:"currency"`
	CreatedAt        time.Time `json:"created_at"`
}

// BookingEventPublisher публикует booking.created в Kafka
type BookingEventPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
	now    func() time.Time
}

// NewBookingEventPublisher создаёт новый Kafka publisher для событий бронирования
func NewBookingEventPublisher(logger *zap.Logger, brokers []string, topic string) *BookingEventPublisher {
	return newBookingEventPublisher(logger, newWriter(brokers, topic), topic)
}

func newBookingEventPublisher(logger *zap.Logger, writer messageWriter, topic string) *BookingEventPublisher {
	return &BookingEventPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

// PublishBookingCreated публикует событие; ключ сообщения booking reference
func (p *BookingEventPublisher) PublishBookingCreated(ctx context.Context, b repository.Booking) error {
	event := BookingCreatedEvent{
		EventID:          uuid.NewString(),
		EventType:        EventTypeBookingCreated,
		EventVersion:     1,
		OccurredAt:       p.now(),
		BookingReference: b.Reference,
		PackageType:      string(b.PackageType),
		Status:           string(b.Status),
		AmountMinor:      b.AmountMinor,
		Currency:         b.Currency,
		CreatedAt:        b.CreatedAt,
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal booking created event: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(b.Reference),
		Value: value,
		Headers: []kafka.Header{
			{Key: "event_type", Value: []byte(EventTypeBookingCreated)},
			{Key: "event_id", Value: []byte(event.EventID)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish booking created event",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("booking_reference", b.Reference),
		)
		return fmt.Errorf("failed to publish booking created event: %w", err)
	}

	p.logger.Info("booking created event published",
		zap.String("topic", p.topic),
		zap.String("event_id", event.EventID),
		zap.String("booking_reference", b.Reference),
	)
	return nil
}

// Close закрывает Kafka writer
func (p *BookingEventPublisher) Close() error {
	return p.writer.Close()
}

// NoopBookingEventPublisher используется, когда Kafka выключена
type NoopBookingEventPublisher struct {
	logger *zap.Logger
}

// NewNoopBookingEventPublisher создаёт no-op publisher
func NewNoopBookingEventPublisher(logger *zap.Logger) *NoopBookingEventPublisher {
	return &NoopBookingEventPublisher{logger: logger}
}

// PublishBookingCreated только логирует
func (p *NoopBookingEventPublisher) PublishBookingCreated(ctx context.Context, b repository.Booking) error {
	p.logger.Debug("kafka disabled, booking created event not published",
		zap.String("booking_reference", b.Reference),
	)
	return nil
}

var (
	_ service.BookingEventPublisher = (*BookingEventPublisher)(nil)
	_ service.BookingEventPublisher = (*NoopBookingEventPublisher)(nil)
)
