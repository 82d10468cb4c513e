package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/notification"
)

// DLQMessage уведомление, которое не удалось доставить
type DLQMessage struct {
	Notification     string    `json:"notification"`
	Channel          string    `json:"channel"`
	BookingReference string    `json:"booking_reference"`
	ErrorMessage     string    `json:"error_message"`
	FailedAt         time.Time `json:"failed_at"`
}

// DLQPublisher публикует сбои доставки в Dead Letter Queue для ручного повтора
type DLQPublisher struct {
	logger *zap.Logger
	writer messageWriter
	topic  string
}

// NewDLQPublisher создаёт новый DLQ publisher
func NewDLQPublisher(logger *zap.Logger, brokers []string, topic string) *DLQPublisher {
	return newDLQPublisher(logger, newWriter(brokers, topic), topic)
}

func newDLQPublisher(logger *zap.Logger, writer messageWriter, topic string) *DLQPublisher {
	return &DLQPublisher{
		logger: logger,
		writer: writer,
		topic:  topic,
	}
}

// PublishFailedNotification публикует сбой; ключ booking reference, чтобы сбои одного бронирования шли по порядку
func (p *DLQPublisher) PublishFailedNotification(ctx context.Context, letter notification.DeadLetter) error {
	payload, err := json.Marshal(DLQMessage{
		Notification:     letter.Notification,
		Channel:          letter.Channel,
		BookingReference: letter.BookingReference,
		ErrorMessage:     letter.Error,
		FailedAt:         letter.FailedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to marshal DLQ message: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(letter.BookingReference),
		Value: payload,
	}
	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.Error("failed to publish message to DLQ",
			zap.Error(err),
			zap.String("topic", p.topic),
			zap.String("booking_reference", letter.BookingReference),
			zap.String("channel", letter.Channel),
		)
		return err
	}

	p.logger.Info("message published to DLQ",
		zap.String("topic", p.topic),
		zap.String("booking_reference", letter.BookingReference),
		zap.String("notification", letter.Notification),
		zap.String("channel", letter.Channel),
	)
	return nil
}

// Close закрывает writer
func (p *DLQPublisher) Close() error {
	p.logger.Info("closing DLQ publisher")
	return p.writer.Close()
}

// NoopDLQPublisher без Kafka сбой остаётся только в логе
type NoopDLQPublisher struct {
	logger *zap.Logger
}

// NewNoopDLQPublisher создаёт no-op DLQ publisher
func NewNoopDLQPublisher(logger *zap.Logger) *NoopDLQPublisher {
	return &NoopDLQPublisher{logger: logger}
}

// PublishFailedNotification только логирует
func (p *NoopDLQPublisher) PublishFailedNotification(ctx context.Context, letter notification.DeadLetter) error {
	p.logger.Warn("kafka disabled, failed notification kept in log only",
		zap.String("booking_reference", letter.BookingReference),
		zap.String("notification", letter.Notification),
		zap.String("channel", letter.Channel),
		zap.String("error_message", letter.Error),
	)
	return nil
}

var (
	_ notification.DeadLetterPublisher = (*DLQPublisher)(nil)
	_ notification.DeadLetterPublisher = (*NoopDLQPublisher)(nil)
)
