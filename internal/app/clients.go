package app

import (
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	platformshutdown "github.com/shestoi/coachcarter/platform/shutdown"

	"github.com/shestoi/coachcarter/internal/chat"
	"github.com/shestoi/coachcarter/internal/config"
	"github.com/shestoi/coachcarter/internal/email"
	kafkaevent "github.com/shestoi/coachcarter/internal/event/kafka"
	"github.com/shestoi/coachcarter/internal/notification"
	"github.com/shestoi/coachcarter/internal/service"
)

// newOutboundClient HTTP клиент для внешних API: span на каждый запрос
func newOutboundClient(timeout time.Duration) *http.Client {
	return &http.Client{
		Timeout:   timeout,
		Transport: otelhttp.NewTransport(http.DefaultTransport),
	}
}

func newMailer(cfg config.Config, logger *zap.Logger) (email.Sender, error) {
	if cfg.SMTP.Host == "" {
		logger.Warn("SMTP is not configured, emails will only be logged")
		return email.NewNoOpSender(logger), nil
	}

	sender, err := email.NewSMTPSender(logger, email.SMTPConfig{
		Host:     cfg.SMTP.Host,
		Port:     cfg.SMTP.Port,
		Username: cfg.SMTP.User,
		Password: cfg.SMTP.Password,
	})
	if err != nil {
		return nil, fmt.Errorf("create smtp sender: %w", err)
	}
	return sender, nil
}

// newChatSender nil, если ни один чат не настроен: dispatcher тогда пропускает алерты
func newChatSender(cfg config.Config, logger *zap.Logger, client *http.Client) chat.Sender {
	var senders chat.MultiSender
	if cfg.SlackWebhookURL != "" {
		senders = append(senders, chat.NewSlackSender(logger, cfg.SlackWebhookURL, client))
	}
	if cfg.TelegramBotToken != "" {
		senders = append(senders, chat.NewTelegramSender(logger, cfg.TelegramBotToken, cfg.TelegramChatID,
			chat.WithTelegramHTTPClient(client)))
	}

	switch len(senders) {
	case 0:
		logger.Info("No chat configured, staff chat alerts disabled")
		return nil
	case 1:
		return senders[0]
	default:
		return senders
	}
}

// newPublishers Kafka writer-ы для booking.created и DLQ уведомлений или no-op
func newPublishers(
	cfg config.Config,
	logger *zap.Logger,
	shutdownMgr *platformshutdown.Manager,
) (service.BookingEventPublisher, notification.DeadLetterPublisher) {
	if !cfg.Kafka.Enabled {
		logger.Info("Kafka is disabled, integration events and notification DLQ are no-op")
		return kafkaevent.NewNoopBookingEventPublisher(logger), kafkaevent.NewNoopDLQPublisher(logger)
	}

	logger.Info("Kafka publishers enabled",
		zap.Strings("brokers", cfg.Kafka.Brokers),
		zap.String("events_topic", cfg.Kafka.BookingEventsTopic),
		zap.String("dlq_topic", cfg.Kafka.NotificationDLQTopic),
	)
	events := kafkaevent.NewBookingEventPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.BookingEventsTopic)
	dlq := kafkaevent.NewDLQPublisher(logger, cfg.Kafka.Brokers, cfg.Kafka.NotificationDLQTopic)
	shutdownMgr.Add("kafka_events_writer", platformshutdown.CloseWithError(events))
	shutdownMgr.Add("kafka_dlq_writer", platformshutdown.CloseWithError(dlq))
	return events, dlq
}
