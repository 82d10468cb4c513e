package notification

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/chat"
	"github.com/shestoi/coachcarter/internal/email"
	"github.com/shestoi/coachcarter/internal/metrics"
	"github.com/shestoi/coachcarter/internal/repository"
	"github.com/shestoi/coachcarter/internal/service"
	"github.com/shestoi/coachcarter/internal/templates"
)

// Каналы доставки
const (
	ChannelCustomerEmail = "customer_email"
	ChannelStaffEmail    = "staff_email"
	ChannelChat          = "chat"
)

// Типы уведомлений
const (
	BookingCreated        = "booking_created"
	AvailabilityRequest   = "availability_request"
	AvailabilitySubmitted = "availability_submitted"
)

// DeadLetter запись о неотправленном уведомлении для ручного повтора
type DeadLetter struct {
	Notification     string
	Channel          string
	BookingReference string
	Error            string
	FailedAt         time.Time
}

// DeadLetterPublisher куда складываются сбои доставки (Kafka DLQ или лог)
type DeadLetterPublisher interface {
	PublishFailedNotification(ctx context.Context, letter DeadLetter) error
}

// Config адреса и таймауты
type Config struct {
	// MailFrom отправитель писем клиенту
	MailFrom string
	// SystemMailFrom отправитель писем staff
	SystemMailFrom string
	// StaffEmail пустой отключает письма staff
	StaffEmail string
	// ChannelTimeout ограничение на один канал
	ChannelTimeout time.Duration
}

// Dispatcher рассылает уведомления по каналам независимо друг от друга
type Dispatcher struct {
	logger   *zap.Logger
	renderer *templates.Renderer
	mailer   email.Sender
	chat     chat.Sender
	dlq      DeadLetterPublisher
	cfg      Config
}

// NewDispatcher создаёт Dispatcher. chatSender == nil означает, что чат не настроен
// и алерт пропускается без ошибки. dlq может быть nil.
func NewDispatcher(
	logger *zap.Logger,
	renderer *templates.Renderer,
	mailer email.Sender,
	chatSender chat.Sender,
	dlq DeadLetterPublisher,
	cfg Config,
) *Dispatcher {
	if cfg.ChannelTimeout <= 0 {
		cfg.ChannelTimeout = 20 * time.Second
	}
	return &Dispatcher{
		logger:   logger,
		renderer: renderer,
		mailer:   mailer,
		chat:     chatSender,
		dlq:      dlq,
		cfg:      cfg,
	}
}

// NotifyBookingCreated подтверждение клиенту, алерт staff и алерт в чат.
// Возвращает errors.Join из *DeliveryError упавших каналов.
func (d *Dispatcher) NotifyBookingCreated(ctx context.Context, b repository.Booking) error {
	return errors.Join(
		d.deliver(ctx, BookingCreated, ChannelCustomerEmail, b.Reference, func(ctx context.Context) error {
			msg, err := d.renderer.CustomerConfirmation(b)
			if err != nil {
				return err
			}
			return d.mailer.Send(ctx, email.Message{
				From:    d.cfg.MailFrom,
				To:      b.CustomerEmail,
				Subject: msg.Subject,
				HTML:    msg.HTML,
			})
		}),
		d.sendStaff(ctx, BookingCreated, b.Reference, b.CustomerEmail, func() (templates.Email, error) {
			return d.renderer.StaffBookingAlert(b)
		}),
		d.sendChat(ctx, BookingCreated, b.Reference, bookingAlert(b)),
	)
}

// SendAvailabilityRequest отложенное письмо клиенту со ссылкой на форму
func (d *Dispatcher) SendAvailabilityRequest(ctx context.Context, b repository.Booking) error {
	return d.deliver(ctx, AvailabilityRequest, ChannelCustomerEmail, b.Reference, func(ctx context.Context) error {
		msg, err := d.renderer.AvailabilityRequest(b)
		if err != nil {
			return err
		}
		return d.mailer.Send(ctx, email.Message{
			From:    d.cfg.MailFrom,
			To:      b.CustomerEmail,
			Subject: msg.Subject,
			HTML:    msg.HTML,
		})
	})
}

// NotifyAvailabilitySubmitted письмо и чат-алерт staff, подтверждение клиенту
func (d *Dispatcher) NotifyAvailabilitySubmitted(ctx context.Context, s service.AvailabilitySummary) error {
	return errors.Join(
		d.sendStaff(ctx, AvailabilitySubmitted, s.BookingReference, s.CustomerEmail, func() (templates.Email, error) {
			return d.renderer.StaffAvailabilityReceived(s)
		}),
		d.sendChat(ctx, AvailabilitySubmitted, s.BookingReference, availabilityAlert(s)),
		d.deliver(ctx, AvailabilitySubmitted, ChannelCustomerEmail, s.BookingReference, func(ctx context.Context) error {
			msg, err := d.renderer.CustomerAvailabilityReceived(s)
			if err != nil {
				return err
			}
			return d.mailer.Send(ctx, email.Message{
				From:    d.cfg.MailFrom,
				To:      s.CustomerEmail,
				Subject: msg.Subject,
				HTML:    msg.HTML,
			})
		}),
	)
}

func (d *Dispatcher) sendStaff(ctx context.Context, notification, reference, replyTo string, render func() (templates.Email, error)) error {
	if d.cfg.StaffEmail == "" {
		d.skip(notification, ChannelStaffEmail, reference)
		return nil
	}
	return d.deliver(ctx, notification, ChannelStaffEmail, reference, func(ctx context.Context) error {
		msg, err := render()
		if err != nil {
			return err
		}
		return d.mailer.Send(ctx, email.Message{
			From:    d.cfg.SystemMailFrom,
			To:      d.cfg.StaffEmail,
			ReplyTo: replyTo,
			Subject: msg.Subject,
			HTML:    msg.HTML,
		})
	})
}

func (d *Dispatcher) sendChat(ctx context.Context, notification, reference string, msg chat.Message) error {
	if d.chat == nil {
		d.skip(notification, ChannelChat, reference)
		return nil
	}
	return d.deliver(ctx, notification, ChannelChat, reference, func(ctx context.Context) error {
		return d.chat.Send(ctx, msg)
	})
}

func (d *Dispatcher) skip(notification, channel, reference string) {
	metrics.NotificationDeliveries.WithLabelValues(notification, channel, "skipped").Inc()
	d.logger.Debug("notification channel not configured, skipping",
		zap.String("notification", notification),
		zap.String("channel", channel),
		zap.String("booking_reference", reference),
	)
}

// deliver выполняет один канал со своим таймаутом. Сбой уходит в лог, метрики и DLQ.
func (d *Dispatcher) deliver(ctx context.Context, notification, channel, reference string, send func(ctx context.Context) error) error {
	sendCtx, cancel := context.WithTimeout(ctx, d.cfg.ChannelTimeout)
	defer cancel()

	err := send(sendCtx)
	if err == nil {
		metrics.NotificationDeliveries.WithLabelValues(notification, channel, "sent").Inc()
		d.logger.Info("notification sent",
			zap.String("notification", notification),
			zap.String("channel", channel),
			zap.String("booking_reference", reference),
		)
		return nil
	}

	metrics.NotificationDeliveries.WithLabelValues(notification, channel, "failed").Inc()
	deliveryErr := &DeliveryError{
		Notification:     notification,
		Channel:          channel,
		BookingReference: reference,
		Err:              err,
	}
	d.logger.Error("notification delivery failed",
		zap.Error(err),
		zap.String("notification", notification),
		zap.String("channel", channel),
		zap.String("booking_reference", reference),
	)

	if d.dlq != nil {
		letter := DeadLetter{
			Notification:     notification,
			Channel:          channel,
			BookingReference: reference,
			Error:            err.Error(),
			FailedAt:         time.Now().UTC(),
		}
		// контекст канала мог истечь, DLQ публикуем с родительским
		if dlqErr := d.dlq.PublishFailedNotification(ctx, letter); dlqErr != nil {
			d.logger.Error("failed to publish notification to DLQ",
				zap.Error(dlqErr),
				zap.String("booking_reference", reference),
				zap.String("channel", channel),
			)
		}
	}

	return deliveryErr
}

func bookingAlert(b repository.Booking) chat.Message {
	text := "New Booking"
	if b.PackageType.RequiresVerification() {
		text = "New Pass Guarantee"
	}
	return chat.Message{
		Text: text,
		Fields: []chat.Field{
			{Title: "Ref", Value: b.Reference},
			{Title: "Package", Value: service.PackageDisplayName(b.PackageType, b.Metadata.Hours)},
			{Title: "Amount", Value: templates.FormatAmount(b.AmountMinor, b.Currency)},
			{Title: "Customer", Value: b.CustomerName},
			{Title: "Email", Value: b.CustomerEmail},
			{Title: "Licence", Value: orDefault(b.Metadata.ProvisionalLicence, "N/A")},
			{Title: "Test", Value: orDefault(b.Metadata.TestStatus, "N/A")},
		},
	}
}

func availabilityAlert(s service.AvailabilitySummary) chat.Message {
	return chat.Message{
		Text: "Availability received — " + s.BookingReference,
		Fields: []chat.Field{
			{Title: "Slots", Value: fmt.Sprintf("%d (%d preferred)", s.TotalSlots(), s.PreferredSlots)},
			{Title: "Frequency", Value: orDefault(s.FrequencyPreference, "Not specified")},
			{Title: "Notes", Value: orDefault(s.Notes, "None")},
		},
	}
}

func orDefault(v, def string) string {
	if v == "" {
		return def
	}
	return v
}

var (
	_ service.BookingNotifier      = (*Dispatcher)(nil)
	_ service.AvailabilityNotifier = (*Dispatcher)(nil)
)
