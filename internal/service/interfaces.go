package service

import (
	"context"
	"time"

	"github.com/shestoi/coachcarter/internal/repository"
)

// EventTypeCheckoutSessionCompleted тип события завершения checkout сессии
const EventTypeCheckoutSessionCompleted = "checkout.session.completed"

// ProviderEvent проверенное событие от провайдера платежей
type ProviderEvent struct {
	ID   string
	Type string
	// Checkout заполнен только для checkout.session.completed
	Checkout *CheckoutCompleted
}

// CheckoutCompleted данные завершённой checkout сессии, нужные для бронирования
type CheckoutCompleted struct {
	SessionID     string
	CustomerEmail string
	CustomerName  string
	AmountTotal   int64
	Currency      string
	PaymentStatus string
	Metadata      map[string]string
	// CustomFields значения custom fields формы checkout (key -> value)
	CustomFields map[string]string
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=EventVerifier --dir=. --output=./mocks --outpkg=mocks

// EventVerifier проверяет подпись webhook-а на сыром теле запроса
type EventVerifier interface {
	Verify(payload []byte, signatureHeader string) (ProviderEvent, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ActionScheduler --dir=. --output=./mocks --outpkg=mocks

// ActionScheduler durable планировщик действий по бронированию
type ActionScheduler interface {
	// ScheduleOnce планирует действие kind не раньше чем через delay.
	// Возвращает false, если такое действие для бронирования уже было запланировано.
	ScheduleOnce(ctx context.Context, reference string, kind repository.ActionKind, delay time.Duration) (bool, error)
	// Wake просит sweep не ждать следующего тика
	Wake()
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentProvider --dir=. --output=./mocks --outpkg=mocks

// PaymentProvider запрос статуса оплаты checkout сессии у провайдера
type PaymentProvider interface {
	CheckoutPaymentStatus(ctx context.Context, sessionID string) (string, error)
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=PaymentStatusCache --dir=. --output=./mocks --outpkg=mocks

// PaymentStatusCache кэш статусов оплаты (Redis или no-op)
type PaymentStatusCache interface {
	GetPaymentStatus(ctx context.Context, sessionID string) (status string, found bool, err error)
	SetPaymentStatus(ctx context.Context, sessionID, status string, ttl time.Duration) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=AvailabilityNotifier --dir=. --output=./mocks --outpkg=mocks

// AvailabilityNotifier уведомляет staff и клиента о присланной доступности
type AvailabilityNotifier interface {
	NotifyAvailabilitySubmitted(ctx context.Context, summary AvailabilitySummary) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=BookingNotifier --dir=. --output=./mocks --outpkg=mocks

// BookingNotifier рассылка уведомлений по бронированию.
// Каналы независимы: ошибка одного не мешает остальным, возвращается объединённая ошибка упавших каналов.
type BookingNotifier interface {
	NotifyBookingCreated(ctx context.Context, booking repository.Booking) error
	SendAvailabilityRequest(ctx context.Context, booking repository.Booking) error
}

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=BookingEventPublisher --dir=. --output=./mocks --outpkg=mocks

// BookingEventPublisher публикует integration событие booking.created (Kafka или no-op)
type BookingEventPublisher interface {
	PublishBookingCreated(ctx context.Context, booking repository.Booking) error
}
