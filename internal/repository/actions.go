package repository

import (
	"context"
	"errors"
	"time"
)

// ActionKind тип отложенного действия
type ActionKind string

const (
	// ActionBookingNotifications рассылка уведомлений о новом бронировании (due сразу)
	ActionBookingNotifications ActionKind = "booking_notifications"
	// ActionAvailabilityRequest письмо с запросом доступности (pass guarantee, через 5 минут)
	ActionAvailabilityRequest ActionKind = "availability_request"
)

// ScheduledAction персистентное действие по бронированию.
// Пара (BookingReference, Kind) уникальна, поэтому действие не может быть запланировано дважды.
type ScheduledAction struct {
	ID               string
	BookingReference string
	Kind             ActionKind
	DueAt            time.Time
	Attempts         int
	LastError        string
	// FiredAt маркер выполнения: после него действие больше не выбирается sweep-ом
	FiredAt   *time.Time
	CreatedAt time.Time
}

// ErrActionNotFound возвращается, когда действие не найдено
var ErrActionNotFound = errors.New("scheduled action not found")

//go:generate go run github.com/vektra/mockery/v2@v2.53.5 --name=ActionRepository --dir=. --output=./mocks --outpkg=mocks

// ActionRepository durable очередь отложенных действий (аналог outbox)
type ActionRepository interface {
	// ScheduleAction сохраняет действие. created=false, если действие того же Kind
	// для этого бронирования уже существует (в любом состоянии).
	ScheduleAction(ctx context.Context, action ScheduledAction) (created bool, err error)

	// ClaimDueActions атомарно забирает до limit действий с DueAt <= now, без маркера fired
	// и без активной аренды. Забранным действиям ставится аренда до now+lease и Attempts+1,
	// так что другой экземпляр сервиса их не возьмёт, а после падения процесса они вернутся в очередь.
	ClaimDueActions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]ScheduledAction, error)

	// CompleteAction ставит маркер fired. lastErr сохраняется, если действие закрыто с ошибкой.
	CompleteAction(ctx context.Context, id string, firedAt time.Time, lastErr string) error

	// RetryAction снимает аренду и откладывает следующую попытку до retryAt
	RetryAction(ctx context.Context, id string, retryAt time.Time, lastErr string) error

	// GetAction возвращает действие по бронированию и типу, ErrActionNotFound если нет
	GetAction(ctx context.Context, reference string, kind ActionKind) (ScheduledAction, error)
}
