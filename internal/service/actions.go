package service

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
	platformobservability "github.com/shestoi/coachcarter/platform/observability"
)

// BookingActions обработчики отложенных действий, их вызывает scheduler.
// action_id и booking_reference приходят в логи из ctx, их кладёт scheduler.
// Возвращённая ошибка означает "повторить позже"; сбои доставки по каналам
// логируются внутри dispatcher-а и повтором не лечатся.
type BookingActions struct {
	logger    *zap.Logger
	repo      repository.BookingRepository
	notifier  BookingNotifier
	publisher BookingEventPublisher
}

// NewBookingActions создаёт обработчики действий
func NewBookingActions(
	logger *zap.Logger,
	repo repository.BookingRepository,
	notifier BookingNotifier,
	publisher BookingEventPublisher,
) *BookingActions {
	return &BookingActions{
		logger:    logger,
		repo:      repo,
		notifier:  notifier,
		publisher: publisher,
	}
}

// SendBookingNotifications клиент, staff и чат, затем событие booking.created
func (a *BookingActions) SendBookingNotifications(ctx context.Context, action repository.ScheduledAction) error {
	b, ok, err := a.loadBooking(ctx, action)
	if err != nil || !ok {
		return err
	}

	if err := a.notifier.NotifyBookingCreated(ctx, b); err != nil {
		platformobservability.L(ctx, a.logger).Warn("booking notifications partially failed", zap.Error(err))
	}

	if err := a.publisher.PublishBookingCreated(ctx, b); err != nil {
		platformobservability.L(ctx, a.logger).Warn("failed to publish booking created event", zap.Error(err))
	}
	return nil
}

// SendAvailabilityRequest письмо со ссылкой на форму доступности
func (a *BookingActions) SendAvailabilityRequest(ctx context.Context, action repository.ScheduledAction) error {
	b, ok, err := a.loadBooking(ctx, action)
	if err != nil || !ok {
		return err
	}

	if err := a.notifier.SendAvailabilityRequest(ctx, b); err != nil {
		platformobservability.L(ctx, a.logger).Warn("availability request delivery failed", zap.Error(err))
	}
	return nil
}

// loadBooking ok=false без ошибки, если бронирования нет: повтор не поможет
func (a *BookingActions) loadBooking(ctx context.Context, action repository.ScheduledAction) (repository.Booking, bool, error) {
	b, err := a.repo.FindByReference(ctx, action.BookingReference)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			platformobservability.L(ctx, a.logger).Error("scheduled action for unknown booking, skipping")
			return repository.Booking{}, false, nil
		}
		return repository.Booking{}, false, fmt.Errorf("failed to load booking %s: %w", action.BookingReference, err)
	}
	return b, true, nil
}
