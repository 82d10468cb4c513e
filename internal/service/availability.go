package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/samber/lo"
	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/repository"
)

// Значения слота в форме доступности
const (
	SlotAvailable = "available"
	SlotPreferred = "preferred"
)

// AvailabilitySubmission форма доступности клиента.
// Slots: ключ слота (например "mon_morning") -> available | preferred | что угодно ещё (не учитывается).
type AvailabilitySubmission struct {
	BookingReference    string
	Email               string
	Slots               map[string]string
	FrequencyPreference string
	Notes               string
}

// AvailabilitySummary сводка для staff и подтверждения клиенту
type AvailabilitySummary struct {
	BookingReference    string
	CustomerEmail       string
	CustomerName        string
	AvailableSlots      int
	PreferredSlots      int
	FrequencyPreference string
	Notes               string
}

// TotalSlots все выбранные слоты
func (s AvailabilitySummary) TotalSlots() int {
	return s.AvailableSlots + s.PreferredSlots
}

// AvailabilityService приём формы доступности. Бронирование только читается.
type AvailabilityService struct {
	logger   *zap.Logger
	repo     repository.BookingRepository
	notifier AvailabilityNotifier
}

// NewAvailabilityService создаёт AvailabilityService
func NewAvailabilityService(logger *zap.Logger, repo repository.BookingRepository, notifier AvailabilityNotifier) *AvailabilityService {
	return &AvailabilityService{
		logger:   logger,
		repo:     repo,
		notifier: notifier,
	}
}

// Submit проверяет, что бронирование существует и email совпадает, и рассылает уведомления.
// Несовпадение email неотличимо от отсутствия бронирования (repository.ErrNotFound).
// Сбой уведомлений не делает отправку формы неуспешной.
func (s *AvailabilityService) Submit(ctx context.Context, sub AvailabilitySubmission) (AvailabilitySummary, error) {
	ref := strings.TrimSpace(sub.BookingReference)
	email := strings.TrimSpace(sub.Email)
	if ref == "" || email == "" {
		return AvailabilitySummary{}, fmt.Errorf("%w: booking reference and email are required", ErrInvalidSubmission)
	}
	if len(sub.Slots) == 0 {
		return AvailabilitySummary{}, fmt.Errorf("%w: at least one slot is required", ErrInvalidSubmission)
	}

	b, err := s.repo.FindByReference(ctx, ref)
	if err != nil {
		return AvailabilitySummary{}, fmt.Errorf("failed to find booking %s: %w", ref, err)
	}
	if !strings.EqualFold(b.CustomerEmail, email) {
		s.logger.Warn("availability submitted with mismatching email",
			zap.String("booking_reference", ref),
		)
		return AvailabilitySummary{}, fmt.Errorf("failed to find booking %s: %w", ref, repository.ErrNotFound)
	}

	values := lo.Values(sub.Slots)
	summary := AvailabilitySummary{
		BookingReference:    b.Reference,
		CustomerEmail:       b.CustomerEmail,
		CustomerName:        b.CustomerName,
		AvailableSlots:      lo.CountBy(values, func(v string) bool { return v == SlotAvailable }),
		PreferredSlots:      lo.CountBy(values, func(v string) bool { return v == SlotPreferred }),
		FrequencyPreference: sub.FrequencyPreference,
		Notes:               sub.Notes,
	}

	if summary.TotalSlots() == 0 {
		return AvailabilitySummary{}, fmt.Errorf("%w: no available or preferred slots", ErrInvalidSubmission)
	}

	if err := s.notifier.NotifyAvailabilitySubmitted(ctx, summary); err != nil {
		s.logger.Warn("availability notifications partially failed",
			zap.Error(err),
			zap.String("booking_reference", b.Reference),
		)
	}

	s.logger.Info("availability submitted",
		zap.String("booking_reference", b.Reference),
		zap.Int("available_slots", summary.AvailableSlots),
		zap.Int("preferred_slots", summary.PreferredSlots),
	)
	return summary, nil
}
