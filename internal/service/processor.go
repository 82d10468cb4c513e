package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	platformobservability "github.com/shestoi/coachcarter/platform/observability"

	"github.com/shestoi/coachcarter/internal/metrics"
	"github.com/shestoi/coachcarter/internal/repository"
)

// DefaultFollowUpDelay через сколько после бронирования pass guarantee уходит запрос доступности
const DefaultFollowUpDelay = 5 * time.Minute

// maxReferenceAttempts сколько раз генерируем новый reference при коллизии
const maxReferenceAttempts = 5

// Ключи custom fields формы checkout
const (
	FieldProvisionalLicence = "provisional_licence"
	FieldHasTestBooked      = "has_test_booked"
	FieldTestReference      = "dvsa_reference"
	FieldTestCentre         = "test_centre_preference"
)

// Outcome результат обработки события
type Outcome string

const (
	OutcomeCreated   Outcome = "created"
	OutcomeDuplicate Outcome = "duplicate"
	OutcomeIgnored   Outcome = "ignored"
)

// WebhookResult что произошло с событием. Booking пуст для OutcomeIgnored.
type WebhookResult struct {
	EventID   string
	EventType string
	Outcome   Outcome
	Booking   repository.Booking
}

// Processor жизненный цикл бронирования: единственный, кто создаёт бронирования и меняет их статус
type Processor struct {
	logger        *zap.Logger
	verifier      EventVerifier
	repo          repository.BookingRepository
	scheduler     ActionScheduler
	followUpDelay time.Duration
	newReference  func() string
	now           func() time.Time
}

// ProcessorOption настраивает Processor (в основном для тестов)
type ProcessorOption func(*Processor)

// WithReferenceGenerator подменяет генератор booking reference
func WithReferenceGenerator(fn func() string) ProcessorOption {
	return func(p *Processor) { p.newReference = fn }
}

// WithClock подменяет часы
func WithClock(now func() time.Time) ProcessorOption {
	return func(p *Processor) { p.now = now }
}

// WithFollowUpDelay задержка запроса доступности для pass guarantee
func WithFollowUpDelay(d time.Duration) ProcessorOption {
	return func(p *Processor) { p.followUpDelay = d }
}

// NewProcessor создаёт Processor
func NewProcessor(
	logger *zap.Logger,
	verifier EventVerifier,
	repo repository.BookingRepository,
	scheduler ActionScheduler,
	opts ...ProcessorOption,
) *Processor {
	p := &Processor{
		logger:        logger,
		verifier:      verifier,
		repo:          repo,
		scheduler:     scheduler,
		followUpDelay: DefaultFollowUpDelay,
		newReference:  NewReference,
		now:           func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// log логгер с trace_id/span_id запроса и event_id, если они есть в ctx
func (p *Processor) log(ctx context.Context) *zap.Logger {
	return platformobservability.L(ctx, p.logger)
}

// HandleWebhook проверяет подпись сырого тела и обрабатывает событие.
// Ошибка верификации возвращается как *AuthenticationError, бронирование не создаётся.
// Ошибка сохранения возвращается как есть: провайдер доставит событие повторно.
func (p *Processor) HandleWebhook(ctx context.Context, payload []byte, signature string) (WebhookResult, error) {
	event, err := p.verifier.Verify(payload, signature)
	if err != nil {
		metrics.WebhookEvents.WithLabelValues("unknown", "rejected").Inc()
		p.log(ctx).Warn("webhook signature verification failed", zap.Error(err))
		if errors.Is(err, ErrAuthentication) {
			return WebhookResult{}, err
		}
		return WebhookResult{}, &AuthenticationError{Err: err}
	}

	ctx = platformobservability.WithFields(ctx,
		zap.String("event_id", event.ID),
		zap.String("event_type", event.Type),
	)

	if event.Type != EventTypeCheckoutSessionCompleted || event.Checkout == nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, string(OutcomeIgnored)).Inc()
		p.log(ctx).Debug("ignoring provider event")
		return WebhookResult{EventID: event.ID, EventType: event.Type, Outcome: OutcomeIgnored}, nil
	}

	result, err := p.HandleCheckoutCompleted(ctx, *event.Checkout)
	result.EventID = event.ID
	result.EventType = event.Type
	if err != nil {
		metrics.WebhookEvents.WithLabelValues(event.Type, "failed").Inc()
		p.log(ctx).Error("failed to process checkout completed event",
			zap.Error(err),
			zap.String("session_id", event.Checkout.SessionID),
		)
		return result, err
	}

	metrics.WebhookEvents.WithLabelValues(event.Type, string(result.Outcome)).Inc()
	return result, nil
}

// HandleCheckoutCompleted создаёт бронирование по завершённой checkout сессии.
// Повторная доставка той же сессии (ConflictError по session_id) даёт OutcomeDuplicate
// без повторной рассылки уведомлений.
func (p *Processor) HandleCheckoutCompleted(ctx context.Context, checkout CheckoutCompleted) (WebhookResult, error) {
	if checkout.SessionID == "" || checkout.CustomerEmail == "" {
		return WebhookResult{}, fmt.Errorf("%w: session id and customer email are required", ErrInvalidEvent)
	}

	packageType := repository.ParsePackageType(checkout.Metadata["package_type"])
	now := p.now()
	booking := repository.Booking{
		SessionID:     checkout.SessionID,
		CustomerEmail: checkout.CustomerEmail,
		CustomerName:  checkout.CustomerName,
		PackageType:   packageType,
		AmountMinor:   checkout.AmountTotal,
		Currency:      strings.ToLower(checkout.Currency),
		Metadata: repository.ExtendedMetadata{
			ProvisionalLicence: checkout.CustomFields[FieldProvisionalLicence],
			TestStatus:         checkout.CustomFields[FieldHasTestBooked],
			TestReference:      checkout.CustomFields[FieldTestReference],
			TestCentre:         checkout.CustomFields[FieldTestCentre],
			Hours:              checkout.Metadata["hours"],
		},
		Status:    InitialStatus(packageType),
		CreatedAt: now,
		UpdatedAt: now,
	}

	for attempt := 1; attempt <= maxReferenceAttempts; attempt++ {
		booking.Reference = p.newReference()

		created, err := p.repo.Create(ctx, booking)
		if err == nil {
			p.log(ctx).Info("booking created",
				zap.String("booking_reference", created.Reference),
				zap.String("session_id", created.SessionID),
				zap.String("package_type", string(created.PackageType)),
				zap.String("status", string(created.Status)),
			)
			if err := p.scheduleFollowUps(ctx, created, false); err != nil {
				return WebhookResult{Outcome: OutcomeCreated, Booking: created}, err
			}
			return WebhookResult{Outcome: OutcomeCreated, Booking: created}, nil
		}

		var conflict *repository.ConflictError
		if !errors.As(err, &conflict) {
			return WebhookResult{}, fmt.Errorf("failed to create booking: %w", err)
		}

		switch conflict.Field {
		case repository.ConflictSessionID:
			return p.handleDuplicate(ctx, checkout.SessionID)
		case repository.ConflictReference:
			p.log(ctx).Warn("booking reference collision, regenerating",
				zap.String("booking_reference", booking.Reference),
				zap.Int("attempt", attempt),
			)
		default:
			return WebhookResult{}, fmt.Errorf("failed to create booking: %w", err)
		}
	}

	return WebhookResult{}, fmt.Errorf("%w: session %s", ErrReferenceExhausted, checkout.SessionID)
}

// handleDuplicate повторная доставка уже обработанной сессии.
// Досоздаёт отложенные действия, если прошлая попытка упала между Create и их сохранением;
// уже существующие действия не трогаются, поэтому уведомления повторно не уходят.
func (p *Processor) handleDuplicate(ctx context.Context, sessionID string) (WebhookResult, error) {
	existing, err := p.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		return WebhookResult{}, fmt.Errorf("failed to load booking for duplicate session %s: %w", sessionID, err)
	}

	p.log(ctx).Info("checkout session already processed (duplicate)",
		zap.String("session_id", sessionID),
		zap.String("booking_reference", existing.Reference),
	)

	if err := p.scheduleFollowUps(ctx, existing, true); err != nil {
		return WebhookResult{Outcome: OutcomeDuplicate, Booking: existing}, err
	}
	return WebhookResult{Outcome: OutcomeDuplicate, Booking: existing}, nil
}

// scheduleFollowUps сохраняет рассылку уведомлений (сразу) и, для тарифа с проверкой,
// запрос доступности через followUpDelay от создания бронирования
func (p *Processor) scheduleFollowUps(ctx context.Context, b repository.Booking, repair bool) error {
	created, err := p.scheduler.ScheduleOnce(ctx, b.Reference, repository.ActionBookingNotifications, 0)
	if err != nil {
		return fmt.Errorf("failed to schedule booking notifications: %w", err)
	}
	scheduled := created
	if created && repair {
		p.log(ctx).Warn("notification fan-out was missing for existing booking, scheduled it",
			zap.String("booking_reference", b.Reference),
		)
	}

	if b.PackageType.RequiresVerification() {
		delay := b.CreatedAt.Add(p.followUpDelay).Sub(p.now())
		if delay < 0 {
			delay = 0
		}
		created, err := p.scheduler.ScheduleOnce(ctx, b.Reference, repository.ActionAvailabilityRequest, delay)
		if err != nil {
			return fmt.Errorf("failed to schedule availability request: %w", err)
		}
		scheduled = scheduled || created
		if created && repair {
			p.log(ctx).Warn("availability request was missing for existing booking, scheduled it",
				zap.String("booking_reference", b.Reference),
				zap.Duration("delay", delay),
			)
		}
	}

	if scheduled {
		p.scheduler.Wake()
	}
	return nil
}

// ConfirmVerification staff подтвердил заявленные данные pass guarantee:
// PAID_PENDING_VERIFICATION -> PAID_PENDING_SCHEDULING через compare-and-swap
func (p *Processor) ConfirmVerification(ctx context.Context, reference string) (repository.Booking, error) {
	updated, err := p.repo.AdvanceStatus(ctx, reference,
		repository.StatusPendingVerification, repository.StatusPendingScheduling)
	if err != nil {
		if errors.Is(err, repository.ErrInvalidTransition) {
			p.log(ctx).Warn("rejected status transition",
				zap.String("booking_reference", reference),
				zap.Error(err),
			)
		}
		return repository.Booking{}, fmt.Errorf("failed to confirm verification: %w", err)
	}

	p.log(ctx).Info("booking verified by staff",
		zap.String("booking_reference", reference),
		zap.String("status", string(updated.Status)),
	)
	return updated, nil
}

// GetBooking полная карточка бронирования для staff
func (p *Processor) GetBooking(ctx context.Context, reference string) (repository.Booking, error) {
	b, err := p.repo.FindByReference(ctx, reference)
	if err != nil {
		return repository.Booking{}, fmt.Errorf("failed to get booking %s: %w", reference, err)
	}
	return b, nil
}
