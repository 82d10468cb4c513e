package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/shestoi/coachcarter/internal/metrics"
	"github.com/shestoi/coachcarter/internal/repository"
)

// PaymentStatusPaid статус оплаченной checkout сессии у провайдера
const PaymentStatusPaid = "paid"

// BookingSummary то, что можно показать клиенту: без extended metadata и внутреннего статуса
type BookingSummary struct {
	Reference   string
	PackageName string
	PackageType repository.PackageType
	Amount      float64
}

// SessionVerification результат проверки сессии.
// Paid=false: оплата не завершена. Pending: оплачено, бронирование ещё не создано.
type SessionVerification struct {
	Paid    bool
	Pending bool
	Booking *BookingSummary
}

// SessionQuery read path для страницы успешной оплаты: клиент опрашивает его, пока не появится бронирование
type SessionQuery struct {
	logger   *zap.Logger
	provider PaymentProvider
	cache    PaymentStatusCache
	repo     repository.BookingRepository
	cacheTTL time.Duration
}

// NewSessionQuery создаёт SessionQuery. cache может быть NoopPaymentStatusCache.
func NewSessionQuery(
	logger *zap.Logger,
	provider PaymentProvider,
	cache PaymentStatusCache,
	repo repository.BookingRepository,
	cacheTTL time.Duration,
) *SessionQuery {
	return &SessionQuery{
		logger:   logger,
		provider: provider,
		cache:    cache,
		repo:     repo,
		cacheTTL: cacheTTL,
	}
}

// Verify проверяет оплату у провайдера и ищет бронирование по сессии.
// Неоплаченная сессия не трогает хранилище. Ошибка провайдера возвращается как *UpstreamQueryError.
func (q *SessionQuery) Verify(ctx context.Context, sessionID string) (SessionVerification, error) {
	sessionID = strings.TrimSpace(sessionID)
	if sessionID == "" {
		return SessionVerification{}, ErrSessionIDRequired
	}

	status, cacheLabel, err := q.paymentStatus(ctx, sessionID)
	if err != nil {
		metrics.SessionVerifications.WithLabelValues("error", cacheLabel).Inc()
		q.logger.Error("failed to query payment provider",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return SessionVerification{}, &UpstreamQueryError{SessionID: sessionID, Err: err}
	}

	if status != PaymentStatusPaid {
		metrics.SessionVerifications.WithLabelValues("unpaid", cacheLabel).Inc()
		return SessionVerification{Paid: false}, nil
	}

	b, err := q.repo.FindBySessionID(ctx, sessionID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			metrics.SessionVerifications.WithLabelValues("pending", cacheLabel).Inc()
			return SessionVerification{Paid: true, Pending: true}, nil
		}
		return SessionVerification{}, fmt.Errorf("failed to find booking by session: %w", err)
	}

	metrics.SessionVerifications.WithLabelValues("paid", cacheLabel).Inc()
	return SessionVerification{
		Paid: true,
		Booking: &BookingSummary{
			Reference:   b.Reference,
			PackageName: PackageDisplayName(b.PackageType, b.Metadata.Hours),
			PackageType: b.PackageType,
			Amount:      b.AmountPaid(),
		},
	}, nil
}

// paymentStatus статус из кэша или у провайдера. Кэшируется только "paid": он уже не изменится.
func (q *SessionQuery) paymentStatus(ctx context.Context, sessionID string) (string, string, error) {
	status, found, err := q.cache.GetPaymentStatus(ctx, sessionID)
	if err != nil {
		// кэш не критичен, идём к провайдеру
		q.logger.Warn("failed to read payment status cache",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
	}
	if found && status == PaymentStatusPaid {
		return status, "hit", nil
	}

	status, err = q.provider.CheckoutPaymentStatus(ctx, sessionID)
	if err != nil {
		return "", "miss", err
	}

	if status == PaymentStatusPaid {
		if err := q.cache.SetPaymentStatus(ctx, sessionID, status, q.cacheTTL); err != nil {
			q.logger.Warn("failed to cache payment status",
				zap.Error(err),
				zap.String("session_id", sessionID),
			)
		}
	}
	return status, "miss", nil
}

// NoopPaymentStatusCache кэш-заглушка, когда Redis не настроен
type NoopPaymentStatusCache struct{}

func (NoopPaymentStatusCache) GetPaymentStatus(context.Context, string) (string, bool, error) {
	return "", false, nil
}

func (NoopPaymentStatusCache) SetPaymentStatus(context.Context, string, string, time.Duration) error {
	return nil
}
