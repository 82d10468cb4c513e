package redis

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

const (
	hashFieldPaymentStatus = "payment_status"
	hashFieldCheckedAt     = "checked_at"
)

// SessionStatusCache кэширует статус оплаты checkout сессии провайдера в Redis hash.
// Клиент опрашивает verify-session каждые пару секунд, кэш избавляет от запроса к Stripe на каждый опрос.
type SessionStatusCache struct {
	client *redis.Client
	logger *zap.Logger
}

// NewSessionStatusCache создаёт новый Redis кэш статусов
func NewSessionStatusCache(client *redis.Client, logger *zap.Logger) *SessionStatusCache {
	return &SessionStatusCache{
		client: client,
		logger: logger,
	}
}

func statusKey(sessionID string) string {
	return fmt.Sprintf("checkout_session:%s", sessionID)
}

// GetPaymentStatus возвращает закэшированный статус; found=false, если записи нет или TTL истёк
func (c *SessionStatusCache) GetPaymentStatus(ctx context.Context, sessionID string) (string, bool, error) {
	status, err := c.client.HGet(ctx, statusKey(sessionID), hashFieldPaymentStatus).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", false, nil
		}
		return "", false, fmt.Errorf("failed to get session status: %w", err)
	}
	return status, true, nil
}

// SetPaymentStatus сохраняет статус с TTL (HSet + Expire одним pipeline)
func (c *SessionStatusCache) SetPaymentStatus(ctx context.Context, sessionID, status string, ttl time.Duration) error {
	key := statusKey(sessionID)

	pipe := c.client.Pipeline()
	pipe.HSet(ctx, key,
		hashFieldPaymentStatus, status,
		hashFieldCheckedAt, time.Now().UTC().Format(time.RFC3339),
	)
	pipe.Expire(ctx, key, ttl)
	if _, err := pipe.Exec(ctx); err != nil {
		c.logger.Error("failed to cache session status in redis",
			zap.Error(err),
			zap.String("session_id", sessionID),
		)
		return fmt.Errorf("failed to cache session status: %w", err)
	}

	c.logger.Debug("session status cached",
		zap.String("session_id", sessionID),
		zap.String("payment_status", status),
		zap.Duration("ttl", ttl),
	)
	return nil
}
