package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/shestoi/coachcarter/internal/metrics"
	"github.com/shestoi/coachcarter/internal/repository"
	platformobservability "github.com/shestoi/coachcarter/platform/observability"
)

// completeTimeout сколько ждём записи маркера fired, если sweep уже отменён
const completeTimeout = 5 * time.Second

// Handler выполняет одно действие. Ошибка означает "повторить позже".
type Handler func(ctx context.Context, action repository.ScheduledAction) error

// Config параметры sweep-а
type Config struct {
	// Interval период sweep-а, между тиками Wake запускает его досрочно
	Interval time.Duration
	// BatchSize сколько действий забирается за один sweep
	BatchSize int
	// Lease на сколько действие закрепляется за экземпляром; после падения процесса оно вернётся в очередь
	Lease time.Duration
	// MaxAttempts после стольких неудачных попыток действие закрывается с ошибкой
	MaxAttempts int
	// Backoff базовая задержка повтора, растёт линейно с номером попытки
	Backoff time.Duration
	// Workers сколько действий выполняется параллельно
	Workers int
}

// DefaultConfig дефолты для локального запуска
func DefaultConfig() Config {
	return Config{
		Interval:    10 * time.Second,
		BatchSize:   20,
		Lease:       time.Minute,
		MaxAttempts: 5,
		Backoff:     30 * time.Second,
		Workers:     4,
	}
}

// Scheduler durable планировщик: действия хранятся в ActionRepository
// и выполняются периодическим sweep-ом не раньше DueAt, at-least-once,
// с маркером fired против повторного выполнения.
type Scheduler struct {
	logger   *zap.Logger
	repo     repository.ActionRepository
	cfg      Config
	now      func() time.Time
	wake     chan struct{}
	mu       sync.RWMutex
	handlers map[repository.ActionKind]Handler
}

// Option настраивает Scheduler
type Option func(*Scheduler)

// WithClock подменяет часы (тесты)
func WithClock(now func() time.Time) Option {
	return func(s *Scheduler) { s.now = now }
}

// New создаёт Scheduler. Нулевые поля cfg заменяются дефолтами.
func New(logger *zap.Logger, repo repository.ActionRepository, cfg Config, opts ...Option) *Scheduler {
	def := DefaultConfig()
	if cfg.Interval <= 0 {
		cfg.Interval = def.Interval
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = def.BatchSize
	}
	if cfg.Lease <= 0 {
		cfg.Lease = def.Lease
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = def.MaxAttempts
	}
	if cfg.Backoff <= 0 {
		cfg.Backoff = def.Backoff
	}
	if cfg.Workers <= 0 {
		cfg.Workers = def.Workers
	}

	s := &Scheduler{
		logger:   logger,
		repo:     repo,
		cfg:      cfg,
		now:      func() time.Time { return time.Now().UTC() },
		wake:     make(chan struct{}, 1),
		handlers: make(map[repository.ActionKind]Handler),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Register назначает обработчик для типа действия
func (s *Scheduler) Register(kind repository.ActionKind, h Handler) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers[kind] = h
}

func (s *Scheduler) handler(kind repository.ActionKind) (Handler, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	h, ok := s.handlers[kind]
	return h, ok
}

// ScheduleOnce сохраняет действие с DueAt = now + delay.
// false, если действие этого типа для бронирования уже есть (в любом состоянии).
func (s *Scheduler) ScheduleOnce(ctx context.Context, reference string, kind repository.ActionKind, delay time.Duration) (bool, error) {
	now := s.now()
	action := repository.ScheduledAction{
		ID:               uuid.NewString(),
		BookingReference: reference,
		Kind:             kind,
		DueAt:            now.Add(delay),
		CreatedAt:        now,
	}

	created, err := s.repo.ScheduleAction(ctx, action)
	if err != nil {
		return false, fmt.Errorf("failed to schedule %s for %s: %w", kind, reference, err)
	}

	if created {
		s.logger.Info("action scheduled",
			zap.String("action_id", action.ID),
			zap.String("booking_reference", reference),
			zap.String("kind", string(kind)),
			zap.Time("due_at", action.DueAt),
		)
	}
	return created, nil
}

// Wake запускает sweep досрочно. Не блокирует.
func (s *Scheduler) Wake() {
	select {
	case s.wake <- struct{}{}:
	default:
	}
}

// Start крутит sweep до отмены ctx
func (s *Scheduler) Start(ctx context.Context) error {
	s.logger.Info("starting action scheduler",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("batch_size", s.cfg.BatchSize),
		zap.Int("workers", s.cfg.Workers),
		zap.Int("max_attempts", s.cfg.MaxAttempts),
	)

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	// после рестарта сразу добираем то, что просрочилось, пока процесс лежал
	s.sweep(ctx)

	for {
		select {
		case <-ctx.Done():
			s.logger.Info("action scheduler context cancelled, stopping")
			return nil
		case <-ticker.C:
			s.sweep(ctx)
		case <-s.wake:
			s.sweep(ctx)
		}
	}
}

func (s *Scheduler) sweep(ctx context.Context) {
	for {
		n, err := s.RunDue(ctx)
		if err != nil {
			if ctx.Err() == nil {
				s.logger.Error("failed to run due actions", zap.Error(err))
			}
			return
		}
		// полный батч: возможно, в очереди есть ещё
		if n < s.cfg.BatchSize {
			return
		}
	}
}

// RunDue забирает один батч созревших действий и выполняет их. Возвращает размер батча.
func (s *Scheduler) RunDue(ctx context.Context) (int, error) {
	if ctx.Err() != nil {
		return 0, ctx.Err()
	}

	actions, err := s.repo.ClaimDueActions(ctx, s.now(), s.cfg.BatchSize, s.cfg.Lease)
	if err != nil {
		return 0, fmt.Errorf("failed to claim due actions: %w", err)
	}
	if len(actions) == 0 {
		return 0, nil
	}

	s.logger.Debug("processing due actions", zap.Int("count", len(actions)))

	var g errgroup.Group
	g.SetLimit(s.cfg.Workers)
	for _, action := range actions {
		action := action
		g.Go(func() error {
			s.execute(ctx, action)
			return nil
		})
	}
	_ = g.Wait()

	return len(actions), nil
}

// execute выполняет действие и фиксирует результат: fired, повтор с backoff или закрытие с ошибкой
func (s *Scheduler) execute(ctx context.Context, action repository.ScheduledAction) {
	log := s.logger.With(
		zap.String("action_id", action.ID),
		zap.String("booking_reference", action.BookingReference),
		zap.String("kind", string(action.Kind)),
		zap.Int("attempt", action.Attempts),
	)

	h, ok := s.handler(action.Kind)
	if !ok {
		log.Error("no handler registered for action kind")
		metrics.ScheduledActions.WithLabelValues(string(action.Kind), "unhandled").Inc()
		if err := s.repo.CompleteAction(ctx, action.ID, s.now(), "no handler registered"); err != nil {
			log.Error("failed to complete action", zap.Error(err))
		}
		return
	}

	// обработчик не должен пережить аренду, иначе действие заберёт другой экземпляр
	runCtx, cancel := context.WithTimeout(platformobservability.WithFields(ctx,
		zap.String("action_id", action.ID),
		zap.String("booking_reference", action.BookingReference),
		zap.String("kind", string(action.Kind)),
	), s.cfg.Lease)
	start := time.Now()
	err := h(runCtx, action)
	cancel()
	metrics.ScheduledActionDuration.WithLabelValues(string(action.Kind)).Observe(time.Since(start).Seconds())

	if err == nil {
		// маркер пишется и во время shutdown, иначе после рестарта действие выполнится второй раз
		markCtx, markCancel := context.WithTimeout(context.WithoutCancel(ctx), completeTimeout)
		defer markCancel()
		if err := s.repo.CompleteAction(markCtx, action.ID, s.now(), ""); err != nil {
			log.Error("failed to mark action fired", zap.Error(err))
			return
		}
		metrics.ScheduledActions.WithLabelValues(string(action.Kind), "fired").Inc()
		log.Info("action fired")
		return
	}

	if ctx.Err() != nil {
		// shutdown: аренда истечёт, и действие повторится после рестарта
		return
	}

	switch {
	case action.Attempts >= s.cfg.MaxAttempts:
		errMsg := fmt.Sprintf("failed after %d attempts: %v", action.Attempts, err)
		if err := s.repo.CompleteAction(ctx, action.ID, s.now(), errMsg); err != nil {
			log.Error("failed to close exhausted action", zap.Error(err))
			return
		}
		metrics.ScheduledActions.WithLabelValues(string(action.Kind), "exhausted").Inc()
		log.Error("action failed permanently", zap.Error(err))

	default:
		retryAt := s.now().Add(s.cfg.Backoff * time.Duration(action.Attempts))
		if err := s.repo.RetryAction(ctx, action.ID, retryAt, err.Error()); err != nil {
			log.Error("failed to reschedule action", zap.Error(err))
			return
		}
		metrics.ScheduledActions.WithLabelValues(string(action.Kind), "retry").Inc()
		log.Warn("action failed, will retry", zap.Error(err), zap.Time("retry_at", retryAt))
	}
}
