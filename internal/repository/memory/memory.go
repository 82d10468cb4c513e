package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/shestoi/coachcarter/internal/repository"
)

// MemoryRepository реализует BookingRepository и ActionRepository в памяти процесса.
// Используется для локальной разработки (STORAGE_DRIVER=memory) и тестов.
// Состояние не переживает рестарт и не разделяется между экземплярами сервиса.
type MemoryRepository struct {
	mu        sync.RWMutex
	bookings  map[string]repository.Booking // reference -> booking
	bySession map[string]string             // session_id -> reference

	actions     map[string]*actionRecord // id -> action
	actionByKey map[string]string        // reference|kind -> id

	now func() time.Time
}

type actionRecord struct {
	action      repository.ScheduledAction
	lockedUntil time.Time
}

// NewMemoryRepository создаёт новый in-memory репозиторий
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{
		bookings:    make(map[string]repository.Booking),
		bySession:   make(map[string]string),
		actions:     make(map[string]*actionRecord),
		actionByKey: make(map[string]string),
		now:         time.Now,
	}
}

// Create сохраняет бронирование.
// Проверка уникальности и вставка выполняются под одной блокировкой.
func (r *MemoryRepository) Create(ctx context.Context, booking repository.Booking) (repository.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.bySession[booking.SessionID]; exists {
		return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictSessionID, Value: booking.SessionID}
	}
	if _, exists := r.bookings[booking.Reference]; exists {
		return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictReference, Value: booking.Reference}
	}

	if booking.CreatedAt.IsZero() {
		booking.CreatedAt = r.now().UTC()
	}
	booking.UpdatedAt = booking.CreatedAt

	r.bookings[booking.Reference] = booking
	r.bySession[booking.SessionID] = booking.Reference
	return booking, nil
}

// FindByReference получает бронирование по reference
func (r *MemoryRepository) FindByReference(ctx context.Context, reference string) (repository.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	booking, exists := r.bookings[reference]
	if !exists {
		return repository.Booking{}, repository.ErrNotFound
	}
	return booking, nil
}

// FindBySessionID получает бронирование по session_id
func (r *MemoryRepository) FindBySessionID(ctx context.Context, sessionID string) (repository.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reference, exists := r.bySession[sessionID]
	if !exists {
		return repository.Booking{}, repository.ErrNotFound
	}
	return r.bookings[reference], nil
}

// AdvanceStatus compare-and-swap статуса под write-блокировкой
func (r *MemoryRepository) AdvanceStatus(ctx context.Context, reference string, from, to repository.Status) (repository.Booking, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	booking, exists := r.bookings[reference]
	if !exists {
		return repository.Booking{}, repository.ErrNotFound
	}
	if booking.Status != from || !from.CanAdvanceTo(to) {
		return repository.Booking{}, &repository.InvalidTransitionError{
			Reference: reference,
			Expected:  from,
			Actual:    booking.Status,
			Target:    to,
		}
	}

	booking.Status = to
	booking.UpdatedAt = r.now().UTC()
	r.bookings[reference] = booking
	return booking, nil
}

func actionKey(reference string, kind repository.ActionKind) string {
	return reference + "|" + string(kind)
}

// ScheduleAction сохраняет действие, если такого (reference, kind) ещё нет
func (r *MemoryRepository) ScheduleAction(ctx context.Context, action repository.ScheduledAction) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := actionKey(action.BookingReference, action.Kind)
	if _, exists := r.actionByKey[key]; exists {
		return false, nil
	}

	if action.CreatedAt.IsZero() {
		action.CreatedAt = r.now().UTC()
	}
	r.actions[action.ID] = &actionRecord{action: action}
	r.actionByKey[key] = action.ID
	return true, nil
}

// ClaimDueActions забирает просроченные действия в порядке DueAt
func (r *MemoryRepository) ClaimDueActions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]repository.ScheduledAction, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	due := make([]*actionRecord, 0)
	for _, rec := range r.actions {
		if rec.action.FiredAt != nil || rec.action.DueAt.After(now) || rec.lockedUntil.After(now) {
			continue
		}
		due = append(due, rec)
	}
	sort.Slice(due, func(i, j int) bool {
		return due[i].action.DueAt.Before(due[j].action.DueAt)
	})
	if len(due) > limit {
		due = due[:limit]
	}

	claimed := make([]repository.ScheduledAction, 0, len(due))
	for _, rec := range due {
		rec.lockedUntil = now.Add(lease)
		rec.action.Attempts++
		claimed = append(claimed, rec.action)
	}
	return claimed, nil
}

// CompleteAction ставит маркер fired
func (r *MemoryRepository) CompleteAction(ctx context.Context, id string, firedAt time.Time, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.actions[id]
	if !exists {
		return repository.ErrActionNotFound
	}
	firedAt = firedAt.UTC()
	rec.action.FiredAt = &firedAt
	rec.action.LastError = lastErr
	rec.lockedUntil = time.Time{}
	return nil
}

// RetryAction откладывает следующую попытку до retryAt
func (r *MemoryRepository) RetryAction(ctx context.Context, id string, retryAt time.Time, lastErr string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, exists := r.actions[id]
	if !exists {
		return repository.ErrActionNotFound
	}
	rec.action.LastError = lastErr
	rec.lockedUntil = retryAt
	return nil
}

// GetAction возвращает действие по бронированию и типу
func (r *MemoryRepository) GetAction(ctx context.Context, reference string, kind repository.ActionKind) (repository.ScheduledAction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	id, exists := r.actionByKey[actionKey(reference, kind)]
	if !exists {
		return repository.ScheduledAction{}, repository.ErrActionNotFound
	}
	return r.actions[id].action, nil
}

// Ping всегда успешен, нужен для health check наравне с postgres/mongo
func (r *MemoryRepository) Ping(ctx context.Context) error {
	return nil
}
