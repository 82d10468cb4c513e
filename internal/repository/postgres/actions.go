package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/shestoi/coachcarter/internal/repository"
)

const actionColumns = `id::text, booking_reference, kind, due_at, attempts, last_error, fired_at, created_at`

// ScheduleAction вставляет действие; ON CONFLICT по (booking_reference, kind) означает,
// что действие уже запланировано ранее
func (r *Repository) ScheduleAction(ctx context.Context, a repository.ScheduledAction) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	tag, err := r.pool.Exec(ctx,
		`INSERT INTO scheduled_actions (id, booking_reference, kind, due_at, created_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT ON CONSTRAINT scheduled_actions_booking_kind_key DO NOTHING`,
		a.ID, a.BookingReference, string(a.Kind), a.DueAt, a.CreatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			// совпал id: повторная вставка того же действия
			return false, nil
		}
		return false, err
	}
	return tag.RowsAffected() == 1, nil
}

// ClaimDueActions забирает батч через FOR UPDATE SKIP LOCKED:
// несколько экземпляров сервиса могут выполнять sweep одновременно, не пересекаясь
func (r *Repository) ClaimDueActions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]repository.ScheduledAction, error) {
	rows, err := r.pool.Query(ctx,
		`UPDATE scheduled_actions
		 SET locked_until = $2, attempts = attempts + 1
		 WHERE id IN (
		     SELECT id FROM scheduled_actions
		     WHERE fired_at IS NULL
		       AND due_at <= $1
		       AND (locked_until IS NULL OR locked_until <= $1)
		     ORDER BY due_at
		     LIMIT $3
		     FOR UPDATE SKIP LOCKED
		 )
		 RETURNING `+actionColumns,
		now, now.Add(lease), limit,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	actions := make([]repository.ScheduledAction, 0)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, err
		}
		actions = append(actions, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return actions, nil
}

// CompleteAction ставит маркер fired_at и снимает аренду
func (r *Repository) CompleteAction(ctx context.Context, id string, firedAt time.Time, lastErr string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_actions
		 SET fired_at = $2, last_error = $3, locked_until = NULL
		 WHERE id = $1`,
		id, firedAt, lastErr,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrActionNotFound
	}
	return nil
}

// RetryAction откладывает следующую попытку: аренда продлевается до retryAt
func (r *Repository) RetryAction(ctx context.Context, id string, retryAt time.Time, lastErr string) error {
	tag, err := r.pool.Exec(ctx,
		`UPDATE scheduled_actions
		 SET locked_until = $2, last_error = $3
		 WHERE id = $1`,
		id, retryAt, lastErr,
	)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrActionNotFound
	}
	return nil
}

// GetAction возвращает действие по бронированию и типу
func (r *Repository) GetAction(ctx context.Context, reference string, kind repository.ActionKind) (repository.ScheduledAction, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+actionColumns+` FROM scheduled_actions WHERE booking_reference = $1 AND kind = $2`,
		reference, string(kind),
	)
	a, err := scanAction(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return repository.ScheduledAction{}, repository.ErrActionNotFound
	}
	return a, err
}

func scanAction(row pgx.Row) (repository.ScheduledAction, error) {
	var (
		a    repository.ScheduledAction
		kind string
	)
	if err := row.Scan(&a.ID, &a.BookingReference, &kind, &a.DueAt, &a.Attempts, &a.LastError, &a.FiredAt, &a.CreatedAt); err != nil {
		return repository.ScheduledAction{}, err
	}
	a.Kind = repository.ActionKind(kind)
	return a, nil
}
