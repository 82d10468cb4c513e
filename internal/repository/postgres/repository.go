package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/shestoi/coachcarter/internal/repository"
)

const (
	uniqueViolation = "23505"

	sessionConstraint   = "bookings_session_id_key"
	referenceConstraint = "bookings_pkey"
)

const bookingColumns = `booking_reference, session_id, customer_email, customer_name, package_type,
	amount_minor, currency, provisional_licence, test_status, test_reference, test_centre,
	package_hours, status, created_at, updated_at`

// Repository реализует BookingRepository и ActionRepository используя PostgreSQL
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository создаёт новый PostgreSQL репозиторий
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{
		pool: pool,
	}
}

// Ping проверяет доступность БД (для health check)
func (r *Repository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

// Create вставляет бронирование.
// Уникальность session_id и reference обеспечивают constraints, поэтому две параллельные
// доставки одного события дают одну строку и один unique_violation.
func (r *Repository) Create(ctx context.Context, b repository.Booking) (repository.Booking, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	b.UpdatedAt = b.CreatedAt

	_, err := r.pool.Exec(ctx,
		`INSERT INTO bookings (`+bookingColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		b.Reference, b.SessionID, b.CustomerEmail, b.CustomerName, string(b.PackageType),
		b.AmountMinor, b.Currency, b.Metadata.ProvisionalLicence, b.Metadata.TestStatus,
		b.Metadata.TestReference, b.Metadata.TestCentre, b.Metadata.Hours, string(b.Status),
		b.CreatedAt, b.UpdatedAt,
	)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
			switch pgErr.ConstraintName {
			case sessionConstraint:
				return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictSessionID, Value: b.SessionID}
			case referenceConstraint:
				return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictReference, Value: b.Reference}
			}
		}
		return repository.Booking{}, err
	}

	return b, nil
}

// FindByReference получает бронирование по reference
func (r *Repository) FindByReference(ctx context.Context, reference string) (repository.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE booking_reference = $1`, reference)
	return scanBooking(row)
}

// FindBySessionID получает бронирование по session_id
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (repository.Booking, error) {
	row := r.pool.QueryRow(ctx,
		`SELECT `+bookingColumns+` FROM bookings WHERE session_id = $1`, sessionID)
	return scanBooking(row)
}

// AdvanceStatus compare-and-swap одним UPDATE ... WHERE status = from.
// Если строка не обновилась, перечитываем запись, чтобы отличить not found от несовпадения статуса.
func (r *Repository) AdvanceStatus(ctx context.Context, reference string, from, to repository.Status) (repository.Booking, error) {
	if !from.CanAdvanceTo(to) {
		return r.rejectTransition(ctx, reference, from, to)
	}

	row := r.pool.QueryRow(ctx,
		`UPDATE bookings SET status = $3, updated_at = now()
		 WHERE booking_reference = $1 AND status = $2
		 RETURNING `+bookingColumns,
		reference, string(from), string(to))

	booking, err := scanBooking(row)
	if err == nil {
		return booking, nil
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return repository.Booking{}, err
	}
	return r.rejectTransition(ctx, reference, from, to)
}

// rejectTransition перечитывает запись: not found или *InvalidTransitionError с фактическим статусом
func (r *Repository) rejectTransition(ctx context.Context, reference string, from, to repository.Status) (repository.Booking, error) {
	current, err := r.FindByReference(ctx, reference)
	if err != nil {
		return repository.Booking{}, err
	}
	return repository.Booking{}, &repository.InvalidTransitionError{
		Reference: reference,
		Expected:  from,
		Actual:    current.Status,
		Target:    to,
	}
}

func scanBooking(row pgx.Row) (repository.Booking, error) {
	var (
		b           repository.Booking
		packageType string
		status      string
	)
	err := row.Scan(
		&b.Reference, &b.SessionID, &b.CustomerEmail, &b.CustomerName, &packageType,
		&b.AmountMinor, &b.Currency, &b.Metadata.ProvisionalLicence, &b.Metadata.TestStatus,
		&b.Metadata.TestReference, &b.Metadata.TestCentre, &b.Metadata.Hours, &status,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return repository.Booking{}, repository.ErrNotFound
		}
		return repository.Booking{}, err
	}

	b.PackageType = repository.PackageType(packageType)
	b.Status = repository.Status(status)
	b.CreatedAt = b.CreatedAt.UTC()
	b.UpdatedAt = b.UpdatedAt.UTC()
	return b, nil
}
