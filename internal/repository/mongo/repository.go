package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/coachcarter/internal/repository"
)

const (
	bookingsCollection = "bookings"
	actionsCollection  = "scheduled_actions"

	sessionIndexName   = "bookings_session_id_key"
	actionKeyIndexName = "scheduled_actions_booking_kind_key"
	actionDueIndexName = "scheduled_actions_due_idx"
)

// bookingDocument документ бронирования; _id = booking_reference
type bookingDocument struct {
	Reference          string    `bson:"_id"`
	SessionID          string    `bson:"session_id"`
	CustomerEmail      string    `bson:"customer_email"`
	CustomerName       string    `bson:"customer_name"`
	PackageType        string    `bson:"package_type"`
	AmountMinor        int64     `bson:"amount_minor"`
	Currency           string    `bson:"currency"`
	ProvisionalLicence string    `bson:"provisional_licence,omitempty"`
	TestStatus         string    `bson:"test_status,omitempty"`
	TestReference      string    `bson:"test_reference,omitempty"`
	TestCentre         string    `bson:"test_centre,omitempty"`
	PackageHours       string    `bson:"package_hours,omitempty"`
	Status             string    `bson:"status"`
	CreatedAt          time.Time `bson:"created_at"`
	UpdatedAt          time.Time `bson:"updated_at"`
}

// Repository реализует BookingRepository и ActionRepository используя MongoDB.
// Атомарность Create обеспечивает уникальный индекс на session_id.
type Repository struct {
	client   *mongo.Client
	bookings *mongo.Collection
	actions  *mongo.Collection
}

// NewRepository создаёт MongoDB репозиторий и индексы.
// В отличие от postgres здесь нет миграций, поэтому индексы создаются при старте.
func NewRepository(ctx context.Context, client *mongo.Client, dbName string) (*Repository, error) {
	db := client.Database(dbName)
	r := &Repository{
		client:   client,
		bookings: db.Collection(bookingsCollection),
		actions:  db.Collection(actionsCollection),
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	_, err := r.bookings.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "session_id", Value: 1}},
		Options: options.Index().SetUnique(true).SetName(sessionIndexName),
	})
	if err != nil {
		return nil, fmt.Errorf("create bookings index: %w", err)
	}

	_, err = r.actions.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_reference", Value: 1}, {Key: "kind", Value: 1}},
			Options: options.Index().SetUnique(true).SetName(actionKeyIndexName),
		},
		{
			Keys:    bson.D{{Key: "fired_at", Value: 1}, {Key: "due_at", Value: 1}},
			Options: options.Index().SetName(actionDueIndexName),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("create scheduled actions indexes: %w", err)
	}

	return r, nil
}

// Ping проверяет доступность MongoDB (для health check)
func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

// Create вставляет бронирование; duplicate key различается по имени индекса
func (r *Repository) Create(ctx context.Context, b repository.Booking) (repository.Booking, error) {
	if b.CreatedAt.IsZero() {
		b.CreatedAt = time.Now().UTC()
	}
	// mongo хранит время с точностью до миллисекунд
	b.CreatedAt = b.CreatedAt.Truncate(time.Millisecond)
	b.UpdatedAt = b.CreatedAt

	_, err := r.bookings.InsertOne(ctx, toDocument(b))
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			if strings.Contains(err.Error(), sessionIndexName) {
				return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictSessionID, Value: b.SessionID}
			}
			return repository.Booking{}, &repository.ConflictError{Field: repository.ConflictReference, Value: b.Reference}
		}
		return repository.Booking{}, err
	}
	return b, nil
}

// FindByReference получает бронирование по reference
func (r *Repository) FindByReference(ctx context.Context, reference string) (repository.Booking, error) {
	return r.findOne(ctx, bson.M{"_id": reference})
}

// FindBySessionID получает бронирование по session_id
func (r *Repository) FindBySessionID(ctx context.Context, sessionID string) (repository.Booking, error) {
	return r.findOne(ctx, bson.M{"session_id": sessionID})
}

func (r *Repository) findOne(ctx context.Context, filter bson.M) (repository.Booking, error) {
	var doc bookingDocument
	if err := r.bookings.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.Booking{}, repository.ErrNotFound
		}
		return repository.Booking{}, err
	}
	return fromDocument(doc), nil
}

// AdvanceStatus атомарный FindOneAndUpdate с фильтром по текущему статусу
func (r *Repository) AdvanceStatus(ctx context.Context, reference string, from, to repository.Status) (repository.Booking, error) {
	if !from.CanAdvanceTo(to) {
		return r.rejectTransition(ctx, reference, from, to)
	}

	filter := bson.M{"_id": reference, "status": string(from)}
	update := bson.M{"$set": bson.M{"status": string(to), "updated_at": time.Now().UTC()}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc bookingDocument
	err := r.bookings.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
	if err == nil {
		return fromDocument(doc), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return repository.Booking{}, err
	}
	return r.rejectTransition(ctx, reference, from, to)
}

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

func toDocument(b repository.Booking) bookingDocument {
	return bookingDocument{
		Reference:          b.Reference,
		SessionID:          b.SessionID,
		CustomerEmail:      b.CustomerEmail,
		CustomerName:       b.CustomerName,
		PackageType:        string(b.PackageType),
		AmountMinor:        b.AmountMinor,
		Currency:           b.Currency,
		ProvisionalLicence: b.Metadata.ProvisionalLicence,
		TestStatus:         b.Metadata.TestStatus,
		TestReference:      b.Metadata.TestReference,
		TestCentre:         b.Metadata.TestCentre,
		PackageHours:       b.Metadata.Hours,
		Status:             string(b.Status),
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}

func fromDocument(d bookingDocument) repository.Booking {
	return repository.Booking{
		Reference:     d.Reference,
		SessionID:     d.SessionID,
		CustomerEmail: d.CustomerEmail,
		CustomerName:  d.CustomerName,
		PackageType:   repository.PackageType(d.PackageType),
		AmountMinor:   d.AmountMinor,
		Currency:      d.Currency,
		Metadata: repository.ExtendedMetadata{
			ProvisionalLicence: d.ProvisionalLicence,
			TestStatus:         d.TestStatus,
			TestReference:      d.TestReference,
			TestCentre:         d.TestCentre,
			Hours:              d.PackageHours,
		},
		Status:    repository.Status(d.Status),
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}
