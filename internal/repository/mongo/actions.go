package mongo

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/shestoi/coachcarter/internal/repository"
)

type actionDocument struct {
	ID               string     `bson:"_id"`
	BookingReference string     `bson:"booking_reference"`
	Kind             string     `bson:"kind"`
	DueAt            time.Time  `bson:"due_at"`
	Attempts         int        `bson:"attempts"`
	LockedUntil      *time.Time `bson:"locked_until"`
	FiredAt          *time.Time `bson:"fired_at"`
	LastError        string     `bson:"last_error"`
	CreatedAt        time.Time  `bson:"created_at"`
}

// ScheduleAction вставляет действие; duplicate key по (booking_reference, kind) = уже запланировано
func (r *Repository) ScheduleAction(ctx context.Context, a repository.ScheduledAction) (bool, error) {
	if a.CreatedAt.IsZero() {
		a.CreatedAt = time.Now().UTC()
	}

	_, err := r.actions.InsertOne(ctx, actionDocument{
		ID:               a.ID,
		BookingReference: a.BookingReference,
		Kind:             string(a.Kind),
		DueAt:            a.DueAt.UTC(),
		CreatedAt:        a.CreatedAt,
	})
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// ClaimDueActions забирает действия по одному через FindOneAndUpdate.
// Каждый вызов атомарен на уровне документа, поэтому два экземпляра не получат одно действие.
func (r *Repository) ClaimDueActions(ctx context.Context, now time.Time, limit int, lease time.Duration) ([]repository.ScheduledAction, error) {
	filter := bson.M{
		"fired_at": nil,
		"due_at":   bson.M{"$lte": now},
		"$or": bson.A{
			bson.M{"locked_until": nil},
			bson.M{"locked_until": bson.M{"$lte": now}},
		},
	}
	update := bson.M{
		"$set": bson.M{"locked_until": now.Add(lease)},
		"$inc": bson.M{"attempts": 1},
	}
	opts := options.FindOneAndUpdate().
		SetSort(bson.D{{Key: "due_at", Value: 1}}).
		SetReturnDocument(options.After)

	claimed := make([]repository.ScheduledAction, 0)
	for len(claimed) < limit {
		var doc actionDocument
		err := r.actions.FindOneAndUpdate(ctx, filter, update, opts).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			break
		}
		if err != nil {
			return nil, err
		}
		claimed = append(claimed, fromActionDocument(doc))
	}
	return claimed, nil
}

// CompleteAction ставит маркер fired_at
func (r *Repository) CompleteAction(ctx context.Context, id string, firedAt time.Time, lastErr string) error {
	return r.updateAction(ctx, id, bson.M{
		"fired_at":     firedAt.UTC(),
		"last_error":   lastErr,
		"locked_until": nil,
	})
}

// RetryAction откладывает следующую попытку до retryAt
func (r *Repository) RetryAction(ctx context.Context, id string, retryAt time.Time, lastErr string) error {
	return r.updateAction(ctx, id, bson.M{
		"locked_until": retryAt.UTC(),
		"last_error":   lastErr,
	})
}

func (r *Repository) updateAction(ctx context.Context, id string, set bson.M) error {
	res, err := r.actions.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return repository.ErrActionNotFound
	}
	return nil
}

// GetAction возвращает действие по бронированию и типу
func (r *Repository) GetAction(ctx context.Context, reference string, kind repository.ActionKind) (repository.ScheduledAction, error) {
	var doc actionDocument
	err := r.actions.FindOne(ctx, bson.M{"booking_reference": reference, "kind": string(kind)}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return repository.ScheduledAction{}, repository.ErrActionNotFound
		}
		return repository.ScheduledAction{}, err
	}
	return fromActionDocument(doc), nil
}

func fromActionDocument(d actionDocument) repository.ScheduledAction {
	a := repository.ScheduledAction{
		ID:               d.ID,
		BookingReference: d.BookingReference,
		Kind:             repository.ActionKind(d.Kind),
		DueAt:            d.DueAt.UTC(),
		Attempts:         d.Attempts,
		LastError:        d.LastError,
		CreatedAt:        d.CreatedAt.UTC(),
	}
	if d.FiredAt != nil {
		firedAt := d.FiredAt.UTC()
		a.FiredAt = &firedAt
	}
	return a
}
