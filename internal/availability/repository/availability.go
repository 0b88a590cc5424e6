package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	availabilityerrors "smstudio/internal/availability/errors"
	"smstudio/pkg/config"
	mongotx "smstudio/pkg/db/mongo"
	"smstudio/pkg/model"
)

const (
	CollectionName = "Availability"

	maxListResults = 1000
)

type mongoAvailabilityRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

type AvailabilityRepository interface {
	FindDay(ctx context.Context, muaID, date string) (*model.AvailabilityDay, error)
	FindRange(ctx context.Context, muaID, from, to string) ([]*model.AvailabilityDay, error)
	List(ctx context.Context, filter model.AvailabilityFilter) ([]*model.AvailabilityDay, error)
	Upsert(ctx context.Context, day *model.AvailabilityDay) error
	Delete(ctx context.Context, muaID, date string) (bool, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoAvailabilityRepository(cfg *config.Config) AvailabilityRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoAvailabilityRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout unless it is bound to a
// session; wrapping a SessionContext would detach it from the transaction.
func (r *mongoAvailabilityRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if hasDeadline && time.Until(deadline) < timeout {
		return ctx, func() {}
	}

	return context.WithTimeout(ctx, timeout)
}

func (r *mongoAvailabilityRepository) FindDay(ctx context.Context, muaID, date string) (*model.AvailabilityDay, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var day model.AvailabilityDay
	err := r.collection.FindOne(ctx, bson.M{"mua_id": muaID, "available_date": date}).Decode(&day)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s %s", availabilityerrors.ErrNotFound, muaID, date)
		}
		return nil, fmt.Errorf("failed to find availability day: %w", err)
	}
	return &day, nil
}

func (r *mongoAvailabilityRepository) FindRange(ctx context.Context, muaID, from, to string) ([]*model.AvailabilityDay, error) {
	return r.List(ctx, model.AvailabilityFilter{MuaID: muaID, DateFrom: from, DateTo: to})
}

// List returns raw days ordered by date. Dates are stored as canonical
// YYYY-MM-DD strings so lexical range queries are date range queries.
func (r *mongoAvailabilityRepository) List(ctx context.Context, filter model.AvailabilityFilter) ([]*model.AvailabilityDay, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	query := bson.M{}
	if filter.MuaID != "" {
		query["mua_id"] = filter.MuaID
	}
	dateQuery := bson.M{}
	if filter.Date != "" {
		dateQuery["$eq"] = filter.Date
	}
	if filter.DateFrom != "" {
		dateQuery["$gte"] = filter.DateFrom
	}
	if filter.DateTo != "" {
		dateQuery["$lte"] = filter.DateTo
	}
	if len(dateQuery) > 0 {
		query["available_date"] = dateQuery
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "available_date", Value: 1}, {Key: "mua_id", Value: 1}}).
		SetLimit(maxListResults)

	cursor, err := r.collection.Find(ctx, query, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query availability: %w", err)
	}
	defer cursor.Close(ctx)

	days := make([]*model.AvailabilityDay, 0)
	if err = cursor.All(ctx, &days); err != nil {
		return nil, fmt.Errorf("failed to decode availability: %w", err)
	}
	return days, nil
}

// Upsert replaces the slot list of (mua_id, available_date), creating the row
// when absent. The stored document is read back into day.
func (r *mongoAvailabilityRepository) Upsert(ctx context.Context, day *model.AvailabilityDay) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	nowUTC := time.Now().UTC().Truncate(time.Millisecond)
	slots := day.TimeSlots
	if slots == nil {
		slots = []string{}
	}

	filter := bson.M{"mua_id": day.MuaID, "available_date": day.AvailableDate}
	update := bson.M{
		"$set": bson.M{
			"time_slots": slots,
			"updated_at": nowUTC,
		},
		"$setOnInsert": bson.M{
			"created_at": nowUTC,
		},
	}
	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored model.AvailabilityDay
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return fmt.Errorf("failed to upsert availability day: %w", err)
	}
	*day = stored
	return nil
}

func (r *mongoAvailabilityRepository) Delete(ctx context.Context, muaID, date string) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"mua_id": muaID, "available_date": date})
	if err != nil {
		return false, fmt.Errorf("failed to delete availability day: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoAvailabilityRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
