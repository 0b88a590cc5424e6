package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "smstudio/internal/bookings/errors"
	"smstudio/pkg/config"
	mongotx "smstudio/pkg/db/mongo"
	"smstudio/pkg/model"
)

const (
	CollectionName         = "Bookings"
	CountersCollectionName = "Counters"

	// Index names are shared with the migrations so duplicate-key errors can
	// be told apart.
	ActiveSlotIndex    = "uniq_active_slot"
	InvoiceNumberIndex = "uniq_invoice_number"

	bookingSequence = "bookings"
)

type mongoBookingRepository struct {
	cfg        *config.Config
	db         *mongo.Database
	collection *mongo.Collection
	counters   *mongo.Collection
	txManager  mongotx.TransactionManager
}

type BookingRepository interface {
	NextID(ctx context.Context) (int64, error)
	Create(ctx context.Context, booking *model.Booking) error
	FindByID(ctx context.Context, id int64) (*model.Booking, error)
	Update(ctx context.Context, booking *model.Booking) error
	ExistsActive(ctx context.Context, muaID, date, time string, excludeID int64) (bool, error)
	ActiveSlots(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error)
	Search(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error)
	Count(ctx context.Context, filter model.BookingFilter) (int64, error)
	CountByStatus(ctx context.Context, filter model.BookingFilter) (map[string]int64, error)
	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

func NewMongoBookingRepository(cfg *config.Config) BookingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoBookingRepository{
		cfg:        cfg,
		db:         db,
		collection: db.Collection(CollectionName),
		counters:   db.Collection(CountersCollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

// withTimeout wraps the context with a timeout if not already in a transaction.
// A SessionContext cannot be wrapped without breaking transaction semantics.
func (r *mongoBookingRepository) withTimeout(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	if _, ok := ctx.(mongo.SessionContext); ok {
		return ctx, func() {}
	}

	deadline, hasDeadline := ctx.Deadline()
	if !hasDeadline {
		return context.WithTimeout(ctx, timeout)
	}

	remaining := time.Until(deadline)
	if remaining < timeout {
		return context.WithTimeout(ctx, remaining)
	}

	return context.WithTimeout(ctx, timeout)
}

// NextID hands out the integer booking ids from a counters document.
func (r *mongoBookingRepository) NextID(ctx context.Context) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var counter struct {
		Seq int64 `bson:"seq"`
	}
	err := r.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": bookingSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&counter)
	if err != nil {
		return 0, fmt.Errorf("failed to allocate booking id: %w", err)
	}
	return counter.Seq, nil
}

func (r *mongoBookingRepository) Create(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := time.Now().UTC().Truncate(time.Millisecond)
	booking.CreatedAt = now
	booking.UpdatedAt = now
	booking.Version = 1

	if _, err := r.collection.InsertOne(ctx, booking); err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to create booking: %w", err)
	}
	return nil
}

func (r *mongoBookingRepository) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var booking model.Booking
	err := r.collection.FindOne(ctx, bson.M{"_id": id}).Decode(&booking)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrNotFound
		}
		return nil, fmt.Errorf("failed to find booking: %w", err)
	}

	return &booking, nil
}

// Update replaces the booking only if its version still matches the one that
// was read, then bumps the version.
func (r *mongoBookingRepository) Update(ctx context.Context, booking *model.Booking) error {
	ctx, cancel := r.withTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	expected := booking.Version
	next := *booking
	next.Version = expected + 1
	next.UpdatedAt = time.Now().UTC().Truncate(time.Millisecond)

	result, err := r.collection.ReplaceOne(ctx, bson.M{"_id": booking.ID, "version": expected}, &next)
	if err != nil {
		if dup := duplicateKey(err); dup != nil {
			return dup
		}
		return fmt.Errorf("failed to update booking: %w", err)
	}
	if result.MatchedCount == 0 {
		return bookingserrors.ErrStaleBooking
	}

	booking.Version = next.Version
	booking.UpdatedAt = next.UpdatedAt
	return nil
}

func (r *mongoBookingRepository) ExistsActive(ctx context.Context, muaID, date, slot string, excludeID int64) (bool, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"mua_id":       muaID,
		"booking_date": date,
		"booking_time": slot,
		"active":       true,
	}
	if excludeID != 0 {
		filter["_id"] = bson.M{"$ne": excludeID}
	}

	count, err := r.collection.CountDocuments(ctx, filter, options.Count().SetLimit(1))
	if err != nil {
		return false, fmt.Errorf("failed to check active booking: %w", err)
	}
	return count > 0, nil
}

// ActiveSlots returns booking times held by active bookings, keyed by date.
func (r *mongoBookingRepository) ActiveSlots(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"mua_id":       muaID,
		"booking_date": bson.M{"$gte": from, "$lte": to},
		"active":       true,
	}
	if excludeID != 0 {
		filter["_id"] = bson.M{"$ne": excludeID}
	}
	opts := options.Find().SetProjection(bson.M{"booking_date": 1, "booking_time": 1})

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find active bookings: %w", err)
	}
	defer cursor.Close(ctx)

	slots := make(map[string][]string)
	for cursor.Next(ctx) {
		var row struct {
			Date string `bson:"booking_date"`
			Time string `bson:"booking_time"`
		}
		if err := cursor.Decode(&row); err != nil {
			return nil, fmt.Errorf("failed to decode active booking: %w", err)
		}
		slots[row.Date] = append(slots[row.Date], row.Time)
	}
	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate active bookings: %w", err)
	}
	return slots, nil
}

// Search returns bookings newest first. A zero limit returns every match.
func (r *mongoBookingRepository) Search(ctx context.Context, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSort(bson.D{{Key: "booking_date", Value: -1}, {Key: "booking_time", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(offset)
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}

	cursor, err := r.collection.Find(ctx, buildSearchFilter(filter), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to find bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var bookings []*model.Booking
	if err = cursor.All(ctx, &bookings); err != nil {
		return nil, fmt.Errorf("failed to decode bookings: %w", err)
	}

	return bookings, nil
}

func (r *mongoBookingRepository) Count(ctx context.Context, filter model.BookingFilter) (int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, buildSearchFilter(filter))
	if err != nil {
		return 0, fmt.Errorf("failed to count bookings: %w", err)
	}
	return count, nil
}

// CountByStatus groups matching bookings by their legacy status.
func (r *mongoBookingRepository) CountByStatus(ctx context.Context, filter model.BookingFilter) (map[string]int64, error) {
	ctx, cancel := r.withTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: buildSearchFilter(filter)}},
		{{Key: "$group", Value: bson.M{"_id": "$status", "count": bson.M{"$sum": 1}}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate bookings: %w", err)
	}
	defer cursor.Close(ctx)

	var rows []struct {
		Status string `bson:"_id"`
		Count  int64  `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, fmt.Errorf("failed to decode booking stats: %w", err)
	}

	counts := make(map[string]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Count
	}
	return counts, nil
}

func buildSearchFilter(f model.BookingFilter) bson.M {
	filter := bson.M{}
	if f.MuaID != "" {
		filter["mua_id"] = f.MuaID
	}
	if f.CustomerID != "" {
		filter["customer_id"] = f.CustomerID
	}
	if len(f.Statuses) > 0 {
		filter["status"] = bson.M{"$in": f.Statuses}
	}
	if f.DateFrom != "" || f.DateTo != "" {
		dates := bson.M{}
		if f.DateFrom != "" {
			dates["$gte"] = f.DateFrom
		}
		if f.DateTo != "" {
			dates["$lte"] = f.DateTo
		}
		filter["booking_date"] = dates
	}
	return filter
}

// duplicateKey maps a unique-index violation to the matching sentinel, or
// returns nil when err is not a duplicate-key error.
func duplicateKey(err error) error {
	if !mongo.IsDuplicateKeyError(err) {
		return nil
	}
	switch {
	case strings.Contains(err.Error(), InvoiceNumberIndex):
		return fmt.Errorf("%w: %v", bookingserrors.ErrDuplicateInvoice, err)
	default:
		return fmt.Errorf("%w: %v", bookingserrors.ErrSlotTaken, err)
	}
}

func (r *mongoBookingRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
