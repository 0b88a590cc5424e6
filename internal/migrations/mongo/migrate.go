package mongo

import (
	"context"
	"fmt"
	"sort"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	availabilityrepo "smstudio/internal/availability/repository"
	bookingsrepo "smstudio/internal/bookings/repository"
	directoryrepo "smstudio/internal/directory/repository"
	"smstudio/internal/migrations/mongo/validators"
	notificationsrepo "smstudio/internal/notifications/repository"
	"smstudio/pkg/logger"
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

var (
	AvailabilityIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "mua_id", Value: 1}, {Key: "available_date", Value: 1}},
			Options: options.Index().SetName("uniq_mua_day").SetUnique(true),
		},
	}

	// Only active bookings hold a slot, so cancelled and rejected rows may repeat it.
	BookingsIndexes = []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "mua_id", Value: 1},
				{Key: "booking_date", Value: 1},
				{Key: "booking_time", Value: 1},
			},
			Options: options.Index().
				SetName(bookingsrepo.ActiveSlotIndex).
				SetUnique(true).
				SetPartialFilterExpression(bson.M{"active": true}),
		},
		{
			Keys:    bson.D{{Key: "invoice_number", Value: 1}},
			Options: options.Index().SetName(bookingsrepo.InvoiceNumberIndex).SetUnique(true),
		},
		{Keys: bson.D{{Key: "mua_id", Value: 1}, {Key: "booking_date", Value: 1}}},
		{Keys: bson.D{{Key: "customer_id", Value: 1}, {Key: "_id", Value: -1}}},
		{Keys: bson.D{{Key: "payment_status", Value: 1}}},
		{Keys: bson.D{{Key: "job_status", Value: 1}}},
	}

	CollaboratorsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "booking_id", Value: 1}, {Key: "profile_id", Value: 1}},
			Options: options.Index().SetName("uniq_booking_profile").SetUnique(true),
		},
		{Keys: bson.D{{Key: "profile_id", Value: 1}, {Key: "status", Value: 1}}},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	OfferingsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "mua_id", Value: 1}}},
	}
)

// Collections returns every collection the services rely on, keyed by name.
func Collections() map[string]collectionDef {
	return map[string]collectionDef{
		availabilityrepo.CollectionName: {
			Indexes:   AvailabilityIndexes,
			Validator: validators.AvailabilityValidator,
		},
		bookingsrepo.CollectionName: {
			Indexes:   BookingsIndexes,
			Validator: validators.BookingValidator,
		},
		bookingsrepo.CountersCollectionName: {},
		bookingsrepo.CollaboratorsCollectionName: {
			Indexes:   CollaboratorsIndexes,
			Validator: validators.CollaboratorValidator,
		},
		notificationsrepo.CollectionName: {
			Indexes:   NotificationsIndexes,
			Validator: validators.NotificationValidator,
		},
		directoryrepo.ProfilesCollectionName: {},
		directoryrepo.OfferingsCollectionName: {
			Indexes: OfferingsIndexes,
		},
	}
}

func RunMigration(ctx context.Context, db *mongo.Database, log *logger.Logger) error {
	log.Info("Running Mongo migrations", "database", db.Name())

	collections := Collections()
	names := make([]string, 0, len(collections))
	for name := range collections {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		def := collections[name]
		if err := ensureCollection(ctx, db, log, name, def.Validator); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, log, name, def.Indexes); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully")
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, log *logger.Logger, name string, validator bson.M) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection()
		if validator != nil {
			opts.SetValidator(validator)
		}
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	if validator == nil {
		return nil
	}

	log.Debug("Collection exists, updating validator", "collection", name)
	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, log *logger.Logger, name string, models []mongo.IndexModel) error {
	if len(models) == 0 {
		return nil
	}
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Info("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
