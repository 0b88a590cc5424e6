// Package repository reads the profiles and offerings owned by other
// services. Nothing here writes.
package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	directoryerrors "smstudio/internal/directory/errors"
	"smstudio/pkg/config"
	"smstudio/pkg/model"
)

const (
	ProfilesCollectionName  = "Profiles"
	OfferingsCollectionName = "Offerings"
)

type ProfileRepository interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

type OfferingRepository interface {
	FindByID(ctx context.Context, id string) (*model.Offering, error)
}

type mongoProfileRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

type mongoOfferingRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoProfileRepository(cfg *config.Config) ProfileRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoProfileRepository{cfg: cfg, collection: db.Collection(ProfilesCollectionName)}
}

func NewMongoOfferingRepository(cfg *config.Config) OfferingRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOfferingRepository{cfg: cfg, collection: db.Collection(OfferingsCollectionName)}
}

func (r *mongoProfileRepository) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	var profile model.Profile
	if err := findByID(ctx, r.collection, r.cfg.ReadTimeout, id, &profile); err != nil {
		return nil, err
	}
	return &profile, nil
}

func (r *mongoOfferingRepository) FindByID(ctx context.Context, id string) (*model.Offering, error) {
	var offering model.Offering
	if err := findByID(ctx, r.collection, r.cfg.ReadTimeout, id, &offering); err != nil {
		return nil, err
	}
	return &offering, nil
}

// findByID matches ids stored either as plain strings or as ObjectIDs.
func findByID(ctx context.Context, collection *mongo.Collection, timeout time.Duration, id string, dst any) error {
	if _, ok := ctx.(mongo.SessionContext); !ok && timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	ids := bson.A{id}
	if oid, err := primitive.ObjectIDFromHex(id); err == nil {
		ids = append(ids, oid)
	}

	err := collection.FindOne(ctx, bson.M{"_id": bson.M{"$in": ids}}).Decode(dst)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return directoryerrors.ErrNotFound
		}
		return fmt.Errorf("failed to find %s %s: %w", collection.Name(), id, err)
	}
	return nil
}
