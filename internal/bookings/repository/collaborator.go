package repository

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	bookingserrors "smstudio/internal/bookings/errors"
	"smstudio/pkg/config"
	"smstudio/pkg/model"
)

const CollaboratorsCollectionName = "Booking_collaborators"

// CollaboratorRepository stores the artists invited to help on a booking.
// (booking_id, profile_id) is unique.
type CollaboratorRepository interface {
	FindByBooking(ctx context.Context, bookingID int64) ([]*model.BookingCollaborator, error)
	Find(ctx context.Context, bookingID int64, profileID string) (*model.BookingCollaborator, error)
	Upsert(ctx context.Context, c *model.BookingCollaborator) error
	Delete(ctx context.Context, bookingID int64, profileID string) (bool, error)
	Count(ctx context.Context, bookingID int64) (int64, error)
}

type mongoCollaboratorRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewCollaboratorRepository(cfg *config.Config) CollaboratorRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoCollaboratorRepository{
		cfg:        cfg,
		collection: db.Collection(CollaboratorsCollectionName),
	}
}

func (r *mongoCollaboratorRepository) FindByBooking(ctx context.Context, bookingID int64) ([]*model.BookingCollaborator, error) {
	cursor, err := r.collection.Find(ctx,
		bson.M{"booking_id": bookingID},
		options.Find().SetSort(bson.D{{Key: "invited_at", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to find collaborators: %w", err)
	}
	defer cursor.Close(ctx)

	var out []*model.BookingCollaborator
	if err := cursor.All(ctx, &out); err != nil {
		return nil, fmt.Errorf("failed to decode collaborators: %w", err)
	}
	return out, nil
}

func (r *mongoCollaboratorRepository) Find(ctx context.Context, bookingID int64, profileID string) (*model.BookingCollaborator, error) {
	var c model.BookingCollaborator
	err := r.collection.FindOne(ctx, bson.M{"booking_id": bookingID, "profile_id": profileID}).Decode(&c)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, bookingserrors.ErrCollaboratorNotFound
		}
		return nil, fmt.Errorf("failed to find collaborator: %w", err)
	}
	return &c, nil
}

func (r *mongoCollaboratorRepository) Upsert(ctx context.Context, c *model.BookingCollaborator) error {
	set := bson.M{
		"role":   c.Role,
		"status": c.Status,
	}
	if c.RespondedAt != nil {
		set["responded_at"] = c.RespondedAt
	}
	_, err := r.collection.UpdateOne(ctx,
		bson.M{"booking_id": c.BookingID, "profile_id": c.ProfileID},
		bson.M{
			"$set":         set,
			"$setOnInsert": bson.M{"invited_at": c.InvitedAt},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert collaborator: %w", err)
	}
	return nil
}

func (r *mongoCollaboratorRepository) Delete(ctx context.Context, bookingID int64, profileID string) (bool, error) {
	result, err := r.collection.DeleteOne(ctx, bson.M{"booking_id": bookingID, "profile_id": profileID})
	if err != nil {
		return false, fmt.Errorf("failed to delete collaborator: %w", err)
	}
	return result.DeletedCount > 0, nil
}

func (r *mongoCollaboratorRepository) Count(ctx context.Context, bookingID int64) (int64, error) {
	count, err := r.collection.CountDocuments(ctx, bson.M{"booking_id": bookingID})
	if err != nil {
		return 0, fmt.Errorf("failed to count collaborators: %w", err)
	}
	return count, nil
}
