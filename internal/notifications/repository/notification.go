package repository

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/mongo"

	"smstudio/pkg/config"
	"smstudio/pkg/model"
)

const CollectionName = "Notifications"

// NotificationRepository persists delivered notifications. Insert is keyed on
// the notification id, so a redelivered event is stored once.
type NotificationRepository interface {
	Insert(ctx context.Context, n *model.Notification) (bool, error)
}

type mongoNotificationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoNotificationRepository(cfg *config.Config) NotificationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoNotificationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

// Insert reports false when a notification with the same id already exists.
func (r *mongoNotificationRepository) Insert(ctx context.Context, n *model.Notification) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.CreatedAt = n.CreatedAt.Truncate(time.Millisecond)

	if _, err := r.collection.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, fmt.Errorf("failed to insert notification: %w", err)
	}
	return true, nil
}
