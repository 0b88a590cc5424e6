package handler

import (
	"context"
	"errors"
	"strings"

	"smstudio/internal/notifications/repository"
	"smstudio/pkg/kafka"
	"smstudio/pkg/logger"
	"smstudio/pkg/model"
	"smstudio/pkg/notify"
)

var (
	ErrEmptyPayload   = errors.New("empty notification payload")
	ErrMissingUser    = errors.New("notification has no recipient")
	ErrUnknownType    = errors.New("unknown notification type")
	errMalformedEvent = errors.New("malformed notification event")
)

// NotificationHandler stores notifications published by the booking API.
// Undecodable or invalid events are permanent failures and go straight to
// the dead letter topic; storage failures are retried.
type NotificationHandler struct {
	repo repository.NotificationRepository
	log  *logger.Logger
}

func NewNotificationHandler(repo repository.NotificationRepository, log *logger.Logger) *NotificationHandler {
	return &NotificationHandler{
		repo: repo,
		log:  log,
	}
}

func (h *NotificationHandler) Handle(ctx context.Context, msg kafka.Message) error {
	n, err := decode(msg)
	if err != nil {
		h.log.Warn("Dropping malformed notification",
			"topic", msg.Topic,
			"offset", msg.Offset,
			"event_id", msg.GetEventID(),
			"error", err,
		)
		return kafka.NewPermanentError("invalid notification", err).
			WithDetail("event_id", msg.GetEventID())
	}

	inserted, err := h.repo.Insert(ctx, n)
	if err != nil {
		h.log.Error("Failed to store notification",
			"event_id", n.ID,
			"user_id", n.UserID,
			"error", err,
		)
		return kafka.NewTransientError("store notification", err)
	}
	if !inserted {
		h.log.Debug("Duplicate notification ignored", "event_id", n.ID, "user_id", n.UserID)
		return nil
	}

	h.log.Info("Notification stored",
		"event_id", n.ID,
		"user_id", n.UserID,
		"type", n.Type,
		"booking_id", n.BookingID,
	)
	return nil
}

// decode rebuilds the notification from the message. The event id becomes the
// document id and unread is forced.
func decode(msg kafka.Message) (*model.Notification, error) {
	if len(msg.Value) == 0 {
		return nil, ErrEmptyPayload
	}

	var n model.Notification
	if err := msg.DecodeValue(&n); err != nil {
		return nil, errors.Join(errMalformedEvent, err)
	}
	n.UserID = strings.TrimSpace(n.UserID)
	if n.UserID == "" {
		n.UserID = msg.Key
	}
	if n.UserID == "" {
		return nil, ErrMissingUser
	}

	if n.Type == "" {
		n.Type = strings.TrimPrefix(msg.GetEventType(), notify.EventTypePrefix)
	}
	switch n.Type {
	case model.NotificationBooking, model.NotificationPayment, model.NotificationSystem:
	default:
		return nil, ErrUnknownType
	}

	if n.BookingID == 0 {
		n.BookingID = msg.GetBookingID()
	}
	if id := msg.GetEventID(); id != "" {
		n.ID = id
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = msg.Timestamp.UTC()
	}
	n.IsRead = false
	return &n, nil
}
