package model

import "time"

const (
	NotificationBooking = "booking"
	NotificationSystem  = "system"
	NotificationPayment = "payment"
)

type Notification struct {
	ID        string    `json:"id,omitempty" bson:"_id,omitempty"`
	UserID    string    `json:"user_id" bson:"user_id"`
	Title     string    `json:"title" bson:"title"`
	Message   string    `json:"message" bson:"message"`
	Type      string    `json:"type" bson:"type"`
	BookingID int64     `json:"booking_id,omitempty" bson:"booking_id,omitempty"`
	IsRead    bool      `json:"is_read" bson:"is_read"`
	CreatedAt time.Time `json:"created_at" bson:"created_at"`
}
