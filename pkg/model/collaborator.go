package model

import "time"

const (
	CollaboratorAssistant = "assistant"
	CollaboratorCoMua     = "co-mua"
	CollaboratorLead      = "lead"

	InviteInvited  = "invited"
	InviteAccepted = "accepted"
	InviteDeclined = "declined"
)

type BookingCollaborator struct {
	ID          string     `json:"id,omitempty" bson:"_id,omitempty"`
	BookingID   int64      `json:"booking_id" bson:"booking_id"`
	ProfileID   string     `json:"profile_id" bson:"profile_id"`
	Role        string     `json:"role" bson:"role"`
	Status      string     `json:"status" bson:"status"`
	InvitedAt   time.Time  `json:"invited_at" bson:"invited_at"`
	RespondedAt *time.Time `json:"responded_at,omitempty" bson:"responded_at,omitempty"`
}

type CollaboratorInvite struct {
	ProfileIDs []string `json:"profile_ids" validate:"required,min=1,max=20,dive,required,max=64"`
	Role       string   `json:"role" validate:"omitempty,oneof=assistant co-mua lead"`
}
