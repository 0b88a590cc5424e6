package model

import "time"

// AvailabilityDay is the set of bookable slots an artist published for one date.
type AvailabilityDay struct {
	ID            string    `json:"id,omitempty" bson:"_id,omitempty"`
	MuaID         string    `json:"mua_id" bson:"mua_id" validate:"required,max=64"`
	AvailableDate string    `json:"available_date" bson:"available_date" validate:"required,iso_date"`
	TimeSlots     []string  `json:"time_slots" bson:"time_slots" validate:"max=1440,dive,slot_time"`
	CreatedAt     time.Time `json:"created_at" bson:"created_at"`
	UpdatedAt     time.Time `json:"updated_at" bson:"updated_at"`
}

type AvailabilityFilter struct {
	MuaID    string
	Date     string
	DateFrom string
	DateTo   string
}

// RecurringTemplate maps weekday keys ("mon".."sun") to slot lists. Entries that
// are not lists are ignored.
type RecurringTemplate map[string]any

const (
	ReasonOK                = "ok"
	ReasonNotInAvailability = "not_in_availability"
	ReasonAlreadyBooked     = "already_booked"
)

type SlotCheck struct {
	Available bool   `json:"available"`
	Reason    string `json:"reason"`
}

type FreeSlots struct {
	Date      string   `json:"date"`
	FreeSlots []string `json:"free_slots"`
}

// AvailabilityItem is one entry of a bulk upsert.
type AvailabilityItem struct {
	MuaID     string   `json:"mua_id" validate:"required,max=64"`
	Date      string   `json:"date" validate:"required,iso_date"`
	TimeSlots []string `json:"time_slots" validate:"required,max=1440"`
}

type BulkAvailability struct {
	Items []AvailabilityItem `json:"items" validate:"required,min=1,dive"`
}

// SlotChange adds or removes one slot (Time) or many (Times) on a day.
type SlotChange struct {
	MuaID string   `json:"mua_id" validate:"required,max=64"`
	Date  string   `json:"date" validate:"required,iso_date"`
	Time  string   `json:"time,omitempty"`
	Times []string `json:"times,omitempty" validate:"max=1440"`
}

func (c SlotChange) All() []string {
	out := make([]string, 0, len(c.Times)+1)
	if c.Time != "" {
		out = append(out, c.Time)
	}
	return append(out, c.Times...)
}

type RecurringAvailability struct {
	MuaID    string            `json:"mua_id" validate:"required,max=64"`
	DateFrom string            `json:"date_from" validate:"required,iso_date"`
	DateTo   string            `json:"date_to" validate:"required,iso_date"`
	Template RecurringTemplate `json:"template" validate:"required"`
}
