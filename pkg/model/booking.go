package model

import (
	"time"

	"smstudio/pkg/money"
)

// BookingState is the single source of truth for a booking's lifecycle. The
// legacy status and job_status fields are projections of it.
type BookingState string

const (
	StatePending    BookingState = "pending"
	StateConfirmed  BookingState = "confirmed"
	StateRejected   BookingState = "rejected"
	StateInProgress BookingState = "in_progress"
	StateCompleted  BookingState = "completed"
	StateCancelled  BookingState = "cancelled"
)

var transitions = map[BookingState][]BookingState{
	StatePending:    {StateConfirmed, StateRejected, StateCancelled},
	StateConfirmed:  {StateInProgress, StateCancelled},
	StateInProgress: {StateCompleted, StateCancelled},
}

func (s BookingState) Valid() bool {
	switch s {
	case StatePending, StateConfirmed, StateRejected, StateInProgress, StateCompleted, StateCancelled:
		return true
	}
	return false
}

// Active states occupy their slot.
func (s BookingState) Active() bool {
	return s == StatePending || s == StateConfirmed || s == StateInProgress
}

func (s BookingState) Terminal() bool {
	return s == StateCompleted || s == StateRejected || s == StateCancelled
}

func (s BookingState) CanTransitionTo(next BookingState) bool {
	for _, allowed := range transitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// LegacyStatus has no in_progress value; a started job still reads as confirmed.
func (s BookingState) LegacyStatus() string {
	if s == StateInProgress {
		return string(StateConfirmed)
	}
	return string(s)
}

// JobStatus has no rejected value; a rejected booking reads as cancelled.
func (s BookingState) JobStatus() string {
	if s == StateRejected {
		return string(StateCancelled)
	}
	return string(s)
}

type PaymentStatus string

const (
	PaymentUnpaid   PaymentStatus = "unpaid"
	PaymentPartial  PaymentStatus = "partial"
	PaymentPaid     PaymentStatus = "paid"
	PaymentRefunded PaymentStatus = "refunded"
	PaymentVoid     PaymentStatus = "void"
)

// Settled statuses are never overwritten by job completion.
func (p PaymentStatus) Settled() bool {
	return p == PaymentPaid || p == PaymentRefunded || p == PaymentVoid
}

func (p PaymentStatus) Valid() bool {
	switch p {
	case PaymentUnpaid, PaymentPartial, PaymentPaid, PaymentRefunded, PaymentVoid:
		return true
	}
	return false
}

const (
	ServiceHomeService = "home_service"
	ServiceStudio      = "studio"
)

type AddOn struct {
	Name  string       `json:"name" bson:"name" validate:"required,min=1,max=100"`
	Price money.Amount `json:"price" bson:"price"`
}

type PaymentEvent struct {
	Amount     money.Amount `json:"amount" bson:"amount"`
	PaidAt     time.Time    `json:"paid_at" bson:"paid_at"`
	RecordedBy string       `json:"recorded_by,omitempty" bson:"recorded_by,omitempty"`
}

type Booking struct {
	ID               int64             `json:"id" bson:"_id"`
	CustomerID       string            `json:"customer_id" bson:"customer_id" validate:"required,max=64"`
	MuaID            string            `json:"mua_id" bson:"mua_id" validate:"required,max=64"`
	OfferingID       *string           `json:"offering_id,omitempty" bson:"offering_id,omitempty" validate:"omitempty,max=64"`
	BookingDate      string            `json:"booking_date" bson:"booking_date" validate:"required,iso_date"`
	BookingTime      string            `json:"booking_time" bson:"booking_time" validate:"required,slot_time"`
	ServiceType      string            `json:"service_type" bson:"service_type" validate:"required,service_type"`
	LocationAddress  string            `json:"location_address,omitempty" bson:"location_address,omitempty" validate:"omitempty,max=500"`
	Notes            string            `json:"notes,omitempty" bson:"notes,omitempty" validate:"omitempty,max=2000"`
	Person           int               `json:"person" bson:"person" validate:"min=1,max=50"`
	UseCollaboration bool              `json:"use_collaboration" bson:"use_collaboration"`
	IsCollaborative  bool              `json:"is_collaborative" bson:"is_collaborative"`
	Amount           money.Amount      `json:"amount" bson:"amount"`
	SelectedAddOns   []AddOn           `json:"selected_add_ons" bson:"selected_add_ons" validate:"omitempty,max=50,dive"`
	Subtotal         money.Amount      `json:"subtotal" bson:"subtotal"`
	Tax              money.Percent     `json:"tax" bson:"tax"`
	TaxAmount        money.Amount      `json:"tax_amount" bson:"tax_amount"`
	DiscountAmount   money.Amount      `json:"discount_amount" bson:"discount_amount"`
	GrandTotal       money.Amount      `json:"grand_total" bson:"grand_total"`
	Total            money.Amount      `json:"total" bson:"total"`
	InvoiceNumber    string            `json:"invoice_number" bson:"invoice_number"`
	InvoiceDate      time.Time         `json:"invoice_date" bson:"invoice_date"`
	DueDate          *time.Time        `json:"due_date,omitempty" bson:"due_date,omitempty"`
	State            BookingState      `json:"-" bson:"state"`
	Status           string            `json:"status" bson:"status"`
	JobStatus        string            `json:"job_status" bson:"job_status"`
	Active           bool              `json:"-" bson:"active"`
	PaymentMethod    string            `json:"payment_method,omitempty" bson:"payment_method,omitempty" validate:"omitempty,max=50"`
	PaymentStatus    PaymentStatus     `json:"payment_status" bson:"payment_status" validate:"omitempty,payment_status"`
	AmountPaid       money.Amount      `json:"amount_paid" bson:"amount_paid"`
	Payments         []PaymentEvent    `json:"payments,omitempty" bson:"payments,omitempty"`
	PaidAt           *time.Time        `json:"paid_at,omitempty" bson:"paid_at,omitempty"`
	Metadata         map[string]string `json:"metadata,omitempty" bson:"metadata,omitempty"`
	Version          int64             `json:"version" bson:"version"`
	CreatedAt        time.Time         `json:"created_at" bson:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at" bson:"updated_at"`
}

// SetState moves the booking to s and refreshes every derived field.
func (b *Booking) SetState(s BookingState) {
	b.State = s
	b.Status = s.LegacyStatus()
	b.JobStatus = s.JobStatus()
	b.Active = s.Active()
}

func (b *Booking) SetMetadata(key, value string) {
	if value == "" {
		return
	}
	if b.Metadata == nil {
		b.Metadata = make(map[string]string)
	}
	b.Metadata[key] = value
}

// BookingInput is the create payload. Pricing fields are optional; the amount
// falls back to the offering price.
type BookingInput struct {
	CustomerID       string        `json:"customer_id"`
	MuaID            string        `json:"mua_id"`
	OfferingID       *string       `json:"offering_id,omitempty"`
	BookingDate      string        `json:"booking_date"`
	BookingTime      string        `json:"booking_time"`
	ServiceType      string        `json:"service_type"`
	LocationAddress  string        `json:"location_address,omitempty"`
	Notes            string        `json:"notes,omitempty"`
	Person           int           `json:"person,omitempty"`
	UseCollaboration bool          `json:"use_collaboration,omitempty"`
	Amount           *money.Amount `json:"amount,omitempty"`
	SelectedAddOns   []AddOn       `json:"selected_add_ons,omitempty"`
	DiscountAmount   money.Amount  `json:"discount_amount,omitempty"`
	Tax              money.Percent `json:"tax,omitempty"`
	PaymentMethod    string        `json:"payment_method,omitempty"`
	InvoiceDate      *time.Time    `json:"invoice_date,omitempty"`
	DueDate          *time.Time    `json:"due_date,omitempty"`
}

// PricingUpdate carries the price-relevant fields of a booking. Nil means unchanged.
type PricingUpdate struct {
	Amount         *money.Amount  `json:"amount,omitempty"`
	SelectedAddOns *[]AddOn       `json:"selected_add_ons,omitempty"`
	DiscountAmount *money.Amount  `json:"discount_amount,omitempty"`
	Tax            *money.Percent `json:"tax,omitempty"`
}

type BookingFilter struct {
	MuaID      string
	CustomerID string
	Statuses   []string
	DateFrom   string
	DateTo     string
}

type CalendarEvent struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Start      string `json:"start"`
	Status     string `json:"status"`
	CustomerID string `json:"customer_id"`
}

// StatusChange is the body of a status update. Status takes the canonical
// state names; "in_progress" is accepted as well as the legacy values.
type StatusChange struct {
	Status string `json:"status" validate:"required,booking_status"`
	Reason string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type Reschedule struct {
	BookingDate string `json:"booking_date" validate:"required,iso_date"`
	BookingTime string `json:"booking_time" validate:"required,slot_time"`
	Reason      string `json:"reason,omitempty" validate:"omitempty,max=500"`
}

type PaymentInput struct {
	Amount money.Amount `json:"amount"`
	PaidAt *time.Time   `json:"paid_at,omitempty"`
}

type QuoteRequest struct {
	OfferingID       string `json:"offering_id" validate:"required,max=64"`
	UseCollaboration bool   `json:"use_collaboration"`
}

type Quote struct {
	Amount money.Amount `json:"amount"`
}

type InviteResponse struct {
	Response string `json:"response" validate:"required,oneof=accepted declined"`
}
