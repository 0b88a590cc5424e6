// Package authz holds every role and ownership rule of the booking engine in
// one place, so handlers and services never compare roles themselves.
package authz

import "smstudio/pkg/model"

type Action string

const (
	ManageAvailability  Action = "availability:manage"
	CreateBooking       Action = "booking:create"
	ViewBooking         Action = "booking:view"
	ConfirmBooking      Action = "booking:confirm"
	RejectBooking       Action = "booking:reject"
	CancelBooking       Action = "booking:cancel"
	RescheduleBooking   Action = "booking:reschedule"
	StartJob            Action = "booking:start"
	CompleteJob         Action = "booking:complete"
	RecordPayment       Action = "booking:payment"
	UpdatePricing       Action = "booking:pricing"
	ManageCollaborators Action = "booking:collaborators"
)

type Actor struct {
	ID   string
	Role string
}

func (a Actor) IsAdmin() bool {
	return a.Role == model.RoleAdmin
}

// Resource identifies the parties that own the target of an action.
type Resource struct {
	ArtistID   string
	CustomerID string
}

func ForBooking(b *model.Booking) Resource {
	return Resource{ArtistID: b.MuaID, CustomerID: b.CustomerID}
}

func ForArtist(artistID string) Resource {
	return Resource{ArtistID: artistID}
}

// CanAct reports whether actor may perform action on resource.
func CanAct(actor Actor, resource Resource, action Action) bool {
	if actor.ID == "" {
		return false
	}
	isArtist := resource.ArtistID != "" && actor.ID == resource.ArtistID
	isCustomer := resource.CustomerID != "" && actor.ID == resource.CustomerID

	switch action {
	case ConfirmBooking, RejectBooking:
		// Only the booked artist decides on a request; admins cannot act for them.
		return isArtist
	case CancelBooking, RescheduleBooking, ViewBooking:
		return isArtist || isCustomer || actor.IsAdmin()
	case CreateBooking:
		return isCustomer || actor.IsAdmin()
	case ManageAvailability, StartJob, CompleteJob, RecordPayment, UpdatePricing, ManageCollaborators:
		return isArtist || actor.IsAdmin()
	default:
		return false
	}
}

// CounterParty is the booking participant who should hear about an action
// performed by actorID.
func CounterParty(b *model.Booking, actorID string) string {
	if actorID == b.MuaID {
		return b.CustomerID
	}
	return b.MuaID
}
