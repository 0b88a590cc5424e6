package errors

import "errors"

var (
	ErrNotFound = errors.New("booking not found")

	// ErrSlotTaken means another active booking already holds the slot.
	ErrSlotTaken = errors.New("slot already taken")

	// ErrStaleBooking means the booking changed since it was read.
	ErrStaleBooking = errors.New("booking was modified concurrently")

	ErrDuplicateInvoice = errors.New("duplicate invoice number")

	ErrCollaboratorNotFound = errors.New("collaborator not found")
)
