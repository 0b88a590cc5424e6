package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	directoryerrors "smstudio/internal/directory/errors"
	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/money"
	"smstudio/pkg/pricing"
	"smstudio/pkg/timeslot"
)

// errUnchanged aborts a mutation that would not change the booking. The
// caller gets the current booking back and nothing is written or notified.
var errUnchanged = errors.New("booking unchanged")

// paymentTolerance absorbs rounding when comparing the amount paid to the
// grand total.
var paymentTolerance = money.New(decimal.New(1, -3))

var statusActions = map[model.BookingState]authz.Action{
	model.StateConfirmed:  authz.ConfirmBooking,
	model.StateRejected:   authz.RejectBooking,
	model.StateCancelled:  authz.CancelBooking,
	model.StateCompleted:  authz.CompleteJob,
	model.StateInProgress: authz.StartJob,
}

// mutate loads the booking inside a transaction, applies fn, recomputes the
// totals and writes it back under its version.
func (s *bookingService) mutate(
	ctx context.Context,
	id int64,
	op string,
	fn func(ctx context.Context, b *model.Booking) error,
) (*model.Booking, bool, error) {
	var result *model.Booking
	changed := true

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		b, err := s.load(txCtx, id)
		if err != nil {
			return err
		}
		if err := fn(txCtx, b); err != nil {
			if errors.Is(err, errUnchanged) {
				result, changed = b, false
				return nil
			}
			return err
		}
		pricing.Apply(b)
		if err := s.repo.Update(txCtx, b); err != nil {
			return err
		}
		result = b
		return nil
	})
	if err != nil {
		return nil, false, s.writeFailed(err, op, id)
	}
	return result, changed, nil
}

func (s *bookingService) UpdateStatus(ctx context.Context, actor authz.Actor, id int64, change model.StatusChange) (*model.Booking, error) {
	if err := s.validator.Struct(&change); err != nil {
		return nil, validationFailed(err)
	}
	target := model.BookingState(change.Status)
	action, ok := statusActions[target]
	if !ok {
		return nil, apperrors.Validation("status must be one of confirmed, rejected, cancelled, in_progress, completed", map[string]any{
			"status": change.Status,
		})
	}

	booking, changed, err := s.mutate(ctx, id, "update_status", func(txCtx context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), action) {
			s.cfg.Log.Warn("Booking status change forbidden",
				"booking_id", b.ID,
				"actor_id", actor.ID,
				"status", target,
			)
			return apperrors.Forbidden(fmt.Sprintf("You may not set this booking to %s", target))
		}

		switch target {
		case model.StateCompleted:
			if err := s.complete(b); err != nil {
				return err
			}
		case model.StateInProgress:
			if err := start(b); err != nil {
				return err
			}
		case model.StateCancelled:
			if b.State.Terminal() {
				return apperrors.Conflict(fmt.Sprintf("booking already %s", b.State))
			}
			b.SetState(model.StateCancelled)
		case model.StateConfirmed:
			if err := transition(b, target); err != nil {
				return err
			}
			if err := s.requireOnline(txCtx, b.MuaID); err != nil {
				return err
			}
		default:
			if err := transition(b, target); err != nil {
				return err
			}
		}
		b.SetMetadata("reason", strings.TrimSpace(change.Reason))
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !changed {
		return booking, nil
	}

	s.cfg.Log.Info("Booking status updated",
		"booking_id", booking.ID,
		"status", booking.Status,
		"job_status", booking.JobStatus,
		"actor_id", actor.ID,
	)
	s.notifier.Emit(model.Notification{
		UserID:    authz.CounterParty(booking, actor.ID),
		Title:     "Booking status updated",
		Message:   fmt.Sprintf("Status: %s (%s %s)", booking.JobStatus, booking.BookingDate, booking.BookingTime),
		Type:      model.NotificationBooking,
		BookingID: booking.ID,
	})
	return booking, nil
}

// requireOnline gates confirmation on the artist's presence.
func (s *bookingService) requireOnline(ctx context.Context, muaID string) error {
	profile, err := s.profiles.FindByID(ctx, muaID)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrNotFound) {
			return apperrors.NotFoundWithID("Profile", muaID)
		}
		return apperrors.Internal("Failed to retrieve artist profile", err)
	}
	if !profile.IsOnline {
		return apperrors.Conflict("artist offline")
	}
	return nil
}

func transition(b *model.Booking, target model.BookingState) error {
	if !b.State.CanTransitionTo(target) {
		return apperrors.Conflict(fmt.Sprintf("cannot move booking from %s to %s", b.State, target))
	}
	b.SetState(target)
	return nil
}

// start moves a confirmed booking to in_progress. Repeating it is a no-op and
// any other state is a conflict.
func start(b *model.Booking) error {
	if b.State == model.StateInProgress {
		return errUnchanged
	}
	return transition(b, model.StateInProgress)
}

// complete finishes a confirmed or in_progress job and, unless the payment is
// already settled, marks it paid. Repeating it is a no-op and any other state
// is a conflict.
func (s *bookingService) complete(b *model.Booking) error {
	switch b.State {
	case model.StateCompleted:
		return errUnchanged
	case model.StateConfirmed, model.StateInProgress:
	default:
		return apperrors.Conflict(fmt.Sprintf("cannot complete a %s booking", b.State))
	}
	b.SetState(model.StateCompleted)
	if !b.PaymentStatus.Settled() {
		b.PaymentStatus = model.PaymentPaid
		if b.PaidAt == nil {
			now := s.now()
			b.PaidAt = &now
		}
	}
	return nil
}

func (s *bookingService) Reschedule(ctx context.Context, actor authz.Actor, id int64, req model.Reschedule) (*model.Booking, error) {
	if err := s.validator.Struct(&req); err != nil {
		return nil, validationFailed(err)
	}
	date, _ := timeslot.CanonicalDate(req.BookingDate)
	slot, _ := timeslot.NormalizeTime(req.BookingTime)

	booking, _, err := s.mutate(ctx, id, "reschedule", func(txCtx context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.RescheduleBooking) {
			return apperrors.Forbidden("You are not a party to this booking")
		}
		if b.State == model.StateCompleted {
			return apperrors.Conflict("booking already completed")
		}

		check, err := s.slots.IsSlotFreeExcluding(txCtx, b.MuaID, date, slot, b.ID)
		if err != nil {
			return err
		}
		if !check.Available {
			return apperrors.SlotUnavailable(check.Reason)
		}

		b.BookingDate = date
		b.BookingTime = slot
		b.SetState(model.StatePending)
		b.SetMetadata("reschedule_reason", strings.TrimSpace(req.Reason))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking rescheduled",
		"booking_id", booking.ID,
		"date", booking.BookingDate,
		"time", booking.BookingTime,
		"actor_id", actor.ID,
	)
	s.notifier.Emit(model.Notification{
		UserID:    booking.MuaID,
		Title:     "Reschedule request",
		Message:   fmt.Sprintf("Booking moved to %s %s", booking.BookingDate, booking.BookingTime),
		Type:      model.NotificationBooking,
		BookingID: booking.ID,
	})
	return booking, nil
}

func (s *bookingService) MarkInProgress(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	booking, changed, err := s.mutate(ctx, id, "mark_in_progress", func(_ context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.StartJob) {
			return apperrors.Forbidden("Only the artist or an admin can start this job")
		}
		return start(b)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.cfg.Log.Info("Booking in progress", "booking_id", booking.ID, "actor_id", actor.ID)
		s.notifier.Emit(model.Notification{
			UserID:    booking.CustomerID,
			Title:     "Job started",
			Message:   fmt.Sprintf("Your booking on %s %s is in progress", booking.BookingDate, booking.BookingTime),
			Type:      model.NotificationBooking,
			BookingID: booking.ID,
		})
	}
	return booking, nil
}

func (s *bookingService) MarkComplete(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	booking, changed, err := s.mutate(ctx, id, "mark_complete", func(_ context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.CompleteJob) {
			return apperrors.Forbidden("Only the artist or an admin can complete this job")
		}
		return s.complete(b)
	})
	if err != nil {
		return nil, err
	}
	if changed {
		s.cfg.Log.Info("Booking completed",
			"booking_id", booking.ID,
			"payment_status", booking.PaymentStatus,
			"actor_id", actor.ID,
		)
		s.notifier.Emit(model.Notification{
			UserID:    booking.CustomerID,
			Title:     "Job completed",
			Message:   fmt.Sprintf("Your booking on %s %s is completed", booking.BookingDate, booking.BookingTime),
			Type:      model.NotificationBooking,
			BookingID: booking.ID,
		})
	}
	return booking, nil
}

// RecordPayment appends to the payment ledger and derives the payment status
// from the running total.
func (s *bookingService) RecordPayment(ctx context.Context, actor authz.Actor, id int64, in model.PaymentInput) (*model.Booking, error) {
	if in.Amount.IsNegative() {
		return nil, apperrors.Validation("amount must not be negative", map[string]any{"amount": in.Amount.String()})
	}

	booking, _, err := s.mutate(ctx, id, "record_payment", func(_ context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.RecordPayment) {
			return apperrors.Forbidden("Only the artist or an admin can record payments")
		}
		if b.PaymentStatus == model.PaymentRefunded || b.PaymentStatus == model.PaymentVoid {
			return apperrors.Conflict(fmt.Sprintf("payment already %s", b.PaymentStatus))
		}

		paidAt := s.now()
		if in.PaidAt != nil {
			paidAt = in.PaidAt.UTC()
		}
		if in.Amount.IsPositive() {
			b.Payments = append(b.Payments, model.PaymentEvent{
				Amount:     in.Amount.Round(),
				PaidAt:     paidAt,
				RecordedBy: actor.ID,
			})
		}
		b.AmountPaid = paidToDate(b.Payments)
		b.PaymentStatus = paymentStatus(b.AmountPaid, b.GrandTotal)
		b.PaidAt = &paidAt
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Payment recorded",
		"booking_id", booking.ID,
		"amount", in.Amount.String(),
		"amount_paid", booking.AmountPaid.String(),
		"payment_status", booking.PaymentStatus,
	)
	s.notifier.Emit(model.Notification{
		UserID:    authz.CounterParty(booking, actor.ID),
		Title:     "Payment recorded",
		Message:   fmt.Sprintf("Paid %s of %s", booking.AmountPaid, booking.GrandTotal),
		Type:      model.NotificationPayment,
		BookingID: booking.ID,
	})
	return booking, nil
}

func paidToDate(events []model.PaymentEvent) money.Amount {
	amounts := make([]money.Amount, 0, len(events))
	for _, e := range events {
		amounts = append(amounts, e.Amount)
	}
	return money.Sum(amounts...)
}

func paymentStatus(paid, grandTotal money.Amount) model.PaymentStatus {
	switch {
	case paid.Add(paymentTolerance).Cmp(grandTotal) >= 0:
		return model.PaymentPaid
	case paid.IsPositive():
		return model.PaymentPartial
	default:
		return model.PaymentUnpaid
	}
}

// UpdatePricing changes the price-relevant fields of an open booking. Totals
// are recomputed and the payment status re-derived from the ledger.
func (s *bookingService) UpdatePricing(ctx context.Context, actor authz.Actor, id int64, upd model.PricingUpdate) (*model.Booking, error) {
	booking, _, err := s.mutate(ctx, id, "update_pricing", func(_ context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.UpdatePricing) {
			return apperrors.Forbidden("Only the artist or an admin can change pricing")
		}
		if b.State.Terminal() {
			return apperrors.Conflict(fmt.Sprintf("cannot change pricing of a %s booking", b.State))
		}

		if upd.Amount != nil {
			b.Amount = *upd.Amount
		}
		if upd.SelectedAddOns != nil {
			b.SelectedAddOns = *upd.SelectedAddOns
		}
		if upd.DiscountAmount != nil {
			b.DiscountAmount = *upd.DiscountAmount
		}
		if upd.Tax != nil {
			b.Tax = *upd.Tax
		}
		if err := s.validator.Validate(b); err != nil {
			return validationFailed(err)
		}

		pricing.Apply(b)
		refundedOrVoid := b.PaymentStatus == model.PaymentRefunded || b.PaymentStatus == model.PaymentVoid
		if len(b.Payments) > 0 && !refundedOrVoid {
			b.PaymentStatus = paymentStatus(b.AmountPaid, b.GrandTotal)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Booking pricing updated",
		"booking_id", booking.ID,
		"grand_total", booking.GrandTotal.String(),
		"actor_id", actor.ID,
	)
	return booking, nil
}
