package service

import (
	"context"
	"errors"
	"fmt"

	bookingserrors "smstudio/internal/bookings/errors"
	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
)

func (s *bookingService) ListCollaborators(ctx context.Context, actor authz.Actor, bookingID int64) ([]*model.BookingCollaborator, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	list, err := s.collaborators.FindByBooking(ctx, bookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to list collaborators", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve collaborators", err)
	}

	if !authz.CanAct(actor, authz.ForBooking(booking), authz.ViewBooking) && !invited(list, actor.ID) {
		return nil, apperrors.Forbidden("You are not a party to this booking")
	}
	if list == nil {
		list = []*model.BookingCollaborator{}
	}
	return list, nil
}

func invited(list []*model.BookingCollaborator, profileID string) bool {
	for _, c := range list {
		if c.ProfileID == profileID {
			return true
		}
	}
	return false
}

// InviteCollaborators (re)invites each profile and marks the booking
// collaborative. The lead artist is never added as their own collaborator.
func (s *bookingService) InviteCollaborators(ctx context.Context, actor authz.Actor, bookingID int64, invite model.CollaboratorInvite) ([]*model.BookingCollaborator, error) {
	if err := s.validator.Struct(&invite); err != nil {
		return nil, validationFailed(err)
	}
	role := invite.Role
	if role == "" {
		role = model.CollaboratorAssistant
	}

	var invitees []string
	var list []*model.BookingCollaborator
	booking, _, err := s.mutate(ctx, bookingID, "invite_collaborators", func(txCtx context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.ManageCollaborators) {
			return apperrors.Forbidden("Only the lead artist or an admin can invite collaborators")
		}

		now := s.now()
		for _, profileID := range invite.ProfileIDs {
			if profileID == b.MuaID {
				continue
			}
			err := s.collaborators.Upsert(txCtx, &model.BookingCollaborator{
				BookingID: b.ID,
				ProfileID: profileID,
				Role:      role,
				Status:    model.InviteInvited,
				InvitedAt: now,
			})
			if err != nil {
				return err
			}
			invitees = append(invitees, profileID)
		}

		var err error
		if list, err = s.collaborators.FindByBooking(txCtx, b.ID); err != nil {
			return err
		}
		if len(list) > 0 {
			b.IsCollaborative = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.cfg.Log.Info("Collaborators invited", "booking_id", bookingID, "invited", len(invitees), "role", role)
	for _, profileID := range invitees {
		s.notifier.Emit(model.Notification{
			UserID:    profileID,
			Title:     "Collaboration invite",
			Message:   fmt.Sprintf("You were invited as %s on %s %s", role, booking.BookingDate, booking.BookingTime),
			Type:      model.NotificationBooking,
			BookingID: booking.ID,
		})
	}
	return list, nil
}

// RemoveCollaborator clears is_collaborative once the last collaborator is gone.
func (s *bookingService) RemoveCollaborator(ctx context.Context, actor authz.Actor, bookingID int64, profileID string) error {
	_, _, err := s.mutate(ctx, bookingID, "remove_collaborator", func(txCtx context.Context, b *model.Booking) error {
		if !authz.CanAct(actor, authz.ForBooking(b), authz.ManageCollaborators) {
			return apperrors.Forbidden("Only the lead artist or an admin can remove collaborators")
		}
		if _, err := s.collaborators.Delete(txCtx, b.ID, profileID); err != nil {
			return err
		}
		remaining, err := s.collaborators.Count(txCtx, b.ID)
		if err != nil {
			return err
		}
		if remaining > 0 || !b.IsCollaborative {
			return errUnchanged
		}
		b.IsCollaborative = false
		return nil
	})
	if err != nil {
		return err
	}

	s.cfg.Log.Info("Collaborator removed", "booking_id", bookingID, "profile_id", profileID)
	return nil
}

// RespondInvite records the invitee's answer. Only the invited profile itself
// can respond.
func (s *bookingService) RespondInvite(ctx context.Context, actor authz.Actor, bookingID int64, resp model.InviteResponse) (*model.BookingCollaborator, error) {
	if err := s.validator.Struct(&resp); err != nil {
		return nil, validationFailed(err)
	}
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}

	collaborator, err := s.collaborators.Find(ctx, bookingID, actor.ID)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrCollaboratorNotFound) {
			return nil, apperrors.NotFound("Invitation")
		}
		s.cfg.Log.Error("Failed to load invitation", "booking_id", bookingID, "profile_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve invitation", err)
	}

	now := s.now()
	collaborator.Status = resp.Response
	collaborator.RespondedAt = &now
	if err := s.collaborators.Upsert(ctx, collaborator); err != nil {
		s.cfg.Log.Error("Failed to save invitation response", "booking_id", bookingID, "error", err)
		return nil, apperrors.Internal("Failed to save invitation response", err)
	}

	s.notifier.Emit(model.Notification{
		UserID:    booking.MuaID,
		Title:     "Collaboration " + resp.Response,
		Message:   fmt.Sprintf("%s %s your invite for %s %s", actor.ID, resp.Response, booking.BookingDate, booking.BookingTime),
		Type:      model.NotificationBooking,
		BookingID: booking.ID,
	})
	return collaborator, nil
}
