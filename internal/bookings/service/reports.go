package service

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/pricing"
)

// Calendar lists the caller's own bookings as calendar events, oldest first.
func (s *bookingService) Calendar(ctx context.Context, actor authz.Actor, from, to string) ([]model.CalendarEvent, error) {
	filter, err := scopeFilter(actor, model.BookingFilter{DateFrom: from, DateTo: to})
	if err != nil {
		return nil, err
	}
	filter.MuaID = actor.ID
	filter.CustomerID = ""

	bookings, err := s.repo.Search(ctx, filter, 0, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to load calendar", "mua_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	sort.SliceStable(bookings, func(i, j int) bool {
		if bookings[i].BookingDate != bookings[j].BookingDate {
			return bookings[i].BookingDate < bookings[j].BookingDate
		}
		return bookings[i].BookingTime < bookings[j].BookingTime
	})

	events := make([]model.CalendarEvent, 0, len(bookings))
	for _, b := range bookings {
		events = append(events, model.CalendarEvent{
			ID:         b.ID,
			Title:      fmt.Sprintf("%s • %s", strings.ToUpper(b.Status), b.ServiceType),
			Start:      fmt.Sprintf("%s %s:00", b.BookingDate, b.BookingTime),
			Status:     b.Status,
			CustomerID: b.CustomerID,
		})
	}
	return events, nil
}

// Stats counts the caller's bookings per legacy status.
func (s *bookingService) Stats(ctx context.Context, actor authz.Actor, from, to string) (map[string]int64, error) {
	filter, err := scopeFilter(actor, model.BookingFilter{DateFrom: from, DateTo: to})
	if err != nil {
		return nil, err
	}

	counts, err := s.repo.CountByStatus(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to compute booking stats", "actor_id", actor.ID, "error", err)
		return nil, apperrors.Internal("Failed to compute booking stats", err)
	}
	return counts, nil
}

func (s *bookingService) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	if err := s.validator.Struct(&req); err != nil {
		return nil, validationFailed(err)
	}
	offering, err := s.offering(ctx, req.OfferingID)
	if err != nil {
		return nil, err
	}
	return &model.Quote{Amount: pricing.QuoteOffering(offering, req.UseCollaboration)}, nil
}
