package service

import (
	"context"
	"errors"

	availabilityerrors "smstudio/internal/availability/errors"
	"smstudio/internal/availability/repository"
	"smstudio/pkg/config"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/timeslot"
)

// BookedSlots reports the times held by active bookings, keyed by date.
// excludeID, when non-zero, leaves that booking out.
type BookedSlots interface {
	ActiveSlots(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error)
}

// ResolverService answers "what can still be booked" by subtracting active
// bookings from published slots. It never writes.
type ResolverService interface {
	List(ctx context.Context, filter model.AvailabilityFilter) ([]*model.AvailabilityDay, error)
	FreeSlotsForDate(ctx context.Context, muaID, date string) (*model.FreeSlots, error)
	FreeSlotsForRange(ctx context.Context, muaID, from, to string) ([]model.FreeSlots, error)
	IsSlotFree(ctx context.Context, muaID, date, time string) (*model.SlotCheck, error)
	IsSlotFreeExcluding(ctx context.Context, muaID, date, time string, bookingID int64) (*model.SlotCheck, error)
}

type resolverService struct {
	repo   repository.AvailabilityRepository
	booked BookedSlots
	cfg    *config.Config
}

func NewResolverService(repo repository.AvailabilityRepository, booked BookedSlots, cfg *config.Config) ResolverService {
	return &resolverService{
		repo:   repo,
		booked: booked,
		cfg:    cfg,
	}
}

func (s *resolverService) List(ctx context.Context, filter model.AvailabilityFilter) ([]*model.AvailabilityDay, error) {
	var err error
	for _, d := range []*string{&filter.Date, &filter.DateFrom, &filter.DateTo} {
		if *d == "" {
			continue
		}
		if *d, err = timeslot.CanonicalDate(*d); err != nil {
			return nil, apperrors.Validation("Invalid date filter", map[string]any{"error": err.Error()})
		}
	}

	days, err := s.repo.List(ctx, filter)
	if err != nil {
		s.cfg.Log.Error("Failed to list availability", "mua_id", filter.MuaID, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}
	s.cfg.Log.Debug("Availability listed", "mua_id", filter.MuaID, "results_count", len(days))
	return days, nil
}

func (s *resolverService) FreeSlotsForDate(ctx context.Context, muaID, date string) (*model.FreeSlots, error) {
	free, err := s.FreeSlotsForRange(ctx, muaID, date, date)
	if err != nil {
		return nil, err
	}
	return &free[0], nil
}

// FreeSlotsForRange returns one entry per calendar day of [from, to], with an
// empty list for days that have no published slots.
func (s *resolverService) FreeSlotsForRange(ctx context.Context, muaID, from, to string) ([]model.FreeSlots, error) {
	if muaID == "" {
		return nil, apperrors.Validation("muaId is required", nil)
	}
	from, to, err := canonicalRange(from, to)
	if err != nil {
		return nil, err
	}
	dates, err := timeslot.DateRange(from, to)
	if err != nil {
		return nil, apperrors.Validation("Invalid date range", map[string]any{"error": err.Error()})
	}

	days, err := s.repo.FindRange(ctx, muaID, from, to)
	if err != nil {
		s.cfg.Log.Error("Failed to load availability", "mua_id", muaID, "from", from, "to", to, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}
	busy, err := s.booked.ActiveSlots(ctx, muaID, from, to, 0)
	if err != nil {
		s.cfg.Log.Error("Failed to load booked slots", "mua_id", muaID, "from", from, "to", to, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}

	published := make(map[string][]string, len(days))
	for _, d := range days {
		published[d.AvailableDate] = d.TimeSlots
	}

	out := make([]model.FreeSlots, 0, len(dates))
	for _, date := range dates {
		out = append(out, model.FreeSlots{
			Date:      date,
			FreeSlots: timeslot.Subtract(published[date], busy[date]),
		})
	}
	return out, nil
}

func (s *resolverService) IsSlotFree(ctx context.Context, muaID, date, time string) (*model.SlotCheck, error) {
	return s.IsSlotFreeExcluding(ctx, muaID, date, time, 0)
}

// IsSlotFreeExcluding ignores bookingID's own reservation, which lets a
// booking be rescheduled onto a slot it already holds.
func (s *resolverService) IsSlotFreeExcluding(ctx context.Context, muaID, date, time string, bookingID int64) (*model.SlotCheck, error) {
	if muaID == "" {
		return nil, apperrors.Validation("muaId is required", nil)
	}
	date, err := timeslot.CanonicalDate(date)
	if err != nil {
		return nil, apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	slot, err := timeslot.NormalizeTime(time)
	if err != nil {
		return nil, apperrors.Validation("Invalid time slot", map[string]any{"error": err.Error()})
	}

	day, err := s.repo.FindDay(ctx, muaID, date)
	if err != nil {
		if errors.Is(err, availabilityerrors.ErrNotFound) {
			return &model.SlotCheck{Available: false, Reason: model.ReasonNotInAvailability}, nil
		}
		s.cfg.Log.Error("Failed to load availability day", "mua_id", muaID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve availability", err)
	}
	if !timeslot.Contains(day.TimeSlots, slot) {
		return &model.SlotCheck{Available: false, Reason: model.ReasonNotInAvailability}, nil
	}

	busy, err := s.booked.ActiveSlots(ctx, muaID, date, date, bookingID)
	if err != nil {
		s.cfg.Log.Error("Failed to load booked slots", "mua_id", muaID, "date", date, "error", err)
		return nil, apperrors.Internal("Failed to retrieve bookings", err)
	}
	if timeslot.Contains(busy[date], slot) {
		return &model.SlotCheck{Available: false, Reason: model.ReasonAlreadyBooked}, nil
	}
	return &model.SlotCheck{Available: true, Reason: model.ReasonOK}, nil
}

// canonicalRange defaults a missing end to the start.
func canonicalRange(from, to string) (string, string, error) {
	if to == "" {
		to = from
	}
	cf, err := timeslot.CanonicalDate(from)
	if err != nil {
		return "", "", apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	ct, err := timeslot.CanonicalDate(to)
	if err != nil {
		return "", "", apperrors.Validation("Invalid date", map[string]any{"error": err.Error()})
	}
	return cf, ct, nil
}
