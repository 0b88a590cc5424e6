package service

import (
	"context"
	"errors"
	"fmt"

	availabilityerrors "smstudio/internal/availability/errors"
	"smstudio/internal/availability/repository"
	"smstudio/internal/availability/validator"
	"smstudio/pkg/authz"
	"smstudio/pkg/config"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/timeslot"
)

// CalendarService owns every write to an artist's published slots.
type CalendarService interface {
	UpsertDay(ctx context.Context, actor authz.Actor, day *model.AvailabilityDay) (*model.AvailabilityDay, error)
	AddSlots(ctx context.Context, actor authz.Actor, change model.SlotChange) (*model.AvailabilityDay, error)
	RemoveSlots(ctx context.Context, actor authz.Actor, change model.SlotChange) (*model.AvailabilityDay, error)
	DeleteDay(ctx context.Context, actor authz.Actor, muaID, date string) error
	BulkUpsert(ctx context.Context, actor authz.Actor, bulk *model.BulkAvailability) error
	ApplyRecurring(ctx context.Context, actor authz.Actor, req *model.RecurringAvailability) (int, error)
}

type calendarService struct {
	repo      repository.AvailabilityRepository
	validator *validator.AvailabilityValidator
	cfg       *config.Config
}

func NewCalendarService(
	repo repository.AvailabilityRepository,
	validator *validator.AvailabilityValidator,
	cfg *config.Config,
) CalendarService {
	return &calendarService{
		repo:      repo,
		validator: validator,
		cfg:       cfg,
	}
}

func (s *calendarService) UpsertDay(ctx context.Context, actor authz.Actor, day *model.AvailabilityDay) (*model.AvailabilityDay, error) {
	if err := s.validator.ValidateDay(day); err != nil {
		s.cfg.Log.Warn("Availability validation failed",
			"mua_id", day.MuaID,
			"date", day.AvailableDate,
			"error", err,
		)
		return nil, validationFailed(err)
	}
	if err := s.authorize(actor, day.MuaID); err != nil {
		return nil, err
	}

	slots, err := normalize(day.TimeSlots)
	if err != nil {
		return nil, err
	}
	stored := &model.AvailabilityDay{MuaID: day.MuaID, AvailableDate: day.AvailableDate, TimeSlots: slots}

	if err := s.repo.Upsert(ctx, stored); err != nil {
		s.cfg.Log.Error("Failed to upsert availability day",
			"mua_id", day.MuaID,
			"date", day.AvailableDate,
			"error", err,
		)
		return nil, apperrors.Internal("Failed to save availability", err)
	}

	s.cfg.Log.Info("Availability day upserted",
		"mua_id", stored.MuaID,
		"date", stored.AvailableDate,
		"slots", len(stored.TimeSlots),
		"actor_id", actor.ID,
	)
	return stored, nil
}

func (s *calendarService) AddSlots(ctx context.Context, actor authz.Actor, change model.SlotChange) (*model.AvailabilityDay, error) {
	return s.changeSlots(ctx, actor, change, "add", timeslot.Merge)
}

// RemoveSlots keeps the day row even when no slot is left.
func (s *calendarService) RemoveSlots(ctx context.Context, actor authz.Actor, change model.SlotChange) (*model.AvailabilityDay, error) {
	return s.changeSlots(ctx, actor, change, "remove", timeslot.Subtract)
}

func (s *calendarService) changeSlots(
	ctx context.Context,
	actor authz.Actor,
	change model.SlotChange,
	op string,
	apply func(current, delta []string) []string,
) (*model.AvailabilityDay, error) {
	if err := s.validator.Validate(&change); err != nil {
		s.cfg.Log.Warn("Slot change validation failed",
			"mua_id", change.MuaID,
			"date", change.Date,
			"op", op,
			"error", err,
		)
		return nil, validationFailed(err)
	}
	if err := s.authorize(actor, change.MuaID); err != nil {
		return nil, err
	}

	delta, err := normalize(change.All())
	if err != nil {
		return nil, err
	}

	var result *model.AvailabilityDay
	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		current, err := s.repo.FindDay(txCtx, change.MuaID, change.Date)
		if err != nil && !errors.Is(err, availabilityerrors.ErrNotFound) {
			return apperrors.Internal("Failed to load availability", err)
		}
		var slots []string
		if current != nil {
			slots = current.TimeSlots
		}

		day := &model.AvailabilityDay{
			MuaID:         change.MuaID,
			AvailableDate: change.Date,
			TimeSlots:     apply(slots, delta),
		}
		if err := s.repo.Upsert(txCtx, day); err != nil {
			return apperrors.Internal("Failed to save availability", err)
		}
		result = day
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Failed to change availability slots",
			"mua_id", change.MuaID,
			"date", change.Date,
			"op", op,
			"error", err,
		)
		return nil, err
	}

	s.cfg.Log.Info("Availability slots changed",
		"mua_id", change.MuaID,
		"date", change.Date,
		"op", op,
		"delta", delta,
		"slots", len(result.TimeSlots),
	)
	return result, nil
}

func (s *calendarService) DeleteDay(ctx context.Context, actor authz.Actor, muaID, date string) error {
	if muaID == "" {
		return apperrors.Validation("muaId is required", nil)
	}
	if _, err := timeslot.ParseDate(date); err != nil {
		return apperrors.Validation("date must be a date in YYYY-MM-DD format", map[string]any{"date": date})
	}
	if err := s.authorize(actor, muaID); err != nil {
		return err
	}

	deleted, err := s.repo.Delete(ctx, muaID, date)
	if err != nil {
		s.cfg.Log.Error("Failed to delete availability day",
			"mua_id", muaID,
			"date", date,
			"error", err,
		)
		return apperrors.Internal("Failed to delete availability", err)
	}

	s.cfg.Log.Info("Availability day deleted", "mua_id", muaID, "date", date, "existed", deleted)
	return nil
}

// BulkUpsert applies every item or none. Each item is authorized on its own
// artist, so an admin may publish for several artists at once.
func (s *calendarService) BulkUpsert(ctx context.Context, actor authz.Actor, bulk *model.BulkAvailability) error {
	if err := s.validator.Validate(bulk); err != nil {
		s.cfg.Log.Warn("Bulk availability validation failed", "items", len(bulk.Items), "error", err)
		return validationFailed(err)
	}
	if len(bulk.Items) > s.maxItems() {
		return apperrors.Validation(fmt.Sprintf("items must contain at most %d entries", s.maxItems()), map[string]any{
			"items": len(bulk.Items),
		})
	}

	days := make([]*model.AvailabilityDay, 0, len(bulk.Items))
	for i, it := range bulk.Items {
		if err := s.authorize(actor, it.MuaID); err != nil {
			return err
		}
		slots, err := normalize(it.TimeSlots)
		if err != nil {
			return apperrors.Validation(fmt.Sprintf("items[%d]: invalid time slot", i), map[string]any{"error": err.Error()})
		}
		days = append(days, &model.AvailabilityDay{MuaID: it.MuaID, AvailableDate: it.Date, TimeSlots: slots})
	}

	err := s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		for _, day := range days {
			if err := s.repo.Upsert(txCtx, day); err != nil {
				return apperrors.Internal("Failed to save availability", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Bulk availability upsert failed", "items", len(days), "error", err)
		return err
	}

	s.cfg.Log.Info("Bulk availability upserted", "items", len(days), "actor_id", actor.ID)
	return nil
}

// ApplyRecurring stamps the weekly template on every date of the range and
// returns the number of days written. Weekdays missing from the template, or
// mapped to something other than a list, are left untouched.
func (s *calendarService) ApplyRecurring(ctx context.Context, actor authz.Actor, req *model.RecurringAvailability) (int, error) {
	if err := s.validator.Validate(req); err != nil {
		s.cfg.Log.Warn("Recurring availability validation failed", "mua_id", req.MuaID, "error", err)
		return 0, validationFailed(err)
	}
	if err := s.authorize(actor, req.MuaID); err != nil {
		return 0, err
	}

	dates, err := timeslot.DateRange(req.DateFrom, req.DateTo)
	if err != nil {
		return 0, apperrors.Validation("Invalid date range", map[string]any{"error": err.Error()})
	}

	weekly := make(map[string][]string, 7)
	for key, raw := range req.Template {
		list, ok := templateList(raw)
		if !ok {
			continue
		}
		slots, err := normalize(list)
		if err != nil {
			return 0, apperrors.Validation(fmt.Sprintf("template.%s: invalid time slot", key), map[string]any{"error": err.Error()})
		}
		weekly[key] = slots
	}

	days := make([]*model.AvailabilityDay, 0, len(dates))
	for _, date := range dates {
		t, _ := timeslot.ParseDate(date)
		slots, ok := weekly[timeslot.WeekdayKey(t)]
		if !ok {
			continue
		}
		days = append(days, &model.AvailabilityDay{MuaID: req.MuaID, AvailableDate: date, TimeSlots: slots})
	}

	err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
		for _, day := range days {
			if err := s.repo.Upsert(txCtx, day); err != nil {
				return apperrors.Internal("Failed to save availability", err)
			}
		}
		return nil
	})
	if err != nil {
		s.cfg.Log.Error("Recurring availability failed",
			"mua_id", req.MuaID,
			"date_from", req.DateFrom,
			"date_to", req.DateTo,
			"error", err,
		)
		return 0, err
	}

	s.cfg.Log.Info("Recurring availability applied",
		"mua_id", req.MuaID,
		"date_from", req.DateFrom,
		"date_to", req.DateTo,
		"days", len(days),
	)
	return len(days), nil
}

func (s *calendarService) authorize(actor authz.Actor, muaID string) error {
	if !authz.CanAct(actor, authz.ForArtist(muaID), authz.ManageAvailability) {
		s.cfg.Log.Warn("Availability change forbidden", "actor_id", actor.ID, "mua_id", muaID)
		return apperrors.Forbidden("Only the artist or an admin can manage this availability")
	}
	return nil
}

func (s *calendarService) maxItems() int {
	if s.cfg.MaxBulkItems > 0 {
		return s.cfg.MaxBulkItems
	}
	return config.DefaultMaxBulkItems
}

// templateList accepts the shapes a decoded JSON array can take.
func templateList(raw any) ([]string, bool) {
	switch v := raw.(type) {
	case []string:
		return v, true
	case []any:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok {
				out = append(out, s)
			} else {
				out = append(out, fmt.Sprint(item))
			}
		}
		return out, true
	default:
		return nil, false
	}
}

func normalize(slots []string) ([]string, error) {
	out, err := timeslot.NormalizeTimes(slots)
	if err != nil {
		return nil, apperrors.Validation("Invalid time slot", map[string]any{"error": err.Error()})
	}
	return out, nil
}

func validationFailed(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Availability validation failed", map[string]any{
			"error":  err.Error(),
			"fields": verrs,
		})
	}
	return apperrors.Validation("Availability validation failed", map[string]any{"error": err.Error()})
}
