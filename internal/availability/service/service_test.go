package service

import (
	"context"
	"io"
	"reflect"
	"sort"
	"sync"
	"testing"

	availabilityerrors "smstudio/internal/availability/errors"
	"smstudio/internal/availability/validator"
	"smstudio/pkg/authz"
	"smstudio/pkg/config"
	mongotx "smstudio/pkg/db/mongo"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
	"smstudio/pkg/model"
)

// memoryRepository is an in-memory AvailabilityRepository. Transactions are
// emulated by snapshotting the map and restoring it when fn fails.
type memoryRepository struct {
	mu        sync.Mutex
	days      map[string]*model.AvailabilityDay
	failWrite string
	upserts   int
}

func newMemoryRepository() *memoryRepository {
	return &memoryRepository{days: map[string]*model.AvailabilityDay{}}
}

func dayKey(muaID, date string) string { return muaID + "|" + date }

func (m *memoryRepository) put(muaID, date string, slots ...string) {
	m.days[dayKey(muaID, date)] = &model.AvailabilityDay{MuaID: muaID, AvailableDate: date, TimeSlots: slots}
}

func (m *memoryRepository) FindDay(ctx context.Context, muaID, date string) (*model.AvailabilityDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	d, ok := m.days[dayKey(muaID, date)]
	if !ok {
		return nil, availabilityerrors.ErrNotFound
	}
	cp := *d
	return &cp, nil
}

func (m *memoryRepository) FindRange(ctx context.Context, muaID, from, to string) ([]*model.AvailabilityDay, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.AvailabilityDay
	for _, d := range m.days {
		if d.MuaID == muaID && d.AvailableDate >= from && d.AvailableDate <= to {
			cp := *d
			out = append(out, &cp)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AvailableDate < out[j].AvailableDate })
	return out, nil
}

func (m *memoryRepository) List(ctx context.Context, filter model.AvailabilityFilter) ([]*model.AvailabilityDay, error) {
	from, to := filter.DateFrom, filter.DateTo
	if filter.Date != "" {
		from, to = filter.Date, filter.Date
	}
	if to == "" {
		to = "9999-12-31"
	}
	return m.FindRange(ctx, filter.MuaID, from, to)
}

func (m *memoryRepository) Upsert(ctx context.Context, day *model.AvailabilityDay) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if day.AvailableDate == m.failWrite {
		return context.DeadlineExceeded
	}
	m.upserts++
	cp := *day
	m.days[dayKey(day.MuaID, day.AvailableDate)] = &cp
	return nil
}

func (m *memoryRepository) Delete(ctx context.Context, muaID, date string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.days[dayKey(muaID, date)]
	delete(m.days, dayKey(muaID, date))
	return ok, nil
}

func (m *memoryRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	m.mu.Lock()
	snapshot := make(map[string]*model.AvailabilityDay, len(m.days))
	for k, v := range m.days {
		snapshot[k] = v
	}
	m.mu.Unlock()

	if err := fn(ctx); err != nil {
		m.mu.Lock()
		m.days = snapshot
		m.mu.Unlock()
		return err
	}
	return nil
}

type mockBookedSlots struct {
	activeSlotsFunc func(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error)
}

func (m *mockBookedSlots) ActiveSlots(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error) {
	if m.activeSlotsFunc != nil {
		return m.activeSlotsFunc(ctx, muaID, from, to, excludeID)
	}
	return map[string][]string{}, nil
}

func testConfig() *config.Config {
	return &config.Config{
		Log: logger.New(logger.Config{
			Level:   "error",
			Format:  logger.JSON,
			Output:  io.Discard,
			Service: "test",
		}),
		MaxBulkItems: 3,
	}
}

func newCalendar(repo *memoryRepository) CalendarService {
	cfg := testConfig()
	return NewCalendarService(repo, validator.NewAvailabilityValidator(cfg.Log), cfg)
}

var (
	artist   = authz.Actor{ID: "mua-1", Role: model.RoleMua}
	admin    = authz.Actor{ID: "admin-1", Role: model.RoleAdmin}
	customer = authz.Actor{ID: "cust-1", Role: model.RoleCustomer}
)

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s error, got nil", code)
	}
	if !apperrors.HasCode(err, code) {
		t.Fatalf("expected %s error, got %v", code, err)
	}
}

func TestUpsertDay_NormalizesSlots(t *testing.T) {
	repo := newMemoryRepository()
	svc := newCalendar(repo)

	day, err := svc.UpsertDay(context.Background(), artist, &model.AvailabilityDay{
		MuaID:         "mua-1",
		AvailableDate: "2025-06-01",
		TimeSlots:     []string{"14:00", "9:00", " 09:00 ", "9:5"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := []string{"09:00", "09:05", "14:00"}
	if !reflect.DeepEqual(day.TimeSlots, want) {
		t.Errorf("expected %v, got %v", want, day.TimeSlots)
	}
	stored, _ := repo.FindDay(context.Background(), "mua-1", "2025-06-01")
	if !reflect.DeepEqual(stored.TimeSlots, want) {
		t.Errorf("stored slots %v, want %v", stored.TimeSlots, want)
	}
}

func TestUpsertDay_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		actor authz.Actor
		day   *model.AvailabilityDay
		code  string
	}{
		{
			name:  "bad time",
			actor: artist,
			day:   &model.AvailabilityDay{MuaID: "mua-1", AvailableDate: "2025-06-01", TimeSlots: []string{"25:00"}},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "bad date",
			actor: artist,
			day:   &model.AvailabilityDay{MuaID: "mua-1", AvailableDate: "01/06/2025", TimeSlots: []string{"09:00"}},
			code:  apperrors.CodeValidation,
		},
		{
			name:  "other artist",
			actor: authz.Actor{ID: "mua-2", Role: model.RoleMua},
			day:   &model.AvailabilityDay{MuaID: "mua-1", AvailableDate: "2025-06-01", TimeSlots: []string{"09:00"}},
			code:  apperrors.CodeForbidden,
		},
		{
			name:  "customer",
			actor: customer,
			day:   &model.AvailabilityDay{MuaID: "mua-1", AvailableDate: "2025-06-01", TimeSlots: []string{"09:00"}},
			code:  apperrors.CodeForbidden,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newMemoryRepository()
			_, err := newCalendar(repo).UpsertDay(context.Background(), tt.actor, tt.day)
			assertCode(t, err, tt.code)
			if repo.upserts != 0 {
				t.Errorf("nothing should be written, got %d upserts", repo.upserts)
			}
		})
	}
}

func TestUpsertDay_AdminMayActForArtist(t *testing.T) {
	repo := newMemoryRepository()
	_, err := newCalendar(repo).UpsertDay(context.Background(), admin, &model.AvailabilityDay{
		MuaID: "mua-1", AvailableDate: "2025-06-01", TimeSlots: []string{"09:00"},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestAddAndRemoveSlots(t *testing.T) {
	repo := newMemoryRepository()
	repo.put("mua-1", "2025-06-01", "09:00")
	svc := newCalendar(repo)
	ctx := context.Background()

	day, err := svc.AddSlots(ctx, artist, model.SlotChange{MuaID: "mua-1", Date: "2025-06-01", Time: "8:30", Times: []string{"09:00", "10:00"}})
	if err != nil {
		t.Fatalf("AddSlots: %v", err)
	}
	if want := []string{"08:30", "09:00", "10:00"}; !reflect.DeepEqual(day.TimeSlots, want) {
		t.Errorf("after add: expected %v, got %v", want, day.TimeSlots)
	}

	day, err = svc.RemoveSlots(ctx, artist, model.SlotChange{MuaID: "mua-1", Date: "2025-06-01", Times: []string{"08:30", "09:00", "10:00"}})
	if err != nil {
		t.Fatalf("RemoveSlots: %v", err)
	}
	if len(day.TimeSlots) != 0 {
		t.Errorf("expected no slots left, got %v", day.TimeSlots)
	}
	if _, err := repo.FindDay(ctx, "mua-1", "2025-06-01"); err != nil {
		t.Errorf("emptied day should still exist: %v", err)
	}
}

func TestRemoveSlots_AbsentDayCreatesEmptyRow(t *testing.T) {
	repo := newMemoryRepository()
	day, err := newCalendar(repo).RemoveSlots(context.Background(), artist, model.SlotChange{MuaID: "mua-1", Date: "2025-06-02", Time: "09:00"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(day.TimeSlots) != 0 || repo.upserts != 1 {
		t.Errorf("expected one empty row, got slots=%v upserts=%d", day.TimeSlots, repo.upserts)
	}
}

func TestDeleteDay_IsIdempotent(t *testing.T) {
	repo := newMemoryRepository()
	repo.put("mua-1", "2025-06-01", "09:00")
	svc := newCalendar(repo)

	for i := 0; i < 2; i++ {
		if err := svc.DeleteDay(context.Background(), artist, "mua-1", "2025-06-01"); err != nil {
			t.Fatalf("call %d: unexpected error: %v", i, err)
		}
	}
	assertCode(t, svc.DeleteDay(context.Background(), customer, "mua-1", "2025-06-01"), apperrors.CodeForbidden)
}

func TestBulkUpsert(t *testing.T) {
	t.Run("all or nothing", func(t *testing.T) {
		repo := newMemoryRepository()
		repo.failWrite = "2025-06-02"
		err := newCalendar(repo).BulkUpsert(context.Background(), artist, &model.BulkAvailability{Items: []model.AvailabilityItem{
			{MuaID: "mua-1", Date: "2025-06-01", TimeSlots: []string{"09:00"}},
			{MuaID: "mua-1", Date: "2025-06-02", TimeSlots: []string{"09:00"}},
		}})
		if err == nil {
			t.Fatal("expected error")
		}
		if len(repo.days) != 0 {
			t.Errorf("expected rollback, found %d days", len(repo.days))
		}
	})

	t.Run("item for another artist", func(t *testing.T) {
		repo := newMemoryRepository()
		err := newCalendar(repo).BulkUpsert(context.Background(), artist, &model.BulkAvailability{Items: []model.AvailabilityItem{
			{MuaID: "mua-1", Date: "2025-06-01", TimeSlots: []string{"09:00"}},
			{MuaID: "mua-2", Date: "2025-06-01", TimeSlots: []string{"09:00"}},
		}})
		assertCode(t, err, apperrors.CodeForbidden)
		if repo.upserts != 0 {
			t.Errorf("expected no writes, got %d", repo.upserts)
		}
	})

	t.Run("too many items", func(t *testing.T) {
		items := make([]model.AvailabilityItem, 4)
		for i := range items {
			items[i] = model.AvailabilityItem{MuaID: "mua-1", Date: "2025-06-01", TimeSlots: []string{"09:00"}}
		}
		err := newCalendar(newMemoryRepository()).BulkUpsert(context.Background(), artist, &model.BulkAvailability{Items: items})
		assertCode(t, err, apperrors.CodeValidation)
	})

	t.Run("admin across artists", func(t *testing.T) {
		repo := newMemoryRepository()
		err := newCalendar(repo).BulkUpsert(context.Background(), admin, &model.BulkAvailability{Items: []model.AvailabilityItem{
			{MuaID: "mua-1", Date: "2025-06-01", TimeSlots: []string{"9:00"}},
			{MuaID: "mua-2", Date: "2025-06-01", TimeSlots: []string{"10:00"}},
		}})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		d, _ := repo.FindDay(context.Background(), "mua-1", "2025-06-01")
		if !reflect.DeepEqual(d.TimeSlots, []string{"09:00"}) {
			t.Errorf("unexpected slots %v", d.TimeSlots)
		}
	})
}

func TestApplyRecurring(t *testing.T) {
	repo := newMemoryRepository()
	svc := newCalendar(repo)

	// 2025-06-02 is a Monday.
	n, err := svc.ApplyRecurring(context.Background(), artist, &model.RecurringAvailability{
		MuaID:    "mua-1",
		DateFrom: "2025-06-02",
		DateTo:   "2025-06-15",
		Template: model.RecurringTemplate{
			"mon": []any{"09:00", "13:00"},
			"wed": []string{"10:00"},
			"fri": "not a list",
		},
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n != 4 {
		t.Errorf("expected 4 days written, got %d", n)
	}
	mon, err := repo.FindDay(context.Background(), "mua-1", "2025-06-09")
	if err != nil || !reflect.DeepEqual(mon.TimeSlots, []string{"09:00", "13:00"}) {
		t.Errorf("unexpected monday row %+v (%v)", mon, err)
	}
	if _, err := repo.FindDay(context.Background(), "mua-1", "2025-06-06"); err == nil {
		t.Error("friday should be untouched")
	}

	_, err = svc.ApplyRecurring(context.Background(), artist, &model.RecurringAvailability{
		MuaID: "mua-1", DateFrom: "2025-06-10", DateTo: "2025-06-01",
		Template: model.RecurringTemplate{"mon": []any{"09:00"}},
	})
	assertCode(t, err, apperrors.CodeValidation)
}

func TestFreeSlots(t *testing.T) {
	repo := newMemoryRepository()
	repo.put("mua-1", "2025-06-01", "09:00", "11:00", "14:00")
	repo.put("mua-1", "2025-06-03", "10:00")
	booked := &mockBookedSlots{
		activeSlotsFunc: func(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error) {
			return map[string][]string{"2025-06-01": {"11:00"}}, nil
		},
	}
	svc := NewResolverService(repo, booked, testConfig())

	day, err := svc.FreeSlotsForDate(context.Background(), "mua-1", "2025-06-01")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if want := []string{"09:00", "14:00"}; !reflect.DeepEqual(day.FreeSlots, want) {
		t.Errorf("expected %v, got %v", want, day.FreeSlots)
	}

	days, err := svc.FreeSlotsForRange(context.Background(), "mua-1", "2025-06-01", "2025-06-03")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(days) != 3 {
		t.Fatalf("expected one entry per day, got %d", len(days))
	}
	if days[1].Date != "2025-06-02" || days[1].FreeSlots == nil || len(days[1].FreeSlots) != 0 {
		t.Errorf("day without availability should be an empty list, got %+v", days[1])
	}

	_, err = svc.FreeSlotsForRange(context.Background(), "mua-1", "2025-06-03", "2025-06-01")
	assertCode(t, err, apperrors.CodeValidation)
}

func TestIsSlotFree(t *testing.T) {
	repo := newMemoryRepository()
	repo.put("mua-1", "2025-06-01", "09:00", "11:00")

	var excluded int64
	booked := &mockBookedSlots{
		activeSlotsFunc: func(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error) {
			excluded = excludeID
			if excludeID == 7 {
				return map[string][]string{}, nil
			}
			return map[string][]string{"2025-06-01": {"11:00"}}, nil
		},
	}
	svc := NewResolverService(repo, booked, testConfig())
	ctx := context.Background()

	tests := []struct {
		name string
		date string
		time string
		want model.SlotCheck
	}{
		{"free", "2025-06-01", "9:00", model.SlotCheck{Available: true, Reason: model.ReasonOK}},
		{"booked", "2025-06-01", "11:00", model.SlotCheck{Available: false, Reason: model.ReasonAlreadyBooked}},
		{"not published", "2025-06-01", "10:00", model.SlotCheck{Available: false, Reason: model.ReasonNotInAvailability}},
		{"no day", "2025-06-02", "09:00", model.SlotCheck{Available: false, Reason: model.ReasonNotInAvailability}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := svc.IsSlotFree(ctx, "mua-1", tt.date, tt.time)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if *got != tt.want {
				t.Errorf("expected %+v, got %+v", tt.want, *got)
			}
		})
	}

	got, err := svc.IsSlotFreeExcluding(ctx, "mua-1", "2025-06-01", "11:00", 7)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !got.Available || excluded != 7 {
		t.Errorf("own booking should not block the slot, got %+v (excluded %d)", got, excluded)
	}

	_, err = svc.IsSlotFree(ctx, "mua-1", "2025-06-01", "noon")
	assertCode(t, err, apperrors.CodeValidation)
}
