package service

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	bookingserrors "smstudio/internal/bookings/errors"
	"smstudio/internal/bookings/validator"
	directoryerrors "smstudio/internal/directory/errors"
	"smstudio/pkg/config"
	mongotx "smstudio/pkg/db/mongo"
	"smstudio/pkg/logger"
	"smstudio/pkg/model"
)

// memoryStore is a BookingRepository that enforces the same constraints as
// the Mongo indexes: one active booking per (mua, date, time), unique invoice
// numbers, and version-checked updates.
type memoryStore struct {
	mu       sync.Mutex
	seq      int64
	bookings map[int64]model.Booking

	// invoiceCollisions makes the next n Create calls fail on the invoice index.
	invoiceCollisions int
}

func newMemoryStore() *memoryStore {
	return &memoryStore{bookings: map[int64]model.Booking{}}
}

func (m *memoryStore) NextID(ctx context.Context) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.seq++
	return m.seq, nil
}

func (m *memoryStore) conflicts(b *model.Booking) error {
	for id, other := range m.bookings {
		if id == b.ID {
			continue
		}
		if b.Active && other.Active && other.MuaID == b.MuaID && other.BookingDate == b.BookingDate && other.BookingTime == b.BookingTime {
			return bookingserrors.ErrSlotTaken
		}
		if other.InvoiceNumber == b.InvoiceNumber {
			return bookingserrors.ErrDuplicateInvoice
		}
	}
	return nil
}

func (m *memoryStore) Create(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.invoiceCollisions > 0 {
		m.invoiceCollisions--
		return bookingserrors.ErrDuplicateInvoice
	}
	if err := m.conflicts(b); err != nil {
		return err
	}
	b.Version = 1
	b.CreatedAt = time.Now().UTC()
	b.UpdatedAt = b.CreatedAt
	m.bookings[b.ID] = clone(b)
	return nil
}

func (m *memoryStore) FindByID(ctx context.Context, id int64) (*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, bookingserrors.ErrNotFound
	}
	out := clone(&b)
	return &out, nil
}

func (m *memoryStore) Update(ctx context.Context, b *model.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.bookings[b.ID]
	if !ok || current.Version != b.Version {
		return bookingserrors.ErrStaleBooking
	}
	if err := m.conflicts(b); err != nil {
		return err
	}
	b.Version++
	b.UpdatedAt = time.Now().UTC()
	m.bookings[b.ID] = clone(b)
	return nil
}

func (m *memoryStore) ExistsActive(ctx context.Context, muaID, date, slot string, excludeID int64) (bool, error) {
	slots, _ := m.ActiveSlots(ctx, muaID, date, date, excludeID)
	for _, s := range slots[date] {
		if s == slot {
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryStore) ActiveSlots(ctx context.Context, muaID, from, to string, excludeID int64) (map[string][]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string][]string{}
	for id, b := range m.bookings {
		if id == excludeID || !b.Active || b.MuaID != muaID || b.BookingDate < from || b.BookingDate > to {
			continue
		}
		out[b.BookingDate] = append(out[b.BookingDate], b.BookingTime)
	}
	return out, nil
}

func (m *memoryStore) matching(f model.BookingFilter) []*model.Booking {
	var out []*model.Booking
	for _, b := range m.bookings {
		if f.MuaID != "" && b.MuaID != f.MuaID {
			continue
		}
		if f.CustomerID != "" && b.CustomerID != f.CustomerID {
			continue
		}
		if f.DateFrom != "" && b.BookingDate < f.DateFrom {
			continue
		}
		if f.DateTo != "" && b.BookingDate > f.DateTo {
			continue
		}
		if len(f.Statuses) > 0 && !containsString(f.Statuses, b.Status) {
			continue
		}
		cp := clone(&b)
		out = append(out, &cp)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID > out[j].ID })
	return out
}

func (m *memoryStore) Search(ctx context.Context, f model.BookingFilter, limit int, offset int64) ([]*model.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	all := m.matching(f)
	if int(offset) >= len(all) {
		return nil, nil
	}
	all = all[offset:]
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (m *memoryStore) Count(ctx context.Context, f model.BookingFilter) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return int64(len(m.matching(f))), nil
}

func (m *memoryStore) CountByStatus(ctx context.Context, f model.BookingFilter) (map[string]int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := map[string]int64{}
	for _, b := range m.matching(f) {
		out[b.Status]++
	}
	return out, nil
}

// ExecuteTransaction runs fn directly. Every store write is a single
// atomic step, so a failed fn leaves nothing half written.
func (m *memoryStore) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return fn(ctx)
}

func (m *memoryStore) put(b model.Booking) *model.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	if b.ID == 0 {
		m.seq++
		b.ID = m.seq
	}
	if b.Version == 0 {
		b.Version = 1
	}
	if b.InvoiceNumber == "" {
		b.InvoiceNumber = fmt.Sprintf("INV-20250601-%06d", b.ID)
	}
	m.bookings[b.ID] = b
	return &b
}

func clone(b *model.Booking) model.Booking {
	cp := *b
	cp.SelectedAddOns = append([]model.AddOn(nil), b.SelectedAddOns...)
	cp.Payments = append([]model.PaymentEvent(nil), b.Payments...)
	if b.Metadata != nil {
		cp.Metadata = make(map[string]string, len(b.Metadata))
		for k, v := range b.Metadata {
			cp.Metadata[k] = v
		}
	}
	return cp
}

func containsString(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

type memoryCollaborators struct {
	mu   sync.Mutex
	rows []*model.BookingCollaborator
}

func (m *memoryCollaborators) FindByBooking(ctx context.Context, bookingID int64) ([]*model.BookingCollaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*model.BookingCollaborator
	for _, c := range m.rows {
		if c.BookingID == bookingID {
			cp := *c
			out = append(out, &cp)
		}
	}
	return out, nil
}

func (m *memoryCollaborators) Find(ctx context.Context, bookingID int64, profileID string) (*model.BookingCollaborator, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.rows {
		if c.BookingID == bookingID && c.ProfileID == profileID {
			cp := *c
			return &cp, nil
		}
	}
	return nil, bookingserrors.ErrCollaboratorNotFound
}

func (m *memoryCollaborators) Upsert(ctx context.Context, c *model.BookingCollaborator) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.BookingID == c.BookingID && row.ProfileID == c.ProfileID {
			cp := *c
			cp.InvitedAt = row.InvitedAt
			m.rows[i] = &cp
			return nil
		}
	}
	cp := *c
	m.rows = append(m.rows, &cp)
	return nil
}

func (m *memoryCollaborators) Delete(ctx context.Context, bookingID int64, profileID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, row := range m.rows {
		if row.BookingID == bookingID && row.ProfileID == profileID {
			m.rows = append(m.rows[:i], m.rows[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}

func (m *memoryCollaborators) Count(ctx context.Context, bookingID int64) (int64, error) {
	list, _ := m.FindByBooking(ctx, bookingID)
	return int64(len(list)), nil
}

type mockSlotChecker struct {
	isSlotFreeFunc func(ctx context.Context, muaID, date, time string, bookingID int64) (*model.SlotCheck, error)
}

func (m *mockSlotChecker) IsSlotFreeExcluding(ctx context.Context, muaID, date, time string, bookingID int64) (*model.SlotCheck, error) {
	if m.isSlotFreeFunc != nil {
		return m.isSlotFreeFunc(ctx, muaID, date, time, bookingID)
	}
	return &model.SlotCheck{Available: true, Reason: model.ReasonOK}, nil
}

type mockProfiles map[string]*model.Profile

func (m mockProfiles) FindByID(ctx context.Context, id string) (*model.Profile, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return nil, directoryerrors.ErrNotFound
}

type mockOfferings map[string]*model.Offering

func (m mockOfferings) FindByID(ctx context.Context, id string) (*model.Offering, error) {
	if o, ok := m[id]; ok {
		return o, nil
	}
	return nil, directoryerrors.ErrNotFound
}

type recordingEmitter struct {
	mu   sync.Mutex
	sent []model.Notification
}

func (r *recordingEmitter) Emit(n model.Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
}

func (r *recordingEmitter) last() model.Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return model.Notification{}
	}
	return r.sent[len(r.sent)-1]
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

type fixture struct {
	store         *memoryStore
	collaborators *memoryCollaborators
	slots         *mockSlotChecker
	profiles      mockProfiles
	offerings     mockOfferings
	emitter       *recordingEmitter
	svc           *bookingService
}

func newFixture() *fixture {
	log := logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	})
	cfg := &config.Config{
		Log:            log,
		ReadTimeout:    5 * time.Second,
		WriteTimeout:   5 * time.Second,
		InvoicePrefix:  "INV",
		InvoiceDueDays: 7,
	}

	f := &fixture{
		store:         newMemoryStore(),
		collaborators: &memoryCollaborators{},
		slots:         &mockSlotChecker{},
		profiles: mockProfiles{
			"mua-1": {ID: "mua-1", Role: model.RoleMua, IsOnline: true},
			"mua-2": {ID: "mua-2", Role: model.RoleMua, IsOnline: false},
		},
		offerings: mockOfferings{},
		emitter:   &recordingEmitter{},
	}
	f.svc = NewBookingService(
		f.store,
		f.collaborators,
		f.slots,
		f.profiles,
		f.offerings,
		f.emitter,
		validator.NewBookingValidator(log),
		cfg,
	).(*bookingService)
	return f
}
