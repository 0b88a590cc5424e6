package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	bookingserrors "smstudio/internal/bookings/errors"
	"smstudio/internal/bookings/repository"
	"smstudio/internal/bookings/validator"
	directoryerrors "smstudio/internal/directory/errors"
	"smstudio/pkg/authz"
	"smstudio/pkg/config"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/money"
	"smstudio/pkg/notify"
	"smstudio/pkg/pricing"
	"smstudio/pkg/timeslot"
)

const (
	defaultInvoicePrefix = "INV"
	maxInvoiceAttempts   = 3
)

// SlotChecker is the availability lookup a booking needs before it takes a slot.
type SlotChecker interface {
	IsSlotFreeExcluding(ctx context.Context, muaID, date, time string, bookingID int64) (*model.SlotCheck, error)
}

type ProfileStore interface {
	FindByID(ctx context.Context, id string) (*model.Profile, error)
}

type OfferingStore interface {
	FindByID(ctx context.Context, id string) (*model.Offering, error)
}

type BookingService interface {
	Create(ctx context.Context, actor authz.Actor, in *model.BookingInput) (*model.Booking, error)
	GetByID(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error)
	List(ctx context.Context, actor authz.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)

	UpdateStatus(ctx context.Context, actor authz.Actor, id int64, change model.StatusChange) (*model.Booking, error)
	Reschedule(ctx context.Context, actor authz.Actor, id int64, req model.Reschedule) (*model.Booking, error)
	MarkInProgress(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error)
	MarkComplete(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error)
	RecordPayment(ctx context.Context, actor authz.Actor, id int64, in model.PaymentInput) (*model.Booking, error)
	UpdatePricing(ctx context.Context, actor authz.Actor, id int64, upd model.PricingUpdate) (*model.Booking, error)

	Calendar(ctx context.Context, actor authz.Actor, from, to string) ([]model.CalendarEvent, error)
	Stats(ctx context.Context, actor authz.Actor, from, to string) (map[string]int64, error)
	Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error)

	ListCollaborators(ctx context.Context, actor authz.Actor, bookingID int64) ([]*model.BookingCollaborator, error)
	InviteCollaborators(ctx context.Context, actor authz.Actor, bookingID int64, invite model.CollaboratorInvite) ([]*model.BookingCollaborator, error)
	RemoveCollaborator(ctx context.Context, actor authz.Actor, bookingID int64, profileID string) error
	RespondInvite(ctx context.Context, actor authz.Actor, bookingID int64, resp model.InviteResponse) (*model.BookingCollaborator, error)
}

type bookingService struct {
	repo          repository.BookingRepository
	collaborators repository.CollaboratorRepository
	slots         SlotChecker
	profiles      ProfileStore
	offerings     OfferingStore
	notifier      notify.Emitter
	validator     *validator.BookingValidator
	cfg           *config.Config
	now           func() time.Time
}

func NewBookingService(
	repo repository.BookingRepository,
	collaborators repository.CollaboratorRepository,
	slots SlotChecker,
	profiles ProfileStore,
	offerings OfferingStore,
	notifier notify.Emitter,
	validator *validator.BookingValidator,
	cfg *config.Config,
) BookingService {
	if notifier == nil {
		notifier = notify.Discard{}
	}
	return &bookingService{
		repo:          repo,
		collaborators: collaborators,
		slots:         slots,
		profiles:      profiles,
		offerings:     offerings,
		notifier:      notifier,
		validator:     validator,
		cfg:           cfg,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *bookingService) Create(ctx context.Context, actor authz.Actor, in *model.BookingInput) (*model.Booking, error) {
	if in.CustomerID == "" && actor.Role == model.RoleCustomer {
		in.CustomerID = actor.ID
	}

	booking, err := s.newBooking(ctx, in)
	if err != nil {
		return nil, err
	}

	if err := s.validator.Validate(booking); err != nil {
		s.cfg.Log.Warn("Booking validation failed",
			"customer_id", booking.CustomerID,
			"mua_id", booking.MuaID,
			"error", err,
		)
		return nil, validationFailed(err)
	}

	if !authz.CanAct(actor, authz.ForBooking(booking), authz.CreateBooking) {
		s.cfg.Log.Warn("Booking creation forbidden", "actor_id", actor.ID, "customer_id", booking.CustomerID)
		return nil, apperrors.Forbidden("Only the customer or an admin can create this booking")
	}

	check, err := s.slots.IsSlotFreeExcluding(ctx, booking.MuaID, booking.BookingDate, booking.BookingTime, 0)
	if err != nil {
		return nil, err
	}
	if !check.Available {
		s.cfg.Log.Info("Booking slot unavailable",
			"mua_id", booking.MuaID,
			"date", booking.BookingDate,
			"time", booking.BookingTime,
			"reason", check.Reason,
		)
		return nil, apperrors.SlotUnavailable(check.Reason)
	}

	for attempt := 1; ; attempt++ {
		booking.InvoiceNumber = s.invoiceNumber()
		err = s.repo.ExecuteTransaction(ctx, func(txCtx context.Context) error {
			id, err := s.repo.NextID(txCtx)
			if err != nil {
				return err
			}
			booking.ID = id
			return s.repo.Create(txCtx, booking)
		})
		if errors.Is(err, bookingserrors.ErrDuplicateInvoice) && attempt < maxInvoiceAttempts {
			s.cfg.Log.Warn("Invoice number collision, regenerating", "attempt", attempt)
			continue
		}
		break
	}
	if err != nil {
		return nil, s.writeFailed(err, "create", 0)
	}

	s.cfg.Log.Info("Booking created",
		"booking_id", booking.ID,
		"mua_id", booking.MuaID,
		"customer_id", booking.CustomerID,
		"date", booking.BookingDate,
		"time", booking.BookingTime,
		"invoice_number", booking.InvoiceNumber,
	)

	s.notifier.Emit(model.Notification{
		UserID:    booking.MuaID,
		Title:     "New booking",
		Message:   fmt.Sprintf("New booking on %s %s", booking.BookingDate, booking.BookingTime),
		Type:      model.NotificationBooking,
		BookingID: booking.ID,
	})
	return booking, nil
}

// newBooking turns the request into a pending, unpaid booking with its totals
// stamped. Dates and times are canonicalized when they parse; otherwise they
// are left for the validator to reject.
func (s *bookingService) newBooking(ctx context.Context, in *model.BookingInput) (*model.Booking, error) {
	now := s.now()

	b := &model.Booking{
		CustomerID:       strings.TrimSpace(in.CustomerID),
		MuaID:            strings.TrimSpace(in.MuaID),
		OfferingID:       in.OfferingID,
		BookingDate:      in.BookingDate,
		BookingTime:      in.BookingTime,
		ServiceType:      in.ServiceType,
		LocationAddress:  strings.TrimSpace(in.LocationAddress),
		Notes:            strings.TrimSpace(in.Notes),
		Person:           in.Person,
		UseCollaboration: in.UseCollaboration,
		SelectedAddOns:   in.SelectedAddOns,
		DiscountAmount:   in.DiscountAmount,
		Tax:              in.Tax,
		PaymentMethod:    in.PaymentMethod,
		PaymentStatus:    model.PaymentUnpaid,
		AmountPaid:       money.Zero,
		InvoiceDate:      now,
		DueDate:          in.DueDate,
	}
	if d, err := timeslot.CanonicalDate(in.BookingDate); err == nil {
		b.BookingDate = d
	}
	if t, err := timeslot.NormalizeTime(in.BookingTime); err == nil {
		b.BookingTime = t
	}
	if b.Person == 0 {
		b.Person = 1
	}
	if b.SelectedAddOns == nil {
		b.SelectedAddOns = []model.AddOn{}
	}
	if in.InvoiceDate != nil {
		b.InvoiceDate = in.InvoiceDate.UTC()
	}
	if b.DueDate == nil && s.cfg.InvoiceDueDays > 0 {
		due := timeslot.AddDays(b.InvoiceDate, s.cfg.InvoiceDueDays)
		b.DueDate = &due
	}
	b.SetState(model.StatePending)

	switch {
	case in.Amount != nil:
		b.Amount = *in.Amount
	case in.OfferingID != nil && *in.OfferingID != "":
		offering, err := s.offering(ctx, *in.OfferingID)
		if err != nil {
			return nil, err
		}
		b.Amount = pricing.QuoteOffering(offering, in.UseCollaboration)
	default:
		b.Amount = money.Zero
	}

	pricing.Apply(b)
	return b, nil
}

// invoiceNumber is PREFIX-YYYYMMDD-XXXXXX with a random hex suffix.
func (s *bookingService) invoiceNumber() string {
	prefix := s.cfg.InvoicePrefix
	if prefix == "" {
		prefix = defaultInvoicePrefix
	}
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:6])
	return fmt.Sprintf("%s-%s-%s", prefix, s.now().Format("20060102"), suffix)
}

func (s *bookingService) GetByID(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	booking, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !authz.CanAct(actor, authz.ForBooking(booking), authz.ViewBooking) {
		return nil, apperrors.Forbidden("You are not a party to this booking")
	}
	return booking, nil
}

// List scopes the search to the caller: artists see their own bookings,
// customers theirs, admins everything matching the filter.
func (s *bookingService) List(ctx context.Context, actor authz.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	limit = config.NormalizePaginationLimit(limit)
	offset = config.NormalizeOffset(offset)

	filter, err := scopeFilter(actor, filter)
	if err != nil {
		return nil, 0, err
	}

	sharedCtx, cancel := context.WithCancel(ctx)
	if s.cfg.ReadTimeout > 0 {
		sharedCtx, cancel = context.WithTimeout(ctx, s.cfg.ReadTimeout)
	}
	defer cancel()

	var count int64
	var bookings []*model.Booking
	var errCount, errFind error
	var wg sync.WaitGroup
	wg.Add(2)

	go func() {
		defer wg.Done()
		var err error
		count, err = s.repo.Count(sharedCtx, filter)
		if err != nil {
			s.cfg.Log.Error("Failed to count bookings", "error", err)
			errCount = apperrors.Internal("Failed to count bookings", err)
		}
	}()

	go func() {
		defer wg.Done()
		var err error
		bookings, err = s.repo.Search(sharedCtx, filter, limit, offset)
		if err != nil {
			s.cfg.Log.Error("Failed to list bookings",
				"limit", limit,
				"offset", offset,
				"error", err,
			)
			errFind = apperrors.Internal("Failed to retrieve bookings", err)
		}
	}()

	wg.Wait()
	if errCount != nil {
		return nil, 0, errCount
	}
	if errFind != nil {
		return nil, 0, errFind
	}
	if bookings == nil {
		bookings = []*model.Booking{}
	}
	return bookings, count, nil
}

func scopeFilter(actor authz.Actor, filter model.BookingFilter) (model.BookingFilter, error) {
	switch actor.Role {
	case model.RoleAdmin:
	case model.RoleMua:
		filter.MuaID = actor.ID
	default:
		filter.CustomerID = actor.ID
	}

	var err error
	if filter.DateFrom != "" {
		if filter.DateFrom, err = timeslot.CanonicalDate(filter.DateFrom); err != nil {
			return filter, apperrors.Validation("Invalid date_from", map[string]any{"error": err.Error()})
		}
	}
	if filter.DateTo != "" {
		if filter.DateTo, err = timeslot.CanonicalDate(filter.DateTo); err != nil {
			return filter, apperrors.Validation("Invalid date_to", map[string]any{"error": err.Error()})
		}
	}
	return filter, nil
}

func (s *bookingService) load(ctx context.Context, id int64) (*model.Booking, error) {
	booking, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, bookingserrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Booking", strconv.FormatInt(id, 10))
		}
		s.cfg.Log.Error("Failed to load booking", "booking_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve booking", err)
	}
	return booking, nil
}

func (s *bookingService) offering(ctx context.Context, id string) (*model.Offering, error) {
	offering, err := s.offerings.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, directoryerrors.ErrNotFound) {
			return nil, apperrors.NotFoundWithID("Offering", id)
		}
		s.cfg.Log.Error("Failed to load offering", "offering_id", id, "error", err)
		return nil, apperrors.Internal("Failed to retrieve offering", err)
	}
	return offering, nil
}

// writeFailed maps storage errors raised while persisting a booking.
func (s *bookingService) writeFailed(err error, op string, id int64) error {
	switch {
	case errors.Is(err, bookingserrors.ErrSlotTaken):
		s.cfg.Log.Info("Booking slot already taken", "op", op, "booking_id", id)
		return apperrors.Conflict("slot already taken")
	case errors.Is(err, bookingserrors.ErrStaleBooking):
		s.cfg.Log.Info("Stale booking write rejected", "op", op, "booking_id", id)
		return apperrors.Conflict("booking was modified concurrently, reload and retry")
	case errors.Is(err, bookingserrors.ErrDuplicateInvoice):
		return apperrors.Internal("Failed to allocate a unique invoice number", err)
	case apperrors.IsAppError(err):
		return err
	default:
		s.cfg.Log.Error("Failed to persist booking", "op", op, "booking_id", id, "error", err)
		return apperrors.Internal("Failed to save booking", err)
	}
}

func validationFailed(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		return apperrors.Validation("Booking validation failed", map[string]any{
			"error":  err.Error(),
			"fields": verrs,
		})
	}
	return apperrors.Validation("Booking validation failed", map[string]any{"error": err.Error()})
}
