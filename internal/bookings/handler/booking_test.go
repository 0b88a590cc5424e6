package handler

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/julienschmidt/httprouter"

	"smstudio/pkg/authz"
	"smstudio/pkg/client"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/logger"
	"smstudio/pkg/middleware"
	"smstudio/pkg/model"
	"smstudio/pkg/money"
)

type mockBookingService struct {
	createFunc        func(ctx context.Context, actor authz.Actor, in *model.BookingInput) (*model.Booking, error)
	getByIDFunc       func(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error)
	listFunc          func(ctx context.Context, actor authz.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error)
	updateStatusFunc  func(ctx context.Context, actor authz.Actor, id int64, change model.StatusChange) (*model.Booking, error)
	rescheduleFunc    func(ctx context.Context, actor authz.Actor, id int64, req model.Reschedule) (*model.Booking, error)
	recordPaymentFunc func(ctx context.Context, actor authz.Actor, id int64, in model.PaymentInput) (*model.Booking, error)
	calendarFunc      func(ctx context.Context, actor authz.Actor, from, to string) ([]model.CalendarEvent, error)
	statsFunc         func(ctx context.Context, actor authz.Actor, from, to string) (map[string]int64, error)
	quoteFunc         func(ctx context.Context, req model.QuoteRequest) (*model.Quote, error)
	removeCollabFunc  func(ctx context.Context, actor authz.Actor, bookingID int64, profileID string) error
	respondInviteFunc func(ctx context.Context, actor authz.Actor, bookingID int64, resp model.InviteResponse) (*model.BookingCollaborator, error)
	lastActor         authz.Actor
	lastID            int64
	lastOp            string
}

func (m *mockBookingService) record(op string, actor authz.Actor, id int64) {
	m.lastOp = op
	m.lastActor = actor
	m.lastID = id
}

func (m *mockBookingService) Create(ctx context.Context, actor authz.Actor, in *model.BookingInput) (*model.Booking, error) {
	m.record("Create", actor, 0)
	if m.createFunc != nil {
		return m.createFunc(ctx, actor, in)
	}
	return &model.Booking{ID: 1}, nil
}

func (m *mockBookingService) GetByID(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	m.record("GetByID", actor, id)
	if m.getByIDFunc != nil {
		return m.getByIDFunc(ctx, actor, id)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) List(ctx context.Context, actor authz.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
	m.record("List", actor, 0)
	if m.listFunc != nil {
		return m.listFunc(ctx, actor, filter, limit, offset)
	}
	return []*model.Booking{}, 0, nil
}

func (m *mockBookingService) UpdateStatus(ctx context.Context, actor authz.Actor, id int64, change model.StatusChange) (*model.Booking, error) {
	m.record("UpdateStatus", actor, id)
	if m.updateStatusFunc != nil {
		return m.updateStatusFunc(ctx, actor, id, change)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) Reschedule(ctx context.Context, actor authz.Actor, id int64, req model.Reschedule) (*model.Booking, error) {
	m.record("Reschedule", actor, id)
	if m.rescheduleFunc != nil {
		return m.rescheduleFunc(ctx, actor, id, req)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) MarkInProgress(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	m.record("MarkInProgress", actor, id)
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) MarkComplete(ctx context.Context, actor authz.Actor, id int64) (*model.Booking, error) {
	m.record("MarkComplete", actor, id)
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) RecordPayment(ctx context.Context, actor authz.Actor, id int64, in model.PaymentInput) (*model.Booking, error) {
	m.record("RecordPayment", actor, id)
	if m.recordPaymentFunc != nil {
		return m.recordPaymentFunc(ctx, actor, id, in)
	}
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) UpdatePricing(ctx context.Context, actor authz.Actor, id int64, upd model.PricingUpdate) (*model.Booking, error) {
	m.record("UpdatePricing", actor, id)
	return &model.Booking{ID: id}, nil
}

func (m *mockBookingService) Calendar(ctx context.Context, actor authz.Actor, from, to string) ([]model.CalendarEvent, error) {
	m.record("Calendar", actor, 0)
	if m.calendarFunc != nil {
		return m.calendarFunc(ctx, actor, from, to)
	}
	return []model.CalendarEvent{}, nil
}

func (m *mockBookingService) Stats(ctx context.Context, actor authz.Actor, from, to string) (map[string]int64, error) {
	m.record("Stats", actor, 0)
	if m.statsFunc != nil {
		return m.statsFunc(ctx, actor, from, to)
	}
	return map[string]int64{}, nil
}

func (m *mockBookingService) Quote(ctx context.Context, req model.QuoteRequest) (*model.Quote, error) {
	m.record("Quote", authz.Actor{}, 0)
	if m.quoteFunc != nil {
		return m.quoteFunc(ctx, req)
	}
	return &model.Quote{Amount: money.Zero}, nil
}

func (m *mockBookingService) ListCollaborators(ctx context.Context, actor authz.Actor, bookingID int64) ([]*model.BookingCollaborator, error) {
	m.record("ListCollaborators", actor, bookingID)
	return []*model.BookingCollaborator{}, nil
}

func (m *mockBookingService) InviteCollaborators(ctx context.Context, actor authz.Actor, bookingID int64, invite model.CollaboratorInvite) ([]*model.BookingCollaborator, error) {
	m.record("InviteCollaborators", actor, bookingID)
	return []*model.BookingCollaborator{}, nil
}

func (m *mockBookingService) RemoveCollaborator(ctx context.Context, actor authz.Actor, bookingID int64, profileID string) error {
	m.record("RemoveCollaborator", actor, bookingID)
	if m.removeCollabFunc != nil {
		return m.removeCollabFunc(ctx, actor, bookingID, profileID)
	}
	return nil
}

func (m *mockBookingService) RespondInvite(ctx context.Context, actor authz.Actor, bookingID int64, resp model.InviteResponse) (*model.BookingCollaborator, error) {
	m.record("RespondInvite", actor, bookingID)
	if m.respondInviteFunc != nil {
		return m.respondInviteFunc(ctx, actor, bookingID, resp)
	}
	return &model.BookingCollaborator{BookingID: bookingID, ProfileID: actor.ID, Status: resp.Response}, nil
}

func testLogger() *logger.Logger {
	return logger.New(logger.Config{
		Level:   "error",
		Format:  logger.JSON,
		Output:  io.Discard,
		Service: "test",
	})
}

func newRouter(svc *mockBookingService) *httprouter.Router {
	router := httprouter.New()
	NewBookingHandler(svc, testLogger()).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, path, body string, actor authz.Actor) *httptest.ResponseRecorder {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req = req.WithContext(middleware.WithActor(req.Context(), actor))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestRoutes_Dispatch(t *testing.T) {
	actor := authz.Actor{ID: "mua-1", Role: model.RoleMua}

	tests := []struct {
		method   string
		path     string
		body     string
		wantOp   string
		wantID   int64
		wantCode int
	}{
		{http.MethodPost, "/bookings", `{"mua_id":"mua-1"}`, "Create", 0, http.StatusCreated},
		{http.MethodGet, "/bookings", "", "List", 0, http.StatusOK},
		{http.MethodGet, "/bookings/42", "", "GetByID", 42, http.StatusOK},
		{http.MethodGet, "/bookings/calendar", "", "Calendar", 0, http.StatusOK},
		{http.MethodGet, "/bookings/stats", "", "Stats", 0, http.StatusOK},
		{http.MethodPost, "/bookings/quote", `{"offering_id":"o1"}`, "Quote", 0, http.StatusOK},
		{http.MethodPut, "/bookings/42", `{"amount":"10"}`, "UpdatePricing", 42, http.StatusOK},
		{http.MethodPatch, "/bookings/42/status", `{"status":"confirmed"}`, "UpdateStatus", 42, http.StatusOK},
		{http.MethodPatch, "/bookings/42/reschedule", `{"booking_date":"2025-06-02","booking_time":"09:00"}`, "Reschedule", 42, http.StatusOK},
		{http.MethodPost, "/bookings/42/in-progress", "", "MarkInProgress", 42, http.StatusOK},
		{http.MethodPost, "/bookings/42/complete", "", "MarkComplete", 42, http.StatusOK},
		{http.MethodPost, "/bookings/42/payment", `{"amount":100}`, "RecordPayment", 42, http.StatusOK},
		{http.MethodGet, "/bookings/42/collaborators", "", "ListCollaborators", 42, http.StatusOK},
		{http.MethodPost, "/bookings/42/collaborators", `{"profile_ids":["a"]}`, "InviteCollaborators", 42, http.StatusOK},
		{http.MethodPatch, "/bookings/42/collaborators/respond", `{"response":"accepted"}`, "RespondInvite", 42, http.StatusOK},
		{http.MethodDelete, "/bookings/42/collaborators/asst-1", "", "RemoveCollaborator", 42, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.method+" "+tt.path, func(t *testing.T) {
			svc := &mockBookingService{}
			w := serve(newRouter(svc), tt.method, tt.path, tt.body, actor)

			if w.Code != tt.wantCode {
				t.Fatalf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if svc.lastOp != tt.wantOp {
				t.Errorf("expected %s, got %s", tt.wantOp, svc.lastOp)
			}
			if svc.lastID != tt.wantID {
				t.Errorf("expected id %d, got %d", tt.wantID, svc.lastID)
			}
			if tt.wantOp != "Quote" && svc.lastActor != actor {
				t.Errorf("actor not propagated, got %+v", svc.lastActor)
			}
		})
	}
}

func TestRoutes_BadInput(t *testing.T) {
	actor := authz.Actor{ID: "c1", Role: model.RoleCustomer}

	tests := []struct {
		name     string
		method   string
		path     string
		body     string
		wantCode int
	}{
		{"non numeric id", http.MethodGet, "/bookings/abc", "", http.StatusBadRequest},
		{"zero id", http.MethodPost, "/bookings/0/complete", "", http.StatusBadRequest},
		{"unknown post target", http.MethodPost, "/bookings/42", `{}`, http.StatusNotFound},
		{"malformed body", http.MethodPatch, "/bookings/1/status", `{"status":`, http.StatusBadRequest},
		{"bad limit", http.MethodGet, "/bookings?limit=x", "", http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{}
			w := serve(newRouter(svc), tt.method, tt.path, tt.body, actor)
			if w.Code != tt.wantCode {
				t.Errorf("expected status %d, got %d: %s", tt.wantCode, w.Code, w.Body.String())
			}
			if svc.lastOp != "" {
				t.Errorf("service should not be called, got %s", svc.lastOp)
			}
		})
	}
}

func TestList_PassesFilterAndPagination(t *testing.T) {
	svc := &mockBookingService{
		listFunc: func(_ context.Context, _ authz.Actor, filter model.BookingFilter, limit int, offset int64) ([]*model.Booking, int64, error) {
			if len(filter.Statuses) != 2 || filter.Statuses[1] != "confirmed" {
				t.Errorf("unexpected statuses %v", filter.Statuses)
			}
			if filter.DateFrom != "2025-06-01" || filter.MuaID != "mua-1" {
				t.Errorf("unexpected filter %+v", filter)
			}
			if limit != 5 || offset != 10 {
				t.Errorf("unexpected pagination %d/%d", limit, offset)
			}
			return []*model.Booking{{ID: 7}}, 11, nil
		},
	}

	w := serve(newRouter(svc), http.MethodGet, "/bookings?status=pending,confirmed&date_from=2025-06-01&muaId=mua-1&limit=5&offset=10", "", authz.Actor{ID: "admin", Role: model.RoleAdmin})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", w.Code)
	}

	var resp struct {
		Data       []model.Booking `json:"data"`
		TotalCount int64           `json:"total_count"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.TotalCount != 11 || len(resp.Data) != 1 || resp.Data[0].ID != 7 {
		t.Errorf("unexpected response %+v", resp)
	}
}

func TestErrors_MapToStatus(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode int
		wantBody string
	}{
		{"forbidden", apperrors.Forbidden("no"), http.StatusForbidden, "FORBIDDEN"},
		{"conflict", apperrors.Conflict("artist offline"), http.StatusConflict, "artist offline"},
		{"slot unavailable", apperrors.SlotUnavailable(model.ReasonAlreadyBooked), http.StatusUnprocessableEntity, "already_booked"},
		{"not found", apperrors.NotFoundWithID("Booking", "9"), http.StatusNotFound, "NOT_FOUND"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc := &mockBookingService{
				updateStatusFunc: func(context.Context, authz.Actor, int64, model.StatusChange) (*model.Booking, error) {
					return nil, tt.err
				},
			}
			w := serve(newRouter(svc), http.MethodPatch, "/bookings/9/status", `{"status":"confirmed"}`, authz.Actor{ID: "mua-1", Role: model.RoleMua})
			if w.Code != tt.wantCode {
				t.Errorf("expected %d, got %d", tt.wantCode, w.Code)
			}
			if !strings.Contains(w.Body.String(), tt.wantBody) {
				t.Errorf("expected body to contain %q, got %s", tt.wantBody, w.Body.String())
			}
		})
	}
}

// TestClientRoundTrip drives the handler through the HTTP client over a real
// listener with header-based authentication in front.
func TestClientRoundTrip(t *testing.T) {
	svc := &mockBookingService{
		createFunc: func(_ context.Context, actor authz.Actor, in *model.BookingInput) (*model.Booking, error) {
			b := &model.Booking{ID: 5, CustomerID: actor.ID, MuaID: in.MuaID, BookingDate: in.BookingDate, BookingTime: in.BookingTime}
			b.SetState(model.StatePending)
			return b, nil
		},
		recordPaymentFunc: func(_ context.Context, _ authz.Actor, id int64, in model.PaymentInput) (*model.Booking, error) {
			return &model.Booking{ID: id, AmountPaid: in.Amount, PaymentStatus: model.PaymentPartial}, nil
		},
		quoteFunc: func(_ context.Context, req model.QuoteRequest) (*model.Quote, error) {
			if req.OfferingID != "o1" || !req.UseCollaboration {
				t.Errorf("unexpected quote request %+v", req)
			}
			return &model.Quote{Amount: money.MustParse("325.5")}, nil
		},
	}

	router := newRouter(svc)
	server := httptest.NewServer(middleware.Authentication("", testLogger())(router))
	defer server.Close()

	base := client.NewHttpClient(server.URL)
	bookings := client.NewBookingClient(base.As("cust-1", model.RoleCustomer))
	ctx := context.Background()

	resp, err := bookings.Create(ctx, model.BookingInput{MuaID: "mua-1", BookingDate: "2025-06-01", BookingTime: "10:00", ServiceType: model.ServiceStudio})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", resp.StatusCode, client.GetErrorMessage(resp))
	}
	var created model.Booking
	if err := resp.DecodeData(&created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.ID != 5 || created.CustomerID != "cust-1" || created.Status != "pending" {
		t.Errorf("unexpected booking %+v", created)
	}

	artist := client.NewBookingClient(base.As("mua-1", model.RoleMua))
	resp, err = artist.RecordPayment(ctx, 5, money.FromInt(250))
	if err != nil {
		t.Fatalf("RecordPayment: %v", err)
	}
	var paid model.Booking
	if err := resp.DecodeData(&paid); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if !paid.AmountPaid.Equal(money.FromInt(250)) || paid.PaymentStatus != model.PaymentPartial {
		t.Errorf("unexpected payment result %+v", paid)
	}

	resp, err = bookings.Quote(ctx, "o1", true)
	if err != nil {
		t.Fatalf("Quote: %v", err)
	}
	if !strings.Contains(string(resp.Body), `"amount":"325.50"`) {
		t.Errorf("expected two-decimal amount string, got %s", resp.Body)
	}

	anonymous := client.NewBookingClient(base)
	resp, err = anonymous.Get(ctx, 5)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if resp.StatusCode != http.StatusUnauthorized {
		t.Errorf("expected 401 without identity, got %d", resp.StatusCode)
	}
}
