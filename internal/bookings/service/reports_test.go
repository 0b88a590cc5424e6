package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"

	"smstudio/pkg/authz"
	apperrors "smstudio/pkg/errors"
	"smstudio/pkg/model"
	"smstudio/pkg/money"
)

func TestCalendar(t *testing.T) {
	f := newFixture()
	seed(f, model.StateConfirmed, func(b *model.Booking) {
		b.BookingDate = "2025-06-03"
		b.BookingTime = "09:00"
	})
	seed(f, model.StatePending, func(b *model.Booking) { b.BookingTime = "14:00" })
	seed(f, model.StatePending, func(b *model.Booking) { b.BookingTime = "08:00" })
	seed(f, model.StatePending, func(b *model.Booking) { b.MuaID = "mua-2" })

	events, err := f.svc.Calendar(context.Background(), artist, "2025-06-01", "2025-06-30")
	if err != nil {
		t.Fatalf("Calendar: %v", err)
	}
	if len(events) != 3 {
		t.Fatalf("expected 3 events, got %d", len(events))
	}

	wantStarts := []string{"2025-06-01 08:00:00", "2025-06-01 14:00:00", "2025-06-03 09:00:00"}
	for i, want := range wantStarts {
		if events[i].Start != want {
			t.Errorf("event %d: expected start %s, got %s", i, want, events[i].Start)
		}
	}
	if events[2].Title != "CONFIRMED • studio" {
		t.Errorf("unexpected title %q", events[2].Title)
	}

	if _, err := f.svc.Calendar(context.Background(), artist, "soon", ""); !apperrors.HasCode(err, apperrors.CodeValidation) {
		t.Errorf("expected validation error for bad date, got %v", err)
	}
}

func TestStats(t *testing.T) {
	f := newFixture()
	seed(f, model.StatePending, nil)
	seed(f, model.StateInProgress, func(b *model.Booking) { b.BookingTime = "11:00" })
	seed(f, model.StateCancelled, func(b *model.Booking) { b.BookingTime = "12:00" })
	seed(f, model.StatePending, func(b *model.Booking) {
		b.MuaID = "mua-2"
		b.CustomerID = "cust-2"
	})

	stats, err := f.svc.Stats(context.Background(), artist, "", "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	want := map[string]int64{"pending": 1, "confirmed": 1, "cancelled": 1}
	for status, n := range want {
		if stats[status] != n {
			t.Errorf("%s: expected %d, got %d", status, n, stats[status])
		}
	}

	all, err := f.svc.Stats(context.Background(), admin, "", "")
	if err != nil {
		t.Fatalf("Stats: %v", err)
	}
	if all["pending"] != 2 {
		t.Errorf("admin should count every booking, got %v", all)
	}
}

func TestQuote(t *testing.T) {
	f := newFixture()
	extra := money.FromInt(75)
	f.offerings["off-1"] = &model.Offering{ID: "off-1", Price: money.MustParse("250.5"), CollaborationPrice: &extra}
	f.offerings["off-2"] = &model.Offering{ID: "off-2", Price: money.FromInt(300)}

	tests := []struct {
		name     string
		req      model.QuoteRequest
		want     money.Amount
		wantCode string
	}{
		{name: "base price", req: model.QuoteRequest{OfferingID: "off-1"}, want: money.MustParse("250.50")},
		{name: "with collaboration", req: model.QuoteRequest{OfferingID: "off-1", UseCollaboration: true}, want: money.MustParse("325.50")},
		{name: "collaboration not offered", req: model.QuoteRequest{OfferingID: "off-2", UseCollaboration: true}, want: money.FromInt(300)},
		{name: "missing offering", req: model.QuoteRequest{OfferingID: "off-9"}, wantCode: apperrors.CodeNotFound},
		{name: "empty offering id", req: model.QuoteRequest{}, wantCode: apperrors.CodeValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			quote, err := f.svc.Quote(context.Background(), tt.req)
			if tt.wantCode != "" {
				assertCode(t, err, tt.wantCode)
				return
			}
			if err != nil {
				t.Fatalf("Quote: %v", err)
			}
			if !quote.Amount.Equal(tt.want) {
				t.Errorf("expected %s, got %s", tt.want, quote.Amount)
			}
		})
	}
}

func TestPaymentStatus(t *testing.T) {
	total := money.FromInt(100)
	tests := []struct {
		paid money.Amount
		want model.PaymentStatus
	}{
		{money.Zero, model.PaymentUnpaid},
		{money.MustParse("0.01"), model.PaymentPartial},
		{money.MustParse("99.99"), model.PaymentPartial},
		{money.New(decimal.RequireFromString("99.9995")), model.PaymentPaid},
		{money.FromInt(100), model.PaymentPaid},
		{money.FromInt(120), model.PaymentPaid},
	}
	for _, tt := range tests {
		if got := paymentStatus(tt.paid, total); got != tt.want {
			t.Errorf("paymentStatus(%s): expected %s, got %s", tt.paid.Decimal(), tt.want, got)
		}
	}
}

func TestCollaborators(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := seed(f, model.StateConfirmed, nil)
	assistant := authz.Actor{ID: "asst-1", Role: model.RoleMua}

	_, err := f.svc.InviteCollaborators(ctx, customer, b.ID, model.CollaboratorInvite{ProfileIDs: []string{assistant.ID}})
	assertCode(t, err, apperrors.CodeForbidden)

	list, err := f.svc.InviteCollaborators(ctx, artist, b.ID, model.CollaboratorInvite{ProfileIDs: []string{artist.ID, assistant.ID}})
	if err != nil {
		t.Fatalf("InviteCollaborators: %v", err)
	}
	if len(list) != 1 || list[0].ProfileID != assistant.ID || list[0].Role != model.CollaboratorAssistant || list[0].Status != model.InviteInvited {
		t.Fatalf("expected one invited assistant, got %+v", list)
	}
	stored, _ := f.store.FindByID(ctx, b.ID)
	if !stored.IsCollaborative {
		t.Error("booking should be collaborative after an invite")
	}
	if n := f.emitter.last(); n.UserID != assistant.ID {
		t.Errorf("invitee should be notified, got %q", n.UserID)
	}

	if _, err := f.svc.ListCollaborators(ctx, assistant, b.ID); err != nil {
		t.Errorf("invitee should see the collaborator list: %v", err)
	}
	_, err = f.svc.ListCollaborators(ctx, authz.Actor{ID: "x", Role: model.RoleMua}, b.ID)
	assertCode(t, err, apperrors.CodeForbidden)

	_, err = f.svc.RespondInvite(ctx, customer, b.ID, model.InviteResponse{Response: "accepted"})
	assertCode(t, err, apperrors.CodeNotFound)
	_, err = f.svc.RespondInvite(ctx, assistant, b.ID, model.InviteResponse{Response: "maybe"})
	assertCode(t, err, apperrors.CodeValidation)

	resp, err := f.svc.RespondInvite(ctx, assistant, b.ID, model.InviteResponse{Response: "accepted"})
	if err != nil {
		t.Fatalf("RespondInvite: %v", err)
	}
	if resp.Status != model.InviteAccepted || resp.RespondedAt == nil {
		t.Errorf("expected accepted with responded_at, got %+v", resp)
	}
	if n := f.emitter.last(); n.UserID != artist.ID {
		t.Errorf("lead artist should hear the answer, got %q", n.UserID)
	}

	if err := f.svc.RemoveCollaborator(ctx, artist, b.ID, assistant.ID); err != nil {
		t.Fatalf("RemoveCollaborator: %v", err)
	}
	stored, _ = f.store.FindByID(ctx, b.ID)
	if stored.IsCollaborative {
		t.Error("booking should stop being collaborative once the last collaborator is removed")
	}

	if err := f.svc.RemoveCollaborator(ctx, artist, b.ID, assistant.ID); err != nil {
		t.Errorf("removing an absent collaborator should be a no-op: %v", err)
	}
}

func TestInviteCollaborators_LeadOnlyLeavesBookingSolo(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	b := seed(f, model.StateConfirmed, nil)

	list, err := f.svc.InviteCollaborators(ctx, artist, b.ID, model.CollaboratorInvite{ProfileIDs: []string{artist.ID}})
	if err != nil {
		t.Fatalf("InviteCollaborators: %v", err)
	}
	if len(list) != 0 {
		t.Fatalf("expected no collaborators, got %+v", list)
	}
	stored, _ := f.store.FindByID(ctx, b.ID)
	if stored.IsCollaborative {
		t.Error("booking must not become collaborative when nobody was invited")
	}
	if f.emitter.count() != 0 {
		t.Errorf("expected no notifications, got %d", f.emitter.count())
	}
}
