package pricing

import (
	"encoding/json"
	"testing"

	"go.mongodb.org/mongo-driver/bson"

	"smstudio/pkg/model"
	"smstudio/pkg/money"
)

func TestCompute_InvoiceTotals(t *testing.T) {
	got := Compute(Input{
		Base:       money.MustParse("100000"),
		AddOns:     []model.AddOn{{Name: "hair do", Price: money.MustParse("20000")}},
		Discount:   money.MustParse("5000"),
		TaxPercent: money.PercentFromInt(10),
	})

	if got.Subtotal.String() != "120000.00" {
		t.Errorf("expected subtotal 120000.00, got %s", got.Subtotal)
	}
	if got.TaxAmount.String() != "12000.00" {
		t.Errorf("expected tax_amount 12000.00, got %s", got.TaxAmount)
	}
	if got.DiscountAmount.String() != "5000.00" {
		t.Errorf("expected discount_amount 5000.00, got %s", got.DiscountAmount)
	}
	if got.GrandTotal.String() != "127000.00" {
		t.Errorf("expected grand_total 127000.00, got %s", got.GrandTotal)
	}
}

func TestCompute_RoundsTaxToCents(t *testing.T) {
	tax, err := money.ParsePercent("11")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	got := Compute(Input{Base: money.MustParse("99.95"), TaxPercent: tax})

	// 99.95 * 11% = 10.9945
	if got.TaxAmount.String() != "10.99" {
		t.Errorf("expected tax 10.99, got %s", got.TaxAmount)
	}
	if got.GrandTotal.String() != "110.94" {
		t.Errorf("expected grand total 110.94, got %s", got.GrandTotal)
	}
}

func TestCompute_NegativeGrandTotalAllowed(t *testing.T) {
	got := Compute(Input{Base: money.MustParse("100"), Discount: money.MustParse("150")})
	if got.GrandTotal.String() != "-50.00" {
		t.Errorf("expected -50.00, got %s", got.GrandTotal)
	}
}

func TestApply_Idempotent(t *testing.T) {
	b := &model.Booking{
		Amount:         money.MustParse("250000"),
		SelectedAddOns: []model.AddOn{{Name: "lashes", Price: money.MustParse("35000.5")}},
		DiscountAmount: money.MustParse("10000"),
		Tax:            money.PercentFromInt(11),
	}

	Apply(b)
	first := []string{b.Subtotal.String(), b.TaxAmount.String(), b.GrandTotal.String(), b.Total.String()}
	Apply(b)
	second := []string{b.Subtotal.String(), b.TaxAmount.String(), b.GrandTotal.String(), b.Total.String()}

	for i := range first {
		if first[i] != second[i] {
			t.Errorf("recompute changed field %d: %s -> %s", i, first[i], second[i])
		}
	}
}

func TestQuoteOffering(t *testing.T) {
	collab := money.MustParse("150000")
	withCollab := &model.Offering{Price: money.MustParse("500000"), CollaborationPrice: &collab}
	solo := &model.Offering{Price: money.MustParse("500000")}

	tests := []struct {
		name     string
		offering *model.Offering
		useCollb bool
		want     string
	}{
		{name: "base price", offering: withCollab, useCollb: false, want: "500000.00"},
		{name: "collaboration requested", offering: withCollab, useCollb: true, want: "650000.00"},
		{name: "collaboration not offered", offering: solo, useCollb: true, want: "500000.00"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := QuoteOffering(tt.offering, tt.useCollb).String(); got != tt.want {
				t.Errorf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestApply_StableAcrossStorage(t *testing.T) {
	tests := []struct {
		name    string
		payload string
	}{
		{"sub cent inputs", `{"amount":0.004,"selected_add_ons":[{"name":"lashes","price":"0.004"}]}`},
		{"three digit discount", `{"amount":"250000","selected_add_ons":[{"name":"hair","price":35000.505}],"discount_amount":"1000.005","tax":"11%"}`},
		{"fractional tax", `{"amount":"99.95","discount_amount":10,"tax":7.25}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var b model.Booking
			if err := json.Unmarshal([]byte(tt.payload), &b); err != nil {
				t.Fatalf("Unmarshal payload: %v", err)
			}
			Apply(&b)

			raw, err := bson.Marshal(&b)
			if err != nil {
				t.Fatalf("bson.Marshal: %v", err)
			}
			var reloaded model.Booking
			if err := bson.Unmarshal(raw, &reloaded); err != nil {
				t.Fatalf("bson.Unmarshal: %v", err)
			}
			Apply(&reloaded)

			fields := []struct {
				name          string
				before, after money.Amount
			}{
				{"amount", b.Amount, reloaded.Amount},
				{"subtotal", b.Subtotal, reloaded.Subtotal},
				{"tax_amount", b.TaxAmount, reloaded.TaxAmount},
				{"discount_amount", b.DiscountAmount, reloaded.DiscountAmount},
				{"grand_total", b.GrandTotal, reloaded.GrandTotal},
				{"total", b.Total, reloaded.Total},
			}
			for _, f := range fields {
				if !f.before.Equal(f.after) {
					t.Errorf("%s changed across storage: %s -> %s", f.name, f.before.Decimal(), f.after.Decimal())
				}
			}
			if len(reloaded.SelectedAddOns) != len(b.SelectedAddOns) {
				t.Fatalf("expected %d add-ons after reload, got %d", len(b.SelectedAddOns), len(reloaded.SelectedAddOns))
			}
			for i := range b.SelectedAddOns {
				if !b.SelectedAddOns[i].Price.Equal(reloaded.SelectedAddOns[i].Price) {
					t.Errorf("add-on %d price changed: %s -> %s", i, b.SelectedAddOns[i].Price, reloaded.SelectedAddOns[i].Price)
				}
			}
			if b.Tax.String() != reloaded.Tax.String() {
				t.Errorf("tax changed across storage: %s -> %s", b.Tax, reloaded.Tax)
			}
		})
	}
}

func TestCompute_DiscountSubtractedBeforeRounding(t *testing.T) {
	got := Compute(Input{Base: money.MustParse("10.00"), Discount: money.MustParse("0.50"), TaxPercent: money.PercentFromInt(5)})
	// 10.00 + 0.50 tax - 0.50
	if got.GrandTotal.String() != "10.00" {
		t.Errorf("expected 10.00, got %s", got.GrandTotal)
	}
}
