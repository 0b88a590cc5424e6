package pricing

import (
	"smstudio/pkg/model"
	"smstudio/pkg/money"
)

type Input struct {
	Base       money.Amount
	AddOns     []model.AddOn
	Discount   money.Amount
	TaxPercent money.Percent
}

type Totals struct {
	Subtotal       money.Amount
	TaxAmount      money.Amount
	DiscountAmount money.Amount
	GrandTotal     money.Amount
}

// Compute derives the invoice totals. Every output is rounded to two places and
// a discount larger than the taxed subtotal yields a negative grand total.
func Compute(in Input) Totals {
	subtotal := in.Base
	for _, a := range in.AddOns {
		subtotal = subtotal.Add(a.Price)
	}
	subtotal = subtotal.Round()
	tax := in.TaxPercent.Of(subtotal).Round()

	return Totals{
		Subtotal:       subtotal,
		TaxAmount:      tax,
		DiscountAmount: in.Discount.Round(),
		GrandTotal:     subtotal.Add(tax).Sub(in.Discount).Round(),
	}
}

// Apply stamps the computed totals onto the booking. The legacy total mirrors
// the grand total.
func Apply(b *model.Booking) {
	t := Compute(Input{
		Base:       b.Amount,
		AddOns:     b.SelectedAddOns,
		Discount:   b.DiscountAmount,
		TaxPercent: b.Tax,
	})
	b.Subtotal = t.Subtotal
	b.TaxAmount = t.TaxAmount
	b.DiscountAmount = t.DiscountAmount
	b.GrandTotal = t.GrandTotal
	b.Total = t.GrandTotal
}

// QuoteOffering is the default booking amount for an offering: its price plus
// the collaboration surcharge when requested and defined.
func QuoteOffering(o *model.Offering, useCollaboration bool) money.Amount {
	amount := o.Price
	if useCollaboration && o.CollaborationPrice != nil {
		amount = amount.Add(*o.CollaborationPrice)
	}
	return amount.Round()
}
