package pricing

import "github.com/shopspring/decimal"

// Line is an already-resolved line item: dimension and area pricing happen before this boundary.
type Line struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
}

// Discount holds the two ways an estimate-wide discount can be given.
// Percent takes precedence; Amount only applies when Percent is zero.
type Discount struct {
	Percent decimal.Decimal
	Amount  decimal.Decimal
}

// Totals are the four derived monetary fields of an estimate.
type Totals struct {
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
}

// CalculateTotals aggregates priced lines and a discount into estimate totals.
//
// Tax is computed per line on the discounted value, scaled by the ratio of the
// discounted subtotal to the subtotal. Only the four final sums are rounded.
// A zero subtotal uses a ratio of 1, and a fixed discount never exceeds the subtotal.
func CalculateTotals(lines []Line, discount Discount) (Totals, error) {
	if err := checkDiscount(discount); err != nil {
		return Totals{}, err
	}

	subtotal := decimal.Zero
	for _, l := range lines {
		if err := checkLine(l); err != nil {
			return Totals{}, err
		}
		subtotal = subtotal.Add(l.Quantity.Mul(l.UnitPrice))
	}

	amount := decimal.Zero
	switch {
	case discount.Percent.IsPositive():
		amount = subtotal.Mul(discount.Percent).Div(hundred)
	case discount.Amount.IsPositive():
		amount = decimal.Min(discount.Amount, subtotal)
	}

	afterDiscount := subtotal.Sub(amount)

	ratio := decimal.NewFromInt(1)
	if subtotal.IsPositive() {
		ratio = afterDiscount.Div(subtotal)
	}

	tax := decimal.Zero
	for _, l := range lines {
		itemSubtotal := l.Quantity.Mul(l.UnitPrice)
		tax = tax.Add(itemSubtotal.Mul(ratio).Mul(l.TaxRate).Div(hundred))
	}

	return Totals{
		Subtotal:       Round2(subtotal),
		DiscountAmount: Round2(amount),
		TaxAmount:      Round2(tax),
		Total:          Round2(afterDiscount.Add(tax)),
	}, nil
}

func checkDiscount(d Discount) error {
	if d.Percent.IsNegative() || d.Percent.GreaterThan(hundred) {
		return &InputError{Field: "discountPercent", Reason: "must be between 0 and 100"}
	}
	if d.Amount.IsNegative() {
		return &InputError{Field: "discountAmount", Reason: "must not be negative"}
	}
	return nil
}

func checkLine(l Line) error {
	if l.Quantity.IsNegative() {
		return &InputError{Field: "quantity", Reason: "must not be negative"}
	}
	if l.UnitPrice.IsNegative() {
		return &InputError{Field: "unitPrice", Reason: "must not be negative"}
	}
	return checkTaxRate(l.TaxRate)
}
