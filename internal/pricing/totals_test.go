package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func line(q, p, tax string) Line {
	return Line{Quantity: dec(q), UnitPrice: dec(p), TaxRate: dec(tax)}
}

func TestCalculateTotals_PercentDiscountScalesTax(t *testing.T) {
	totals, err := CalculateTotals([]Line{line("2", "100", "18")}, Discount{Percent: dec("10")})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}

	decimalEqual(t, "subtotal", totals.Subtotal, "200")
	decimalEqual(t, "discountAmount", totals.DiscountAmount, "20")
	decimalEqual(t, "taxAmount", totals.TaxAmount, "32.4")
	decimalEqual(t, "total", totals.Total, "212.4")
}

func TestCalculateTotals_NoDiscount(t *testing.T) {
	totals, err := CalculateTotals([]Line{
		line("1", "850.5", "18"),
		line("3", "120", "12"),
	}, Discount{})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}

	decimalEqual(t, "subtotal", totals.Subtotal, "1210.5")
	decimalEqual(t, "discountAmount", totals.DiscountAmount, "0")
	decimalEqual(t, "taxAmount", totals.TaxAmount, "196.29")
	decimalEqual(t, "total", totals.Total, "1406.79")

	if !totals.Total.Equal(totals.Subtotal.Add(totals.TaxAmount)) {
		t.Fatalf("total %s != subtotal %s + tax %s", totals.Total, totals.Subtotal, totals.TaxAmount)
	}
}

func TestCalculateTotals_FixedAmount(t *testing.T) {
	totals, err := CalculateTotals([]Line{line("1", "1000", "18")}, Discount{Amount: dec("100")})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}

	decimalEqual(t, "discountAmount", totals.DiscountAmount, "100")
	decimalEqual(t, "taxAmount", totals.TaxAmount, "162")
	decimalEqual(t, "total", totals.Total, "1062")
}

func TestCalculateTotals_PercentTakesPrecedence(t *testing.T) {
	totals, err := CalculateTotals([]Line{line("1", "1000", "0")}, Discount{Percent: dec("10"), Amount: dec("500")})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}
	decimalEqual(t, "discountAmount", totals.DiscountAmount, "100")
	decimalEqual(t, "total", totals.Total, "900")
}

func TestCalculateTotals_FullDiscount(t *testing.T) {
	totals, err := CalculateTotals([]Line{
		line("2", "100", "18"),
		line("1", "49.99", "12"),
	}, Discount{Percent: dec("100")})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}

	decimalEqual(t, "subtotal", totals.Subtotal, "249.99")
	decimalEqual(t, "discountAmount", totals.DiscountAmount, "249.99")
	decimalEqual(t, "taxAmount", totals.TaxAmount, "0")
	decimalEqual(t, "total", totals.Total, "0")
}

func TestCalculateTotals_FixedAmountCappedAtSubtotal(t *testing.T) {
	totals, err := CalculateTotals([]Line{line("1", "80", "18")}, Discount{Amount: dec("100")})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}
	decimalEqual(t, "discountAmount", totals.DiscountAmount, "80")
	decimalEqual(t, "taxAmount", totals.TaxAmount, "0")
	decimalEqual(t, "total", totals.Total, "0")
}

func TestCalculateTotals_EmptyAndZeroSubtotal(t *testing.T) {
	for name, lines := range map[string][]Line{
		"no items":    nil,
		"zero prices": {line("3", "0", "18"), line("1", "0", "12")},
	} {
		totals, err := CalculateTotals(lines, Discount{Percent: dec("10")})
		if err != nil {
			t.Fatalf("%s: CalculateTotals: %v", name, err)
		}
		for field, v := range map[string]decimal.Decimal{
			"subtotal":       totals.Subtotal,
			"discountAmount": totals.DiscountAmount,
			"taxAmount":      totals.TaxAmount,
			"total":          totals.Total,
		} {
			if !v.IsZero() {
				t.Fatalf("%s: %s = %s, want 0", name, field, v)
			}
		}
	}
}

func TestCalculateTotals_IsIdempotent(t *testing.T) {
	lines := []Line{
		line("1", "22689", "18"),
		line("3", "333.33", "12"),
		line("7", "0.07", "5"),
	}

	first, err := CalculateTotals(lines, Discount{})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}
	second, err := CalculateTotals(lines, Discount{})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}

	if !first.Subtotal.Equal(second.Subtotal) || !first.DiscountAmount.Equal(second.DiscountAmount) ||
		!first.TaxAmount.Equal(second.TaxAmount) || !first.Total.Equal(second.Total) {
		t.Fatalf("totals differ between calls: %+v vs %+v", first, second)
	}
}

func TestCalculateTotals_RoundsOnlyFinalSums(t *testing.T) {
	// Each line's tax is 0.0054; rounded per line it would vanish, summed it is 0.0162.
	totals, err := CalculateTotals([]Line{
		line("1", "0.03", "18"),
		line("1", "0.03", "18"),
		line("1", "0.03", "18"),
	}, Discount{})
	if err != nil {
		t.Fatalf("CalculateTotals: %v", err)
	}
	decimalEqual(t, "taxAmount", totals.TaxAmount, "0.02")
	decimalEqual(t, "total", totals.Total, "0.11")
}

func TestCalculateTotals_RejectsInvalidInput(t *testing.T) {
	cases := map[string]struct {
		lines    []Line
		discount Discount
		field    string
	}{
		"negative quantity": {[]Line{line("-1", "10", "18")}, Discount{}, "quantity"},
		"negative price":    {[]Line{line("1", "-10", "18")}, Discount{}, "unitPrice"},
		"tax over 100":      {[]Line{line("1", "10", "118")}, Discount{}, "taxRate"},
		"percent over 100":  {[]Line{line("1", "10", "18")}, Discount{Percent: dec("150")}, "discountPercent"},
		"negative amount":   {[]Line{line("1", "10", "18")}, Discount{Amount: dec("-5")}, "discountAmount"},
	}

	for name, tc := range cases {
		_, err := CalculateTotals(tc.lines, tc.discount)
		if !errors.Is(err, ErrInvalidInput) {
			t.Fatalf("%s: expected ErrInvalidInput, got %v", name, err)
		}
		var inputErr *InputError
		if !errors.As(err, &inputErr) || inputErr.Field != tc.field {
			t.Fatalf("%s: expected field %s, got %v", name, tc.field, err)
		}
	}
}
