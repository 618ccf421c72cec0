package pricing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates how a line item is priced.
type ItemKind string

const (
	KindCabinet   ItemKind = "CABINET"
	KindShutter   ItemKind = "SHUTTER"
	KindAccessory ItemKind = "ACCESSORY"
	KindHardware  ItemKind = "HARDWARE"
)

// Kinds lists every item kind in display order.
var Kinds = []ItemKind{KindCabinet, KindShutter, KindAccessory, KindHardware}

// ParseItemKind returns the kind named by s.
func ParseItemKind(s string) (ItemKind, bool) {
	for _, k := range Kinds {
		if string(k) == s {
			return k, true
		}
	}
	return "", false
}

// KindForCategory maps a catalog category slug to the kind of line item its products produce.
func KindForCategory(slug string) ItemKind {
	switch slug {
	case "cabinets":
		return KindCabinet
	case "shutters":
		return KindShutter
	case "accessories":
		return KindAccessory
	default:
		return KindHardware
	}
}

// ErrInvalidInput is wrapped by every InputError.
var ErrInvalidInput = errors.New("invalid pricing input")

// InputError reports the first field that prevented a calculation.
type InputError struct {
	Field  string
	Reason string
}

func (e *InputError) Error() string {
	return fmt.Sprintf("%s %s", e.Field, e.Reason)
}

func (e *InputError) Unwrap() error { return ErrInvalidInput }

func missing(field string) error {
	return &InputError{Field: field, Reason: "is required and must be greater than 0"}
}

var (
	hundred = decimal.NewFromInt(100)
	// 25.4² mm² per square inch times 144 square inches per square foot.
	mm2PerSqft = decimal.RequireFromString("92903.04")
)

// Round2 rounds to currency minor-unit precision.
func Round2(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// ItemInput carries the kind-specific pricing inputs of one line item.
// Dimensions are millimetres, Area is square feet, rates are currency per square foot.
type ItemInput struct {
	Kind        ItemKind
	Height      decimal.Decimal
	Width       decimal.Decimal
	Depth       decimal.Decimal
	Area        decimal.Decimal
	ShutterRate decimal.Decimal
	Quantity    decimal.Decimal
	UnitPrice   decimal.Decimal
	TaxRate     decimal.Decimal
}

// CabinetArea returns the surface area of all six faces of a box, in square feet rounded to 2 decimals.
func CabinetArea(height, width, depth decimal.Decimal) decimal.Decimal {
	faces := height.Mul(width).Add(width.Mul(depth)).Add(height.Mul(depth))
	return Round2(faces.Mul(decimal.NewFromInt(2)).Div(mm2PerSqft))
}

// ItemPrice computes the pre-tax price of a line from its kind-specific inputs.
func ItemPrice(in ItemInput) (decimal.Decimal, error) {
	switch in.Kind {
	case KindCabinet:
		for _, f := range []struct {
			name  string
			value decimal.Decimal
		}{
			{"height", in.Height},
			{"width", in.Width},
			{"depth", in.Depth},
			{"shutterRate", in.ShutterRate},
		} {
			if !f.value.IsPositive() {
				return decimal.Zero, missing(f.name)
			}
		}
		return CabinetArea(in.Height, in.Width, in.Depth).Mul(in.ShutterRate), nil

	case KindShutter:
		if !in.Area.IsPositive() {
			return decimal.Zero, missing("area")
		}
		if !in.ShutterRate.IsPositive() {
			return decimal.Zero, missing("shutterRate")
		}
		return in.Area.Mul(in.ShutterRate), nil

	case KindAccessory, KindHardware:
		if !in.Quantity.IsPositive() {
			return decimal.Zero, missing("quantity")
		}
		if !in.UnitPrice.IsPositive() {
			return decimal.Zero, missing("unitPrice")
		}
		return in.Quantity.Mul(in.UnitPrice), nil

	default:
		return decimal.Zero, &InputError{Field: "kind", Reason: fmt.Sprintf("%q is not a known item kind", in.Kind)}
	}
}

// Resolve turns kind-specific inputs into the quantity/unit price/tax record consumed by CalculateTotals.
// Cabinet and shutter lines use Quantity as a count of identical units, defaulting to 1.
func Resolve(in ItemInput) (Line, error) {
	if err := checkTaxRate(in.TaxRate); err != nil {
		return Line{}, err
	}

	price, err := ItemPrice(in)
	if err != nil {
		return Line{}, err
	}

	switch in.Kind {
	case KindCabinet, KindShutter:
		if in.Quantity.IsNegative() {
			return Line{}, &InputError{Field: "quantity", Reason: "must not be negative"}
		}
		count := in.Quantity
		if count.IsZero() {
			count = decimal.NewFromInt(1)
		}
		return Line{Quantity: count, UnitPrice: price, TaxRate: in.TaxRate}, nil
	default:
		return Line{Quantity: in.Quantity, UnitPrice: in.UnitPrice, TaxRate: in.TaxRate}, nil
	}
}

// LineAmounts is the standalone, line-level rounded breakdown of a single item.
type LineAmounts struct {
	Quantity  decimal.Decimal
	UnitPrice decimal.Decimal
	TaxRate   decimal.Decimal
	Subtotal  decimal.Decimal
	TaxAmount decimal.Decimal
	LineTotal decimal.Decimal
}

// CalculateLineItem prices one line on its own. Tax and total are each rounded from unrounded values.
func CalculateLineItem(quantity, unitPrice, taxRate decimal.Decimal) LineAmounts {
	subtotal := quantity.Mul(unitPrice)
	tax := subtotal.Mul(taxRate).Div(hundred)
	return LineAmounts{
		Quantity:  quantity,
		UnitPrice: unitPrice,
		TaxRate:   taxRate,
		Subtotal:  subtotal,
		TaxAmount: Round2(tax),
		LineTotal: Round2(subtotal.Add(tax)),
	}
}

// Margin returns the profit margin percentage of a selling price over its cost, 0 when either is unset.
func Margin(selling, cost decimal.Decimal) decimal.Decimal {
	if selling.IsZero() || cost.IsZero() {
		return decimal.Zero
	}
	return Round2(selling.Sub(cost).Div(selling).Mul(hundred))
}

func checkTaxRate(rate decimal.Decimal) error {
	if rate.IsNegative() || rate.GreaterThan(hundred) {
		return &InputError{Field: "taxRate", Reason: "must be between 0 and 100"}
	}
	return nil
}
