package pricing

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decimalEqual(t *testing.T, name string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(dec(want)) {
		t.Fatalf("%s = %s, want %s", name, got, want)
	}
}

func TestCabinetArea(t *testing.T) {
	tests := []struct {
		h, w, d string
		want    string
	}{
		{"2020", "600", "560", "57.68"},
		{"720", "600", "560", "25.21"},
		{"900", "450", "300", "17.44"},
	}

	for _, tt := range tests {
		got := CabinetArea(dec(tt.h), dec(tt.w), dec(tt.d))
		decimalEqual(t, "area "+tt.h+"x"+tt.w+"x"+tt.d, got, tt.want)
	}
}

func TestItemPrice_Cabinet(t *testing.T) {
	price, err := ItemPrice(ItemInput{
		Kind:        KindCabinet,
		Height:      dec("2020"),
		Width:       dec("600"),
		Depth:       dec("560"),
		ShutterRate: dec("850"),
	})
	if err != nil {
		t.Fatalf("ItemPrice: %v", err)
	}
	decimalEqual(t, "cabinet price", price, "49028")
}

func TestItemPrice_CabinetMissingDimension(t *testing.T) {
	_, err := ItemPrice(ItemInput{
		Kind:        KindCabinet,
		Height:      dec("720"),
		Depth:       dec("560"),
		ShutterRate: dec("850"),
	})
	if !errors.Is(err, ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}

	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "width" {
		t.Fatalf("expected width to be reported, got %v", err)
	}
}

func TestItemPrice_CabinetNonPositiveRate(t *testing.T) {
	_, err := ItemPrice(ItemInput{
		Kind:        KindCabinet,
		Height:      dec("720"),
		Width:       dec("600"),
		Depth:       dec("560"),
		ShutterRate: dec("-1"),
	})

	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "shutterRate" {
		t.Fatalf("expected shutterRate to be reported, got %v", err)
	}
}

func TestItemPrice_Shutter(t *testing.T) {
	price, err := ItemPrice(ItemInput{Kind: KindShutter, Area: dec("12.5"), ShutterRate: dec("900")})
	if err != nil {
		t.Fatalf("ItemPrice: %v", err)
	}
	decimalEqual(t, "shutter price", price, "11250")

	if _, err := ItemPrice(ItemInput{Kind: KindShutter, ShutterRate: dec("900")}); err == nil {
		t.Fatalf("expected missing area error")
	}
}

func TestItemPrice_AccessoryAndHardware(t *testing.T) {
	for _, kind := range []ItemKind{KindAccessory, KindHardware} {
		price, err := ItemPrice(ItemInput{Kind: kind, Quantity: dec("4"), UnitPrice: dec("180")})
		if err != nil {
			t.Fatalf("ItemPrice(%s): %v", kind, err)
		}
		decimalEqual(t, string(kind)+" price", price, "720")

		_, err = ItemPrice(ItemInput{Kind: kind, Quantity: dec("4")})
		var inputErr *InputError
		if !errors.As(err, &inputErr) || inputErr.Field != "unitPrice" {
			t.Fatalf("expected unitPrice to be reported for %s, got %v", kind, err)
		}
	}
}

func TestItemPrice_UnknownKind(t *testing.T) {
	_, err := ItemPrice(ItemInput{Kind: "DOOR", Quantity: dec("1"), UnitPrice: dec("1")})
	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "kind" {
		t.Fatalf("expected kind to be reported, got %v", err)
	}
}

func TestResolve_CabinetDefaultsToSingleUnit(t *testing.T) {
	line, err := Resolve(ItemInput{
		Kind:        KindCabinet,
		Height:      dec("720"),
		Width:       dec("600"),
		Depth:       dec("560"),
		ShutterRate: dec("900"),
		TaxRate:     dec("18"),
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	decimalEqual(t, "quantity", line.Quantity, "1")
	decimalEqual(t, "unitPrice", line.UnitPrice, "22689")
	decimalEqual(t, "taxRate", line.TaxRate, "18")
}

func TestResolve_ShutterCountMultipliesUnits(t *testing.T) {
	line, err := Resolve(ItemInput{Kind: KindShutter, Area: dec("10"), ShutterRate: dec("850"), Quantity: dec("3"), TaxRate: dec("18")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	decimalEqual(t, "quantity", line.Quantity, "3")
	decimalEqual(t, "unitPrice", line.UnitPrice, "8500")
}

func TestResolve_AccessoryKeepsCatalogPrice(t *testing.T) {
	line, err := Resolve(ItemInput{Kind: KindAccessory, Quantity: dec("2"), UnitPrice: dec("2500"), TaxRate: dec("18")})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	decimalEqual(t, "quantity", line.Quantity, "2")
	decimalEqual(t, "unitPrice", line.UnitPrice, "2500")
}

func TestResolve_RejectsTaxRateOutOfRange(t *testing.T) {
	_, err := Resolve(ItemInput{Kind: KindHardware, Quantity: dec("1"), UnitPrice: dec("150"), TaxRate: dec("101")})
	var inputErr *InputError
	if !errors.As(err, &inputErr) || inputErr.Field != "taxRate" {
		t.Fatalf("expected taxRate to be reported, got %v", err)
	}
}

func TestCalculateLineItem(t *testing.T) {
	amounts := CalculateLineItem(dec("2"), dec("100"), dec("18"))
	decimalEqual(t, "subtotal", amounts.Subtotal, "200")
	decimalEqual(t, "taxAmount", amounts.TaxAmount, "36")
	decimalEqual(t, "lineTotal", amounts.LineTotal, "236")

	amounts = CalculateLineItem(dec("3"), dec("19.99"), dec("18"))
	decimalEqual(t, "subtotal", amounts.Subtotal, "59.97")
	decimalEqual(t, "taxAmount", amounts.TaxAmount, "10.79")
	decimalEqual(t, "lineTotal", amounts.LineTotal, "70.76")
}

func TestCalculateLineItem_TotalRoundsFromUnroundedTax(t *testing.T) {
	// tax 0.0045 rounds to 0.00 on its own, but still carries the total over 1.005.
	amounts := CalculateLineItem(dec("1"), dec("1.0005"), dec("0.45"))
	decimalEqual(t, "taxAmount", amounts.TaxAmount, "0")
	decimalEqual(t, "lineTotal", amounts.LineTotal, "1.01")
}

func TestKindForCategory(t *testing.T) {
	cases := map[string]ItemKind{
		"cabinets":    KindCabinet,
		"shutters":    KindShutter,
		"accessories": KindAccessory,
		"hardware":    KindHardware,
		"misc":        KindHardware,
	}
	for slug, want := range cases {
		if got := KindForCategory(slug); got != want {
			t.Fatalf("KindForCategory(%q) = %s, want %s", slug, got, want)
		}
	}
}

func TestMargin(t *testing.T) {
	decimalEqual(t, "margin", Margin(dec("1000"), dec("750")), "25")
	decimalEqual(t, "no cost", Margin(dec("1000"), decimal.Zero), "0")
	decimalEqual(t, "no price", Margin(decimal.Zero, dec("10")), "0")
}
