package pricing

import (
	"strings"

	"github.com/shopspring/decimal"
)

// FormatINR renders an amount in Indian Rupee notation: ₹ symbol, two decimals, and
// Indian digit grouping (the last three digits, then pairs), e.g. ₹1,23,45,678.90.
func FormatINR(amount decimal.Decimal) string {
	raw := amount.Abs().StringFixed(2)
	negative := amount.IsNegative() && raw != "0.00"

	intPart, decPart, _ := strings.Cut(raw, ".")
	result := "₹" + indianGrouping(intPart) + "." + decPart
	if negative {
		result = "-" + result
	}
	return result
}

func indianGrouping(s string) string {
	n := len(s)
	if n <= 3 {
		return s
	}

	result := s[n-3:]
	rest := s[:n-3]
	for len(rest) > 2 {
		result = rest[len(rest)-2:] + "," + result
		rest = rest[:len(rest)-2]
	}
	if rest != "" {
		result = rest + "," + result
	}
	return result
}
