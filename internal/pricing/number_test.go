package pricing

import (
	"testing"
	"time"
)

func TestNextEstimateNumber(t *testing.T) {
	now := time.Date(2024, time.June, 3, 10, 0, 0, 0, time.UTC)

	tests := []struct {
		name string
		prev string
		want string
	}{
		{"no previous number", "", "EST-2024-0001"},
		{"same year increments", "EST-2024-0037", "EST-2024-0038"},
		{"year rollover resets", "EST-2023-0037", "EST-2024-0001"},
		{"malformed resets", "INV-2024-0003", "EST-2024-0001"},
		{"missing sequence resets", "EST-2024-", "EST-2024-0001"},
		{"surrounding whitespace", " EST-2024-0009\n", "EST-2024-0010"},
		{"grows past four digits", "EST-2024-9999", "EST-2024-10000"},
		{"continues past four digits", "EST-2024-10000", "EST-2024-10001"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NextEstimateNumber(tt.prev, now); got != tt.want {
				t.Errorf("NextEstimateNumber(%q) = %q, want %q", tt.prev, got, tt.want)
			}
		})
	}
}

func TestNextEstimateNumber_UsesCurrentYear(t *testing.T) {
	now := time.Now()
	want := FormatEstimateNumber(now.Year(), 1)
	if got := NextEstimateNumber("", now); got != want {
		t.Fatalf("NextEstimateNumber(\"\") = %q, want %q", got, want)
	}
}
