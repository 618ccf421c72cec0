package pricing

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var estimateNumberPattern = regexp.MustCompile(`^EST-(\d{4})-(\d{4,})$`)

// EstimateNumberPrefix returns the prefix shared by every estimate number issued in year.
func EstimateNumberPrefix(year int) string {
	return fmt.Sprintf("EST-%04d-", year)
}

// FormatEstimateNumber renders EST-YYYY-NNNN.
func FormatEstimateNumber(year, seq int) string {
	return fmt.Sprintf("%s%04d", EstimateNumberPrefix(year), seq)
}

// NextEstimateNumber returns the number that follows prev in the year of now.
// The sequence restarts at 0001 when prev is empty, malformed, or from another year.
// It does not serialize concurrent callers; uniqueness is enforced by storage.
func NextEstimateNumber(prev string, now time.Time) string {
	year := now.Year()

	m := estimateNumberPattern.FindStringSubmatch(strings.TrimSpace(prev))
	if m == nil || m[1] != fmt.Sprintf("%04d", year) {
		return FormatEstimateNumber(year, 1)
	}

	seq, err := strconv.Atoi(m[2])
	if err != nil {
		return FormatEstimateNumber(year, 1)
	}
	return FormatEstimateNumber(year, seq+1)
}
