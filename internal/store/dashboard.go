package store

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
)

type Stats struct {
	Customers     int
	Products      int
	Estimates     int
	AcceptedTotal decimal.Decimal
	Recent        []EstimateSummary
}

const recentEstimates = 5

// Stats collects the dashboard counters.
func (s *Store) Stats(ctx context.Context) (Stats, error) {
	var st Stats
	err := s.db.QueryRowContext(ctx, `
		SELECT
			(SELECT COUNT(*) FROM customers WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM products WHERE is_active = TRUE),
			(SELECT COUNT(*) FROM estimates)
	`).Scan(&st.Customers, &st.Products, &st.Estimates)
	if err != nil {
		return Stats{}, fmt.Errorf("query dashboard counts: %w", err)
	}

	// Totals are stored as text; summing in SQL would go through floating point.
	rows, err := s.db.QueryContext(ctx, `SELECT total FROM estimates WHERE status = ?`, string(StatusAccepted))
	if err != nil {
		return Stats{}, fmt.Errorf("query accepted totals: %w", err)
	}
	defer rows.Close()

	st.AcceptedTotal = decimal.Zero
	for rows.Next() {
		var total decimal.Decimal
		if err := rows.Scan(&total); err != nil {
			return Stats{}, fmt.Errorf("scan accepted total: %w", err)
		}
		st.AcceptedTotal = st.AcceptedTotal.Add(total)
	}
	if err := rows.Err(); err != nil {
		return Stats{}, fmt.Errorf("iterate accepted totals: %w", err)
	}

	st.Recent, err = s.ListEstimates(ctx, EstimateFilter{Limit: recentEstimates})
	if err != nil {
		return Stats{}, err
	}

	return st, nil
}
