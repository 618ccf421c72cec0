package store

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/db"
	"github.com/kinternationals/estimator/internal/pricing"
)

type Status string

const (
	StatusDraft    Status = "DRAFT"
	StatusSent     Status = "SENT"
	StatusAccepted Status = "ACCEPTED"
	StatusRejected Status = "REJECTED"
	StatusExpired  Status = "EXPIRED"
)

// Statuses lists every status in display order. Any status may follow any other.
var Statuses = []Status{StatusDraft, StatusSent, StatusAccepted, StatusRejected, StatusExpired}

func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range Statuses {
		if st == v {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown estimate status %q", s)
}

type Estimate struct {
	ID                  string          `json:"id"`
	Number              string          `json:"number"`
	CustomerID          string          `json:"customerId"`
	CustomerName        string          `json:"customerName"`
	UserID              string          `json:"userId"`
	Title               string          `json:"title"`
	Description         string          `json:"description"`
	ValidUntil          *time.Time      `json:"validUntil"`
	Status              Status          `json:"status"`
	ShutterMaterialID   string          `json:"shutterMaterialId"`
	ShutterMaterialName string          `json:"shutterMaterialName"`
	Subtotal            decimal.Decimal `json:"subtotal"`
	DiscountPercent     decimal.Decimal `json:"discountPercent"`
	DiscountAmount      decimal.Decimal `json:"discountAmount"`
	TaxAmount           decimal.Decimal `json:"taxAmount"`
	Total               decimal.Decimal `json:"total"`
	Notes               string          `json:"notes"`
	Terms               string          `json:"termsAndConditions"`
	CreatedAt           time.Time       `json:"createdAt"`
	UpdatedAt           time.Time       `json:"updatedAt"`
	Items               []EstimateItem  `json:"items"`
}

// EstimateItem is a priced line. Prices are copied from the catalog at the time of pricing.
type EstimateItem struct {
	ID           string              `json:"id"`
	ProductID    string              `json:"productId"`
	Kind         pricing.ItemKind    `json:"itemType"`
	Description  string              `json:"description"`
	Quantity     decimal.Decimal     `json:"quantity"`
	Unit         string              `json:"unit"`
	UnitPrice    decimal.Decimal     `json:"unitPrice"`
	TaxRate      decimal.Decimal     `json:"taxRate"`
	TaxAmount    decimal.Decimal     `json:"taxAmount"`
	LineTotal    decimal.Decimal     `json:"lineTotal"`
	Height       decimal.NullDecimal `json:"height"`
	Width        decimal.NullDecimal `json:"width"`
	Depth        decimal.NullDecimal `json:"depth"`
	Area         decimal.NullDecimal `json:"area"`
	ShutterRate  decimal.NullDecimal `json:"shutterRate"`
	DisplayOrder int                 `json:"displayOrder"`
}

// EstimateSummary is a list row.
type EstimateSummary struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	Title          string          `json:"title"`
	CustomerID     string          `json:"customerId"`
	CustomerName   string          `json:"customerName"`
	Status         Status          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	DiscountAmount decimal.Decimal `json:"discountAmount"`
	TaxAmount      decimal.Decimal `json:"taxAmount"`
	Total          decimal.Decimal `json:"total"`
	ItemCount      int             `json:"itemCount"`
	ValidUntil     *time.Time      `json:"validUntil"`
	CreatedAt      time.Time       `json:"createdAt"`
}

type EstimateFilter struct {
	// Search matches number, title or customer name, case-insensitively.
	Search     string
	Status     Status
	CustomerID string
	Limit      int
}

func nullTime(t sql.NullTime) *time.Time {
	if !t.Valid {
		return nil
	}
	v := t.Time
	return &v
}

func timeArg(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

// likeEscaper makes user input match literally inside a LIKE pattern using ESCAPE '\'.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// ListEstimates returns estimates newest first.
func (s *Store) ListEstimates(ctx context.Context, f EstimateFilter) ([]EstimateSummary, error) {
	var (
		where []string
		args  []any
	)
	if q := strings.TrimSpace(f.Search); q != "" {
		like := "%" + likeEscaper.Replace(strings.ToLower(q)) + "%"
		where = append(where, `(LOWER(e.number) LIKE ? ESCAPE '\' OR LOWER(e.title) LIKE ? ESCAPE '\' OR LOWER(c.name) LIKE ? ESCAPE '\')`)
		args = append(args, like, like, like)
	}
	if f.Status != "" {
		where = append(where, `e.status = ?`)
		args = append(args, string(f.Status))
	}
	if f.CustomerID != "" {
		where = append(where, `e.customer_id = ?`)
		args = append(args, f.CustomerID)
	}

	query := `
		SELECT
			e.id, e.number, e.title, e.customer_id, c.name, e.status,
			e.subtotal, e.discount_amount, e.tax_amount, e.total,
			(SELECT COUNT(*) FROM estimate_items i WHERE i.estimate_id = e.id),
			e.valid_until, e.created_at
		FROM estimates e
		JOIN customers c ON c.id = e.customer_id`
	if len(where) > 0 {
		query += "\nWHERE " + strings.Join(where, " AND ")
	}
	query += "\nORDER BY e.created_at DESC, e.number DESC"
	if f.Limit > 0 {
		query += "\nLIMIT ?"
		args = append(args, f.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query estimates: %w", err)
	}
	defer rows.Close()

	estimates := make([]EstimateSummary, 0)
	for rows.Next() {
		var (
			e          EstimateSummary
			validUntil sql.NullTime
		)
		if err := rows.Scan(
			&e.ID, &e.Number, &e.Title, &e.CustomerID, &e.CustomerName, &e.Status,
			&e.Subtotal, &e.DiscountAmount, &e.TaxAmount, &e.Total,
			&e.ItemCount, &validUntil, &e.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan estimate: %w", err)
		}
		e.ValidUntil = nullTime(validUntil)
		estimates = append(estimates, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimates: %w", err)
	}

	return estimates, nil
}

// RecentEstimatesForCustomer returns the customer's latest estimates.
func (s *Store) RecentEstimatesForCustomer(ctx context.Context, customerID string, limit int) ([]EstimateSummary, error) {
	return s.ListEstimates(ctx, EstimateFilter{CustomerID: customerID, Limit: limit})
}

// GetEstimate loads an estimate with its items in display order.
func (s *Store) GetEstimate(ctx context.Context, id string) (Estimate, error) {
	var (
		e          Estimate
		validUntil sql.NullTime
	)
	err := s.db.QueryRowContext(ctx, `
		SELECT
			e.id, e.number, e.customer_id, c.name, COALESCE(e.user_id, ''), e.title, e.description,
			e.valid_until, e.status, COALESCE(e.shutter_material_id, ''), COALESCE(p.name, ''),
			e.subtotal, e.discount_percent, e.discount_amount, e.tax_amount, e.total,
			e.notes, e.terms_and_conditions, e.created_at, e.updated_at
		FROM estimates e
		JOIN customers c ON c.id = e.customer_id
		LEFT JOIN products p ON p.id = e.shutter_material_id
		WHERE e.id = ?
	`, id).Scan(
		&e.ID, &e.Number, &e.CustomerID, &e.CustomerName, &e.UserID, &e.Title, &e.Description,
		&validUntil, &e.Status, &e.ShutterMaterialID, &e.ShutterMaterialName,
		&e.Subtotal, &e.DiscountPercent, &e.DiscountAmount, &e.TaxAmount, &e.Total,
		&e.Notes, &e.Terms, &e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return Estimate{}, notFound(err, "estimate")
	}
	e.ValidUntil = nullTime(validUntil)

	items, err := s.estimateItems(ctx, id)
	if err != nil {
		return Estimate{}, err
	}
	e.Items = items

	return e, nil
}

func (s *Store) estimateItems(ctx context.Context, estimateID string) ([]EstimateItem, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT
			id, COALESCE(product_id, ''), item_type, description, quantity, unit,
			unit_price, tax_rate, tax_amount, line_total, height, width, depth, area, shutter_rate,
			display_order
		FROM estimate_items
		WHERE estimate_id = ?
		ORDER BY display_order ASC
	`, estimateID)
	if err != nil {
		return nil, fmt.Errorf("query estimate items: %w", err)
	}
	defer rows.Close()

	items := make([]EstimateItem, 0)
	for rows.Next() {
		var it EstimateItem
		if err := rows.Scan(
			&it.ID, &it.ProductID, &it.Kind, &it.Description, &it.Quantity, &it.Unit,
			&it.UnitPrice, &it.TaxRate, &it.TaxAmount, &it.LineTotal,
			&it.Height, &it.Width, &it.Depth, &it.Area, &it.ShutterRate, &it.DisplayOrder,
		); err != nil {
			return nil, fmt.Errorf("scan estimate item: %w", err)
		}
		items = append(items, it)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate estimate items: %w", err)
	}

	return items, nil
}

// LastEstimateNumber returns the highest number starting with prefix, or "" when none exists.
// Longer numbers sort first so that sequences past 9999 keep increasing.
func (s *Store) LastEstimateNumber(ctx context.Context, prefix string) (string, error) {
	var number string
	err := s.db.QueryRowContext(ctx, `
		SELECT number
		FROM estimates
		WHERE substr(number, 1, ?) = ?
		ORDER BY length(number) DESC, number DESC
		LIMIT 1
	`, len(prefix), prefix).Scan(&number)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("query last estimate number: %w", err)
	}
	return number, nil
}

// CreateEstimate writes the header and items in one transaction.
// A clash on the estimate number is reported as ErrDuplicateNumber.
func (s *Store) CreateEstimate(ctx context.Context, e *Estimate) error {
	now := s.now()
	e.ID = newID()
	e.CreatedAt = now
	e.UpdatedAt = now
	if e.Status == "" {
		e.Status = StatusDraft
	}

	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO estimates (
				id, number, customer_id, user_id, title, description, valid_until, status,
				shutter_material_id, subtotal, discount_percent, discount_amount, tax_amount, total,
				notes, terms_and_conditions, created_at, updated_at
			) VALUES (?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, e.ID, e.Number, e.CustomerID, e.UserID, e.Title, e.Description, timeArg(e.ValidUntil), string(e.Status),
			e.ShutterMaterialID, e.Subtotal, e.DiscountPercent, e.DiscountAmount, e.TaxAmount, e.Total,
			e.Notes, e.Terms, now, now)
		if err != nil {
			if db.IsUniqueViolation(err) {
				return ErrDuplicateNumber
			}
			return fmt.Errorf("insert estimate: %w", err)
		}

		return insertItems(ctx, tx, e.ID, e.Items)
	})
}

// ReplaceEstimate updates the header and replaces every item. Number and status are left alone.
func (s *Store) ReplaceEstimate(ctx context.Context, e *Estimate) error {
	e.UpdatedAt = s.now()

	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx, `
			UPDATE estimates
			SET
				customer_id = ?,
				title = ?,
				description = ?,
				valid_until = ?,
				shutter_material_id = NULLIF(?, ''),
				subtotal = ?,
				discount_percent = ?,
				discount_amount = ?,
				tax_amount = ?,
				total = ?,
				notes = ?,
				terms_and_conditions = ?,
				updated_at = ?
			WHERE id = ?
		`, e.CustomerID, e.Title, e.Description, timeArg(e.ValidUntil), e.ShutterMaterialID,
			e.Subtotal, e.DiscountPercent, e.DiscountAmount, e.TaxAmount, e.Total,
			e.Notes, e.Terms, e.UpdatedAt, e.ID)
		if err != nil {
			return fmt.Errorf("update estimate: %w", err)
		}
		if err := expectOne(res, "estimate"); err != nil {
			return err
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM estimate_items WHERE estimate_id = ?`, e.ID); err != nil {
			return fmt.Errorf("delete estimate items: %w", err)
		}

		return insertItems(ctx, tx, e.ID, e.Items)
	})
}

func insertItems(ctx context.Context, tx *sql.Tx, estimateID string, items []EstimateItem) error {
	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO estimate_items (
			id, estimate_id, product_id, item_type, description, quantity, unit,
			unit_price, tax_rate, tax_amount, line_total, height, width, depth, area, shutter_rate,
			display_order
		) VALUES (?, ?, NULLIF(?, ''), ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("prepare estimate item insert: %w", err)
	}
	defer stmt.Close()

	for i := range items {
		it := &items[i]
		it.ID = newID()
		it.DisplayOrder = i
		if it.Unit == "" {
			it.Unit = "piece"
		}
		if _, err := stmt.ExecContext(ctx,
			it.ID, estimateID, it.ProductID, string(it.Kind), it.Description, it.Quantity, it.Unit,
			it.UnitPrice, it.TaxRate, it.TaxAmount, it.LineTotal,
			it.Height, it.Width, it.Depth, it.Area, it.ShutterRate, it.DisplayOrder,
		); err != nil {
			return fmt.Errorf("insert estimate item %d: %w", i+1, err)
		}
	}
	return nil
}

func (s *Store) UpdateEstimateStatus(ctx context.Context, id string, status Status) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE estimates SET status = ?, updated_at = ? WHERE id = ?
	`, string(status), s.now(), id)
	if err != nil {
		return fmt.Errorf("update estimate status: %w", err)
	}
	return expectOne(res, "estimate")
}

// DeleteEstimate removes the estimate; its items go with it through the cascade.
func (s *Store) DeleteEstimate(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM estimates WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete estimate: %w", err)
	}
	return expectOne(res, "estimate")
}
