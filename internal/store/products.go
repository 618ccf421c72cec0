package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/db"
)

type Product struct {
	ID            string              `json:"id"`
	SKU           string              `json:"sku"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	CategoryID    string              `json:"categoryId"`
	CategoryName  string              `json:"categoryName"`
	CategorySlug  string              `json:"categorySlug"`
	Unit          string              `json:"unit"`
	BasePrice     decimal.Decimal     `json:"basePrice"`
	CostPrice     decimal.NullDecimal `json:"costPrice"`
	TaxRate       decimal.Decimal     `json:"taxRate"`
	StockQuantity *int                `json:"stockQuantity"`
	Active        bool                `json:"isActive"`
	CreatedAt     time.Time           `json:"createdAt"`
	UpdatedAt     time.Time           `json:"updatedAt"`
}

const productSelect = `
	SELECT
		p.id, p.sku, p.name, p.description, p.category_id, c.name, c.slug, p.unit,
		p.base_price, p.cost_price, p.tax_rate, p.stock_quantity, p.is_active,
		p.created_at, p.updated_at
	FROM products p
	JOIN categories c ON c.id = p.category_id`

func scanProduct(r rowScanner) (Product, error) {
	var (
		p     Product
		stock sql.NullInt64
	)
	err := r.Scan(
		&p.ID, &p.SKU, &p.Name, &p.Description, &p.CategoryID, &p.CategoryName, &p.CategorySlug, &p.Unit,
		&p.BasePrice, &p.CostPrice, &p.TaxRate, &stock, &p.Active,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if stock.Valid {
		n := int(stock.Int64)
		p.StockQuantity = &n
	}
	return p, err
}

// ListProducts returns active products ordered by category and name.
// A non-empty categorySlug restricts the list to that category.
func (s *Store) ListProducts(ctx context.Context, categorySlug string) ([]Product, error) {
	rows, err := s.db.QueryContext(ctx, productSelect+`
		WHERE p.is_active = TRUE AND (? = '' OR c.slug = ?)
		ORDER BY c.display_order ASC, p.name ASC
	`, categorySlug, categorySlug)
	if err != nil {
		return nil, fmt.Errorf("query products: %w", err)
	}
	defer rows.Close()

	products := make([]Product, 0)
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate products: %w", err)
	}

	return products, nil
}

func (s *Store) GetProduct(ctx context.Context, id string) (Product, error) {
	return getProduct(ctx, s.db, id)
}

func getProduct(ctx context.Context, q querier, id string) (Product, error) {
	p, err := scanProduct(q.QueryRowContext(ctx, productSelect+` WHERE p.id = ?`, id))
	if err != nil {
		return Product{}, notFound(err, "product")
	}
	return p, nil
}

func stockArg(n *int) any {
	if n == nil {
		return nil
	}
	return *n
}

func (s *Store) CreateProduct(ctx context.Context, p *Product) error {
	now := s.now()
	p.ID = newID()
	p.Active = true
	p.CreatedAt = now
	p.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, description, category_id, unit,
			base_price, cost_price, tax_rate, stock_quantity, is_active, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, p.ID, p.SKU, p.Name, p.Description, p.CategoryID, p.Unit,
		p.BasePrice, p.CostPrice, p.TaxRate, stockArg(p.StockQuantity), now, now)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("insert product: %w", err)
	}
	return nil
}

func (s *Store) UpdateProduct(ctx context.Context, p *Product) error {
	p.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE products
		SET
			sku = ?,
			name = ?,
			description = ?,
			category_id = ?,
			unit = ?,
			base_price = ?,
			cost_price = ?,
			tax_rate = ?,
			stock_quantity = ?,
			updated_at = ?
		WHERE id = ?
	`, p.SKU, p.Name, p.Description, p.CategoryID, p.Unit,
		p.BasePrice, p.CostPrice, p.TaxRate, stockArg(p.StockQuantity), p.UpdatedAt, p.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSKU
		}
		return fmt.Errorf("update product: %w", err)
	}
	return expectOne(res, "product")
}

// DeactivateProduct hides a product from the catalog. Estimate items keep their copied prices.
func (s *Store) DeactivateProduct(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE products SET is_active = FALSE, updated_at = ? WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return fmt.Errorf("deactivate product: %w", err)
	}
	return expectOne(res, "product")
}
