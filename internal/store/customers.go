package store

import (
	"context"
	"fmt"
	"time"
)

type Customer struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Email         string    `json:"email"`
	Phone         string    `json:"phone"`
	Address       string    `json:"address"`
	City          string    `json:"city"`
	State         string    `json:"state"`
	ZipCode       string    `json:"zipCode"`
	Country       string    `json:"country"`
	Notes         string    `json:"notes"`
	Active        bool      `json:"isActive"`
	CreatedBy     string    `json:"createdBy"`
	CreatedAt     time.Time `json:"createdAt"`
	UpdatedAt     time.Time `json:"updatedAt"`
	EstimateCount int       `json:"estimateCount"`
}

const customerColumns = `
	c.id, c.name, c.email, c.phone, c.address, c.city, c.state, c.zip_code, c.country, c.notes,
	c.is_active, COALESCE(c.created_by, ''), c.created_at, c.updated_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCustomer(r rowScanner, extra ...any) (Customer, error) {
	var c Customer
	dest := []any{
		&c.ID, &c.Name, &c.Email, &c.Phone, &c.Address, &c.City, &c.State, &c.ZipCode, &c.Country, &c.Notes,
		&c.Active, &c.CreatedBy, &c.CreatedAt, &c.UpdatedAt,
	}
	err := r.Scan(append(dest, extra...)...)
	return c, err
}

// ListCustomers returns active customers, newest first, with their estimate counts.
func (s *Store) ListCustomers(ctx context.Context) ([]Customer, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+customerColumns+`,
			(SELECT COUNT(*) FROM estimates e WHERE e.customer_id = c.id)
		FROM customers c
		WHERE c.is_active = TRUE
		ORDER BY c.created_at DESC, c.id DESC
	`)
	if err != nil {
		return nil, fmt.Errorf("query customers: %w", err)
	}
	defer rows.Close()

	customers := make([]Customer, 0)
	for rows.Next() {
		var count int
		c, err := scanCustomer(rows, &count)
		if err != nil {
			return nil, fmt.Errorf("scan customer: %w", err)
		}
		c.EstimateCount = count
		customers = append(customers, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate customers: %w", err)
	}

	return customers, nil
}

// GetCustomer returns a customer whether or not it is active.
func (s *Store) GetCustomer(ctx context.Context, id string) (Customer, error) {
	c, err := scanCustomer(s.db.QueryRowContext(ctx, `
		SELECT `+customerColumns+`,
			(SELECT COUNT(*) FROM estimates e WHERE e.customer_id = c.id)
		FROM customers c
		WHERE c.id = ?
	`, id), new(int))
	if err != nil {
		return Customer{}, notFound(err, "customer")
	}
	return c, nil
}

func (s *Store) CreateCustomer(ctx context.Context, c *Customer) error {
	now := s.now()
	c.ID = newID()
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO customers (
			id, name, email, phone, address, city, state, zip_code, country, notes,
			is_active, created_by, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, TRUE, NULLIF(?, ''), ?, ?)
	`, c.ID, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country, c.Notes,
		c.CreatedBy, now, now)
	if err != nil {
		return fmt.Errorf("insert customer: %w", err)
	}
	return nil
}

func (s *Store) UpdateCustomer(ctx context.Context, c *Customer) error {
	c.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE customers
		SET
			name = ?,
			email = ?,
			phone = ?,
			address = ?,
			city = ?,
			state = ?,
			zip_code = ?,
			country = ?,
			notes = ?,
			updated_at = ?
		WHERE id = ?
	`, c.Name, c.Email, c.Phone, c.Address, c.City, c.State, c.ZipCode, c.Country, c.Notes, c.UpdatedAt, c.ID)
	if err != nil {
		return fmt.Errorf("update customer: %w", err)
	}
	return expectOne(res, "customer")
}

// DeactivateCustomer soft-deletes a customer; its estimates are kept.
func (s *Store) DeactivateCustomer(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE customers SET is_active = FALSE, updated_at = ? WHERE id = ?
	`, s.now(), id)
	if err != nil {
		return fmt.Errorf("deactivate customer: %w", err)
	}
	return expectOne(res, "customer")
}
