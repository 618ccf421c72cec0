// Package store persists customers, the product catalog, and estimates in SQLite.
package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

var (
	ErrNotFound = errors.New("not found")
	ErrConflict = errors.New("conflict")

	ErrDuplicateNumber = fmt.Errorf("%w: estimate number already issued", ErrConflict)
	ErrDuplicateSKU    = fmt.Errorf("%w: a product with this SKU already exists", ErrConflict)
	ErrDuplicateSlug   = fmt.Errorf("%w: a category with this slug already exists", ErrConflict)
	ErrDuplicateEmail  = fmt.Errorf("%w: a user with this email already exists", ErrConflict)
	ErrCategoryInUse   = fmt.Errorf("%w: cannot delete category with products", ErrConflict)
)

// querier is satisfied by both *sql.DB and *sql.Tx.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store wraps a *sql.DB opened by internal/db.
type Store struct {
	db  *sql.DB
	now func() time.Time
}

// New returns a Store backed by db.
func New(db *sql.DB) *Store {
	return &Store{db: db, now: func() time.Time { return time.Now().UTC() }}
}

// DB exposes the underlying handle for callers that need their own transactions.
func (s *Store) DB() *sql.DB { return s.db }

func newID() string { return uuid.NewString() }

// expectOne maps a zero-row UPDATE/DELETE to ErrNotFound.
func expectOne(res sql.Result, what string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected for %s: %w", what, err)
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return nil
}

func notFound(err error, what string) error {
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("%s: %w", what, ErrNotFound)
	}
	return fmt.Errorf("query %s: %w", what, err)
}
