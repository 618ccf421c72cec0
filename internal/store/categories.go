package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kinternationals/estimator/internal/db"
)

type Category struct {
	ID           string    `json:"id"`
	Name         string    `json:"name"`
	Slug         string    `json:"slug"`
	Description  string    `json:"description"`
	ParentID     string    `json:"parentId"`
	ParentName   string    `json:"parentName"`
	DisplayOrder int       `json:"displayOrder"`
	Active       bool      `json:"isActive"`
	CreatedAt    time.Time `json:"createdAt"`
	UpdatedAt    time.Time `json:"updatedAt"`
	ProductCount int       `json:"productCount"`
	ChildCount   int       `json:"childCount"`
}

const categorySelect = `
	SELECT
		c.id, c.name, c.slug, c.description, COALESCE(c.parent_id, ''), COALESCE(p.name, ''),
		c.display_order, c.is_active, c.created_at, c.updated_at,
		(SELECT COUNT(*) FROM products pr WHERE pr.category_id = c.id AND pr.is_active = TRUE),
		(SELECT COUNT(*) FROM categories ch WHERE ch.parent_id = c.id AND ch.is_active = TRUE)
	FROM categories c
	LEFT JOIN categories p ON p.id = c.parent_id`

func scanCategory(r rowScanner) (Category, error) {
	var c Category
	err := r.Scan(
		&c.ID, &c.Name, &c.Slug, &c.Description, &c.ParentID, &c.ParentName,
		&c.DisplayOrder, &c.Active, &c.CreatedAt, &c.UpdatedAt,
		&c.ProductCount, &c.ChildCount,
	)
	return c, err
}

// ListCategories returns active categories by display order, then name.
func (s *Store) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.db.QueryContext(ctx, categorySelect+`
		WHERE c.is_active = TRUE
		ORDER BY c.display_order ASC, c.name ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("query categories: %w", err)
	}
	defer rows.Close()

	categories := make([]Category, 0)
	for rows.Next() {
		c, err := scanCategory(rows)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		categories = append(categories, c)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate categories: %w", err)
	}

	return categories, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.id = ?`, id))
	if err != nil {
		return Category{}, notFound(err, "category")
	}
	return c, nil
}

func (s *Store) GetCategoryBySlug(ctx context.Context, slug string) (Category, error) {
	c, err := scanCategory(s.db.QueryRowContext(ctx, categorySelect+` WHERE c.slug = ?`, slug))
	if err != nil {
		return Category{}, notFound(err, "category")
	}
	return c, nil
}

func (s *Store) CreateCategory(ctx context.Context, c *Category) error {
	now := s.now()
	c.ID = newID()
	c.Active = true
	c.CreatedAt = now
	c.UpdatedAt = now

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, parent_id, display_order, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, NULLIF(?, ''), ?, TRUE, ?, ?)
	`, c.ID, c.Name, c.Slug, c.Description, c.ParentID, c.DisplayOrder, now, now)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("insert category: %w", err)
	}
	return nil
}

func (s *Store) UpdateCategory(ctx context.Context, c *Category) error {
	c.UpdatedAt = s.now()

	res, err := s.db.ExecContext(ctx, `
		UPDATE categories
		SET
			name = ?,
			slug = ?,
			description = ?,
			parent_id = NULLIF(?, ''),
			display_order = ?,
			updated_at = ?
		WHERE id = ?
	`, c.Name, c.Slug, c.Description, c.ParentID, c.DisplayOrder, c.UpdatedAt, c.ID)
	if err != nil {
		if db.IsUniqueViolation(err) {
			return ErrDuplicateSlug
		}
		return fmt.Errorf("update category: %w", err)
	}
	return expectOne(res, "category")
}

// DeactivateCategory soft-deletes a category unless active products still reference it.
func (s *Store) DeactivateCategory(ctx context.Context, id string) error {
	return db.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		var products int
		if err := tx.QueryRowContext(ctx, `
			SELECT COUNT(*) FROM products WHERE category_id = ? AND is_active = TRUE
		`, id).Scan(&products); err != nil {
			return fmt.Errorf("count category products: %w", err)
		}
		if products > 0 {
			return ErrCategoryInUse
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE categories SET is_active = FALSE, updated_at = ? WHERE id = ?
		`, s.now(), id)
		if err != nil {
			return fmt.Errorf("deactivate category: %w", err)
		}
		return expectOne(res, "category")
	})
}
