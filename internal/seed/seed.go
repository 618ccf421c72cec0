package seed

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/kinternationals/estimator/internal/db"
)

const (
	adminName      = "Admin User"
	defaultTaxRate = "18"
)

// Config contains the values required by startup seed.
type Config struct {
	AdminEmail    string
	AdminPassword string
}

// Stats contains seed operation counters.
type Stats struct {
	Inserts int
	Updates int
}

type category struct {
	name        string
	slug        string
	description string
	order       int
}

type product struct {
	category    string
	sku         string
	name        string
	description string
	unit        string
	price       string
}

var categories = []category{
	{"Cabinets", "cabinets", "Kitchen cabinets (dimensions calculated)", 1},
	{"Shutters", "shutters", "Shutter materials (price per sqft)", 2},
	{"Accessories", "accessories", "Kitchen accessories (unit price)", 3},
	{"Hardware", "hardware", "Hardware items (unit price)", 4},
}

// Cabinet carcasses carry no price of their own; they are priced by area and the shutter rate.
var products = []product{
	{"shutters", "SHUT-001", "Laminate MR+ HDHMR", "Matt laminate finish on HDHMR board", "sqft", "850"},
	{"shutters", "SHUT-002", "Laminate Glossy HDHMR", "Glossy laminate finish on HDHMR board", "sqft", "900"},
	{"shutters", "SHUT-003", "Acrylic Finish", "High gloss acrylic finish", "sqft", "1200"},

	{"cabinets", "CAB-TALL", "Tall Carcass (HDHMR)", "Full height cabinet", "piece", "0"},
	{"cabinets", "CAB-BASE", "Base Cabinet", "Lower cabinet", "piece", "0"},
	{"cabinets", "CAB-TOP", "Top Cabinet", "Upper cabinet", "piece", "0"},
	{"cabinets", "CAB-SHELF", "Wooden Shelf (HDHMR)", "Open shelf", "piece", "0"},

	{"accessories", "ACC-001", "PVC Cutlery Haf (Hafele)", "Size: 900mm", "piece", "2500"},
	{"accessories", "ACC-002", "Matrix Box Premium Rectangle", `Size: 8"`, "piece", "1800"},
	{"accessories", "ACC-003", "Matrix Box Premium (Hafele)", `Size: 4"`, "piece", "1200"},
	{"accessories", "ACC-004", "Glass Pullout (Evershine)", "Size: 200mm", "piece", "5500"},
	{"accessories", "ACC-005", "Glass Pantry 12 basket (Evershine)", "Size: 450mm", "piece", "18500"},
	{"accessories", "ACC-006", "GTPT (K Intl)", "Size: 900mm", "piece", "3500"},
	{"accessories", "ACC-007", "Detergent Holder (K Intl)", "Size: Standard", "piece", "800"},
	{"accessories", "ACC-008", "Bin Holder (K Intl)", "Size: Standard", "piece", "1200"},

	{"hardware", "HW-001", "Aluminium Profile (Evershine)", "Standard profile", "piece", "150"},
	{"hardware", "HW-002", "Cabinet Handle", "Stainless steel handle", "piece", "250"},
	{"hardware", "HW-003", "Soft Close Hinge", "Premium soft close", "piece", "180"},
	{"hardware", "HW-004", "Drawer Channel", "Telescopic channel", "piece", "350"},
}

// Run executes the startup seed in an idempotent way.
func Run(ctx context.Context, database *sql.DB, cfg Config) (Stats, error) {
	stats := Stats{}
	now := time.Now().UTC()

	err := db.WithTx(ctx, database, func(tx *sql.Tx) error {
		if err := seedAdmin(ctx, tx, cfg.AdminEmail, cfg.AdminPassword, now, &stats); err != nil {
			return err
		}

		categoryIDs := make(map[string]string, len(categories))
		for _, c := range categories {
			id, err := ensureCategory(ctx, tx, c, now, &stats)
			if err != nil {
				return err
			}
			categoryIDs[c.slug] = id
		}

		for _, p := range products {
			if err := ensureProduct(ctx, tx, p, categoryIDs[p.category], now, &stats); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		return Stats{}, fmt.Errorf("seed: %w", err)
	}

	return stats, nil
}

func seedAdmin(ctx context.Context, tx *sql.Tx, email, password string, now time.Time, stats *Stats) error {
	if email == "" || password == "" {
		return nil
	}

	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM users WHERE email = ? LIMIT 1)`, email).Scan(&exists); err != nil {
		return fmt.Errorf("check admin user existence: %w", err)
	}
	if exists {
		return nil
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash admin password: %w", err)
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO users (id, email, name, password_hash, role, created_at, updated_at)
		VALUES (?, ?, ?, ?, 'ADMIN', ?, ?)
	`, uuid.NewString(), email, adminName, string(hash), now, now); err != nil {
		return fmt.Errorf("insert admin user: %w", err)
	}
	stats.Inserts++
	return nil
}

func ensureCategory(ctx context.Context, tx *sql.Tx, c category, now time.Time, stats *Stats) (string, error) {
	var id string
	err := tx.QueryRowContext(ctx, `SELECT id FROM categories WHERE slug = ?`, c.slug).Scan(&id)
	if err == nil {
		return id, nil
	}
	if err != sql.ErrNoRows {
		return "", fmt.Errorf("check category %s existence: %w", c.slug, err)
	}

	id = uuid.NewString()
	if _, err := tx.ExecContext(ctx, `
		INSERT INTO categories (id, name, slug, description, display_order, is_active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, TRUE, ?, ?)
	`, id, c.name, c.slug, c.description, c.order, now, now); err != nil {
		return "", fmt.Errorf("insert category %s: %w", c.slug, err)
	}
	stats.Inserts++
	return id, nil
}

func ensureProduct(ctx context.Context, tx *sql.Tx, p product, categoryID string, now time.Time, stats *Stats) error {
	var exists bool
	if err := tx.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM products WHERE sku = ? LIMIT 1)`, p.sku).Scan(&exists); err != nil {
		return fmt.Errorf("check product %s existence: %w", p.sku, err)
	}
	if exists {
		return nil
	}

	if _, err := tx.ExecContext(ctx, `
		INSERT INTO products (
			id, sku, name, description, category_id, unit, base_price, tax_rate, is_active, created_at, updated_at
		)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, TRUE, ?, ?)
	`, uuid.NewString(), p.sku, p.name, p.description, categoryID, p.unit, p.price, defaultTaxRate, now, now); err != nil {
		return fmt.Errorf("insert product %s: %w", p.sku, err)
	}
	stats.Inserts++
	return nil
}
