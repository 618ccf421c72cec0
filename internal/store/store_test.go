package store

import (
	"context"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kinternationals/estimator/internal/db"
	"github.com/kinternationals/estimator/internal/migrations"
	"github.com/kinternationals/estimator/internal/pricing"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	ctx := context.Background()
	database, err := db.Open(ctx, filepath.Join(t.TempDir(), "store-test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.Close() })

	require.NoError(t, migrations.Up(ctx, database))

	s := New(database)
	// Each call advances one second so ordering by created_at is deterministic.
	clock := time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time {
		clock = clock.Add(time.Second)
		return clock
	}
	return s
}

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func mustCategory(t *testing.T, s *Store, name, slug string, order int) Category {
	t.Helper()
	c := Category{Name: name, Slug: slug, DisplayOrder: order}
	require.NoError(t, s.CreateCategory(context.Background(), &c))
	return c
}

func mustProduct(t *testing.T, s *Store, categoryID, sku, name, price string) Product {
	t.Helper()
	p := Product{
		SKU:        sku,
		Name:       name,
		CategoryID: categoryID,
		Unit:       "piece",
		BasePrice:  dec(price),
		TaxRate:    dec("18"),
	}
	require.NoError(t, s.CreateProduct(context.Background(), &p))
	return p
}

func mustCustomer(t *testing.T, s *Store, name string) Customer {
	t.Helper()
	c := Customer{Name: name, Country: "India"}
	require.NoError(t, s.CreateCustomer(context.Background(), &c))
	return c
}

func sampleEstimate(customerID, number string) *Estimate {
	return &Estimate{
		Number:          number,
		CustomerID:      customerID,
		Title:           "Kitchen",
		Subtotal:        dec("200"),
		DiscountPercent: dec("10"),
		DiscountAmount:  dec("20"),
		TaxAmount:       dec("32.4"),
		Total:           dec("212.4"),
		Items: []EstimateItem{
			{
				Kind:        pricing.KindHardware,
				Description: "Hinge",
				Quantity:    dec("2"),
				UnitPrice:   dec("50"),
				TaxRate:     dec("18"),
				TaxAmount:   dec("18"),
				LineTotal:   dec("118"),
			},
			{
				Kind:        pricing.KindCabinet,
				Description: "Base unit",
				Quantity:    dec("1"),
				UnitPrice:   dec("100"),
				TaxRate:     dec("18"),
				TaxAmount:   dec("18"),
				LineTotal:   dec("118"),
				Height:      decimal.NewNullDecimal(dec("720")),
				Width:       decimal.NewNullDecimal(dec("600")),
				Depth:       decimal.NewNullDecimal(dec("560")),
				ShutterRate: decimal.NewNullDecimal(dec("850")),
			},
		},
	}
}

func TestUsers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	u := User{Email: "admin@example.com", Name: "Admin", PasswordHash: "hash", Role: RoleAdmin}
	require.NoError(t, s.CreateUser(ctx, &u))
	require.NotEmpty(t, u.ID)

	got, err := s.GetUserByEmail(ctx, "admin@example.com")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)
	assert.Equal(t, RoleAdmin, got.Role)

	byID, err := s.GetUserByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "admin@example.com", byID.Email)

	dup := User{Email: "admin@example.com", PasswordHash: "x"}
	assert.ErrorIs(t, s.CreateUser(ctx, &dup), ErrDuplicateEmail)

	_, err = s.GetUserByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCustomers(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	first := mustCustomer(t, s, "Asha Rao")
	second := mustCustomer(t, s, "Vikram Shah")

	list, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, second.ID, list[0].ID, "newest first")
	assert.Equal(t, first.ID, list[1].ID)

	first.City = "Pune"
	first.Email = "asha@example.com"
	require.NoError(t, s.UpdateCustomer(ctx, &first))

	got, err := s.GetCustomer(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, "Pune", got.City)
	assert.Equal(t, "India", got.Country)
	assert.True(t, got.Active)

	require.NoError(t, s.DeactivateCustomer(ctx, first.ID))
	list, err = s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)

	got, err = s.GetCustomer(ctx, first.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	assert.ErrorIs(t, s.DeactivateCustomer(ctx, "missing"), ErrNotFound)
	_, err = s.GetCustomer(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCategories(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hardware := mustCategory(t, s, "Hardware", "hardware", 4)
	cabinets := mustCategory(t, s, "Cabinets", "cabinets", 1)
	child := Category{Name: "Base Cabinets", Slug: "base-cabinets", ParentID: cabinets.ID, DisplayOrder: 1}
	require.NoError(t, s.CreateCategory(ctx, &child))

	dup := Category{Name: "Cabinets again", Slug: "cabinets"}
	assert.ErrorIs(t, s.CreateCategory(ctx, &dup), ErrDuplicateSlug)
	assert.ErrorIs(t, s.CreateCategory(ctx, &dup), ErrConflict)

	list, err := s.ListCategories(ctx)
	require.NoError(t, err)
	require.Len(t, list, 3)
	assert.Equal(t, "Base Cabinets", list[0].Name)
	assert.Equal(t, "Cabinets", list[1].Name)
	assert.Equal(t, "Hardware", list[2].Name)
	assert.Equal(t, "Cabinets", list[0].ParentName)
	assert.Equal(t, 1, list[1].ChildCount)

	bySlug, err := s.GetCategoryBySlug(ctx, "hardware")
	require.NoError(t, err)
	assert.Equal(t, hardware.ID, bySlug.ID)

	hinge := mustProduct(t, s, hardware.ID, "HW-001", "Soft-close hinge", "120")

	got, err := s.GetCategory(ctx, hardware.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, got.ProductCount)

	assert.ErrorIs(t, s.DeactivateCategory(ctx, hardware.ID), ErrCategoryInUse)

	require.NoError(t, s.DeactivateProduct(ctx, hinge.ID))
	require.NoError(t, s.DeactivateCategory(ctx, hardware.ID))

	list, err = s.ListCategories(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)

	assert.ErrorIs(t, s.DeactivateCategory(ctx, "missing"), ErrNotFound)
}

func TestProducts(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	hardware := mustCategory(t, s, "Hardware", "hardware", 4)
	shutters := mustCategory(t, s, "Shutters", "shutters", 2)

	stock := 40
	p := Product{
		SKU:           "SH-ACR-001",
		Name:          "Acrylic shutter",
		CategoryID:    shutters.ID,
		Unit:          "sqft",
		BasePrice:     dec("850"),
		CostPrice:     decimal.NewNullDecimal(dec("600")),
		TaxRate:       dec("18"),
		StockQuantity: &stock,
	}
	require.NoError(t, s.CreateProduct(ctx, &p))
	mustProduct(t, s, hardware.ID, "HW-001", "Hinge", "120.50")

	got, err := s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, got.BasePrice.Equal(dec("850")))
	require.True(t, got.CostPrice.Valid)
	assert.True(t, got.CostPrice.Decimal.Equal(dec("600")))
	require.NotNil(t, got.StockQuantity)
	assert.Equal(t, 40, *got.StockQuantity)
	assert.Equal(t, "shutters", got.CategorySlug)

	all, err := s.ListProducts(ctx, "")
	require.NoError(t, err)
	assert.Len(t, all, 2)

	onlyHardware, err := s.ListProducts(ctx, "hardware")
	require.NoError(t, err)
	require.Len(t, onlyHardware, 1)
	assert.True(t, onlyHardware[0].BasePrice.Equal(dec("120.50")))
	assert.False(t, onlyHardware[0].CostPrice.Valid)
	assert.Nil(t, onlyHardware[0].StockQuantity)

	dup := Product{SKU: "HW-001", Name: "Other", CategoryID: hardware.ID, BasePrice: dec("1"), TaxRate: dec("18")}
	assert.ErrorIs(t, s.CreateProduct(ctx, &dup), ErrDuplicateSKU)

	got.Name = "Acrylic shutter (gloss)"
	got.StockQuantity = nil
	require.NoError(t, s.UpdateProduct(ctx, &got))
	got, err = s.GetProduct(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "Acrylic shutter (gloss)", got.Name)
	assert.Nil(t, got.StockQuantity)

	got.SKU = "HW-001"
	assert.ErrorIs(t, s.UpdateProduct(ctx, &got), ErrDuplicateSKU)
}

func TestEstimateLifecycle(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	customer := mustCustomer(t, s, "Asha Rao")
	in := sampleEstimate(customer.ID, "EST-2025-0001")
	require.NoError(t, s.CreateEstimate(ctx, in))
	require.NotEmpty(t, in.ID)
	assert.Equal(t, StatusDraft, in.Status)

	got, err := s.GetEstimate(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "EST-2025-0001", got.Number)
	assert.Equal(t, "Asha Rao", got.CustomerName)
	assert.True(t, got.Total.Equal(dec("212.4")))
	assert.Nil(t, got.ValidUntil)
	require.Len(t, got.Items, 2)
	assert.Equal(t, "Hinge", got.Items[0].Description)
	assert.Equal(t, 0, got.Items[0].DisplayOrder)
	assert.Equal(t, pricing.KindCabinet, got.Items[1].Kind)
	assert.True(t, got.Items[1].Height.Valid)
	assert.False(t, got.Items[0].Height.Valid)
	require.True(t, got.Items[1].ShutterRate.Valid)
	assert.True(t, got.Items[1].ShutterRate.Decimal.Equal(dec("850")))
	assert.False(t, got.Items[0].ShutterRate.Valid)
	assert.Equal(t, "piece", got.Items[0].Unit)

	dup := sampleEstimate(customer.ID, "EST-2025-0001")
	assert.ErrorIs(t, s.CreateEstimate(ctx, dup), ErrDuplicateNumber)

	validUntil := time.Date(2025, 4, 1, 0, 0, 0, 0, time.UTC)
	got.Title = "Kitchen and utility"
	got.ValidUntil = &validUntil
	got.Items = got.Items[1:]
	got.Total = dec("118")
	require.NoError(t, s.ReplaceEstimate(ctx, &got))

	replaced, err := s.GetEstimate(ctx, in.ID)
	require.NoError(t, err)
	assert.Equal(t, "Kitchen and utility", replaced.Title)
	assert.Equal(t, "EST-2025-0001", replaced.Number)
	assert.Equal(t, StatusDraft, replaced.Status)
	require.NotNil(t, replaced.ValidUntil)
	assert.True(t, replaced.ValidUntil.Equal(validUntil))
	require.Len(t, replaced.Items, 1)
	assert.Equal(t, "Base unit", replaced.Items[0].Description)
	assert.Equal(t, 0, replaced.Items[0].DisplayOrder)

	require.NoError(t, s.UpdateEstimateStatus(ctx, in.ID, StatusAccepted))
	require.NoError(t, s.UpdateEstimateStatus(ctx, in.ID, StatusDraft))
	assert.ErrorIs(t, s.UpdateEstimateStatus(ctx, "missing", StatusSent), ErrNotFound)

	require.NoError(t, s.DeleteEstimate(ctx, in.ID))
	_, err = s.GetEstimate(ctx, in.ID)
	assert.ErrorIs(t, err, ErrNotFound)

	var orphans int
	require.NoError(t, s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM estimate_items`).Scan(&orphans))
	assert.Zero(t, orphans)
}

func TestLastEstimateNumber(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	customer := mustCustomer(t, s, "Asha Rao")

	last, err := s.LastEstimateNumber(ctx, "EST-2025-")
	require.NoError(t, err)
	assert.Empty(t, last)

	for _, n := range []string{"EST-2024-0042", "EST-2025-0009", "EST-2025-9999", "EST-2025-10000"} {
		require.NoError(t, s.CreateEstimate(ctx, sampleEstimate(customer.ID, n)))
	}

	last, err = s.LastEstimateNumber(ctx, "EST-2025-")
	require.NoError(t, err)
	assert.Equal(t, "EST-2025-10000", last)

	last, err = s.LastEstimateNumber(ctx, "EST-2024-")
	require.NoError(t, err)
	assert.Equal(t, "EST-2024-0042", last)
}

func TestListEstimatesAndStats(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	asha := mustCustomer(t, s, "Asha Rao")
	vikram := mustCustomer(t, s, "Vikram Shah")

	a := sampleEstimate(asha.ID, "EST-2025-0001")
	b := sampleEstimate(vikram.ID, "EST-2025-0002")
	b.Title = "Wardrobe"
	c := sampleEstimate(asha.ID, "EST-2025-0003")
	for _, e := range []*Estimate{a, b, c} {
		require.NoError(t, s.CreateEstimate(ctx, e))
	}
	require.NoError(t, s.UpdateEstimateStatus(ctx, a.ID, StatusAccepted))
	require.NoError(t, s.UpdateEstimateStatus(ctx, c.ID, StatusAccepted))

	all, err := s.ListEstimates(ctx, EstimateFilter{})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, "EST-2025-0003", all[0].Number)
	assert.Equal(t, 2, all[0].ItemCount)

	found, err := s.ListEstimates(ctx, EstimateFilter{Search: "wardrobe"})
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "Vikram Shah", found[0].CustomerName)

	found, err = s.ListEstimates(ctx, EstimateFilter{Search: "vikram"})
	require.NoError(t, err)
	assert.Len(t, found, 1)

	accepted, err := s.ListEstimates(ctx, EstimateFilter{Status: StatusAccepted})
	require.NoError(t, err)
	assert.Len(t, accepted, 2)

	recent, err := s.RecentEstimatesForCustomer(ctx, asha.ID, 1)
	require.NoError(t, err)
	require.Len(t, recent, 1)
	assert.Equal(t, "EST-2025-0003", recent[0].Number)

	customers, err := s.ListCustomers(ctx)
	require.NoError(t, err)
	require.Len(t, customers, 2)
	assert.Equal(t, 1, customers[0].EstimateCount)
	assert.Equal(t, 2, customers[1].EstimateCount)

	st, err := s.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, st.Customers)
	assert.Equal(t, 0, st.Products)
	assert.Equal(t, 3, st.Estimates)
	assert.True(t, st.AcceptedTotal.Equal(dec("424.8")), "accepted total %s", st.AcceptedTotal)
	assert.Len(t, st.Recent, 3)
}

func TestListEstimatesSearchMatchesLiterally(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	customer := mustCustomer(t, s, "Asha Rao")
	titles := []string{"Kitchen 50% off", "Kitchen 500", "Loft_A", "LoftBA", `Utility\Store`}
	for i, title := range titles {
		e := sampleEstimate(customer.ID, fmt.Sprintf("EST-2025-%04d", i+1))
		e.Title = title
		require.NoError(t, s.CreateEstimate(ctx, e))
	}

	for _, tc := range []struct {
		search string
		want   []string
	}{
		{"50%", []string{"Kitchen 50% off"}},
		{"t_a", []string{"Loft_A"}},
		{`y\s`, []string{`Utility\Store`}},
		{"kitchen 50", []string{"Kitchen 500", "Kitchen 50% off"}},
	} {
		found, err := s.ListEstimates(ctx, EstimateFilter{Search: tc.search})
		require.NoError(t, err)
		var got []string
		for _, e := range found {
			got = append(got, e.Title)
		}
		assert.ElementsMatch(t, tc.want, got, "search %q", tc.search)
	}
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus(" sent ")
	require.NoError(t, err)
	assert.Equal(t, StatusSent, st)

	_, err = ParseStatus("ARCHIVED")
	assert.Error(t, err)
}
