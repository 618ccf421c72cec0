package service

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/store"
)

const defaultUnit = "piece"

var (
	slugPattern  = regexp.MustCompile(`^[a-z0-9-]+$`)
	slugReplacer = regexp.MustCompile(`[^a-z0-9]+`)
)

// Slugify lowercases s and joins its words with hyphens.
func Slugify(s string) string {
	return strings.Trim(slugReplacer.ReplaceAllString(strings.ToLower(s), "-"), "-")
}

type CategoryInput struct {
	Name         string `json:"name"`
	Slug         string `json:"slug"`
	Description  string `json:"description"`
	ParentID     string `json:"parentId"`
	DisplayOrder int    `json:"displayOrder"`
}

func (in *CategoryInput) normalize() {
	in.Name = trim(in.Name)
	in.Slug = trim(in.Slug)
	if in.Slug == "" {
		in.Slug = Slugify(in.Name)
	}
	in.Description = trim(in.Description)
	in.ParentID = trim(in.ParentID)
}

func (in *CategoryInput) validate() *ValidationError {
	return validateStruct(in,
		validation.Field(&in.Name, validation.Required, validation.RuneLength(2, 0)),
		validation.Field(&in.Slug, validation.Required,
			validation.Match(slugPattern).Error("must contain only lowercase letters, numbers, and hyphens")),
		validation.Field(&in.DisplayOrder, validation.Min(0)),
	)
}

func (in CategoryInput) apply(c *store.Category) {
	c.Name = in.Name
	c.Slug = in.Slug
	c.Description = in.Description
	c.ParentID = in.ParentID
	c.DisplayOrder = in.DisplayOrder
}

type ProductInput struct {
	SKU           string              `json:"sku"`
	Name          string              `json:"name"`
	Description   string              `json:"description"`
	CategoryID    string              `json:"categoryId"`
	Unit          string              `json:"unit"`
	BasePrice     decimal.Decimal     `json:"basePrice"`
	CostPrice     decimal.NullDecimal `json:"costPrice"`
	TaxRate       decimal.NullDecimal `json:"taxRate"`
	StockQuantity *int                `json:"stockQuantity"`
}

func (in *ProductInput) normalize(defaultTaxRate decimal.Decimal) {
	in.SKU = strings.ToUpper(trim(in.SKU))
	in.Name = trim(in.Name)
	in.Description = trim(in.Description)
	in.CategoryID = trim(in.CategoryID)
	in.Unit = trim(in.Unit)
	if in.Unit == "" {
		in.Unit = defaultUnit
	}
	if !in.TaxRate.Valid {
		in.TaxRate = decimal.NewNullDecimal(defaultTaxRate)
	}
}

func (in *ProductInput) validate() *ValidationError {
	return validateStruct(in,
		validation.Field(&in.SKU, validation.Required, validation.RuneLength(2, 0)),
		validation.Field(&in.Name, validation.Required, validation.RuneLength(2, 0)),
		validation.Field(&in.CategoryID, validation.Required),
		validation.Field(&in.BasePrice, decimalNotNegative()),
		validation.Field(&in.CostPrice, nullDecimalPositive()),
		validation.Field(&in.TaxRate, nullDecimalBetween(decimal.Zero, hundred)),
		validation.Field(&in.StockQuantity, intNotNegative()),
	)
}

func (in ProductInput) apply(p *store.Product) {
	p.SKU = in.SKU
	p.Name = in.Name
	p.Description = in.Description
	p.CategoryID = in.CategoryID
	p.Unit = in.Unit
	p.BasePrice = in.BasePrice
	p.CostPrice = in.CostPrice
	p.TaxRate = in.TaxRate.Decimal
	p.StockQuantity = in.StockQuantity
}

// ProductDetail is a product with its margin over cost, in percent.
type ProductDetail struct {
	store.Product
	Kind   pricing.ItemKind
	Margin decimal.Decimal
}

type Catalog struct {
	store          *store.Store
	defaultTaxRate decimal.Decimal
}

func NewCatalog(s *store.Store, defaultTaxRate decimal.Decimal) *Catalog {
	return &Catalog{store: s, defaultTaxRate: defaultTaxRate}
}

func (s *Catalog) DefaultTaxRate() decimal.Decimal { return s.defaultTaxRate }

func (s *Catalog) ListCategories(ctx context.Context) ([]store.Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Catalog) GetCategory(ctx context.Context, id string) (store.Category, error) {
	return s.store.GetCategory(ctx, id)
}

func (s *Catalog) CreateCategory(ctx context.Context, in CategoryInput) (store.Category, error) {
	in.normalize()
	ve := in.validate()
	if err := s.checkParent(ctx, "", in.ParentID, ve); err != nil {
		return store.Category{}, err
	}
	if err := ve.orNil(); err != nil {
		return store.Category{}, err
	}

	var c store.Category
	in.apply(&c)
	if err := s.store.CreateCategory(ctx, &c); err != nil {
		return store.Category{}, err
	}
	return c, nil
}

func (s *Catalog) UpdateCategory(ctx context.Context, id string, in CategoryInput) (store.Category, error) {
	in.normalize()
	ve := in.validate()
	if err := s.checkParent(ctx, id, in.ParentID, ve); err != nil {
		return store.Category{}, err
	}
	if err := ve.orNil(); err != nil {
		return store.Category{}, err
	}

	c, err := s.store.GetCategory(ctx, id)
	if err != nil {
		return store.Category{}, err
	}
	in.apply(&c)
	if err := s.store.UpdateCategory(ctx, &c); err != nil {
		return store.Category{}, err
	}
	return c, nil
}

// checkParent rejects unknown parents and any parent that would put the category under itself.
// Only storage failures are returned; field problems go to ve.
func (s *Catalog) checkParent(ctx context.Context, id, parentID string, ve *ValidationError) error {
	if parentID == "" {
		return nil
	}
	if parentID == id {
		ve.add("parentId", "a category cannot be its own parent")
		return nil
	}

	seen := map[string]bool{}
	for cur := parentID; cur != ""; {
		if cur == id {
			ve.add("parentId", "a category cannot be placed under one of its subcategories")
			return nil
		}
		if seen[cur] {
			return nil
		}
		seen[cur] = true

		c, err := s.store.GetCategory(ctx, cur)
		if errors.Is(err, store.ErrNotFound) {
			if cur == parentID {
				ve.add("parentId", "unknown category")
			}
			return nil
		}
		if err != nil {
			return fmt.Errorf("check parent category: %w", err)
		}
		cur = c.ParentID
	}
	return nil
}

// DeleteCategory refuses while active products still belong to the category.
func (s *Catalog) DeleteCategory(ctx context.Context, id string) error {
	return s.store.DeactivateCategory(ctx, id)
}

func (s *Catalog) ListProducts(ctx context.Context, categorySlug string) ([]store.Product, error) {
	return s.store.ListProducts(ctx, trim(categorySlug))
}

func (s *Catalog) GetProduct(ctx context.Context, id string) (ProductDetail, error) {
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return ProductDetail{}, err
	}
	d := ProductDetail{Product: p, Kind: pricing.KindForCategory(p.CategorySlug)}
	if p.CostPrice.Valid {
		d.Margin = pricing.Margin(p.BasePrice, p.CostPrice.Decimal)
	}
	return d, nil
}

func (s *Catalog) CreateProduct(ctx context.Context, in ProductInput) (store.Product, error) {
	in.normalize(s.defaultTaxRate)
	ve := in.validate()
	if err := s.checkCategory(ctx, in.CategoryID, ve); err != nil {
		return store.Product{}, err
	}
	if err := ve.orNil(); err != nil {
		return store.Product{}, err
	}

	var p store.Product
	in.apply(&p)
	if err := s.store.CreateProduct(ctx, &p); err != nil {
		return store.Product{}, err
	}
	return p, nil
}

func (s *Catalog) UpdateProduct(ctx context.Context, id string, in ProductInput) (store.Product, error) {
	in.normalize(s.defaultTaxRate)
	ve := in.validate()
	if err := s.checkCategory(ctx, in.CategoryID, ve); err != nil {
		return store.Product{}, err
	}
	if err := ve.orNil(); err != nil {
		return store.Product{}, err
	}

	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return store.Product{}, err
	}
	in.apply(&p)
	if err := s.store.UpdateProduct(ctx, &p); err != nil {
		return store.Product{}, err
	}
	return p, nil
}

func (s *Catalog) checkCategory(ctx context.Context, categoryID string, ve *ValidationError) error {
	if categoryID == "" {
		return nil
	}
	c, err := s.store.GetCategory(ctx, categoryID)
	switch {
	case errors.Is(err, store.ErrNotFound):
		ve.add("categoryId", "unknown category")
	case err != nil:
		return fmt.Errorf("check product category: %w", err)
	case !c.Active:
		ve.add("categoryId", "category is no longer active")
	}
	return nil
}

func (s *Catalog) DeleteProduct(ctx context.Context, id string) error {
	return s.store.DeactivateProduct(ctx, id)
}
