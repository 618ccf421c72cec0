package main

import (
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/service"
)

// formParser reads typed values from a parsed form, collecting parse failures under the field name.
type formParser struct {
	r      *http.Request
	errors map[string]string
}

func newFormParser(r *http.Request) *formParser {
	return &formParser{r: r, errors: map[string]string{}}
}

func (p *formParser) text(name string) string {
	return strings.TrimSpace(p.r.PostFormValue(name))
}

func (p *formParser) decimal(name string) decimal.Decimal {
	v, err := parseDecimal(p.text(name))
	if err != nil {
		p.errors[name] = err.Error()
	}
	return v
}

// nullDecimal leaves the value unset for a blank field so callers can apply their default.
func (p *formParser) nullDecimal(name string) decimal.NullDecimal {
	raw := p.text(name)
	if raw == "" {
		return decimal.NullDecimal{}
	}
	v, err := parseDecimal(raw)
	if err != nil {
		p.errors[name] = err.Error()
		return decimal.NullDecimal{}
	}
	return decimal.NewNullDecimal(v)
}

func (p *formParser) int(name string) int {
	raw := p.text(name)
	if raw == "" {
		return 0
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		p.errors[name] = "must be a whole number"
	}
	return v
}

func (p *formParser) optionalInt(name string) *int {
	if p.text(name) == "" {
		return nil
	}
	v := p.int(name)
	return &v
}

func (p *formParser) err() error {
	if len(p.errors) == 0 {
		return nil
	}
	return &service.ValidationError{Fields: p.errors}
}

// parseDecimal accepts amounts typed with thousands separators, such as "1,23,456.50".
func parseDecimal(raw string) (decimal.Decimal, error) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, nil
	}
	v, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("must be a number")
	}
	return v, nil
}

func parseCustomerForm(r *http.Request) service.CustomerInput {
	p := newFormParser(r)
	return service.CustomerInput{
		Name:    p.text("name"),
		Email:   p.text("email"),
		Phone:   p.text("phone"),
		Address: p.text("address"),
		City:    p.text("city"),
		State:   p.text("state"),
		ZipCode: p.text("zipCode"),
		Country: p.text("country"),
		Notes:   p.text("notes"),
	}
}

func parseCategoryForm(r *http.Request) (service.CategoryInput, error) {
	p := newFormParser(r)
	in := service.CategoryInput{
		Name:         p.text("name"),
		Slug:         p.text("slug"),
		Description:  p.text("description"),
		ParentID:     p.text("parentId"),
		DisplayOrder: p.int("displayOrder"),
	}
	return in, p.err()
}

func parseProductForm(r *http.Request) (service.ProductInput, error) {
	p := newFormParser(r)
	in := service.ProductInput{
		SKU:           p.text("sku"),
		Name:          p.text("name"),
		Description:   p.text("description"),
		CategoryID:    p.text("categoryId"),
		Unit:          p.text("unit"),
		BasePrice:     p.decimal("basePrice"),
		CostPrice:     p.nullDecimal("costPrice"),
		TaxRate:       p.nullDecimal("taxRate"),
		StockQuantity: p.optionalInt("stockQuantity"),
	}
	return in, p.err()
}

// parseEstimateForm reads the header and the item rows posted as "items.<n>.<field>". Rows left completely
// blank are dropped so the form can offer spare rows.
func parseEstimateForm(r *http.Request) (service.EstimateInput, error) {
	p := newFormParser(r)
	in := service.EstimateInput{
		CustomerID:        p.text("customerId"),
		Title:             p.text("title"),
		Description:       p.text("description"),
		ValidUntil:        p.text("validUntil"),
		ShutterMaterialID: p.text("shutterMaterialId"),
		DiscountPercent:   p.decimal("discountPercent"),
		DiscountAmount:    p.decimal("discountAmount"),
		Notes:             p.text("notes"),
		Terms:             p.text("termsAndConditions"),
	}

	for _, n := range itemIndexes(r) {
		key := func(field string) string { return fmt.Sprintf("items.%d.%s", n, field) }
		if rowIsBlank(p, key) {
			continue
		}
		in.Items = append(in.Items, service.ItemInput{
			ProductID:   p.text(key("productId")),
			Kind:        pricing.ItemKind(p.text(key("itemType"))),
			Description: p.text(key("description")),
			Quantity:    p.decimal(key("quantity")),
			Unit:        p.text(key("unit")),
			UnitPrice:   p.decimal(key("unitPrice")),
			TaxRate:     p.nullDecimal(key("taxRate")),
			Height:      p.decimal(key("height")),
			Width:       p.decimal(key("width")),
			Depth:       p.decimal(key("depth")),
			Area:        p.decimal(key("area")),
			ShutterRate: p.decimal(key("shutterRate")),
		})
		p.renumber(n, len(in.Items)-1)
	}

	return in, p.err()
}

// renumber moves parse errors of posted row "from" to its position after blank rows were dropped.
func (p *formParser) renumber(from, to int) {
	if from == to {
		return
	}
	oldPrefix := fmt.Sprintf("items.%d.", from)
	for k, msg := range p.errors {
		if field, ok := strings.CutPrefix(k, oldPrefix); ok {
			delete(p.errors, k)
			p.errors[fmt.Sprintf("items.%d.%s", to, field)] = msg
		}
	}
}

func itemIndexes(r *http.Request) []int {
	seen := map[int]bool{}
	for k := range r.PostForm {
		rest, ok := strings.CutPrefix(k, "items.")
		if !ok {
			continue
		}
		idx, _, ok := strings.Cut(rest, ".")
		if !ok {
			continue
		}
		if n, err := strconv.Atoi(idx); err == nil && n >= 0 {
			seen[n] = true
		}
	}

	out := make([]int, 0, len(seen))
	for n := range seen {
		out = append(out, n)
	}
	sort.Ints(out)
	return out
}

func rowIsBlank(p *formParser, key func(string) string) bool {
	for _, f := range []string{"productId", "itemType", "description"} {
		if p.text(key(f)) != "" {
			return false
		}
	}
	return true
}
