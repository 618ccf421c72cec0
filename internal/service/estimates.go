package service

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/store"
)

// maxNumberAttempts bounds how often Create regenerates a number after losing a race for it.
const maxNumberAttempts = 5

const dateLayout = "2006-01-02"

// EstimateInput is the estimate form, shared by the HTML and JSON paths.
type EstimateInput struct {
	CustomerID        string          `json:"customerId"`
	Title             string          `json:"title"`
	Description       string          `json:"description"`
	ValidUntil        string          `json:"validUntil"`
	ShutterMaterialID string          `json:"shutterMaterialId"`
	DiscountPercent   decimal.Decimal `json:"discountPercent"`
	DiscountAmount    decimal.Decimal `json:"discountAmount"`
	Notes             string          `json:"notes"`
	Terms             string          `json:"termsAndConditions"`
	Items             []ItemInput     `json:"items"`
}

// ItemInput is one submitted line. Fields left empty are filled from the linked product.
type ItemInput struct {
	ProductID   string              `json:"productId"`
	Kind        pricing.ItemKind    `json:"itemType"`
	Description string              `json:"description"`
	Quantity    decimal.Decimal     `json:"quantity"`
	Unit        string              `json:"unit"`
	UnitPrice   decimal.Decimal     `json:"unitPrice"`
	TaxRate     decimal.NullDecimal `json:"taxRate"`
	Height      decimal.Decimal     `json:"height"`
	Width       decimal.Decimal     `json:"width"`
	Depth       decimal.Decimal     `json:"depth"`
	Area        decimal.Decimal     `json:"area"`
	ShutterRate decimal.Decimal     `json:"shutterRate"`
}

func (in *EstimateInput) normalize() {
	in.CustomerID = trim(in.CustomerID)
	in.Title = trim(in.Title)
	in.Description = trim(in.Description)
	in.ValidUntil = trim(in.ValidUntil)
	in.ShutterMaterialID = trim(in.ShutterMaterialID)
	for i := range in.Items {
		it := &in.Items[i]
		it.ProductID = trim(it.ProductID)
		it.Description = trim(it.Description)
		it.Unit = trim(it.Unit)
	}
}

func (in *EstimateInput) validateHeader() *ValidationError {
	return validateStruct(in,
		validation.Field(&in.CustomerID, validation.Required.Error("please select a customer")),
		validation.Field(&in.Title, validation.Required, validation.RuneLength(2, 0)),
		validation.Field(&in.ValidUntil, validation.Date(dateLayout)),
		validation.Field(&in.DiscountPercent, decimalBetween(decimal.Zero, hundred)),
		validation.Field(&in.DiscountAmount, decimalNotNegative()),
		validation.Field(&in.Items, validation.Required.Error("please add at least one item")),
	)
}

func (in *EstimateInput) validUntil() *time.Time {
	if in.ValidUntil == "" {
		return nil
	}
	t, err := time.ParseInLocation(dateLayout, in.ValidUntil, time.UTC)
	if err != nil {
		return nil
	}
	return &t
}

func (in *EstimateInput) discount() pricing.Discount {
	return pricing.Discount{Percent: in.DiscountPercent, Amount: in.DiscountAmount}
}

// InputFromEstimate rebuilds the form for an existing estimate. Cabinet and shutter lines
// carry the rate they were priced at, so saving the form unchanged keeps the totals.
func InputFromEstimate(e store.Estimate) EstimateInput {
	in := EstimateInput{
		CustomerID:        e.CustomerID,
		Title:             e.Title,
		Description:       e.Description,
		ShutterMaterialID: e.ShutterMaterialID,
		DiscountPercent:   e.DiscountPercent,
		Notes:             e.Notes,
		Terms:             e.Terms,
	}
	if e.ValidUntil != nil {
		in.ValidUntil = e.ValidUntil.Format(dateLayout)
	}
	if e.DiscountPercent.IsZero() {
		in.DiscountAmount = e.DiscountAmount
	}

	for _, it := range e.Items {
		row := ItemInput{
			ProductID:   it.ProductID,
			Kind:        it.Kind,
			Description: it.Description,
			Quantity:    it.Quantity,
			Unit:        it.Unit,
			TaxRate:     decimal.NewNullDecimal(it.TaxRate),
		}
		switch it.Kind {
		case pricing.KindCabinet:
			row.Height = it.Height.Decimal
			row.Width = it.Width.Decimal
			row.Depth = it.Depth.Decimal
			row.ShutterRate = lineRate(it)
		case pricing.KindShutter:
			row.Area = it.Area.Decimal
			row.ShutterRate = lineRate(it)
		default:
			row.UnitPrice = it.UnitPrice
		}
		in.Items = append(in.Items, row)
	}
	return in
}

// lineRate is the per-sqft rate an area-priced item was priced at. Items stored before the
// rate was kept fall back to unit price over area.
func lineRate(it store.EstimateItem) decimal.Decimal {
	if it.ShutterRate.Valid {
		return it.ShutterRate.Decimal
	}
	if it.Area.Valid && it.Area.Decimal.IsPositive() {
		return it.UnitPrice.Div(it.Area.Decimal)
	}
	return decimal.Zero
}

// Priced is the outcome of pricing a form: persisted items plus the aggregate totals.
type Priced struct {
	Items  []store.EstimateItem `json:"items"`
	Totals pricing.Totals       `json:"totals"`
}

type Estimates struct {
	store          *store.Store
	defaultTaxRate decimal.Decimal
	now            func() time.Time
}

func NewEstimates(s *store.Store, defaultTaxRate decimal.Decimal) *Estimates {
	return &Estimates{store: s, defaultTaxRate: defaultTaxRate, now: time.Now}
}

func (s *Estimates) List(ctx context.Context, f store.EstimateFilter) ([]store.EstimateSummary, error) {
	return s.store.ListEstimates(ctx, f)
}

func (s *Estimates) Get(ctx context.Context, id string) (store.Estimate, error) {
	return s.store.GetEstimate(ctx, id)
}

// Preview prices a form without saving it. Header fields other than discount and shutter material are ignored.
func (s *Estimates) Preview(ctx context.Context, in EstimateInput) (Priced, error) {
	in.normalize()
	ve := validateStruct(&in,
		validation.Field(&in.DiscountPercent, decimalBetween(decimal.Zero, hundred)),
		validation.Field(&in.DiscountAmount, decimalNotNegative()),
	)
	priced, err := s.price(ctx, &in, ve)
	if err != nil {
		return Priced{}, err
	}
	if err := ve.orNil(); err != nil {
		return Priced{}, err
	}
	return priced, nil
}

// Create validates and prices the form and stores it as a new DRAFT estimate with the next free number.
func (s *Estimates) Create(ctx context.Context, in EstimateInput, userID string) (store.Estimate, error) {
	e, err := s.build(ctx, &in)
	if err != nil {
		return store.Estimate{}, err
	}
	e.UserID = userID
	e.Status = store.StatusDraft

	for attempt := 1; ; attempt++ {
		number, err := s.nextNumber(ctx)
		if err != nil {
			return store.Estimate{}, err
		}
		e.Number = number

		err = s.store.CreateEstimate(ctx, &e)
		if err == nil {
			return e, nil
		}
		if !errors.Is(err, store.ErrDuplicateNumber) || attempt >= maxNumberAttempts {
			return store.Estimate{}, err
		}
		log.Printf("estimate number %s taken, retrying (attempt %d)", number, attempt)
	}
}

// Update re-prices the form and replaces the estimate's header and items. Number and status are kept.
func (s *Estimates) Update(ctx context.Context, id string, in EstimateInput) (store.Estimate, error) {
	current, err := s.store.GetEstimate(ctx, id)
	if err != nil {
		return store.Estimate{}, err
	}

	e, err := s.build(ctx, &in)
	if err != nil {
		return store.Estimate{}, err
	}
	e.ID = current.ID
	e.Number = current.Number
	e.Status = current.Status
	e.UserID = current.UserID
	e.CreatedAt = current.CreatedAt

	if err := s.store.ReplaceEstimate(ctx, &e); err != nil {
		return store.Estimate{}, err
	}
	return e, nil
}

// UpdateStatus sets any of the known statuses; there is no transition graph.
func (s *Estimates) UpdateStatus(ctx context.Context, id, status string) error {
	st, err := store.ParseStatus(status)
	if err != nil {
		return invalid("status", "invalid status")
	}
	return s.store.UpdateEstimateStatus(ctx, id, st)
}

func (s *Estimates) Delete(ctx context.Context, id string) error {
	return s.store.DeleteEstimate(ctx, id)
}

func (s *Estimates) nextNumber(ctx context.Context) (string, error) {
	now := s.now()
	last, err := s.store.LastEstimateNumber(ctx, pricing.EstimateNumberPrefix(now.Year()))
	if err != nil {
		return "", err
	}
	return pricing.NextEstimateNumber(last, now), nil
}

// build validates the whole form and turns it into an unsaved estimate.
func (s *Estimates) build(ctx context.Context, in *EstimateInput) (store.Estimate, error) {
	in.normalize()
	ve := in.validateHeader()

	if in.CustomerID != "" {
		if _, err := s.store.GetCustomer(ctx, in.CustomerID); err != nil {
			if !errors.Is(err, store.ErrNotFound) {
				return store.Estimate{}, err
			}
			ve.add("customerId", "unknown customer")
		}
	}

	priced, err := s.price(ctx, in, ve)
	if err != nil {
		return store.Estimate{}, err
	}
	if err := ve.orNil(); err != nil {
		return store.Estimate{}, err
	}

	return store.Estimate{
		CustomerID:        in.CustomerID,
		Title:             in.Title,
		Description:       in.Description,
		ValidUntil:        in.validUntil(),
		ShutterMaterialID: in.ShutterMaterialID,
		Subtotal:          priced.Totals.Subtotal,
		DiscountPercent:   in.DiscountPercent,
		DiscountAmount:    priced.Totals.DiscountAmount,
		TaxAmount:         priced.Totals.TaxAmount,
		Total:             priced.Totals.Total,
		Notes:             in.Notes,
		Terms:             in.Terms,
		Items:             priced.Items,
	}, nil
}

// price resolves every item and aggregates totals. Field problems are collected in ve;
// only storage failures are returned as errors.
func (s *Estimates) price(ctx context.Context, in *EstimateInput, ve *ValidationError) (Priced, error) {
	materialRate := decimal.Zero
	if in.ShutterMaterialID != "" {
		m, err := s.store.GetProduct(ctx, in.ShutterMaterialID)
		switch {
		case errors.Is(err, store.ErrNotFound):
			ve.add("shutterMaterialId", "unknown shutter material")
		case err != nil:
			return Priced{}, err
		default:
			materialRate = m.BasePrice
		}
	}

	products := map[string]store.Product{}
	items := make([]store.EstimateItem, 0, len(in.Items))
	lines := make([]pricing.Line, 0, len(in.Items))
	for i, raw := range in.Items {
		item, line, err := s.resolveItem(ctx, raw, materialRate, products)
		if err != nil {
			var fe *fieldError
			if errors.As(err, &fe) {
				ve.add(fmt.Sprintf("items.%d.%s", i, fe.field), fe.msg)
				continue
			}
			return Priced{}, err
		}
		items = append(items, item)
		lines = append(lines, line)
	}

	if len(ve.Fields) > 0 {
		return Priced{}, nil
	}

	totals, err := pricing.CalculateTotals(lines, in.discount())
	if err != nil {
		var ie *pricing.InputError
		if errors.As(err, &ie) {
			ve.add(ie.Field, ie.Reason)
			return Priced{}, nil
		}
		return Priced{}, err
	}

	return Priced{Items: items, Totals: totals}, nil
}

type fieldError struct {
	field string
	msg   string
}

func (e *fieldError) Error() string { return e.field + " " + e.msg }

// resolveItem fills an item from its product and prices it.
//
// Shutter rate precedence: the rate typed on the line, then the line's own product for
// shutters, then the estimate's shutter material. The rate used is stored on the item so
// an edit can send it back unchanged. Unit prices are rounded to 2 decimals before line
// and estimate totals are computed from them.
func (s *Estimates) resolveItem(ctx context.Context, in ItemInput, materialRate decimal.Decimal, cache map[string]store.Product) (store.EstimateItem, pricing.Line, error) {
	var (
		product    store.Product
		hasProduct bool
	)
	if in.ProductID != "" {
		p, ok := cache[in.ProductID]
		if !ok {
			var err error
			p, err = s.store.GetProduct(ctx, in.ProductID)
			if errors.Is(err, store.ErrNotFound) {
				return store.EstimateItem{}, pricing.Line{}, &fieldError{"productId", "unknown product"}
			}
			if err != nil {
				return store.EstimateItem{}, pricing.Line{}, err
			}
			cache[in.ProductID] = p
		}
		product, hasProduct = p, true
	}

	kind := in.Kind
	if kind == "" && hasProduct {
		kind = pricing.KindForCategory(product.CategorySlug)
	}
	if _, ok := pricing.ParseItemKind(string(kind)); !ok {
		return store.EstimateItem{}, pricing.Line{}, &fieldError{"itemType", "select an item type or a product"}
	}

	description := in.Description
	if description == "" && hasProduct {
		description = product.Name
	}
	if description == "" {
		return store.EstimateItem{}, pricing.Line{}, &fieldError{"description", "is required"}
	}

	unit := in.Unit
	if unit == "" && hasProduct {
		unit = product.Unit
	}
	if unit == "" {
		unit = defaultUnit
	}

	taxRate := s.defaultTaxRate
	switch {
	case in.TaxRate.Valid:
		taxRate = in.TaxRate.Decimal
	case hasProduct:
		taxRate = product.TaxRate
	}

	unitPrice := in.UnitPrice
	if unitPrice.IsZero() && hasProduct {
		unitPrice = product.BasePrice
	}

	shutterRate := in.ShutterRate
	if !shutterRate.IsPositive() {
		switch {
		case kind == pricing.KindShutter && hasProduct && product.BasePrice.IsPositive():
			shutterRate = product.BasePrice
		default:
			shutterRate = materialRate
		}
	}

	pin := pricing.ItemInput{
		Kind:        kind,
		Height:      in.Height,
		Width:       in.Width,
		Depth:       in.Depth,
		Area:        in.Area,
		ShutterRate: shutterRate,
		Quantity:    in.Quantity,
		UnitPrice:   unitPrice,
		TaxRate:     taxRate,
	}
	line, err := pricing.Resolve(pin)
	if err != nil {
		var ie *pricing.InputError
		if errors.As(err, &ie) {
			return store.EstimateItem{}, pricing.Line{}, &fieldError{ie.Field, ie.Reason}
		}
		return store.EstimateItem{}, pricing.Line{}, err
	}
	line.UnitPrice = pricing.Round2(line.UnitPrice)

	amounts := pricing.CalculateLineItem(line.Quantity, line.UnitPrice, line.TaxRate)
	item := store.EstimateItem{
		Kind:        kind,
		Description: description,
		Quantity:    amounts.Quantity,
		Unit:        unit,
		UnitPrice:   amounts.UnitPrice,
		TaxRate:     amounts.TaxRate,
		TaxAmount:   amounts.TaxAmount,
		LineTotal:   amounts.LineTotal,
	}
	if hasProduct {
		item.ProductID = product.ID
	}
	switch kind {
	case pricing.KindCabinet:
		item.Height = decimal.NewNullDecimal(in.Height)
		item.Width = decimal.NewNullDecimal(in.Width)
		item.Depth = decimal.NewNullDecimal(in.Depth)
		item.Area = decimal.NewNullDecimal(pricing.CabinetArea(in.Height, in.Width, in.Depth))
		item.ShutterRate = decimal.NewNullDecimal(shutterRate)
	case pricing.KindShutter:
		item.Area = decimal.NewNullDecimal(in.Area)
		item.ShutterRate = decimal.NewNullDecimal(shutterRate)
	}

	return item, line, nil
}
