// Package export renders estimates as PDF documents and spreadsheets.
package export

import (
	"fmt"
	"strings"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/orientation"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/store"
)

const dateLayout = "02 Jan 2006"

// EstimateDocument is everything printed on an estimate.
type EstimateDocument struct {
	CompanyName string
	Estimate    store.Estimate
	Customer    store.Customer
}

var (
	grey      = &props.Color{Red: 100, Green: 100, Blue: 100}
	charcoal  = &props.Color{Red: 33, Green: 37, Blue: 41}
	white     = &props.Color{Red: 255, Green: 255, Blue: 255}
	stripe    = &props.Color{Red: 248, Green: 249, Blue: 250}
	summaryBg = &props.Color{Red: 245, Green: 245, Blue: 245}
)

// money drops the rupee sign, which the built-in PDF fonts cannot draw.
func money(d decimal.Decimal) string {
	return strings.Replace(pricing.FormatINR(d), "₹", "Rs. ", 1)
}

// EstimatePDF renders an A4 estimate and returns the PDF bytes.
func EstimatePDF(doc EstimateDocument) ([]byte, error) {
	cfg := config.NewBuilder().
		WithOrientation(orientation.Vertical).
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).
		WithTopMargin(10).
		WithRightMargin(10).
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
			Size:    7,
			Color:   &props.Color{Red: 120, Green: 120, Blue: 120},
		}).
		Build()

	m := maroto.New(cfg)

	addHeader(m, doc)
	addCustomer(m, doc)
	addItems(m, doc.Estimate.Items)
	addTotals(m, doc.Estimate)
	addNotes(m, "NOTES", doc.Estimate.Notes)
	addNotes(m, "TERMS AND CONDITIONS", doc.Estimate.Terms)

	out, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("generate estimate pdf: %w", err)
	}
	return out.GetBytes(), nil
}

func addHeader(m core.Maroto, doc EstimateDocument) {
	e := doc.Estimate

	m.AddRows(
		row.New(10).Add(
			col.New(6).Add(text.New(doc.CompanyName, props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Left,
			})),
			col.New(6).Add(text.New("ESTIMATE", props.Text{
				Size:  14,
				Style: fontstyle.Bold,
				Align: align.Right,
				Color: charcoal,
			})),
		),
	)

	right := props.Text{Size: 9, Align: align.Right}
	m.AddRows(
		row.New(6).Add(
			col.New(6).Add(text.New(e.Title, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Left})),
			col.New(6).Add(text.New("No: "+e.Number, props.Text{Size: 10, Style: fontstyle.Bold, Align: align.Right})),
		),
		row.New(5).Add(
			col.New(6),
			col.New(6).Add(text.New("Date: "+e.CreatedAt.Format(dateLayout), right)),
		),
	)
	if e.ValidUntil != nil {
		m.AddRows(row.New(5).Add(
			col.New(6),
			col.New(6).Add(text.New("Valid until: "+e.ValidUntil.Format(dateLayout), right)),
		))
	}
	m.AddRows(row.New(5).Add(
		col.New(6),
		col.New(6).Add(text.New("Status: "+string(e.Status), right)),
	))

	if e.Description != "" {
		m.AddRows(row.New(7).Add(
			col.New(12).Add(text.New(e.Description, props.Text{Size: 8, Align: align.Left, Color: grey})),
		))
	}

	m.AddRows(row.New(3))
}

func addCustomer(m core.Maroto, doc EstimateDocument) {
	c := doc.Customer
	label := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Left, Color: grey}
	value := props.Text{Size: 8, Align: align.Left}

	m.AddRows(
		row.New(6).Add(col.New(12).Add(text.New("CUSTOMER", label))),
		row.New(6).Add(col.New(12).Add(text.New(c.Name, props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Left}))),
	)

	address := joinNonEmpty([]string{c.Address, c.City, c.State, c.ZipCode, c.Country}, ", ")
	if address != "" {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New(address, value))))
	}
	if contact := joinNonEmpty([]string{c.Phone, c.Email}, " | "); contact != "" {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New(contact, value))))
	}

	if name := doc.Estimate.ShutterMaterialName; name != "" {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New("Shutter material: "+name, value))))
	}

	m.AddRows(row.New(3))
}

func addItems(m core.Maroto, items []store.EstimateItem) {
	headerText := props.Text{Size: 7, Style: fontstyle.Bold, Align: align.Center, Color: white}
	headerLeft := headerText
	headerLeft.Align = align.Left
	headerCell := &props.Cell{BackgroundColor: charcoal}

	m.AddRows(
		row.New(8).Add(
			col.New(1).Add(text.New("#", headerText)).WithStyle(headerCell),
			col.New(4).Add(text.New("Description", headerLeft)).WithStyle(headerCell),
			col.New(1).Add(text.New("Qty", headerText)).WithStyle(headerCell),
			col.New(1).Add(text.New("Unit", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Rate", headerText)).WithStyle(headerCell),
			col.New(1).Add(text.New("GST%", headerText)).WithStyle(headerCell),
			col.New(2).Add(text.New("Total", headerText)).WithStyle(headerCell),
		),
	)

	body := props.Text{Size: 7, Align: align.Center}
	left := props.Text{Size: 7, Align: align.Left}
	right := props.Text{Size: 7, Align: align.Right}

	for i, it := range items {
		cols := []core.Col{
			col.New(1).Add(text.New(fmt.Sprintf("%d", i+1), body)),
			col.New(4).Add(text.New(itemDescription(it), left)),
			col.New(1).Add(text.New(it.Quantity.String(), right)),
			col.New(1).Add(text.New(it.Unit, body)),
			col.New(2).Add(text.New(money(it.UnitPrice), right)),
			col.New(1).Add(text.New(it.TaxRate.String()+"%", body)),
			col.New(2).Add(text.New(money(it.LineTotal), right)),
		}
		if i%2 == 1 {
			for j := range cols {
				cols[j] = cols[j].WithStyle(&props.Cell{BackgroundColor: stripe})
			}
		}
		m.AddRows(row.New(7).Add(cols...))
	}

	m.AddRows(row.New(2))
}

// itemDescription appends the measurements that priced a cabinet or shutter line.
func itemDescription(it store.EstimateItem) string {
	switch it.Kind {
	case pricing.KindCabinet:
		if it.Height.Valid && it.Width.Valid && it.Depth.Valid {
			return fmt.Sprintf("%s (%s x %s x %s mm)", it.Description,
				it.Height.Decimal, it.Width.Decimal, it.Depth.Decimal)
		}
	case pricing.KindShutter:
		if it.Area.Valid {
			return fmt.Sprintf("%s (%s sqft)", it.Description, it.Area.Decimal)
		}
	}
	return it.Description
}

func addTotals(m core.Maroto, e store.Estimate) {
	summaryCell := &props.Cell{BackgroundColor: summaryBg}
	label := props.Text{Size: 8, Style: fontstyle.Bold, Align: align.Right}
	value := props.Text{Size: 8, Align: align.Right}

	line := func(l, v string) core.Row {
		return row.New(7).Add(
			col.New(9).Add(text.New(l, label)).WithStyle(summaryCell),
			col.New(3).Add(text.New(v, value)).WithStyle(summaryCell),
		)
	}

	m.AddRows(line("Subtotal", money(e.Subtotal)))
	if e.DiscountAmount.IsPositive() {
		discountLabel := "Discount"
		if e.DiscountPercent.IsPositive() {
			discountLabel = fmt.Sprintf("Discount (%s%%)", e.DiscountPercent)
		}
		m.AddRows(line(discountLabel, "-"+money(e.DiscountAmount)))
	}
	m.AddRows(line("GST", money(e.TaxAmount)))

	grand := props.Text{Size: 9, Style: fontstyle.Bold, Align: align.Right, Color: white}
	grandCell := &props.Cell{BackgroundColor: charcoal}
	m.AddRows(
		row.New(8).Add(
			col.New(9).Add(text.New("Total", grand)).WithStyle(grandCell),
			col.New(3).Add(text.New(money(e.Total), grand)).WithStyle(grandCell),
		),
	)

	m.AddRows(row.New(3))
}

func addNotes(m core.Maroto, title, body string) {
	if strings.TrimSpace(body) == "" {
		return
	}

	m.AddRows(row.New(6).Add(col.New(12).Add(text.New(title, props.Text{
		Size:  7,
		Style: fontstyle.Bold,
		Align: align.Left,
		Color: grey,
	}))))

	for _, line := range strings.Split(body, "\n") {
		m.AddRows(row.New(5).Add(col.New(12).Add(text.New(strings.TrimRight(line, "\r"), props.Text{
			Size:  8,
			Align: align.Left,
		}))))
	}

	m.AddRows(row.New(3))
}

func joinNonEmpty(parts []string, sep string) string {
	kept := parts[:0:0]
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, sep)
}
