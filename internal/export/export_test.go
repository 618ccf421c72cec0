package export

import (
	"bytes"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/kinternationals/estimator/internal/pricing"
	"github.com/kinternationals/estimator/internal/store"
)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleDocument() EstimateDocument {
	validUntil := time.Date(2025, 7, 15, 0, 0, 0, 0, time.UTC)
	return EstimateDocument{
		CompanyName: "K Internationals",
		Customer: store.Customer{
			Name:    "Asha Rao",
			Email:   "asha@example.com",
			Phone:   "+91 98765 43210",
			City:    "Pune",
			Country: "India",
		},
		Estimate: store.Estimate{
			Number:              "EST-2025-0001",
			Title:               "Kitchen",
			Status:              store.StatusDraft,
			ShutterMaterialName: "Acrylic Finish",
			ValidUntil:          &validUntil,
			CreatedAt:           time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC),
			Subtotal:            dec("49508"),
			DiscountPercent:     dec("10"),
			DiscountAmount:      dec("4950.8"),
			TaxAmount:           dec("8020.3"),
			Total:               dec("52577.5"),
			Notes:               "Delivery in 4 weeks\nInstallation included",
			Terms:               "50% advance",
			Items: []store.EstimateItem{
				{
					Kind:        pricing.KindCabinet,
					Description: "Base Cabinet",
					Quantity:    dec("1"),
					Unit:        "piece",
					UnitPrice:   dec("49028"),
					TaxRate:     dec("18"),
					LineTotal:   dec("57853.04"),
					Height:      decimal.NewNullDecimal(dec("2020")),
					Width:       decimal.NewNullDecimal(dec("600")),
					Depth:       decimal.NewNullDecimal(dec("560")),
				},
				{
					Kind:        pricing.KindHardware,
					Description: "Soft Close Hinge",
					Quantity:    dec("4"),
					Unit:        "piece",
					UnitPrice:   dec("120"),
					TaxRate:     dec("18"),
					LineTotal:   dec("566.4"),
				},
			},
		},
	}
}

func TestEstimatePDF(t *testing.T) {
	out, err := EstimatePDF(sampleDocument())
	require.NoError(t, err)
	require.True(t, bytes.HasPrefix(out, []byte("%PDF-")), "result does not start with PDF header")
}

func TestEstimatePDF_NoItems(t *testing.T) {
	out, err := EstimatePDF(EstimateDocument{
		CompanyName: "K Internationals",
		Estimate:    store.Estimate{Number: "EST-2025-0002", Title: "Empty"},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, out)
}

func TestItemDescription(t *testing.T) {
	doc := sampleDocument()
	assert.Equal(t, "Base Cabinet (2020 x 600 x 560 mm)", itemDescription(doc.Estimate.Items[0]))
	assert.Equal(t, "Soft Close Hinge", itemDescription(doc.Estimate.Items[1]))

	shutter := store.EstimateItem{Kind: pricing.KindShutter, Description: "Acrylic", Area: decimal.NewNullDecimal(dec("12.5"))}
	assert.Equal(t, "Acrylic (12.5 sqft)", itemDescription(shutter))
}

func TestMoney(t *testing.T) {
	assert.Equal(t, "Rs. 1,23,456.70", money(dec("123456.7")))
}

func TestEstimatesExcel(t *testing.T) {
	rows := []store.EstimateSummary{
		{Number: "EST-2025-0001", Title: "Kitchen", CustomerName: "Asha Rao", Status: store.StatusAccepted,
			ItemCount: 2, Subtotal: dec("200"), DiscountAmount: dec("20"), TaxAmount: dec("32.4"), Total: dec("212.4")},
		{Number: "EST-2025-0002", Title: "=HYPERLINK(\"x\")", CustomerName: "Vikram Shah", Status: store.StatusDraft,
			ItemCount: 1, Subtotal: dec("100"), TaxAmount: dec("18"), Total: dec("118")},
	}

	out, err := EstimatesExcel(rows, time.Date(2025, 6, 15, 10, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{"Estimates"}, f.GetSheetList())

	header, err := f.GetCellValue(sheetName, "A4")
	require.NoError(t, err)
	assert.Equal(t, "Number", header)

	number, err := f.GetCellValue(sheetName, "A5")
	require.NoError(t, err)
	assert.Equal(t, "EST-2025-0001", number)

	title, err := f.GetCellValue(sheetName, "B6")
	require.NoError(t, err)
	assert.Equal(t, "'=HYPERLINK(\"x\")", title)

	formula, err := f.GetCellFormula(sheetName, "I7")
	require.NoError(t, err)
	assert.Equal(t, "SUM(I5:I6)", formula)
}

func TestEstimatesExcel_Empty(t *testing.T) {
	out, err := EstimatesExcel(nil, time.Now())
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(out))
	require.NoError(t, err)
	defer f.Close()

	formula, err := f.GetCellFormula(sheetName, "I5")
	require.NoError(t, err)
	assert.Empty(t, formula)
}

func TestSanitizeExcelCell(t *testing.T) {
	assert.Equal(t, "'+91 98765", sanitizeExcelCell("+91 98765"))
	assert.Equal(t, "Kitchen", sanitizeExcelCell("Kitchen"))
	assert.Equal(t, "", sanitizeExcelCell(""))
}
