package export

import (
	"bytes"
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/kinternationals/estimator/internal/store"
)

const (
	sheetName    = "Estimates"
	amountFormat = "#,##0.00"
)

// EstimatesExcel writes one row per estimate followed by a totals row.
// Amounts are numeric cells so the sheet can be summed and filtered.
func EstimatesExcel(rows []store.EstimateSummary, generated time.Time) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}

	columns := []string{"A", "B", "C", "D", "E", "F", "G", "H", "I", "J"}
	lastCol := columns[len(columns)-1]
	widths := []float64{16, 32, 24, 12, 12, 14, 14, 14, 16, 14}
	for i, c := range columns {
		if err := f.SetColWidth(sheetName, c, c, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", c, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"#333333"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}

	textStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}

	numFmt := amountFormat
	amountStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create amount style: %w", err)
	}

	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		CustomNumFmt: &numFmt,
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", "Estimates")
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)
	f.SetCellValue(sheetName, "A2", "Generated: "+generated.Format("2006-01-02 15:04"))

	headers := []string{"Number", "Title", "Customer", "Status", "Items", "Subtotal", "Discount", "Tax", "Total", "Created"}
	for i, h := range headers {
		f.SetCellValue(sheetName, columns[i]+"4", h)
	}
	f.SetCellStyle(sheetName, "A4", lastCol+"4", headerStyle)

	r := 5
	for _, e := range rows {
		n := fmt.Sprintf("%d", r)
		f.SetCellValue(sheetName, "A"+n, sanitizeExcelCell(e.Number))
		f.SetCellValue(sheetName, "B"+n, sanitizeExcelCell(e.Title))
		f.SetCellValue(sheetName, "C"+n, sanitizeExcelCell(e.CustomerName))
		f.SetCellValue(sheetName, "D"+n, string(e.Status))
		f.SetCellValue(sheetName, "E"+n, e.ItemCount)
		f.SetCellValue(sheetName, "F"+n, e.Subtotal.InexactFloat64())
		f.SetCellValue(sheetName, "G"+n, e.DiscountAmount.InexactFloat64())
		f.SetCellValue(sheetName, "H"+n, e.TaxAmount.InexactFloat64())
		f.SetCellValue(sheetName, "I"+n, e.Total.InexactFloat64())
		f.SetCellValue(sheetName, "J"+n, e.CreatedAt.Format("2006-01-02"))
		f.SetCellStyle(sheetName, "A"+n, lastCol+n, textStyle)
		f.SetCellStyle(sheetName, "F"+n, "I"+n, amountStyle)
		r++
	}

	if len(rows) > 0 {
		n := fmt.Sprintf("%d", r)
		f.SetCellValue(sheetName, "E"+n, "Total")
		for _, c := range []string{"F", "G", "H", "I"} {
			if err := f.SetCellFormula(sheetName, c+n, fmt.Sprintf("SUM(%s5:%s%d)", c, c, r-1)); err != nil {
				return nil, fmt.Errorf("set total formula %s: %w", c, err)
			}
		}
		f.SetCellStyle(sheetName, "E"+n, "I"+n, totalStyle)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}

	return buf.Bytes(), nil
}

// sanitizeExcelCell prevents formula injection by prefixing dangerous leading
// characters with a single quote.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

// thinBorders returns thin borders on all four sides.
func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{
			Type:  side,
			Color: "#000000",
			Style: 1,
		}
	}
	return borders
}
