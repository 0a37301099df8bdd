package workbook

import (
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

// rawRows returns the sheet's unformatted cell values, so dates come back
// as Excel serial numbers rather than display text.
func rawRows(f *excelize.File, sheet string) ([][]string, error) {
	if !hasSheet(f, sheet) {
		return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, sheet)
	}
	rows, err := f.GetRows(sheet, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, fmt.Errorf("failed to read sheet %q: %w", sheet, err)
	}
	return rows, nil
}

// columnIndex finds a header by name, ignoring case and surrounding space.
func columnIndex(header []string, name string) (int, error) {
	for i, h := range header {
		if strings.EqualFold(strings.TrimSpace(h), name) {
			return i, nil
		}
	}
	return -1, fmt.Errorf("%w: %q", ErrColumnNotFound, name)
}

// cell returns row[i] trimmed, or "" when the row is short.
func cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return strings.TrimSpace(row[i])
}

// blankRow reports whether every cell is empty.
func blankRow(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}

// dateText converts an Excel serial to timestamp text and passes any other
// value through unchanged, leaving parsing to forecast.ParseDate.
func dateText(raw string) string {
	serial, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return raw
	}
	t, err := excelize.ExcelDateToTime(serial, false)
	if err != nil {
		return raw
	}
	return t.Format("2006-01-02 15:04:05")
}

func parseDate(raw string) forecast.Date {
	return forecast.ParseDate(dateText(raw))
}

// parseAmount parses a numeric cell. Cells hold IEEE doubles, often
// serialized with 17 significant digits, so the value is taken through
// float64 and kept in its shortest form: 1234.5599999999999 and 1234.56 are
// the same amount. Blank or malformed values are zero and reported with
// ok == false.
func parseAmount(raw string) (amount decimal.Decimal, ok bool) {
	raw = strings.ReplaceAll(strings.TrimSpace(raw), ",", "")
	if raw == "" {
		return decimal.Zero, false
	}
	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return decimal.Zero, false
	}
	return decimal.NewFromFloat(f), true
}

func parseMonth(raw string) int {
	f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil || f < 1 || f > 12 {
		return 0
	}
	return int(f)
}
