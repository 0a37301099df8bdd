package workbook

import (
	"fmt"
	"unicode/utf8"

	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

// Group sheet layout: a merged note row, a header row, then data.
const (
	noteRow      = 1
	headerRow    = 2
	firstDataRow = 3
	maxColWidth  = 50
)

// GroupColumns is the fixed column order of a group sheet.
var GroupColumns = []string{
	"Current Forecast",
	"Issue Date",
	"Issue Number",
	"Net Amount",
	"Week",
	"Purchase Date",
	"Purchase Month",
	"Comment",
}

// ReadGroup returns the rows stored on a group's sheet. A group without a
// sheet has no rows yet.
func (w *Workbook) ReadGroup(name string) ([]forecast.Row, error) {
	if !hasSheet(w.f, name) {
		return nil, nil
	}

	rows, err := rawRows(w.f, name)
	if err != nil {
		return nil, err
	}
	if len(rows) < firstDataRow {
		return nil, nil
	}

	var out []forecast.Row
	for _, r := range rows[firstDataRow-1:] {
		if blankRow(r) {
			continue
		}
		amount, _ := parseAmount(cell(r, 3))
		out = append(out, forecast.Row{
			ForecastTag:    cell(r, 0),
			EffectiveDate:  parseDate(cell(r, 1)),
			DocumentNumber: cell(r, 2),
			Amount:         amount,
			PeriodLabel:    cell(r, 4),
			PurchaseDate:   parseDate(cell(r, 5)),
			PurchaseMonth:  parseMonth(cell(r, 6)),
			Comment:        cell(r, 7),
		})
	}

	return out, nil
}

// WriteGroup replaces the group's sheet content with rows, creating the
// sheet when needed.
func (w *Workbook) WriteGroup(name string, rows []forecast.Row) error {
	existing := 0
	if hasSheet(w.f, name) {
		old, err := w.f.GetRows(name)
		if err != nil {
			return fmt.Errorf("failed to read sheet %q: %w", name, err)
		}
		existing = len(old)
	} else if err := w.createSheet(name); err != nil {
		return err
	}
	if w.insertAt >= 0 {
		w.insertAt++
	}

	if err := w.writeNote(name); err != nil {
		return err
	}

	header := make([]interface{}, len(GroupColumns))
	widths := make([]int, len(GroupColumns))
	for i, h := range GroupColumns {
		header[i] = h
		widths[i] = utf8.RuneCountInString(h)
	}
	if err := w.f.SetSheetRow(name, cellName(1, headerRow), &header); err != nil {
		return fmt.Errorf("failed to write header of %q: %w", name, err)
	}

	for i, r := range rows {
		values := rowValues(r)
		if err := w.f.SetSheetRow(name, cellName(1, firstDataRow+i), &values); err != nil {
			return fmt.Errorf("failed to write row %d of %q: %w", i+1, name, err)
		}
		for c, text := range rowText(r) {
			if n := utf8.RuneCountInString(text); n > widths[c] {
				widths[c] = n
			}
		}
	}

	last := firstDataRow + len(rows) - 1
	for r := existing; r > last; r-- {
		if err := w.f.RemoveRow(name, r); err != nil {
			return fmt.Errorf("failed to remove row %d of %q: %w", r, name, err)
		}
	}

	if len(rows) > 0 {
		for _, col := range []int{2, 6} {
			if err := w.f.SetCellStyle(name, cellName(col, firstDataRow), cellName(col, last), w.dateStyle); err != nil {
				return fmt.Errorf("failed to style dates of %q: %w", name, err)
			}
		}
	}

	for c, width := range widths {
		col, _ := excelize.ColumnNumberToName(c + 1)
		if err := w.f.SetColWidth(name, col, col, float64(min(width+2, maxColWidth))); err != nil {
			return fmt.Errorf("failed to size column %s of %q: %w", col, name, err)
		}
	}

	return nil
}

// createSheet adds a sheet at the current insertion position.
func (w *Workbook) createSheet(name string) error {
	if _, err := w.f.NewSheet(name); err != nil {
		return fmt.Errorf("failed to create sheet %q: %w", name, err)
	}

	sheets := w.f.GetSheetList()
	if w.insertAt < 0 || w.insertAt >= len(sheets)-1 {
		return nil
	}
	if target := sheets[w.insertAt]; target != name {
		if err := w.f.MoveSheet(name, target); err != nil {
			return fmt.Errorf("failed to move sheet %q: %w", name, err)
		}
	}

	return nil
}

func (w *Workbook) writeNote(name string) error {
	first, last := cellName(1, noteRow), cellName(len(GroupColumns), noteRow)
	if err := w.f.UnmergeCell(name, first, last); err != nil {
		return fmt.Errorf("failed to unmerge note row of %q: %w", name, err)
	}
	if err := w.f.MergeCell(name, first, last); err != nil {
		return fmt.Errorf("failed to merge note row of %q: %w", name, err)
	}
	if err := w.f.SetCellValue(name, first, " "); err != nil {
		return fmt.Errorf("failed to write note of %q: %w", name, err)
	}
	if err := w.f.SetCellStyle(name, first, last, w.noteStyle); err != nil {
		return fmt.Errorf("failed to style note of %q: %w", name, err)
	}
	return nil
}

// rowValues renders a row in GroupColumns order. Null dates and months are
// written as blank cells.
func rowValues(r forecast.Row) []interface{} {
	values := []interface{}{
		r.ForecastTag,
		nil,
		r.DocumentNumber,
		r.Amount.InexactFloat64(),
		r.PeriodLabel,
		nil,
		nil,
		r.Comment,
	}
	if !r.EffectiveDate.IsNull() {
		values[1] = r.EffectiveDate.Time()
	}
	if !r.PurchaseDate.IsNull() {
		values[5] = r.PurchaseDate.Time()
	}
	if r.PurchaseMonth > 0 {
		values[6] = r.PurchaseMonth
	}
	return values
}

func rowText(r forecast.Row) []string {
	month := ""
	if r.PurchaseMonth > 0 {
		month = fmt.Sprint(r.PurchaseMonth)
	}
	return []string{
		r.ForecastTag,
		r.EffectiveDate.String(),
		r.DocumentNumber,
		r.Amount.String(),
		r.PeriodLabel,
		r.PurchaseDate.String(),
		month,
		r.Comment,
	}
}

func cellName(col, row int) string {
	name, _ := excelize.CoordinatesToCellName(col, row)
	return name
}
