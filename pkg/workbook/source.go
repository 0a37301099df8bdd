package workbook

import (
	"fmt"
	"log/slog"

	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

// Sheet and column names of the forecast workbook's reference table.
const (
	WeekTableSheet  = "Week Table"
	weekTableHeader = 2 // header row number
	weekDayColumn   = "Day"
	weekLabelColumn = "Week"
)

// Sheet and column names of the COMS export.
const (
	DetailsSheet         = "Details"
	payeeColumn          = "Payee Nbr"
	plannedDateColumn    = "Planned Issuance Date"
	transDateColumn      = "Trans Date"
	documentNumberColumn = "Inv/CM #"
	netAmountColumn      = "Net Amt"
)

// ReadPeriodTable reads the week table. Rows whose day cannot be parsed are
// skipped since they cannot key the lookup.
func (w *Workbook) ReadPeriodTable() ([]forecast.PeriodEntry, error) {
	rows, err := rawRows(w.f, WeekTableSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) < weekTableHeader {
		return nil, fmt.Errorf("%w: %q has no header row", ErrColumnNotFound, WeekTableSheet)
	}

	header := rows[weekTableHeader-1]
	dayCol, err := columnIndex(header, weekDayColumn)
	if err != nil {
		return nil, err
	}
	labelCol, err := columnIndex(header, weekLabelColumn)
	if err != nil {
		return nil, err
	}

	var entries []forecast.PeriodEntry
	skipped := 0
	for _, row := range rows[weekTableHeader:] {
		if blankRow(row) {
			continue
		}
		d := parseDate(cell(row, dayCol))
		if d.IsNull() {
			skipped++
			continue
		}
		entries = append(entries, forecast.PeriodEntry{Day: d, Label: cell(row, labelCol)})
	}

	if skipped > 0 {
		slog.Debug("Skipped week table rows without a valid day", "count", skipped)
	}

	return entries, nil
}

// SourceFile is an opened COMS export.
type SourceFile struct {
	f    *excelize.File
	path string
}

// OpenSource opens a COMS export for reading.
func OpenSource(path string) (*SourceFile, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open source file %s: %w", path, err)
	}
	return &SourceFile{f: f, path: path}, nil
}

// Path returns the export's file path.
func (s *SourceFile) Path() string {
	return s.path
}

// Close releases the export.
func (s *SourceFile) Close() error {
	return s.f.Close()
}

// ReadRecords reads every transaction on the Details sheet. Malformed
// amounts become zero; malformed dates are left for the classifier to null.
func (s *SourceFile) ReadRecords() ([]forecast.SourceRecord, error) {
	rows, err := rawRows(s.f, DetailsSheet)
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: %q has no header row", ErrColumnNotFound, DetailsSheet)
	}

	cols := map[string]int{}
	for _, name := range []string{payeeColumn, plannedDateColumn, transDateColumn, documentNumberColumn, netAmountColumn} {
		idx, err := columnIndex(rows[0], name)
		if err != nil {
			return nil, err
		}
		cols[name] = idx
	}

	var records []forecast.SourceRecord
	badAmounts := 0
	for _, row := range rows[1:] {
		if blankRow(row) {
			continue
		}
		amount, ok := parseAmount(cell(row, cols[netAmountColumn]))
		if !ok {
			badAmounts++
		}
		records = append(records, forecast.SourceRecord{
			GroupKey:        cell(row, cols[payeeColumn]),
			PlannedDate:     dateText(cell(row, cols[plannedDateColumn])),
			TransactionDate: dateText(cell(row, cols[transDateColumn])),
			DocumentNumber:  cell(row, cols[documentNumberColumn]),
			Amount:          amount,
		})
	}

	if badAmounts > 0 {
		slog.Debug("Source rows with unparseable amounts", "count", badAmounts)
	}

	return records, nil
}
