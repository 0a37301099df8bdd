package workbook

import (
	"errors"
	"io/fs"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

func utcDay(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// newForecastFile writes a minimal forecast workbook and returns its path.
func newForecastFile(t *testing.T) string {
	t.Helper()

	f := excelize.NewFile()
	defer f.Close()

	require.NoError(t, f.SetSheetName("Sheet1", "COMS Summary"))
	_, err := f.NewSheet(WeekTableSheet)
	require.NoError(t, err)
	_, err = f.NewSheet("Notes")
	require.NoError(t, err)

	rows := [][]interface{}{
		{"2024 weeks"},
		{"Day", "Week"},
		{utcDay(2024, 1, 1), "Week 1"},
		{utcDay(2024, 1, 8), "Week 2"},
		{"not a day", "Week 9"},
		{},
		{"2024-01-15", "Week 3"},
	}
	for i, r := range rows {
		row := r
		require.NoError(t, f.SetSheetRow(WeekTableSheet, cellName(1, i+1), &row))
	}

	path := filepath.Join(t.TempDir(), "forecast.xlsx")
	require.NoError(t, f.SaveAs(path))
	return path
}

func openForecast(t *testing.T, path string) *Workbook {
	t.Helper()
	wb, err := Open(path, RetryPolicy{Attempts: 1})
	require.NoError(t, err)
	t.Cleanup(func() { wb.Close() })
	return wb
}

func sampleRow(doc, amount string, eff, purchase forecast.Date) forecast.Row {
	return forecast.Row{
		ForecastTag:    "61199Week 2",
		EffectiveDate:  eff,
		DocumentNumber: doc,
		Amount:         decimal.RequireFromString(amount),
		PeriodLabel:    "Week 2",
		PurchaseDate:   purchase,
		PurchaseMonth:  purchase.Month(),
	}
}

func assertRowsEqual(t *testing.T, want, got []forecast.Row) {
	t.Helper()
	require.Len(t, got, len(want))
	for i := range want {
		assert.Equal(t, want[i].ForecastTag, got[i].ForecastTag, "row %d tag", i)
		assert.Equal(t, want[i].EffectiveDate, got[i].EffectiveDate, "row %d effective", i)
		assert.Equal(t, want[i].DocumentNumber, got[i].DocumentNumber, "row %d doc", i)
		assert.True(t, want[i].Amount.Equal(got[i].Amount), "row %d amount %s != %s", i, want[i].Amount, got[i].Amount)
		assert.Equal(t, want[i].PeriodLabel, got[i].PeriodLabel, "row %d label", i)
		assert.Equal(t, want[i].PurchaseDate, got[i].PurchaseDate, "row %d purchase", i)
		assert.Equal(t, want[i].PurchaseMonth, got[i].PurchaseMonth, "row %d month", i)
		assert.Equal(t, want[i].Comment, got[i].Comment, "row %d comment", i)
	}
}

func TestReadPeriodTable(t *testing.T) {
	wb := openForecast(t, newForecastFile(t))

	entries, err := wb.ReadPeriodTable()
	require.NoError(t, err)

	require.Len(t, entries, 3)
	assert.Equal(t, forecast.NewDate(2024, 1, 1), entries[0].Day)
	assert.Equal(t, "Week 1", entries[0].Label)
	assert.Equal(t, forecast.NewDate(2024, 1, 8), entries[1].Day)
	assert.Equal(t, forecast.NewDate(2024, 1, 15), entries[2].Day)
	assert.Equal(t, "Week 3", entries[2].Label)
}

func TestReadPeriodTableMissingSheet(t *testing.T) {
	f := excelize.NewFile()
	path := filepath.Join(t.TempDir(), "empty.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	wb := openForecast(t, path)
	_, err := wb.ReadPeriodTable()
	assert.ErrorIs(t, err, ErrSheetNotFound)
}

func TestGroupRoundTrip(t *testing.T) {
	path := newForecastFile(t)
	wb := openForecast(t, path)
	wb.SetInsertAfter("COMS Summary")

	usd := []forecast.Row{
		sampleRow("A1", "100", forecast.NewDate(2024, 1, 5), forecast.NewDate(2024, 1, 1)),
		sampleRow("B2", "-50.25", forecast.NewDate(2024, 1, 7), forecast.Date{}),
	}
	usd[1].ForecastTag = "61199PY"
	usd[1].PeriodLabel = ""
	usd[1].Comment = "check with AP"
	usd = append([]forecast.Row{sampleRow("Z9", "1", forecast.Date{}, forecast.NewDate(2023, 12, 30))}, usd...)

	require.NoError(t, wb.WriteGroup("COMS USD", usd))
	require.NoError(t, wb.WriteGroup("COMS CAD", nil))
	require.NoError(t, wb.Save())
	require.NoError(t, wb.Close())

	reopened := openForecast(t, path)
	assert.Equal(t,
		[]string{"COMS Summary", "COMS USD", "COMS CAD", WeekTableSheet, "Notes"},
		reopened.f.GetSheetList())

	got, err := reopened.ReadGroup("COMS USD")
	require.NoError(t, err)
	assertRowsEqual(t, usd, got)

	cad, err := reopened.ReadGroup("COMS CAD")
	require.NoError(t, err)
	assert.Empty(t, cad)

	header, err := reopened.f.GetRows("COMS USD")
	require.NoError(t, err)
	assert.Equal(t, GroupColumns, header[headerRow-1])
}

func TestWriteGroupReplacesRows(t *testing.T) {
	path := newForecastFile(t)
	wb := openForecast(t, path)

	many := []forecast.Row{
		sampleRow("A1", "1", forecast.NewDate(2024, 1, 1), forecast.NewDate(2024, 1, 1)),
		sampleRow("A2", "2", forecast.NewDate(2024, 1, 2), forecast.NewDate(2024, 1, 1)),
		sampleRow("A3", "3", forecast.NewDate(2024, 1, 3), forecast.NewDate(2024, 1, 1)),
	}
	require.NoError(t, wb.WriteGroup("COMS USD", many))
	require.NoError(t, wb.WriteGroup("COMS USD", many[2:]))

	got, err := wb.ReadGroup("COMS USD")
	require.NoError(t, err)
	assertRowsEqual(t, many[2:], got)

	all, err := wb.f.GetRows("COMS USD")
	require.NoError(t, err)
	assert.Len(t, all, firstDataRow)
}

func TestReadGroupMissingSheet(t *testing.T) {
	wb := openForecast(t, newForecastFile(t))

	rows, err := wb.ReadGroup("COMS EUR")
	require.NoError(t, err)
	assert.Empty(t, rows)
}

func TestReadSourceRecords(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", DetailsSheet))
	rows := [][]interface{}{
		{"Payee Nbr", "Payee Name", "Planned Issuance Date", "Trans Date", "Inv/CM #", "Net Amt"},
		{61199, "Dealer A", utcDay(2024, 1, 8), "2024-01-03", "INV1", 12.5},
		{},
		{125593, "Dealer B", "", "garbage", 4471, "n/a"},
	}
	for i, r := range rows {
		row := r
		require.NoError(t, f.SetSheetRow(DetailsSheet, cellName(1, i+1), &row))
	}
	path := filepath.Join(t.TempDir(), "KTM Issued-2024.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	records, err := src.ReadRecords()
	require.NoError(t, err)
	require.Len(t, records, 2)

	assert.Equal(t, "61199", records[0].GroupKey)
	assert.Equal(t, forecast.NewDate(2024, 1, 8), forecast.ParseDate(records[0].PlannedDate))
	assert.Equal(t, forecast.NewDate(2024, 1, 3), forecast.ParseDate(records[0].TransactionDate))
	assert.Equal(t, "INV1", records[0].DocumentNumber)
	assert.True(t, decimal.RequireFromString("12.5").Equal(records[0].Amount))

	assert.Equal(t, "125593", records[1].GroupKey)
	assert.True(t, forecast.ParseDate(records[1].PlannedDate).IsNull())
	assert.True(t, forecast.ParseDate(records[1].TransactionDate).IsNull())
	assert.Equal(t, "4471", records[1].DocumentNumber)
	assert.True(t, records[1].Amount.IsZero())
}

func TestReadSourceRecordsMissingColumn(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", DetailsSheet))
	header := []interface{}{"Payee Nbr", "Trans Date"}
	require.NoError(t, f.SetSheetRow(DetailsSheet, "A1", &header))
	path := filepath.Join(t.TempDir(), "export.xlsx")
	require.NoError(t, f.SaveAs(path))
	require.NoError(t, f.Close())

	src, err := OpenSource(path)
	require.NoError(t, err)
	defer src.Close()

	_, err = src.ReadRecords()
	assert.ErrorIs(t, err, ErrColumnNotFound)
}

func TestWithRetry(t *testing.T) {
	var slept int
	sleep = func(time.Duration) { slept++ }
	t.Cleanup(func() { sleep = time.Sleep })

	locked := &fs.PathError{Op: "open", Path: "forecast.xlsx", Err: fs.ErrPermission}

	t.Run("recovers after lock clears", func(t *testing.T) {
		slept = 0
		calls := 0
		err := withRetry(RetryPolicy{Attempts: 5}, "open", func() error {
			calls++
			if calls < 3 {
				return locked
			}
			return nil
		})
		assert.NoError(t, err)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, slept)
	})

	t.Run("gives up", func(t *testing.T) {
		slept = 0
		calls := 0
		err := withRetry(RetryPolicy{Attempts: 3}, "save", func() error {
			calls++
			return locked
		})
		assert.ErrorIs(t, err, ErrLocked)
		assert.Equal(t, 3, calls)
		assert.Equal(t, 2, slept)
	})

	t.Run("other errors are not retried", func(t *testing.T) {
		calls := 0
		boom := errors.New("corrupt")
		err := withRetry(RetryPolicy{Attempts: 3}, "open", func() error {
			calls++
			return boom
		})
		assert.Equal(t, boom, err)
		assert.Equal(t, 1, calls)
	})
}

func TestOpenMissingFile(t *testing.T) {
	_, err := Open(filepath.Join(t.TempDir(), "missing.xlsx"), RetryPolicy{Attempts: 2})
	require.Error(t, err)
	assert.ErrorIs(t, err, fs.ErrNotExist)
	assert.NotErrorIs(t, err, ErrLocked)
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		raw  string
		want string
		ok   bool
	}{
		{"1234.5599999999999", "1234.56", true},
		{"1234.56", "1234.56", true},
		{"1,234.50", "1234.5", true},
		{"-7", "-7", true},
		{"1e3", "1000", true},
		{"", "0", false},
		{"n/a", "0", false},
		{"NaN", "0", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := parseAmount(tt.raw)
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.want, got.String())
		})
	}
}

func TestAmountRoundTripKeepsDedupKey(t *testing.T) {
	f := excelize.NewFile()
	require.NoError(t, f.SetSheetName("Sheet1", DetailsSheet))
	header := []interface{}{"Payee Nbr", "Planned Issuance Date", "Trans Date", "Inv/CM #", "Net Amt"}
	require.NoError(t, f.SetSheetRow(DetailsSheet, "A1", &header))
	data := []interface{}{61199, "2024-01-08", "2024-01-03", "INV1"}
	require.NoError(t, f.SetSheetRow(DetailsSheet, "A2", &data))
	require.NoError(t, f.SetCellDefault(DetailsSheet, "E2", "1234.5599999999999"))
	srcPath := filepath.Join(t.TempDir(), "KTM Issued-0108.xlsx")
	require.NoError(t, f.SaveAs(srcPath))
	require.NoError(t, f.Close())

	src, err := OpenSource(srcPath)
	require.NoError(t, err)
	defer src.Close()
	records, err := src.ReadRecords()
	require.NoError(t, err)
	require.Len(t, records, 1)
	assert.Equal(t, "1234.56", records[0].Amount.String())

	lookup := forecast.BuildPeriodLookup([]forecast.PeriodEntry{
		{Day: forecast.NewDate(2024, 1, 8), Label: "Week 2"},
	})
	incoming := []forecast.Row{forecast.ClassifyRecord(records[0], lookup)}

	path := newForecastFile(t)
	wb := openForecast(t, path)
	require.NoError(t, wb.WriteGroup("COMS USD", incoming))
	require.NoError(t, wb.Save())
	require.NoError(t, wb.Close())

	prior, err := openForecast(t, path).ReadGroup("COMS USD")
	require.NoError(t, err)
	require.Len(t, prior, 1)
	assert.Equal(t, incoming[0].Key(), prior[0].Key())
	assert.Len(t, forecast.Reconcile("COMS USD", incoming, prior), 1, "re-running the same export adds nothing")
}

func TestExistingGroupSheetKeepsConfigOrder(t *testing.T) {
	path := newForecastFile(t)
	wb := openForecast(t, path)
	wb.SetInsertAfter("COMS Summary")
	require.NoError(t, wb.WriteGroup("COMS USD", nil))
	require.NoError(t, wb.Save())
	require.NoError(t, wb.Close())

	wb = openForecast(t, path)
	wb.SetInsertAfter("COMS Summary")
	require.NoError(t, wb.WriteGroup("COMS USD", nil))
	require.NoError(t, wb.WriteGroup("COMS CAD", nil))

	assert.Equal(t,
		[]string{"COMS Summary", "COMS USD", "COMS CAD", WeekTableSheet, "Notes"},
		wb.f.GetSheetList())
}

func TestGroupSheetsAppendWithoutAnchor(t *testing.T) {
	wb := openForecast(t, newForecastFile(t))
	wb.SetInsertAfter("Missing")
	require.NoError(t, wb.WriteGroup("COMS USD", nil))
	require.NoError(t, wb.WriteGroup("COMS CAD", nil))

	assert.Equal(t,
		[]string{"COMS Summary", WeekTableSheet, "Notes", "COMS USD", "COMS CAD"},
		wb.f.GetSheetList())
}
