// Package forecast reconciles transaction exports against rolling forecast
// tables. It holds the period lookup, the record classifier and the
// reconciler; none of them perform I/O.
package forecast

import (
	"strings"

	"github.com/shopspring/decimal"
)

// PYTag is appended to the group key when a record has no resolvable period.
const PYTag = "PY"

// weekPrefix is the label prefix stripped from period labels and re-added
// in front of the week number when building a forecast tag.
const weekPrefix = "Week "

// SourceRecord is one transaction from the incoming report.
// Date fields hold the raw text as exported; they are normalized during
// classification.
type SourceRecord struct {
	GroupKey        string
	PlannedDate     string
	TransactionDate string
	DocumentNumber  string
	Amount          decimal.Decimal
}

// Row is a forecast table row. Classified records, persisted rows and the
// reconciled output all share this shape.
type Row struct {
	ForecastTag    string
	EffectiveDate  Date
	DocumentNumber string
	Amount         decimal.Decimal
	PeriodLabel    string
	PurchaseDate   Date
	PurchaseMonth  int // 0 when PurchaseDate is null
	Comment        string
}

// DedupKey identifies one real-world transaction within a group.
type DedupKey struct {
	DocumentNumber string
	Amount         string
	PurchaseDate   Date
}

// Key returns the row's deduplication key. Amounts are compared by value,
// so 100 and 100.00 are the same key.
func (r Row) Key() DedupKey {
	return DedupKey{
		DocumentNumber: r.DocumentNumber,
		Amount:         r.Amount.String(),
		PurchaseDate:   r.PurchaseDate,
	}
}

// IsPriorPeriod reports whether the row carries the PY fallback tag.
func (r Row) IsPriorPeriod() bool {
	return strings.HasSuffix(r.ForecastTag, PYTag)
}

// NormalizeKey canonicalizes a group membership key. Spreadsheet exports
// sometimes render integral numbers as "61199.0"; those collapse to "61199".
func NormalizeKey(raw string) string {
	key := strings.TrimSpace(raw)
	if i := strings.IndexByte(key, '.'); i > 0 && strings.Trim(key[i+1:], "0") == "" {
		if _, err := decimal.NewFromString(key); err == nil {
			key = key[:i]
		}
	}
	return key
}
