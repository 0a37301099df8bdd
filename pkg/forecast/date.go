package forecast

import (
	"strings"
	"time"

	"cloud.google.com/go/civil"
)

// Date is a calendar day with the time of day discarded.
// The zero value is the null date, used for missing or unparseable input.
type Date struct {
	day   civil.Date
	valid bool
}

// dateLayouts are the text forms accepted by ParseDate, tried in order.
var dateLayouts = []string{
	"2006-01-02",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05",
	time.RFC3339,
	"2006/01/02",
	"01/02/2006",
	"1/2/2006",
	"01/02/2006 15:04:05",
	"1/2/2006 15:04:05",
	"1/2/06",
}

// NewDate returns the date for year, month and day.
// An impossible day such as February 30 yields the null date.
func NewDate(year int, month time.Month, day int) Date {
	d := civil.Date{Year: year, Month: month, Day: day}
	if !d.IsValid() {
		return Date{}
	}
	return Date{day: d, valid: true}
}

// DateOf normalizes a timestamp to its calendar day in the timestamp's location.
func DateOf(t time.Time) Date {
	if t.IsZero() {
		return Date{}
	}
	return Date{day: civil.DateOf(t), valid: true}
}

// ParseDate normalizes raw date text. Parse failures return the null date.
func ParseDate(raw string) Date {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return Date{}
	}
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, raw)
		if err == nil {
			return DateOf(t)
		}
	}
	return Date{}
}

// IsNull reports whether d is the null date.
func (d Date) IsNull() bool {
	return !d.valid
}

// Month returns the calendar month (1-12), or 0 for the null date.
func (d Date) Month() int {
	if !d.valid {
		return 0
	}
	return int(d.day.Month)
}

// Time returns midnight UTC of d, or the zero time for the null date.
func (d Date) Time() time.Time {
	if !d.valid {
		return time.Time{}
	}
	return d.day.In(time.UTC)
}

// Compare orders dates with the null date earliest.
// It returns -1, 0 or +1.
func (d Date) Compare(o Date) int {
	switch {
	case !d.valid && !o.valid:
		return 0
	case !d.valid:
		return -1
	case !o.valid:
		return 1
	case d.day.Before(o.day):
		return -1
	case d.day.After(o.day):
		return 1
	}
	return 0
}

// String returns YYYY-MM-DD, or "" for the null date.
func (d Date) String() string {
	if !d.valid {
		return ""
	}
	return d.day.String()
}
