// Package workbook binds forecast data to Excel workbooks: the forecast
// workbook holding the week table and one sheet per group, and the COMS
// export holding the source transactions.
package workbook

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	// ErrSheetNotFound is returned when a required sheet is missing.
	ErrSheetNotFound = errors.New("sheet not found")
	// ErrColumnNotFound is returned when a required header is missing.
	ErrColumnNotFound = errors.New("column not found")
	// ErrLocked is returned when the workbook stays locked after every retry.
	ErrLocked = errors.New("workbook is locked")
)

// RetryPolicy controls how often a locked workbook is retried.
type RetryPolicy struct {
	Attempts int
	Delay    time.Duration
}

// DefaultRetryPolicy retries five times, two seconds apart.
var DefaultRetryPolicy = RetryPolicy{Attempts: 5, Delay: 2 * time.Second}

// sleep is replaced in tests.
var sleep = time.Sleep

// withRetry runs fn until it succeeds, fails with a non-permission error,
// or the policy is exhausted.
func withRetry(policy RetryPolicy, op string, fn func() error) error {
	attempts := policy.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 1; attempt <= attempts; attempt++ {
		err = fn()
		if err == nil || !errors.Is(err, fs.ErrPermission) {
			return err
		}
		slog.Debug("Workbook locked, retrying", "op", op, "attempt", attempt, "error", err)
		if attempt < attempts {
			sleep(policy.Delay)
		}
	}

	return fmt.Errorf("%w: %s after %d attempts: %v", ErrLocked, op, attempts, err)
}

// Workbook is an open forecast workbook.
type Workbook struct {
	f         *excelize.File
	path      string
	retry     RetryPolicy
	insertAt  int // sheet position of the next group sheet, -1 appends
	dateStyle int
	noteStyle int
}

// Open opens the forecast workbook at path, retrying while it is locked.
func Open(path string, retry RetryPolicy) (*Workbook, error) {
	var f *excelize.File
	err := withRetry(retry, "open", func() error {
		var openErr error
		f, openErr = excelize.OpenFile(path)
		return openErr
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}

	w := &Workbook{f: f, path: path, retry: retry, insertAt: -1}
	if err := w.initStyles(); err != nil {
		f.Close()
		return nil, err
	}

	return w, nil
}

func (w *Workbook) initStyles() error {
	var err error
	w.dateStyle, err = w.f.NewStyle(&excelize.Style{NumFmt: 14})
	if err != nil {
		return fmt.Errorf("failed to create date style: %w", err)
	}

	w.noteStyle, err = w.f.NewStyle(&excelize.Style{
		Fill:      excelize.Fill{Type: "pattern", Pattern: 1, Color: []string{"FFFF00"}},
		Font:      &excelize.Font{Bold: true, Color: "FF0000"},
		Alignment: &excelize.Alignment{Horizontal: "center", WrapText: true},
	})
	if err != nil {
		return fmt.Errorf("failed to create note style: %w", err)
	}

	return nil
}

// Path returns the workbook file path.
func (w *Workbook) Path() string {
	return w.path
}

// SetInsertAfter places group sheets after the named sheet. Each written
// group takes the next position, whether its sheet is new or not, so groups
// keep configuration order. Without the sheet, new group sheets are appended.
func (w *Workbook) SetInsertAfter(sheet string) {
	w.insertAt = -1
	for i, s := range w.f.GetSheetList() {
		if s == sheet {
			w.insertAt = i + 1
			break
		}
	}
}

// Save writes the workbook back to its path, retrying while it is locked.
func (w *Workbook) Save() error {
	if err := withRetry(w.retry, "save", func() error { return w.f.Save() }); err != nil {
		return fmt.Errorf("failed to save workbook %s: %w", w.path, err)
	}
	return nil
}

// Close releases the workbook.
func (w *Workbook) Close() error {
	return w.f.Close()
}

// hasSheet reports whether the workbook contains the named sheet.
func hasSheet(f *excelize.File, name string) bool {
	idx, err := f.GetSheetIndex(name)
	return err == nil && idx >= 0
}
