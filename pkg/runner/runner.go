// Package runner drives one reconciliation run: it loads the period table and
// the source export, classifies the records, and reconciles every group
// against its stored rows.
package runner

import (
	"fmt"
	"log/slog"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

// Collaborator names used in CollaboratorError.
const (
	CollaboratorPeriodTable = "period table reader"
	CollaboratorSource      = "source record reader"
	CollaboratorStoreRead   = "group store reader"
	CollaboratorStoreWrite  = "group store writer"
)

// PeriodTableReader supplies the reference table for the period lookup.
type PeriodTableReader interface {
	ReadPeriodTable() ([]forecast.PeriodEntry, error)
}

// SourceReader supplies the run's source records.
type SourceReader interface {
	ReadRecords() ([]forecast.SourceRecord, error)
}

// GroupStore reads and fully replaces a group's persisted rows.
type GroupStore interface {
	ReadGroup(name string) ([]forecast.Row, error)
	WriteGroup(name string, rows []forecast.Row) error
}

// CollaboratorError identifies the collaborator that aborted a run.
type CollaboratorError struct {
	Collaborator string
	Group        string
	Err          error
}

func (e *CollaboratorError) Error() string {
	if e.Group != "" {
		return fmt.Sprintf("%s failed for group %q: %v", e.Collaborator, e.Group, e.Err)
	}
	return fmt.Sprintf("%s failed: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error {
	return e.Err
}

// Inputs are the collaborators of a single run.
type Inputs struct {
	Periods PeriodTableReader
	Source  SourceReader
	Store   GroupStore
	// DryRun computes every group's final rows without writing them.
	DryRun bool
}

// GroupReport summarizes one group's reconciliation.
type GroupReport struct {
	Name     string
	Prior    int
	Incoming int
	Final    int
	Added    int // Final - Prior
	PY       int // final rows carrying the PY fallback tag
	Rows     []forecast.Row
}

// Report summarizes a run.
type Report struct {
	PeriodDays    int
	SourceRecords int
	Unassigned    int // source records matching no group
	Groups        []GroupReport
}

// Runner reconciles source exports into the configured groups.
type Runner struct {
	groups *forecast.GroupDefinitions
}

// New creates a Runner for the given group definitions.
func New(groups *forecast.GroupDefinitions) *Runner {
	return &Runner{groups: groups}
}

// Run performs a full reconciliation. Every group is read and reconciled
// before any group is written, so an error aborts the run with nothing
// written. Groups are processed in configuration order.
func (r *Runner) Run(in Inputs) (*Report, error) {
	entries, err := in.Periods.ReadPeriodTable()
	if err != nil {
		return nil, &CollaboratorError{Collaborator: CollaboratorPeriodTable, Err: err}
	}
	lookup := forecast.BuildPeriodLookup(entries)
	slog.Info("Loaded period table", "days", lookup.Len())

	records, err := in.Source.ReadRecords()
	if err != nil {
		return nil, &CollaboratorError{Collaborator: CollaboratorSource, Err: err}
	}
	slog.Info("Loaded source records", "count", len(records))

	classified := forecast.Classify(records, r.groups, lookup)

	report := &Report{
		PeriodDays:    lookup.Len(),
		SourceRecords: len(records),
		Unassigned:    len(records),
	}

	for _, name := range r.groups.Names() {
		incoming := classified[name]
		report.Unassigned -= len(incoming)

		prior, err := in.Store.ReadGroup(name)
		if err != nil {
			return nil, &CollaboratorError{Collaborator: CollaboratorStoreRead, Group: name, Err: err}
		}

		final := forecast.Reconcile(name, incoming, prior)
		gr := GroupReport{
			Name:     name,
			Prior:    len(prior),
			Incoming: len(incoming),
			Final:    len(final),
			Added:    len(final) - len(prior),
			Rows:     final,
		}
		for _, row := range final {
			if row.IsPriorPeriod() {
				gr.PY++
			}
		}

		slog.Info("Reconciled group",
			"group", name,
			"prior", gr.Prior,
			"incoming", gr.Incoming,
			"final", gr.Final,
			"added", gr.Added,
			"py", gr.PY,
		)
		report.Groups = append(report.Groups, gr)
	}

	if report.Unassigned > 0 {
		slog.Debug("Source records outside every group", "count", report.Unassigned)
	}

	if in.DryRun {
		return report, nil
	}

	for _, gr := range report.Groups {
		if err := in.Store.WriteGroup(gr.Name, gr.Rows); err != nil {
			return nil, &CollaboratorError{Collaborator: CollaboratorStoreWrite, Group: gr.Name, Err: err}
		}
	}

	return report, nil
}
