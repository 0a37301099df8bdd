package forecast

// PeriodEntry is one row of the reference table.
type PeriodEntry struct {
	Day   Date
	Label string
}

// PeriodLookup maps a calendar day to its forecast period label.
// It is immutable once built.
type PeriodLookup struct {
	labels map[Date]string
}

// BuildPeriodLookup builds a lookup from reference rows.
// Entries with a null day are skipped. When a day appears more than once the
// last entry wins.
func BuildPeriodLookup(entries []PeriodEntry) *PeriodLookup {
	labels := make(map[Date]string, len(entries))
	for _, e := range entries {
		if e.Day.IsNull() {
			continue
		}
		labels[e.Day] = e.Label
	}
	return &PeriodLookup{labels: labels}
}

// Resolve returns the period label for d. A null date or a date outside the
// table reports ok == false; that is an expected outcome, not an error.
func (l *PeriodLookup) Resolve(d Date) (label string, ok bool) {
	if l == nil || d.IsNull() {
		return "", false
	}
	label, ok = l.labels[d]
	return label, ok
}

// Len returns the number of distinct days in the lookup.
func (l *PeriodLookup) Len() int {
	if l == nil {
		return 0
	}
	return len(l.labels)
}
