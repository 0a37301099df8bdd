package forecast

import "strings"

// Classify partitions source records into groups by membership key and
// derives each record's forecast row. Every defined group is present in the
// result, empty when no record belongs to it. Records whose key matches no
// group are left out; no other record is dropped.
func Classify(records []SourceRecord, defs *GroupDefinitions, lookup *PeriodLookup) map[string][]Row {
	out := make(map[string][]Row, len(defs.Groups))
	for _, g := range defs.Groups {
		out[g.Name] = []Row{}
	}

	members := defs.membership()
	for _, rec := range records {
		name, ok := members[NormalizeKey(rec.GroupKey)]
		if !ok {
			continue
		}
		out[name] = append(out[name], ClassifyRecord(rec, lookup))
	}

	return out
}

// ClassifyRecord derives a forecast row from a single source record.
func ClassifyRecord(rec SourceRecord, lookup *PeriodLookup) Row {
	key := NormalizeKey(rec.GroupKey)
	effective := ParseDate(rec.PlannedDate)
	purchase := ParseDate(rec.TransactionDate)
	label, ok := lookup.Resolve(effective)

	return Row{
		ForecastTag:    ForecastTag(key, label, ok),
		EffectiveDate:  effective,
		DocumentNumber: strings.TrimSpace(rec.DocumentNumber),
		Amount:         rec.Amount,
		PeriodLabel:    label,
		PurchaseDate:   purchase,
		PurchaseMonth:  purchase.Month(),
	}
}

// ForecastTag builds the tag for a group key. A resolved label contributes
// "Week " plus its week number, whether or not the label already carries
// the prefix; an unresolved one yields the PY fallback.
//
//	ForecastTag("61199", "Week 2", true) == "61199Week 2"
//	ForecastTag("61199", "2", true)      == "61199Week 2"
//	ForecastTag("61199", "", false)      == "61199PY"
func ForecastTag(groupKey, label string, resolved bool) string {
	if !resolved {
		return groupKey + PYTag
	}
	return groupKey + weekPrefix + strings.ReplaceAll(label, weekPrefix, "")
}
