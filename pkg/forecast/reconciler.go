package forecast

import "sort"

// Reconcile merges the classified rows of group into the rows already stored
// for it and returns the group's complete, deduplicated row set ordered by
// effective date, oldest first. The result replaces the stored rows in full.
// Every group merges by the same rules; group only names the row set.
//
// Rows sharing a DedupKey are the same transaction; the one with the most
// recent effective date survives. On equal effective dates prior rows win
// over incoming ones, and earlier rows win within each input. Null
// effective dates order before every real date. If the survivor has no
// comment it inherits the first non-empty comment among its duplicates.
//
// Reconcile does not modify its arguments.
func Reconcile(group string, incoming, prior []Row) []Row {
	candidates := make([]Row, 0, len(prior)+len(incoming))
	candidates = append(candidates, prior...)
	candidates = append(candidates, incoming...)

	sort.SliceStable(candidates, func(i, j int) bool {
		return candidates[i].EffectiveDate.Compare(candidates[j].EffectiveDate) > 0
	})

	seen := make(map[DedupKey]int, len(candidates))
	final := make([]Row, 0, len(candidates))
	for _, row := range candidates {
		key := row.Key()
		if idx, ok := seen[key]; ok {
			if final[idx].Comment == "" && row.Comment != "" {
				final[idx].Comment = row.Comment
			}
			continue
		}
		seen[key] = len(final)
		final = append(final, row)
	}

	sort.SliceStable(final, func(i, j int) bool {
		return final[i].EffectiveDate.Compare(final[j].EffectiveDate) < 0
	})

	return final
}
