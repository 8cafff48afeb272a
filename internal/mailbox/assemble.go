package mailbox

import "sort"

// assemble orders a batch of normalized records by date, newest first,
// and caps it at limit. The sort is stable so records with equal dates
// keep their fetch order, and zero (missing/unparseable) dates sort
// last. The cap is applied after normalization: parse failures may
// have shrunk the batch below the identifier-selection limit, and the
// two limits are deliberately independent.
func assemble(summaries []EmailSummary, limit int) []EmailSummary {
	sort.SliceStable(summaries, func(i, j int) bool {
		di, dj := summaries[i].Date, summaries[j].Date
		if di.IsZero() {
			return false
		}
		if dj.IsZero() {
			return true
		}
		return di.After(dj)
	})

	if limit > 0 && len(summaries) > limit {
		summaries = summaries[:limit]
	}
	return summaries
}
