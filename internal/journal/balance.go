package journal

import "sort"

// Recompute sorts the entries by date ascending (stable on ties, preserving
// creation order) and folds a running balance from the opening balance:
// balance_i = balance_{i-1} + income_i - expense_i. The input slice is not
// modified. Recomputation on every read is the invariant that keeps the
// balance chain correct across out-of-order edits and deletes.
func Recompute(entries []Entry, openingBalance int64) []Entry {
	out := make([]Entry, len(entries))
	copy(out, entries)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Date.Before(out[j].Date)
	})
	balance := openingBalance
	for i := range out {
		balance += out[i].Amount()
		out[i].RunningBalance = balance
	}
	return out
}
