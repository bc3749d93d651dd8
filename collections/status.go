/*
status.go - Effective status derivation

PURPOSE:
  Derives an installment's effective status from its persisted status and
  the current date. "Overdue" is a view, not a stored state: a partially
  paid installment past its due date is reported as overdue, not partial.

RULE (first match wins):
  1. persisted status paid       -> paid
  2. due date before today       -> overdue
  3. otherwise                   -> persisted status (pending or partial)

PURITY:
  No side effects, no caching. Callers pass "today" explicitly and must
  derive fresh on every read. The sqlite store's overdue_flag column is a
  materialized query aid only; it never feeds this function.

SEE ALSO:
  - stats.go: Aggregates over effective statuses
  - api/refresher.go: Periodic overdue_flag materialization
*/
package collections

import "time"

// CollectionNoticeThreshold is the number of overdue installments at which
// a policy requires a collections letter.
const CollectionNoticeThreshold = 3

// EffectiveStatus derives the status reported to users. It is a pure
// function of (persisted status, due date, today) and never returns
// StatusOverdue for a settled installment, regardless of due date.
func EffectiveStatus(inst Installment, today time.Time) Status {
	if inst.Status == StatusPaid {
		return StatusPaid
	}
	if Day(inst.DueDate).Before(Day(today)) {
		return StatusOverdue
	}
	return inst.Status
}

// OverdueCount returns how many of the given installments are effectively
// overdue as of today.
func OverdueCount(installments []Installment, today time.Time) int {
	n := 0
	for _, inst := range installments {
		if EffectiveStatus(inst, today) == StatusOverdue {
			n++
		}
	}
	return n
}

// NeedsCollectionNotice reports whether a policy's installment set has
// crossed the collections-letter threshold.
func NeedsCollectionNotice(installments []Installment, today time.Time) bool {
	return OverdueCount(installments, today) >= CollectionNoticeThreshold
}
