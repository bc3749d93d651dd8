/*
stats.go - Dashboard aggregation

PURPOSE:
  Folds an installment set into dashboard totals: counts by effective
  status, outstanding balance across non-settled installments, and
  amounts collected today and in the current calendar month (grouped by
  paid date).

PURITY:
  No persistence, recomputed on each query. The same installment set and
  the same "today" always produce identical totals. The set is assumed
  already scoped to the caller's visibility by the authorization layer.
*/
package collections

import (
	"time"

	"github.com/shopspring/decimal"
)

// StatsSummary holds dashboard totals for an installment set.
type StatsSummary struct {
	Total            int
	Pending          int
	Partial          int
	Overdue          int
	Paid             int
	OutstandingTotal decimal.Decimal
	CollectedToday   decimal.Decimal
	CollectedMonth   decimal.Decimal
}

// Stats folds installments into a StatsSummary as of today. Collected
// totals group by paid date: an installment counts toward them once it is
// fully settled.
func Stats(installments []Installment, today time.Time) StatsSummary {
	summary := StatsSummary{
		Total:            len(installments),
		OutstandingTotal: decimal.Zero,
		CollectedToday:   decimal.Zero,
		CollectedMonth:   decimal.Zero,
	}

	for _, inst := range installments {
		switch EffectiveStatus(inst, today) {
		case StatusPending:
			summary.Pending++
		case StatusPartial:
			summary.Partial++
		case StatusOverdue:
			summary.Overdue++
		case StatusPaid:
			summary.Paid++
		}

		if !inst.IsSettled() {
			summary.OutstandingTotal = summary.OutstandingTotal.Add(inst.Outstanding())
			continue
		}
		if inst.PaidDate == nil {
			continue
		}
		if SameDay(*inst.PaidDate, today) {
			summary.CollectedToday = summary.CollectedToday.Add(inst.AmountPaid)
		}
		if SameMonth(*inst.PaidDate, today) {
			summary.CollectedMonth = summary.CollectedMonth.Add(inst.AmountPaid)
		}
	}
	return summary
}
