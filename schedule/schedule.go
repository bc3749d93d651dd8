/*
Package schedule generates installment payment plans.

PURPOSE:
  Builds the installment schedule created at policy issuance: the total
  premium split across N installments with monthly due dates. The
  collections engine only mutates installments; this package is where
  they are born.

ROUNDING:
  Each installment gets the premium divided by N, rounded to cents; the
  first installment absorbs the rounding remainder so the schedule sums
  exactly to the premium.

USAGE:
  installments, err := schedule.Build(schedule.Plan{
      PolicyID:     "POL-001",
      TotalPremium: decimal.RequireFromString("1200.00"),
      Installments: 12,
      FirstDueDate: time.Date(2025, 1, 10, 0, 0, 0, 0, time.UTC),
  })
*/
package schedule

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corredora/collections-engine/collections"
)

// Plan describes the schedule to generate.
type Plan struct {
	PolicyID     collections.PolicyID
	TotalPremium decimal.Decimal
	Installments int
	FirstDueDate time.Time
	// Notes is applied to the first installment only, typically to flag a
	// special initial installment.
	Notes string
}

// Build generates a policy's installment schedule. Due dates advance
// monthly from FirstDueDate. Installment ids are derived from the policy
// id and the 1-based sequence.
func Build(p Plan) ([]collections.Installment, error) {
	if p.Installments <= 0 {
		return nil, fmt.Errorf("installment count must be positive, got %d", p.Installments)
	}
	if !p.TotalPremium.IsPositive() {
		return nil, fmt.Errorf("total premium must be positive, got %s", p.TotalPremium)
	}
	if p.FirstDueDate.IsZero() {
		return nil, fmt.Errorf("first due date is required")
	}

	n := int64(p.Installments)
	per := p.TotalPremium.DivRound(decimal.NewFromInt(n), 2)
	first := p.TotalPremium.Sub(per.Mul(decimal.NewFromInt(n - 1)))

	now := time.Now().UTC()
	out := make([]collections.Installment, 0, p.Installments)
	for i := 0; i < p.Installments; i++ {
		amount := per
		notes := ""
		if i == 0 {
			amount = first
			notes = p.Notes
		}
		out = append(out, collections.Installment{
			ID:         InstallmentID(p.PolicyID, i+1),
			PolicyID:   p.PolicyID,
			Sequence:   i + 1,
			AmountDue:  amount,
			AmountPaid: decimal.Zero,
			DueDate:    collections.Day(p.FirstDueDate.AddDate(0, i, 0)),
			Status:     collections.StatusPending,
			Notes:      notes,
			CreatedAt:  now,
		})
	}
	return out, nil
}

// InstallmentID derives the id for a policy's installment at the given
// 1-based sequence.
func InstallmentID(policyID collections.PolicyID, sequence int) collections.InstallmentID {
	return collections.InstallmentID(fmt.Sprintf("%s-c%02d", policyID, sequence))
}
