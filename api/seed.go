/*
seed.go - Demo data loader

PURPOSE:
  Seeds a small portfolio of policies with realistic installment
  schedules so the API can be exercised right after startup. Dev only;
  production data comes from policy issuance.

WHAT IT LOADS:
  - POL-1001: 12 monthly installments, first three months overdue
  - POL-1002: 6 installments, partially collected
  - POL-1003: 4 installments, fully settled

  Each installment gets a pre-registered proof reference so payments can
  be registered against the seeded data without a document upload step.
*/
package api

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/corredora/collections-engine/collections"
	"github.com/corredora/collections-engine/schedule"
)

// Seed loads demo policies and schedules into the store. Existing ids
// cause an error; call against a fresh database.
func Seed(ctx context.Context, store collections.TxStore, proofs ProofRegistry) error {
	today := collections.Day(time.Now().UTC())

	plans := []struct {
		policy collections.Policy
		plan   schedule.Plan
	}{
		{
			policy: collections.Policy{ID: "POL-1001", Currency: "ARS", TotalPremium: dec("120000.00")},
			plan: schedule.Plan{
				PolicyID:     "POL-1001",
				TotalPremium: dec("120000.00"),
				Installments: 12,
				FirstDueDate: today.AddDate(0, -3, 0),
				Notes:        "initial installment",
			},
		},
		{
			policy: collections.Policy{ID: "POL-1002", Currency: "USD", TotalPremium: dec("2400.00")},
			plan: schedule.Plan{
				PolicyID:     "POL-1002",
				TotalPremium: dec("2400.00"),
				Installments: 6,
				FirstDueDate: today.AddDate(0, -1, 0),
			},
		},
		{
			policy: collections.Policy{ID: "POL-1003", Currency: "ARS", TotalPremium: dec("48000.00")},
			plan: schedule.Plan{
				PolicyID:     "POL-1003",
				TotalPremium: dec("48000.00"),
				Installments: 4,
				FirstDueDate: today.AddDate(0, -4, 0),
			},
		},
	}

	for _, p := range plans {
		installments, err := schedule.Build(p.plan)
		if err != nil {
			return fmt.Errorf("failed to build schedule for %s: %w", p.policy.ID, err)
		}

		// POL-1003 is fully settled.
		if p.policy.ID == "POL-1003" {
			for i := range installments {
				paid := collections.Day(installments[i].DueDate)
				installments[i].AmountPaid = installments[i].AmountDue
				installments[i].Status = collections.StatusPaid
				installments[i].PaidDate = &paid
			}
		}
		// POL-1002's first installment is half collected.
		if p.policy.ID == "POL-1002" {
			installments[0].AmountPaid = installments[0].AmountDue.Div(decimal.NewFromInt(2)).Round(2)
			installments[0].Status = collections.StatusPartial
		}

		p.policy.CreatedAt = time.Now().UTC()
		err = store.WithTx(ctx, func(s collections.Store) error {
			if err := s.SavePolicy(ctx, p.policy); err != nil {
				return err
			}
			for _, inst := range installments {
				if err := s.SaveInstallment(ctx, inst); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			return fmt.Errorf("failed to seed %s: %w", p.policy.ID, err)
		}

		for _, inst := range installments {
			proofs.Register(inst.ID, fmt.Sprintf("doc-%s", inst.ID))
		}
	}
	return nil
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}
