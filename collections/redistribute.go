/*
redistribute.go - Excess redistribution protocol

PURPOSE:
  When a payment exceeds what was due on an installment, the excess is
  reallocated across the policy's other outstanding installments. The
  caller builds a candidate set, produces allocations (equal split or
  manual), and applies them atomically.

THE EXACT-SUM INVARIANT:
  ApplyRedistribution accepts an allocation set only if its total equals
  the excess amount within 0.01 currency units. Redistributed money must
  be fully and exactly accounted for: no excess may vanish or be
  double-counted.

CANDIDATES:
  Every non-settled installment on the same policy except the source is
  eligible, whatever its effective status. A partially paid candidate
  only offers its remaining gap, never its scheduled amount.

ATOMICITY AND LOCK ORDER:
  All allocations within one ApplyRedistribution call commit or none do.
  Targets are visited in ascending installment id so two racing
  redistributions on the same policy cannot deadlock.

PROVENANCE:
  Each application is a bona fide payment event: it runs through the same
  application path as a registered payment, carries a note referencing
  the originating installment, and reuses the source payment's proof
  reference instead of a new external document.
*/
package collections

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REDISTRIBUTOR
// =============================================================================

// Redistributor validates and applies excess allocations.
type Redistributor struct {
	store TxStore
}

// NewRedistributor creates an excess redistributor.
func NewRedistributor(store TxStore) *Redistributor {
	return &Redistributor{store: store}
}

// Candidate is one installment eligible to receive part of an excess.
// Outstanding is its current remaining balance, the most it can accept.
type Candidate struct {
	InstallmentID InstallmentID
	Sequence      int
	DueDate       time.Time
	Status        Status // effective status at build time, for display
	Outstanding   decimal.Decimal
}

// Allocation assigns part of an excess to one installment.
type Allocation struct {
	InstallmentID InstallmentID
	Amount        decimal.Decimal
}

// AppliedAllocation reports the effect of one applied allocation.
type AppliedAllocation struct {
	InstallmentID    InstallmentID
	AmountOriginal   decimal.Decimal // outstanding balance before
	AmountApplied    decimal.Decimal
	ResultingBalance decimal.Decimal
	Status           Status
}

// RedistributionResult is the outcome of one ApplyRedistribution call.
type RedistributionResult struct {
	SourceInstallmentID InstallmentID
	ExcessAmount        decimal.Decimal
	AppliedTotal        decimal.Decimal
	Results             []AppliedAllocation
}

// =============================================================================
// CANDIDATE SET
// =============================================================================

// BuildCandidateSet returns every installment on the policy except the
// source, excluding settled ones (they have no balance left to receive
// funds). Returns ErrNoRedistributionTargets when the set is empty so
// callers can tell "nothing to redistribute to" from a validation failure.
func (r *Redistributor) BuildCandidateSet(ctx context.Context, policyID PolicyID, sourceID InstallmentID, today time.Time) ([]Candidate, error) {
	if _, err := r.store.GetPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	installments, err := r.store.ListByPolicy(ctx, policyID)
	if err != nil {
		return nil, err
	}

	var candidates []Candidate
	for _, inst := range installments {
		if inst.ID == sourceID || inst.IsSettled() {
			continue
		}
		candidates = append(candidates, Candidate{
			InstallmentID: inst.ID,
			Sequence:      inst.Sequence,
			DueDate:       inst.DueDate,
			Status:        EffectiveStatus(inst, today),
			Outstanding:   inst.Outstanding(),
		})
	}
	if len(candidates) == 0 {
		return nil, ErrNoRedistributionTargets
	}
	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].Sequence < candidates[j].Sequence
	})
	return candidates, nil
}

// =============================================================================
// ALLOCATION STRATEGIES
// =============================================================================

// EqualSplit divides an excess evenly across the selected candidates,
// capping each share at the candidate's outstanding balance. Caps can
// leave a remainder unapplied; the caller is expected to re-run or adjust
// manually. The returned allocations plus the remainder always account
// for the full excess.
func EqualSplit(excess decimal.Decimal, candidates []Candidate) ([]Allocation, decimal.Decimal) {
	if len(candidates) == 0 || !excess.IsPositive() {
		return nil, excess
	}

	share := excess.DivRound(decimal.NewFromInt(int64(len(candidates))), 2)
	allocations := make([]Allocation, 0, len(candidates))
	left := excess
	for i, c := range candidates {
		want := share
		if i == len(candidates)-1 {
			want = left // last share absorbs rounding drift
		}
		amount := decimal.Min(want, c.Outstanding, left)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		allocations = append(allocations, Allocation{InstallmentID: c.InstallmentID, Amount: amount})
		left = left.Sub(amount)
	}
	return allocations, left
}

// ManualAllocations builds allocations from caller-supplied amounts, each
// independently capped at min(supplied, outstanding). Candidates without a
// supplied amount receive zero.
func ManualAllocations(candidates []Candidate, supplied map[InstallmentID]decimal.Decimal) []Allocation {
	allocations := make([]Allocation, 0, len(candidates))
	for _, c := range candidates {
		amount := decimal.Min(supplied[c.InstallmentID], c.Outstanding)
		if amount.IsNegative() {
			amount = decimal.Zero
		}
		allocations = append(allocations, Allocation{InstallmentID: c.InstallmentID, Amount: amount})
	}
	return allocations
}

// =============================================================================
// APPLY
// =============================================================================

// ApplyRedistributionInput carries one validated-and-applied redistribution.
type ApplyRedistributionInput struct {
	PolicyID            PolicyID
	SourceInstallmentID InstallmentID
	ExcessAmount        decimal.Decimal
	Allocations         []Allocation
	PaymentDate         time.Time
	ProofReference      string // the originating payment's proof
	Actor               string
}

// ApplyRedistribution validates the allocation set against the exact-sum
// invariant and applies every positive allocation as a payment event.
// All target installments update, or none do.
func (r *Redistributor) ApplyRedistribution(ctx context.Context, in ApplyRedistributionInput) (*RedistributionResult, error) {
	if !in.ExcessAmount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}

	total := decimal.Zero
	positive := 0
	for _, a := range in.Allocations {
		if a.Amount.IsNegative() {
			return nil, fmt.Errorf("%w: allocation for %s is negative", ErrNonPositiveAmount, a.InstallmentID)
		}
		if a.Amount.IsPositive() {
			positive++
		}
		total = total.Add(a.Amount)
	}
	if positive == 0 {
		return nil, ErrEmptyAllocation
	}
	if !WithinTolerance(total, in.ExcessAmount) {
		return nil, &AllocationSumError{Excess: in.ExcessAmount, Allocated: total}
	}

	// Consistent lock ordering across racing redistributions.
	ordered := make([]Allocation, len(in.Allocations))
	copy(ordered, in.Allocations)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].InstallmentID < ordered[j].InstallmentID
	})

	note := fmt.Sprintf("excess redistribution from installment %s", in.SourceInstallmentID)
	if in.Actor != "" {
		note = fmt.Sprintf("%s (by %s)", note, in.Actor)
	}

	result := &RedistributionResult{
		SourceInstallmentID: in.SourceInstallmentID,
		ExcessAmount:        in.ExcessAmount,
		AppliedTotal:        decimal.Zero,
	}
	err := r.store.WithTx(ctx, func(s Store) error {
		for _, a := range ordered {
			if !a.Amount.IsPositive() {
				continue
			}
			inst, err := s.GetInstallment(ctx, a.InstallmentID)
			if err != nil {
				return err
			}
			if inst.PolicyID != in.PolicyID || inst.ID == in.SourceInstallmentID {
				return fmt.Errorf("%w: %s is not a sibling of %s", ErrInstallmentNotFound, a.InstallmentID, in.SourceInstallmentID)
			}
			if inst.IsSettled() {
				return fmt.Errorf("%w: %s", ErrAlreadySettled, inst.ID)
			}
			before := inst.Outstanding()
			if a.Amount.GreaterThan(before.Add(Tolerance)) {
				return &OverAllocationError{InstallmentID: inst.ID, Outstanding: before, Requested: a.Amount}
			}

			applied, err := applyPayment(ctx, s, inst, a.Amount, in.PaymentDate, note, in.ProofReference)
			if err != nil {
				return err
			}
			result.Results = append(result.Results, AppliedAllocation{
				InstallmentID:    inst.ID,
				AmountOriginal:   before,
				AmountApplied:    applied.AmountApplied,
				ResultingBalance: inst.Outstanding(),
				Status:           inst.Status,
			})
			result.AppliedTotal = result.AppliedTotal.Add(applied.AmountApplied)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// UNATTRIBUTED CREDIT
// =============================================================================

// RecordUnattributedCredit keeps an excess visible when the policy has no
// installment left to receive it. Recording an explicit credit prevents
// the amount from being silently discarded.
func (r *Redistributor) RecordUnattributedCredit(ctx context.Context, policyID PolicyID, sourceID InstallmentID, amount decimal.Decimal, notes string) (*UnattributedCredit, error) {
	if !amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if _, err := r.store.GetPolicy(ctx, policyID); err != nil {
		return nil, err
	}
	credit := UnattributedCredit{
		ID:                  uuid.NewString(),
		PolicyID:            policyID,
		SourceInstallmentID: sourceID,
		Amount:              amount,
		Notes:               notes,
		CreatedAt:           time.Now().UTC(),
	}
	if err := r.store.AppendUnattributedCredit(ctx, credit); err != nil {
		return nil, err
	}
	return &credit, nil
}
