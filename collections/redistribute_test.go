package collections_test

import (
	"context"
	"math/rand"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/corredora/collections-engine/collections"
	"github.com/corredora/collections-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// seedExcessScenario creates POL-1 with a settled source installment (c-1) and two
// siblings with outstanding balances 200.00 and 80.00, mirroring the
// canonical excess scenario.
func seedExcessScenario(t *testing.T, store *memory.Store) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, store.SavePolicy(ctx, collections.Policy{
		ID: "POL-1", Currency: "ARS", TotalPremium: amount("780.00"),
	}))

	source := pendingInstallment("c-1", "2025-05-01", 1)
	source.AmountDue = amount("500.00")
	source.AmountPaid = amount("500.00")
	source.Status = collections.StatusPaid
	require.NoError(t, store.SaveInstallment(ctx, source))

	sibling2 := pendingInstallment("c-2", "2025-06-01", 2)
	sibling2.AmountDue = amount("200.00")
	require.NoError(t, store.SaveInstallment(ctx, sibling2))

	sibling3 := pendingInstallment("c-3", "2025-07-01", 3)
	sibling3.AmountDue = amount("180.00")
	sibling3.AmountPaid = amount("100.00") // outstanding gap is 80.00
	sibling3.Status = collections.StatusPartial
	require.NoError(t, store.SaveInstallment(ctx, sibling3))
}

func applyInput(allocations ...collections.Allocation) collections.ApplyRedistributionInput {
	return collections.ApplyRedistributionInput{
		PolicyID:            "POL-1",
		SourceInstallmentID: "c-1",
		ExcessAmount:        amount("150.00"),
		Allocations:         allocations,
		PaymentDate:         date(2025, time.June, 10),
		ProofReference:      "doc-c-1",
		Actor:               "maria",
	}
}

func alloc(id, amt string) collections.Allocation {
	return collections.Allocation{InstallmentID: collections.InstallmentID(id), Amount: amount(amt)}
}

// =============================================================================
// CANDIDATE SET
// =============================================================================

func TestBuildCandidateSet(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	candidates, err := r.BuildCandidateSet(context.Background(), "POL-1", "c-1", date(2025, time.June, 10))
	require.NoError(t, err)
	require.Len(t, candidates, 2)

	// Source and settled installments are excluded; a partially paid
	// candidate only offers its remaining gap.
	require.Equal(t, collections.InstallmentID("c-2"), candidates[0].InstallmentID)
	require.True(t, candidates[0].Outstanding.Equal(amount("200.00")))
	require.Equal(t, collections.StatusOverdue, candidates[0].Status) // due 2025-06-01, today 2025-06-10

	require.Equal(t, collections.InstallmentID("c-3"), candidates[1].InstallmentID)
	require.True(t, candidates[1].Outstanding.Equal(amount("80.00")))
}

func TestBuildCandidateSet_Empty(t *testing.T) {
	store := memory.New()
	ctx := context.Background()
	require.NoError(t, store.SavePolicy(ctx, collections.Policy{ID: "POL-1", Currency: "ARS", TotalPremium: amount("500.00")}))
	source := pendingInstallment("c-1", "2025-05-01", 1)
	source.Status = collections.StatusPaid
	source.AmountPaid = source.AmountDue
	require.NoError(t, store.SaveInstallment(ctx, source))

	r := collections.NewRedistributor(store)
	_, err := r.BuildCandidateSet(ctx, "POL-1", "c-1", date(2025, time.June, 10))

	// "Nothing to redistribute to" is distinct from validation failure.
	require.ErrorIs(t, err, collections.ErrNoRedistributionTargets)
	require.False(t, collections.IsValidation(err))
	require.True(t, collections.IsConflict(err))
}

func TestBuildCandidateSet_UnknownPolicy(t *testing.T) {
	r := collections.NewRedistributor(memory.New())
	_, err := r.BuildCandidateSet(context.Background(), "POL-missing", "c-1", time.Now())
	require.ErrorIs(t, err, collections.ErrPolicyNotFound)
}

// =============================================================================
// EQUAL SPLIT
// =============================================================================

func TestEqualSplit_Even(t *testing.T) {
	candidates := []collections.Candidate{
		{InstallmentID: "c-2", Outstanding: amount("200.00")},
		{InstallmentID: "c-3", Outstanding: amount("80.00")},
	}

	allocations, remainder := collections.EqualSplit(amount("150.00"), candidates)
	require.Len(t, allocations, 2)
	require.True(t, allocations[0].Amount.Equal(amount("75.00")))
	require.True(t, allocations[1].Amount.Equal(amount("75.00")))
	require.True(t, remainder.IsZero())
}

func TestEqualSplit_CapsAtOutstanding(t *testing.T) {
	candidates := []collections.Candidate{
		{InstallmentID: "c-2", Outstanding: amount("30.00")},
		{InstallmentID: "c-3", Outstanding: amount("50.00")},
	}

	allocations, remainder := collections.EqualSplit(amount("300.00"), candidates)
	require.True(t, allocations[0].Amount.Equal(amount("30.00")))
	require.True(t, allocations[1].Amount.Equal(amount("50.00")))
	require.True(t, remainder.Equal(amount("220.00")), "remainder = %s", remainder)
}

func TestEqualSplit_RoundingDriftGoesToLast(t *testing.T) {
	candidates := []collections.Candidate{
		{InstallmentID: "c-2", Outstanding: amount("100.00")},
		{InstallmentID: "c-3", Outstanding: amount("100.00")},
		{InstallmentID: "c-4", Outstanding: amount("100.00")},
	}

	allocations, remainder := collections.EqualSplit(amount("100.00"), candidates)
	total := decimal.Zero
	for _, a := range allocations {
		total = total.Add(a.Amount)
	}
	require.True(t, total.Equal(amount("100.00")), "split total = %s", total)
	require.True(t, remainder.IsZero())
}

func TestManualAllocations_Caps(t *testing.T) {
	candidates := []collections.Candidate{
		{InstallmentID: "c-2", Outstanding: amount("200.00")},
		{InstallmentID: "c-3", Outstanding: amount("80.00")},
	}
	supplied := map[collections.InstallmentID]decimal.Decimal{
		"c-2": amount("150.00"),
		"c-3": amount("500.00"), // beyond the gap, capped
	}

	allocations := collections.ManualAllocations(candidates, supplied)
	require.True(t, allocations[0].Amount.Equal(amount("150.00")))
	require.True(t, allocations[1].Amount.Equal(amount("80.00")))
}

// =============================================================================
// APPLY - EXACT-SUM INVARIANT
// =============================================================================

func TestApplyRedistribution_EvenSplit(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	result, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "75.00"), alloc("c-3", "75.00")))
	require.NoError(t, err)
	require.True(t, result.AppliedTotal.Equal(amount("150.00")))
	require.Len(t, result.Results, 2)

	c2, _ := store.GetInstallment(context.Background(), "c-2")
	require.True(t, c2.AmountPaid.Equal(amount("75.00")))
	require.Equal(t, collections.StatusPartial, c2.Status)

	c3, _ := store.GetInstallment(context.Background(), "c-3")
	require.True(t, c3.AmountPaid.Equal(amount("175.00")))
	require.Equal(t, collections.StatusPartial, c3.Status)
}

func TestApplyRedistribution_ManualSingleTarget(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	// All 150.00 to the 200.00 sibling, nothing to the other.
	result, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "150.00"), alloc("c-3", "0")))
	require.NoError(t, err)
	require.True(t, result.AppliedTotal.Equal(amount("150.00")))
	require.Len(t, result.Results, 1, "zero allocations produce no payment event")

	c3, _ := store.GetInstallment(context.Background(), "c-3")
	require.True(t, c3.AmountPaid.Equal(amount("100.00")), "untargeted sibling unchanged")
}

func TestApplyRedistribution_RejectsSumMismatch(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	// 100 + 40 = 140, short of the 150.00 excess.
	_, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "100.00"), alloc("c-3", "40.00")))
	require.ErrorIs(t, err, collections.ErrAllocationSumMismatch)
	require.True(t, collections.IsConflict(err))

	// Nothing may have been applied.
	c2, _ := store.GetInstallment(context.Background(), "c-2")
	require.True(t, c2.AmountPaid.IsZero())
}

func TestApplyRedistribution_RejectsAllZero(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	_, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "0"), alloc("c-3", "0")))
	require.ErrorIs(t, err, collections.ErrEmptyAllocation)
}

func TestApplyRedistribution_RejectsOverAllocation(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	// Sums to the excess but overpays c-3 (gap is only 80.00).
	_, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "50.00"), alloc("c-3", "100.00")))
	require.ErrorIs(t, err, collections.ErrOverAllocation)

	// Atomicity: c-2 sorts first and was applied inside the transaction,
	// but the failure on c-3 must roll everything back.
	c2, _ := store.GetInstallment(context.Background(), "c-2")
	require.True(t, c2.AmountPaid.IsZero(), "partial application leaked: %s", c2.AmountPaid)
	payments, _ := store.ListPayments(context.Background(), "c-2")
	require.Empty(t, payments)
}

func TestApplyRedistribution_TargetsCarryProvenance(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	_, err := r.ApplyRedistribution(context.Background(),
		applyInput(alloc("c-2", "150.00"), alloc("c-3", "0")))
	require.NoError(t, err)

	payments, err := store.ListPayments(context.Background(), "c-2")
	require.NoError(t, err)
	require.Len(t, payments, 1)
	require.Contains(t, payments[0].Notes, "c-1", "note must reference the originating installment")
	require.Equal(t, "doc-c-1", payments[0].ProofReference, "reuses the source payment's proof")
}

func TestApplyRedistribution_SumProperty(t *testing.T) {
	// Randomly generated splits of the excess across two roomy candidates:
	// totals within tolerance are accepted, totals deviating by more than
	// the tolerance are rejected.
	rng := rand.New(rand.NewSource(42))

	for i := 0; i < 50; i++ {
		store := memory.New()
		ctx := context.Background()
		require.NoError(t, store.SavePolicy(ctx, collections.Policy{ID: "POL-1", Currency: "ARS", TotalPremium: amount("10000")}))
		source := pendingInstallment("c-1", "2025-05-01", 1)
		source.Status = collections.StatusPaid
		source.AmountPaid = source.AmountDue
		require.NoError(t, store.SaveInstallment(ctx, source))
		for _, id := range []string{"c-2", "c-3"} {
			inst := pendingInstallment(id, "2025-08-01", 2)
			inst.AmountDue = amount("5000.00")
			require.NoError(t, store.SaveInstallment(ctx, inst))
		}
		r := collections.NewRedistributor(store)

		excess := decimal.NewFromInt(int64(rng.Intn(400) + 100)) // 100..499
		first := excess.Mul(decimal.NewFromFloat(rng.Float64())).Round(2)
		second := excess.Sub(first)

		valid := i%2 == 0
		if !valid {
			// Push the total out of tolerance.
			second = second.Add(decimal.NewFromFloat(0.02 + rng.Float64()))
		}

		in := applyInput(alloc("c-2", first.String()), alloc("c-3", second.String()))
		in.ExcessAmount = excess
		_, err := r.ApplyRedistribution(ctx, in)

		if valid && first.Add(second).Sub(excess).Abs().LessThanOrEqual(collections.Tolerance) {
			require.NoError(t, err, "valid split %s + %s of %s rejected", first, second, excess)
		}
		if !valid {
			require.ErrorIs(t, err, collections.ErrAllocationSumMismatch,
				"deviating split %s + %s of %s accepted", first, second, excess)
		}
	}
}

// =============================================================================
// UNATTRIBUTED CREDIT
// =============================================================================

func TestRecordUnattributedCredit(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	credit, err := r.RecordUnattributedCredit(context.Background(), "POL-1", "c-1", amount("150.00"), "no targets left")
	require.NoError(t, err)
	require.NotEmpty(t, credit.ID)

	credits, err := store.ListUnattributedCredits(context.Background(), "POL-1")
	require.NoError(t, err)
	require.Len(t, credits, 1)
	require.True(t, credits[0].Amount.Equal(amount("150.00")))
}

func TestRecordUnattributedCredit_RejectsNonPositive(t *testing.T) {
	store := memory.New()
	seedExcessScenario(t, store)
	r := collections.NewRedistributor(store)

	_, err := r.RecordUnattributedCredit(context.Background(), "POL-1", "c-1", decimal.Zero, "")
	require.ErrorIs(t, err, collections.ErrNonPositiveAmount)
}
