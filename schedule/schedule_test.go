package schedule_test

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"

	"github.com/corredora/collections-engine/collections"
	"github.com/corredora/collections-engine/schedule"
)

func amount(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestBuild_Validation(t *testing.T) {
	due := time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC)

	_, err := schedule.Build(schedule.Plan{PolicyID: "POL-1", TotalPremium: amount("1200"), Installments: 0, FirstDueDate: due})
	require.Error(t, err)

	_, err = schedule.Build(schedule.Plan{PolicyID: "POL-1", TotalPremium: amount("0"), Installments: 12, FirstDueDate: due})
	require.Error(t, err)

	_, err = schedule.Build(schedule.Plan{PolicyID: "POL-1", TotalPremium: amount("1200"), Installments: 12})
	require.Error(t, err)
}

func TestBuild_EvenSplit(t *testing.T) {
	out, err := schedule.Build(schedule.Plan{
		PolicyID:     "POL-1",
		TotalPremium: amount("1200.00"),
		Installments: 12,
		FirstDueDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	require.Len(t, out, 12)

	for i, inst := range out {
		require.True(t, amount("100.00").Equal(inst.AmountDue), "installment %d = %s", i+1, inst.AmountDue)
		require.Equal(t, i+1, inst.Sequence)
		require.Equal(t, collections.StatusPending, inst.Status)
		require.True(t, inst.AmountPaid.IsZero())
	}
}

func TestBuild_FirstAbsorbsRemainder(t *testing.T) {
	// 1000 / 3 rounds to 333.33; the first takes 333.34 so the schedule
	// sums exactly to the premium.
	out, err := schedule.Build(schedule.Plan{
		PolicyID:     "POL-1",
		TotalPremium: amount("1000.00"),
		Installments: 3,
		FirstDueDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.True(t, amount("333.34").Equal(out[0].AmountDue), "first = %s", out[0].AmountDue)
	require.True(t, amount("333.33").Equal(out[1].AmountDue))
	require.True(t, amount("333.33").Equal(out[2].AmountDue))

	sum := decimal.Zero
	for _, inst := range out {
		sum = sum.Add(inst.AmountDue)
	}
	require.True(t, amount("1000.00").Equal(sum), "sum = %s", sum)
}

func TestBuild_MonthlyDueDates(t *testing.T) {
	out, err := schedule.Build(schedule.Plan{
		PolicyID:     "POL-1",
		TotalPremium: amount("600.00"),
		Installments: 3,
		FirstDueDate: time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)

	require.Equal(t, time.Date(2025, time.January, 31, 0, 0, 0, 0, time.UTC), out[0].DueDate)
	// January 31 plus one month normalizes to March 3.
	require.Equal(t, time.Date(2025, time.March, 3, 0, 0, 0, 0, time.UTC), out[1].DueDate)
	require.Equal(t, time.Date(2025, time.March, 31, 0, 0, 0, 0, time.UTC), out[2].DueDate)
}

func TestBuild_IdsAndNotes(t *testing.T) {
	out, err := schedule.Build(schedule.Plan{
		PolicyID:     "POL-42",
		TotalPremium: amount("400.00"),
		Installments: 2,
		FirstDueDate: time.Date(2025, time.January, 10, 0, 0, 0, 0, time.UTC),
		Notes:        "initial installment includes taxes",
	})
	require.NoError(t, err)

	require.Equal(t, collections.InstallmentID("POL-42-c01"), out[0].ID)
	require.Equal(t, collections.InstallmentID("POL-42-c02"), out[1].ID)
	require.Equal(t, "initial installment includes taxes", out[0].Notes)
	require.Empty(t, out[1].Notes)

	require.Equal(t, schedule.InstallmentID("POL-42", 1), out[0].ID)
}
