package collections_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/corredora/collections-engine/collections"
	"github.com/corredora/collections-engine/store/memory"
)

// =============================================================================
// TEST HELPERS
// =============================================================================

// trackerAt builds a tracker whose clock is frozen at the given day.
func trackerAt(store *memory.Store, today time.Time) *collections.ExtensionTracker {
	return collections.NewExtensionTrackerAt(store, func() time.Time { return today })
}

func extend(id string, due string) collections.ExtendInput {
	d, _ := time.Parse("2006-01-02", due)
	return collections.ExtendInput{
		InstallmentID: collections.InstallmentID(id),
		NewDueDate:    d,
		Reason:        "client requested more time",
		Actor:         "maria",
	}
}

// =============================================================================
// PRECONDITIONS
// =============================================================================

func TestExtendDueDate_RejectsNearDates(t *testing.T) {
	store := memory.New()
	seedInstallment(t, store, pendingInstallment("c-1", "2025-01-10", 1))
	today := date(2025, time.January, 5)
	tracker := trackerAt(store, today)

	for _, due := range []string{"2025-01-04", "2025-01-05", "2025-01-06"} {
		_, err := tracker.ExtendDueDate(context.Background(), extend("c-1", due))
		require.ErrorIs(t, err, collections.ErrInvalidDueDate, "due %s", due)
	}

	// Two days out is the first acceptable date.
	_, err := tracker.ExtendDueDate(context.Background(), extend("c-1", "2025-01-07"))
	require.NoError(t, err)
}

func TestExtendDueDate_RejectsSettled(t *testing.T) {
	store := memory.New()
	inst := pendingInstallment("c-1", "2025-01-10", 1)
	inst.AmountPaid = inst.AmountDue
	inst.Status = collections.StatusPaid
	seedInstallment(t, store, inst)
	tracker := trackerAt(store, date(2025, time.January, 5))

	_, err := tracker.ExtendDueDate(context.Background(), extend("c-1", "2025-02-10"))
	require.ErrorIs(t, err, collections.ErrAlreadySettled)
}

func TestExtendDueDate_UnknownInstallment(t *testing.T) {
	tracker := trackerAt(memory.New(), date(2025, time.January, 5))
	_, err := tracker.ExtendDueDate(context.Background(), extend("c-missing", "2025-02-10"))
	require.ErrorIs(t, err, collections.ErrInstallmentNotFound)
}

// =============================================================================
// ORIGINAL DUE DATE CAPTURE AND HISTORY
// =============================================================================

func TestExtendDueDate_CapturesOriginalOnce(t *testing.T) {
	// GIVEN: an installment due 2025-01-10
	// WHEN:  extended to 2025-02-10
	// THEN:  original_due_date = 2025-01-10
	// WHEN:  extended again to 2025-03-01
	// THEN:  original_due_date is untouched, second history entry appended
	store := memory.New()
	seedInstallment(t, store, pendingInstallment("c-1", "2025-01-10", 1))
	tracker := trackerAt(store, date(2025, time.January, 5))

	res, err := tracker.ExtendDueDate(context.Background(), extend("c-1", "2025-02-10"))
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 10), res.PreviousDueDate)
	require.Equal(t, date(2025, time.February, 10), res.NewDueDate)
	require.Equal(t, date(2025, time.January, 10), res.OriginalDueDate)
	require.Equal(t, 31, res.ExtensionDays)

	res, err = tracker.ExtendDueDate(context.Background(), extend("c-1", "2025-03-01"))
	require.NoError(t, err)
	require.Equal(t, date(2025, time.January, 10), res.OriginalDueDate, "original must not move on later extensions")

	inst, err := store.GetInstallment(context.Background(), "c-1")
	require.NoError(t, err)
	require.NotNil(t, inst.OriginalDueDate)
	require.Equal(t, date(2025, time.January, 10), *inst.OriginalDueDate)
	require.Equal(t, date(2025, time.March, 1), inst.DueDate)

	history, err := store.ListExtensions(context.Background(), "c-1")
	require.NoError(t, err)
	require.Len(t, history, 2)
	require.Equal(t, date(2025, time.January, 10), history[0].PreviousDate)
	require.Equal(t, date(2025, time.February, 10), history[0].NewDate)
	require.Equal(t, date(2025, time.February, 10), history[1].PreviousDate)
	require.Equal(t, date(2025, time.March, 1), history[1].NewDate)
	require.Equal(t, "maria", history[1].Actor)
}

func TestExtendDueDate_HistoryIsAppendOnly(t *testing.T) {
	store := memory.New()
	seedInstallment(t, store, pendingInstallment("c-1", "2025-01-10", 1))
	tracker := trackerAt(store, date(2025, time.January, 5))

	dues := []string{"2025-02-10", "2025-03-01", "2025-04-15", "2025-06-30"}
	for i, due := range dues {
		_, err := tracker.ExtendDueDate(context.Background(), extend("c-1", due))
		require.NoError(t, err)

		history, err := store.ListExtensions(context.Background(), "c-1")
		require.NoError(t, err)
		require.Len(t, history, i+1, "after %d extensions", i+1)
	}
}
