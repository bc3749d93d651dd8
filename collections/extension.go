/*
extension.go - Due-date extensions (Prorrogas)

PURPOSE:
  Moves an installment's due date forward while preserving history.
  The original due date is captured exactly once, on the first
  extension, and never overwritten; every change appends an entry to
  the extension history.

PRECONDITIONS:
  - The new due date is strictly later than tomorrow: no same-day or
    past-dated extensions, and the deadline must move meaningfully
    forward.
  - The installment is not settled; extending a paid installment is
    meaningless.

ACTOR:
  The actor is an explicit parameter on every call, sourced from the
  authentication collaborator. The engine never reads ambient user state.
*/
package collections

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// =============================================================================
// EXTENSION TRACKER
// =============================================================================

// ExtensionTracker extends installment due dates with audit history.
type ExtensionTracker struct {
	store TxStore
	now   func() time.Time
}

// NewExtensionTracker creates an extension tracker using wall-clock time.
func NewExtensionTracker(store TxStore) *ExtensionTracker {
	return &ExtensionTracker{store: store, now: time.Now}
}

// NewExtensionTrackerAt creates a tracker with an injected clock, for tests.
func NewExtensionTrackerAt(store TxStore, now func() time.Time) *ExtensionTracker {
	return &ExtensionTracker{store: store, now: now}
}

// ExtendInput carries one due-date extension request.
type ExtendInput struct {
	InstallmentID InstallmentID
	NewDueDate    time.Time
	Reason        string
	Actor         string
}

// ExtensionResult reports the applied extension. ExtensionDays is derived
// from the previous due date for display; it is never stored.
type ExtensionResult struct {
	InstallmentID   InstallmentID
	PreviousDueDate time.Time
	NewDueDate      time.Time
	OriginalDueDate time.Time
	ExtensionDays   int
}

// ExtendDueDate moves an installment's due date to newDueDate, capturing
// the original due date on the first extension and appending a history
// entry. The installment mutation and the history append are atomic.
func (t *ExtensionTracker) ExtendDueDate(ctx context.Context, in ExtendInput) (*ExtensionResult, error) {
	today := Day(t.now())
	tomorrow := today.AddDate(0, 0, 1)
	newDue := Day(in.NewDueDate)
	if !newDue.After(tomorrow) {
		return nil, ErrInvalidDueDate
	}

	var result *ExtensionResult
	err := t.store.WithTx(ctx, func(s Store) error {
		inst, err := s.GetInstallment(ctx, in.InstallmentID)
		if err != nil {
			return err
		}
		if inst.IsSettled() {
			return ErrAlreadySettled
		}

		previous := Day(inst.DueDate)
		if inst.OriginalDueDate == nil {
			// First extension: capture the due date being replaced.
			original := previous
			inst.OriginalDueDate = &original
		}
		inst.DueDate = newDue
		if err := s.UpdateInstallment(ctx, *inst); err != nil {
			return err
		}

		entry := ExtensionEntry{
			ID:            uuid.NewString(),
			InstallmentID: inst.ID,
			PreviousDate:  previous,
			NewDate:       newDue,
			Reason:        in.Reason,
			Actor:         in.Actor,
			CreatedAt:     t.now().UTC(),
		}
		if err := s.AppendExtension(ctx, entry); err != nil {
			return err
		}

		result = &ExtensionResult{
			InstallmentID:   inst.ID,
			PreviousDueDate: previous,
			NewDueDate:      newDue,
			OriginalDueDate: *inst.OriginalDueDate,
			ExtensionDays:   entry.Days(),
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}
