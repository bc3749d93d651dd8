/*
errors.go - Centralized error types for the collections engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Errors fall into four kinds that callers can branch on:
  validation, not-found, conflict, and persistence.

USAGE:
  Callers classify with the helpers:

    if collections.IsConflict(err) {
        // 409 to the client, with detail
    }

SEE ALSO:
  - registrar.go: Payment preconditions
  - redistribute.go: Exact-sum and cap validation
  - extension.go: Due-date validation
*/
package collections

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInstallmentNotFound is returned when a referenced installment does
	// not exist in the scoped set.
	ErrInstallmentNotFound = errors.New("installment not found")

	// ErrPolicyNotFound is returned when a referenced policy doesn't exist.
	ErrPolicyNotFound = errors.New("policy not found")

	// ErrAlreadySettled is returned when paying or extending a fully paid
	// installment. Distinct from not-found so callers can tell
	// "already settled" from "doesn't exist".
	ErrAlreadySettled = errors.New("installment already settled")

	// ErrNonPositiveAmount is returned when a tendered amount is zero or
	// negative.
	ErrNonPositiveAmount = errors.New("amount must be positive")

	// ErrMissingProof is returned when a payment carries no proof-of-payment
	// reference. The ledger must remain auditable; this is a business rule,
	// not a UI nicety.
	ErrMissingProof = errors.New("proof of payment reference is required")

	// ErrProofNotFound is returned when the referenced proof document does
	// not exist or does not belong to the installment.
	ErrProofNotFound = errors.New("proof of payment not found")

	// ErrInvalidDueDate is returned when an extension date is not strictly
	// later than tomorrow.
	ErrInvalidDueDate = errors.New("new due date must be at least two days ahead")

	// ErrNoRedistributionTargets is returned when a policy has no other
	// outstanding installments to receive an excess. Distinct from
	// validation failure: there is simply nothing to redistribute to.
	ErrNoRedistributionTargets = errors.New("no installments available to receive the excess")

	// ErrAllocationSumMismatch is returned when allocations do not add up to
	// the excess amount within tolerance.
	ErrAllocationSumMismatch = errors.New("allocated total differs from excess amount")

	// ErrEmptyAllocation is returned when no allocation applies a positive
	// amount.
	ErrEmptyAllocation = errors.New("at least one allocation must be positive")

	// ErrOverAllocation is returned when an allocation exceeds its target
	// installment's outstanding balance.
	ErrOverAllocation = errors.New("allocation exceeds outstanding balance")

	// ErrVersionConflict is returned when optimistic locking detects a
	// concurrent write to the same installment.
	ErrVersionConflict = errors.New("concurrent modification detected")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// AllocationSumError reports how far a redistribution's total deviates from
// the excess it must account for.
type AllocationSumError struct {
	Excess    decimal.Decimal
	Allocated decimal.Decimal
}

func (e *AllocationSumError) Error() string {
	return fmt.Sprintf("redistributed total %s differs from excess %s by %s",
		e.Allocated, e.Excess, e.Allocated.Sub(e.Excess).Abs())
}

func (e *AllocationSumError) Unwrap() error { return ErrAllocationSumMismatch }

// OverAllocationError reports an allocation that would overpay an
// installment.
type OverAllocationError struct {
	InstallmentID InstallmentID
	Outstanding   decimal.Decimal
	Requested     decimal.Decimal
}

func (e *OverAllocationError) Error() string {
	return fmt.Sprintf("allocation %s exceeds outstanding balance %s of installment %s",
		e.Requested, e.Outstanding, e.InstallmentID)
}

func (e *OverAllocationError) Unwrap() error { return ErrOverAllocation }

// =============================================================================
// ERROR KIND HELPERS
// =============================================================================

// IsValidation returns true for malformed input the caller can correct and
// resubmit. Never partially applied.
func IsValidation(err error) bool {
	return errors.Is(err, ErrNonPositiveAmount) ||
		errors.Is(err, ErrMissingProof) ||
		errors.Is(err, ErrProofNotFound) ||
		errors.Is(err, ErrInvalidDueDate) ||
		errors.Is(err, ErrEmptyAllocation)
}

// IsNotFound returns true if the error indicates a missing policy or
// installment.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInstallmentNotFound) ||
		errors.Is(err, ErrPolicyNotFound)
}

// IsConflict returns true when the operation is not valid given current
// state.
func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadySettled) ||
		errors.Is(err, ErrNoRedistributionTargets) ||
		errors.Is(err, ErrAllocationSumMismatch) ||
		errors.Is(err, ErrOverAllocation) ||
		errors.Is(err, ErrVersionConflict)
}

// IsRetryable returns true if the error might succeed on retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrVersionConflict)
}
