/*
Package collections provides the installment payment reconciliation engine.

PURPOSE:
  This package contains the core domain logic of the collections
  ("cobranzas") module of an insurance-brokerage back office. It tracks
  each policy's installment schedule, classifies incoming payments,
  derives an installment's effective status from persisted state and the
  current date, and redistributes payment excess across a policy's other
  outstanding installments under an exact-sum invariant.

KEY CONCEPTS IN THIS FILE (types.go):
  - Policy: An insurance contract with a schedule of Installments
  - Installment: One scheduled payment obligation (a "cuota")
  - PaymentRecord: An immutable row per registered payment
  - ExtensionEntry: One audited due-date change (a "prorroga")
  - UnattributedCredit: Excess that had no installment left to receive it

DESIGN PRINCIPLES:
  1. Precision: Uses decimal.Decimal to avoid floating-point errors
  2. Derived state: "overdue" is computed on read, never stored
  3. Auditability: Payments and extensions are append-only records
  4. Type Safety: Strong typing for policy and installment identifiers

SEE ALSO:
  - status.go: Effective status derivation
  - classify.go: Payment classification against outstanding balance
  - registrar.go: Payment registration
  - redistribute.go: Excess redistribution protocol
*/
package collections

import (
	"time"

	"github.com/shopspring/decimal"
)

// =============================================================================
// MONEY - All amounts are decimal; Tolerance absorbs rounding
// =============================================================================

// Tolerance is the fixed monetary tolerance (0.01 currency units) used when
// comparing amounts. Two amounts within Tolerance of each other are
// considered equal for classification and invariant checks.
var Tolerance = decimal.New(1, -2)

// WithinTolerance reports whether |a - b| <= Tolerance.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// =============================================================================
// IDENTIFIERS
// =============================================================================

type PolicyID string
type InstallmentID string

// =============================================================================
// STATUS - Persisted vs. effective
// =============================================================================

// Status is an installment status. Only StatusPending, StatusPartial and
// StatusPaid are ever persisted. StatusOverdue is a view derived from the
// due date and the current day; it never reaches the store.
type Status string

const (
	StatusPending Status = "pending"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
	StatusOverdue Status = "overdue"
)

// =============================================================================
// POLICY
// =============================================================================

// Policy identifies a contract. The engine only reads its currency and its
// installment list; everything else about a policy lives in the policy
// module.
type Policy struct {
	ID           PolicyID
	Currency     string
	TotalPremium decimal.Decimal
	CreatedAt    time.Time
}

// =============================================================================
// INSTALLMENT - The central entity (Cuota)
// =============================================================================

// Installment is one scheduled payment obligation within a policy's plan.
//
// AmountDue is immutable once created. AmountPaid accumulates as payments
// are applied. DueDate may move forward via extensions; OriginalDueDate is
// captured exactly once, on the first extension, and never overwritten.
// Version supports optimistic concurrency on writes.
type Installment struct {
	ID              InstallmentID
	PolicyID        PolicyID
	Sequence        int // 1-based ordinal within the policy
	AmountDue       decimal.Decimal
	AmountPaid      decimal.Decimal
	DueDate         time.Time
	OriginalDueDate *time.Time
	PaidDate        *time.Time
	Status          Status // persisted status: pending | partial | paid
	Notes           string
	Version         int
	CreatedAt       time.Time
}

// Outstanding returns the remaining balance, AmountDue - AmountPaid.
// Classification always runs against this value, not the scheduled amount.
func (i *Installment) Outstanding() decimal.Decimal {
	return i.AmountDue.Sub(i.AmountPaid)
}

// IsSettled reports whether the installment is fully paid.
func (i *Installment) IsSettled() bool {
	return i.Status == StatusPaid
}

// =============================================================================
// PAYMENT RECORD - Append-only, one row per registered payment
// =============================================================================

// PaymentRecord captures the amount actually attributed to one installment
// by one payment event. For an excess payment it records only the amount
// applied to the installment, never the full tendered amount.
type PaymentRecord struct {
	ID             string
	InstallmentID  InstallmentID
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Notes          string
	ProofReference string // opaque pointer into the document store
	CreatedAt      time.Time
}

// =============================================================================
// EXTENSION ENTRY - Append-only due-date change log (Prorroga)
// =============================================================================

// ExtensionEntry is one audited due-date change. The actor is always passed
// explicitly by the caller; the engine has no notion of a current user.
type ExtensionEntry struct {
	ID            string
	InstallmentID InstallmentID
	PreviousDate  time.Time
	NewDate       time.Time
	Reason        string
	Actor         string
	CreatedAt     time.Time
}

// Days returns the extension length in days. Derived for display, never
// stored.
func (e ExtensionEntry) Days() int {
	return int(Day(e.NewDate).Sub(Day(e.PreviousDate)).Hours() / 24)
}

// =============================================================================
// UNATTRIBUTED CREDIT - Excess with nowhere to go
// =============================================================================

// UnattributedCredit records an excess amount that could not be
// redistributed because the policy had no other outstanding installments.
// Recording it keeps the money visible instead of leaving it out of band.
type UnattributedCredit struct {
	ID                  string
	PolicyID            PolicyID
	SourceInstallmentID InstallmentID
	Amount              decimal.Decimal
	Notes               string
	CreatedAt           time.Time
}

// =============================================================================
// DAY HELPERS - The engine compares dates at day granularity, in UTC
// =============================================================================

// Day truncates t to midnight UTC.
func Day(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// SameDay reports whether a and b fall on the same calendar day.
func SameDay(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

// SameMonth reports whether a and b fall in the same calendar month.
func SameMonth(a, b time.Time) bool {
	return a.Year() == b.Year() && a.Month() == b.Month()
}
