/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract.

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients

MONEY:
  Amounts cross the wire as strings ("1234.50") and parse into
  decimal.Decimal. Floats never touch money.

VALIDATION:
  Validation is done in handlers and the domain layer, not in DTOs.
  DTOs are pure data carriers.

SEE ALSO:
  - handlers.go: Uses these types
*/
package api

import (
	"time"

	"github.com/corredora/collections-engine/collections"
)

const dateLayout = "2006-01-02"

// =============================================================================
// POLICY / INSTALLMENT
// =============================================================================

// PolicyDTO represents a policy in API responses.
type PolicyDTO struct {
	ID           string `json:"id"`
	Currency     string `json:"currency"`
	TotalPremium string `json:"total_premium"`
	CreatedAt    string `json:"created_at,omitempty"`
}

// CreatePolicyRequest creates a policy together with its installment
// schedule.
type CreatePolicyRequest struct {
	ID           string `json:"id"`
	Currency     string `json:"currency"`
	TotalPremium string `json:"total_premium"`
	Installments int    `json:"installments"`
	FirstDueDate string `json:"first_due_date"` // YYYY-MM-DD
	Notes        string `json:"notes,omitempty"`
}

// InstallmentDTO represents an installment with its derived status.
type InstallmentDTO struct {
	ID              string  `json:"id"`
	PolicyID        string  `json:"policy_id"`
	Sequence        int     `json:"sequence"`
	AmountDue       string  `json:"amount_due"`
	AmountPaid      string  `json:"amount_paid"`
	Outstanding     string  `json:"outstanding"`
	DueDate         string  `json:"due_date"`
	OriginalDueDate *string `json:"original_due_date,omitempty"`
	PaidDate        *string `json:"paid_date,omitempty"`
	Status          string  `json:"status"`           // persisted
	EffectiveStatus string  `json:"effective_status"` // derived as of today
	Notes           string  `json:"notes,omitempty"`
}

func toInstallmentDTO(inst collections.Installment, today time.Time) InstallmentDTO {
	return InstallmentDTO{
		ID:              string(inst.ID),
		PolicyID:        string(inst.PolicyID),
		Sequence:        inst.Sequence,
		AmountDue:       inst.AmountDue.StringFixed(2),
		AmountPaid:      inst.AmountPaid.StringFixed(2),
		Outstanding:     inst.Outstanding().StringFixed(2),
		DueDate:         inst.DueDate.Format(dateLayout),
		OriginalDueDate: optDate(inst.OriginalDueDate),
		PaidDate:        optDate(inst.PaidDate),
		Status:          string(inst.Status),
		EffectiveStatus: string(collections.EffectiveStatus(inst, today)),
		Notes:           inst.Notes,
	}
}

func optDate(t *time.Time) *string {
	if t == nil {
		return nil
	}
	s := t.Format(dateLayout)
	return &s
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RegisterPaymentRequest registers one tendered payment.
type RegisterPaymentRequest struct {
	Amount         string `json:"amount"`
	PaymentDate    string `json:"payment_date"` // YYYY-MM-DD
	Notes          string `json:"notes,omitempty"`
	ProofReference string `json:"proof_reference"`
	Actor          string `json:"actor"`
}

// PaymentResultDTO reports a payment outcome. ExcessAmount and
// PendingRedistribution signal that the redistribution protocol must run.
type PaymentResultDTO struct {
	InstallmentID         string `json:"installment_id"`
	Classification        string `json:"classification"`
	AmountApplied         string `json:"amount_applied"`
	RemainingBalance      string `json:"remaining_balance,omitempty"`
	ExcessAmount          string `json:"excess_amount,omitempty"`
	PendingRedistribution bool   `json:"pending_redistribution"`
	Status                string `json:"status"`
	PaymentRecordID       string `json:"payment_record_id"`
}

func toPaymentResultDTO(res *collections.PaymentResult) PaymentResultDTO {
	dto := PaymentResultDTO{
		InstallmentID:         string(res.InstallmentID),
		Classification:        string(res.Classification),
		AmountApplied:         res.AmountApplied.StringFixed(2),
		PendingRedistribution: res.PendingRedistribution,
		Status:                string(res.Status),
		PaymentRecordID:       res.PaymentRecordID,
	}
	if res.Classification == collections.ClassPartial {
		dto.RemainingBalance = res.RemainingBalance.StringFixed(2)
	}
	if res.Classification == collections.ClassExcess {
		dto.ExcessAmount = res.ExcessAmount.StringFixed(2)
	}
	return dto
}

// PaymentRecordDTO is one row of an installment's payment history.
type PaymentRecordDTO struct {
	ID             string `json:"id"`
	InstallmentID  string `json:"installment_id"`
	Amount         string `json:"amount"`
	PaymentDate    string `json:"payment_date"`
	Notes          string `json:"notes,omitempty"`
	ProofReference string `json:"proof_reference"`
	CreatedAt      string `json:"created_at"`
}

// =============================================================================
// REDISTRIBUTION
// =============================================================================

// CandidateDTO is one installment eligible to receive excess.
type CandidateDTO struct {
	InstallmentID string `json:"installment_id"`
	Sequence      int    `json:"sequence"`
	DueDate       string `json:"due_date"`
	Status        string `json:"status"`
	Outstanding   string `json:"outstanding"`
}

// AllocationDTO assigns part of an excess to one installment.
type AllocationDTO struct {
	InstallmentID string `json:"installment_id"`
	Amount        string `json:"amount"`
}

// SplitPreviewRequest asks for an equal split of an excess across the
// selected candidates.
type SplitPreviewRequest struct {
	ExcessAmount string   `json:"excess_amount"`
	Candidates   []string `json:"candidates,omitempty"` // subset of installment ids; empty = all
}

// SplitPreviewResponse is the computed equal split. Remainder is whatever
// the per-candidate caps left unapplied.
type SplitPreviewResponse struct {
	Allocations []AllocationDTO `json:"allocations"`
	Remainder   string          `json:"remainder"`
}

// ApplyRedistributionRequest applies a validated allocation set.
type ApplyRedistributionRequest struct {
	ExcessAmount   string          `json:"excess_amount"`
	Allocations    []AllocationDTO `json:"allocations"`
	PaymentDate    string          `json:"payment_date"`
	ProofReference string          `json:"proof_reference"`
	Actor          string          `json:"actor"`
}

// AppliedAllocationDTO reports the effect on one target installment.
type AppliedAllocationDTO struct {
	InstallmentID    string `json:"installment_id"`
	AmountOriginal   string `json:"amount_original"`
	AmountApplied    string `json:"amount_applied"`
	ResultingBalance string `json:"resulting_balance"`
	Status           string `json:"status"`
}

// RedistributionResultDTO is the outcome of one apply call.
type RedistributionResultDTO struct {
	SourceInstallmentID string                 `json:"source_installment_id"`
	ExcessAmount        string                 `json:"excess_amount"`
	AppliedTotal        string                 `json:"applied_total"`
	Results             []AppliedAllocationDTO `json:"results"`
}

// RecordCreditRequest records excess with no redistribution target.
type RecordCreditRequest struct {
	SourceInstallmentID string `json:"source_installment_id"`
	Amount              string `json:"amount"`
	Notes               string `json:"notes,omitempty"`
}

// CreditDTO represents an unattributed credit.
type CreditDTO struct {
	ID                  string `json:"id"`
	PolicyID            string `json:"policy_id"`
	SourceInstallmentID string `json:"source_installment_id"`
	Amount              string `json:"amount"`
	Notes               string `json:"notes,omitempty"`
	CreatedAt           string `json:"created_at"`
}

// =============================================================================
// EXTENSIONS
// =============================================================================

// ExtendRequest moves an installment's due date forward.
type ExtendRequest struct {
	NewDueDate string `json:"new_due_date"` // YYYY-MM-DD
	Reason     string `json:"reason,omitempty"`
	Actor      string `json:"actor"`
}

// ExtensionResultDTO reports an applied extension.
type ExtensionResultDTO struct {
	InstallmentID   string `json:"installment_id"`
	PreviousDueDate string `json:"previous_due_date"`
	NewDueDate      string `json:"new_due_date"`
	OriginalDueDate string `json:"original_due_date"`
	ExtensionDays   int    `json:"extension_days"`
}

// ExtensionEntryDTO is one row of the extension history.
type ExtensionEntryDTO struct {
	ID            string `json:"id"`
	InstallmentID string `json:"installment_id"`
	PreviousDate  string `json:"previous_date"`
	NewDate       string `json:"new_date"`
	Reason        string `json:"reason,omitempty"`
	Actor         string `json:"actor"`
	CreatedAt     string `json:"created_at"`
}

// =============================================================================
// STATS / PROOFS / ERRORS
// =============================================================================

// StatsDTO holds dashboard totals for an installment set.
type StatsDTO struct {
	Total                 int    `json:"total"`
	Pending               int    `json:"pending"`
	Partial               int    `json:"partial"`
	Overdue               int    `json:"overdue"`
	Paid                  int    `json:"paid"`
	OutstandingTotal      string `json:"outstanding_total"`
	CollectedToday        string `json:"collected_today"`
	CollectedMonth        string `json:"collected_month"`
	NeedsCollectionNotice bool   `json:"needs_collection_notice,omitempty"`
}

func toStatsDTO(s collections.StatsSummary) StatsDTO {
	return StatsDTO{
		Total:            s.Total,
		Pending:          s.Pending,
		Partial:          s.Partial,
		Overdue:          s.Overdue,
		Paid:             s.Paid,
		OutstandingTotal: s.OutstandingTotal.StringFixed(2),
		CollectedToday:   s.CollectedToday.StringFixed(2),
		CollectedMonth:   s.CollectedMonth.StringFixed(2),
	}
}

// RegisterProofRequest records that a proof-of-payment document exists for
// an installment. Stands in for the external document store's callback.
type RegisterProofRequest struct {
	InstallmentID  string `json:"installment_id"`
	ProofReference string `json:"proof_reference"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
