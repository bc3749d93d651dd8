/*
registrar.go - Payment registration

PURPOSE:
  Records a payment against one installment. Enforces the
  proof-of-payment precondition, classifies the tendered amount against
  the outstanding balance, mutates the installment and writes one
  PaymentRecord as a single atomic unit.

PRECONDITIONS (operation has no effect on failure):
  1. Amount is positive
  2. A proof-of-payment reference is present and exists in the document
     store for this installment
  3. The installment exists and is not already settled

EXCESS HANDLING:
  An excess payment first settles the installment as exact: the full
  outstanding balance is applied and the PaymentRecord captures only that
  amount, never the full tendered amount. The computed excess is returned
  alongside a pending-redistribution marker; the registrar never
  auto-applies it. See redistribute.go.

SEE ALSO:
  - classify.go: Classification rules
  - redistribute.go: What happens to the excess
*/
package collections

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// =============================================================================
// REGISTRAR
// =============================================================================

// Registrar records payments against installments.
type Registrar struct {
	store  TxStore
	proofs ProofStore
}

// NewRegistrar creates a payment registrar.
func NewRegistrar(store TxStore, proofs ProofStore) *Registrar {
	return &Registrar{store: store, proofs: proofs}
}

// RegisterPaymentInput carries one tendered payment. Actor identifies who
// registers it; the engine never infers a current user.
type RegisterPaymentInput struct {
	InstallmentID  InstallmentID
	Amount         decimal.Decimal
	PaymentDate    time.Time
	Notes          string
	ProofReference string
	Actor          string
}

// PaymentResult reports the outcome of one registered payment.
// RemainingBalance is set for partial outcomes. ExcessAmount and
// PendingRedistribution are set when the payment exceeded the outstanding
// balance: the excess is a separate, not-yet-allocated quantity until the
// redistribution protocol runs.
type PaymentResult struct {
	InstallmentID         InstallmentID
	Classification        Classification
	AmountApplied         decimal.Decimal
	RemainingBalance      decimal.Decimal
	ExcessAmount          decimal.Decimal
	PendingRedistribution bool
	Status                Status
	PaymentRecordID       string
}

// RegisterPayment records a payment against one installment. The
// installment mutation and the PaymentRecord write either both succeed or
// neither is observed.
func (r *Registrar) RegisterPayment(ctx context.Context, in RegisterPaymentInput) (*PaymentResult, error) {
	if !in.Amount.IsPositive() {
		return nil, ErrNonPositiveAmount
	}
	if in.ProofReference == "" {
		return nil, ErrMissingProof
	}
	ok, err := r.proofs.Exists(ctx, in.InstallmentID, in.ProofReference)
	if err != nil {
		return nil, fmt.Errorf("failed to check proof of payment: %w", err)
	}
	if !ok {
		return nil, ErrProofNotFound
	}

	var result *PaymentResult
	err = r.store.WithTx(ctx, func(s Store) error {
		inst, err := s.GetInstallment(ctx, in.InstallmentID)
		if err != nil {
			return err
		}
		if inst.IsSettled() {
			return ErrAlreadySettled
		}
		result, err = applyPayment(ctx, s, inst, in.Amount, in.PaymentDate, in.Notes, in.ProofReference)
		return err
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// =============================================================================
// SHARED APPLICATION - Used by the registrar and the redistributor
// =============================================================================

// applyPayment classifies amount against the installment's outstanding
// balance, mutates the installment and appends one PaymentRecord. The
// caller supplies the surrounding transaction. For exact and excess
// outcomes only the outstanding balance is applied; diverting the excess
// is the caller's concern.
func applyPayment(ctx context.Context, s Store, inst *Installment, amount decimal.Decimal, paymentDate time.Time, notes, proofRef string) (*PaymentResult, error) {
	outstanding := inst.Outstanding()
	classified := Classify(amount, outstanding)

	applied := amount
	switch classified.Class {
	case ClassExact, ClassExcess:
		applied = outstanding
		inst.AmountPaid = inst.AmountDue
		inst.Status = StatusPaid
		paid := Day(paymentDate)
		inst.PaidDate = &paid
	case ClassPartial:
		inst.AmountPaid = inst.AmountPaid.Add(amount)
		inst.Status = StatusPartial
	}

	if err := s.UpdateInstallment(ctx, *inst); err != nil {
		return nil, err
	}

	rec := PaymentRecord{
		ID:             uuid.NewString(),
		InstallmentID:  inst.ID,
		Amount:         applied,
		PaymentDate:    Day(paymentDate),
		Notes:          notes,
		ProofReference: proofRef,
		CreatedAt:      time.Now().UTC(),
	}
	if err := s.AppendPayment(ctx, rec); err != nil {
		return nil, err
	}

	return &PaymentResult{
		InstallmentID:         inst.ID,
		Classification:        classified.Class,
		AmountApplied:         applied,
		RemainingBalance:      classified.Remaining,
		ExcessAmount:          classified.Excess,
		PendingRedistribution: classified.Class == ClassExcess,
		Status:                inst.Status,
		PaymentRecordID:       rec.ID,
	}, nil
}
