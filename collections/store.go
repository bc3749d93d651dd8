/*
store.go - Persistence interfaces for the collections engine

PURPOSE:
  Defines the interface between the domain logic and the database.
  Different implementations can use SQLite or in-memory storage.

KEY INTERFACES:
  Store:      Installment and policy persistence, append-only records
  TxStore:    Transactional operations (atomic multi-row writes)
  ProofStore: Boolean existence check against the external document store

APPEND-ONLY CONTRACT:
  PaymentRecord, ExtensionEntry and UnattributedCredit rows are
  append-only: no Update or Delete methods exist for them. Installments
  are never deleted; they are created once and mutated only through the
  registrar, the redistributor and the extension tracker.

OPTIMISTIC LOCKING:
  UpdateInstallment matches on the Version the caller read and bumps it.
  A mismatch returns ErrVersionConflict so a double-submit cannot
  double-apply a payment.

ATOMICITY:
  Every mutating engine operation wraps its reads-then-writes in
  WithTx. Applying three of five redistribution allocations before a
  failure would be a correctness violation; WithTx prevents it.

IMPLEMENTATIONS:
  - store/sqlite: Production SQLite
  - store/memory: In-memory for tests and dev
*/
package collections

import "context"

// =============================================================================
// STORE - Persistence interface
// =============================================================================

// Store handles persistence of policies, installments and the append-only
// payment, extension and credit records.
type Store interface {
	// SavePolicy inserts a policy.
	SavePolicy(ctx context.Context, p Policy) error

	// GetPolicy returns a policy, or ErrPolicyNotFound.
	GetPolicy(ctx context.Context, id PolicyID) (*Policy, error)

	// ListPolicies returns all policies ordered by creation.
	ListPolicies(ctx context.Context) ([]Policy, error)

	// SaveInstallment inserts an installment. Installments are created once,
	// at schedule generation, and never deleted.
	SaveInstallment(ctx context.Context, inst Installment) error

	// GetInstallment returns an installment, or ErrInstallmentNotFound.
	GetInstallment(ctx context.Context, id InstallmentID) (*Installment, error)

	// ListByPolicy returns a policy's installments ordered by sequence.
	ListByPolicy(ctx context.Context, policyID PolicyID) ([]Installment, error)

	// ListInstallments returns every installment, ordered by policy then
	// sequence.
	ListInstallments(ctx context.Context) ([]Installment, error)

	// UpdateInstallment writes a mutated installment. The stored Version
	// must equal inst.Version or ErrVersionConflict is returned; on success
	// the stored Version is inst.Version+1.
	UpdateInstallment(ctx context.Context, inst Installment) error

	// AppendPayment persists a payment record. Append-only.
	AppendPayment(ctx context.Context, rec PaymentRecord) error

	// ListPayments returns an installment's payment records in insertion
	// order.
	ListPayments(ctx context.Context, installmentID InstallmentID) ([]PaymentRecord, error)

	// AppendExtension persists a due-date change entry. Append-only.
	AppendExtension(ctx context.Context, entry ExtensionEntry) error

	// ListExtensions returns an installment's extension history in
	// insertion order.
	ListExtensions(ctx context.Context, installmentID InstallmentID) ([]ExtensionEntry, error)

	// AppendUnattributedCredit records excess that had no target. Append-only.
	AppendUnattributedCredit(ctx context.Context, credit UnattributedCredit) error

	// ListUnattributedCredits returns a policy's unattributed credits.
	ListUnattributedCredits(ctx context.Context, policyID PolicyID) ([]UnattributedCredit, error)
}

// =============================================================================
// TRANSACTIONAL STORE
// =============================================================================

// TxStore wraps Store with transaction support. Use this for every mutating
// engine operation.
type TxStore interface {
	Store

	// WithTx executes fn within a transaction.
	// If fn returns error, the transaction is rolled back.
	// If fn returns nil, the transaction is committed.
	WithTx(ctx context.Context, fn func(Store) error) error
}

// =============================================================================
// PROOF STORE - External document storage boundary
// =============================================================================

// ProofStore answers whether a proof-of-payment reference exists and
// belongs to an installment. The engine stores the opaque reference but
// never interprets it; the documents live in an external system.
type ProofStore interface {
	Exists(ctx context.Context, installmentID InstallmentID, proofReference string) (bool, error)
}

// ProofFunc adapts a function to the ProofStore interface.
type ProofFunc func(ctx context.Context, installmentID InstallmentID, proofReference string) (bool, error)

func (f ProofFunc) Exists(ctx context.Context, installmentID InstallmentID, proofReference string) (bool, error) {
	return f(ctx, installmentID, proofReference)
}
