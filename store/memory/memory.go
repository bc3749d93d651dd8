// Package memory provides an in-memory Store implementation for tests and dev.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/corredora/collections-engine/collections"
)

// =============================================================================
// MEMORY STORE - In-memory implementation (for testing/dev)
// =============================================================================

type Store struct {
	mu           sync.RWMutex
	policies     map[collections.PolicyID]collections.Policy
	policyOrder  []collections.PolicyID
	installments map[collections.InstallmentID]collections.Installment
	payments     map[collections.InstallmentID][]collections.PaymentRecord
	extensions   map[collections.InstallmentID][]collections.ExtensionEntry
	credits      map[collections.PolicyID][]collections.UnattributedCredit
}

func New() *Store {
	return &Store{
		policies:     make(map[collections.PolicyID]collections.Policy),
		installments: make(map[collections.InstallmentID]collections.Installment),
		payments:     make(map[collections.InstallmentID][]collections.PaymentRecord),
		extensions:   make(map[collections.InstallmentID][]collections.ExtensionEntry),
		credits:      make(map[collections.PolicyID][]collections.UnattributedCredit),
	}
}

// =============================================================================
// POLICIES
// =============================================================================

func (m *Store) SavePolicy(_ context.Context, p collections.Policy) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.policies[p.ID]; !exists {
		m.policyOrder = append(m.policyOrder, p.ID)
	}
	m.policies[p.ID] = p
	return nil
}

func (m *Store) GetPolicy(_ context.Context, id collections.PolicyID) (*collections.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.policies[id]
	if !ok {
		return nil, collections.ErrPolicyNotFound
	}
	return &p, nil
}

func (m *Store) ListPolicies(_ context.Context) ([]collections.Policy, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]collections.Policy, 0, len(m.policyOrder))
	for _, id := range m.policyOrder {
		out = append(out, m.policies[id])
	}
	return out, nil
}

// =============================================================================
// INSTALLMENTS
// =============================================================================

func (m *Store) SaveInstallment(_ context.Context, inst collections.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.installments[inst.ID] = inst
	return nil
}

func (m *Store) GetInstallment(_ context.Context, id collections.InstallmentID) (*collections.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	inst, ok := m.installments[id]
	if !ok {
		return nil, collections.ErrInstallmentNotFound
	}
	return &inst, nil
}

func (m *Store) ListByPolicy(_ context.Context, policyID collections.PolicyID) ([]collections.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var out []collections.Installment
	for _, inst := range m.installments {
		if inst.PolicyID == policyID {
			out = append(out, inst)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Sequence < out[j].Sequence })
	return out, nil
}

func (m *Store) ListInstallments(_ context.Context) ([]collections.Installment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]collections.Installment, 0, len(m.installments))
	for _, inst := range m.installments {
		out = append(out, inst)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].PolicyID != out[j].PolicyID {
			return out[i].PolicyID < out[j].PolicyID
		}
		return out[i].Sequence < out[j].Sequence
	})
	return out, nil
}

func (m *Store) UpdateInstallment(_ context.Context, inst collections.Installment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	current, ok := m.installments[inst.ID]
	if !ok {
		return collections.ErrInstallmentNotFound
	}
	if current.Version != inst.Version {
		return collections.ErrVersionConflict
	}
	inst.Version++
	m.installments[inst.ID] = inst
	return nil
}

// =============================================================================
// APPEND-ONLY RECORDS
// =============================================================================

func (m *Store) AppendPayment(_ context.Context, rec collections.PaymentRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.payments[rec.InstallmentID] = append(m.payments[rec.InstallmentID], rec)
	return nil
}

func (m *Store) ListPayments(_ context.Context, installmentID collections.InstallmentID) ([]collections.PaymentRecord, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]collections.PaymentRecord, len(m.payments[installmentID]))
	copy(out, m.payments[installmentID])
	return out, nil
}

func (m *Store) AppendExtension(_ context.Context, entry collections.ExtensionEntry) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.extensions[entry.InstallmentID] = append(m.extensions[entry.InstallmentID], entry)
	return nil
}

func (m *Store) ListExtensions(_ context.Context, installmentID collections.InstallmentID) ([]collections.ExtensionEntry, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]collections.ExtensionEntry, len(m.extensions[installmentID]))
	copy(out, m.extensions[installmentID])
	return out, nil
}

func (m *Store) AppendUnattributedCredit(_ context.Context, credit collections.UnattributedCredit) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credits[credit.PolicyID] = append(m.credits[credit.PolicyID], credit)
	return nil
}

func (m *Store) ListUnattributedCredits(_ context.Context, policyID collections.PolicyID) ([]collections.UnattributedCredit, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]collections.UnattributedCredit, len(m.credits[policyID]))
	copy(out, m.credits[policyID])
	return out, nil
}

// =============================================================================
// TRANSACTIONS - Snapshot rollback
// =============================================================================

// WithTx executes fn against the store, restoring a snapshot of all state
// if fn fails. Good enough for single-process tests and dev; the SQLite
// store uses real database transactions.
func (m *Store) WithTx(_ context.Context, fn func(collections.Store) error) error {
	m.mu.Lock()
	snapshot := m.cloneLocked()
	m.mu.Unlock()

	if err := fn(m); err != nil {
		m.mu.Lock()
		m.restoreLocked(snapshot)
		m.mu.Unlock()
		return err
	}
	return nil
}

type state struct {
	policies     map[collections.PolicyID]collections.Policy
	policyOrder  []collections.PolicyID
	installments map[collections.InstallmentID]collections.Installment
	payments     map[collections.InstallmentID][]collections.PaymentRecord
	extensions   map[collections.InstallmentID][]collections.ExtensionEntry
	credits      map[collections.PolicyID][]collections.UnattributedCredit
}

func (m *Store) cloneLocked() state {
	s := state{
		policies:     make(map[collections.PolicyID]collections.Policy, len(m.policies)),
		policyOrder:  append([]collections.PolicyID(nil), m.policyOrder...),
		installments: make(map[collections.InstallmentID]collections.Installment, len(m.installments)),
		payments:     make(map[collections.InstallmentID][]collections.PaymentRecord, len(m.payments)),
		extensions:   make(map[collections.InstallmentID][]collections.ExtensionEntry, len(m.extensions)),
		credits:      make(map[collections.PolicyID][]collections.UnattributedCredit, len(m.credits)),
	}
	for k, v := range m.policies {
		s.policies[k] = v
	}
	for k, v := range m.installments {
		s.installments[k] = v
	}
	for k, v := range m.payments {
		s.payments[k] = append([]collections.PaymentRecord(nil), v...)
	}
	for k, v := range m.extensions {
		s.extensions[k] = append([]collections.ExtensionEntry(nil), v...)
	}
	for k, v := range m.credits {
		s.credits[k] = append([]collections.UnattributedCredit(nil), v...)
	}
	return s
}

func (m *Store) restoreLocked(s state) {
	m.policies = s.policies
	m.policyOrder = s.policyOrder
	m.installments = s.installments
	m.payments = s.payments
	m.extensions = s.extensions
	m.credits = s.credits
}

// =============================================================================
// PROOF SET - Stand-in for the external document store
// =============================================================================

// ProofSet is an in-memory ProofStore. Real proof-of-payment documents
// live in an external system; this registry only tracks which references
// exist for which installment.
type ProofSet struct {
	mu   sync.RWMutex
	refs map[collections.InstallmentID]map[string]bool
}

func NewProofSet() *ProofSet {
	return &ProofSet{refs: make(map[collections.InstallmentID]map[string]bool)}
}

// Register associates a proof reference with an installment.
func (p *ProofSet) Register(installmentID collections.InstallmentID, ref string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.refs[installmentID] == nil {
		p.refs[installmentID] = make(map[string]bool)
	}
	p.refs[installmentID][ref] = true
}

func (p *ProofSet) Exists(_ context.Context, installmentID collections.InstallmentID, ref string) (bool, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.refs[installmentID][ref], nil
}
