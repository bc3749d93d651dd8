/*
handlers.go - HTTP API handlers for the collections engine

PURPOSE:
  Exposes the installment reconciliation engine via REST API. Handles
  HTTP request/response, JSON serialization, and delegates to domain
  logic.

ENDPOINTS:
  Policies:
    GET    /api/policies                     List policies
    POST   /api/policies                     Create policy + schedule
    GET    /api/policies/{id}                Policy with installments
    GET    /api/policies/{id}/stats          Policy dashboard totals
    GET    /api/policies/{id}/credits        Unattributed credits
    POST   /api/policies/{id}/credits        Record unattributed credit

  Installments:
    GET    /api/installments/{id}            Installment detail
    POST   /api/installments/{id}/payments   Register payment
    GET    /api/installments/{id}/payments   Payment history
    POST   /api/installments/{id}/extensions Extend due date
    GET    /api/installments/{id}/extensions Extension history
    GET    /api/installments/{id}/candidates Redistribution candidates
    POST   /api/installments/{id}/redistribution/preview Equal-split preview
    POST   /api/installments/{id}/redistribution         Apply redistribution

  Other:
    GET    /api/stats                        Totals over all installments
    POST   /api/proofs                       Register proof reference
    GET    /api/health                       Liveness

SCOPING NOTE:
  The engine performs no authorization. In production a scoping layer in
  front of these handlers filters which policies and installments the
  caller may act on; the routes here trust their inputs are pre-scoped.

ERROR HANDLING:
  Errors are returned as JSON with the status derived from the error
  kind:
  - 400: validation (caller can correct and resubmit)
  - 404: unknown policy or installment
  - 409: conflict with current state (already settled, sum mismatch caps,
         version conflict, nothing to redistribute to)
  - 500: persistence failures, surfaced generically

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
*/
package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"

	"github.com/corredora/collections-engine/collections"
	"github.com/corredora/collections-engine/schedule"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// ProofRegistry is a ProofStore that can also record new references, so
// the API can stand in for the external document store's upload callback.
type ProofRegistry interface {
	collections.ProofStore
	Register(installmentID collections.InstallmentID, ref string)
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Store  collections.TxStore
	Proofs ProofRegistry

	registrar     *collections.Registrar
	redistributor *collections.Redistributor
	extensions    *collections.ExtensionTracker

	now func() time.Time
}

// NewHandler creates a new handler with the given store and proof registry.
func NewHandler(store collections.TxStore, proofs ProofRegistry) *Handler {
	return &Handler{
		Store:         store,
		Proofs:        proofs,
		registrar:     collections.NewRegistrar(store, proofs),
		redistributor: collections.NewRedistributor(store),
		extensions:    collections.NewExtensionTracker(store),
		now:           time.Now,
	}
}

// =============================================================================
// POLICY HANDLERS
// =============================================================================

// ListPolicies returns all policies.
func (h *Handler) ListPolicies(w http.ResponseWriter, r *http.Request) {
	policies, err := h.Store.ListPolicies(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list policies", err)
		return
	}

	dtos := make([]PolicyDTO, len(policies))
	for i, p := range policies {
		dtos[i] = PolicyDTO{
			ID:           string(p.ID),
			Currency:     p.Currency,
			TotalPremium: p.TotalPremium.StringFixed(2),
			CreatedAt:    p.CreatedAt.Format(time.RFC3339),
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreatePolicy creates a policy together with its installment schedule.
func (h *Handler) CreatePolicy(w http.ResponseWriter, r *http.Request) {
	var req CreatePolicyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Policy id is required", nil)
		return
	}
	premium, err := decimal.NewFromString(req.TotalPremium)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid total_premium (use a decimal string)", err)
		return
	}
	firstDue, err := time.Parse(dateLayout, req.FirstDueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid first_due_date format (use YYYY-MM-DD)", err)
		return
	}

	installments, err := schedule.Build(schedule.Plan{
		PolicyID:     collections.PolicyID(req.ID),
		TotalPremium: premium,
		Installments: req.Installments,
		FirstDueDate: firstDue,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid schedule", err)
		return
	}

	policy := collections.Policy{
		ID:           collections.PolicyID(req.ID),
		Currency:     req.Currency,
		TotalPremium: premium,
		CreatedAt:    time.Now().UTC(),
	}
	err = h.Store.WithTx(r.Context(), func(s collections.Store) error {
		if err := s.SavePolicy(r.Context(), policy); err != nil {
			return err
		}
		for _, inst := range installments {
			if err := s.SaveInstallment(r.Context(), inst); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create policy", err)
		return
	}

	today := h.now()
	dtos := make([]InstallmentDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toInstallmentDTO(inst, today)
	}
	writeJSON(w, http.StatusCreated, map[string]any{
		"policy": PolicyDTO{
			ID:           string(policy.ID),
			Currency:     policy.Currency,
			TotalPremium: policy.TotalPremium.StringFixed(2),
			CreatedAt:    policy.CreatedAt.Format(time.RFC3339),
		},
		"installments": dtos,
	})
}

// GetPolicy returns a policy with its installments and derived statuses.
func (h *Handler) GetPolicy(w http.ResponseWriter, r *http.Request) {
	id := collections.PolicyID(chi.URLParam(r, "id"))

	policy, err := h.Store.GetPolicy(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	installments, err := h.Store.ListByPolicy(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
		return
	}

	today := h.now()
	dtos := make([]InstallmentDTO, len(installments))
	for i, inst := range installments {
		dtos[i] = toInstallmentDTO(inst, today)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"policy": PolicyDTO{
			ID:           string(policy.ID),
			Currency:     policy.Currency,
			TotalPremium: policy.TotalPremium.StringFixed(2),
			CreatedAt:    policy.CreatedAt.Format(time.RFC3339),
		},
		"installments":            dtos,
		"overdue_count":           collections.OverdueCount(installments, today),
		"needs_collection_notice": collections.NeedsCollectionNotice(installments, today),
	})
}

// GetPolicyStats returns dashboard totals for one policy.
func (h *Handler) GetPolicyStats(w http.ResponseWriter, r *http.Request) {
	id := collections.PolicyID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetPolicy(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	installments, err := h.Store.ListByPolicy(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
		return
	}
	today := h.now()
	dto := toStatsDTO(collections.Stats(installments, today))
	dto.NeedsCollectionNotice = collections.NeedsCollectionNotice(installments, today)
	writeJSON(w, http.StatusOK, dto)
}

// =============================================================================
// INSTALLMENT HANDLERS
// =============================================================================

// GetInstallment returns an installment with its payment and extension
// history.
func (h *Handler) GetInstallment(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	inst, err := h.Store.GetInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	extensions, err := h.Store.ListExtensions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list extensions", err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"installment": toInstallmentDTO(*inst, h.now()),
		"payments":    toPaymentRecordDTOs(payments),
		"extensions":  toExtensionEntryDTOs(extensions),
	})
}

// RegisterPayment records a payment against one installment.
func (h *Handler) RegisterPayment(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	var req RegisterPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}
	paymentDate, err := time.Parse(dateLayout, req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.registrar.RegisterPayment(r.Context(), collections.RegisterPaymentInput{
		InstallmentID:  id,
		Amount:         amount,
		PaymentDate:    paymentDate,
		Notes:          req.Notes,
		ProofReference: req.ProofReference,
		Actor:          req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPaymentResultDTO(result))
}

// ListPayments returns an installment's payment history.
func (h *Handler) ListPayments(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetInstallment(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	payments, err := h.Store.ListPayments(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list payments", err)
		return
	}
	writeJSON(w, http.StatusOK, toPaymentRecordDTOs(payments))
}

// =============================================================================
// EXTENSION HANDLERS
// =============================================================================

// ExtendDueDate moves an installment's due date forward with audit
// history.
func (h *Handler) ExtendDueDate(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	var req ExtendRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	newDue, err := time.Parse(dateLayout, req.NewDueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_due_date format (use YYYY-MM-DD)", err)
		return
	}

	result, err := h.extensions.ExtendDueDate(r.Context(), collections.ExtendInput{
		InstallmentID: id,
		NewDueDate:    newDue,
		Reason:        req.Reason,
		Actor:         req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, ExtensionResultDTO{
		InstallmentID:   string(result.InstallmentID),
		PreviousDueDate: result.PreviousDueDate.Format(dateLayout),
		NewDueDate:      result.NewDueDate.Format(dateLayout),
		OriginalDueDate: result.OriginalDueDate.Format(dateLayout),
		ExtensionDays:   result.ExtensionDays,
	})
}

// ListExtensions returns an installment's extension history.
func (h *Handler) ListExtensions(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetInstallment(r.Context(), id); err != nil {
		writeDomainError(w, err)
		return
	}
	extensions, err := h.Store.ListExtensions(r.Context(), id)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list extensions", err)
		return
	}
	writeJSON(w, http.StatusOK, toExtensionEntryDTOs(extensions))
}

// =============================================================================
// REDISTRIBUTION HANDLERS
// =============================================================================

// ListCandidates returns the installments eligible to receive an excess
// from the given source installment.
func (h *Handler) ListCandidates(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	inst, err := h.Store.GetInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	candidates, err := h.redistributor.BuildCandidateSet(r.Context(), inst.PolicyID, inst.ID, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toCandidateDTOs(candidates))
}

// PreviewSplit computes an equal split of an excess across the selected
// candidates without applying anything.
func (h *Handler) PreviewSplit(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	var req SplitPreviewRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	excess, err := decimal.NewFromString(req.ExcessAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid excess_amount (use a decimal string)", err)
		return
	}

	inst, err := h.Store.GetInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	candidates, err := h.redistributor.BuildCandidateSet(r.Context(), inst.PolicyID, inst.ID, h.now())
	if err != nil {
		writeDomainError(w, err)
		return
	}
	candidates = filterCandidates(candidates, req.Candidates)
	if len(candidates) == 0 {
		writeDomainError(w, collections.ErrNoRedistributionTargets)
		return
	}

	allocations, remainder := collections.EqualSplit(excess, candidates)
	dtos := make([]AllocationDTO, len(allocations))
	for i, a := range allocations {
		dtos[i] = AllocationDTO{InstallmentID: string(a.InstallmentID), Amount: a.Amount.StringFixed(2)}
	}
	writeJSON(w, http.StatusOK, SplitPreviewResponse{
		Allocations: dtos,
		Remainder:   remainder.StringFixed(2),
	})
}

// ApplyRedistribution validates and applies an allocation set against the
// exact-sum invariant.
func (h *Handler) ApplyRedistribution(w http.ResponseWriter, r *http.Request) {
	id := collections.InstallmentID(chi.URLParam(r, "id"))

	var req ApplyRedistributionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	excess, err := decimal.NewFromString(req.ExcessAmount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid excess_amount (use a decimal string)", err)
		return
	}
	paymentDate, err := time.Parse(dateLayout, req.PaymentDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date format (use YYYY-MM-DD)", err)
		return
	}
	allocations := make([]collections.Allocation, len(req.Allocations))
	for i, a := range req.Allocations {
		amount, err := decimal.NewFromString(a.Amount)
		if err != nil {
			writeError(w, http.StatusBadRequest,
				fmt.Sprintf("Invalid allocation amount for %s", a.InstallmentID), err)
			return
		}
		allocations[i] = collections.Allocation{
			InstallmentID: collections.InstallmentID(a.InstallmentID),
			Amount:        amount,
		}
	}

	inst, err := h.Store.GetInstallment(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	result, err := h.redistributor.ApplyRedistribution(r.Context(), collections.ApplyRedistributionInput{
		PolicyID:            inst.PolicyID,
		SourceInstallmentID: inst.ID,
		ExcessAmount:        excess,
		Allocations:         allocations,
		PaymentDate:         paymentDate,
		ProofReference:      req.ProofReference,
		Actor:               req.Actor,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	results := make([]AppliedAllocationDTO, len(result.Results))
	for i, applied := range result.Results {
		results[i] = AppliedAllocationDTO{
			InstallmentID:    string(applied.InstallmentID),
			AmountOriginal:   applied.AmountOriginal.StringFixed(2),
			AmountApplied:    applied.AmountApplied.StringFixed(2),
			ResultingBalance: applied.ResultingBalance.StringFixed(2),
			Status:           string(applied.Status),
		}
	}
	writeJSON(w, http.StatusOK, RedistributionResultDTO{
		SourceInstallmentID: string(result.SourceInstallmentID),
		ExcessAmount:        result.ExcessAmount.StringFixed(2),
		AppliedTotal:        result.AppliedTotal.StringFixed(2),
		Results:             results,
	})
}

// =============================================================================
// UNATTRIBUTED CREDIT HANDLERS
// =============================================================================

// RecordCredit records an excess that had no installment left to receive
// it.
func (h *Handler) RecordCredit(w http.ResponseWriter, r *http.Request) {
	policyID := collections.PolicyID(chi.URLParam(r, "id"))

	var req RecordCreditRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount (use a decimal string)", err)
		return
	}

	credit, err := h.redistributor.RecordUnattributedCredit(r.Context(), policyID,
		collections.InstallmentID(req.SourceInstallmentID), amount, req.Notes)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toCreditDTO(*credit))
}

// ListCredits returns a policy's unattributed credits.
func (h *Handler) ListCredits(w http.ResponseWriter, r *http.Request) {
	policyID := collections.PolicyID(chi.URLParam(r, "id"))
	if _, err := h.Store.GetPolicy(r.Context(), policyID); err != nil {
		writeDomainError(w, err)
		return
	}
	credits, err := h.Store.ListUnattributedCredits(r.Context(), policyID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list credits", err)
		return
	}
	dtos := make([]CreditDTO, len(credits))
	for i, c := range credits {
		dtos[i] = toCreditDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// STATS / PROOFS / HEALTH
// =============================================================================

// GetStats returns dashboard totals over every installment.
func (h *Handler) GetStats(w http.ResponseWriter, r *http.Request) {
	installments, err := h.Store.ListInstallments(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list installments", err)
		return
	}
	writeJSON(w, http.StatusOK, toStatsDTO(collections.Stats(installments, h.now())))
}

// RegisterProof records a proof-of-payment reference for an installment.
func (h *Handler) RegisterProof(w http.ResponseWriter, r *http.Request) {
	var req RegisterProofRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.InstallmentID == "" || req.ProofReference == "" {
		writeError(w, http.StatusBadRequest, "installment_id and proof_reference are required", nil)
		return
	}
	if _, err := h.Store.GetInstallment(r.Context(), collections.InstallmentID(req.InstallmentID)); err != nil {
		writeDomainError(w, err)
		return
	}
	h.Proofs.Register(collections.InstallmentID(req.InstallmentID), req.ProofReference)
	writeJSON(w, http.StatusCreated, map[string]any{
		"installment_id":  req.InstallmentID,
		"proof_reference": req.ProofReference,
	})
}

// Health is a liveness endpoint.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// HELPERS
// =============================================================================

func toPaymentRecordDTOs(payments []collections.PaymentRecord) []PaymentRecordDTO {
	dtos := make([]PaymentRecordDTO, len(payments))
	for i, rec := range payments {
		dtos[i] = PaymentRecordDTO{
			ID:             rec.ID,
			InstallmentID:  string(rec.InstallmentID),
			Amount:         rec.Amount.StringFixed(2),
			PaymentDate:    rec.PaymentDate.Format(dateLayout),
			Notes:          rec.Notes,
			ProofReference: rec.ProofReference,
			CreatedAt:      rec.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

func toExtensionEntryDTOs(extensions []collections.ExtensionEntry) []ExtensionEntryDTO {
	dtos := make([]ExtensionEntryDTO, len(extensions))
	for i, e := range extensions {
		dtos[i] = ExtensionEntryDTO{
			ID:            e.ID,
			InstallmentID: string(e.InstallmentID),
			PreviousDate:  e.PreviousDate.Format(dateLayout),
			NewDate:       e.NewDate.Format(dateLayout),
			Reason:        e.Reason,
			Actor:         e.Actor,
			CreatedAt:     e.CreatedAt.Format(time.RFC3339),
		}
	}
	return dtos
}

func toCandidateDTOs(candidates []collections.Candidate) []CandidateDTO {
	dtos := make([]CandidateDTO, len(candidates))
	for i, c := range candidates {
		dtos[i] = CandidateDTO{
			InstallmentID: string(c.InstallmentID),
			Sequence:      c.Sequence,
			DueDate:       c.DueDate.Format(dateLayout),
			Status:        string(c.Status),
			Outstanding:   c.Outstanding.StringFixed(2),
		}
	}
	return dtos
}

func toCreditDTO(c collections.UnattributedCredit) CreditDTO {
	return CreditDTO{
		ID:                  c.ID,
		PolicyID:            string(c.PolicyID),
		SourceInstallmentID: string(c.SourceInstallmentID),
		Amount:              c.Amount.StringFixed(2),
		Notes:               c.Notes,
		CreatedAt:           c.CreatedAt.Format(time.RFC3339),
	}
}

func filterCandidates(candidates []collections.Candidate, ids []string) []collections.Candidate {
	if len(ids) == 0 {
		return candidates
	}
	keep := make(map[collections.InstallmentID]bool, len(ids))
	for _, id := range ids {
		keep[collections.InstallmentID(id)] = true
	}
	var out []collections.Candidate
	for _, c := range candidates {
		if keep[c.InstallmentID] {
			out = append(out, c)
		}
	}
	return out
}

func writeDomainError(w http.ResponseWriter, err error) {
	switch {
	case collections.IsValidation(err):
		writeError(w, http.StatusBadRequest, "Validation failed", err)
	case collections.IsNotFound(err):
		writeError(w, http.StatusNotFound, "Not found", err)
	case collections.IsConflict(err):
		writeError(w, http.StatusConflict, "Conflict", err)
	default:
		writeError(w, http.StatusInternalServerError, "Operation failed", err)
	}
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
