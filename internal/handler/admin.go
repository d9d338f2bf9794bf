package handler

import (
	"context"
	"net/http"
	"strings"

	"github.com/gorilla/mux"
	"github.com/rs/zerolog/log"

	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/service"
)

// AdminHandler handles the admin award and audit endpoints.
type AdminHandler struct {
	awards *service.AwardService
	ledger *service.LedgerService
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(awards *service.AwardService, ledger *service.LedgerService) *AdminHandler {
	return &AdminHandler{awards: awards, ledger: ledger}
}

// AmountRequest is the body of grant and correction calls. Key is an
// optional idempotency key; retrying with the same key is a no-op.
type AmountRequest struct {
	Amount int64  `json:"amount"`
	Key    string `json:"key,omitempty"`
}

// TaskApprovalRequest is the body of a task approval.
type TaskApprovalRequest struct {
	AccountID int64 `json:"account_id"`
	Points    int64 `json:"points"`
}

// amountAwardFunc matches the AwardService admin methods.
type amountAwardFunc func(ctx context.Context, actorID, accountID, amount int64, key string) (*service.Outcome, error)

// Grant handles POST /api/admin/accounts/{id}/grant.
func (h *AdminHandler) Grant(w http.ResponseWriter, r *http.Request) {
	h.amountAward(w, r, "grant", h.awards.AdminGrant)
}

// Correction handles POST /api/admin/accounts/{id}/correction.
func (h *AdminHandler) Correction(w http.ResponseWriter, r *http.Request) {
	h.amountAward(w, r, "correction", h.awards.AdminCorrection)
}

// CoinCorrection handles POST /api/admin/accounts/{id}/coin-correction.
func (h *AdminHandler) CoinCorrection(w http.ResponseWriter, r *http.Request) {
	h.amountAward(w, r, "coin_correction", h.awards.AdminCoinCorrection)
}

func (h *AdminHandler) amountAward(w http.ResponseWriter, r *http.Request, operation string, apply amountAwardFunc) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	var req AmountRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Fail(w, r, err)
		return
	}
	if req.Amount == 0 {
		Error(w, http.StatusBadRequest, "amount must be non-zero")
		return
	}

	out, err := apply(r.Context(), admin.ID, accountID, req.Amount, req.Key)
	if err == nil {
		log.Info().
			Int64("admin_id", admin.ID).
			Int64("target_id", accountID).
			Int64("amount", req.Amount).
			Str("operation", operation).
			Bool("duplicate", out.Duplicate).
			Msg("Admin operation executed")
	}
	writeOutcome(w, r)(out, err)
}

// BCVerified handles POST /api/admin/accounts/{id}/bc-verified.
func (h *AdminHandler) BCVerified(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}
	accountID, ok := pathID(w, r, "id")
	if !ok {
		return
	}
	writeOutcome(w, r)(h.awards.BeautyConsultantVerified(r.Context(), &admin.ID, accountID))
}

// ApproveTask handles POST /api/admin/tasks/{submission}/approve.
func (h *AdminHandler) ApproveTask(w http.ResponseWriter, r *http.Request) {
	admin, ok := caller(w, r)
	if !ok {
		return
	}

	submission := strings.TrimSpace(mux.Vars(r)["submission"])
	if submission == "" {
		Error(w, http.StatusBadRequest, "submission id is required")
		return
	}

	var req TaskApprovalRequest
	if err := DecodeJSON(w, r, &req); err != nil {
		Fail(w, r, err)
		return
	}
	if req.AccountID <= 0 || req.Points <= 0 {
		Error(w, http.StatusBadRequest, "account_id and points must be positive")
		return
	}

	writeOutcome(w, r)(h.awards.TaskApproved(r.Context(), &admin.ID, req.AccountID, submission, req.Points))
}

type auditResponse struct {
	InSync        bool                `json:"in_sync"`
	Discrepancies []model.Discrepancy `json:"discrepancies"`
}

// Audit handles GET /api/admin/audit.
func (h *AdminHandler) Audit(w http.ResponseWriter, r *http.Request) {
	found, err := h.ledger.Audit(r.Context())
	if err != nil {
		Fail(w, r, err)
		return
	}
	if found == nil {
		found = []model.Discrepancy{}
	}
	Success(w, auditResponse{InSync: len(found) == 0, Discrepancies: found})
}
