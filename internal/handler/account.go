package handler

import (
	"net/http"

	"loyalty-ledger/internal/service"
)

// AccountHandler serves the caller's own account.
type AccountHandler struct {
	ranking *service.RankingService
	ledger  *service.LedgerService
	awards  *service.AwardService
}

// NewAccountHandler creates a new AccountHandler.
func NewAccountHandler(ranking *service.RankingService, ledger *service.LedgerService, awards *service.AwardService) *AccountHandler {
	return &AccountHandler{
		ranking: ranking,
		ledger:  ledger,
		awards:  awards,
	}
}

// Me handles GET /api/me: balances, tier progress and board position.
func (h *AccountHandler) Me(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}

	st, err := h.ranking.Standing(r.Context(), acct.ID)
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, st)
}

// History handles GET /api/me/history?limit=.
func (h *AccountHandler) History(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}

	limit, err := queryInt(r, "limit", 0)
	if err != nil {
		Error(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	entries, err := h.ledger.History(r.Context(), acct.ID, limit)
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, entries)
}

// ProfileCompleted handles POST /api/me/profile-completed.
func (h *AccountHandler) ProfileCompleted(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	writeOutcome(w, r)(h.awards.ProfileCompleted(r.Context(), acct.ID))
}

// DailyLogin handles POST /api/me/daily-login.
func (h *AccountHandler) DailyLogin(w http.ResponseWriter, r *http.Request) {
	acct, ok := caller(w, r)
	if !ok {
		return
	}
	writeOutcome(w, r)(h.awards.DailyLogin(r.Context(), acct.ID))
}

// writeOutcome answers an award call: 201 for a fresh award, 200 for a
// duplicate.
func writeOutcome(w http.ResponseWriter, r *http.Request) func(*service.Outcome, error) {
	return func(out *service.Outcome, err error) {
		if err != nil {
			Fail(w, r, err)
			return
		}
		if out.Duplicate {
			Success(w, out)
			return
		}
		Created(w, out)
	}
}
