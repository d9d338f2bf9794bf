package handler

import (
	"net/http"

	"loyalty-ledger/internal/ranking"
	"loyalty-ledger/internal/service"
)

const defaultTopLimit = 10

// RankingHandler serves the public read boundary.
type RankingHandler struct {
	ranking *service.RankingService
}

// NewRankingHandler creates a new RankingHandler.
func NewRankingHandler(ranking *service.RankingService) *RankingHandler {
	return &RankingHandler{ranking: ranking}
}

type levelsResponse struct {
	Levels     []ranking.Level `json:"levels"`
	Categories map[string]int  `json:"categories"`
}

// Levels handles GET /api/ranking/levels.
func (h *RankingHandler) Levels(w http.ResponseWriter, r *http.Request) {
	Success(w, levelsResponse{
		Levels:     h.ranking.Levels(),
		Categories: h.ranking.CategoryCounts(),
	})
}

// Top handles GET /api/ranking/top?limit=.
func (h *RankingHandler) Top(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", defaultTopLimit)
	if err != nil {
		Error(w, http.StatusBadRequest, "limit must be an integer")
		return
	}

	accounts, err := h.ranking.TopAccounts(r.Context(), limit)
	if err != nil {
		Fail(w, r, err)
		return
	}

	out := make([]service.Standing, len(accounts))
	for i, a := range accounts {
		out[i] = service.Standing{Account: a, Progress: h.ranking.ProgressFor(a), Position: i + 1}
	}
	Success(w, out)
}

// Leaderboard handles GET /api/leaderboard.
func (h *RankingHandler) Leaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := h.ranking.Leaderboard(r.Context())
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, board)
}

// Standing handles GET /api/accounts/{id}/standing.
func (h *RankingHandler) Standing(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id")
	if !ok {
		return
	}

	st, err := h.ranking.Standing(r.Context(), id)
	if err != nil {
		Fail(w, r, err)
		return
	}
	Success(w, st)
}
