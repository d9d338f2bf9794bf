package service

import (
	"context"
	"fmt"

	"loyalty-ledger/internal/leaderboard"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/ranking"
)

const maxTopAccounts = 500

// Standing is an account's view of its own rank.
type Standing struct {
	Account  *model.Account   `json:"account"`
	Progress ranking.Progress `json:"progress"`
	// Position on the leaderboard, 0 when the account is not on it.
	Position int `json:"position"`
}

// RankingService handles tier resolution and the leaderboard.
type RankingService struct {
	accounts AccountStore
	levels   *ranking.Table
	board    *leaderboard.Board
}

// NewRankingService creates a new RankingService instance.
func NewRankingService(accounts AccountStore, levels *ranking.Table, board *leaderboard.Board) *RankingService {
	return &RankingService{
		accounts: accounts,
		levels:   levels,
		board:    board,
	}
}

// Levels returns the threshold table, highest rank first.
func (s *RankingService) Levels() []ranking.Level {
	return s.levels.Levels()
}

// CategoryCounts returns the number of levels per category.
func (s *RankingService) CategoryCounts() map[string]int {
	return s.levels.CategoryCounts()
}

// ProgressFor resolves an already loaded account. Balances below zero,
// which only an admin correction can produce, sit in the bottom level.
func (s *RankingService) ProgressFor(acct *model.Account) ranking.Progress {
	p, _ := s.levels.Progress(max(0, acct.LoyaltyPoints))
	p.Points = acct.LoyaltyPoints
	if p.Next != nil {
		p.PointsToNext = max(0, p.Next.MinPoints-acct.LoyaltyPoints)
	}
	return p
}

// Progress loads the account and resolves its progress.
func (s *RankingService) Progress(ctx context.Context, accountID int64) (ranking.Progress, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return ranking.Progress{}, fmt.Errorf("failed to get account: %w", err)
	}
	return s.ProgressFor(acct), nil
}

// CurrentTier returns the level the account currently holds.
func (s *RankingService) CurrentTier(ctx context.Context, accountID int64) (ranking.Level, error) {
	p, err := s.Progress(ctx, accountID)
	if err != nil {
		return ranking.Level{}, err
	}
	return p.Current, nil
}

// PointsToNext returns the points the account is missing for the next
// level, 0 at the top.
func (s *RankingService) PointsToNext(ctx context.Context, accountID int64) (int64, error) {
	p, err := s.Progress(ctx, accountID)
	if err != nil {
		return 0, err
	}
	return p.PointsToNext, nil
}

// TopAccounts returns up to limit accounts by loyalty points.
func (s *RankingService) TopAccounts(ctx context.Context, limit int) ([]*model.Account, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be positive", model.ErrInvalidArgument)
	}
	accounts, err := s.accounts.TopByPoints(ctx, min(limit, maxTopAccounts))
	if err != nil {
		return nil, fmt.Errorf("failed to get top accounts: %w", err)
	}
	return accounts, nil
}

// Leaderboard fills every board position from the current ranking.
func (s *RankingService) Leaderboard(ctx context.Context) ([]leaderboard.Assignment, error) {
	accounts, err := s.accounts.TopByPoints(ctx, s.board.SlotCount())
	if err != nil {
		return nil, fmt.Errorf("failed to get ranked accounts: %w", err)
	}

	ranked := make([]leaderboard.Participant, len(accounts))
	for i, a := range accounts {
		ranked[i] = leaderboard.Participant{
			AccountID:     a.ID,
			DisplayName:   a.DisplayName,
			LoyaltyPoints: a.LoyaltyPoints,
		}
	}
	return s.board.Assign(ranked)
}

// Standing returns the account with its progress and board position.
func (s *RankingService) Standing(ctx context.Context, accountID int64) (*Standing, error) {
	acct, err := s.accounts.GetByID(ctx, accountID)
	if err != nil {
		return nil, fmt.Errorf("failed to get account: %w", err)
	}

	board, err := s.Leaderboard(ctx)
	if err != nil {
		return nil, err
	}

	st := &Standing{Account: acct, Progress: s.ProgressFor(acct)}
	for _, a := range board {
		if a.Account != nil && a.Account.AccountID == accountID {
			st.Position = a.Position
			break
		}
	}
	return st, nil
}
