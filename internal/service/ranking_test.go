package service

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"loyalty-ledger/internal/leaderboard"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/ranking"
	"loyalty-ledger/internal/repository"
)

func seedAccounts(t *testing.T, store *repository.MemoryStore, points ...int64) []int64 {
	t.Helper()
	ctx := context.Background()
	ids := make([]int64, len(points))
	for i, p := range points {
		acct, err := store.Create(ctx, fmt.Sprintf("seed-%d", i), fmt.Sprintf("user%d", i), "")
		require.NoError(t, err)
		ids[i] = acct.ID
		if p == 0 {
			continue
		}
		_, _, err = store.Apply(ctx, model.Mutation{
			AccountID: acct.ID, Delta: p, Reason: "seed", Kind: model.KindSystem, AllowNegative: true,
		})
		require.NoError(t, err)
	}
	return ids
}

func newRankingService(t *testing.T, store *repository.MemoryStore, cut, slotCount int, roster ...string) *RankingService {
	t.Helper()
	board, err := leaderboard.NewBoard(leaderboard.DefaultSlots(), leaderboard.NewRoster(roster), cut, slotCount)
	require.NoError(t, err)
	return NewRankingService(store, ranking.DefaultTable(), board)
}

func TestRankingService_Tiers(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 1500, 1499, 100000, -20)
	svc := newRankingService(t, store, 2, 10)
	ctx := context.Background()

	level, err := svc.CurrentTier(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "laza", level.ID)

	level, err = svc.CurrentTier(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, "jahannam", level.ID)

	missing, err := svc.PointsToNext(ctx, ids[1])
	require.NoError(t, err)
	assert.Equal(t, int64(1), missing)

	missing, err = svc.PointsToNext(ctx, ids[2])
	require.NoError(t, err)
	assert.Equal(t, int64(0), missing)

	p, err := svc.Progress(ctx, ids[3])
	require.NoError(t, err)
	assert.Equal(t, int64(-20), p.Points)
	assert.Equal(t, "jahannam", p.Current.ID)
	assert.Equal(t, int64(1520), p.PointsToNext)

	_, err = svc.CurrentTier(ctx, 999)
	assert.ErrorIs(t, err, model.ErrAccountNotFound)

	assert.Len(t, svc.Levels(), 19)
	assert.Equal(t, 7, svc.CategoryCounts()[ranking.CategorySurga])
}

func TestRankingService_Leaderboard(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 10, 50, 30, 40, 20)
	svc := newRankingService(t, store, 2, 8, "Alpha", "Beta")

	board, err := svc.Leaderboard(context.Background())
	require.NoError(t, err)
	require.Len(t, board, 8)

	assert.Equal(t, ids[1], board[0].Account.AccountID)
	assert.Equal(t, ids[3], board[1].Account.AccountID)
	assert.Equal(t, "Alpha", board[2].Placeholder.Name)
	assert.Equal(t, "Beta", board[3].Placeholder.Name)
	assert.Equal(t, ids[2], board[4].Account.AccountID)
	assert.Equal(t, ids[4], board[5].Account.AccountID)
	assert.Equal(t, ids[0], board[6].Account.AccountID)
	assert.Equal(t, leaderboard.KindEmpty, board[7].Kind)

	for i, a := range board {
		assert.Equal(t, i+1, a.Position)
		require.NotNil(t, a.Slot)
	}

	st, err := svc.Standing(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Equal(t, 5, st.Position)
	assert.Equal(t, int64(30), st.Progress.Points)
}

func TestRankingService_StandingOffBoard(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 50, 40, 10)
	svc := newRankingService(t, store, 1, 2)

	st, err := svc.Standing(context.Background(), ids[2])
	require.NoError(t, err)
	assert.Equal(t, 0, st.Position)
}

func TestRankingService_TopAccounts(t *testing.T) {
	store := repository.NewMemoryStore()
	ids := seedAccounts(t, store, 10, 50, 30)
	svc := newRankingService(t, store, 0, 0)

	top, err := svc.TopAccounts(context.Background(), 2)
	require.NoError(t, err)
	require.Len(t, top, 2)
	assert.Equal(t, ids[1], top[0].ID)
	assert.Equal(t, ids[2], top[1].ID)

	_, err = svc.TopAccounts(context.Background(), 0)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)
}
