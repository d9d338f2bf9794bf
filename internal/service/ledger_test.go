package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"loyalty-ledger/internal/config"
	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/metrics"
	"loyalty-ledger/internal/repository"
)

var testLedgerConfig = config.LedgerConfig{
	MaxAttempts:    4,
	OpTimeout:      200 * time.Millisecond,
	InitialBackoff: time.Millisecond,
	MaxBackoff:     5 * time.Millisecond,
}

// flakyStore fails the first failures Apply calls with err.
type flakyStore struct {
	LedgerStore
	mu       sync.Mutex
	calls    int
	failures int
	err      error
}

func (f *flakyStore) Apply(ctx context.Context, m model.Mutation) (*model.Account, *model.LedgerEntry, error) {
	f.mu.Lock()
	f.calls++
	fail := f.failures < 0 || f.calls <= f.failures
	f.mu.Unlock()

	if fail {
		return nil, nil, f.err
	}
	return f.LedgerStore.Apply(ctx, m)
}

func (f *flakyStore) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// slowStore blocks every Apply until its context is done.
type slowStore struct {
	LedgerStore
	calls int
}

func (s *slowStore) Apply(ctx context.Context, _ model.Mutation) (*model.Account, *model.LedgerEntry, error) {
	s.calls++
	<-ctx.Done()
	return nil, nil, fmt.Errorf("apply: %w: %w", model.ErrStorageUnavailable, ctx.Err())
}

func newStoreWithAccount(t *testing.T) (*repository.MemoryStore, *model.Account) {
	t.Helper()
	store := repository.NewMemoryStore()
	acct, err := store.Create(context.Background(), "sub-1", "Ayu", "ayu@example.com")
	require.NoError(t, err)
	return store, acct
}

func TestLedgerService_ApplyPointDelta(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, metrics.NewLedger(prometheus.NewRegistry()))
	ctx := context.Background()

	res, err := svc.ApplyPointDelta(ctx, acct.ID, 5, "profile_completion", WithKind(model.KindProfileCompletion))
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.LoyaltyPoints)
	assert.Equal(t, int64(5), res.Coin)
	assert.Equal(t, 1, res.Attempts)
	assert.Equal(t, model.KindProfileCompletion, res.Entry.Kind)

	_, err = svc.ApplyPointDelta(ctx, acct.ID, 5, "profile_completion", WithKind(model.KindProfileCompletion))
	assert.ErrorIs(t, err, model.ErrDuplicateAward)

	got, err := store.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(5), got.LoyaltyPoints)
	assert.Equal(t, int64(5), got.Coin)

	res, err = svc.ApplyPointDelta(ctx, acct.ID, 3, "  task_approval:1  ", WithActor(42))
	require.NoError(t, err)
	assert.Equal(t, "task_approval:1", res.Entry.Reason)
	require.NotNil(t, res.Entry.ActorID)
	assert.Equal(t, int64(42), *res.Entry.ActorID)
	assert.Equal(t, model.KindSystem, res.Entry.Kind)
}

func TestLedgerService_Validation(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	tests := []struct {
		name      string
		accountID int64
		delta     int64
		reason    string
	}{
		{"zero account", 0, 1, "r"},
		{"negative account", -1, 1, "r"},
		{"zero delta", acct.ID, 0, "r"},
		{"empty reason", acct.ID, 1, ""},
		{"blank reason", acct.ID, 1, "   "},
		{"long reason", acct.ID, 1, strings.Repeat("x", maxReasonLen+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.ApplyPointDelta(ctx, tt.accountID, tt.delta, tt.reason)
			assert.ErrorIs(t, err, model.ErrInvalidArgument)
		})
	}

	_, err := svc.ApplyPointDelta(ctx, 9999, 1, "r")
	assert.ErrorIs(t, err, model.ErrAccountNotFound)
}

func TestLedgerService_NegativeBalance(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	_, err := svc.ApplyPointDelta(ctx, acct.ID, -1, "debit")
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	res, err := svc.ApplyPointDelta(ctx, acct.ID, -1, "debit", AllowNegative(), WithKind(model.KindAdminCorrection))
	require.NoError(t, err)
	assert.Equal(t, int64(-1), res.LoyaltyPoints)
	assert.Equal(t, int64(-1), res.Coin)
}

func TestLedgerService_ApplyCoinCorrection(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	_, err := svc.ApplyPointDelta(ctx, acct.ID, 20, "seed")
	require.NoError(t, err)

	actor := int64(7)
	res, err := svc.ApplyCoinCorrection(ctx, acct.ID, -5, "coin-fix", &actor)
	require.NoError(t, err)
	assert.Equal(t, int64(20), res.LoyaltyPoints)
	assert.Equal(t, int64(15), res.Coin)
	assert.Equal(t, int64(-5), res.Account.CoinAdjustment)
	assert.True(t, res.Account.InSync())
	assert.Equal(t, model.KindAdminCoinCorrection, res.Entry.Kind)

	_, err = svc.ApplyCoinCorrection(ctx, acct.ID, -100, "coin-fix-2", &actor)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	discrepancies, err := svc.Audit(ctx)
	require.NoError(t, err)
	assert.Empty(t, discrepancies)
}

func TestLedgerService_NoLostUpdates(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	const n = 100
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		i := i
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.ApplyPointDelta(ctx, acct.ID, 1, fmt.Sprintf("task_approval:%d", i), WithKind(model.KindTaskApproval))
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	got, err := store.GetByID(ctx, acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(n), got.LoyaltyPoints)
	assert.Equal(t, int64(n), got.Coin)

	history, err := svc.History(ctx, acct.ID, 2*n)
	require.NoError(t, err)
	assert.Len(t, history, n)
}

func TestLedgerService_RetriesTransientErrors(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	flaky := &flakyStore{LedgerStore: store, failures: 2, err: fmt.Errorf("lock: %w", model.ErrConcurrencyConflict)}
	svc := NewLedgerService(flaky, testLedgerConfig, nil)

	res, err := svc.ApplyPointDelta(context.Background(), acct.ID, 1, "r")
	require.NoError(t, err)
	assert.Equal(t, 3, res.Attempts)
	assert.Equal(t, 3, flaky.Calls())
	assert.Equal(t, int64(1), res.LoyaltyPoints)
}

func TestLedgerService_GivesUpAfterMaxAttempts(t *testing.T) {
	store, acct := newStoreWithAccount(t)

	conflict := &flakyStore{LedgerStore: store, failures: -1, err: fmt.Errorf("lock: %w", model.ErrConcurrencyConflict)}
	svc := NewLedgerService(conflict, testLedgerConfig, nil)
	_, err := svc.ApplyPointDelta(context.Background(), acct.ID, 1, "r")
	assert.ErrorIs(t, err, model.ErrConcurrencyConflict)
	assert.Equal(t, testLedgerConfig.MaxAttempts, conflict.Calls())

	down := &flakyStore{LedgerStore: store, failures: -1, err: fmt.Errorf("dial: %w", model.ErrStorageUnavailable)}
	svc = NewLedgerService(down, testLedgerConfig, nil)
	_, err = svc.ApplyPointDelta(context.Background(), acct.ID, 1, "r")
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Equal(t, testLedgerConfig.MaxAttempts, down.Calls())

	got, err := store.GetByID(context.Background(), acct.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.LoyaltyPoints)
}

func TestLedgerService_DoesNotRetryPermanentErrors(t *testing.T) {
	store, acct := newStoreWithAccount(t)

	for _, sentinel := range []error{model.ErrInvalidArgument, model.ErrDuplicateAward, errors.New("boom")} {
		flaky := &flakyStore{LedgerStore: store, failures: -1, err: sentinel}
		svc := NewLedgerService(flaky, testLedgerConfig, nil)

		_, err := svc.ApplyPointDelta(context.Background(), acct.ID, 1, "r")
		assert.ErrorIs(t, err, sentinel)
		assert.Equal(t, 1, flaky.Calls())
	}
}

func TestLedgerService_OperationTimeout(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	slow := &slowStore{LedgerStore: store}
	cfg := testLedgerConfig
	cfg.MaxAttempts = 2
	cfg.OpTimeout = 20 * time.Millisecond
	svc := NewLedgerService(slow, cfg, nil)

	start := time.Now()
	_, err := svc.ApplyPointDelta(context.Background(), acct.ID, 1, "r")
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
	assert.Equal(t, 2, slow.calls)
	assert.Less(t, time.Since(start), 2*time.Second)
}

func TestLedgerService_CallerCancellation(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := svc.ApplyPointDelta(ctx, acct.ID, 1, "r")
	assert.ErrorIs(t, err, model.ErrStorageUnavailable)
}

func TestLedgerService_HistoryClampsLimit(t *testing.T) {
	store, acct := newStoreWithAccount(t)
	svc := NewLedgerService(store, testLedgerConfig, nil)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		_, err := svc.ApplyPointDelta(ctx, acct.ID, 1, fmt.Sprintf("r%d", i))
		require.NoError(t, err)
	}

	entries, err := svc.History(ctx, acct.ID, 0)
	require.NoError(t, err)
	assert.Len(t, entries, 3)
	assert.Equal(t, "r2", entries[0].Reason)

	entries, err = svc.History(ctx, acct.ID, 2)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	_, err = svc.History(ctx, 0, 10)
	assert.ErrorIs(t, err, model.ErrInvalidArgument)

	applied, err := svc.HasReason(ctx, acct.ID, " r1 ")
	require.NoError(t, err)
	assert.True(t, applied)
}

// TestLedgerService_SyncInvariantProperty checks that after any sequence
// of mutations coin equals loyalty points plus the coin adjustment, and
// both equal their ledger sums.
func TestLedgerService_SyncInvariantProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		store := repository.NewMemoryStore()
		ctx := context.Background()
		acct, err := store.Create(ctx, "sub", "", "")
		if err != nil {
			rt.Fatalf("create: %v", err)
		}
		svc := NewLedgerService(store, testLedgerConfig, nil)

		steps := rapid.IntRange(1, 30).Draw(rt, "steps")
		for i := 0; i < steps; i++ {
			delta := rapid.Int64Range(-100, 100).Draw(rt, "delta")
			reason := fmt.Sprintf("r%d", rapid.IntRange(0, 20).Draw(rt, "reason"))

			var res *Result
			switch rapid.IntRange(0, 2).Draw(rt, "op") {
			case 0:
				res, err = svc.ApplyPointDelta(ctx, acct.ID, delta, reason)
			case 1:
				res, err = svc.ApplyPointDelta(ctx, acct.ID, delta, reason, AllowNegative())
			default:
				res, err = svc.ApplyCoinCorrection(ctx, acct.ID, delta, reason, nil)
			}
			if err != nil {
				if !errors.Is(err, model.ErrInvalidArgument) && !errors.Is(err, model.ErrDuplicateAward) {
					rt.Fatalf("unexpected error: %v", err)
				}
				continue
			}
			if !res.Account.InSync() {
				rt.Fatalf("coin %d out of sync with loyalty %d and adjustment %d",
					res.Coin, res.LoyaltyPoints, res.Account.CoinAdjustment)
			}
		}

		discrepancies, err := svc.Audit(ctx)
		if err != nil {
			rt.Fatalf("audit: %v", err)
		}
		if len(discrepancies) > 0 {
			rt.Fatalf("ledger drifted: %+v", discrepancies)
		}
	})
}
