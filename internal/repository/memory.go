package repository

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"loyalty-ledger/internal/model"
	"loyalty-ledger/internal/pkg/lock"
)

type memAccount struct {
	account model.Account
	entries []model.LedgerEntry
	reasons map[string]struct{}
}

// MemoryStore is an in-process account and ledger store with the same
// guarantees as the Postgres repositories. Mutations on one account are
// serialized by an AccountLock; different accounts proceed in parallel.
type MemoryStore struct {
	mu         sync.RWMutex
	accounts   map[int64]*memAccount
	byExternal map[string]int64

	locks       *lock.AccountLock
	nextAccount atomic.Int64
	nextEntry   atomic.Int64
	now         func() time.Time
}

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		accounts:   make(map[int64]*memAccount),
		byExternal: make(map[string]int64),
		locks:      lock.NewAccountLock(),
		now:        time.Now,
	}
}

func (s *MemoryStore) lookup(id int64) (*memAccount, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	ma, ok := s.accounts[id]
	return ma, ok
}

// snapshot copies an account under its lock.
func (s *MemoryStore) snapshot(ma *memAccount) model.Account {
	var out model.Account
	_ = s.locks.WithLock(ma.account.ID, func() error {
		out = ma.account
		return nil
	})
	return out
}

// Create inserts an account with zero balances.
func (s *MemoryStore) Create(ctx context.Context, externalID, displayName, email string) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("create account: %w: %w", model.ErrStorageUnavailable, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byExternal[externalID]; exists {
		return nil, fmt.Errorf("create account %q: %w", externalID, model.ErrConcurrencyConflict)
	}

	now := s.now()
	ma := &memAccount{
		account: model.Account{
			ID:          s.nextAccount.Add(1),
			ExternalID:  externalID,
			DisplayName: displayName,
			Email:       email,
			CreatedAt:   now,
			UpdatedAt:   now,
		},
		reasons: make(map[string]struct{}),
	}
	s.accounts[ma.account.ID] = ma
	s.byExternal[externalID] = ma.account.ID

	acct := ma.account
	return &acct, nil
}

// GetByID retrieves an account by its internal id.
func (s *MemoryStore) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get account: %w: %w", model.ErrStorageUnavailable, err)
	}
	ma, ok := s.lookup(id)
	if !ok {
		return nil, fmt.Errorf("account %d: %w", id, model.ErrAccountNotFound)
	}
	acct := s.snapshot(ma)
	return &acct, nil
}

// GetByExternalID retrieves an account by its identity-provider subject.
func (s *MemoryStore) GetByExternalID(ctx context.Context, externalID string) (*model.Account, error) {
	s.mu.RLock()
	id, ok := s.byExternal[externalID]
	s.mu.RUnlock()
	if !ok {
		return nil, model.ErrAccountNotFound
	}
	return s.GetByID(ctx, id)
}

// GetOrCreate returns the account for externalID, creating it on first
// sight. The bool reports whether it was created.
func (s *MemoryStore) GetOrCreate(ctx context.Context, externalID, displayName, email string) (*model.Account, bool, error) {
	acct, err := s.GetByExternalID(ctx, externalID)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, false, err
	}

	acct, err = s.Create(ctx, externalID, displayName, email)
	if err != nil {
		acct, err = s.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, false, err
		}
		return acct, false, nil
	}
	return acct, true, nil
}

// UpdateProfile changes display fields only.
func (s *MemoryStore) UpdateProfile(ctx context.Context, id int64, displayName, email string) error {
	ma, ok := s.lookup(id)
	if !ok {
		return model.ErrAccountNotFound
	}
	return s.locks.WithLockContext(ctx, id, func() error {
		ma.account.DisplayName = displayName
		ma.account.Email = email
		ma.account.UpdatedAt = s.now()
		return nil
	})
}

// TopByPoints returns accounts ordered by loyalty points descending, ties
// broken by id.
func (s *MemoryStore) TopByPoints(ctx context.Context, limit int) ([]*model.Account, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("get top accounts: %w: %w", model.ErrStorageUnavailable, err)
	}

	s.mu.RLock()
	all := make([]*memAccount, 0, len(s.accounts))
	for _, ma := range s.accounts {
		all = append(all, ma)
	}
	s.mu.RUnlock()

	accounts := make([]*model.Account, 0, len(all))
	for _, ma := range all {
		acct := s.snapshot(ma)
		accounts = append(accounts, &acct)
	}
	sort.Slice(accounts, func(i, j int) bool {
		if accounts[i].LoyaltyPoints != accounts[j].LoyaltyPoints {
			return accounts[i].LoyaltyPoints > accounts[j].LoyaltyPoints
		}
		return accounts[i].ID < accounts[j].ID
	})

	if limit >= 0 && len(accounts) > limit {
		accounts = accounts[:limit]
	}
	return accounts, nil
}

// Apply performs one mutation atomically under the account's lock. Waiting
// for the lock is bounded by ctx; giving up reports a concurrency conflict.
func (s *MemoryStore) Apply(ctx context.Context, m model.Mutation) (*model.Account, *model.LedgerEntry, error) {
	if err := ctx.Err(); err != nil {
		return nil, nil, fmt.Errorf("apply mutation: %w: %w", model.ErrStorageUnavailable, err)
	}
	ma, ok := s.lookup(m.AccountID)
	if !ok {
		return nil, nil, fmt.Errorf("account %d: %w", m.AccountID, model.ErrAccountNotFound)
	}

	var acct model.Account
	var entry model.LedgerEntry
	err := s.locks.WithLockContext(ctx, m.AccountID, func() error {
		if _, dup := ma.reasons[m.Reason]; dup {
			return fmt.Errorf("account %d reason %q: %w", m.AccountID, m.Reason, model.ErrDuplicateAward)
		}
		if err := checkMutation(&ma.account, m); err != nil {
			return err
		}

		now := s.now()
		entry = model.LedgerEntry{
			ID:           s.nextEntry.Add(1),
			AccountID:    m.AccountID,
			LoyaltyDelta: m.LoyaltyDelta(),
			CoinDelta:    m.CoinDelta(),
			Reason:       m.Reason,
			Kind:         m.Kind,
			ActorID:      m.ActorID,
			CreatedAt:    now,
		}
		ma.account.LoyaltyPoints += m.LoyaltyDelta()
		ma.account.Coin += m.CoinDelta()
		ma.account.CoinAdjustment += m.AdjustmentDelta()
		ma.account.UpdatedAt = now
		entry.LoyaltyAfter = ma.account.LoyaltyPoints
		entry.CoinAfter = ma.account.Coin
		ma.entries = append(ma.entries, entry)
		ma.reasons[m.Reason] = struct{}{}

		acct = ma.account
		return nil
	})
	if err != nil {
		if errors.Is(err, lock.ErrLockTimeout) {
			return nil, nil, fmt.Errorf("apply mutation: %w: %w", model.ErrConcurrencyConflict, err)
		}
		return nil, nil, err
	}
	return &acct, &entry, nil
}

// History returns an account's entries, newest first.
func (s *MemoryStore) History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	ma, ok := s.lookup(accountID)
	if !ok {
		return nil, nil
	}

	var out []*model.LedgerEntry
	err := s.locks.WithLockContext(ctx, accountID, func() error {
		for i := len(ma.entries) - 1; i >= 0 && len(out) < limit; i-- {
			e := ma.entries[i]
			out = append(out, &e)
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("get ledger history: %w: %w", model.ErrStorageUnavailable, err)
	}
	return out, nil
}

// HasReason reports whether reason was already applied to the account.
func (s *MemoryStore) HasReason(ctx context.Context, accountID int64, reason string) (bool, error) {
	ma, ok := s.lookup(accountID)
	if !ok {
		return false, nil
	}

	var exists bool
	err := s.locks.WithLockContext(ctx, accountID, func() error {
		_, exists = ma.reasons[reason]
		return nil
	})
	if err != nil {
		return false, fmt.Errorf("check ledger reason: %w: %w", model.ErrStorageUnavailable, err)
	}
	return exists, nil
}

// Audit lists accounts whose balances disagree with their ledger sums or
// whose coin does not equal loyalty points plus the recorded adjustment.
func (s *MemoryStore) Audit(ctx context.Context) ([]model.Discrepancy, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("audit ledger: %w: %w", model.ErrStorageUnavailable, err)
	}

	s.mu.RLock()
	all := make([]*memAccount, 0, len(s.accounts))
	for _, ma := range s.accounts {
		all = append(all, ma)
	}
	s.mu.RUnlock()

	var out []model.Discrepancy
	for _, ma := range all {
		_ = s.locks.WithLock(ma.account.ID, func() error {
			d := model.Discrepancy{
				AccountID:      ma.account.ID,
				LoyaltyPoints:  ma.account.LoyaltyPoints,
				Coin:           ma.account.Coin,
				CoinAdjustment: ma.account.CoinAdjustment,
			}
			for _, e := range ma.entries {
				d.LedgerLoyalty += e.LoyaltyDelta
				d.LedgerCoin += e.CoinDelta
			}
			if d.LoyaltyPoints != d.LedgerLoyalty || d.Coin != d.LedgerCoin || !ma.account.InSync() {
				out = append(out, d)
			}
			return nil
		})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountID < out[j].AccountID })
	return out, nil
}
