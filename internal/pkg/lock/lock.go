// Package lock provides per-account locking for in-process balance mutations.
package lock

import (
	"context"
	"fmt"
	"sync"
)

// accountMutex is a one-slot semaphore so waiters can give up on context
// cancellation. refs counts holders and waiters; the entry is dropped from
// the table when it reaches zero.
type accountMutex struct {
	sem  chan struct{}
	refs int
}

// AccountLock serializes mutations per account. Different accounts never
// contend with each other.
type AccountLock struct {
	mu      sync.Mutex
	entries map[int64]*accountMutex
}

// NewAccountLock creates a new AccountLock instance.
func NewAccountLock() *AccountLock {
	return &AccountLock{
		entries: make(map[int64]*accountMutex),
	}
}

func (l *AccountLock) acquire(accountID int64) *accountMutex {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.entries[accountID]
	if !ok {
		m = &accountMutex{sem: make(chan struct{}, 1)}
		l.entries[accountID] = m
	}
	m.refs++
	return m
}

func (l *AccountLock) release(accountID int64, m *accountMutex) {
	l.mu.Lock()
	defer l.mu.Unlock()

	m.refs--
	if m.refs == 0 {
		delete(l.entries, accountID)
	}
}

// Lock blocks until the account's lock is held.
func (l *AccountLock) Lock(accountID int64) {
	m := l.acquire(accountID)
	m.sem <- struct{}{}
}

// Unlock releases the account's lock. Unlocking an account that is not
// locked is a no-op.
func (l *AccountLock) Unlock(accountID int64) {
	l.mu.Lock()
	m, ok := l.entries[accountID]
	l.mu.Unlock()
	if !ok {
		return
	}

	select {
	case <-m.sem:
		l.release(accountID, m)
	default:
	}
}

// TryLock attempts to acquire the lock without blocking.
func (l *AccountLock) TryLock(accountID int64) bool {
	m := l.acquire(accountID)
	select {
	case m.sem <- struct{}{}:
		return true
	default:
		l.release(accountID, m)
		return false
	}
}

// LockContext waits for the lock until ctx is done. On cancellation it
// returns an error wrapping ErrLockTimeout and the context error.
func (l *AccountLock) LockContext(ctx context.Context, accountID int64) error {
	m := l.acquire(accountID)
	select {
	case m.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		l.release(accountID, m)
		return fmt.Errorf("account %d: %w: %w", accountID, ErrLockTimeout, ctx.Err())
	}
}

// WithLock executes fn while holding the account's lock.
func (l *AccountLock) WithLock(accountID int64, fn func() error) error {
	l.Lock(accountID)
	defer l.Unlock(accountID)
	return fn()
}

// WithLockContext executes fn while holding the account's lock, giving up
// if the lock cannot be acquired before ctx is done.
func (l *AccountLock) WithLockContext(ctx context.Context, accountID int64, fn func() error) error {
	if err := l.LockContext(ctx, accountID); err != nil {
		return err
	}
	defer l.Unlock(accountID)
	return fn()
}

// IsLocked is a point-in-time check and may change immediately after.
func (l *AccountLock) IsLocked(accountID int64) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	m, ok := l.entries[accountID]
	return ok && len(m.sem) == 1
}

// Tracked returns the number of accounts with a holder or waiter.
func (l *AccountLock) Tracked() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.entries)
}
