// Package service provides business logic implementations.
package service

import (
	"context"

	"loyalty-ledger/internal/model"
)

// LedgerStore is the persistence boundary for balance mutations.
// Apply must lock the account, reject a negative result unless the
// mutation allows it, record the entry under a unique (account, reason)
// and update both balances as one atomic unit.
type LedgerStore interface {
	Apply(ctx context.Context, m model.Mutation) (*model.Account, *model.LedgerEntry, error)
	History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error)
	HasReason(ctx context.Context, accountID int64, reason string) (bool, error)
	Audit(ctx context.Context) ([]model.Discrepancy, error)
}

// AccountStore reads and creates accounts. It never writes balances.
type AccountStore interface {
	GetByID(ctx context.Context, id int64) (*model.Account, error)
	GetOrCreate(ctx context.Context, externalID, displayName, email string) (*model.Account, bool, error)
	UpdateProfile(ctx context.Context, id int64, displayName, email string) error
	TopByPoints(ctx context.Context, limit int) ([]*model.Account, error)
}
