// Package repository provides data access layer implementations.
package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-ledger/internal/model"
)

const accountColumns = `id, external_id, display_name, email, loyalty_points, coin, coin_adjustment, created_at, updated_at`

func scanAccount(row pgx.Row) (*model.Account, error) {
	var a model.Account
	err := row.Scan(
		&a.ID,
		&a.ExternalID,
		&a.DisplayName,
		&a.Email,
		&a.LoyaltyPoints,
		&a.Coin,
		&a.CoinAdjustment,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// AccountRepository reads accounts and creates them. It never writes
// balances; those change only through LedgerRepository.Apply.
type AccountRepository struct {
	pool *pgxpool.Pool
}

// NewAccountRepository creates a new AccountRepository instance.
func NewAccountRepository(pool *pgxpool.Pool) *AccountRepository {
	return &AccountRepository{pool: pool}
}

// Create inserts an account with zero balances.
func (r *AccountRepository) Create(ctx context.Context, externalID, displayName, email string) (*model.Account, error) {
	const query = `
		INSERT INTO accounts (external_id, display_name, email, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING ` + accountColumns

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, externalID, displayName, email))
	if err != nil {
		return nil, classify(err, "create account")
	}
	return acct, nil
}

// GetByID retrieves an account by its internal id.
func (r *AccountRepository) GetByID(ctx context.Context, id int64) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1`

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("account %d: %w", id, model.ErrAccountNotFound)
		}
		return nil, classify(err, "get account")
	}
	return acct, nil
}

// GetByExternalID retrieves an account by its identity-provider subject.
func (r *AccountRepository) GetByExternalID(ctx context.Context, externalID string) (*model.Account, error) {
	const query = `SELECT ` + accountColumns + ` FROM accounts WHERE external_id = $1`

	acct, err := scanAccount(r.pool.QueryRow(ctx, query, externalID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, model.ErrAccountNotFound
		}
		return nil, classify(err, "get account by external id")
	}
	return acct, nil
}

// GetOrCreate returns the account for externalID, creating it on first
// sight. The bool reports whether it was created.
func (r *AccountRepository) GetOrCreate(ctx context.Context, externalID, displayName, email string) (*model.Account, bool, error) {
	acct, err := r.GetByExternalID(ctx, externalID)
	if err == nil {
		return acct, false, nil
	}
	if !errors.Is(err, model.ErrAccountNotFound) {
		return nil, false, err
	}

	acct, err = r.Create(ctx, externalID, displayName, email)
	if err != nil {
		// Another request may have created it first.
		acct, err = r.GetByExternalID(ctx, externalID)
		if err != nil {
			return nil, false, err
		}
		return acct, false, nil
	}
	return acct, true, nil
}

// UpdateProfile changes display fields only.
func (r *AccountRepository) UpdateProfile(ctx context.Context, id int64, displayName, email string) error {
	const query = `
		UPDATE accounts
		SET display_name = $2, email = $3, updated_at = NOW()
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, displayName, email)
	if err != nil {
		return classify(err, "update account profile")
	}
	if result.RowsAffected() == 0 {
		return model.ErrAccountNotFound
	}
	return nil
}

// TopByPoints returns accounts ordered by loyalty points descending, ties
// broken by id so the order is stable.
func (r *AccountRepository) TopByPoints(ctx context.Context, limit int) ([]*model.Account, error) {
	const query = `
		SELECT ` + accountColumns + `
		FROM accounts
		ORDER BY loyalty_points DESC, id ASC
		LIMIT $1
	`

	rows, err := r.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, classify(err, "get top accounts")
	}
	defer rows.Close()

	var accounts []*model.Account
	for rows.Next() {
		acct, err := scanAccount(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan account: %w", err)
		}
		accounts = append(accounts, acct)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate top accounts")
	}
	return accounts, nil
}
