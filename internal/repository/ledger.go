package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"loyalty-ledger/internal/model"
)

const entryColumns = `id, account_id, loyalty_delta, coin_delta, reason, kind, actor_id, loyalty_after, coin_after, created_at`

// LedgerRepository applies balance mutations and reads ledger history.
type LedgerRepository struct {
	pool *pgxpool.Pool
}

// NewLedgerRepository creates a new LedgerRepository instance.
func NewLedgerRepository(pool *pgxpool.Pool) *LedgerRepository {
	return &LedgerRepository{pool: pool}
}

// Apply performs one mutation in a single transaction: lock the account
// row, validate, insert the ledger entry, update both balances, commit.
// The unique (account_id, reason) constraint turns a repeated reason into
// ErrDuplicateAward with nothing written.
func (r *LedgerRepository) Apply(ctx context.Context, m model.Mutation) (*model.Account, *model.LedgerEntry, error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return nil, nil, classify(err, "begin ledger transaction")
	}
	defer func() { _ = tx.Rollback(ctx) }()

	const lockQuery = `SELECT ` + accountColumns + ` FROM accounts WHERE id = $1 FOR UPDATE`
	acct, err := scanAccount(tx.QueryRow(ctx, lockQuery, m.AccountID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil, fmt.Errorf("account %d: %w", m.AccountID, model.ErrAccountNotFound)
		}
		return nil, nil, classify(err, "lock account")
	}

	if err := checkMutation(acct, m); err != nil {
		return nil, nil, err
	}

	const insertEntry = `
		INSERT INTO ledger_entries (account_id, loyalty_delta, coin_delta, reason, kind, actor_id, loyalty_after, coin_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, NOW())
		RETURNING id, created_at
	`
	entry := &model.LedgerEntry{
		AccountID:    m.AccountID,
		LoyaltyDelta: m.LoyaltyDelta(),
		CoinDelta:    m.CoinDelta(),
		Reason:       m.Reason,
		Kind:         m.Kind,
		ActorID:      m.ActorID,
		LoyaltyAfter: acct.LoyaltyPoints + m.LoyaltyDelta(),
		CoinAfter:    acct.Coin + m.CoinDelta(),
	}
	err = tx.QueryRow(ctx, insertEntry,
		entry.AccountID, entry.LoyaltyDelta, entry.CoinDelta, entry.Reason, string(entry.Kind), entry.ActorID,
		entry.LoyaltyAfter, entry.CoinAfter,
	).Scan(&entry.ID, &entry.CreatedAt)
	if err != nil {
		return nil, nil, classify(err, "insert ledger entry")
	}

	const updateBalances = `
		UPDATE accounts
		SET loyalty_points = loyalty_points + $2,
		    coin = coin + $3,
		    coin_adjustment = coin_adjustment + $4,
		    updated_at = NOW()
		WHERE id = $1
		RETURNING ` + accountColumns
	acct, err = scanAccount(tx.QueryRow(ctx, updateBalances,
		m.AccountID, m.LoyaltyDelta(), m.CoinDelta(), m.AdjustmentDelta()))
	if err != nil {
		return nil, nil, classify(err, "update balances")
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, nil, classify(err, "commit ledger transaction")
	}
	return acct, entry, nil
}

// History returns an account's entries, newest first.
func (r *LedgerRepository) History(ctx context.Context, accountID int64, limit int) ([]*model.LedgerEntry, error) {
	const query = `
		SELECT ` + entryColumns + `
		FROM ledger_entries
		WHERE account_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2
	`

	rows, err := r.pool.Query(ctx, query, accountID, limit)
	if err != nil {
		return nil, classify(err, "get ledger history")
	}
	defer rows.Close()

	var entries []*model.LedgerEntry
	for rows.Next() {
		var e model.LedgerEntry
		var kind string
		err := rows.Scan(
			&e.ID,
			&e.AccountID,
			&e.LoyaltyDelta,
			&e.CoinDelta,
			&e.Reason,
			&kind,
			&e.ActorID,
			&e.LoyaltyAfter,
			&e.CoinAfter,
			&e.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan ledger entry: %w", err)
		}
		e.Kind = model.EntryKind(kind)
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate ledger history")
	}
	return entries, nil
}

// HasReason reports whether reason was already applied to the account.
func (r *LedgerRepository) HasReason(ctx context.Context, accountID int64, reason string) (bool, error) {
	const query = `SELECT EXISTS(SELECT 1 FROM ledger_entries WHERE account_id = $1 AND reason = $2)`

	var exists bool
	if err := r.pool.QueryRow(ctx, query, accountID, reason).Scan(&exists); err != nil {
		return false, classify(err, "check ledger reason")
	}
	return exists, nil
}

// Audit lists accounts whose balances disagree with their ledger sums or
// whose coin does not equal loyalty points plus the recorded adjustment.
func (r *LedgerRepository) Audit(ctx context.Context) ([]model.Discrepancy, error) {
	const query = `
		SELECT a.id, a.loyalty_points, a.coin, a.coin_adjustment,
		       COALESCE(SUM(e.loyalty_delta), 0) AS ledger_loyalty,
		       COALESCE(SUM(e.coin_delta), 0) AS ledger_coin
		FROM accounts a
		LEFT JOIN ledger_entries e ON e.account_id = a.id
		GROUP BY a.id
		HAVING a.loyalty_points <> COALESCE(SUM(e.loyalty_delta), 0)
		    OR a.coin <> COALESCE(SUM(e.coin_delta), 0)
		    OR a.coin <> a.loyalty_points + a.coin_adjustment
		ORDER BY a.id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, classify(err, "audit ledger")
	}
	defer rows.Close()

	var out []model.Discrepancy
	for rows.Next() {
		var d model.Discrepancy
		if err := rows.Scan(&d.AccountID, &d.LoyaltyPoints, &d.Coin, &d.CoinAdjustment, &d.LedgerLoyalty, &d.LedgerCoin); err != nil {
			return nil, fmt.Errorf("failed to scan discrepancy: %w", err)
		}
		out = append(out, d)
	}

	if err := rows.Err(); err != nil {
		return nil, classify(err, "iterate audit rows")
	}
	return out, nil
}
