package repository

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"

	"loyalty-ledger/internal/model"
)

// SQLSTATE codes the ledger distinguishes.
const (
	pgUniqueViolation      = "23505"
	pgForeignKeyViolation  = "23503"
	pgCheckViolation       = "23514"
	pgSerializationFailure = "40001"
	pgDeadlockDetected     = "40P01"
	pgLockNotAvailable     = "55P03"
	pgQueryCanceled        = "57014"
	pgAdminShutdown        = "57P01"
	pgCannotConnectNow     = "57P03"
	pgTooManyConnections   = "53300"

	ledgerReasonConstraint = "ledger_entries_account_reason_key"
)

// classify maps a pgx error onto the model taxonomy, keeping the cause in
// the chain.
func classify(err error, op string) error {
	if err == nil {
		return nil
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch {
		case pgErr.Code == pgUniqueViolation && pgErr.ConstraintName == ledgerReasonConstraint:
			return fmt.Errorf("%s: %w: %w", op, model.ErrDuplicateAward, err)
		case pgErr.Code == pgUniqueViolation,
			pgErr.Code == pgSerializationFailure,
			pgErr.Code == pgDeadlockDetected,
			pgErr.Code == pgLockNotAvailable:
			return fmt.Errorf("%s: %w: %w", op, model.ErrConcurrencyConflict, err)
		case pgErr.Code == pgForeignKeyViolation:
			return fmt.Errorf("%s: %w: %w", op, model.ErrAccountNotFound, err)
		case pgErr.Code == pgCheckViolation:
			return fmt.Errorf("%s: %w: %w", op, model.ErrInvalidArgument, err)
		case pgErr.Code == pgQueryCanceled,
			pgErr.Code == pgAdminShutdown,
			pgErr.Code == pgCannotConnectNow,
			pgErr.Code == pgTooManyConnections,
			strings.HasPrefix(pgErr.Code, "08"):
			return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
		}
		return fmt.Errorf("failed to %s: %w", op, err)
	}

	var netErr net.Error
	var connErr *pgconn.ConnectError
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled),
		pgconn.Timeout(err),
		errors.As(err, &connErr),
		errors.As(err, &netErr),
		pgconn.SafeToRetry(err):
		return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
	}

	// Anything else came from below the SQL layer (closed pool, broken
	// connection); report it as unavailable rather than a logic error.
	return fmt.Errorf("%s: %w: %w", op, model.ErrStorageUnavailable, err)
}

// checkMutation validates a mutation against the current balances.
func checkMutation(acct *model.Account, m model.Mutation) error {
	if m.Delta == 0 {
		return fmt.Errorf("%w: delta must not be zero", model.ErrInvalidArgument)
	}
	if m.AllowNegative {
		return nil
	}
	if d := m.LoyaltyDelta(); d < 0 && acct.LoyaltyPoints+d < 0 {
		next := acct.LoyaltyPoints + d
		return fmt.Errorf("%w: account %d loyalty points would become %d",
			model.ErrInvalidArgument, acct.ID, next)
	}
	if d := m.CoinDelta(); d < 0 && acct.Coin+d < 0 {
		next := acct.Coin + d
		return fmt.Errorf("%w: account %d coin would become %d",
			model.ErrInvalidArgument, acct.ID, next)
	}
	return nil
}
