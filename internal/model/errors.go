package model

import "errors"

// Ledger error taxonomy. Callers match with errors.Is; every layer wraps
// with additional context.
var (
	// ErrInvalidArgument marks malformed or out-of-range input. Never retried.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrConcurrencyConflict is returned once the retry budget for a
	// contended mutation is exhausted.
	ErrConcurrencyConflict = errors.New("concurrency conflict")

	// ErrDuplicateAward is returned when (account, reason) was already applied.
	ErrDuplicateAward = errors.New("award already applied")

	// ErrStorageUnavailable marks a failed or timed-out persistence call.
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrAccountNotFound is returned when the account does not exist.
	ErrAccountNotFound = errors.New("account not found")
)

// IsRetryable reports whether err is worth retrying with backoff.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict) || errors.Is(err, ErrStorageUnavailable)
}
