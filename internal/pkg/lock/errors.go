package lock

import "errors"

var (
	// ErrLockTimeout is returned when an account lock cannot be acquired
	// before the caller's context is done.
	ErrLockTimeout = errors.New("account lock timeout")
)
