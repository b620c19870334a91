package model

import "errors"

var (
	// Lock related errors
	ErrLockHeld  = errors.New("another instance is already running")
	ErrLockStale = errors.New("stale lock could not be recovered")

	// Batch related errors
	ErrBatchNotFound         = errors.New("batch not found")
	ErrInconsistentBatchRoot = errors.New("inconsistent_batch_roots")

	// Generic errors
	ErrInvalidInput = errors.New("invalid input")
)
