package storage

import "errors"

// Storage errors for the append-only PID tables.
var (
	// ErrNotFound is returned when a requested run has no rows.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a row whose key already
	// exists. PID tables are append-only; rows are never rewritten.
	ErrDuplicateKey = errors.New("duplicate key: append-only table does not allow updates")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
