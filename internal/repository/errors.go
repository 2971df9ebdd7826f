package repository

import "errors"

var (
	// ErrNotFound signals that no record matched. It is distinct from
	// the storage errors so callers can tell "no such project" from
	// "service unavailable".
	ErrNotFound = errors.New("record not found")

	// ErrInvalidInput signals a caller-supplied field that fails
	// validation.
	ErrInvalidInput = errors.New("invalid input")
)
