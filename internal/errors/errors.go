package errors

import "errors"

// Common application errors for type-safe error handling.
// These errors can be checked using errors.Is() instead of string comparison.
var (
	ErrNotFound     = errors.New("resource not found")
	ErrInvalidQuery = errors.New("invalid search query")
	ErrInvalidInput = errors.New("invalid input")
)
