package models

import "errors"

// Domain errors. Services wrap these with context via fmt.Errorf("...: %w")
// and the API layer translates them to HTTP statuses with errors.Is.
var (
	ErrValidation    = errors.New("validation failed")
	ErrQuotaExceeded = errors.New("quota for this date is full")
	ErrNotFound      = errors.New("not found")
	ErrInvalidState  = errors.New("operation not allowed in current ticket state")
)
