package usecase

import "errors"

var (
	ErrInvalidInput          = errors.New("invalid input")
	ErrNotFound              = errors.New("resource not found")
	ErrConflict              = errors.New("resource conflict")
	ErrDependencyUnavailable = errors.New("dependency unavailable")

	// ErrNoSignal is a detector failure; it never reaches HTTP callers.
	ErrNoSignal = errors.New("location signal missing")
)
