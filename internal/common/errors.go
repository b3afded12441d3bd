// Package common provides shared utilities and types used across the application.
package common

import (
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Input errors.
	ErrDataLoad    = errors.New("data load failed")
	ErrNoEntities  = errors.New("no entities to score")
	ErrInvalidDate = errors.New("invalid date")

	// Model errors.
	ErrFitConvergence = errors.New("model fit did not converge")

	// Scorer errors.
	ErrDegenerateInput = errors.New("degenerate input")
	ErrSchemaMismatch  = errors.New("schema mismatch")

	// Sheets errors.
	ErrSheetsQuota = errors.New("sheets quota exceeded")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
type UserError struct {
	Err         error
	UserMessage string
}

func (e *UserError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.UserMessage, e.Err)
	}
	return e.UserMessage
}

func (e *UserError) Unwrap() error {
	return e.Err
}

// NewUserError creates a new user-friendly error.
func NewUserError(userMessage string, err error) error {
	return &UserError{
		UserMessage: userMessage,
		Err:         err,
	}
}

// DataLoadError wraps a source failure so callers can match ErrDataLoad.
func DataLoadError(source string, err error) error {
	if err == nil {
		return fmt.Errorf("%w: %s", ErrDataLoad, source)
	}
	return fmt.Errorf("%w: %s: %w", ErrDataLoad, source, err)
}

// IsFatal reports whether err must abort a pipeline run.
// Convergence, degenerate input and schema errors are recoverable.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	switch {
	case errors.Is(err, ErrFitConvergence),
		errors.Is(err, ErrDegenerateInput),
		errors.Is(err, ErrSchemaMismatch):
		return false
	}
	return true
}
