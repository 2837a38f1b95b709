// Package common provides shared utilities and types used across the application.
package common

import (
	"context"
	"errors"
	"fmt"
)

// Common application errors.
var (
	// Database errors.
	ErrNotFound       = errors.New("not found")
	ErrDuplicateEntry = errors.New("duplicate entry")

	// Document errors.
	ErrPageExtraction = errors.New("page extraction failed")
	ErrOCRFailed      = errors.New("text recognition failed")
	ErrNoPages        = errors.New("document has no pages")
	ErrNoTextLayer    = errors.New("document has no text layer")

	// Remote model errors.
	ErrProviderUnavailable = errors.New("model provider unavailable")
	ErrBudgetExceeded      = errors.New("model cost budget exceeded")

	// Parsing errors.
	ErrNoTransactions = errors.New("no transactions found")

	// Configuration errors.
	ErrMissingConfig = errors.New("missing configuration")
	ErrInvalidConfig = errors.New("invalid configuration")
)

// UserError represents an error that should be shown to the user.
// UserMessage is a localized, actionable phrase; Suggestion, when set,
// names an alternative the user can try (e.g. importing CSV/OFX instead).
type UserError struct {
	Err         error
	UserMessage string
	Suggestion  string
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

// IsRetryable determines if an error should trigger a retry.
func IsRetryable(err error) bool {
	if errors.Is(err, ErrRateLimit) ||
		errors.Is(err, context.DeadlineExceeded) {
		return true
	}

	var retryableErr *RetryableError
	if errors.As(err, &retryableErr) {
		return retryableErr.Retryable
	}

	return false
}
