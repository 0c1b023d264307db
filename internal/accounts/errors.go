package accounts

import (
	"errors"
	"fmt"
)

// ErrorCategory normalizes remote wealth-management API failures.
type ErrorCategory string

const (
	ErrorTimeout        ErrorCategory = "timeout"
	ErrorBadData        ErrorCategory = "bad_data"
	ErrorAuthentication ErrorCategory = "authentication"
	ErrorOutage         ErrorCategory = "outage"
	ErrorNotFound       ErrorCategory = "not_found"
	ErrorRateLimited    ErrorCategory = "rate_limited"
	ErrorInternal       ErrorCategory = "internal"
)

// RemoteError wraps a failed call to the wealth-management API.
type RemoteError struct {
	Category   ErrorCategory
	Operation  string
	Message    string
	Underlying error
	Retryable  bool
}

func (e *RemoteError) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("accounts api %s [%s]: %s: %v", e.Operation, e.Category, e.Message, e.Underlying)
	}
	return fmt.Sprintf("accounts api %s [%s]: %s", e.Operation, e.Category, e.Message)
}

func (e *RemoteError) Unwrap() error {
	return e.Underlying
}

// NewRemoteError classifies timeout, outage and rate limiting as retryable.
func NewRemoteError(category ErrorCategory, operation, message string, underlying error) *RemoteError {
	return &RemoteError{
		Category:   category,
		Operation:  operation,
		Message:    message,
		Underlying: underlying,
		Retryable:  category == ErrorTimeout || category == ErrorOutage || category == ErrorRateLimited,
	}
}

// IsRetryable reports whether err is a retryable RemoteError.
func IsRetryable(err error) bool {
	var re *RemoteError
	if errors.As(err, &re) {
		return re.Retryable
	}
	return false
}
