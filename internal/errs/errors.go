// Package errs defines the error taxonomy shared across the crawl pipeline.
package errs

import (
	"errors"
	"fmt"
)

// Code classifies an error for retry and reporting decisions
type Code string

const (
	// CodeBlockedByPolicy marks a robots or rate-limit refusal. Never retried.
	CodeBlockedByPolicy Code = "BLOCKED_BY_POLICY"
	// CodeTransientFetch marks a network or timeout failure. Retried through
	// the fetch fallback chain, then once more at batch level.
	CodeTransientFetch Code = "TRANSIENT_FETCH"
	// CodeExtractionMismatch marks a selector or structure miss. Never fatal.
	CodeExtractionMismatch Code = "EXTRACTION_MISMATCH"
	// CodeLockTimeout marks a store lock that could not be acquired in time.
	// The operation is abandoned without a partial write.
	CodeLockTimeout Code = "LOCK_TIMEOUT"
	// CodeConfig marks invalid declarative input. Fails fast before any
	// network activity.
	CodeConfig Code = "CONFIG"
)

// Error wraps an underlying error with a taxonomy code and context
type Error struct {
	Code       Code
	Message    string
	Underlying error
}

func (e *Error) Error() string {
	if e.Underlying != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Underlying)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error
func (e *Error) Unwrap() error {
	return e.Underlying
}

// Is matches on the taxonomy code so errors.Is works across wrapping layers
func (e *Error) Is(target error) bool {
	if t, ok := target.(*Error); ok {
		return e.Code == t.Code
	}
	return errors.Is(e.Underlying, target)
}

// New creates an Error with the given code and message
func New(code Code, message string, err error) *Error {
	return &Error{Code: code, Message: message, Underlying: err}
}

// BlockedByPolicy reports a robots or rate-limit refusal for the given URL
func BlockedByPolicy(url string, err error) *Error {
	return New(CodeBlockedByPolicy, "request refused by policy for "+url, err)
}

// TransientFetch reports a retryable fetch failure
func TransientFetch(message string, err error) *Error {
	return New(CodeTransientFetch, message, err)
}

// ExtractionMismatch reports a selector or structure miss
func ExtractionMismatch(message string, err error) *Error {
	return New(CodeExtractionMismatch, message, err)
}

// LockTimeout reports a store lock wait that exceeded its deadline
func LockTimeout(message string, err error) *Error {
	return New(CodeLockTimeout, message, err)
}

// Config reports invalid declarative input
func Config(message string, err error) *Error {
	return New(CodeConfig, message, err)
}

// HasCode reports whether err carries the given taxonomy code anywhere in
// its chain
func HasCode(err error, code Code) bool {
	var e *Error
	for errors.As(err, &e) {
		if e.Code == code {
			return true
		}
		err = e.Underlying
		if err == nil {
			return false
		}
	}
	return false
}
