// Package errors defines the error taxonomy surfaced by the AMM instruction engine.
//
// Every rejected invocation reports exactly one Error whose Code identifies the
// failure category. Errors raised by the token and system primitives are carried
// as the Cause of an UNDERLYING_TRANSFER_FAILURE so callers can still match them
// with errors.Is.
package errors

import (
	"errors"
	"fmt"
)

// Error codes for the AMM engine.
const (
	ErrCodeMissingAccounts           = "MISSING_ACCOUNTS"
	ErrCodeMalformedPayload          = "MALFORMED_PAYLOAD"
	ErrCodeInvalidAccountOwnership   = "INVALID_ACCOUNT_OWNERSHIP"
	ErrCodeInvalidRecordState        = "INVALID_RECORD_STATE"
	ErrCodeExpiredRequest            = "EXPIRED_REQUEST"
	ErrCodeWrongLifecyclePhase       = "WRONG_LIFECYCLE_PHASE"
	ErrCodeSlippageExceeded          = "SLIPPAGE_EXCEEDED"
	ErrCodeArithmeticFailure         = "ARITHMETIC_FAILURE"
	ErrCodeUnderlyingTransferFailure = "UNDERLYING_TRANSFER_FAILURE"
)

// Error represents a categorized failure of an AMM invocation.
type Error struct {
	// Code is the failure category.
	Code string

	// Message is a human-readable error message.
	Message string

	// Cause is the underlying error, if any.
	Cause error

	// Details contains additional error context.
	Details map[string]any
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying error.
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is reports whether the error belongs to the same category as target.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause adds a cause to the error.
func (e *Error) WithCause(cause error) *Error {
	e.Cause = cause
	return e
}

// WithDetails adds details to the error.
func (e *Error) WithDetails(details map[string]any) *Error {
	e.Details = details
	return e
}

// NewError creates a new Error.
func NewError(code, message string) *Error {
	return &Error{
		Code:    code,
		Message: message,
	}
}

// Sentinels for matching with errors.Is. Never mutate them; use the
// constructors below to build errors that carry context.
var (
	ErrMissingAccounts           = NewError(ErrCodeMissingAccounts, "not enough accounts")
	ErrMalformedPayload          = NewError(ErrCodeMalformedPayload, "malformed instruction payload")
	ErrInvalidAccountOwnership   = NewError(ErrCodeInvalidAccountOwnership, "account not owned by expected program")
	ErrInvalidRecordState        = NewError(ErrCodeInvalidRecordState, "invalid record state")
	ErrExpiredRequest            = NewError(ErrCodeExpiredRequest, "request expired")
	ErrWrongLifecyclePhase       = NewError(ErrCodeWrongLifecyclePhase, "operation not allowed in current pool state")
	ErrSlippageExceeded          = NewError(ErrCodeSlippageExceeded, "slippage bound exceeded")
	ErrArithmeticFailure         = NewError(ErrCodeArithmeticFailure, "curve arithmetic failed")
	ErrUnderlyingTransferFailure = NewError(ErrCodeUnderlyingTransferFailure, "underlying primitive failed")
)

// MissingAccounts creates an error for an account list shorter than the operation's arity.
func MissingAccounts(op string, want, got int) *Error {
	return NewError(ErrCodeMissingAccounts, fmt.Sprintf("%s requires %d accounts, got %d", op, want, got)).
		WithDetails(map[string]any{"op": op, "want": want, "got": got})
}

// MalformedPayload creates an error for an undecodable instruction payload.
func MalformedPayload(reason string) *Error {
	return NewError(ErrCodeMalformedPayload, reason)
}

// InvalidAccountOwnership creates an error for an account owned by the wrong program.
func InvalidAccountOwnership(what string) *Error {
	return NewError(ErrCodeInvalidAccountOwnership, fmt.Sprintf("%s has wrong owner", what))
}

// InvalidRecordState creates an error for record data that fails validation.
func InvalidRecordState(reason string) *Error {
	return NewError(ErrCodeInvalidRecordState, reason)
}

// ExpiredRequest creates an error for a request whose expiration has passed.
func ExpiredRequest(now, expiration int64) *Error {
	return NewError(ErrCodeExpiredRequest, fmt.Sprintf("now %d is past expiration %d", now, expiration))
}

// WrongLifecyclePhase creates an error for an operation the pool state forbids.
func WrongLifecyclePhase(op, state string) *Error {
	return NewError(ErrCodeWrongLifecyclePhase, fmt.Sprintf("%s not allowed while pool is %s", op, state))
}

// SlippageExceeded creates an error for a computed amount outside the caller's bound.
func SlippageExceeded(what string, got, bound uint64) *Error {
	return NewError(ErrCodeSlippageExceeded, fmt.Sprintf("%s %d violates bound %d", what, got, bound))
}

// ArithmeticFailure wraps a curve error.
func ArithmeticFailure(cause error) *Error {
	return NewError(ErrCodeArithmeticFailure, "curve computation failed").WithCause(cause)
}

// BorrowFailed reports an account whose data could not be borrowed, e.g.
// because another capability on it is still held.
func BorrowFailed(what string, cause error) *Error {
	return NewError(ErrCodeInvalidRecordState, fmt.Sprintf("cannot borrow %s", what)).WithCause(cause)
}

// TransferFailed wraps an error returned by the token or system primitive.
func TransferFailed(what string, cause error) *Error {
	return NewError(ErrCodeUnderlyingTransferFailure, what).WithCause(cause)
}

// CodeOf returns the code of the first Error in err's chain, or "" if none.
func CodeOf(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// Wrap wraps an error with additional context.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Is reports whether any error in err's chain matches target.
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target.
func As(err error, target any) bool {
	return errors.As(err, target)
}

// Join returns an error that wraps the given errors.
func Join(errs ...error) error {
	return errors.Join(errs...)
}
