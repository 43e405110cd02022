// Package apperr defines the closed set of failure kinds surfaced by the
// ledger and its collaborators, plus the concrete errors built on them.
//
// Every error returned across a package boundary either is, or wraps, one
// of the kind sentinels below, so callers can branch with errors.Is on the
// kind (ErrNotFound) or on the specific error (ErrAccountNotFound).
package apperr

import (
	"errors"
	"net/http"
)

// Kind sentinels.
var (
	ErrUnauthorized        = errors.New("unauthorized")
	ErrNotFound            = errors.New("not found")
	ErrValidation          = errors.New("validation failed")
	ErrInvalidSecret       = errors.New("invalid secret")
	ErrInsufficientBalance = errors.New("insufficient balance")
	ErrConflict            = errors.New("conflict")
	ErrTransient           = errors.New("transient failure")
)

var kinds = []error{
	ErrUnauthorized,
	ErrNotFound,
	ErrValidation,
	ErrInvalidSecret,
	ErrInsufficientBalance,
	ErrConflict,
	ErrTransient,
}

// Error carries a kind, a stable machine-readable code, a caller-safe
// message and an optional cause that is never shown to callers.
type Error struct {
	Kind    error
	Code    string
	Message string
	Err     error
}

// New builds an Error without a cause.
func New(kind error, code, message string) *Error {
	return &Error{Kind: kind, Code: code, Message: message}
}

// Wrap builds an Error around a cause.
func Wrap(kind error, code, message string, cause error) *Error {
	return &Error{Kind: kind, Code: code, Message: message, Err: cause}
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

// Unwrap exposes both the kind and the cause to errors.Is / errors.As.
func (e *Error) Unwrap() []error {
	if e.Err != nil {
		return []error{e.Kind, e.Err}
	}
	return []error{e.Kind}
}

// Specific errors.
var (
	ErrBelowMinimum       = New(ErrValidation, "below_minimum", "minimum transaction amount is 50.00")
	ErrAboveMaximum       = New(ErrValidation, "above_maximum", "maximum transaction amount is 10000000.00")
	ErrInvalidAmount      = New(ErrValidation, "invalid_amount", "amount must be greater than zero")
	ErrBalanceOverflow    = New(ErrValidation, "balance_overflow", "balance would exceed the supported range")
	ErrSelfTransfer       = New(ErrValidation, "self_transfer", "sender and receiver must be different accounts")
	ErrNotAnAgent         = New(ErrValidation, "not_an_agent", "counterpart is not an agent")
	ErrDuplicateIdentity  = New(ErrValidation, "duplicate_identity", "email or phone already registered")
	ErrAccountInactive    = New(ErrValidation, "account_inactive", "account is not approved")
	ErrAccountBlocked     = New(ErrValidation, "account_blocked", "account is blocked")
	ErrAccountNotFound    = New(ErrNotFound, "account_not_found", "account not found")
	ErrRequestNotFound    = New(ErrNotFound, "request_not_found", "request not found")
	ErrInvalidPIN         = New(ErrInvalidSecret, "invalid_pin", "invalid PIN")
	ErrInvalidCredentials = New(ErrInvalidSecret, "invalid_credentials", "invalid credentials")
	ErrInsufficientFunds  = New(ErrInsufficientBalance, "insufficient_balance", "insufficient balance")
	ErrMissingToken       = New(ErrUnauthorized, "missing_token", "missing bearer token")
	ErrForbiddenAdmin     = New(ErrUnauthorized, "forbidden_admin", "this operation requires an administrator")
	ErrSelfAdministration = New(ErrValidation, "self_administration", "administrators cannot change their own status")
	ErrInvalidToken       = New(ErrUnauthorized, "invalid_token", "invalid or expired token")
)

// Validation builds an ad-hoc validation error, used for malformed input.
func Validation(code, message string) *Error {
	return New(ErrValidation, code, message)
}

// Transient wraps a storage failure the caller may retry.
func Transient(cause error) *Error {
	return Wrap(ErrTransient, "transient", "storage temporarily unavailable", cause)
}

// Conflict wraps a concurrent-modification failure.
func Conflict(cause error) *Error {
	return Wrap(ErrConflict, "conflict", "concurrent modification, retry the operation", cause)
}

// KindOf returns the kind sentinel err belongs to, or nil.
func KindOf(err error) error {
	for _, k := range kinds {
		if errors.Is(err, k) {
			return k
		}
	}
	return nil
}

// IsRetryable reports whether repeating the whole operation may succeed.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConflict) || errors.Is(err, ErrTransient)
}

// Code returns the machine-readable code of err.
func Code(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return "internal"
}

// Message returns the caller-safe message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return "internal error"
}

// HTTPStatus maps err to a response status.
func HTTPStatus(err error) int {
	if errors.Is(err, ErrDuplicateIdentity) {
		return http.StatusConflict
	}
	switch KindOf(err) {
	case ErrUnauthorized, ErrInvalidSecret:
		return http.StatusUnauthorized
	case ErrNotFound:
		return http.StatusNotFound
	case ErrValidation, ErrInsufficientBalance:
		return http.StatusBadRequest
	case ErrConflict:
		return http.StatusConflict
	case ErrTransient:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}
