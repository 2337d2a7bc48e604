// Package apierror provides the error taxonomy of the reconciliation engine
// and the standardized JSON envelopes handlers serialize them into.
// All errors returned to clients go through this package to ensure consistency
// and to prevent leaking internal details (stack traces, DB errors, etc.).
package apierror

import "fmt"

// APIError is the canonical error envelope for all 4xx/5xx HTTP responses.
type APIError struct {
	Detail string `json:"detail"`
}

func New(msg string) *APIError {
	return &APIError{Detail: msg}
}

// ─── Typed domain errors ─────────────────────────────────────────────────────
// Each class demands a different operator action (fix the form, refresh state,
// retry later), so they must never collapse into one generic message.

// ValidationError: malformed input, rejected before touching the store.
type ValidationError struct {
	Detail string            `json:"detail"`
	Fields map[string]string `json:"fields,omitempty"`
}

func (e *ValidationError) Error() string { return e.Detail }

func Validation(msg string) *ValidationError {
	return &ValidationError{Detail: msg}
}

func ValidationFields(fields map[string]string) *ValidationError {
	return &ValidationError{Detail: "Error de validacion", Fields: fields}
}

// ConflictError: an invariant violation the caller must resolve by refreshing
// state (corte already open, corte already closed). Never retried automatically.
type ConflictError struct {
	Detail string `json:"detail"`
}

func (e *ConflictError) Error() string { return e.Detail }

func Conflict(msg string) *ConflictError {
	return &ConflictError{Detail: msg}
}

// ForbiddenError: the caller's token does not cover the negocio it is trying
// to operate.
type ForbiddenError struct {
	Detail string `json:"detail"`
}

func (e *ForbiddenError) Error() string { return e.Detail }

func Forbidden(msg string) *ForbiddenError {
	return &ForbiddenError{Detail: msg}
}

// NotFoundError: the corte or negocio does not exist.
type NotFoundError struct {
	Detail string `json:"detail"`
}

func (e *NotFoundError) Error() string { return e.Detail }

func NotFound(msg string) *NotFoundError {
	return &NotFoundError{Detail: msg}
}

// LedgerUnavailableError: the sales ledger did not respond. Surfaced only after
// the aggregation layer exhausted its bounded retries — a reconciliation over
// an incomplete ledger read would be worse than a delay.
type LedgerUnavailableError struct {
	Detail string
	Err    error
}

func (e *LedgerUnavailableError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Detail, e.Err)
	}
	return e.Detail
}

func (e *LedgerUnavailableError) Unwrap() error { return e.Err }

func LedgerUnavailable(err error) *LedgerUnavailableError {
	return &LedgerUnavailableError{Detail: "El registro de ventas no esta disponible", Err: err}
}
