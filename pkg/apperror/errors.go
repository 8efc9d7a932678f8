package apperror

import (
	"fmt"
	"net/http"
)

// Rejection reasons surfaced to redeem callers.
const (
	ReasonInvalidIdentifier  = "invalid_identifier"
	ReasonInvalidOrUsedNonce = "invalid_or_used_nonce"
	ReasonStorageError       = "storage_error"
)

// AppError is a structured error that maps to HTTP responses.
type AppError struct {
	Code       string `json:"error_code"`
	Message    string `json:"message"`
	Reason     string `json:"reason,omitempty"`
	HTTPStatus int    `json:"-"`
	Err        error  `json:"-"` // Wrapped internal error (not exposed to client)
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("[%s] %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Retryable reports whether the caller may retry the same request later.
func (e *AppError) Retryable() bool {
	return e.HTTPStatus == http.StatusServiceUnavailable || e.HTTPStatus == http.StatusTooManyRequests
}

// New creates a new AppError.
func New(code string, message string, httpStatus int) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
	}
}

// Wrap wraps an internal error with an AppError.
func Wrap(code string, message string, httpStatus int, err error) *AppError {
	return &AppError{
		Code:       code,
		Message:    message,
		HTTPStatus: httpStatus,
		Err:        err,
	}
}

func (e *AppError) withReason(reason string) *AppError {
	e.Reason = reason
	return e
}

// ---- Validation (VAL) ----

func ErrInvalidIdentifier() *AppError {
	return New("VAL_001", "Invalid wallet identifier", http.StatusBadRequest).
		withReason(ReasonInvalidIdentifier)
}

// Validation returns a VAL_002 error for malformed request bodies.
func Validation(message string) *AppError {
	return New("VAL_002", message, http.StatusBadRequest)
}

// ---- Nonce (NONCE) ----

// ErrInvalidOrUsedNonce covers absent, mismatched and consumed tokens alike.
func ErrInvalidOrUsedNonce() *AppError {
	return New("NONCE_001", "Invalid or already used nonce", http.StatusBadRequest).
		withReason(ReasonInvalidOrUsedNonce)
}

// ---- Ledger (LEDGER) ----

func ErrInvalidAmount() *AppError {
	return New("LEDGER_001", "Credit amount must be positive", http.StatusBadRequest)
}

// ---- Reconciliation (REC) ----

func ErrReconciliationNotFound() *AppError {
	return New("REC_001", "Reconciliation not found", http.StatusNotFound)
}

func ErrReconciliationResolved() *AppError {
	return New("REC_002", "Reconciliation already resolved", http.StatusConflict)
}

// ErrAlreadyCredited means an award for the same token already exists.
func ErrAlreadyCredited() *AppError {
	return New("REC_003", "Token was already credited", http.StatusConflict)
}

// ---- Authentication (AUTH) ----

func ErrInvalidToken() *AppError {
	return New("AUTH_001", "Invalid or expired token", http.StatusUnauthorized)
}

// ---- Rate Limiting (RATE) ----

func ErrRateLimitExceeded() *AppError {
	return New("RATE_001", "Too many requests, please try again later", http.StatusTooManyRequests)
}

// ---- System & Infrastructure (SYS) ----

func ErrStorage(err error) *AppError {
	return Wrap("SYS_001", "Internal storage error", http.StatusInternalServerError, err).
		withReason(ReasonStorageError)
}

// ErrStorageUnavailable marks a timeout or unreachable store; the caller may retry.
func ErrStorageUnavailable(err error) *AppError {
	return Wrap("SYS_002", "Storage temporarily unavailable", http.StatusServiceUnavailable, err).
		withReason(ReasonStorageError)
}

// ErrPostConsumeCreditFailure means the nonce was consumed but the credit did not land.
func ErrPostConsumeCreditFailure(err error) *AppError {
	return Wrap("SYS_003", "Reward could not be credited, reconciliation pending", http.StatusInternalServerError, err).
		withReason(ReasonStorageError)
}

// InternalError wraps an unexpected internal error as SYS_000.
func InternalError(err error) *AppError {
	return Wrap("SYS_000", "Internal server error", http.StatusInternalServerError, err)
}
