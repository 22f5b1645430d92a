package domain

import (
	"errors"
	"fmt"
	"net/http"
)

// Error codes returned to API clients in {"error":{"code":...}}.
const (
	CodeUnauthorized              = "UNAUTHORIZED"
	CodeInvalidToken              = "INVALID_TOKEN"
	CodeInvalidTokenData          = "INVALID_TOKEN_DATA"
	CodeForbidden                 = "FORBIDDEN"
	CodeInvalidJSON               = "INVALID_JSON"
	CodeInvalidPlan               = "INVALID_PLAN"
	CodeInvalidData               = "INVALID_DATA"
	CodeStripeError               = "STRIPE_ERROR"
	CodeInvalidSignature          = "INVALID_SIGNATURE"
	CodeDuplicateTransaction      = "DUPLICATE_TRANSACTION"
	CodeTransactionNotFound       = "TRANSACTION_NOT_FOUND"
	CodeTransactionFailed         = "TRANSACTION_FAILED"
	CodeInvalidRecipient          = "INVALID_RECIPIENT"
	CodeInvalidAmount             = "INVALID_AMOUNT"
	CodeInsufficientConfirmations = "INSUFFICIENT_CONFIRMATIONS"
	CodeBlockchainError           = "BLOCKCHAIN_ERROR"
	CodeUserNotFound              = "USER_NOT_FOUND"
	CodePlanInactive              = "PLAN_INACTIVE"
	CodeLimitExceeded             = "LIMIT_EXCEEDED"
	CodeInvalidID                 = "INVALID_ID"
	CodeShipmentNotFound          = "SHIPMENT_NOT_FOUND"
	CodeMissingFields             = "MISSING_FIELDS"
	CodeInvalidCode               = "INVALID_CODE"
	CodeCodeExpired               = "CODE_EXPIRED"
	CodeTooManyAttempts           = "TOO_MANY_ATTEMPTS"
	CodeDeliveryError             = "DELIVERY_ERROR"
	CodeRateLimited               = "RATE_LIMITED"
	CodeNotFound                  = "NOT_FOUND"
	CodeMethodNotAllowed          = "METHOD_NOT_ALLOWED"
	CodeInternal                  = "INTERNAL_ERROR"
)

// AppError is a structured application error carrying an HTTP status and a
// machine-readable code.
type AppError struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *AppError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// Common error constructors.

func ErrBadRequest(code, msg string) *AppError {
	return &AppError{Status: http.StatusBadRequest, Code: code, Message: msg}
}

func ErrUnauthorized(code, msg string) *AppError {
	return &AppError{Status: http.StatusUnauthorized, Code: code, Message: msg}
}

func ErrForbidden(code, msg string) *AppError {
	return &AppError{Status: http.StatusForbidden, Code: code, Message: msg}
}

func ErrNotFound(code, msg string) *AppError {
	return &AppError{Status: http.StatusNotFound, Code: code, Message: msg}
}

func ErrConflict(code, msg string) *AppError {
	return &AppError{Status: http.StatusConflict, Code: code, Message: msg}
}

func ErrTooManyRequests(code, msg string) *AppError {
	return &AppError{Status: http.StatusTooManyRequests, Code: code, Message: msg}
}

func ErrUpstream(code, msg string, err error) *AppError {
	return &AppError{Status: http.StatusBadGateway, Code: code, Message: msg, Err: err}
}

// ErrExternal is a 500 caused by a vendor dependency (Stripe, chain RPC).
func ErrExternal(code, msg string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: code, Message: msg, Err: err}
}

func ErrInternal(msg string, err error) *AppError {
	return &AppError{Status: http.StatusInternalServerError, Code: CodeInternal, Message: msg, Err: err}
}

// AsAppError attempts to extract an AppError from an error chain.
func AsAppError(err error) (*AppError, bool) {
	var appErr *AppError
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// HasCode reports whether err carries an AppError with the given code.
func HasCode(err error, code string) bool {
	appErr, ok := AsAppError(err)
	return ok && appErr.Code == code
}
