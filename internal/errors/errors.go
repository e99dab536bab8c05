// Package errors provides custom error types for the GranaFácil API.
// All service-layer errors should use AppError to ensure consistent,
// secure error responses that never leak internal details to clients.
package errors

import "net/http"

// AppError represents a structured application error with an error code,
// human-readable message, HTTP status code, and optional internal error.
type AppError struct {
	Code       string `json:"code"`
	Message    string `json:"message"`
	StatusCode int    `json:"-"`
	Internal   error  `json:"-"`
}

// Error implements the error interface.
func (e *AppError) Error() string { return e.Message }

// Unwrap returns the internal error for use with errors.Is/As.
func (e *AppError) Unwrap() error { return e.Internal }

// Wrap creates a new AppError with the same code/message/status but wraps an internal error.
func Wrap(sentinel *AppError, internal error) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    sentinel.Message,
		StatusCode: sentinel.StatusCode,
		Internal:   internal,
	}
}

// WithMessage creates a new AppError with a custom message.
func WithMessage(sentinel *AppError, message string) *AppError {
	return &AppError{
		Code:       sentinel.Code,
		Message:    message,
		StatusCode: sentinel.StatusCode,
		Internal:   sentinel.Internal,
	}
}

// Authentication & authorization errors.
var (
	ErrUnauthorized       = &AppError{Code: "UNAUTHORIZED", Message: "Authentication required", StatusCode: http.StatusUnauthorized}
	ErrInvalidCredentials = &AppError{Code: "INVALID_CREDENTIALS", Message: "Invalid email or password", StatusCode: http.StatusUnauthorized}
	ErrForbidden          = &AppError{Code: "FORBIDDEN", Message: "Access denied", StatusCode: http.StatusForbidden}
)

// General errors.
var (
	ErrInvalidInput   = &AppError{Code: "INVALID_INPUT", Message: "Invalid input", StatusCode: http.StatusBadRequest}
	ErrNotFound       = &AppError{Code: "NOT_FOUND", Message: "Resource not found", StatusCode: http.StatusNotFound}
	ErrInternalServer = &AppError{Code: "INTERNAL_ERROR", Message: "An internal error occurred", StatusCode: http.StatusInternalServerError}
)

// User errors.
var (
	ErrUserNotFound   = &AppError{Code: "USER_NOT_FOUND", Message: "User not found", StatusCode: http.StatusNotFound}
	ErrDuplicateEmail = &AppError{Code: "DUPLICATE_EMAIL", Message: "A user with this email already exists", StatusCode: http.StatusConflict}
)

// Entity errors.
var (
	ErrTransactionNotFound  = &AppError{Code: "TRANSACTION_NOT_FOUND", Message: "Transaction not found", StatusCode: http.StatusNotFound}
	ErrCategoryNotFound     = &AppError{Code: "CATEGORY_NOT_FOUND", Message: "Category not found", StatusCode: http.StatusNotFound}
	ErrBillNotFound         = &AppError{Code: "BILL_NOT_FOUND", Message: "Bill not found", StatusCode: http.StatusNotFound}
	ErrGoalNotFound         = &AppError{Code: "GOAL_NOT_FOUND", Message: "Goal not found", StatusCode: http.StatusNotFound}
	ErrContributionNotFound = &AppError{Code: "CONTRIBUTION_NOT_FOUND", Message: "Contribution not found", StatusCode: http.StatusNotFound}
	ErrGoalConflict         = &AppError{Code: "GOAL_CONFLICT", Message: "Goal was modified concurrently, retry the operation", StatusCode: http.StatusConflict}
)

// AI pipeline errors.
var (
	ErrExtractionFailed = &AppError{Code: "EXTRACTION_FAILED", Message: "Could not extract a transaction from the message", StatusCode: http.StatusUnprocessableEntity}
	ErrNoCategories     = &AppError{Code: "NO_CATEGORIES", Message: "Nenhuma categoria encontrada para o usuário", StatusCode: http.StatusUnprocessableEntity}
	ErrExternalService  = &AppError{Code: "EXTERNAL_SERVICE", Message: "An external service call failed", StatusCode: http.StatusBadGateway}
)

// WhatsApp link errors.
var (
	ErrInvalidLinkCode       = &AppError{Code: "INVALID_LINK_CODE", Message: "Invalid link code", StatusCode: http.StatusBadRequest}
	ErrLinkCodeExpired       = &AppError{Code: "LINK_CODE_EXPIRED", Message: "Link code has expired", StatusCode: http.StatusBadRequest}
	ErrWhatsAppAlreadyLinked = &AppError{Code: "WHATSAPP_ALREADY_LINKED", Message: "This WhatsApp number is already linked to another account", StatusCode: http.StatusConflict}
)
