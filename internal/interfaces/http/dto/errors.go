package dto

import (
	"net/http"
	"strings"

	"github.com/orderdesk/backend/internal/domain/shared"
)

// Error code constants organized by category
// Format: ERR_<CATEGORY>_<DESCRIPTION>

// General error codes
const (
	ErrCodeUnknown  = "ERR_UNKNOWN"
	ErrCodeInternal = "ERR_INTERNAL"
)

// Validation error codes
const (
	ErrCodeValidation         = "ERR_VALIDATION"
	ErrCodeValidationRequired = "ERR_VALIDATION_REQUIRED"
	ErrCodeValidationFormat   = "ERR_VALIDATION_FORMAT"
	ErrCodeValidationRange    = "ERR_VALIDATION_RANGE"
	ErrCodeValidationLength   = "ERR_VALIDATION_LENGTH"
)

// Caller error codes
const (
	// ErrCodeUnauthorized is used when no actor could be resolved for the request
	ErrCodeUnauthorized = "ERR_UNAUTHORIZED"
	// ErrCodeForbidden is used when the actor's role may not perform the operation
	ErrCodeForbidden = "ERR_FORBIDDEN"
)

// Resource error codes
const (
	ErrCodeNotFound            = "ERR_NOT_FOUND"
	ErrCodeProductNotFound     = "ERR_PRODUCT_NOT_FOUND"
	ErrCodeOrderNotFound       = "ERR_ORDER_NOT_FOUND"
	ErrCodeAlreadyExists       = "ERR_ALREADY_EXISTS"
	ErrCodeConflict            = "ERR_CONFLICT"
	ErrCodeConcurrencyConflict = "ERR_CONCURRENCY_CONFLICT"
)

// Business rule error codes
const (
	ErrCodeInvalidTransition     = "ERR_INVALID_TRANSITION"
	ErrCodeInsufficientStock     = "ERR_INSUFFICIENT_STOCK"
	ErrCodeNegativeStockRejected = "ERR_NEGATIVE_STOCK_REJECTED"
	ErrCodeProductInactive       = "ERR_PRODUCT_INACTIVE"
	ErrCodeUnitMismatch          = "ERR_UNIT_MISMATCH"
)

// Input error codes
const (
	ErrCodeBadRequest      = "ERR_BAD_REQUEST"
	ErrCodeInvalidInput    = "ERR_INVALID_INPUT"
	ErrCodeInvalidQuantity = "ERR_INVALID_QUANTITY"
	ErrCodeInvalidJSON     = "ERR_INVALID_JSON"
	ErrCodeBodyTooLarge    = "ERR_BODY_TOO_LARGE"
)

// Rate limiting error codes
const (
	ErrCodeRateLimited = "ERR_RATE_LIMITED"
)

// ErrorCodeHTTPStatus maps error codes to HTTP status codes
var ErrorCodeHTTPStatus = map[string]int{
	ErrCodeUnknown:  http.StatusInternalServerError,
	ErrCodeInternal: http.StatusInternalServerError,

	ErrCodeValidation:         http.StatusBadRequest,
	ErrCodeValidationRequired: http.StatusBadRequest,
	ErrCodeValidationFormat:   http.StatusBadRequest,
	ErrCodeValidationRange:    http.StatusBadRequest,
	ErrCodeValidationLength:   http.StatusBadRequest,

	ErrCodeUnauthorized: http.StatusUnauthorized,
	ErrCodeForbidden:    http.StatusForbidden,

	ErrCodeNotFound:            http.StatusNotFound,
	ErrCodeProductNotFound:     http.StatusNotFound,
	ErrCodeOrderNotFound:       http.StatusNotFound,
	ErrCodeAlreadyExists:       http.StatusConflict,
	ErrCodeConflict:            http.StatusConflict,
	ErrCodeConcurrencyConflict: http.StatusConflict,
	ErrCodeInvalidTransition:   http.StatusConflict,

	// Business rule errors -> 422 Unprocessable Entity
	ErrCodeInsufficientStock:     http.StatusUnprocessableEntity,
	ErrCodeNegativeStockRejected: http.StatusUnprocessableEntity,
	ErrCodeProductInactive:       http.StatusUnprocessableEntity,
	ErrCodeUnitMismatch:          http.StatusUnprocessableEntity,

	ErrCodeBadRequest:      http.StatusBadRequest,
	ErrCodeInvalidInput:    http.StatusBadRequest,
	ErrCodeInvalidQuantity: http.StatusBadRequest,
	ErrCodeInvalidJSON:     http.StatusBadRequest,
	ErrCodeBodyTooLarge:    http.StatusRequestEntityTooLarge,

	ErrCodeRateLimited: http.StatusTooManyRequests,
}

// GetHTTPStatus returns the HTTP status code for an error code
// Returns 500 Internal Server Error if the error code is not found
func GetHTTPStatus(code string) int {
	if status, ok := ErrorCodeHTTPStatus[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// DomainErrorCodeMapping maps domain error codes to API error codes
var DomainErrorCodeMapping = map[string]string{
	shared.CodeNotFound:              ErrCodeNotFound,
	shared.CodeAlreadyExists:         ErrCodeAlreadyExists,
	shared.CodeInvalidInput:          ErrCodeInvalidInput,
	shared.CodeInvalidQuantity:       ErrCodeInvalidQuantity,
	shared.CodeForbidden:             ErrCodeForbidden,
	shared.CodeConcurrencyConflict:   ErrCodeConcurrencyConflict,
	shared.CodeProductNotFound:       ErrCodeProductNotFound,
	shared.CodeProductInactive:       ErrCodeProductInactive,
	shared.CodeUnitMismatch:          ErrCodeUnitMismatch,
	shared.CodeInsufficientStock:     ErrCodeInsufficientStock,
	shared.CodeInvalidTransition:     ErrCodeInvalidTransition,
	shared.CodeOrderNotFound:         ErrCodeOrderNotFound,
	shared.CodeNegativeStockRejected: ErrCodeNegativeStockRejected,
}

// NormalizeErrorCode converts a domain error code to the API format.
// Codes already carrying the ERR_ prefix, and unknown codes, are returned as-is.
func NormalizeErrorCode(code string) string {
	if strings.HasPrefix(code, "ERR_") {
		return code
	}
	if apiCode, ok := DomainErrorCodeMapping[code]; ok {
		return apiCode
	}
	return code
}
