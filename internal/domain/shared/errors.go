package shared

import "errors"

// DomainError represents a domain-level error
type DomainError struct {
	Code    string            `json:"code"`
	Message string            `json:"message"`
	Details map[string]string `json:"details,omitempty"`
}

// Error implements the error interface
func (e *DomainError) Error() string {
	return e.Message
}

// Is reports whether target is a DomainError with the same code.
// This lets callers match a detailed error against the package sentinels with errors.Is.
func (e *DomainError) Is(target error) bool {
	var t *DomainError
	if !errors.As(target, &t) {
		return false
	}
	return t.Code == e.Code
}

// WithDetail returns a copy of the error carrying an extra detail entry
func (e *DomainError) WithDetail(key, value string) *DomainError {
	details := make(map[string]string, len(e.Details)+1)
	for k, v := range e.Details {
		details[k] = v
	}
	details[key] = value
	return &DomainError{
		Code:    e.Code,
		Message: e.Message,
		Details: details,
	}
}

// WithMessage returns a copy of the error with a different message
func (e *DomainError) WithMessage(message string) *DomainError {
	return &DomainError{
		Code:    e.Code,
		Message: message,
		Details: e.Details,
	}
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
	}
}

// Error codes
const (
	CodeNotFound              = "NOT_FOUND"
	CodeAlreadyExists         = "ALREADY_EXISTS"
	CodeInvalidInput          = "INVALID_INPUT"
	CodeInvalidQuantity       = "INVALID_QUANTITY"
	CodeForbidden             = "FORBIDDEN"
	CodeConcurrencyConflict   = "CONCURRENCY_CONFLICT"
	CodeProductNotFound       = "PRODUCT_NOT_FOUND"
	CodeProductInactive       = "PRODUCT_INACTIVE"
	CodeUnitMismatch          = "UNIT_MISMATCH"
	CodeInsufficientStock     = "INSUFFICIENT_STOCK"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeOrderNotFound         = "ORDER_NOT_FOUND"
	CodeNegativeStockRejected = "NEGATIVE_STOCK_REJECTED"
)

// Common domain errors
var (
	ErrNotFound              = NewDomainError(CodeNotFound, "Resource not found")
	ErrAlreadyExists         = NewDomainError(CodeAlreadyExists, "Resource already exists")
	ErrInvalidInput          = NewDomainError(CodeInvalidInput, "Invalid input provided")
	ErrInvalidQuantity       = NewDomainError(CodeInvalidQuantity, "Quantity is not valid")
	ErrForbidden             = NewDomainError(CodeForbidden, "Not allowed to perform this action")
	ErrConcurrencyConflict   = NewDomainError(CodeConcurrencyConflict, "Resource was modified by another process")
	ErrProductNotFound       = NewDomainError(CodeProductNotFound, "Product not found")
	ErrProductInactive       = NewDomainError(CodeProductInactive, "Product is not active")
	ErrUnitMismatch          = NewDomainError(CodeUnitMismatch, "Unit cannot be converted to the product base unit")
	ErrInsufficientStock     = NewDomainError(CodeInsufficientStock, "Insufficient stock available")
	ErrInvalidTransition     = NewDomainError(CodeInvalidTransition, "Order status transition is not allowed")
	ErrOrderNotFound         = NewDomainError(CodeOrderNotFound, "Order not found")
	ErrNegativeStockRejected = NewDomainError(CodeNegativeStockRejected, "Stock cannot go below zero")
)

// IsRetryable reports whether the operation that produced err may be re-executed as is.
// Only contention between concurrent transactions qualifies.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrConcurrencyConflict)
}
