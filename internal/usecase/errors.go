package usecase

import (
	"errors"
	"fmt"

	"storefront/internal/domain/repositories"
	"storefront/internal/gateway"
)

// ErrValidation matches every input error; the message of the concrete error
// is safe to show to the caller.
var ErrValidation = errors.New("validation failed")

type ValidationError struct {
	Message string
}

func (e *ValidationError) Error() string { return e.Message }

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func invalid(format string, args ...interface{}) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...)}
}

var (
	ErrInvalidOrderID       = invalid("invalid order ID")
	ErrEmptyItems           = invalid("items list cannot be empty")
	ErrInvalidItem          = invalid("invalid item")
	ErrInvalidStatus        = invalid("invalid order status")
	ErrIncompleteCustomer   = invalid("customer info requires name, email, phone and address")
	ErrInvalidTotal         = invalid("total amount must be positive")
	ErrTotalMismatch        = invalid("total amount does not match items")
	ErrInvalidAmount        = invalid("amount must be positive")
	ErrAmountMismatch       = invalid("amount does not match order total")
	ErrInvalidTransactionID = invalid("transaction ID is required")
	ErrStatusRequiresPaid   = invalid("order cannot be marked paid before its payment is")
)

var (
	ErrAlreadyPaid        = errors.New("order is already paid")
	ErrPaymentClosed      = errors.New("payment for this order has failed, place a new order")
	ErrProductUnavailable = errors.New("product is no longer available")
	ErrInsufficientStock  = errors.New("not enough stock")
	ErrTestModeDisabled   = errors.New("test payments are disabled")
	ErrForbidden          = errors.New("access denied")
	ErrUnauthenticated    = errors.New("authentication required")
)

// Re-exported so delivery code only needs this package to classify errors.
var (
	ErrOrderNotFound       = repositories.ErrOrderNotFound
	ErrTransactionMismatch = repositories.ErrTransactionMismatch
	ErrConfiguration       = gateway.ErrConfiguration
)
