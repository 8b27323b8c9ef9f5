package domain

import (
	"errors"
	"fmt"
	"net/http"

	apperrors "github.com/Davidgwa1996/unidigitalcom/pkg/errors"
)

// Cart error kinds. Every constructor below wraps one of these so callers can
// match with errors.Is regardless of the message.
var (
	ErrInvalidQuantity     = errors.New("invalid quantity")
	ErrUnsupportedCurrency = errors.New("unsupported currency")
	ErrMalformedSnapshot   = errors.New("malformed cart snapshot")
	ErrInvalidProduct      = errors.New("invalid product")
	ErrInsufficientStock   = errors.New("insufficient stock")
	ErrCartEmpty           = errors.New("cart is empty")
	ErrCheckoutInProgress  = errors.New("checkout in progress")
)

// InvalidQuantity creates a 400 error for a non-positive or non-integer quantity.
func InvalidQuantity(message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_QUANTITY",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidQuantity,
	}
}

// UnsupportedCurrency creates a 400 error for a code outside the currency table.
func UnsupportedCurrency(code string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "UNSUPPORTED_CURRENCY",
		Message: fmt.Sprintf("currency %q is not supported", code),
		Status:  http.StatusBadRequest,
		Err:     ErrUnsupportedCurrency,
	}
}

// MalformedSnapshot creates an error for a persisted cart that cannot be decoded.
// It never leaves the cart store; it is logged and the snapshot is discarded.
func MalformedSnapshot(reason string, cause error) *apperrors.AppError {
	err := ErrMalformedSnapshot
	if cause != nil {
		err = fmt.Errorf("%w: %w", ErrMalformedSnapshot, cause)
	}
	return &apperrors.AppError{
		Code:    "MALFORMED_SNAPSHOT",
		Message: reason,
		Status:  http.StatusInternalServerError,
		Err:     err,
	}
}

// InvalidProduct creates a 400 error for a product descriptor that cannot become a line item.
func InvalidProduct(message string) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INVALID_PRODUCT",
		Message: message,
		Status:  http.StatusBadRequest,
		Err:     ErrInvalidProduct,
	}
}

// InsufficientStock creates a 409 error when the stock counter cannot cover the request.
func InsufficientStock(productID string, available, requested int) *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "INSUFFICIENT_STOCK",
		Message: fmt.Sprintf("product %s has %d in stock, %d requested", productID, available, requested),
		Status:  http.StatusConflict,
		Err:     ErrInsufficientStock,
	}
}

// CartEmpty creates a 400 error for checking out an empty cart.
func CartEmpty() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "CART_EMPTY",
		Message: "cannot check out an empty cart",
		Status:  http.StatusBadRequest,
		Err:     ErrCartEmpty,
	}
}

// CheckoutInProgress creates a 409 error for a second checkout of a session
// while the first is still placing its order.
func CheckoutInProgress() *apperrors.AppError {
	return &apperrors.AppError{
		Code:    "CHECKOUT_IN_PROGRESS",
		Message: "a checkout for this cart is already in progress",
		Status:  http.StatusConflict,
		Err:     ErrCheckoutInProgress,
	}
}
