// Package apperr defines the client-facing errors returned by services.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

// Error represents an application error with the HTTP status it maps to.
type Error struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error implements the error interface
func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error
func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors carrying the same code and message, so a wrapped copy
// produced by With still satisfies errors.Is against the catalog value.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Code == e.Code && t.Message == e.Message
}

// With returns a copy of e wrapping cause.
func (e *Error) With(cause error) *Error {
	return &Error{Code: e.Code, Message: e.Message, Err: cause}
}

// New creates a new Error
func New(code int, message string, err error) *Error {
	return &Error{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// From extracts the application error from err, if any.
func From(err error) (*Error, bool) {
	var appErr *Error
	if errors.As(err, &appErr) {
		return appErr, true
	}
	return nil, false
}

// Generic error types
var (
	ErrValidation   = New(http.StatusBadRequest, "Validation failed", nil)
	ErrUnauthorized = New(http.StatusUnauthorized, "Unauthorized", nil)
	ErrForbidden    = New(http.StatusForbidden, "Not authorized", nil)
	ErrNotFound     = New(http.StatusNotFound, "Not found", nil)
)

// Account error types
var (
	ErrEmailTaken         = New(http.StatusConflict, "Email already registered", nil)
	ErrInvalidCredentials = New(http.StatusUnauthorized, "Invalid credentials", nil)
	ErrInactiveAccount    = New(http.StatusForbidden, "Account not activated", nil)
	ErrInvalidToken       = New(http.StatusBadRequest, "Invalid or expired token", nil)
	ErrWrongPassword      = New(http.StatusBadRequest, "Old password is incorrect", nil)
	ErrUserNotFound       = New(http.StatusNotFound, "User not found", nil)
)

// Catalog error types
var (
	ErrMovieNotFound         = New(http.StatusNotFound, "Movie not found", nil)
	ErrCertificationNotFound = New(http.StatusBadRequest, "Certification not found", nil)
	ErrMoviePurchased        = New(http.StatusBadRequest, "Cannot delete movie that has been purchased", nil)
	ErrDuplicateMovie        = New(http.StatusConflict, "Movie already exists", nil)
	ErrDuplicateName         = New(http.StatusConflict, "Name already exists", nil)
)

// Cart and order lifecycle error types
var (
	ErrCartItemNotFound  = New(http.StatusNotFound, "Item not found", nil)
	ErrAlreadyInCart     = New(http.StatusBadRequest, "Movie already in cart", nil)
	ErrAlreadyPurchased  = New(http.StatusBadRequest, "Movie already purchased", nil)
	ErrCartEmpty         = New(http.StatusBadRequest, "Cart is empty", nil)
	ErrCheckoutConflict  = New(http.StatusConflict, "Cart changed during checkout", nil)
	ErrOrderNotFound     = New(http.StatusNotFound, "Order not found", nil)
	ErrCannotCancel      = New(http.StatusBadRequest, "Cannot cancel order", nil)
	ErrCannotPay         = New(http.StatusBadRequest, "Order cannot be paid", nil)
	ErrPaymentNotFound   = New(http.StatusNotFound, "Payment not found", nil)
	ErrCannotRefund      = New(http.StatusBadRequest, "Cannot refund payment", nil)
	ErrPaymentProcessor  = New(http.StatusBadGateway, "Payment processor error", nil)
	ErrInvalidSignature  = New(http.StatusBadRequest, "Invalid webhook signature", nil)
	ErrMockPaymentsOff   = New(http.StatusNotFound, "Payment simulation is disabled", nil)
	ErrServiceOverloaded = New(http.StatusServiceUnavailable, "Service temporarily unavailable", nil)
)
