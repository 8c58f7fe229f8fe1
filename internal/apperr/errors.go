package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Kind string

const (
	KindNotFound          Kind = "NOT_FOUND"
	KindInsufficientStock Kind = "INSUFFICIENT_STOCK"
	KindInvalidState      Kind = "INVALID_STATE"
	KindInvalidSignature  Kind = "INVALID_SIGNATURE"
	KindGateway           Kind = "GATEWAY_ERROR"
	KindValidation        Kind = "VALIDATION_ERROR"
	KindEmptyCart         Kind = "EMPTY_CART"
)

// Error is a domain failure that the HTTP layer knows how to render.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches any *Error of the same kind, so callers can test against the
// sentinels below with errors.Is.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return t.Kind == e.Kind && t.Message == ""
}

// Sentinels for errors.Is checks.
var (
	ErrNotFound          = &Error{Kind: KindNotFound}
	ErrInsufficientStock = &Error{Kind: KindInsufficientStock}
	ErrInvalidState      = &Error{Kind: KindInvalidState}
	ErrInvalidSignature  = &Error{Kind: KindInvalidSignature}
	ErrGateway           = &Error{Kind: KindGateway}
	ErrValidation        = &Error{Kind: KindValidation}
	ErrEmptyCart         = &Error{Kind: KindEmptyCart}
)

func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Message: fmt.Sprintf(format, args...)}
}

func InsufficientStock(format string, args ...any) *Error {
	return &Error{Kind: KindInsufficientStock, Message: fmt.Sprintf(format, args...)}
}

func InvalidState(format string, args ...any) *Error {
	return &Error{Kind: KindInvalidState, Message: fmt.Sprintf(format, args...)}
}

func InvalidSignature(msg string) *Error {
	return &Error{Kind: KindInvalidSignature, Message: msg}
}

func Validation(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func EmptyCart(userID string) *Error {
	return &Error{Kind: KindEmptyCart, Message: fmt.Sprintf("cart is empty for user %s", userID)}
}

// Gateway wraps a failed outbound call to the payment gateway.
func Gateway(msg string, err error) *Error {
	return &Error{Kind: KindGateway, Message: msg, Err: err}
}

// HTTPStatus maps err to a response code. Errors outside the taxonomy are 500.
func HTTPStatus(err error) int {
	var e *Error
	if !errors.As(err, &e) {
		return http.StatusInternalServerError
	}
	switch e.Kind {
	case KindNotFound:
		return http.StatusNotFound
	case KindInsufficientStock, KindInvalidState, KindInvalidSignature, KindValidation, KindEmptyCart:
		return http.StatusBadRequest
	case KindGateway:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
