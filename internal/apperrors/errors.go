package apperrors

import (
	"fmt"
	"net/http"
)

// Kind classifies an application error
type Kind uint

const (
	KindInternal Kind = iota
	KindValidation
	KindInsufficientFunds
	KindNotFound
	KindExternalProvider
)

// Error carries a kind alongside the message so handlers can map failures
// to HTTP statuses without string matching.
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

func (e *Error) Unwrap() error {
	return e.Err
}

// Is matches errors by kind
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Kind == t.Kind
}

// StatusCode maps the error kind to an HTTP status
func (e *Error) StatusCode() int {
	switch e.Kind {
	case KindValidation:
		return http.StatusBadRequest
	case KindInsufficientFunds:
		return http.StatusUnprocessableEntity
	case KindNotFound:
		return http.StatusNotFound
	case KindExternalProvider:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func New(kind Kind, message string, err error) *Error {
	return &Error{Kind: kind, Message: message, Err: err}
}

func Validation(message string) *Error {
	return New(KindValidation, message, nil)
}

func InsufficientFunds(message string) *Error {
	return New(KindInsufficientFunds, message, nil)
}

func NotFound(message string) *Error {
	return New(KindNotFound, message, nil)
}

func ExternalProvider(message string, err error) *Error {
	return New(KindExternalProvider, message, err)
}

func Internal(message string, err error) *Error {
	return New(KindInternal, message, err)
}

// Sentinels for errors.Is comparisons
var (
	ErrInsufficientFunds = &Error{Kind: KindInsufficientFunds, Message: "insufficient funds"}
	ErrNotFound          = &Error{Kind: KindNotFound, Message: "not found"}
	ErrValidation        = &Error{Kind: KindValidation, Message: "validation failed"}
)
