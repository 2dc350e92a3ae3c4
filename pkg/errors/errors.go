package errors

import (
	"errors"
	"fmt"
	"net/http"
)

// Error is a domain error that carries the HTTP status it should answer
// with, so handlers never map codes themselves.
type Error struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Status  int    `json:"status"`
	Err     error  `json:"-"`
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

// Unwrap returns the wrapped error.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// New creates a new Error instance.
func New(code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message}
}

// Wrap attaches context to an existing error.
func Wrap(err error, code string, status int, message string) *Error {
	return &Error{Code: code, Status: status, Message: message, Err: err}
}

// WrapAs wraps err with the code and status of a sentinel while replacing
// the message. The sentinel stays untouched.
func WrapAs(err error, base *Error, message string) *Error {
	if base == nil {
		base = ErrInternal
	}
	return &Error{Code: base.Code, Status: base.Status, Message: message, Err: err}
}

// Sentinel errors for the allocation and workflow engine. State machine
// violations answer 409, a passed deadline answers 422 so clients can tell
// "wrong state" from "too late".
var (
	ErrInvalidCredentials = New("INVALID_CREDENTIALS", http.StatusUnauthorized, "invalid email or password")
	ErrInactiveAccount    = New("ACCOUNT_INACTIVE", http.StatusForbidden, "account is inactive")
	ErrNotFound           = New("NOT_FOUND", http.StatusNotFound, "resource not found")
	ErrForbidden          = New("FORBIDDEN", http.StatusForbidden, "forbidden")
	ErrUnauthorized       = New("UNAUTHORIZED", http.StatusUnauthorized, "unauthorized")
	ErrConflict           = New("CONFLICT", http.StatusConflict, "conflict")
	ErrValidation         = New("VALIDATION_ERROR", http.StatusBadRequest, "validation failed")
	ErrInternal           = New("INTERNAL_ERROR", http.StatusInternalServerError, "internal server error")
	ErrDeadlinePassed     = New("DEADLINE_PASSED", http.StatusUnprocessableEntity, "deadline has passed")
	ErrInvalidState       = New("INVALID_STATE", http.StatusConflict, "action not valid for current state")
	ErrCapacityExhausted  = New("CAPACITY_EXHAUSTED", http.StatusConflict, "no remaining capacity")
	ErrAlreadyRegistered  = New("ALREADY_REGISTERED", http.StatusConflict, "student already registered this period")
)

// FromError normalises any error into an *Error. Unknown errors come back
// as INTERNAL_ERROR so raw driver messages never reach a client.
func FromError(err error) *Error {
	if err == nil {
		return nil
	}
	var e *Error
	if errors.As(err, &e) {
		return e
	}
	return WrapAs(err, ErrInternal, ErrInternal.Message)
}

// Clone returns a copy of the error allowing for message overrides.
func Clone(err *Error, message string) *Error {
	if err == nil {
		return nil
	}
	clone := *err
	if message != "" {
		clone.Message = message
	}
	return &clone
}
