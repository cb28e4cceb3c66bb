// Package apperr carries the error taxonomy shared by the delivery router
// and the HTTP handlers: every rejection has a stable code so callers can
// tell a validation problem from a missing user from a friendship refusal.
package apperr

import (
	"errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeInvalidArgument Code = "INVALID_ARGUMENT"
	CodeNotFound        Code = "NOT_FOUND"
	CodeNotFriend       Code = "NOT_FRIEND"
	CodeUnavailable     Code = "UNAVAILABLE"
	CodeInternal        Code = "INTERNAL"
)

type Error struct {
	Code    Code   `json:"code"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func New(code Code, message string) error {
	return &Error{Code: code, Message: message}
}

func Wrap(code Code, message string, cause error) error {
	return &Error{Code: code, Message: message, Err: cause}
}

func InvalidArg(msg string) error { return New(CodeInvalidArgument, msg) }
func NotFound(msg string) error   { return New(CodeNotFound, msg) }
func NotFriend(msg string) error  { return New(CodeNotFriend, msg) }
func Internal(msg string) error   { return New(CodeInternal, msg) }

// Unavailable marks a persistence failure as retryable by the caller.
func Unavailable(msg string, cause error) error {
	return Wrap(CodeUnavailable, msg, cause)
}

// Domain errors used by the router and the message handlers.
var (
	ErrEmptyMessage      = InvalidArg("message body cannot be empty")
	ErrNoRecipients      = InvalidArg("at least one recipient is required")
	ErrSenderNotFound    = NotFound("sender not found")
	ErrRecipientNotFound = NotFound("recipient not found")
	ErrNotFriend         = NotFriend("user is not a friend")
)

// CodeOf extracts the code from an error chain, defaulting to INTERNAL.
func CodeOf(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return CodeInternal
}

// HTTPStatus maps a code to the status the original wire contract uses.
func HTTPStatus(err error) int {
	switch CodeOf(err) {
	case CodeInvalidArgument:
		return http.StatusUnprocessableEntity
	case CodeNotFound:
		return http.StatusNotFound
	case CodeNotFriend:
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}
