// Package apperr carries the error kinds shared by the affiliate ledger, the
// webhook front and the supporting services, and maps them to HTTP statuses.
package apperr

import (
	"errors"
	"fmt"

	"github.com/gofiber/fiber/v2"
)

type Kind string

const (
	KindInvalidInput     Kind = "invalid_input"
	KindNotFound         Kind = "not_found"
	KindInvalidSignature Kind = "invalid_signature"
	KindBelowThreshold   Kind = "below_threshold"
	KindAlreadyRequested Kind = "already_requested"
	KindInsufficient     Kind = "insufficient_balance"
	KindInternal         Kind = "internal"
)

// Error is a classified error. Message is safe to show to API callers.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil && e.Message == "" {
		return e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// Is matches two *Error values by kind so errors.Is(err, apperr.NotFound("")) works.
func (e *Error) Is(target error) bool {
	var t *Error
	if errors.As(target, &t) {
		return t.Kind == e.Kind
	}
	return false
}

func New(kind Kind, format string, args ...any) *Error {
	return &Error{Kind: kind, Message: fmt.Sprintf(format, args...)}
}

func InvalidInput(format string, args ...any) *Error {
	return New(KindInvalidInput, format, args...)
}

func NotFound(format string, args ...any) *Error {
	return New(KindNotFound, format, args...)
}

func InvalidSignature(format string, args ...any) *Error {
	return New(KindInvalidSignature, format, args...)
}

func BelowThreshold(format string, args ...any) *Error {
	return New(KindBelowThreshold, format, args...)
}

func AlreadyRequested(format string, args ...any) *Error {
	return New(KindAlreadyRequested, format, args...)
}

func Insufficient(format string, args ...any) *Error {
	return New(KindInsufficient, format, args...)
}

// Internal wraps a storage or provider failure behind a generic message.
func Internal(err error, format string, args ...any) *Error {
	return &Error{Kind: KindInternal, Message: fmt.Sprintf(format, args...), Err: err}
}

// KindOf returns the kind of err; unclassified errors are internal.
func KindOf(err error) Kind {
	if err == nil {
		return ""
	}
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

// Message returns the caller-safe message of err.
func Message(err error) string {
	var e *Error
	if errors.As(err, &e) && e.Message != "" {
		return e.Message
	}
	return "Internal server error"
}

func HTTPStatus(kind Kind) int {
	switch kind {
	case KindInvalidInput, KindBelowThreshold, KindAlreadyRequested, KindInsufficient:
		return fiber.StatusBadRequest
	case KindNotFound:
		return fiber.StatusNotFound
	case KindInvalidSignature:
		return fiber.StatusUnauthorized
	case "":
		return fiber.StatusOK
	default:
		return fiber.StatusInternalServerError
	}
}
