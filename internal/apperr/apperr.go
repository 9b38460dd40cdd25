// Package apperr defines the error kinds shared by services and the HTTP
// boundary. Services return *Error values; handlers translate the Kind into a
// status code without looking at the message.
package apperr

import (
    "errors"
    "fmt"
    "net/http"
)

// Kind classifies a failure independently of transport.
type Kind int

const (
    Internal Kind = iota
    Unauthenticated
    Forbidden
    NotFound
    Conflict
    InvalidInput
)

func (k Kind) String() string {
    switch k {
    case Unauthenticated:
        return "unauthenticated"
    case Forbidden:
        return "forbidden"
    case NotFound:
        return "not_found"
    case Conflict:
        return "conflict"
    case InvalidInput:
        return "invalid_input"
    default:
        return "internal"
    }
}

// HTTPStatus maps a kind to the status code used in responses.
func (k Kind) HTTPStatus() int {
    switch k {
    case Unauthenticated:
        return http.StatusUnauthorized
    case Forbidden:
        return http.StatusForbidden
    case NotFound:
        return http.StatusNotFound
    case Conflict:
        return http.StatusConflict
    case InvalidInput:
        return http.StatusBadRequest
    default:
        return http.StatusInternalServerError
    }
}

// Error is a kinded error. Message is safe to show to clients; Err holds the
// underlying cause for logs.
type Error struct {
    Kind    Kind
    Message string
    Err     error
}

func (e *Error) Error() string {
    if e.Err != nil {
        return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
    }
    return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *Error) Unwrap() error { return e.Err }

// E builds an error of the given kind.
func E(kind Kind, msg string) *Error { return &Error{Kind: kind, Message: msg} }

// Wrap builds an error of the given kind that keeps cause for logging.
func Wrap(kind Kind, msg string, cause error) *Error {
    return &Error{Kind: kind, Message: msg, Err: cause}
}

// Internalf wraps an unexpected failure. The client only ever sees msg.
func Internalf(cause error, msg string) *Error {
    return &Error{Kind: Internal, Message: msg, Err: cause}
}

// KindOf returns the kind of err, or Internal for errors that are not *Error.
func KindOf(err error) Kind {
    var e *Error
    if errors.As(err, &e) {
        return e.Kind
    }
    return Internal
}

// MessageOf returns the client-safe message for err.
func MessageOf(err error) string {
    var e *Error
    if errors.As(err, &e) {
        return e.Message
    }
    return "internal server error"
}

// Is reports whether err carries the given kind.
func Is(err error, kind Kind) bool {
    var e *Error
    return errors.As(err, &e) && e.Kind == kind
}
