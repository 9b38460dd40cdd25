package apperr

import (
    "errors"
    "fmt"
    "net/http"
    "testing"
)

func TestKindHTTPStatus(t *testing.T) {
    tests := []struct {
        kind Kind
        want int
    }{
        {Unauthenticated, http.StatusUnauthorized},
        {Forbidden, http.StatusForbidden},
        {NotFound, http.StatusNotFound},
        {Conflict, http.StatusConflict},
        {InvalidInput, http.StatusBadRequest},
        {Internal, http.StatusInternalServerError},
    }
    for _, tt := range tests {
        if got := tt.kind.HTTPStatus(); got != tt.want {
            t.Errorf("%s: got %d, want %d", tt.kind, got, tt.want)
        }
    }
}

func TestKindOfWrapped(t *testing.T) {
    base := E(Conflict, "email already registered")
    wrapped := fmt.Errorf("register: %w", base)

    if got := KindOf(wrapped); got != Conflict {
        t.Fatalf("expected conflict, got %s", got)
    }
    if got := MessageOf(wrapped); got != "email already registered" {
        t.Fatalf("unexpected message %q", got)
    }
    if !Is(wrapped, Conflict) {
        t.Fatalf("expected Is to match conflict")
    }
}

func TestPlainErrorIsInternal(t *testing.T) {
    err := errors.New("connection refused")
    if KindOf(err) != Internal {
        t.Fatalf("plain errors must map to internal")
    }
    if MessageOf(err) == err.Error() {
        t.Fatalf("internal detail leaked into client message")
    }
}

func TestWrapKeepsCause(t *testing.T) {
    cause := errors.New("disk full")
    err := Internalf(cause, "create order failed")
    if !errors.Is(err, cause) {
        t.Fatalf("cause should be reachable through Unwrap")
    }
}
