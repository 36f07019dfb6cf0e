// Package httperr defines the error taxonomy shared by services and handlers.
//
// Services return these instead of raw errors so handlers can map them to
// status codes in one place. Authentication failures (401) are distinct from
// authorization failures (403), and NotFound is only produced once the caller
// could otherwise have acted, so unauthorized callers never learn whether a
// resource exists.
package httperr

import (
	"encoding/json"
	"errors"
	"net/http"
)

type Kind int

const (
	KindUnauthenticated Kind = iota + 1
	KindForbidden
	KindNotFound
	KindConflict
	KindInvalid
	KindInternal
)

type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

func Unauthenticated(msg string) error { return &Error{Kind: KindUnauthenticated, Message: msg} }
func Forbidden(msg string) error       { return &Error{Kind: KindForbidden, Message: msg} }
func NotFound(msg string) error        { return &Error{Kind: KindNotFound, Message: msg} }
func Conflict(msg string) error        { return &Error{Kind: KindConflict, Message: msg} }
func Invalid(msg string) error         { return &Error{Kind: KindInvalid, Message: msg} }

// Internal wraps an unexpected failure. The wrapped error is logged by the
// handler but never serialized to the client.
func Internal(err error) error {
	return &Error{Kind: KindInternal, Message: "internal server error", Err: err}
}

// KindOf reports the taxonomy kind of err, or KindInternal for anything
// that is not an *Error.
func KindOf(err error) Kind {
	var e *Error
	if errors.As(err, &e) {
		return e.Kind
	}
	return KindInternal
}

func IsNotFound(err error) bool { return KindOf(err) == KindNotFound }

func statusOf(kind Kind) int {
	switch kind {
	case KindUnauthenticated:
		return http.StatusUnauthorized
	case KindForbidden:
		return http.StatusForbidden
	case KindNotFound:
		return http.StatusNotFound
	case KindConflict:
		return http.StatusConflict
	case KindInvalid:
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

// Write serializes err as a JSON error response. Internal errors get a
// generic message so store details never leak to clients.
func Write(w http.ResponseWriter, err error) {
	kind := KindOf(err)
	msg := "internal server error"
	var e *Error
	if errors.As(err, &e) && kind != KindInternal {
		msg = e.Message
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusOf(kind))
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}
