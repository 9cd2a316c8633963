// Package apperr carries HTTP-aware application errors.
//
// Handlers return an *Error (or any error) and the error middleware turns it
// into a JSON response.  Errors that are not *Error map to 500 and their
// text is never sent to the client.
package apperr

import (
	"context"
	"errors"
	"fmt"
	"net/http"
)

// Error is an application error with a response status.
type Error struct {
	Status  int
	Code    string
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

func newErr(status int, code, msg string, err error) *Error {
	return &Error{Status: status, Code: code, Message: msg, Err: err}
}

func BadRequest(msg string, err error) *Error {
	return newErr(http.StatusBadRequest, "bad_request", msg, err)
}

func Unauthorized(msg string) *Error {
	return newErr(http.StatusUnauthorized, "unauthorized", msg, nil)
}

func NotFound(msg string) *Error {
	return newErr(http.StatusNotFound, "not_found", msg, nil)
}

func Unsupported(msg string) *Error {
	return newErr(http.StatusUnsupportedMediaType, "unsupported_media_type", msg, nil)
}

func Unavailable(msg string, err error) *Error {
	return newErr(http.StatusServiceUnavailable, "unavailable", msg, err)
}

func Internal(err error) *Error {
	return newErr(http.StatusInternalServerError, "internal", http.StatusText(http.StatusInternalServerError), err)
}

// From returns err as an *Error, wrapping unknown errors as Internal.
func From(err error) *Error {
	var ae *Error
	if errors.As(err, &ae) {
		return ae
	}
	return Internal(err)
}

/*─────────────────────────── rendering hook ───────────────────────────────*/

// Renderer writes err to w.  The error middleware installs one per request.
type Renderer func(w http.ResponseWriter, r *http.Request, err error)

type rendererKey struct{}

// WithRenderer attaches fn to ctx.
func WithRenderer(ctx context.Context, fn Renderer) context.Context {
	return context.WithValue(ctx, rendererKey{}, fn)
}

// Write renders err with the request's Renderer, or plain text when the
// error middleware is not installed.
func Write(w http.ResponseWriter, r *http.Request, err error) {
	if fn, ok := r.Context().Value(rendererKey{}).(Renderer); ok {
		fn(w, r, err)
		return
	}
	ae := From(err)
	http.Error(w, ae.Message, ae.Status)
}

// Handler adapts an error-returning handler to http.Handler.
type Handler func(w http.ResponseWriter, r *http.Request) error

func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if err := h(w, r); err != nil {
		Write(w, r, err)
	}
}
