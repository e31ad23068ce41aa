package handler

import (
	"log"
	"net/http"
)

// Error represents a handler error. It provides methods for a HTTP status
// code and embeds the built-in error interface.
type Error interface {
	error
	Status() int
}

// StatusError represents an error with an associated HTTP status code.
type StatusError struct {
	Code int
	Err  error
}

// Error allows StatusError to satisfy the error interface.
func (se StatusError) Error() string {
	return se.Err.Error()
}

// Status returns our HTTP status code.
func (se StatusError) Status() int {
	return se.Code
}

// Unwrap exposes the wrapped error to errors.Is and errors.As.
func (se StatusError) Unwrap() error {
	return se.Err
}

// HandlerFunc is the signature every route handler implements. e is the
// Env the Handler was built with.
type HandlerFunc func(e interface{}, w http.ResponseWriter, r *http.Request) error

// Logger is the subset of lib/logger used to report unhandled errors.
type Logger interface {
	Errorf(format string, a ...interface{})
}

// Handler takes a configured Env and a function matching our signature.
type Handler struct {
	Env interface{}
	H   HandlerFunc
	Log Logger
}

// ServeHTTP allows our Handler type to satisfy http.Handler.
func (h Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	err := h.H(h.Env, w, r)
	if err == nil {
		return
	}
	switch e := err.(type) {
	case Error:
		h.errorf("HTTP %d - %s", e.Status(), e)
		http.Error(w, e.Error(), e.Status())
	default:
		h.errorf("unhandled error on %s: %v", r.URL.Path, err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
	}
}

func (h Handler) errorf(format string, a ...interface{}) {
	if h.Log != nil {
		h.Log.Errorf(format, a...)
		return
	}
	log.Printf(format, a...)
}
