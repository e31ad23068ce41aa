package receiver

import (
	"net/http"

	"github.com/aasmall/slack-receiver/lib/handler"
)

// Envelope is the materialized form of an inbound interaction request: the
// still-encoded payload field and the request headers.
type Envelope struct {
	Payload string
	Header  http.Header
}

// Materializer turns an HTTP request into an Envelope. Implementations own
// body decoding and any authenticity checks.
type Materializer interface {
	Materialize(r *http.Request) (Envelope, error)
}

// MaterializerFunc adapts a function to a Materializer.
type MaterializerFunc func(r *http.Request) (Envelope, error)

// Materialize calls f(r).
func (f MaterializerFunc) Materialize(r *http.Request) (Envelope, error) {
	return f(r)
}

// FormMaterializer reads the payload field of an url-encoded body. Bodies of
// any other content type produce an Envelope with no payload.
var FormMaterializer = MaterializerFunc(materializeForm)

func materializeForm(r *http.Request) (Envelope, error) {
	env := Envelope{Header: r.Header}
	if err := r.ParseForm(); err != nil {
		return env, handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	env.Payload = r.PostForm.Get("payload")
	return env, nil
}
