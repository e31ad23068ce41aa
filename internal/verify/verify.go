// Package verify materializes Slack interaction requests, checking the
// request signature and rejecting replays before the payload is read.
package verify

import (
	"bytes"
	"errors"
	"io"
	"io/ioutil"
	"net/http"

	"github.com/aasmall/slack-receiver/internal/receiver"
	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/slack-go/slack"
)

const defaultMaxBodyBytes = 1 << 20

var (
	errInvalidSignature = errors.New("Invalid Slack Signature")
	errReplayed         = errors.New("Replayed Slack Request")
)

// Materializer verifies a request and hands it to the next Materializer.
// With no signing secret the signature check is skipped.
type Materializer struct {
	secret   string
	guard    ReplayGuard
	next     receiver.Materializer
	log      *log.Logger
	maxBytes int64
}

// Option configures a Materializer.
type Option func(*Materializer)

// WithSigningSecret enables signature verification.
func WithSigningSecret(secret string) Option {
	return func(m *Materializer) { m.secret = secret }
}

// WithReplayGuard rejects signatures the guard has already seen.
func WithReplayGuard(g ReplayGuard) Option {
	return func(m *Materializer) { m.guard = g }
}

// WithNext replaces the form materializer that runs after verification.
func WithNext(next receiver.Materializer) Option {
	return func(m *Materializer) { m.next = next }
}

// WithLogger sets the logger.
func WithLogger(l *log.Logger) Option {
	return func(m *Materializer) { m.log = l }
}

// WithMaxBodyBytes caps how much of the body is read.
func WithMaxBodyBytes(n int64) Option {
	return func(m *Materializer) { m.maxBytes = n }
}

// New returns a Materializer.
func New(opts ...Option) *Materializer {
	m := &Materializer{next: receiver.FormMaterializer, maxBytes: defaultMaxBodyBytes}
	for _, opt := range opts {
		opt(m)
	}
	if m.log == nil {
		m.log = log.New("", log.WithLocal(true))
	}
	return m
}

// Materialize reads and restores the body, verifies it, and delegates.
func (m *Materializer) Materialize(r *http.Request) (receiver.Envelope, error) {
	log := m.log.WithRequest(r)

	body, err := ioutil.ReadAll(io.LimitReader(r.Body, m.maxBytes))
	if err != nil {
		return receiver.Envelope{}, handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	r.Body = ioutil.NopCloser(bytes.NewBuffer(body))

	if m.secret != "" {
		if err := m.verify(r.Header, body); err != nil {
			log.Errorf("cannot validate slack signature: %v", err)
			return receiver.Envelope{}, handler.StatusError{Code: http.StatusUnauthorized, Err: errInvalidSignature}
		}
	}

	if sig := r.Header.Get("X-Slack-Signature"); m.guard != nil && sig != "" {
		seen, err := m.guard.Seen(r.Context(), sig)
		switch {
		case err != nil:
			log.Warningf("replay guard unavailable, accepting request: %v", err)
		case seen:
			log.Errorf("rejecting replayed signature %s", sig)
			return receiver.Envelope{}, handler.StatusError{Code: http.StatusUnauthorized, Err: errReplayed}
		}
	}
	return m.next.Materialize(r)
}

func (m *Materializer) verify(header http.Header, body []byte) error {
	sv, err := slack.NewSecretsVerifier(header, m.secret)
	if err != nil {
		return err
	}
	if _, err := sv.Write(body); err != nil {
		return err
	}
	return sv.Ensure()
}
