package receiver

import (
	"fmt"
	"net/http"
	"time"
)

// failurePolicy resolves a decode failure. It returns the error to hand to
// the surrounding handler chain, or nil when it answered the exchange itself.
type failurePolicy func(w http.ResponseWriter, err error) error

// respondInline writes the failure message as the response body.
func respondInline(w http.ResponseWriter, err error) error {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, err.Error())
	return nil
}

// escalate hands the failure to the handler chain.
func escalate(_ http.ResponseWriter, err error) error {
	return err
}

type normalizer func(p *Payload, env Envelope, w http.ResponseWriter) *Request

// Parser decodes and normalizes one kind of interaction payload.
type Parser struct {
	kind      Kind
	onFailure failurePolicy
	normalize normalizer
	now       func() time.Time

	// OnDecodeError observes decode failures before the failure policy runs.
	OnDecodeError func(kind Kind, err error)
}

// NewActionParser returns the Parser for clicks and submissions. Decode
// failures are answered in the response and never returned.
func NewActionParser() *Parser {
	return &Parser{kind: KindAction, onFailure: respondInline, normalize: normalizeAction, now: time.Now}
}

// NewOptionsParser returns the Parser for suggestion lookups. Decode
// failures are returned to the caller.
func NewOptionsParser() *Parser {
	return &Parser{kind: KindOptions, onFailure: escalate, normalize: normalizeOptions, now: time.Now}
}

// Kind returns the kind of request p produces.
func (p *Parser) Kind() Kind {
	return p.kind
}

// Parse decodes env and normalizes it. A nil Request with a nil error means
// the failure policy already answered w and the exchange must stop.
func (p *Parser) Parse(env Envelope, w http.ResponseWriter) (*Request, error) {
	payload, err := DecodePayload(env)
	if err != nil {
		if p.OnDecodeError != nil {
			p.OnDecodeError(p.kind, err)
		}
		return nil, p.onFailure(w, err)
	}
	req := p.normalize(payload, env, w)
	req.ReceivedAt = p.now()
	return req, nil
}

// ParseAction is NewActionParser().Parse(env, w).
func ParseAction(env Envelope, w http.ResponseWriter) (*Request, error) {
	return NewActionParser().Parse(env, w)
}

// ParseOptions is NewOptionsParser().Parse(env, w).
func ParseOptions(env Envelope, w http.ResponseWriter) (*Request, error) {
	return NewOptionsParser().Parse(env, w)
}
