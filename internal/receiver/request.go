package receiver

import (
	"context"
	"net/http"
	"time"
)

// Kind is the canonical class of a normalized request.
type Kind string

const (
	KindAction  Kind = "action"
	KindOptions Kind = "options"
)

// Response timeouts imposed by Slack, minus headroom.
const (
	ActionResponseTimeout  = 2500 * time.Millisecond
	OptionsResponseTimeout = 3000 * time.Millisecond
)

const (
	signatureHeader = "X-Slack-Signature"
	timestampHeader = "X-Slack-Request-Timestamp"
)

// Meta holds the fields every handler needs regardless of payload shape.
// Absent values are empty strings. Nothing here has been verified.
type Meta struct {
	VerifyToken string `json:"verify_token,omitempty"`
	Signature   string `json:"signature,omitempty"`
	Timestamp   string `json:"timestamp,omitempty"`
	UserID      string `json:"user_id,omitempty"`
	ChannelID   string `json:"channel_id,omitempty"`
	TeamID      string `json:"team_id,omitempty"`
}

// Request is a normalized interaction. It lives for one HTTP exchange.
type Request struct {
	Kind Kind
	Body Body
	Meta Meta

	// Response is the still-open HTTP response, set only when Slack accepts
	// a reply in the HTTP response. ResponseTimeout is set with it.
	Response        http.ResponseWriter
	ResponseTimeout time.Duration

	ReceivedAt time.Time
}

// Type returns the normalized body's type discriminator.
func (r *Request) Type() string {
	return r.Body.Type()
}

// CanRespond reports whether an in-band reply is possible.
func (r *Request) CanRespond() bool {
	return r.Response != nil
}

// Deadline is the advisory time by which Response should be written. ok is
// false when there is no response handle.
func (r *Request) Deadline() (deadline time.Time, ok bool) {
	if r.Response == nil {
		return time.Time{}, false
	}
	return r.ReceivedAt.Add(r.ResponseTimeout), true
}

func (r *Request) attachResponse(w http.ResponseWriter, timeout time.Duration) {
	if w == nil {
		return
	}
	r.Response = w
	r.ResponseTimeout = timeout
}

// extractMeta reads Meta from a normalized body and the request headers.
// user, channel and team are all optional.
func extractMeta(b Body, h http.Header) Meta {
	return Meta{
		VerifyToken: b.String("token"),
		Signature:   h.Get(signatureHeader),
		Timestamp:   h.Get(timestampHeader),
		UserID:      b.ID("user"),
		ChannelID:   b.ID("channel"),
		TeamID:      b.ID("team"),
	}
}

type contextKey struct{}

// WithRequest returns a copy of ctx carrying req.
func WithRequest(ctx context.Context, req *Request) context.Context {
	return context.WithValue(ctx, contextKey{}, req)
}

// FromContext returns the Request stored by WithRequest.
func FromContext(ctx context.Context) (*Request, bool) {
	req, ok := ctx.Value(contextKey{}).(*Request)
	return req, ok
}
