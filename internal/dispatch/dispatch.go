// Package dispatch hands normalized interactions to business logic over NATS.
//
// Requests that cannot be answered in the HTTP response are published and
// acknowledged immediately. Requests that can are sent as NATS requests whose
// deadline is the request's response timeout, and the reply is written back
// to Slack.
package dispatch

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/aasmall/slack-receiver/internal/receiver"
	"github.com/aasmall/slack-receiver/internal/respond"
	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
)

// DefaultSubjectPrefix is the subject root interactions are sent under.
const DefaultSubjectPrefix = "slack.interactions"

// Conn is the part of *nats.Conn the dispatcher uses.
type Conn interface {
	Publish(subj string, data []byte) error
	RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error)
}

// Message is the wire form of a normalized request.
type Message struct {
	Kind              receiver.Kind `json:"kind"`
	Type              string        `json:"type"`
	Body              receiver.Body `json:"body"`
	Meta              receiver.Meta `json:"meta"`
	ReceivedAt        time.Time     `json:"received_at"`
	ResponseTimeoutMS int64         `json:"response_timeout_ms,omitempty"`
}

// NewMessage converts req to its wire form.
func NewMessage(req *receiver.Request) *Message {
	return &Message{
		Kind:              req.Kind,
		Type:              req.Type(),
		Body:              req.Body,
		Meta:              req.Meta,
		ReceivedAt:        req.ReceivedAt,
		ResponseTimeoutMS: req.ResponseTimeout.Milliseconds(),
	}
}

// Observer is told how each dispatch went.
type Observer interface {
	ObserveDispatch(kind receiver.Kind, mode, result string)
}

// Dispatcher publishes interactions to NATS.
type Dispatcher struct {
	conn      Conn
	prefix    string
	log       *log.Logger
	responder *respond.Responder
	observer  Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithSubjectPrefix overrides DefaultSubjectPrefix.
func WithSubjectPrefix(prefix string) Option {
	return func(d *Dispatcher) {
		if prefix != "" {
			d.prefix = prefix
		}
	}
}

// WithObserver sets the dispatch observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// New returns a Dispatcher sending on conn.
func New(conn Conn, logger *log.Logger, opts ...Option) *Dispatcher {
	if logger == nil {
		logger = log.New("", log.WithLocal(true))
	}
	d := &Dispatcher{
		conn:      conn,
		prefix:    DefaultSubjectPrefix,
		log:       logger,
		responder: respond.New(logger, nil),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Subject returns <prefix>.<kind>.<type>. Characters NATS treats specially
// are replaced in the type token.
func (d *Dispatcher) Subject(req *receiver.Request) string {
	typ := req.Type()
	if typ == "" {
		typ = "unknown"
	}
	typ = strings.NewReplacer(".", "_", " ", "_", "*", "_", ">", "_").Replace(typ)
	return d.prefix + "." + string(req.Kind) + "." + typ
}

// Handle is a handler.HandlerFunc to be wrapped by a receiver.Pipeline.
func (d *Dispatcher) Handle(e interface{}, w http.ResponseWriter, r *http.Request) error {
	req, ok := receiver.FromContext(r.Context())
	if !ok {
		return handler.StatusError{Code: http.StatusInternalServerError, Err: errors.New("no normalized request in context")}
	}
	log := d.log.WithRequest(r)
	data, err := json.Marshal(NewMessage(req))
	if err != nil {
		return err
	}
	subject := d.Subject(req)

	if !req.CanRespond() {
		if err := d.conn.Publish(subject, data); err != nil {
			d.observe(req, "publish", "error")
			return handler.StatusError{Code: http.StatusServiceUnavailable, Err: err}
		}
		d.observe(req, "publish", "ok")
		w.WriteHeader(http.StatusOK)
		return nil
	}

	deadline, _ := req.Deadline()
	ctx, cancel := context.WithDeadline(r.Context(), deadline)
	defer cancel()
	reply, err := d.conn.RequestWithContext(ctx, subject, data)
	switch {
	case err == nil:
		d.observe(req, "request", "ok")
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, nats.ErrTimeout), errors.Is(err, nats.ErrNoResponders):
		d.observe(req, "request", "timeout")
		log.Warningf("no reply on %s within %s: %v", subject, req.ResponseTimeout, err)
		w.WriteHeader(http.StatusOK)
		return nil
	default:
		d.observe(req, "request", "error")
		return handler.StatusError{Code: http.StatusBadGateway, Err: err}
	}

	if len(reply.Data) == 0 {
		w.WriteHeader(http.StatusOK)
		return nil
	}
	if !json.Valid(reply.Data) {
		log.Errorf("discarding non-JSON reply on %s", subject)
		w.WriteHeader(http.StatusOK)
		return nil
	}
	return d.responder.InBand(req, json.RawMessage(reply.Data))
}

func (d *Dispatcher) observe(req *receiver.Request, mode, result string) {
	if d.observer != nil {
		d.observer.ObserveDispatch(req.Kind, mode, result)
	}
}

// Connect dials NATS with reconnects enabled.
func Connect(url, name string, logger *log.Logger) (*nats.Conn, error) {
	return nats.Connect(url,
		nats.Name(name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(2*time.Second),
		nats.Timeout(5*time.Second),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Errorf("NATS disconnected: %v", err)
			}
		}),
		nats.ReconnectHandler(func(c *nats.Conn) {
			logger.Infof("NATS reconnected to %s", c.ConnectedUrl())
		}),
	)
}
