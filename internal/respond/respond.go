// Package respond answers normalized interactions, either in the still-open
// HTTP response or later through the interaction's response_url.
package respond

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aasmall/slack-receiver/internal/receiver"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/slack-go/slack"
)

var (
	// ErrNoResponse is returned for in-band replies to requests that have no
	// response handle (block_actions, message_action).
	ErrNoResponse = errors.New("respond: request cannot be answered in-band")
	// ErrNoResponseURL is returned for out-of-band replies when the payload
	// carries no response_url.
	ErrNoResponseURL = errors.New("respond: payload has no response_url")
)

// Responder writes replies. It is safe for concurrent use.
type Responder struct {
	log        *log.Logger
	httpClient *http.Client
	now        func() time.Time
}

// New returns a Responder. A nil client uses http.DefaultClient.
func New(logger *log.Logger, client *http.Client) *Responder {
	if client == nil {
		client = http.DefaultClient
	}
	if logger == nil {
		logger = log.New("", log.WithLocal(true))
	}
	return &Responder{log: logger, httpClient: client, now: time.Now}
}

// InBand encodes v as JSON into req's response. Writing after the advisory
// deadline is allowed but logged; Slack will most likely ignore it.
func (rs *Responder) InBand(req *receiver.Request, v interface{}) error {
	if !req.CanRespond() {
		return ErrNoResponse
	}
	if deadline, _ := req.Deadline(); rs.now().After(deadline) {
		rs.log.Warningf("replying to %s %q %s after its %s deadline",
			req.Kind, req.Type(), rs.now().Sub(deadline), req.ResponseTimeout)
	}
	w := req.Response
	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(v)
}

// Text replies in-band with a plain message.
func (rs *Responder) Text(req *receiver.Request, text string) error {
	return rs.InBand(req, slack.Msg{Text: text})
}

type optionsResponse struct {
	Options []*slack.OptionBlockObject `json:"options"`
}

// Options answers a suggestion request.
func (rs *Responder) Options(req *receiver.Request, options ...*slack.OptionBlockObject) error {
	if options == nil {
		options = []*slack.OptionBlockObject{}
	}
	return rs.InBand(req, optionsResponse{Options: options})
}

// Option builds a plain text option.
func Option(label, value string) *slack.OptionBlockObject {
	return &slack.OptionBlockObject{
		Text:  slack.NewTextBlockObject(slack.PlainTextType, label, false, false),
		Value: value,
	}
}

// OutOfBand posts msg to the payload's response_url.
func (rs *Responder) OutOfBand(req *receiver.Request, msg *slack.WebhookMessage) error {
	url := req.Body.String("response_url")
	if url == "" {
		return ErrNoResponseURL
	}
	if err := slack.PostWebhookCustomHTTP(url, rs.httpClient, msg); err != nil {
		rs.log.Errorf("could not post to response_url for team %s: %v", req.Meta.TeamID, err)
		return err
	}
	return nil
}
