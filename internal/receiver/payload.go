package receiver

import (
	"encoding/json"
	"io"
	"strings"

	"github.com/slack-go/slack"
)

// PayloadError is returned when an Envelope does not carry a usable payload.
// Error returns the exact message sent back to Slack.
type PayloadError struct {
	msg   string
	cause error
}

func (e *PayloadError) Error() string { return e.msg }

// Unwrap returns the decoding error, if any.
func (e *PayloadError) Unwrap() error { return e.cause }

// Is matches PayloadErrors of the same kind regardless of cause.
func (e *PayloadError) Is(target error) bool {
	t, ok := target.(*PayloadError)
	return ok && t.msg == e.msg
}

var (
	// ErrMissingPayload means the envelope had no payload field, or it was empty.
	ErrMissingPayload = &PayloadError{msg: "Invalid request: payload missing"}
	// ErrInvalidPayload means the payload field was not a JSON object.
	ErrInvalidPayload = &PayloadError{msg: "Error parsing payload"}
)

func invalidPayload(cause error) error {
	return &PayloadError{msg: ErrInvalidPayload.msg, cause: cause}
}

// Variant classifies a payload by its type discriminator.
type Variant int

const (
	// Passthrough covers every type without a mapping rule.
	Passthrough Variant = iota
	BlockActions
	ViewSubmission
	BlockSuggestion
	MessageAction
)

func (v Variant) String() string {
	switch v {
	case BlockActions:
		return string(slack.InteractionTypeBlockActions)
	case ViewSubmission:
		return string(slack.InteractionTypeViewSubmission)
	case BlockSuggestion:
		return string(slack.InteractionTypeBlockSuggestion)
	case MessageAction:
		return string(slack.InteractionTypeMessageAction)
	default:
		return "passthrough"
	}
}

// VariantOf maps a wire type to its Variant.
func VariantOf(typ string) Variant {
	switch slack.InteractionType(typ) {
	case slack.InteractionTypeBlockActions:
		return BlockActions
	case slack.InteractionTypeViewSubmission:
		return ViewSubmission
	case slack.InteractionTypeBlockSuggestion:
		return BlockSuggestion
	case slack.InteractionTypeMessageAction:
		return MessageAction
	default:
		return Passthrough
	}
}

// Payload is a decoded interaction payload.
type Payload struct {
	Variant Variant
	Body    Body
}

// DecodePayload extracts and decodes the payload field of env. Numbers are
// kept as json.Number so they round-trip unchanged.
func DecodePayload(env Envelope) (*Payload, error) {
	if env.Payload == "" {
		return nil, ErrMissingPayload
	}
	dec := json.NewDecoder(strings.NewReader(env.Payload))
	dec.UseNumber()
	var body Body
	if err := dec.Decode(&body); err != nil {
		return nil, invalidPayload(err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, invalidPayload(err)
	}
	if body == nil {
		return nil, invalidPayload(nil)
	}
	return &Payload{Variant: VariantOf(body.Type()), Body: body}, nil
}
