package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/slack-go/slack"

	"github.com/aasmall/slack-receiver/internal/receiver"
)

var (
	// Normalization metrics
	InteractionsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_receiver_interactions_total",
			Help: "Total number of normalized interactions",
		},
		[]string{"kind", "type", "in_band"},
	)

	DecodeErrorsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_receiver_decode_errors_total",
			Help: "Total number of payloads that could not be decoded",
		},
		[]string{"kind", "reason"},
	)

	// Handling metrics
	HandlerDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "slack_receiver_handler_duration_seconds",
			Help:    "Time spent handling a normalized interaction",
			Buckets: []float64{.05, .1, .25, .5, 1, 2, 2.5, 3, 5, 10},
		},
		[]string{"kind"},
	)

	DeadlineMissedTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_receiver_deadline_missed_total",
			Help: "Interactions whose handler ran past the response timeout",
		},
		[]string{"kind"},
	)

	// Dispatch metrics
	DispatchTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "slack_receiver_dispatch_total",
			Help: "Total number of dispatches to NATS",
		},
		[]string{"kind", "mode", "result"},
	)
)

var knownTypes = map[string]bool{
	string(slack.InteractionTypeBlockActions):       true,
	string(slack.InteractionTypeBlockSuggestion):    true,
	string(slack.InteractionTypeViewSubmission):     true,
	string(slack.InteractionTypeViewClosed):         true,
	string(slack.InteractionTypeMessageAction):      true,
	string(slack.InteractionTypeShortcut):           true,
	string(slack.InteractionTypeInteractionMessage): true,
	string(slack.InteractionTypeDialogSubmission):   true,
	string(slack.InteractionTypeDialogSuggestion):   true,
	string(slack.InteractionTypeDialogCancellation): true,

	// view_submission is renamed to its view type
	"modal": true,
}

// TypeLabel bounds the type label to known values.
func TypeLabel(typ string) string {
	if knownTypes[typ] {
		return typ
	}
	return "other"
}

// Recorder feeds the package metrics. It satisfies receiver.Observer and
// dispatch.Observer.
type Recorder struct{}

func (Recorder) ObserveDecodeError(kind receiver.Kind, err error) {
	reason := "invalid"
	if errors.Is(err, receiver.ErrMissingPayload) {
		reason = "missing"
	}
	DecodeErrorsTotal.WithLabelValues(string(kind), reason).Inc()
}

func (Recorder) ObserveRequest(req *receiver.Request) {
	inBand := "false"
	if req.CanRespond() {
		inBand = "true"
	}
	InteractionsTotal.WithLabelValues(string(req.Kind), TypeLabel(req.Type()), inBand).Inc()
}

func (Recorder) ObserveHandled(req *receiver.Request, elapsed time.Duration) {
	HandlerDuration.WithLabelValues(string(req.Kind)).Observe(elapsed.Seconds())
	if req.CanRespond() && elapsed > req.ResponseTimeout {
		DeadlineMissedTotal.WithLabelValues(string(req.Kind)).Inc()
	}
}

func (Recorder) ObserveDispatch(kind receiver.Kind, mode, result string) {
	DispatchTotal.WithLabelValues(string(kind), mode, result).Inc()
}
