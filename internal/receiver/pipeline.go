package receiver

import (
	"net/http"
	"time"

	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
)

// Observer is told about every request passing through a Pipeline.
type Observer interface {
	ObserveDecodeError(kind Kind, err error)
	ObserveRequest(req *Request)
	ObserveHandled(req *Request, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDecodeError(Kind, error) {}
func (nopObserver) ObserveRequest(*Request) {}
func (nopObserver) ObserveHandled(*Request, time.Duration) {}

// Pipeline composes materialization, decoding and normalization in front of
// a handler.HandlerFunc. The normalized Request is available to the wrapped
// handler through FromContext.
type Pipeline struct {
	materializer Materializer
	log          *log.Logger
	observer     Observer
}

// NewPipeline returns a Pipeline. A nil observer is allowed.
func NewPipeline(m Materializer, logger *log.Logger, observer Observer) *Pipeline {
	if observer == nil {
		observer = nopObserver{}
	}
	if logger == nil {
		logger = log.New("", log.WithLocal(true))
	}
	return &Pipeline{materializer: m, log: logger, observer: observer}
}

// Actions wraps next with the action parser.
func (p *Pipeline) Actions(next handler.HandlerFunc) handler.HandlerFunc {
	return p.wrap(NewActionParser(), next)
}

// Options wraps next with the options parser.
func (p *Pipeline) Options(next handler.HandlerFunc) handler.HandlerFunc {
	return p.wrap(NewOptionsParser(), next)
}

func (p *Pipeline) wrap(parser *Parser, next handler.HandlerFunc) handler.HandlerFunc {
	return func(e interface{}, w http.ResponseWriter, r *http.Request) error {
		log := p.log.WithRequest(r)
		pr := *parser
		pr.OnDecodeError = func(kind Kind, err error) {
			log.Errorf("could not decode %s payload: %v (cause: %v)", kind, err, errorCause(err))
			p.observer.ObserveDecodeError(kind, err)
		}

		env, err := p.materializer.Materialize(r)
		if err != nil {
			return err
		}
		req, err := pr.Parse(env, w)
		if err != nil {
			return err
		}
		if req == nil {
			return nil
		}
		log.Debugf("normalized %s request of type %q for team %s", req.Kind, req.Type(), req.Meta.TeamID)
		p.observer.ObserveRequest(req)

		start := time.Now()
		err = next(e, w, r.WithContext(WithRequest(r.Context(), req)))
		p.observer.ObserveHandled(req, time.Since(start))
		return err
	}
}

func errorCause(err error) error {
	if pe, ok := err.(*PayloadError); ok {
		return pe.Unwrap()
	}
	return nil
}
