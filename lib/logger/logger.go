// Package logger is a leveled logger backed by Google Cloud Logging, with a
// local mode that writes plain lines to an io.Writer.
package logger

import (
	"context"
	"fmt"
	"io"
	"log"
	"net/http"
	"os"

	"cloud.google.com/go/logging"
)

// Logger writes entries either to Cloud Logging or, in local mode, to a writer.
type Logger struct {
	projectID         string
	logName           string
	prefix            string
	debug             bool
	local             bool
	defaultSeverity   logging.Severity
	out               io.Writer
	localLogger       *log.Logger
	loggingClient     *logging.Client
	stackDriverLogger *logging.Logger
	httpRequest       *logging.HTTPRequest
}

// Option configures a Logger.
type Option func(*Logger)

// WithDefaultSeverity sets the severity used by Print and Printf.
func WithDefaultSeverity(s logging.Severity) Option {
	return func(l *Logger) { l.defaultSeverity = s }
}

// WithDebug enables debug entries.
func WithDebug(debug bool) Option {
	return func(l *Logger) { l.debug = debug }
}

// WithLogName sets the Cloud Logging log name.
func WithLogName(name string) Option {
	return func(l *Logger) { l.logName = name }
}

// WithPrefix prepends prefix to every string payload.
func WithPrefix(prefix string) Option {
	return func(l *Logger) { l.prefix = prefix }
}

// WithLocal skips Cloud Logging entirely.
func WithLocal(local bool) Option {
	return func(l *Logger) { l.local = local }
}

// WithWriter sets the destination for local mode. Implies WithLocal(true).
func WithWriter(w io.Writer) Option {
	return func(l *Logger) {
		l.out = w
		l.local = true
	}
}

// New returns a Logger for projectID. If the Cloud Logging client cannot be
// created the logger falls back to local mode.
func New(projectID string, opts ...Option) *Logger {
	l := &Logger{
		projectID:       projectID,
		logName:         "slack-receiver",
		defaultSeverity: logging.Default,
		out:             os.Stderr,
	}
	for _, opt := range opts {
		opt(l)
	}
	l.localLogger = log.New(l.out, "", log.LstdFlags|log.LUTC)
	if l.local {
		return l
	}
	loggingClient, err := logging.NewClient(context.Background(), projectID)
	if err != nil {
		log.Printf("Failed to create logging client, logging locally: %v", err)
		l.local = true
		return l
	}
	l.loggingClient = loggingClient
	l.stackDriverLogger = loggingClient.Logger(l.logName)
	return l
}

// WithRequest returns a shallow copy of logger with a request present
func (l *Logger) WithRequest(r *http.Request) *Logger {
	if r == nil || l == nil {
		panic("nil request")
	}
	l2 := new(Logger)
	*l2 = *l
	l2.httpRequest = &logging.HTTPRequest{Request: r}
	return l2
}

// IsDebug reports whether debug entries are written.
func (l *Logger) IsDebug() bool {
	return l.debug
}

func (l *Logger) Print(message interface{}) {
	l.Log(logging.Entry{Payload: message, Severity: l.defaultSeverity})
}
func (l *Logger) Info(message interface{}) {
	l.Log(logging.Entry{Payload: message, Severity: logging.Info})
}
func (l *Logger) Debug(message interface{}) {
	if !l.debug {
		return
	}
	l.Log(logging.Entry{Payload: message, Severity: logging.Debug})
}
func (l *Logger) Warning(message interface{}) {
	l.Log(logging.Entry{Payload: message, Severity: logging.Warning})
}
func (l *Logger) Error(message interface{}) {
	l.Log(logging.Entry{Payload: message, Severity: logging.Error})
}
func (l *Logger) Critical(message interface{}) {
	l.Log(logging.Entry{Payload: message, Severity: logging.Critical})
}

// Log writes entry, attaching the logger's request when the entry has none.
func (l *Logger) Log(entry logging.Entry) {
	e := entry
	if l.httpRequest != nil && entry.HTTPRequest == nil {
		e.HTTPRequest = l.httpRequest
	}
	if s, ok := e.Payload.(string); ok && l.prefix != "" {
		e.Payload = l.prefix + s
	}
	if l.local {
		l.writeLocal(e)
		return
	}
	l.stackDriverLogger.Log(e)
}

func (l *Logger) writeLocal(e logging.Entry) {
	line := fmt.Sprintf("%s: %v", e.Severity, e.Payload)
	if e.HTTPRequest != nil && e.HTTPRequest.Request != nil {
		line = fmt.Sprintf("%s [%s %s]", line, e.HTTPRequest.Request.Method, e.HTTPRequest.Request.URL.Path)
	}
	l.localLogger.Println(line)
}

func (l *Logger) Printf(format string, a ...interface{}) {
	l.Print(fmt.Sprintf(format, a...))
}
func (l *Logger) Infof(format string, a ...interface{}) {
	l.Info(fmt.Sprintf(format, a...))
}
func (l *Logger) Debugf(format string, a ...interface{}) {
	if !l.debug {
		return
	}
	l.Debug(fmt.Sprintf(format, a...))
}
func (l *Logger) Warningf(format string, a ...interface{}) {
	l.Warning(fmt.Sprintf(format, a...))
}
func (l *Logger) Errorf(format string, a ...interface{}) {
	l.Error(fmt.Sprintf(format, a...))
}
func (l *Logger) Criticalf(format string, a ...interface{}) {
	l.Critical(fmt.Sprintf(format, a...))
}

// Close flushes and closes the Cloud Logging client.
func (l *Logger) Close() error {
	if l.loggingClient == nil {
		return nil
	}
	return l.loggingClient.Close()
}

// Printf logs through the standard library before a Logger exists.
func Printf(format string, a ...interface{}) {
	log.Printf(format, a...)
}

// Println logs through the standard library before a Logger exists.
func Println(a ...interface{}) {
	log.Println(a...)
}

// Fatalf logs through the standard library and exits.
func Fatalf(format string, a ...interface{}) {
	log.Fatalf(format, a...)
}
