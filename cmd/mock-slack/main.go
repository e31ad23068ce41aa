// Command mock-slack receives what downstream handlers send back to Slack
// (response_url posts and chat.postMessage calls) and relays it to
// websocket snoopers.
package main

import (
	"encoding/json"
	"errors"
	"io/ioutil"
	"net/http"
	"net/url"
	"os"

	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/gorilla/mux"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"
)

type env struct {
	hub *hub
	log *log.Logger
}

var errInvalidJSON = errors.New("body is not JSON")

// event is what snoopers receive.
type event struct {
	Type       string          `json:"type"`
	ResponseID string          `json:"response_id,omitempty"`
	Body       json.RawMessage `json:"body,omitempty"`
	Form       url.Values      `json:"form,omitempty"`
}

func newRouter(e *env) *mux.Router {
	r := mux.NewRouter()
	r.Handle("/response/{id}", handler.Handler{Env: e, H: responseURLHandler, Log: e.log}).Methods(http.MethodPost)
	r.Handle("/api/chat.postMessage", handler.Handler{Env: e, H: postMessageHandler, Log: e.log}).Methods(http.MethodPost)
	r.Handle("/wss/snooper", handler.Handler{Env: e, H: wssHandler, Log: e.log})
	return r
}

func (e *env) relay(ev *event) error {
	b, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	e.hub.broadcast <- b
	return nil
}

func responseURLHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*env)
	b, err := ioutil.ReadAll(r.Body)
	if err != nil {
		return err
	}
	if !json.Valid(b) {
		return handler.StatusError{Code: http.StatusBadRequest, Err: errInvalidJSON}
	}
	id := mux.Vars(r)["id"]
	env.log.Debugf("response_url %s: %s", id, b)
	if err := env.relay(&event{Type: "response_url", ResponseID: id, Body: b}); err != nil {
		return err
	}
	w.WriteHeader(http.StatusOK)
	return nil
}

func postMessageHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*env)
	if err := r.ParseForm(); err != nil {
		return handler.StatusError{Code: http.StatusBadRequest, Err: err}
	}
	if err := env.relay(&event{Type: "chat.postMessage", Form: r.PostForm}); err != nil {
		return err
	}
	w.Header().Set("Content-Type", "application/json")
	_, err := w.Write([]byte(`{"ok":true}`))
	return err
}

func wssHandler(e interface{}, w http.ResponseWriter, r *http.Request) error {
	env := e.(*env)
	upgrader := websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }}
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		env.log.Errorf("websocket upgrade: %v", err)
		return nil
	}
	c := &client{hub: env.hub, conn: conn, send: make(chan []byte, 256)}
	env.hub.register <- c
	c.send <- []byte(`{"type":"hello"}`)
	go c.writePump()
	go c.readPump()
	return nil
}

func main() {
	var addr string
	var debug bool
	cmd := &cobra.Command{
		Use:          "mock-slack",
		Short:        "Capture responses sent back to Slack",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			e := &env{hub: newHub(), log: log.New("", log.WithLocal(true), log.WithDebug(debug), log.WithPrefix("mock-slack: "))}
			go e.hub.run()
			e.log.Infof("listening on %s", addr)
			return http.ListenAndServe(addr, newRouter(e))
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":50082", "listen address")
	cmd.Flags().BoolVar(&debug, "debug", false, "log every relayed message")
	if err := cmd.Execute(); err != nil {
		os.Exit(1)
	}
}
