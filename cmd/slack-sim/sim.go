package main

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/gorilla/websocket"
)

type simulator struct {
	baseURL    string
	secret     string
	httpClient *http.Client
	now        func() time.Time
}

type result struct {
	Status int
	Header http.Header
	Body   []byte
}

// sign sets the Slack v0 signature headers for body.
func sign(h http.Header, secret string, body []byte, ts time.Time) {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + stamp + ":"))
	mac.Write(body)
	h.Set("X-Slack-Request-Timestamp", stamp)
	h.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

// send posts payload the way Slack does: form encoded under "payload".
func (s *simulator) send(path string, payload interface{}) (*result, error) {
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	body := []byte(url.Values{"payload": {string(b)}}.Encode())
	req, err := http.NewRequest(http.MethodPost, strings.TrimSuffix(s.baseURL, "/")+path, strings.NewReader(string(body)))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	if s.secret != "" {
		sign(req.Header, s.secret, body, s.now())
	}
	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	respBody, err := ioutil.ReadAll(resp.Body)
	if err != nil {
		return nil, err
	}
	return &result{Status: resp.StatusCode, Header: resp.Header, Body: respBody}, nil
}

// pretty indents JSON and leaves anything else as is.
func pretty(b []byte) string {
	var obj interface{}
	if err := json.Unmarshal(b, &obj); err != nil {
		return string(b)
	}
	m, _ := json.MarshalIndent(obj, ">> ", "  ")
	return string(m)
}

// snoop prints what mock-slack relays until done is closed or the
// connection drops.
func snoop(wsURL string, out io.Writer, done <-chan struct{}) error {
	c, _, err := websocket.DefaultDialer.Dial(wsURL, nil)
	if err != nil {
		return fmt.Errorf("dial %s: %w", wsURL, err)
	}
	go func() {
		<-done
		c.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.Close()
	}()
	for {
		_, message, err := c.ReadMessage()
		if err != nil {
			select {
			case <-done:
				return nil
			default:
				return err
			}
		}
		fmt.Fprintf(out, ">> %s\n-----\n", pretty(message))
	}
}
