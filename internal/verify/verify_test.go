package verify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/aasmall/slack-receiver/lib/handler"
	log "github.com/aasmall/slack-receiver/lib/logger"
)

const testSecret = "8f742231b10e8888abcd99yyyzzz85a5"

func signedRequest(t *testing.T, secret string, ts time.Time, payload string) *http.Request {
	t.Helper()
	body := url.Values{"payload": {payload}}.Encode()
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	fmt.Fprintf(mac, "v0:%s:%s", stamp, body)

	r := httptest.NewRequest("POST", "/slack/actions", strings.NewReader(body))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	r.Header.Set("X-Slack-Request-Timestamp", stamp)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
	return r
}

func quietLogger() *log.Logger {
	return log.New("test", log.WithWriter(&bytes.Buffer{}))
}

func statusOf(t *testing.T, err error) int {
	t.Helper()
	var se handler.StatusError
	require.True(t, errors.As(err, &se), "expected a StatusError, got %v", err)
	return se.Status()
}

func TestMaterialize_ValidSignature(t *testing.T) {
	m := New(WithSigningSecret(testSecret), WithLogger(quietLogger()))
	r := signedRequest(t, testSecret, time.Now(), `{"type":"block_actions"}`)

	env, err := m.Materialize(r)
	require.NoError(t, err)
	assert.Equal(t, `{"type":"block_actions"}`, env.Payload)
	assert.Equal(t, r.Header.Get("X-Slack-Signature"), env.Header.Get("X-Slack-Signature"))
}

func TestMaterialize_RejectsBadSignatures(t *testing.T) {
	tests := []struct {
		name string
		req  func(t *testing.T) *http.Request
	}{
		{
			name: "wrong secret",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, "not-the-secret", time.Now(), `{}`)
			},
		},
		{
			name: "expired timestamp",
			req: func(t *testing.T) *http.Request {
				return signedRequest(t, testSecret, time.Now().Add(-10*time.Minute), `{}`)
			},
		},
		{
			name: "missing headers",
			req: func(t *testing.T) *http.Request {
				r := signedRequest(t, testSecret, time.Now(), `{}`)
				r.Header.Del("X-Slack-Signature")
				return r
			},
		},
		{
			name: "tampered body",
			req: func(t *testing.T) *http.Request {
				r := signedRequest(t, testSecret, time.Now(), `{}`)
				r.Body = httptest.NewRequest("POST", "/", strings.NewReader("payload=%7B%22x%22%3A1%7D")).Body
				return r
			},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := New(WithSigningSecret(testSecret), WithLogger(quietLogger()))
			_, err := m.Materialize(tt.req(t))
			require.Error(t, err)
			assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
		})
	}
}

func TestMaterialize_NoSecretSkipsVerification(t *testing.T) {
	m := New(WithLogger(quietLogger()))
	r := signedRequest(t, "whatever", time.Now().Add(-time.Hour), `{"a":1}`)
	env, err := m.Materialize(r)
	require.NoError(t, err)
	assert.Equal(t, `{"a":1}`, env.Payload)
}

func TestMaterialize_Replay(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	guard := NewRedisReplayGuard(client, time.Minute)
	m := New(WithSigningSecret(testSecret), WithReplayGuard(guard), WithLogger(quietLogger()))

	now := time.Now()
	_, err = m.Materialize(signedRequest(t, testSecret, now, `{"type":"block_actions"}`))
	require.NoError(t, err)

	_, err = m.Materialize(signedRequest(t, testSecret, now, `{"type":"block_actions"}`))
	require.Error(t, err)
	assert.Equal(t, http.StatusUnauthorized, statusOf(t, err))
	assert.Equal(t, "Replayed Slack Request", err.Error())

	mr.FastForward(2 * time.Minute)
	_, err = m.Materialize(signedRequest(t, testSecret, now, `{"type":"block_actions"}`))
	assert.NoError(t, err, "signature should be accepted again after the window")
}

type failingGuard struct{}

func (failingGuard) Seen(context.Context, string) (bool, error) {
	return false, errors.New("connection refused")
}

func TestMaterialize_GuardFailureIsAccepted(t *testing.T) {
	buf := &bytes.Buffer{}
	m := New(WithReplayGuard(failingGuard{}), WithLogger(log.New("test", log.WithWriter(buf))))
	_, err := m.Materialize(signedRequest(t, testSecret, time.Now(), `{}`))
	require.NoError(t, err)
	assert.Contains(t, buf.String(), "replay guard unavailable")
}

func TestRedisReplayGuard_Seen(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	g := NewRedisReplayGuard(client, 0)
	ctx := context.Background()

	seen, err := g.Seen(ctx, "v0=abc")
	require.NoError(t, err)
	assert.False(t, seen)

	seen, err = g.Seen(ctx, "v0=abc")
	require.NoError(t, err)
	assert.True(t, seen)

	assert.Equal(t, DefaultReplayWindow, mr.TTL("slack-sig:v0=abc"))

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = g.Seen(cancelled, "v0=def")
	assert.ErrorIs(t, err, context.Canceled)
}
