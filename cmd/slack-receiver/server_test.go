package main

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aasmall/slack-receiver/internal/verify"
	log "github.com/aasmall/slack-receiver/lib/logger"
	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v7"
	"github.com/nats-io/nats.go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSigningSecret = "e6b19c573432dcc6b075501d51b51bb8"

type fakeConn struct {
	published []string
	requested []string
	reply     []byte
	err       error
}

func (c *fakeConn) Publish(subj string, data []byte) error {
	c.published = append(c.published, subj)
	return c.err
}

func (c *fakeConn) RequestWithContext(ctx context.Context, subj string, data []byte) (*nats.Msg, error) {
	c.requested = append(c.requested, subj)
	if c.err != nil {
		return nil, c.err
	}
	return &nats.Msg{Subject: subj, Data: c.reply}, nil
}

func testEnv(conn *fakeConn, secret string, guard verify.ReplayGuard) *environment {
	return &environment{
		config:        &envConfig{subjectPrefix: "slack.interactions"},
		log:           log.New("", log.WithWriter(&strings.Builder{})),
		signingSecret: secret,
		replayGuard:   guard,
		conn:          conn,
	}
}

func interactionRequest(path, payload string) *http.Request {
	form := url.Values{"payload": {payload}}.Encode()
	r := httptest.NewRequest(http.MethodPost, path, strings.NewReader(form))
	r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return r
}

func sign(r *http.Request, body string, secret string, ts time.Time) {
	stamp := strconv.FormatInt(ts.Unix(), 10)
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write([]byte("v0:" + stamp + ":" + body))
	r.Header.Set("X-Slack-Request-Timestamp", stamp)
	r.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
}

const blockActionsPayload = `{"type":"block_actions","user":{"id":"U1"},"team":{"id":"T1"},"channel":{"id":"C1"},"actions":[{"block_id":"b1","action_id":"a1","value":"v"}]}`
const viewSubmissionPayload = `{"type":"view_submission","user":{"id":"U1"},"team":{"id":"T1"},"view":{"type":"modal","callback_id":"cb","state":{"values":{}}}}`
const suggestionPayload = `{"type":"block_suggestion","user":{"id":"U1"},"team":{"id":"T1"},"action_id":"pick","block_id":"b9","value":"ab"}`

func TestRouter_Actions(t *testing.T) {
	t.Run("block actions are published and acknowledged", func(t *testing.T) {
		conn := &fakeConn{}
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, interactionRequest("/slack/actions", blockActionsPayload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, rec.Body.String())
		assert.Equal(t, []string{"slack.interactions.action.block_actions"}, conn.published)
		assert.Empty(t, conn.requested)
		assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	})

	t.Run("view submissions relay the reply", func(t *testing.T) {
		conn := &fakeConn{reply: []byte(`{"response_action":"clear"}`)}
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, interactionRequest("/slack/actions", viewSubmissionPayload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"response_action":"clear"}`, rec.Body.String())
		assert.Equal(t, []string{"slack.interactions.action.modal"}, conn.requested)
	})

	t.Run("bad payload answers inline", func(t *testing.T) {
		conn := &fakeConn{}
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, interactionRequest("/slack/actions", "{nope"))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "Error parsing payload", rec.Body.String())
		assert.Empty(t, conn.published)
	})

	t.Run("publish failure", func(t *testing.T) {
		conn := &fakeConn{err: errors.New("nats: connection closed")}
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, interactionRequest("/slack/actions", blockActionsPayload))

		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})
}

func TestRouter_Options(t *testing.T) {
	t.Run("suggestions relay the reply", func(t *testing.T) {
		conn := &fakeConn{reply: []byte(`{"options":[]}`)}
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, interactionRequest("/slack/options", suggestionPayload))

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.JSONEq(t, `{"options":[]}`, rec.Body.String())
		assert.Equal(t, []string{"slack.interactions.options.block_suggestion"}, conn.requested)
	})

	t.Run("missing payload escalates", func(t *testing.T) {
		conn := &fakeConn{}
		r := httptest.NewRequest(http.MethodPost, "/slack/options", strings.NewReader(""))
		r.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rec := httptest.NewRecorder()
		newRouter(testEnv(conn, "", nil)).ServeHTTP(rec, r)

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		assert.Empty(t, conn.requested)
	})
}

func TestRouter_Signed(t *testing.T) {
	mr, err := miniredis.Run()
	require.NoError(t, err)
	defer mr.Close()
	guard := verify.NewRedisReplayGuard(redis.NewClient(&redis.Options{Addr: mr.Addr()}), time.Minute)

	conn := &fakeConn{}
	router := newRouter(testEnv(conn, testSigningSecret, guard))
	body := url.Values{"payload": {blockActionsPayload}}.Encode()
	now := time.Now()

	signed := func(secret string) *http.Request {
		r := interactionRequest("/slack/actions", blockActionsPayload)
		sign(r, body, secret, now)
		return r
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, signed(testSigningSecret))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, conn.published, 1)

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signed(testSigningSecret))
	assert.Equal(t, http.StatusUnauthorized, rec.Code, "replayed signature")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, signed("wrong"))
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Len(t, conn.published, 1)
}

func TestRouter_Operational(t *testing.T) {
	router := newRouter(testEnv(&fakeConn{}, "", nil))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "go_goroutines")

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/slack/actions", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}

func Test_loadSigningSecret_Plaintext(t *testing.T) {
	got, err := loadSigningSecret(context.Background(), &envConfig{signingSecret: "plain", encSigningSecret: "ignored"})
	require.NoError(t, err)
	assert.Equal(t, "plain", got)
}
