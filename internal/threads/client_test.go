package threads

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync/atomic"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"threadgenius/internal/config"
)

// helper to create a client pointed at a test server
func newTestClient(ts *httptest.Server, cfg config.ThreadsConfig) *HTTPClient {
	c := NewHTTPClient(cfg)
	c.httpClient = ts.Client()
	c.baseURL = ts.URL
	c.maxAttempts = 3
	c.baseBackoff = 10 * time.Millisecond
	return c
}

func TestDoWithRetryHandles429(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) == 1 {
			w.Header().Set("Retry-After", "0")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		_, _ = w.Write([]byte(`{"data":[{"name":"likes","values":[{"value":4}]},{"name":"views","total_value":{"value":120}}]}`))
	}))
	defer ts.Close()

	c := newTestClient(ts, config.ThreadsConfig{AccessToken: "tok"})
	got, err := c.Insights(context.Background(), "p1")

	require.NoError(t, err)
	assert.Equal(t, Insights{Views: 120, Likes: 4}, got)
	assert.Equal(t, int32(2), attempts.Load())
}

func TestDoWithRetryGivesUp(t *testing.T) {
	var attempts atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer ts.Close()

	_, err := newTestClient(ts, config.ThreadsConfig{AccessToken: "tok"}).Insights(context.Background(), "p1")

	assert.ErrorContains(t, err, "after 3 attempts")
	assert.Equal(t, int32(3), attempts.Load())
}

func TestDoWithRetryStopsOnCancel(t *testing.T) {
	var attempts atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		cancel()
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer ts.Close()

	_, err := newTestClient(ts, config.ThreadsConfig{AccessToken: "tok"}).Insights(ctx, "p1")

	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), attempts.Load())
}

func TestRetryDelay(t *testing.T) {
	c := &HTTPClient{baseBackoff: 100 * time.Millisecond}

	assert.Equal(t, 100*time.Millisecond, c.retryDelay(1, fmt.Errorf("dial")))
	assert.Equal(t, 400*time.Millisecond, c.retryDelay(3, fmt.Errorf("dial")))
	assert.Equal(t, 2*time.Second, c.retryDelay(1, &retryableStatus{code: 429, retryAfter: "2"}))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, &retryableStatus{code: 503}))
	assert.Equal(t, 200*time.Millisecond, c.retryDelay(2, &retryableStatus{code: 503, retryAfter: "soon"}))
	past := time.Now().Add(-time.Hour).UTC().Format(http.TimeFormat)
	assert.Equal(t, time.Duration(0), c.retryDelay(1, &retryableStatus{code: 429, retryAfter: past}))
}

func TestPublishCreatesAndPublishesContainer(t *testing.T) {
	var container url.Values
	var calls atomic.Int32
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_ = r.ParseForm()
		switch r.URL.Path {
		case "/v1.0/42/threads":
			container = r.PostForm
			fmt.Fprint(w, `{"id":"c-1"}`)
		case "/v1.0/42/threads_publish":
			assert.Equal(t, "c-1", r.PostForm.Get("creation_id"))
			fmt.Fprint(w, `{"id":"post-9"}`)
		default:
			http.NotFound(w, r)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts, config.ThreadsConfig{AccessToken: "tok", UserID: "42"})
	res, err := c.Publish(context.Background(), strings.Repeat("あ", 600))

	require.NoError(t, err)
	assert.Equal(t, "post-9", res.PostID)
	assert.Equal(t, "c-1", res.ContainerID)
	assert.Equal(t, "TEXT", container.Get("media_type"))
	assert.Equal(t, "tok", container.Get("access_token"))
	assert.Equal(t, MaxPostChars, utf8.RuneCountInString(container.Get("text")))
	assert.Equal(t, int32(2), calls.Load())
}

func TestPublishRequiresToken(t *testing.T) {
	c := NewHTTPClient(config.ThreadsConfig{})
	_, err := c.Publish(context.Background(), "hello?")
	assert.ErrorIs(t, err, ErrNotAuthorized)
	_, err = c.Insights(context.Background(), "p")
	assert.ErrorIs(t, err, ErrNotAuthorized)
}

func TestExchangeCode(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/oauth/access_token":
			_ = r.ParseForm()
			assert.Equal(t, "authorization_code", r.PostForm.Get("grant_type"))
			assert.Equal(t, "the-code", r.PostForm.Get("code"))
			fmt.Fprint(w, `{"access_token":"short","user_id":12345}`)
		case "/access_token":
			assert.Equal(t, "th_exchange_token", r.URL.Query().Get("grant_type"))
			assert.Equal(t, "short", r.URL.Query().Get("access_token"))
			fmt.Fprint(w, `{"access_token":"long","expires_in":5184000}`)
		}
	}))
	defer ts.Close()

	c := newTestClient(ts, config.ThreadsConfig{AppID: "app", AppSecret: "secret", RedirectURI: "https://localhost/cb"})
	tok, err := c.ExchangeCode(context.Background(), "the-code")

	require.NoError(t, err)
	assert.Equal(t, Token{AccessToken: "long", UserID: "12345", LongLived: true}, tok)
}

func TestExchangeCodeKeepsShortTokenWhenUpgradeFails(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/oauth/access_token" {
			fmt.Fprint(w, `{"access_token":"short","user_id":"7"}`)
			return
		}
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer ts.Close()

	tok, err := newTestClient(ts, config.ThreadsConfig{}).ExchangeCode(context.Background(), "c")

	require.NoError(t, err)
	assert.Equal(t, Token{AccessToken: "short", UserID: "7"}, tok)
}

func TestAuthorizationURL(t *testing.T) {
	c := NewHTTPClient(config.ThreadsConfig{AppID: "app", RedirectURI: "https://localhost/cb"})
	u, err := url.Parse(c.AuthorizationURL())
	require.NoError(t, err)
	assert.Equal(t, "threads.net", u.Host)
	q := u.Query()
	assert.Equal(t, "app", q.Get("client_id"))
	assert.Equal(t, "https://localhost/cb", q.Get("redirect_uri"))
	assert.Equal(t, "code", q.Get("response_type"))
	assert.Contains(t, q.Get("scope"), "threads_content_publish")
}

func TestEngagement(t *testing.T) {
	assert.Equal(t, 10, Insights{Views: 100, Likes: 4, Replies: 3, Reposts: 2, Quotes: 1}.Engagement())
}
