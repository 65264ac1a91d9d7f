// Package threads is a small client for the Threads Graph API: OAuth, publishing, and insights.
package threads

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/failsafe-go/failsafe-go"
	"github.com/failsafe-go/failsafe-go/retrypolicy"
	"golang.org/x/time/rate"

	"threadgenius/internal/config"
	"threadgenius/internal/metrics"
	"threadgenius/internal/util"
)

// MaxPostChars is the Threads limit on a text post.
const MaxPostChars = 500

// ErrNotAuthorized is returned by calls that need an access token when none is set.
var ErrNotAuthorized = errors.New("threads: not authorized; run `threadgenius auth` first")

var scopes = []string{"threads_basic", "threads_content_publish", "threads_manage_insights", "threads_manage_replies"}

// PublishResult identifies a published post.
type PublishResult struct {
	PostID      string    `json:"post_id"`
	ContainerID string    `json:"container_id"`
	PublishedAt time.Time `json:"published_at"`
}

// Insights are the lifetime counters of one post.
type Insights struct {
	Views   int `json:"views"`
	Likes   int `json:"likes"`
	Replies int `json:"replies"`
	Reposts int `json:"reposts"`
	Quotes  int `json:"quotes"`
}

// Engagement is the sum of all interactions except views.
func (i Insights) Engagement() int { return i.Likes + i.Replies + i.Reposts + i.Quotes }

// InsightsAPI reads post metrics.
type InsightsAPI interface {
	Insights(ctx context.Context, postID string) (Insights, error)
}

// API defines the Threads calls we use.
type API interface {
	InsightsAPI
	Publish(ctx context.Context, text string) (PublishResult, error)
}

// Token is the result of an authorization code exchange.
type Token struct {
	AccessToken string
	UserID      string
	LongLived   bool
}

// HTTPClient talks to the Threads Graph API with OAuth bearer tokens.
type HTTPClient struct {
	baseURL     string
	authURL     string
	appID       string
	appSecret   string
	redirectURI string
	accessToken string
	userID      string
	httpClient  *http.Client
	limiter     *rate.Limiter
	maxAttempts int
	baseBackoff time.Duration
}

func NewHTTPClient(cfg config.ThreadsConfig) *HTTPClient {
	return &HTTPClient{
		baseURL:     "https://graph.threads.net",
		authURL:     "https://threads.net/oauth/authorize",
		appID:       cfg.AppID,
		appSecret:   cfg.AppSecret,
		redirectURI: cfg.RedirectURI,
		accessToken: cfg.AccessToken,
		userID:      cfg.UserID,
		httpClient:  &http.Client{Timeout: 15 * time.Second},
		limiter:     newDefaultLimiter(),
		maxAttempts: getEnvInt("THREADS_API_MAX_ATTEMPTS", 4),
		baseBackoff: time.Duration(getEnvInt("THREADS_API_BASE_BACKOFF_MS", 500)) * time.Millisecond,
	}
}

// AuthorizationURL is the page the user visits to grant access.
func (c *HTTPClient) AuthorizationURL() string {
	q := url.Values{}
	q.Set("client_id", c.appID)
	q.Set("redirect_uri", c.redirectURI)
	q.Set("scope", strings.Join(scopes, ","))
	q.Set("response_type", "code")
	return c.authURL + "?" + q.Encode()
}

// ExchangeCode trades an authorization code for a short-lived token, then tries to upgrade it
// to a long-lived one. A failed upgrade keeps the short-lived token.
func (c *HTTPClient) ExchangeCode(ctx context.Context, code string) (Token, error) {
	if strings.TrimSpace(code) == "" {
		return Token{}, errors.New("empty authorization code")
	}
	form := url.Values{}
	form.Set("client_id", c.appID)
	form.Set("client_secret", c.appSecret)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", c.redirectURI)
	form.Set("code", code)

	var short struct {
		AccessToken string          `json:"access_token"`
		UserID      json.RawMessage `json:"user_id"`
	}
	if err := c.call(ctx, http.MethodPost, "/oauth/access_token", form, &short); err != nil {
		return Token{}, fmt.Errorf("exchange code: %w", err)
	}
	tok := Token{AccessToken: short.AccessToken, UserID: strings.Trim(string(short.UserID), `"`)}

	q := url.Values{}
	q.Set("grant_type", "th_exchange_token")
	q.Set("client_secret", c.appSecret)
	q.Set("access_token", tok.AccessToken)
	var long struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.call(ctx, http.MethodGet, "/access_token", q, &long); err == nil && long.AccessToken != "" {
		tok.AccessToken = long.AccessToken
		tok.LongLived = true
	}

	c.accessToken = tok.AccessToken
	c.userID = tok.UserID
	return tok, nil
}

// Publish creates a TEXT container and publishes it. Text beyond MaxPostChars is cut.
func (c *HTTPClient) Publish(ctx context.Context, text string) (PublishResult, error) {
	var out PublishResult
	if c.accessToken == "" || c.userID == "" {
		return out, ErrNotAuthorized
	}
	if strings.TrimSpace(text) == "" {
		return out, errors.New("empty post text")
	}
	form := url.Values{}
	form.Set("media_type", "TEXT")
	form.Set("text", util.Truncate(text, MaxPostChars))
	form.Set("access_token", c.accessToken)
	var container struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1.0/"+url.PathEscape(c.userID)+"/threads", form, &container); err != nil {
		return out, fmt.Errorf("create container: %w", err)
	}

	form = url.Values{}
	form.Set("creation_id", container.ID)
	form.Set("access_token", c.accessToken)
	var published struct {
		ID string `json:"id"`
	}
	if err := c.call(ctx, http.MethodPost, "/v1.0/"+url.PathEscape(c.userID)+"/threads_publish", form, &published); err != nil {
		return out, fmt.Errorf("publish container %s: %w", container.ID, err)
	}
	return PublishResult{PostID: published.ID, ContainerID: container.ID, PublishedAt: time.Now().UTC()}, nil
}

// Insights fetches lifetime metrics for a published post.
func (c *HTTPClient) Insights(ctx context.Context, postID string) (Insights, error) {
	var out Insights
	if c.accessToken == "" {
		return out, ErrNotAuthorized
	}
	q := url.Values{}
	q.Set("metric", "views,likes,replies,reposts,quotes")
	q.Set("access_token", c.accessToken)
	var raw struct {
		Data []struct {
			Name   string `json:"name"`
			Values []struct {
				Value int `json:"value"`
			} `json:"values"`
			TotalValue struct {
				Value int `json:"value"`
			} `json:"total_value"`
		} `json:"data"`
	}
	if err := c.call(ctx, http.MethodGet, "/v1.0/"+url.PathEscape(postID)+"/insights", q, &raw); err != nil {
		return out, err
	}
	for _, d := range raw.Data {
		v := d.TotalValue.Value
		if len(d.Values) > 0 {
			v = d.Values[0].Value
		}
		switch d.Name {
		case "views":
			out.Views = v
		case "likes":
			out.Likes = v
		case "replies":
			out.Replies = v
		case "reposts":
			out.Reposts = v
		case "quotes":
			out.Quotes = v
		}
	}
	return out, nil
}

// call sends params as a form body (POST) or query string (GET) and decodes the JSON reply into dst.
func (c *HTTPClient) call(ctx context.Context, method, path string, params url.Values, dst any) error {
	var (
		req *http.Request
		err error
	)
	if method == http.MethodGet {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path+"?"+params.Encode(), nil)
	} else {
		req, err = http.NewRequestWithContext(ctx, method, c.baseURL+path, strings.NewReader(params.Encode()))
		if err == nil {
			req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		}
	}
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	resp, err := c.doWithRetry(ctx, req, path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("threads api status %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}
	return json.NewDecoder(resp.Body).Decode(dst)
}

// retryableStatus is a 429 or 5xx reply; the body is already closed.
type retryableStatus struct {
	code       int
	retryAfter string
}

func (e *retryableStatus) Error() string { return fmt.Sprintf("threads api status %d", e.code) }

func (c *HTTPClient) doWithRetry(ctx context.Context, req *http.Request, endpoint string) (*http.Response, error) {
	retry := retrypolicy.NewBuilder[*http.Response]().
		WithMaxAttempts(max(c.maxAttempts, 1)).
		WithDelayFunc(func(exec failsafe.ExecutionAttempt[*http.Response]) time.Duration {
			return c.retryDelay(exec.Attempts(), exec.LastError())
		}).
		WithJitterFactor(0.2).
		HandleIf(func(_ *http.Response, err error) bool {
			return err != nil && ctx.Err() == nil
		}).
		ReturnLastFailure().
		OnRetry(func(e failsafe.ExecutionEvent[*http.Response]) {
			metrics.IncAPIRetry(endpoint)
		}).
		Build()

	resp, err := failsafe.With(retry).WithContext(ctx).Get(func() (*http.Response, error) {
		r := req.Clone(ctx)
		if req.GetBody != nil {
			body, err := req.GetBody()
			if err != nil {
				return nil, err
			}
			r.Body = body
		}
		resp, err := c.httpClient.Do(r)
		if err != nil {
			return nil, err
		}
		if resp.StatusCode == http.StatusTooManyRequests || (resp.StatusCode >= 500 && resp.StatusCode <= 599) {
			_ = resp.Body.Close()
			return nil, &retryableStatus{code: resp.StatusCode, retryAfter: resp.Header.Get("Retry-After")}
		}
		return resp, nil
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("request failed after %d attempts: %w", max(c.maxAttempts, 1), err)
	}
	return resp, nil
}

// retryDelay doubles baseBackoff per attempt unless the server sent a Retry-After.
func (c *HTTPClient) retryDelay(attempts int, lastErr error) time.Duration {
	backoff := c.baseBackoff << max(attempts-1, 0)
	var st *retryableStatus
	if errors.As(lastErr, &st) {
		return retryAfter(st.retryAfter, backoff)
	}
	return backoff
}

// retryAfter reads a Retry-After header in seconds or HTTP-date form.
func retryAfter(header string, fallback time.Duration) time.Duration {
	if header == "" {
		return fallback
	}
	if secs, err := strconv.Atoi(header); err == nil && secs >= 0 {
		return time.Duration(secs) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		if d := time.Until(t); d > 0 {
			return d
		}
		return 0
	}
	return fallback
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	if i, err := strconv.Atoi(v); err == nil && i > 0 {
		return i
	}
	return def
}
