// Package apiclient is the HTTP client for the Aqua Control REST backend. It attaches the
// session bearer token, refreshes an expired session once per burst of 401s and classifies
// every failure into an *Error.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	DefaultTimeout = 10 * time.Second
	maxBodyBytes   = 4 << 20
)

// TokenSource reads the current session token. A nil token means the caller is anonymous.
type TokenSource interface {
	SessionToken(ctx context.Context) (*oauth2.Token, error)
}

// TokenSourceFunc adapts a function to TokenSource
type TokenSourceFunc func(ctx context.Context) (*oauth2.Token, error)

func (f TokenSourceFunc) SessionToken(ctx context.Context) (*oauth2.Token, error) {
	return f(ctx)
}

// NotifyFunc is told about every failed call except expired sessions
type NotifyFunc func(ctx context.Context, err *Error)

// ExpiredFunc is told about an expired session the refresher did not handle
type ExpiredFunc func(ctx context.Context, err *Error)

// Request describes one backend call. Body is JSON encoded when non-nil.
// Token, when set, is sent instead of the session token.
type Request struct {
	Method string
	Path   string
	Query  url.Values
	Body   any
	Token  *oauth2.Token
}

// Client calls the backend on behalf of one session
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	refresher  *Refresher
	notify     NotifyFunc
	onExpired  ExpiredFunc
	metrics    *metrics.Metrics
}

// Option configures a Client
type Option func(*Client)

func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

func WithTokenSource(ts TokenSource) Option {
	return func(c *Client) { c.tokens = ts }
}

func WithRefresher(r *Refresher) Option {
	return func(c *Client) { c.refresher = r }
}

func WithNotifier(fn NotifyFunc) Option {
	return func(c *Client) { c.notify = fn }
}

func WithExpiredHandler(fn ExpiredFunc) Option {
	return func(c *Client) { c.onExpired = fn }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(c *Client) { c.metrics = m }
}

// New creates a client for the backend rooted at baseURL
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend root the client was built with
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do sends req and decodes a 2xx body into out (which may be nil).
// Any failure is returned as an *Error.
func (c *Client) Do(ctx context.Context, req Request, out any) error {
	payload, err := encodeBody(req.Body)
	if err != nil {
		return c.fail(ctx, req, &Error{Kind: KindUnknown, Message: msgUnknown, Err: err})
	}

	token := req.Token
	if token == nil {
		token = c.currentToken(ctx)
	}
	status, body, err := c.send(ctx, req, payload, token)
	if err != nil {
		return c.fail(ctx, req, transportError(ctx, err))
	}
	if success(status) {
		return c.decode(ctx, req, status, body, out)
	}

	apiErr := classify(status, body)
	if apiErr.Kind != KindJWTExpired {
		return c.fail(ctx, req, apiErr)
	}
	if c.refresher == nil {
		c.expired(ctx, apiErr)
		return c.fail(ctx, req, apiErr)
	}

	fresh, err := c.refresher.Await(ctx, token)
	if err != nil {
		apiErr.Err = err
		return c.fail(ctx, req, apiErr)
	}

	// Single retry with the refreshed token
	status, body, err = c.send(ctx, req, payload, fresh)
	if err != nil {
		return c.fail(ctx, req, transportError(ctx, err))
	}
	if success(status) {
		return c.decode(ctx, req, status, body, out)
	}
	retryErr := classify(status, body)
	if retryErr.Kind == KindJWTExpired {
		c.expired(ctx, retryErr)
	}
	return c.fail(ctx, req, retryErr)
}

func (c *Client) currentToken(ctx context.Context) *oauth2.Token {
	if c.tokens == nil {
		return nil
	}
	token, err := c.tokens.SessionToken(ctx)
	if err != nil {
		log.Debug().Err(err).Msg("no session token, sending anonymous request")
		return nil
	}
	return token
}

func (c *Client) send(ctx context.Context, req Request, payload []byte, token *oauth2.Token) (int, []byte, error) {
	target := c.baseURL + "/" + strings.TrimPrefix(req.Path, "/")
	if len(req.Query) > 0 {
		target += "?" + req.Query.Encode()
	}

	var body io.Reader
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	httpReq, err := http.NewRequestWithContext(ctx, req.Method, target, body)
	if err != nil {
		return 0, nil, fmt.Errorf("[Client send] build request: %w", err)
	}
	httpReq.Header.Set("Accept", "application/json")
	if payload != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if token != nil && token.AccessToken != "" {
		token.SetAuthHeader(httpReq)
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return 0, nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return 0, nil, fmt.Errorf("[Client send] read body: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (c *Client) decode(ctx context.Context, req Request, status int, body []byte, out any) error {
	c.record(req, "ok")
	if out == nil || len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, out); err != nil {
		return c.fail(ctx, req, &Error{Kind: KindUnknown, Status: status, Message: msgUnknown, Err: err})
	}
	return nil
}

func (c *Client) fail(ctx context.Context, req Request, e *Error) error {
	c.record(req, string(e.Kind))
	log.Debug().
		Str("method", req.Method).
		Str("path", req.Path).
		Str("kind", string(e.Kind)).
		Int("status", e.Status).
		Msg(e.Message)
	if e.Kind != KindJWTExpired && e.Kind != KindCanceled && c.notify != nil {
		c.notify(ctx, e)
	}
	return e
}

func (c *Client) expired(ctx context.Context, e *Error) {
	if c.onExpired != nil {
		c.onExpired(context.WithoutCancel(ctx), e)
	}
}

func (c *Client) record(req Request, outcome string) {
	if c.metrics != nil {
		c.metrics.BackendRequestsTotal.WithLabelValues(req.Method, outcome).Inc()
	}
}

func encodeBody(body any) ([]byte, error) {
	if body == nil {
		return nil, nil
	}
	data, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("[apiclient encodeBody] %w", err)
	}
	return data, nil
}

func success(status int) bool {
	return status >= 200 && status < 300
}

// Get fetches path and decodes the envelope
func Get[T any](ctx context.Context, c *Client, path string, query url.Values) (Envelope[T], error) {
	var env Envelope[T]
	err := c.Do(ctx, Request{Method: http.MethodGet, Path: path, Query: query}, &env)
	return env, err
}

// Post sends body to path and decodes the envelope
func Post[T any](ctx context.Context, c *Client, path string, body any) (Envelope[T], error) {
	var env Envelope[T]
	err := c.Do(ctx, Request{Method: http.MethodPost, Path: path, Body: body}, &env)
	return env, err
}

// Put sends body to path and decodes the envelope
func Put[T any](ctx context.Context, c *Client, path string, body any) (Envelope[T], error) {
	var env Envelope[T]
	err := c.Do(ctx, Request{Method: http.MethodPut, Path: path, Body: body}, &env)
	return env, err
}

// Delete removes the resource at path
func Delete(ctx context.Context, c *Client, path string) error {
	return c.Do(ctx, Request{Method: http.MethodDelete, Path: path}, nil)
}
