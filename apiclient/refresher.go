package apiclient

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// DefaultRefreshTimeout bounds a single session refresh
const DefaultRefreshTimeout = 10 * time.Second

// ErrEmptyRefresh is returned when a refresh succeeds without yielding an access token
var ErrEmptyRefresh = errors.New("refresh returned no access token")

// RefreshFunc obtains a new token. stale is the token the backend just rejected.
type RefreshFunc func(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error)

// FailureFunc is invoked once per failed refresh, after every waiter has been released
type FailureFunc func(ctx context.Context, err error)

type refreshResult struct {
	token *oauth2.Token
	err   error
}

// Refresher serialises session refreshes. While one refresh is running every other caller
// is queued and receives that refresh's outcome.
type Refresher struct {
	refresh   RefreshFunc
	onFailure FailureFunc
	timeout   time.Duration
	metrics   *metrics.Metrics

	mu         sync.Mutex
	refreshing bool
	queue      []chan refreshResult
}

// RefresherOption configures a Refresher
type RefresherOption func(*Refresher)

// WithRefreshTimeout overrides DefaultRefreshTimeout
func WithRefreshTimeout(d time.Duration) RefresherOption {
	return func(r *Refresher) {
		if d > 0 {
			r.timeout = d
		}
	}
}

// WithRefreshMetrics records refresh outcomes
func WithRefreshMetrics(m *metrics.Metrics) RefresherOption {
	return func(r *Refresher) {
		r.metrics = m
	}
}

// NewRefresher creates an idle Refresher. onFailure may be nil.
func NewRefresher(refresh RefreshFunc, onFailure FailureFunc, opts ...RefresherOption) *Refresher {
	r := &Refresher{
		refresh:   refresh,
		onFailure: onFailure,
		timeout:   DefaultRefreshTimeout,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Refreshing reports whether a refresh is in flight
func (r *Refresher) Refreshing() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.refreshing
}

// Waiting returns the number of callers queued behind the in-flight refresh
func (r *Refresher) Waiting() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.queue)
}

// Await returns a fresh token. The first caller runs the refresh, later callers wait for it.
// A queued caller whose ctx ends stops waiting but does not cancel the refresh.
func (r *Refresher) Await(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
	r.mu.Lock()
	if r.refreshing {
		ch := make(chan refreshResult, 1)
		r.queue = append(r.queue, ch)
		r.mu.Unlock()

		select {
		case res := <-ch:
			return res.token, res.err
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	r.refreshing = true
	r.mu.Unlock()

	token, err := r.run(ctx, stale)

	r.mu.Lock()
	queue := r.queue
	r.queue = nil
	r.refreshing = false
	r.mu.Unlock()

	for _, ch := range queue {
		ch <- refreshResult{token: token, err: err}
	}

	if err != nil {
		r.record("failure")
		log.Warn().Err(err).Int("waiters", len(queue)).Msg("session refresh failed")
		if r.onFailure != nil {
			r.onFailure(context.WithoutCancel(ctx), err)
		}
		return nil, err
	}
	r.record("success")
	return token, nil
}

func (r *Refresher) run(ctx context.Context, stale *oauth2.Token) (token *oauth2.Token, err error) {
	if r.refresh == nil {
		return nil, fmt.Errorf("[Refresher run] no refresh function configured")
	}

	refreshCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	defer func() {
		if rec := recover(); rec != nil {
			token, err = nil, fmt.Errorf("[Refresher run] refresh panicked: %v", rec)
		}
	}()

	token, err = r.refresh(refreshCtx, stale)
	if err != nil {
		return nil, fmt.Errorf("[Refresher run] %w", err)
	}
	if token == nil || token.AccessToken == "" {
		return nil, ErrEmptyRefresh
	}
	return token, nil
}

func (r *Refresher) record(result string) {
	if r.metrics != nil {
		r.metrics.RefreshTotal.WithLabelValues(result).Inc()
	}
}
