package apiclient_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

func TestRefreshSurvivesCallerCancellation(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var refreshCtxErr error

	r := apiclient.NewRefresher(func(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
		close(started)
		<-release
		refreshCtxErr = ctx.Err()
		return &oauth2.Token{AccessToken: "fresh"}, nil
	}, nil)

	ctx, cancel := context.WithCancel(context.Background())
	type result struct {
		token *oauth2.Token
		err   error
	}
	done := make(chan result, 1)
	go func() {
		tok, err := r.Await(ctx, &oauth2.Token{AccessToken: "stale"})
		done <- result{tok, err}
	}()

	<-started
	require.True(t, r.Refreshing())
	cancel()
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.Equal(t, "fresh", res.token.AccessToken)
	require.NoError(t, refreshCtxErr)
	require.False(t, r.Refreshing())
}

func TestQueuedCallerStopsWaitingOnCancel(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	r := apiclient.NewRefresher(func(context.Context, *oauth2.Token) (*oauth2.Token, error) {
		close(started)
		<-release
		return &oauth2.Token{AccessToken: "fresh"}, nil
	}, nil)

	first := make(chan error, 1)
	go func() {
		_, err := r.Await(context.Background(), nil)
		first <- err
	}()
	<-started

	ctx, cancel := context.WithCancel(context.Background())
	queued := make(chan error, 1)
	go func() {
		_, err := r.Await(ctx, nil)
		queued <- err
	}()
	waitForQueue(r, 1)
	require.Equal(t, 1, r.Waiting())

	cancel()
	require.ErrorIs(t, <-queued, context.Canceled)

	close(release)
	require.NoError(t, <-first)
	require.Equal(t, 0, r.Waiting())
}

func TestRefreshWithoutTokenFails(t *testing.T) {
	m := metrics.New(nil)
	var failures []error
	r := apiclient.NewRefresher(
		func(context.Context, *oauth2.Token) (*oauth2.Token, error) {
			return &oauth2.Token{}, nil
		},
		func(_ context.Context, err error) { failures = append(failures, err) },
		apiclient.WithRefreshMetrics(m),
	)

	_, err := r.Await(context.Background(), nil)
	require.ErrorIs(t, err, apiclient.ErrEmptyRefresh)
	require.Len(t, failures, 1)
	require.Equal(t, 1.0, testutil.ToFloat64(m.RefreshTotal.WithLabelValues("failure")))
}

func TestRefreshTimeout(t *testing.T) {
	r := apiclient.NewRefresher(func(ctx context.Context, _ *oauth2.Token) (*oauth2.Token, error) {
		<-ctx.Done()
		return nil, ctx.Err()
	}, nil, apiclient.WithRefreshTimeout(20*time.Millisecond))

	_, err := r.Await(context.Background(), nil)
	require.True(t, errors.Is(err, context.DeadlineExceeded))
	require.False(t, r.Refreshing())
}

func TestSequentialRefreshesAreIndependent(t *testing.T) {
	calls := 0
	r := apiclient.NewRefresher(func(context.Context, *oauth2.Token) (*oauth2.Token, error) {
		calls++
		return &oauth2.Token{AccessToken: "t"}, nil
	}, nil)

	for range 3 {
		tok, err := r.Await(context.Background(), nil)
		require.NoError(t, err)
		require.Equal(t, "t", tok.AccessToken)
	}
	require.Equal(t, 3, calls)
}
