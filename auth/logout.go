package auth

import (
	"context"
	"net/url"
	"sync"
	"time"

	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/rs/zerolog/log"
)

const (
	DefaultLogoutDelay = 2 * time.Second
	LoginPage          = "/login"
	SessionExpiredCode = "SessionExpired"
	sessionExpiredMsg  = "Tu sesión ha expirado. Inicia sesión nuevamente."
)

// AfterFunc schedules f after d and returns a stop function, like time.AfterFunc
type AfterFunc func(d time.Duration, f func()) (stop func() bool)

func realAfterFunc(d time.Duration, f func()) func() bool {
	return time.AfterFunc(d, f).Stop
}

// Options control a forced logout
type Options struct {
	ShowToast   bool
	Delay       time.Duration // zero means the configured default
	Immediate   bool
	CallbackURL string
}

// Logout is the single place an expired session is torn down
type Logout struct {
	signOut      func(ctx context.Context, sessionID string) error
	notifier     notify.Notifier
	afterFunc    AfterFunc
	defaultDelay time.Duration
	metrics      *metrics.Metrics
	signedOut    []func(sessionID string)

	mu      sync.Mutex
	pending map[string]func() bool
}

type LogoutOption func(*Logout)

// WithAfterFunc replaces the timer (primarily for testing)
func WithAfterFunc(fn AfterFunc) LogoutOption {
	return func(l *Logout) {
		l.afterFunc = fn
	}
}

func WithDefaultDelay(d time.Duration) LogoutOption {
	return func(l *Logout) {
		if d > 0 {
			l.defaultDelay = d
		}
	}
}

func WithLogoutMetrics(m *metrics.Metrics) LogoutOption {
	return func(l *Logout) {
		l.metrics = m
	}
}

// WithSignedOut registers fn to run after every forced sign-out, e.g. to drop per-session state
func WithSignedOut(fn func(sessionID string)) LogoutOption {
	return func(l *Logout) {
		l.signedOut = append(l.signedOut, fn)
	}
}

// NewLogout creates the logout handler. notifier may be nil.
func NewLogout(provider *Provider, notifier notify.Notifier, options ...LogoutOption) *Logout {
	l := &Logout{
		signOut:      provider.SignOut,
		notifier:     notifier,
		afterFunc:    realAfterFunc,
		defaultDelay: DefaultLogoutDelay,
		pending:      make(map[string]func() bool),
	}
	for _, opt := range options {
		opt(l)
	}
	return l
}

// DefaultOptions shows the toast and waits the configured delay
func (l *Logout) DefaultOptions(callbackURL string) Options {
	return Options{ShowToast: true, Delay: l.defaultDelay, CallbackURL: callbackURL}
}

// HandleJWTExpired notifies the user and signs the session out, now or after the delay.
// Repeated calls for a session with a logout already scheduled are ignored.
// It returns the login URL the browser should be sent to.
func (l *Logout) HandleJWTExpired(ctx context.Context, sessionID string, opts Options) string {
	loginURL := LoginURL(opts.CallbackURL, SessionExpiredCode)
	if sessionID == "" {
		return loginURL
	}

	l.mu.Lock()
	if _, scheduled := l.pending[sessionID]; scheduled {
		l.mu.Unlock()
		return loginURL
	}
	// Reserve the slot before releasing the lock so concurrent callers see it
	l.pending[sessionID] = nil
	l.mu.Unlock()

	if l.metrics != nil {
		l.metrics.ForcedLogoutsTotal.Inc()
	}
	log.Info().Str("session", sessionID).Bool("immediate", opts.Immediate).Msg("session expired, signing out")

	if opts.ShowToast && l.notifier != nil {
		l.notifier.Push(sessionID, notify.Toast{Level: notify.LevelWarning, Message: sessionExpiredMsg})
	}

	ctx = context.WithoutCancel(ctx)
	if opts.Immediate {
		l.finish(ctx, sessionID)
		return loginURL
	}

	delay := opts.Delay
	if delay <= 0 {
		delay = l.defaultDelay
	}
	stop := l.afterFunc(delay, func() { l.finish(ctx, sessionID) })

	l.mu.Lock()
	if _, still := l.pending[sessionID]; still {
		l.pending[sessionID] = stop
	}
	l.mu.Unlock()
	return loginURL
}

// Pending reports whether a logout is scheduled for the session
func (l *Logout) Pending(sessionID string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	_, ok := l.pending[sessionID]
	return ok
}

// Cancel stops a scheduled logout, e.g. when the user signs out manually first
func (l *Logout) Cancel(sessionID string) {
	l.mu.Lock()
	stop := l.pending[sessionID]
	delete(l.pending, sessionID)
	l.mu.Unlock()
	if stop != nil {
		stop()
	}
}

func (l *Logout) finish(ctx context.Context, sessionID string) {
	if err := l.signOut(ctx, sessionID); err != nil {
		log.Err(err).Str("session", sessionID).Msg("forced sign out failed")
	}
	for _, fn := range l.signedOut {
		fn(sessionID)
	}
	l.mu.Lock()
	delete(l.pending, sessionID)
	l.mu.Unlock()
}

// LoginURL builds the login page URL carrying the callback and an error code
func LoginURL(callbackURL, errorCode string) string {
	q := url.Values{}
	if cb := SafeCallbackURL(callbackURL, ""); cb != "" {
		q.Set("callbackUrl", cb)
	}
	if errorCode != "" {
		q.Set("error", errorCode)
	}
	if len(q) == 0 {
		return LoginPage
	}
	return LoginPage + "?" + q.Encode()
}
