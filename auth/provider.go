package auth

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/aqua-control/apiclient"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

const (
	LoginPath          = "/auth/login"
	DefaultRefreshPath = "/auth/refresh"
	DefaultMaxAge      = 24 * time.Hour
)

type credentials struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type tokenPayload struct {
	Token string         `json:"token"`
	User  *sessions.User `json:"user,omitempty"`
}

// tokenResponse accepts { token, user } either bare or inside the data envelope
type tokenResponse struct {
	tokenPayload
	Data *tokenPayload `json:"data,omitempty"`
}

func (r tokenResponse) payload() tokenPayload {
	if r.Token == "" && r.Data != nil {
		return *r.Data
	}
	return r.tokenPayload
}

// Provider signs users in against the backend and owns their sessions
type Provider struct {
	client      *apiclient.Client
	repo        sessions.Repo
	refreshPath string
	maxAge      time.Duration
	nowTime     func() time.Time
	metrics     *metrics.Metrics
}

// ProviderOption defines a function type to modify the Provider instance.
type ProviderOption func(*Provider)

// WithNowTime sets the now time function (primarily for testing)
func WithNowTime(nowFunc func() time.Time) ProviderOption {
	return func(p *Provider) {
		p.nowTime = nowFunc
	}
}

// WithRefreshPath sets the backend refresh endpoint. An empty path disables refresh.
func WithRefreshPath(path string) ProviderOption {
	return func(p *Provider) {
		p.refreshPath = path
	}
}

func WithMaxAge(d time.Duration) ProviderOption {
	return func(p *Provider) {
		if d > 0 {
			p.maxAge = d
		}
	}
}

func WithMetrics(m *metrics.Metrics) ProviderOption {
	return func(p *Provider) {
		p.metrics = m
	}
}

// NewProvider creates a Provider. client must be an anonymous client (no session token source).
func NewProvider(client *apiclient.Client, repo sessions.Repo, options ...ProviderOption) (*Provider, error) {
	if client == nil {
		return nil, errors.New("[NewProvider] backend client is required")
	}
	if repo == nil {
		return nil, errors.New("[NewProvider] session repo is required")
	}

	p := &Provider{
		client:      client,
		repo:        repo,
		refreshPath: DefaultRefreshPath,
		maxAge:      DefaultMaxAge,
		nowTime:     time.Now,
	}
	for _, opt := range options {
		opt(p)
	}
	return p, nil
}

// SignIn exchanges credentials for a backend token and stores a new session
func (p *Provider) SignIn(ctx context.Context, email, password string) (*sessions.Session, error) {
	if err := ValidateCredentials(email, password); err != nil {
		return nil, err
	}

	var resp tokenResponse
	req := apiclient.Request{
		Method: http.MethodPost,
		Path:   LoginPath,
		Body:   credentials{Email: strings.TrimSpace(email), Password: password},
	}
	if err := p.client.Do(ctx, req, &resp); err != nil {
		return nil, signInError(err)
	}

	payload := resp.payload()
	if payload.Token == "" || payload.User == nil {
		return nil, errors.New("[Provider SignIn] login response is missing token or user")
	}

	now := p.nowTime()
	session := &sessions.Session{
		ID:        uuid.New().String(),
		Token:     sessions.TokenFromJWT(payload.Token),
		User:      payload.User,
		CreatedAt: now,
		ExpiresAt: now.Add(p.maxAge),
	}
	if err := p.repo.Upsert(ctx, session); err != nil {
		return nil, errors.Wrap(err, "[Provider SignIn] failed to store session")
	}
	if p.metrics != nil {
		p.metrics.ActiveSessions.Inc()
	}

	log.Info().Str("user", payload.User.Email).Msg("user signed in")
	return session, nil
}

// Current returns the stored session
func (p *Provider) Current(ctx context.Context, sessionID string) (*sessions.Session, error) {
	if sessionID == "" {
		return nil, apperrors.ErrSessionNotFound
	}
	s, err := p.repo.Get(ctx, sessionID)
	if err != nil {
		return nil, errors.Wrap(err, "[Provider Current]")
	}
	return s, nil
}

// Refresh returns a token newer than stale. If another request already refreshed the session
// the stored token is returned, otherwise the backend refresh endpoint is called.
func (p *Provider) Refresh(ctx context.Context, sessionID string, stale *oauth2.Token) (*oauth2.Token, error) {
	s, err := p.Current(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("[Provider Refresh] %w: %w", apperrors.ErrRefreshFailed, err)
	}
	if p.usable(s.Token) && (stale == nil || s.Token.AccessToken != stale.AccessToken) {
		return s.Token, nil
	}
	if p.refreshPath == "" {
		return nil, RefreshDisabledErr
	}

	var resp tokenResponse
	req := apiclient.Request{
		Method: http.MethodPost,
		Path:   p.refreshPath,
		Body:   map[string]string{"token": s.AccessToken()},
		Token:  s.Token,
	}
	if err := p.client.Do(ctx, req, &resp); err != nil {
		return nil, fmt.Errorf("[Provider Refresh] %w: %w", apperrors.ErrRefreshFailed, err)
	}

	payload := resp.payload()
	if payload.Token == "" {
		return nil, fmt.Errorf("[Provider Refresh] %w: backend returned no token", apperrors.ErrRefreshFailed)
	}
	s.Token = sessions.TokenFromJWT(payload.Token)
	if payload.User != nil {
		s.User = payload.User
	}
	if err := p.repo.Upsert(ctx, s); err != nil {
		return nil, errors.Wrap(err, "[Provider Refresh] failed to store session")
	}

	log.Debug().Str("session", sessionID).Time("expiry", s.Token.Expiry).Msg("session token refreshed")
	return s.Token, nil
}

// SignOut destroys the session. Unknown sessions are not an error.
func (p *Provider) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	_, getErr := p.repo.Get(ctx, sessionID)
	if err := p.repo.Delete(ctx, sessionID); err != nil {
		return errors.Wrap(err, "[Provider SignOut] failed to delete session")
	}
	if getErr == nil && p.metrics != nil {
		p.metrics.ActiveSessions.Dec()
	}
	return nil
}

// TokenSource reads the token of one session for an apiclient.Client
func (p *Provider) TokenSource(sessionID string) apiclient.TokenSource {
	return apiclient.TokenSourceFunc(func(ctx context.Context) (*oauth2.Token, error) {
		s, err := p.Current(ctx, sessionID)
		if err != nil {
			return nil, err
		}
		return s.Token, nil
	})
}

// RefreshFunc binds Refresh to one session for an apiclient.Refresher
func (p *Provider) RefreshFunc(sessionID string) apiclient.RefreshFunc {
	return func(ctx context.Context, stale *oauth2.Token) (*oauth2.Token, error) {
		return p.Refresh(ctx, sessionID, stale)
	}
}

func (p *Provider) usable(tok *oauth2.Token) bool {
	if tok == nil || tok.AccessToken == "" {
		return false
	}
	return tok.Expiry.IsZero() || p.nowTime().Before(tok.Expiry)
}

func signInError(err error) error {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		return errors.Wrap(err, "[Provider SignIn]")
	}

	msg := strings.ToLower(apiErr.Message + " " + strings.Join(apiErr.Details, " "))
	switch {
	case apiErr.Status == http.StatusNotFound || strings.Contains(msg, "no encontrado") || strings.Contains(msg, "not found"):
		return UserNotFoundErr
	case apiErr.Kind == apiclient.KindUnauthorized,
		apiErr.Kind == apiclient.KindJWTExpired,
		apiErr.Kind == apiclient.KindValidation:
		return InvalidCredentialsErr
	default:
		return errors.Wrap(err, "[Provider SignIn]")
	}
}
