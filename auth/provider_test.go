package auth_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/auth"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/internal/metrics"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testEmail    = "coach@aqua.test"
	testPassword = "password123"
)

// testFixture holds all test dependencies
type testFixture struct {
	backend   *httptest.Server
	repo      *sessions.InMemoryRepo
	provider  *auth.Provider
	metrics   *metrics.Metrics
	refreshes atomic.Int32
	// refreshAuth is the Authorization header of the last refresh call
	refreshAuth atomic.Value
	// refreshStatus is returned by the refresh endpoint when non-zero
	refreshStatus int
	now           time.Time
}

func signJWT(t *testing.T, subject string, exp time.Time) string {
	t.Helper()
	tok := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, jwtlib.MapClaims{
		"sub": subject,
		"exp": exp.Unix(),
	})
	signed, err := tok.SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return signed
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// setupTestFixture creates a fake backend and a provider pointing at it
func setupTestFixture(t *testing.T, options ...auth.ProviderOption) *testFixture {
	t.Helper()

	f := &testFixture{now: time.Now()}
	issued := f.now
	loginToken := signJWT(t, "u-1", issued.Add(time.Hour))
	refreshedToken := signJWT(t, "u-1", issued.Add(2*time.Hour))
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/auth/login", func(w http.ResponseWriter, r *http.Request) {
		var in struct{ Email, Password string }
		if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]any{"message": err.Error()})
			return
		}
		switch {
		case in.Email == "nobody@aqua.test":
			writeJSON(w, http.StatusNotFound, map[string]any{"message": "Usuario no encontrado"})
		case in.Email != testEmail || in.Password != testPassword:
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "Credenciales incorrectas"})
		default:
			writeJSON(w, http.StatusOK, map[string]any{
				"token": loginToken,
				"user": map[string]any{
					"id":    "u-1",
					"email": testEmail,
					"name":  "Coach",
					"roles": []map[string]any{{"id": 2}},
				},
			})
		}
	})
	mux.HandleFunc("POST /api/auth/refresh", func(w http.ResponseWriter, r *http.Request) {
		f.refreshes.Add(1)
		if f.refreshStatus != 0 {
			writeJSON(w, f.refreshStatus, map[string]any{"message": "refresh token expired"})
			return
		}
		f.refreshAuth.Store(r.Header.Get("Authorization"))
		writeJSON(w, http.StatusOK, map[string]any{
			"data": map[string]any{"token": refreshedToken},
		})
	})
	f.backend = httptest.NewServer(mux)
	t.Cleanup(f.backend.Close)

	f.repo = sessions.NewInMemoryRepo()
	f.metrics = metrics.New(nil)
	opts := append([]auth.ProviderOption{
		auth.WithNowTime(func() time.Time { return f.now }),
		auth.WithMetrics(f.metrics),
	}, options...)

	p, err := auth.NewProvider(apiclient.New(f.backend.URL+"/api"), f.repo, opts...)
	require.NoError(t, err)
	f.provider = p
	return f
}

func TestNewProviderRequiresDependencies(t *testing.T) {
	_, err := auth.NewProvider(nil, sessions.NewInMemoryRepo())
	require.Error(t, err)
	_, err = auth.NewProvider(apiclient.New("http://localhost"), nil)
	require.Error(t, err)
}

func TestSignIn(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, " "+testEmail+" ", testPassword)
	require.NoError(t, err)
	require.NotEmpty(t, s.ID)
	require.Equal(t, "Bearer", s.Token.TokenType)
	require.WithinDuration(t, f.now.Add(time.Hour), s.Token.Expiry, time.Second)
	require.Equal(t, []roles.Ref{{ID: 2}}, s.User.Roles)
	require.Equal(t, f.now.Add(auth.DefaultMaxAge), s.ExpiresAt)

	stored, err := f.provider.Current(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, s.Token.AccessToken, stored.Token.AccessToken)
	require.Equal(t, []roles.Name{roles.Entrenador}, sessions.RolesFromSession(roles.DefaultCatalog(), stored))
	require.Equal(t, 1.0, testutil.ToFloat64(f.metrics.ActiveSessions))
}

func TestSignInErrors(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		email    string
		password string
		want     error
		sentinel error
	}{
		{"wrong password", testEmail, "nope", auth.InvalidCredentialsErr, apperrors.ErrInvalidCredentials},
		{"unknown user", "nobody@aqua.test", "x", auth.UserNotFoundErr, apperrors.ErrUserNotFound},
		{"missing password", testEmail, "", auth.MissingCredentialsErr, apperrors.ErrInvalidInput},
		{"bad email", "coach", "x", auth.InvalidEmailErr, apperrors.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, err := f.provider.SignIn(ctx, tt.email, tt.password)
			require.Nil(t, s)
			require.ErrorIs(t, err, tt.want)
			require.ErrorIs(t, err, tt.sentinel)
			require.Equal(t, tt.want.Error(), auth.UserMessage(err))
		})
	}
}

func TestRefreshReturnsNewerStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	stale := &oauth2.Token{AccessToken: "older-token"}
	tok, err := f.provider.Refresh(ctx, s.ID, stale)
	require.NoError(t, err)
	require.Equal(t, s.Token.AccessToken, tok.AccessToken)
	require.Equal(t, int32(0), f.refreshes.Load())
}

func TestRefreshCallsBackend(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	tok, err := f.provider.Refresh(ctx, s.ID, s.Token)
	require.NoError(t, err)
	require.NotEqual(t, s.Token.AccessToken, tok.AccessToken)
	require.WithinDuration(t, f.now.Add(2*time.Hour), tok.Expiry, time.Second)
	require.Equal(t, int32(1), f.refreshes.Load())
	require.Equal(t, "Bearer "+s.Token.AccessToken, f.refreshAuth.Load())

	stored, err := f.provider.Current(ctx, s.ID)
	require.NoError(t, err)
	require.Equal(t, tok.AccessToken, stored.Token.AccessToken)
	require.Equal(t, "u-1", stored.User.ID, "user snapshot kept when refresh omits it")
}

func TestRefreshExpiredStoredToken(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	// Stored token is past its exp, so even a different stale token forces a backend call
	f.now = f.now.Add(90 * time.Minute)
	_, err = f.provider.Refresh(ctx, s.ID, &oauth2.Token{AccessToken: "other"})
	require.NoError(t, err)
	require.Equal(t, int32(1), f.refreshes.Load())
}

func TestRefreshFailure(t *testing.T) {
	f := setupTestFixture(t)
	f.refreshStatus = http.StatusUnauthorized
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	_, err = f.provider.Refresh(ctx, s.ID, s.Token)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, apiclient.KindJWTExpired, apiclient.KindOf(err))

	_, err = f.provider.Refresh(ctx, "missing", nil)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
}

func TestRefreshDisabled(t *testing.T) {
	f := setupTestFixture(t, auth.WithRefreshPath(""))
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	_, err = f.provider.Refresh(ctx, s.ID, s.Token)
	require.ErrorIs(t, err, auth.RefreshDisabledErr)
	require.ErrorIs(t, err, apperrors.ErrRefreshFailed)
	require.Equal(t, int32(0), f.refreshes.Load())
}

func TestSignOut(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	require.NoError(t, f.provider.SignOut(ctx, s.ID))
	_, err = f.provider.Current(ctx, s.ID)
	require.ErrorIs(t, err, apperrors.ErrSessionNotFound)
	require.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveSessions))

	// Signing out twice is harmless
	require.NoError(t, f.provider.SignOut(ctx, s.ID))
	require.Equal(t, 0.0, testutil.ToFloat64(f.metrics.ActiveSessions))
}

func TestSessionBoundClient(t *testing.T) {
	f := setupTestFixture(t)
	ctx := context.Background()

	s, err := f.provider.SignIn(ctx, testEmail, testPassword)
	require.NoError(t, err)

	var seen []string
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = append(seen, r.Header.Get("Authorization"))
		if len(seen) == 1 {
			writeJSON(w, http.StatusUnauthorized, map[string]any{"message": "jwt expired"})
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{"data": "ok"})
	}))
	defer api.Close()

	c := apiclient.New(api.URL,
		apiclient.WithTokenSource(f.provider.TokenSource(s.ID)),
		apiclient.WithRefresher(apiclient.NewRefresher(f.provider.RefreshFunc(s.ID), nil)),
	)
	env, err := apiclient.Get[string](ctx, c, "/ping", nil)
	require.NoError(t, err)
	require.Equal(t, "ok", env.Data)
	require.Len(t, seen, 2)
	require.Equal(t, "Bearer "+s.Token.AccessToken, seen[0])
	require.NotEqual(t, seen[0], seen[1])
	require.Equal(t, int32(1), f.refreshes.Load())
}
