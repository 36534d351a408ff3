package config_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/aqua-control/internal/config"
	"github.com/stretchr/testify/require"
)

func TestAPIBaseURL(t *testing.T) {
	t.Run("default", func(t *testing.T) {
		t.Setenv("API_URL", "")
		t.Setenv("NEXT_PUBLIC_API_URL", "")
		require.Equal(t, "http://localhost:4000/api", config.New().GetAPIBaseURL())
	})

	t.Run("public name", func(t *testing.T) {
		t.Setenv("API_URL", "")
		t.Setenv("NEXT_PUBLIC_API_URL", "https://api.aqua.test/v1/")
		require.Equal(t, "https://api.aqua.test/v1", config.New().GetAPIBaseURL())
	})

	t.Run("API_URL wins", func(t *testing.T) {
		t.Setenv("API_URL", "http://backend:4000")
		t.Setenv("NEXT_PUBLIC_API_URL", "https://api.aqua.test")
		require.Equal(t, "http://backend:4000", config.New().GetAPIBaseURL())
	})
}

func TestDurations(t *testing.T) {
	t.Setenv("API_TIMEOUT", "")
	t.Setenv("LOGOUT_DELAY", "bogus")
	cfg := config.New()
	require.Equal(t, 10*time.Second, cfg.GetAPITimeout())
	require.Equal(t, 2*time.Second, cfg.GetLogoutDelay())

	t.Setenv("SESSION_MAX_AGE", "90m")
	require.Equal(t, 90*time.Minute, config.New().GetMaxSessionAge())
}

func TestPort(t *testing.T) {
	t.Setenv("PORT", "9000")
	require.Equal(t, ":9000", config.New().GetPort())
	t.Setenv("PORT", ":9001")
	require.Equal(t, ":9001", config.New().GetPort())
}

func TestAllowedOrigins(t *testing.T) {
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test,,")
	origins := config.New().GetAllowedOrigins()
	require.True(t, origins.IsAllowedOrigin("http://a.test"))
	require.True(t, origins.IsAllowedOrigin("http://b.test"))
	require.False(t, origins.IsAllowedOrigin("http://c.test"))
	require.Equal(t, "http://a.test, http://b.test", origins.String())
}
