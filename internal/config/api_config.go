package config

import (
	"strings"
	"time"
)

const (
	apiURLEnvVar       = "API_URL"
	publicAPIURLEnvVar = "NEXT_PUBLIC_API_URL"
	defaultAPIURL      = "http://localhost:4000/api"
)

type APIConfig interface {
	GetAPIBaseURL() string
	GetAPITimeout() time.Duration
	GetAPIRefreshPath() string
}

type API struct{}

var _ APIConfig = API{}

// GetAPIBaseURL returns the backend base URL without a trailing slash.
// API_URL wins over NEXT_PUBLIC_API_URL, the name used by the original web client.
func (API) GetAPIBaseURL() string {
	url := GetEnv(apiURLEnvVar, GetEnv(publicAPIURLEnvVar, defaultAPIURL))
	return strings.TrimRight(url, "/")
}

func (API) GetAPITimeout() time.Duration {
	return GetEnvDuration("API_TIMEOUT", 10*time.Second)
}

// GetAPIRefreshPath is the backend endpoint used to exchange a stale token. Empty disables it.
func (API) GetAPIRefreshPath() string {
	return GetEnv("API_REFRESH_PATH", "/auth/refresh")
}
