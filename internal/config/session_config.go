package config

import "time"

type SessionConfig interface {
	GetRedisURL() string
	GetMaxSessionAge() time.Duration
	GetLogoutDelay() time.Duration
	GetSessionClientCacheSize() int
}

type Session struct{}

var _ SessionConfig = Session{}

// GetRedisURL returns the session store location. Empty keeps sessions in memory.
func (Session) GetRedisURL() string {
	return GetEnv("REDIS_URL", "")
}

func (Session) GetMaxSessionAge() time.Duration {
	return GetEnvDuration("SESSION_MAX_AGE", 24*time.Hour)
}

// GetLogoutDelay is how long the "session expired" toast stays visible before sign-out
func (Session) GetLogoutDelay() time.Duration {
	return GetEnvDuration("LOGOUT_DELAY", 2*time.Second)
}

func (Session) GetSessionClientCacheSize() int {
	return 1024
}
