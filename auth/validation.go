package auth

import (
	"net/url"
	"strings"
)

// ValidateCredentials checks the login form before anything is sent to the backend
func ValidateCredentials(email, password string) error {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return MissingCredentialsErr
	}

	// Basic email format validation
	at := strings.LastIndex(email, "@")
	if at < 1 || !strings.Contains(email[at:], ".") {
		return InvalidEmailErr
	}
	return nil
}

// SafeCallbackURL returns callback when it is a local path, otherwise fallback.
// Absolute and protocol-relative URLs are rejected so the login page cannot redirect off-site.
func SafeCallbackURL(callback, fallback string) string {
	callback = strings.TrimSpace(callback)
	if callback == "" || !strings.HasPrefix(callback, "/") || strings.HasPrefix(callback, "//") {
		return fallback
	}
	if strings.ContainsAny(callback, "\\\r\n") {
		return fallback
	}
	u, err := url.Parse(callback)
	if err != nil || u.IsAbs() || u.Host != "" {
		return fallback
	}
	return callback
}
