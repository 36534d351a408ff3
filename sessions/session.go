package sessions

import (
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/aqua-control/roles"
	"golang.org/x/oauth2"
)

// User is the user snapshot the backend embeds in a login response
type User struct {
	ID    string      `json:"id"`
	Email string      `json:"email"`
	Name  string      `json:"name"`
	Roles []roles.Ref `json:"roles"`
}

// Session is a browser's authenticated session. It holds the backend bearer token and
// the user snapshot taken at login; both are replaced only by a refresh.
type Session struct {
	ID        string        `json:"id"`
	Token     *oauth2.Token `json:"token,omitempty"`
	User      *User         `json:"user,omitempty"`
	CreatedAt time.Time     `json:"created_at"`
	ExpiresAt time.Time     `json:"expires_at"`
}

// AccessToken returns the raw bearer token or "" when the session has none
func (s *Session) AccessToken() string {
	if s == nil || s.Token == nil {
		return ""
	}
	return s.Token.AccessToken
}

// Clone returns a deep copy: the token, the user and its roles are not shared
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	c := *s
	if s.Token != nil {
		tok := *s.Token
		c.Token = &tok
	}
	if s.User != nil {
		u := *s.User
		u.Roles = append([]roles.Ref(nil), s.User.Roles...)
		c.User = &u
	}
	return &c
}

// Expired reports whether the session itself (not the token) is past its lifetime
func (s *Session) Expired(now time.Time) bool {
	return !s.ExpiresAt.IsZero() && now.After(s.ExpiresAt)
}

// TokenFromJWT wraps a backend JWT as a bearer token, taking the expiry from the exp claim.
// The signature is not verified here; the backend remains the authority on validity.
func TokenFromJWT(raw string) *oauth2.Token {
	tok := &oauth2.Token{AccessToken: raw, TokenType: "Bearer"}
	claims := jwtlib.MapClaims{}
	if _, _, err := jwtlib.NewParser().ParseUnverified(raw, claims); err != nil {
		return tok
	}
	if exp, err := claims.GetExpirationTime(); err == nil && exp != nil {
		tok.Expiry = exp.Time
	}
	return tok
}
