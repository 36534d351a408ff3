package server

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/aqua-control/guard"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/rs/zerolog/log"
)

// sessionLookupTimeout bounds the session store read; a slower store yields a loading page
const sessionLookupTimeout = 2 * time.Second

// SessionMiddleware resolves the session cookie into a guard.Subject on the request context
func (s *Server) SessionMiddleware(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		subject := guard.Anonymous
		if sessionID := sessionIDFrom(r); sessionID != "" {
			subject = s.resolveSubject(r.Context(), sessionID)
		}
		next(w, r.WithContext(guard.WithSubject(r.Context(), subject)))
	}
}

func (s *Server) resolveSubject(ctx context.Context, sessionID string) guard.Subject {
	ctx, cancel := context.WithTimeout(ctx, sessionLookupTimeout)
	defer cancel()

	session, err := s.provider.Current(ctx, sessionID)
	switch {
	case errors.Is(err, apperrors.ErrSessionNotFound):
		return guard.Subject{
			SessionID: sessionID,
			Status:    sessions.StatusUnauthenticated,
			State:     sessions.Unauthenticated,
		}
	case err != nil:
		log.Warn().Err(err).Str("session", sessionID).Msg("session lookup failed")
		return guard.Subject{
			SessionID: sessionID,
			Status:    sessions.StatusLoading,
			State:     sessions.Unauthenticated,
		}
	}

	user := sessions.UserInfoFromSession(s.catalog, session)
	return guard.Subject{
		SessionID: sessionID,
		Status:    sessions.StatusAuthenticated,
		State:     sessions.StateOfUser(user),
		User:      user,
	}
}
