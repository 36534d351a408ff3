package server

import (
	"context"
	"errors"
	"net/http"
	"net/url"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/backend"
	"github.com/jrsteele09/aqua-control/guard"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/rs/zerolog/log"
)

// sessionCookieName is the browser cookie carrying the session ID
const sessionCookieName = "aqua_session"

// sessionAPI is the backend client of one browser session. Requests of the same session
// share its Refresher so a burst of 401s triggers a single refresh.
type sessionAPI struct {
	client    *apiclient.Client
	refresher *apiclient.Refresher
	api       *backend.API
}

func sessionIDFrom(r *http.Request) string {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}
	return cookie.Value
}

func (s *Server) SetSessionCookie(w http.ResponseWriter, sessionID string, r *http.Request, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   getScheme(r) == "https",
		SameSite: http.SameSiteLaxMode,
		MaxAge:   maxAge,
	})
}

func (s *Server) ClearSessionCookie(w http.ResponseWriter, r *http.Request) {
	s.SetSessionCookie(w, "", r, -1)
}

// apiFor returns the backend API bound to the session, creating its client on first use
func (s *Server) apiFor(sessionID string) *backend.API {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()

	if entry, ok := s.clients.Get(sessionID); ok {
		return entry.api
	}

	refresher := apiclient.NewRefresher(
		s.provider.RefreshFunc(sessionID),
		func(ctx context.Context, err error) {
			log.Warn().Err(err).Str("session", sessionID).Msg("session refresh failed")
			s.logout.HandleJWTExpired(ctx, sessionID, s.logout.DefaultOptions(""))
		},
		apiclient.WithRefreshTimeout(s.config.GetAPITimeout()),
		apiclient.WithRefreshMetrics(s.metrics),
	)
	client := apiclient.New(s.config.GetAPIBaseURL(),
		apiclient.WithTimeout(s.config.GetAPITimeout()),
		apiclient.WithTokenSource(s.provider.TokenSource(sessionID)),
		apiclient.WithRefresher(refresher),
		apiclient.WithNotifier(func(_ context.Context, e *apiclient.Error) {
			s.toasts.Push(sessionID, notify.Toast{Level: notify.LevelError, Message: e.Message})
		}),
		apiclient.WithExpiredHandler(func(ctx context.Context, _ *apiclient.Error) {
			s.logout.HandleJWTExpired(ctx, sessionID, s.logout.DefaultOptions(""))
		}),
		apiclient.WithMetrics(s.metrics),
	)
	entry := &sessionAPI{
		client:    client,
		refresher: refresher,
		api:       backend.New(client, backend.DefaultRoleTTL),
	}
	s.clients.Add(sessionID, entry)
	return entry.api
}

// dropClient forgets the session's backend client once the session is gone
func (s *Server) dropClient(sessionID string) {
	s.clientsMu.Lock()
	defer s.clientsMu.Unlock()
	s.clients.Remove(sessionID)
}

// requestAPI returns the backend API of the request's session
func (s *Server) requestAPI(r *http.Request) *backend.API {
	return s.apiFor(guard.SubjectFrom(r.Context()).SessionID)
}

// expireSession starts the forced logout and sends the browser to the session expired page
func (s *Server) expireSession(w http.ResponseWriter, r *http.Request) {
	sessionID := guard.SubjectFrom(r.Context()).SessionID
	callback := r.URL.RequestURI()
	if r.Method != http.MethodGet {
		callback = r.URL.Path
	}
	s.logout.HandleJWTExpired(r.Context(), sessionID, s.logout.DefaultOptions(callback))
	redirectSuccess(w, r, RouteSessionExpired+"?callbackUrl="+url.QueryEscape(callback))
}

// toast queues a message for the request's session
func (s *Server) toast(r *http.Request, level notify.Level, message string) {
	s.toasts.Push(guard.SubjectFrom(r.Context()).SessionID, notify.Toast{Level: level, Message: message})
}

// handleAPIError deals with a failed backend call. It returns true when the response has
// already been written (the session expired).
func (s *Server) handleAPIError(w http.ResponseWriter, r *http.Request, err error) bool {
	var apiErr *apiclient.Error
	if !errors.As(err, &apiErr) {
		// Rejected before reaching the backend, so the client never toasted it
		s.toast(r, notify.LevelError, userMessage(err))
		return false
	}
	if apiErr.Kind == apiclient.KindJWTExpired {
		s.expireSession(w, r)
		return true
	}
	log.Debug().Err(err).Str("path", r.URL.Path).Msg("backend call failed")
	return false
}

func userMessage(err error) string {
	if !apperrors.UserFacing(err) {
		log.Err(err).Msg("unexpected request error")
	}
	return apperrors.UserMessage(err)
}

// redirectSuccess helper for htmx-aware success redirects
func redirectSuccess(w http.ResponseWriter, r *http.Request, path string) {
	if isHTMXRequest(r) {
		w.Header().Set("HX-Redirect", path)
		w.WriteHeader(http.StatusNoContent) // 204 - no content, just redirect instruction
		return
	}
	http.Redirect(w, r, path, http.StatusSeeOther)
}

// redirectWithError queues the error as a toast and redirects
func (s *Server) redirectWithError(w http.ResponseWriter, r *http.Request, path string, err error) {
	if s.handleAPIError(w, r, err) {
		return
	}
	redirectSuccess(w, r, path)
}

// isHTMXRequest checks if the request was initiated by HTMX
func isHTMXRequest(r *http.Request) bool {
	return r.Header.Get("HX-Request") == "true"
}

func (s *Server) currentUserID(r *http.Request) string {
	if user := guard.SubjectFrom(r.Context()).User; user != nil {
		return user.ID
	}
	return ""
}
