package server

import (
	"errors"
	"math"
	"net/http"

	"github.com/jrsteele09/aqua-control/auth"
	"github.com/jrsteele09/aqua-control/guard"
	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/rs/zerolog/log"
)

// Messages for the error codes the login page understands
var loginErrorMessages = map[string]string{
	auth.SessionExpiredCode: "Tu sesión ha expirado. Inicia sesión nuevamente.",
	"CredentialsSignin":     "Credenciales incorrectas",
	"AccessDenied":          "No tienes permisos para acceder a esta página.",
}

// LoginPageData contains data for rendering the login page
type LoginPageData struct {
	AppName     string
	CallbackURL string
	Email       string // Preserve email on error
	Error       string
	Toasts      []notify.Toast
}

// IndexHandler sends visitors to the dashboard
func (s *Server) IndexHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, RouteDashboard, http.StatusFound)
	}
}

// LoginPageUIHandler displays the login page (GET /login)
func (s *Server) LoginPageUIHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callback := auth.SafeCallbackURL(r.URL.Query().Get("callbackUrl"), RouteDashboard)

		subject := guard.SubjectFrom(r.Context())
		if subject.Status == sessions.StatusAuthenticated && !s.logout.Pending(subject.SessionID) {
			http.Redirect(w, r, callback, http.StatusSeeOther)
			return
		}

		data := LoginPageData{
			CallbackURL: callback,
			Email:       r.URL.Query().Get("email"),
		}
		if code := r.URL.Query().Get("error"); code != "" {
			msg, ok := loginErrorMessages[code]
			if !ok {
				msg = "No se pudo iniciar sesión. Intenta nuevamente."
			}
			data.Error = msg
		}
		s.renderLogin(w, r, http.StatusOK, data)
	}
}

// LoginSubmissionHandler processes the login form submission (POST /auth/login)
func (s *Server) LoginSubmissionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Invalid form data", http.StatusBadRequest)
			return
		}
		email := r.PostFormValue("email")
		callback := auth.SafeCallbackURL(r.PostFormValue("callbackUrl"), RouteDashboard)

		session, err := s.provider.SignIn(r.Context(), email, r.PostFormValue("password"))
		if err != nil {
			status := http.StatusUnauthorized
			switch {
			case errors.Is(err, apperrors.ErrInvalidInput):
				status = http.StatusBadRequest
			case !errors.Is(err, apperrors.ErrInvalidCredentials) && !errors.Is(err, apperrors.ErrUserNotFound):
				log.Err(err).Str("email", email).Msg("sign in failed")
				status = http.StatusBadGateway
			}
			s.renderLogin(w, r, status, LoginPageData{
				CallbackURL: callback,
				Email:       email,
				Error:       auth.UserMessage(err),
			})
			return
		}

		// A browser signing in again drops its previous session
		if previous := sessionIDFrom(r); previous != "" {
			s.endSession(r, previous)
		}

		s.SetSessionCookie(w, session.ID, r, int(math.Round(s.config.GetMaxSessionAge().Seconds())))
		redirectSuccess(w, r, callback)
	}
}

// LogoutHandler signs the browser out (GET /auth/logout)
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if sessionID := sessionIDFrom(r); sessionID != "" {
			s.endSession(r, sessionID)
		}
		s.ClearSessionCookie(w, r)
		redirectSuccess(w, r, RouteLogin)
	}
}

// SessionExpiredHandler tells the user the session ended and forwards to the login page
// once the forced logout has run (GET /session/expired)
func (s *Server) SessionExpiredHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		callback := r.URL.Query().Get("callbackUrl")
		delay := int(math.Ceil(s.config.GetLogoutDelay().Seconds()))

		data := struct {
			Delay    int
			LoginURL string
			Toasts   []notify.Toast
		}{
			Delay:    delay,
			LoginURL: auth.LoginURL(callback, auth.SessionExpiredCode),
			Toasts:   s.toasts.Drain(sessionIDFrom(r)),
		}

		w.Header().Set("Content-Type", contentTypeHTML)
		w.Header().Set("Cache-Control", "no-store")
		if err := s.templates.expired.Execute(w, data); err != nil {
			log.Err(err).Msg("Failed to render session expired page")
		}
	}
}

func (s *Server) renderLogin(w http.ResponseWriter, r *http.Request, status int, data LoginPageData) {
	data.AppName = s.config.GetAppName()
	data.Toasts = s.toasts.Drain(sessionIDFrom(r))

	w.Header().Set("Content-Type", contentTypeHTML)
	w.WriteHeader(status)
	if err := s.templates.login.Execute(w, data); err != nil {
		log.Err(err).Msg("Failed to render login template")
	}
}

// endSession cancels any scheduled forced logout and destroys the session now
func (s *Server) endSession(r *http.Request, sessionID string) {
	s.logout.Cancel(sessionID)
	if err := s.provider.SignOut(r.Context(), sessionID); err != nil {
		log.Err(err).Str("session", sessionID).Msg("sign out failed")
	}
	s.dropClient(sessionID)
}
