package auth

import (
	"errors"

	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
)

// Sign-in failures shown on the login page. They wrap the shared sentinels so callers can
// test with errors.Is against either.
var (
	InvalidCredentialsErr = wrapSentinel("Credenciales incorrectas", apperrors.ErrInvalidCredentials)
	UserNotFoundErr       = wrapSentinel("Usuario no encontrado", apperrors.ErrUserNotFound)
	MissingCredentialsErr = wrapSentinel("Email y contraseña son obligatorios", apperrors.ErrInvalidInput)
	InvalidEmailErr       = wrapSentinel("El email no tiene un formato válido", apperrors.ErrInvalidInput)
	RefreshDisabledErr    = wrapSentinel("session refresh is disabled", apperrors.ErrRefreshFailed)
)

type sentinel struct {
	msg   string
	cause error
}

func (s *sentinel) Error() string { return s.msg }
func (s *sentinel) Unwrap() error { return s.cause }

func wrapSentinel(msg string, cause error) error {
	return &sentinel{msg: msg, cause: cause}
}

// UserMessage returns the text to show for a sign-in error
func UserMessage(err error) string {
	for _, known := range []error{InvalidCredentialsErr, UserNotFoundErr, MissingCredentialsErr, InvalidEmailErr} {
		if errors.Is(err, known) {
			return known.Error()
		}
	}
	return "No se pudo iniciar sesión. Intenta nuevamente."
}
