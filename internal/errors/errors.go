package errors

import (
	"errors"
	"fmt"
)

// GenericMessage is shown to users for any error that is not safe to display verbatim.
const GenericMessage = "Ocurrió un error inesperado."

var (
	ErrInvalidCredentials = errors.New("credenciales incorrectas")
	ErrUserNotFound       = errors.New("usuario no encontrado")

	ErrRefreshFailed   = errors.New("session refresh failed")
	ErrSessionNotFound = errors.New("session not found")
	ErrSessionExpired  = errors.New("session expired")

	ErrNotFound     = errors.New("not found")
	ErrInvalidInput = errors.New("invalid input")
)

// Wrapf annotates err, keeping it matchable with Is. A nil err stays nil.
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf(format+": %w", append(args, err)...)
}

func Is(err, target error) bool {
	return errors.Is(err, target)
}

func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// UserFacing reports whether err's own text may be shown to the user: input problems
// and missing records carry a message written for people, everything else does not.
func UserFacing(err error) bool {
	return errors.Is(err, ErrInvalidInput) || errors.Is(err, ErrNotFound)
}

// UserMessage is err's text when UserFacing, otherwise GenericMessage.
func UserMessage(err error) string {
	if err == nil {
		return ""
	}
	if UserFacing(err) {
		return err.Error()
	}
	return GenericMessage
}
