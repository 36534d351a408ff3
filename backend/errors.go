package backend

import (
	"fmt"

	apperrors "github.com/jrsteele09/aqua-control/internal/errors"
)

// InputError is a user-facing validation message. It matches apperrors.ErrInvalidInput.
type InputError struct {
	Message string
}

func (e *InputError) Error() string { return e.Message }
func (e *InputError) Unwrap() error { return apperrors.ErrInvalidInput }

func invalid(format string, args ...any) error {
	return &InputError{Message: fmt.Sprintf(format, args...)}
}
