package apiclient

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// ErrorKind classifies a failed backend call
type ErrorKind string

const (
	KindJWTExpired   ErrorKind = "JWT_EXPIRED"
	KindUnauthorized ErrorKind = "UNAUTHORIZED"
	KindValidation   ErrorKind = "VALIDATION"
	KindServerError  ErrorKind = "SERVER_ERROR"
	KindNetwork      ErrorKind = "NETWORK_ERROR"
	KindUnknown      ErrorKind = "UNKNOWN"
	// KindCanceled marks a call abandoned by its caller. It is never notified.
	KindCanceled ErrorKind = "CANCELED"
)

// User-facing messages per kind, used when the backend gives nothing better
const (
	msgJWTExpired   = "Tu sesión ha expirado. Inicia sesión nuevamente."
	msgUnauthorized = "No tienes permisos para realizar esta acción."
	msgValidation   = "Los datos enviados no son válidos."
	msgServerError  = "Error del servidor. Intenta nuevamente más tarde."
	msgNetwork      = "No se pudo conectar con el servidor. Verifica tu conexión."
	msgUnknown      = "Ocurrió un error inesperado."
)

// Messages the backend uses when a bearer token is no longer accepted
var expiredSignatures = []string{
	"not authorized, token failed",
	"token expired",
	"jwt expired",
}

// Error is the single classified failure type returned by Client
type Error struct {
	Kind    ErrorKind
	Status  int               // HTTP status, 0 for transport failures
	Message string            // user-facing message
	Details []string          // every message the backend listed
	Fields  map[string]string // field -> message for validation failures
	Err     error             // underlying transport error, if any
}

func (e *Error) Error() string {
	if e.Status == 0 {
		return fmt.Sprintf("%s: %s", e.Kind, e.Message)
	}
	return fmt.Sprintf("%s (%d): %s", e.Kind, e.Status, e.Message)
}

func (e *Error) Unwrap() error {
	return e.Err
}

// KindOf returns the classification of err. Errors that did not come from Client are KindUnknown.
func KindOf(err error) ErrorKind {
	if err == nil {
		return ""
	}
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}
	return KindUnknown
}

// errorBody is the backend failure envelope: { errors?: string|string[]|{msg,param}[], message? }
type errorBody struct {
	Errors  errorList `json:"errors"`
	Message string    `json:"message"`
}

type fieldError struct {
	Field   string
	Message string
}

type errorList []fieldError

func (l *errorList) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*l = errorList{{Message: single}}
		return nil
	}

	var raw []json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		// Unknown shapes are ignored rather than failing classification
		return nil
	}
	out := make(errorList, 0, len(raw))
	for _, item := range raw {
		var s string
		if err := json.Unmarshal(item, &s); err == nil {
			out = append(out, fieldError{Message: s})
			continue
		}
		var obj struct {
			Msg     string `json:"msg"`
			Message string `json:"message"`
			Param   string `json:"param"`
			Path    string `json:"path"`
			Field   string `json:"field"`
		}
		if err := json.Unmarshal(item, &obj); err != nil {
			continue
		}
		fe := fieldError{Message: firstNonEmpty(obj.Msg, obj.Message)}
		fe.Field = firstNonEmpty(obj.Field, obj.Path, obj.Param)
		if fe.Message != "" {
			out = append(out, fe)
		}
	}
	*l = out
	return nil
}

func (b errorBody) messages() []string {
	msgs := make([]string, 0, len(b.Errors)+1)
	for _, e := range b.Errors {
		msgs = append(msgs, e.Message)
	}
	if b.Message != "" {
		msgs = append(msgs, b.Message)
	}
	return msgs
}

// tokenExpired reports whether a 401 body carries one of the expiry signatures
func (b errorBody) tokenExpired() bool {
	for _, m := range b.messages() {
		lower := strings.ToLower(strings.TrimSpace(m))
		if lower == "unauthorized" {
			return true
		}
		for _, sig := range expiredSignatures {
			if strings.Contains(lower, sig) {
				return true
			}
		}
	}
	return false
}

// classify turns a non-2xx response into an *Error
func classify(status int, body []byte) *Error {
	var eb errorBody
	_ = json.Unmarshal(body, &eb)

	e := &Error{Status: status, Details: errorMessages(eb)}
	switch {
	case status == http.StatusUnauthorized && eb.tokenExpired():
		e.Kind = KindJWTExpired
		e.Message = msgJWTExpired
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		e.Kind = KindUnauthorized
		e.Message = firstNonEmpty(eb.Message, firstDetail(eb), msgUnauthorized)
	case status == http.StatusBadRequest || status == http.StatusUnprocessableEntity:
		e.Kind = KindValidation
		e.Message = firstNonEmpty(joinDetails(eb), eb.Message, msgValidation)
		e.Fields = fieldMessages(eb)
	case status >= 500:
		e.Kind = KindServerError
		e.Message = msgServerError
	default:
		e.Kind = KindUnknown
		e.Message = firstNonEmpty(eb.Message, firstDetail(eb), msgUnknown)
	}
	return e
}

// transportError classifies failures that never produced an HTTP response. A cancelled
// ctx means the caller gave up, whatever net/http reports: errgroup cancels with a cause,
// so err is not always context.Canceled. A missed deadline is still a network timeout.
func transportError(ctx context.Context, err error) *Error {
	if errors.Is(ctx.Err(), context.Canceled) || errors.Is(err, context.Canceled) {
		return &Error{Kind: KindCanceled, Message: msgUnknown, Err: err}
	}
	return &Error{Kind: KindNetwork, Message: msgNetwork, Err: err}
}

func errorMessages(eb errorBody) []string {
	if len(eb.Errors) == 0 {
		return nil
	}
	out := make([]string, 0, len(eb.Errors))
	for _, e := range eb.Errors {
		out = append(out, e.Message)
	}
	return out
}

func fieldMessages(eb errorBody) map[string]string {
	var fields map[string]string
	for _, e := range eb.Errors {
		if e.Field == "" {
			continue
		}
		if fields == nil {
			fields = make(map[string]string)
		}
		if _, seen := fields[e.Field]; !seen {
			fields[e.Field] = e.Message
		}
	}
	return fields
}

func joinDetails(eb errorBody) string {
	return strings.Join(errorMessages(eb), "; ")
}

func firstDetail(eb errorBody) string {
	if len(eb.Errors) == 0 {
		return ""
	}
	return eb.Errors[0].Message
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
