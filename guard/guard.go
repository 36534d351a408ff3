// Package guard decides whether the current visitor may see a page and renders the
// corresponding view when they may not.
package guard

import (
	"context"

	"github.com/jrsteele09/aqua-control/roles"
	"github.com/jrsteele09/aqua-control/sessions"
)

// Decision is the branch a guard takes
type Decision int

const (
	DecisionLoading Decision = iota
	DecisionUnauthenticated
	DecisionNoRoles
	DecisionForbidden
	DecisionAuthorized
)

func (d Decision) String() string {
	switch d {
	case DecisionLoading:
		return "loading"
	case DecisionUnauthenticated:
		return "unauthenticated"
	case DecisionNoRoles:
		return "no_roles"
	case DecisionForbidden:
		return "forbidden"
	default:
		return "authorized"
	}
}

// Evaluate maps the session signal and the user's roles to a Decision.
// An empty allowed list authorizes nobody.
func Evaluate(status sessions.Status, state sessions.AuthState, userRoles, allowed []roles.Name) Decision {
	switch {
	case status == sessions.StatusLoading:
		return DecisionLoading
	case status == sessions.StatusUnauthenticated, state == sessions.Unauthenticated:
		return DecisionUnauthenticated
	case state == sessions.AuthenticatedNoRoles:
		return DecisionNoRoles
	case roles.HasAnyRole(userRoles, allowed):
		return DecisionAuthorized
	default:
		return DecisionForbidden
	}
}

// Subject is the resolved visitor of a request
type Subject struct {
	SessionID string
	Status    sessions.Status
	State     sessions.AuthState
	User      *sessions.UserInfo
}

// Roles returns the user's recognized roles, never nil
func (s Subject) Roles() []roles.Name {
	if s.User == nil || s.User.Roles == nil {
		return []roles.Name{}
	}
	return s.User.Roles
}

// Anonymous is the subject of a request without a session
var Anonymous = Subject{Status: sessions.StatusUnauthenticated, State: sessions.Unauthenticated}

type subjectKey struct{}

func WithSubject(ctx context.Context, s Subject) context.Context {
	return context.WithValue(ctx, subjectKey{}, s)
}

// SubjectFrom returns the subject stored in ctx, or Anonymous
func SubjectFrom(ctx context.Context) Subject {
	if s, ok := ctx.Value(subjectKey{}).(Subject); ok {
		return s
	}
	return Anonymous
}

// Check evaluates the subject stored in ctx against allowed
func Check(ctx context.Context, allowed []roles.Name) Decision {
	s := SubjectFrom(ctx)
	return Evaluate(s.Status, s.State, s.Roles(), allowed)
}
