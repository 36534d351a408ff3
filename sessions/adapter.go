package sessions

import "github.com/jrsteele09/aqua-control/roles"

// Status is the session resolution signal guards react to
type Status int

const (
	StatusLoading Status = iota
	StatusAuthenticated
	StatusUnauthenticated
)

func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusAuthenticated:
		return "authenticated"
	default:
		return "unauthenticated"
	}
}

// AuthState separates "logged out" from "logged in without any recognized role"
type AuthState int

const (
	Unauthenticated AuthState = iota
	AuthenticatedNoRoles
	Authenticated
)

func (a AuthState) String() string {
	switch a {
	case Authenticated:
		return "authenticated"
	case AuthenticatedNoRoles:
		return "authenticated_no_roles"
	default:
		return "unauthenticated"
	}
}

// UserInfo is a derived view of a session; it is recomputed on every call and never stored
type UserInfo struct {
	ID    string
	Email string
	Name  string
	Roles []roles.Name
	Token string
}

// PrimaryRole returns the user's highest-priority role, or "" when none
func (u *UserInfo) PrimaryRole() roles.Name {
	if u == nil {
		return ""
	}
	name, _ := roles.PrimaryRole(u.Roles)
	return name
}

// RolesFromSession resolves the session's role references through the catalog
func RolesFromSession(catalog *roles.Catalog, s *Session) []roles.Name {
	if s == nil || s.User == nil || len(s.User.Roles) == 0 {
		return []roles.Name{}
	}
	return catalog.MapRolesToNames(s.User.Roles)
}

// IsValidSession is true when the session has a user id and at least one recognized role.
// Use StateOf to tell a logged-out visitor from a user without recognized roles.
func IsValidSession(catalog *roles.Catalog, s *Session) bool {
	return StateOf(catalog, s) == Authenticated
}

// StateOf classifies a session
func StateOf(catalog *roles.Catalog, s *Session) AuthState {
	return StateOfUser(UserInfoFromSession(catalog, s))
}

// StateOfUser classifies an already resolved user view, so roles are mapped only once
func StateOfUser(u *UserInfo) AuthState {
	if u == nil || u.ID == "" {
		return Unauthenticated
	}
	if len(u.Roles) == 0 {
		return AuthenticatedNoRoles
	}
	return Authenticated
}

// UserInfoFromSession builds the user view, or nil when the session carries no user
func UserInfoFromSession(catalog *roles.Catalog, s *Session) *UserInfo {
	if s == nil || s.User == nil {
		return nil
	}
	return &UserInfo{
		ID:    s.User.ID,
		Email: s.User.Email,
		Name:  s.User.Name,
		Roles: RolesFromSession(catalog, s),
		Token: s.AccessToken(),
	}
}
