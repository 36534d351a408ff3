package backend

import (
	"context"
	"strings"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/internal/utils"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/pkg/errors"
)

const usersPath = "/users"

type User struct {
	ID     string      `json:"id"`
	Name   string      `json:"name"`
	Email  string      `json:"email"`
	Roles  []roles.Ref `json:"roles"`
	Active *bool       `json:"active,omitempty"`
}

// IsActive treats a missing flag as active
func (u User) IsActive() bool {
	return utils.ValueOr(u.Active, true)
}

// UserInput creates a user
type UserInput struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
	RoleIDs  []int  `json:"roles"`
}

func (in *UserInput) Validate() error {
	in.Name = strings.TrimSpace(in.Name)
	in.Email = strings.TrimSpace(in.Email)
	switch {
	case in.Name == "":
		return invalid("el nombre es obligatorio")
	case !strings.Contains(in.Email, "@"):
		return invalid("el email no es válido")
	case len(in.Password) < 6:
		return invalid("la contraseña debe tener al menos 6 caracteres")
	case len(in.RoleIDs) == 0:
		return invalid("selecciona al menos un rol")
	}
	return nil
}

// UserUpdate changes only the non-nil fields
type UserUpdate struct {
	Name     *string `json:"name,omitempty"`
	Email    *string `json:"email,omitempty"`
	Password *string `json:"password,omitempty"`
	RoleIDs  *[]int  `json:"roles,omitempty"`
	Active   *bool   `json:"active,omitempty"`
}

func (in *UserUpdate) Validate() error {
	if in.Name != nil && strings.TrimSpace(*in.Name) == "" {
		return invalid("el nombre es obligatorio")
	}
	if in.Email != nil && !strings.Contains(*in.Email, "@") {
		return invalid("el email no es válido")
	}
	if in.Password != nil && len(*in.Password) < 6 {
		return invalid("la contraseña debe tener al menos 6 caracteres")
	}
	if in.RoleIDs != nil && len(utils.Value(in.RoleIDs)) == 0 {
		return invalid("selecciona al menos un rol")
	}
	return nil
}

func (a *API) ListUsers(ctx context.Context, q PageQuery) (Page[User], error) {
	q = q.normalised()
	env, err := apiclient.Get[[]User](ctx, a.client, usersPath, q.values())
	if err != nil {
		return Page[User]{}, errors.Wrap(err, "[API ListUsers]")
	}
	return pageOf(env, q), nil
}

func (a *API) CreateUser(ctx context.Context, in UserInput) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	env, err := apiclient.Post[User](ctx, a.client, usersPath, in)
	if err != nil {
		return nil, errors.Wrap(err, "[API CreateUser]")
	}
	return &env.Data, nil
}

func (a *API) UpdateUser(ctx context.Context, id string, in UserUpdate) (*User, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}
	env, err := apiclient.Put[User](ctx, a.client, itemPath(usersPath, id), in)
	if err != nil {
		return nil, errors.Wrap(err, "[API UpdateUser]")
	}
	return &env.Data, nil
}

func (a *API) DeleteUser(ctx context.Context, id string) error {
	if err := apiclient.Delete(ctx, a.client, itemPath(usersPath, id)); err != nil {
		return errors.Wrap(err, "[API DeleteUser]")
	}
	return nil
}
