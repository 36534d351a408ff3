package backend

import (
	"context"

	"github.com/jrsteele09/aqua-control/apiclient"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/pkg/errors"
)

// ListRoles returns the backend role list, fetched once per cache lifetime
func (a *API) ListRoles(ctx context.Context) ([]roles.Role, error) {
	list, err := a.roles.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "[API ListRoles]")
	}
	return list, nil
}

func (a *API) fetchRoles(ctx context.Context) ([]roles.Role, error) {
	env, err := apiclient.Get[[]roles.Role](ctx, a.client, "/roles", nil)
	if err != nil {
		return nil, err
	}
	return env.Data, nil
}
