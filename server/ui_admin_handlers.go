package server

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/jrsteele09/aqua-control/backend"
	"github.com/jrsteele09/aqua-control/internal/utils"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/jrsteele09/aqua-control/roles"
)

type userRow struct {
	User    backend.User
	Unknown []int // role IDs the backend role list does not contain
}

type usersView struct {
	Page  backend.Page[backend.User]
	Rows  []userRow
	Roles []roles.Role
}

// AdminUsersListHandler renders user management (GET /users)
func (s *Server) AdminUsersListHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		api := s.requestAPI(r)

		var view usersView
		var err error
		if view.Roles, err = api.ListRoles(r.Context()); err != nil && s.handleAPIError(w, r, err) {
			return
		}
		if view.Page, err = api.ListUsers(r.Context(), pageQuery(r)); err != nil && s.handleAPIError(w, r, err) {
			return
		}

		known := make(map[int]bool, len(view.Roles))
		for _, role := range view.Roles {
			known[role.ID] = true
		}
		for _, u := range view.Page.Items {
			row := userRow{User: u}
			for _, ref := range u.Roles {
				if !known[ref.ID] {
					row.Unknown = append(row.Unknown, ref.ID)
				}
			}
			view.Rows = append(view.Rows, row)
		}
		s.renderPage(w, r, "users", "Usuarios", "users.html", view)
	}
}

// AdminUserCreateHandler handles POST /users
func (s *Server) AdminUserCreateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := userForm(r)
		if err == nil {
			var u *backend.User
			if u, err = s.requestAPI(r).CreateUser(r.Context(), in); err == nil {
				s.toast(r, notify.LevelSuccess, fmt.Sprintf("Usuario %s creado", u.Email))
			}
		}
		s.finishForm(w, r, RouteUsers, err)
	}
}

// AdminUserUpdateHandler handles POST /users/{id}. An empty password keeps the current one.
func (s *Server) AdminUserUpdateHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		in, err := userUpdateForm(r)
		if err == nil {
			if _, err = s.requestAPI(r).UpdateUser(r.Context(), r.PathValue("id"), in); err == nil {
				s.toast(r, notify.LevelSuccess, "Usuario actualizado")
			}
		}
		s.finishForm(w, r, RouteUsers, err)
	}
}

// AdminUserDeleteHandler handles POST /users/{id}/delete
func (s *Server) AdminUserDeleteHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := r.PathValue("id")
		var err error
		if user := s.currentUserID(r); user != "" && user == id {
			err = formError("no puedes eliminar tu propio usuario")
		} else if err = s.requestAPI(r).DeleteUser(r.Context(), id); err == nil {
			s.toast(r, notify.LevelSuccess, "Usuario eliminado")
		}
		s.finishForm(w, r, RouteUsers, err)
	}
}

func userForm(r *http.Request) (backend.UserInput, error) {
	ids, err := roleIDs(r)
	if err != nil {
		return backend.UserInput{}, err
	}
	return backend.UserInput{
		Name:     r.PostFormValue("name"),
		Email:    r.PostFormValue("email"),
		Password: r.PostFormValue("password"),
		RoleIDs:  ids,
	}, nil
}

func userUpdateForm(r *http.Request) (backend.UserUpdate, error) {
	ids, err := roleIDs(r)
	if err != nil {
		return backend.UserUpdate{}, err
	}
	return backend.UserUpdate{
		Name:     utils.Ptr(r.PostFormValue("name")),
		Email:    utils.Ptr(r.PostFormValue("email")),
		Password: utils.NonZero(r.PostFormValue("password")),
		RoleIDs:  &ids,
		Active:   utils.Ptr(r.PostFormValue("active") == "true"),
	}, nil
}

func roleIDs(r *http.Request) ([]int, error) {
	if err := r.ParseForm(); err != nil {
		return nil, formError("formulario inválido")
	}
	ids := make([]int, 0, len(r.PostForm["role_id"]))
	for _, v := range r.PostForm["role_id"] {
		id, err := strconv.Atoi(v)
		if err != nil {
			return nil, formError("rol inválido")
		}
		ids = append(ids, id)
	}
	return ids, nil
}
