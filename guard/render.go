package guard

import (
	"html/template"
	"net/http"

	"github.com/jrsteele09/aqua-control/roles"
)

// ConditionalRender returns children when the request's subject holds one of allowed,
// otherwise fallback. Pass an empty fallback to render nothing.
func ConditionalRender(r *http.Request, allowed []roles.Name, children, fallback template.HTML) template.HTML {
	if Check(r.Context(), allowed) == DecisionAuthorized {
		return children
	}
	return fallback
}

// FuncMap exposes role checks to page templates:
//
//	{{if can .Roles "Administrador" "Asistente"}}...{{end}}
//	{{if canAll .Roles "Administrador" "Entrenador"}}...{{end}}
func FuncMap() template.FuncMap {
	return template.FuncMap{
		"can": func(user []roles.Name, allowed ...string) bool {
			names, _ := parseNames(allowed)
			return roles.HasAnyRole(user, names)
		},
		"canAll": func(user []roles.Name, required ...string) bool {
			names, ok := parseNames(required)
			return ok && roles.HasAllRoles(user, names)
		},
		"primaryRole": func(user []roles.Name) string {
			name, _ := roles.PrimaryRole(user)
			return name.String()
		},
	}
}

// parseNames converts template strings to role names; ok is false if any was unknown
func parseNames(in []string) (out []roles.Name, ok bool) {
	ok = true
	out = make([]roles.Name, 0, len(in))
	for _, s := range in {
		n, valid := roles.ParseName(s)
		if !valid {
			ok = false
			continue
		}
		out = append(out, n)
	}
	return out, ok
}
