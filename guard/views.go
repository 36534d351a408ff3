package guard

import (
	"embed"
	"html/template"
	"net/http"
	"net/url"
	"strings"

	"github.com/jrsteele09/aqua-control/roles"
	"github.com/rs/zerolog/log"
)

//go:embed views/*.html
var viewFiles embed.FS

const (
	loginPath          = "/login"
	loadingRetrySecs   = "2"
	msgUnauthenticated = "Debes iniciar sesión para acceder a esta página."
	msgNoRoles         = "Tu cuenta no tiene un rol reconocido. Contacta a un administrador."
	msgForbidden       = "No tienes permisos para acceder a esta página."
)

type views struct {
	tmpl *template.Template
}

type viewData struct {
	Title    string
	Message  string
	LoginURL string
	Allowed  []roles.Name
	Retry    string
}

func loadViews() *views {
	return &views{tmpl: template.Must(template.ParseFS(viewFiles, "views/*.html"))}
}

func (v *views) render(w http.ResponseWriter, r *http.Request, decision Decision, allowed []roles.Name) {
	data := viewData{LoginURL: loginURL(r)}
	name := "denied.html"
	status := http.StatusForbidden

	switch decision {
	case DecisionLoading:
		name = "loading.html"
		status = http.StatusOK
		data.Title = "Cargando"
		data.Retry = loadingRetrySecs
		w.Header().Set("Retry-After", loadingRetrySecs)
	case DecisionUnauthenticated:
		status = http.StatusUnauthorized
		data.Title = "Acceso restringido"
		data.Message = msgUnauthenticated
		if r.Header.Get("HX-Request") == "true" {
			w.Header().Set("HX-Redirect", data.LoginURL)
		}
	case DecisionNoRoles:
		data.Title = "Sin rol asignado"
		data.Message = msgNoRoles
	default:
		data.Title = "Acceso denegado"
		data.Message = msgForbidden
		data.Allowed = allowed
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	if err := v.tmpl.ExecuteTemplate(w, name, data); err != nil {
		log.Err(err).Str("view", name).Msg("failed to render guard view")
	}
}

func loginURL(r *http.Request) string {
	callback := r.URL.RequestURI()
	if r.Method != http.MethodGet || strings.HasPrefix(callback, loginPath) {
		return loginPath
	}
	return loginPath + "?callbackUrl=" + url.QueryEscape(callback)
}
