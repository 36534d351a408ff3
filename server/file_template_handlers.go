package server

import (
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"strings"
	"time"

	"github.com/jrsteele09/aqua-control/guard"
	"github.com/jrsteele09/aqua-control/notify"
	"github.com/jrsteele09/aqua-control/roles"
	"github.com/jrsteele09/aqua-control/sessions"
	"github.com/rs/zerolog/log"
)

//go:embed templates/*
var templateFiles embed.FS

const (
	contentTypeHTML = "text/html; charset=utf-8"
	layoutTemplate  = "layout.html"
)

// Content templates rendered inside the layout
var pageTemplates = []string{
	"dashboard.html",
	"products.html",
	"checkout.html",
	"purchases.html",
	"reports.html",
	"users.html",
}

func TemplateFilesFS() fs.FS {
	// Create the sub filesystem once
	subFS, err := fs.Sub(templateFiles, "templates")
	if err != nil {
		panic("Failed to create templates sub filesystem: " + err.Error())
	}
	return subFS
}

// templateFuncs are available to every template
func templateFuncs() template.FuncMap {
	funcs := guard.FuncMap()
	funcs["money"] = func(v float64) string { return fmt.Sprintf("$%.2f", v) }
	funcs["date"] = func(t time.Time) string {
		if t.IsZero() {
			return ""
		}
		return t.Format("02/01/2006 15:04")
	}
	funcs["add"] = func(a, b int) int { return a + b }
	funcs["sub"] = func(a, b int) int { return a - b }
	funcs["hasRef"] = func(refs []roles.Ref, id int) bool {
		for _, ref := range refs {
			if ref.ID == id {
				return true
			}
		}
		return false
	}
	return funcs
}

// ParseTemplate parses a template from the embedded filesystem
func ParseTemplate(name string) (*template.Template, error) {
	content, err := fs.ReadFile(TemplateFilesFS(), name)
	if err != nil {
		return nil, err
	}
	return template.New(name).Funcs(templateFuncs()).Parse(string(content))
}

// pages holds the parsed layout and content templates
type pages struct {
	layout  *template.Template
	login   *template.Template
	expired *template.Template
	content map[string]*template.Template
}

func loadPages() (*pages, error) {
	p := &pages{content: make(map[string]*template.Template, len(pageTemplates))}
	var err error
	if p.layout, err = ParseTemplate(layoutTemplate); err != nil {
		return nil, fmt.Errorf("%s: %w", layoutTemplate, err)
	}
	if p.login, err = ParseTemplate("login.html"); err != nil {
		return nil, fmt.Errorf("login.html: %w", err)
	}
	if p.expired, err = ParseTemplate("session_expired.html"); err != nil {
		return nil, fmt.Errorf("session_expired.html: %w", err)
	}
	for _, name := range pageTemplates {
		tmpl, err := ParseTemplate(name)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", name, err)
		}
		p.content[name] = tmpl
	}
	return p, nil
}

// pageView is the data every content template receives
type pageView struct {
	User  *sessions.UserInfo
	Roles []roles.Name
	Query map[string]string
	Data  any
}

type layoutView struct {
	AppName    string
	ActivePage string
	PageTitle  string
	User       *sessions.UserInfo
	Roles      []roles.Name
	Toasts     []notify.Toast
	Content    template.HTML
}

// renderPage renders a content template inside the dashboard layout
func (s *Server) renderPage(w http.ResponseWriter, r *http.Request, activePage, pageTitle, contentTemplate string, data any) {
	subject := guard.SubjectFrom(r.Context())

	contentTmpl, ok := s.templates.content[contentTemplate]
	if !ok {
		http.Error(w, "Failed to load content template", http.StatusInternalServerError)
		return
	}

	query := make(map[string]string, len(r.URL.Query()))
	for k := range r.URL.Query() {
		query[k] = r.URL.Query().Get(k)
	}

	// Render content to string
	var contentBuf strings.Builder
	view := pageView{User: subject.User, Roles: subject.Roles(), Query: query, Data: data}
	if err := contentTmpl.Execute(&contentBuf, view); err != nil {
		log.Err(err).Str("template", contentTemplate).Msg("Failed to render content")
		http.Error(w, "Failed to render content", http.StatusInternalServerError)
		return
	}

	layout := layoutView{
		AppName:    s.config.GetAppName(),
		ActivePage: activePage,
		PageTitle:  pageTitle,
		User:       subject.User,
		Roles:      subject.Roles(),
		Toasts:     s.toasts.Drain(subject.SessionID),
		Content:    template.HTML(contentBuf.String()),
	}

	w.Header().Set("Content-Type", contentTypeHTML)
	if err := s.templates.layout.Execute(w, layout); err != nil {
		log.Err(err).Msg("Failed to render layout")
	}
}
