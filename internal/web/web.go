package web

import (
	"embed"
	"fmt"
	"html/template"
	"net/http"

	"github.com/rs/zerolog/log"
)

//go:embed templates/*.html
var files embed.FS

// Page is the envelope every template receives. Data carries the
// page-specific payload.
type Page struct {
	Title     string
	Messages  map[string]string
	Errors    map[string]string
	Old       map[string]string
	CSRFToken string
	Username  string // empty when anonymous
	Data      any
}

// Renderer renders the embedded HTML pages.
type Renderer struct {
	templates map[string]*template.Template
}

// New parses every page template against the shared layout.
func New() (*Renderer, error) {
	pages := []string{"index", "create", "edit", "login"}
	templates := make(map[string]*template.Template, len(pages))
	for _, page := range pages {
		t, err := template.ParseFS(files, "templates/layout.html", "templates/"+page+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", page, err)
		}
		templates[page] = t
	}
	return &Renderer{templates: templates}, nil
}

// Render writes the named page. Template execution failures are logged and
// answered with a bare 500; by that point headers may already be out.
func (r *Renderer) Render(w http.ResponseWriter, page string, data Page) {
	t, ok := r.templates[page]
	if !ok {
		log.Error().Str("page", page).Msg("Unknown template requested")
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := t.ExecuteTemplate(w, "layout", data); err != nil {
		log.Error().Err(err).Str("page", page).Msg("Failed to render template")
	}
}
