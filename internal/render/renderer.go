package render

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"

	"github.com/avelarde/devtrack/internal/logging"
)

// Renderer renders named HTML views from an embedded filesystem. Handlers
// hand it a template name and a data object and nothing else; view internals
// stay out of the controller layer.
type Renderer struct {
	views map[string]*template.Template
}

// New parses every view under views/*.tmpl. Each view is a standalone
// document keyed by its file name without extension.
func New(fsys fs.FS) (*Renderer, error) {
	entries, err := fs.Glob(fsys, "views/*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("failed to list views: %w", err)
	}

	views := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		name := entry[len("views/") : len(entry)-len(".tmpl")]
		tmpl, err := template.ParseFS(fsys, entry)
		if err != nil {
			return nil, fmt.Errorf("failed to parse view %s: %w", name, err)
		}
		views[name] = tmpl
	}

	return &Renderer{views: views}, nil
}

// Render writes the named view with the given status code. A missing view or
// execution failure degrades to a plain 500; the error is logged, not shown.
func (r *Renderer) Render(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	tmpl, ok := r.views[name]
	if !ok {
		logging.FromContext(req.Context()).Error("unknown view", "view", name)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	// Render to a buffer first so a template failure cannot leave a
	// half-written page behind a 200 header.
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		logging.FromContext(req.Context()).Error("failed to render view", "view", name, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
