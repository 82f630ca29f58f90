package httpserver

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"os"

	"go.uber.org/zap"

	"finitefield.org/inn-kiosk/internal/observability"
	"finitefield.org/inn-kiosk/public"
)

// renderer executes the page templates. In dev mode templates are re-parsed from
// disk on each request.
type renderer struct {
	dev   bool
	dir   string
	cache *template.Template
}

func newRenderer(dev bool, dir string) (*renderer, error) {
	r := &renderer{dev: dev, dir: dir}
	if dev {
		return r, nil
	}
	fsys, err := public.TemplatesFS()
	if err != nil {
		return nil, fmt.Errorf("embed templates: %w", err)
	}
	t, err := parseTemplates(fsys)
	if err != nil {
		return nil, err
	}
	r.cache = t
	return r, nil
}

func parseTemplates(fsys fs.FS) (*template.Template, error) {
	t, err := template.New("_root").ParseFS(fsys, "*.tmpl")
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	return t, nil
}

func (r *renderer) templates() (*template.Template, error) {
	if r.dev {
		return parseTemplates(os.DirFS(r.dir))
	}
	if r.cache == nil {
		return nil, fmt.Errorf("templates not initialized")
	}
	return r.cache, nil
}

// render executes name into a buffer first so a failing template never leaves a
// half-written response.
func (r *renderer) render(w http.ResponseWriter, req *http.Request, status int, name string, data any) {
	logger := observability.FromContext(req.Context())
	t, err := r.templates()
	if err != nil {
		logger.Error("load templates", zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, name, data); err != nil {
		logger.Error("execute template", zap.String("template", name), zap.Error(err))
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = buf.WriteTo(w)
}
