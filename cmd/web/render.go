package main

import (
	"bytes"
	"fmt"
	"html/template"
	"io/fs"
	"net/http"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/villa-azur/web/internal/gallery"
	handlersPkg "github.com/villa-azur/web/internal/handlers"
	"github.com/villa-azur/web/internal/i18n"
	"github.com/villa-azur/web/internal/observability"
)

// renderer owns the parsed template sets. Every page file under pages/ gets its own
// clone of the shared layout and fragments, so each can define "content".
type renderer struct {
	dir    string
	dev    bool
	funcs  template.FuncMap
	mu     sync.RWMutex
	shared *template.Template
	pages  map[string]*template.Template
}

func newRenderer(dir string, dev bool, bundle *i18n.Bundle) (*renderer, error) {
	r := &renderer{dir: dir, dev: dev, funcs: templateFuncs(bundle)}
	if err := r.load(); err != nil {
		return nil, err
	}
	return r, nil
}

func templateFuncs(bundle *i18n.Bundle) template.FuncMap {
	return template.FuncMap{
		"now":  time.Now,
		"t":    bundle.T,
		"tf":   bundle.Tf,
		"href": handlersPkg.Href,
		"css": func(t gallery.Transition) template.CSS {
			// Transitions are built from internal constants only.
			return template.CSS(t.Style())
		},
		"inc": func(i int) int { return i + 1 },
		"km":  func(v float64) string { return fmt.Sprintf("%.0f km", v) },
	}
}

func (r *renderer) load() error {
	shared, pages, err := r.parse()
	if err != nil {
		return err
	}
	r.mu.Lock()
	r.shared, r.pages = shared, pages
	r.mu.Unlock()
	return nil
}

func (r *renderer) parse() (*template.Template, map[string]*template.Template, error) {
	var sharedFiles, pageFiles []string
	if err := filepath.WalkDir(r.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || !strings.HasSuffix(d.Name(), ".tmpl") {
			return nil
		}
		if filepath.Base(filepath.Dir(path)) == "pages" {
			pageFiles = append(pageFiles, path)
		} else {
			sharedFiles = append(sharedFiles, path)
		}
		return nil
	}); err != nil {
		return nil, nil, err
	}
	if len(sharedFiles) == 0 || len(pageFiles) == 0 {
		return nil, nil, fmt.Errorf("no templates found under %s", r.dir)
	}
	shared, err := template.New("_root").Funcs(r.funcs).ParseFiles(sharedFiles...)
	if err != nil {
		return nil, nil, err
	}
	pages := make(map[string]*template.Template, len(pageFiles))
	for _, file := range pageFiles {
		clone, err := shared.Clone()
		if err != nil {
			return nil, nil, err
		}
		if _, err := clone.ParseFiles(file); err != nil {
			return nil, nil, err
		}
		pages[strings.TrimSuffix(filepath.Base(file), ".tmpl")] = clone
	}
	return shared, pages, nil
}

// sets returns the current template sets, reparsing first in dev mode.
func (r *renderer) sets() (*template.Template, map[string]*template.Template, error) {
	if r.dev {
		if err := r.load(); err != nil {
			return nil, nil, err
		}
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.shared, r.pages, nil
}

// page executes the base layout around the named page.
func (r *renderer) page(name string, data any) ([]byte, error) {
	_, pages, err := r.sets()
	if err != nil {
		return nil, err
	}
	t, ok := pages[name]
	if !ok {
		return nil, fmt.Errorf("unknown page %q", name)
	}
	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "base", data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// fragment executes a shared template by name.
func (r *renderer) fragment(name string, data any) ([]byte, error) {
	shared, _, err := r.sets()
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	if err := shared.ExecuteTemplate(&buf, name, data); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func (s *server) renderPage(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.render.page(name, data)
	if err != nil {
		observability.FromContextOr(r.Context(), s.logger).Error("render page", zap.String("page", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func (s *server) renderTemplate(w http.ResponseWriter, r *http.Request, status int, name string, data any) {
	body, err := s.render.fragment(name, data)
	if err != nil {
		observability.FromContextOr(r.Context(), s.logger).Error("render fragment", zap.String("template", name), zap.Error(err))
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}
