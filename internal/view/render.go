// internal/view/render.go
//
// Page layout engine: one base layout, an optional on-disk override, a
// small func-map, and a Page value every handler fills in.
//
// Public helpers
// --------------
//   - New     – parse the embedded layout, then overrides from fsys.
//   - Render  – write a full page to an http.ResponseWriter.
//
// Lookup precedence (last parse wins):
//   1. templates/layout.html embedded in this package.
//   2. layout.html in the override fs (site root `templates/`), when given.
//
// Handlers never build <html> themselves; they produce a body fragment
// (content blocks, a rendered form, a thank-you note) and a head.Builder,
// and the layout wraps them.
//
// Style
// -----
// • Oxford commas, two spaces after periods.

package view

import (
	"bytes"
	"embed"
	"errors"
	"html/template"
	"io/fs"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/head"
)

//go:embed templates/*.html
var builtin embed.FS

// LayoutName is the root template executed for every page.
const LayoutName = "layout.html"

// NavLink is one entry in the services navigation.
type NavLink struct {
	Label string
	Href  string
}

// Page is the layout's data.
type Page struct {
	Head *head.Builder
	Body template.HTML
	Nav  []NavLink
}

// Site holds values every page shows.
type Site struct {
	Business string
	Phone    string
}

// Engine renders pages.  It is immutable after New and safe for
// concurrent use.
type Engine struct {
	t    *template.Template
	site Site
}

// New parses the built-in layout and, when override is non-nil and holds a
// layout.html, that file on top of it.
func New(site Site, override fs.FS) (*Engine, error) {
	t, err := template.New(LayoutName).Funcs(funcMap()).ParseFS(builtin, "templates/*.html")
	if err != nil {
		return nil, err
	}
	if override != nil {
		if _, err := fs.Stat(override, LayoutName); err == nil {
			if t, err = t.ParseFS(override, LayoutName); err != nil {
				return nil, err
			}
			zap.S().Infow("view: layout override loaded")
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}
	return &Engine{t: t, site: site}, nil
}

// Render executes the layout into a buffer first so a template error never
// leaves a half-written 200 response.
func (e *Engine) Render(w http.ResponseWriter, code int, p Page) {
	if p.Head == nil {
		p.Head = head.New()
	}
	var buf bytes.Buffer
	err := e.t.ExecuteTemplate(&buf, LayoutName, map[string]any{
		"Head": p.Head,
		"Body": p.Body,
		"Nav":  p.Nav,
		"Site": e.site,
	})
	if err != nil {
		zap.S().Errorw("view: render failed", "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(code)
	_, _ = buf.WriteTo(w)
}

//
// func-map
//

func funcMap() template.FuncMap {
	return template.FuncMap{
		"dict":  dict,
		"asset": func(p string) string { return "/assets/" + p },
		"year":  func() int { return time.Now().Year() },
	}
}

// dict builds a map in templates: {{ dict "k" 1 "k2" "v" }}.
func dict(kv ...any) map[string]any {
	m := make(map[string]any, len(kv)/2)
	for i := 0; i+1 < len(kv); i += 2 {
		key, _ := kv[i].(string)
		m[key] = kv[i+1]
	}
	return m
}
