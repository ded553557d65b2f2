// internal/content/page.go
//
// Pages and the site catalogue.
//
// Context
// -------
// One YAML file per page under content/.  The file name (minus .yaml) is
// the slug; `home` is served at “/” and pages with `service: true` at
// “/services/{slug}” and in the services navigation.  LoadFS parses every
// file up front so a typo stops the server at boot.
//
//------------------------------------------------------------------------------

package content

import (
	"bytes"
	"embed"
	"fmt"
	"html/template"
	"io/fs"
	"path"
	"sort"
	"strings"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	"github.com/yanizio/tradesite/internal/routing"
)

//go:embed templates/*.html
var tplFS embed.FS

var tpl = template.Must(template.ParseFS(tplFS, "templates/*.html"))

// HomeSlug is the page served at “/”.
const HomeSlug = "home"

// Page is one marketing page.
type Page struct {
	Slug        string `yaml:"-"`
	Title       string `yaml:"title"`
	Description string `yaml:"description"`
	Service     bool   `yaml:"service"`
	Order       int    `yaml:"order"`
	Blocks      Blocks `yaml:"blocks"`
}

// Render executes each block's template in order.
func (p *Page) Render() (template.HTML, error) {
	var buf bytes.Buffer
	for i, b := range p.Blocks {
		if err := tpl.ExecuteTemplate(&buf, string(b.Kind())+".html", b); err != nil {
			return "", fmt.Errorf("render %s block %d (%s): %w", p.Slug, i, b.Kind(), err)
		}
	}
	return template.HTML(buf.String()), nil
}

// Site is the immutable page catalogue.
type Site struct {
	pages    map[string]*Page
	services []*Page
}

// Parse decodes one page document.
func Parse(slug string, raw []byte) (*Page, error) {
	if !routing.ValidSlug(slug) {
		return nil, fmt.Errorf("content %s: file name must be a slug such as %q", slug, routing.MakeSlug(slug))
	}
	var p Page
	if err := yaml.Unmarshal(raw, &p); err != nil {
		return nil, fmt.Errorf("content %s: %w", slug, err)
	}
	p.Slug = slug
	if p.Title == "" {
		return nil, fmt.Errorf("content %s: title is required", slug)
	}
	if len(p.Blocks) == 0 {
		return nil, fmt.Errorf("content %s: page has no blocks", slug)
	}
	return &p, nil
}

// LoadFS reads every *.yaml in the root of fsys.
func LoadFS(fsys fs.FS) (*Site, error) {
	matches, err := fs.Glob(fsys, "*.yaml")
	if err != nil {
		return nil, err
	}
	if len(matches) == 0 {
		return nil, fmt.Errorf("content: no *.yaml pages found")
	}

	s := &Site{pages: make(map[string]*Page, len(matches))}
	for _, name := range matches {
		raw, err := fs.ReadFile(fsys, name)
		if err != nil {
			return nil, err
		}
		p, err := Parse(strings.TrimSuffix(path.Base(name), ".yaml"), raw)
		if err != nil {
			return nil, err
		}
		s.pages[p.Slug] = p
		if p.Service {
			s.services = append(s.services, p)
		}
	}
	if _, ok := s.pages[HomeSlug]; !ok {
		return nil, fmt.Errorf("content: %s.yaml is required", HomeSlug)
	}
	sort.SliceStable(s.services, func(i, j int) bool {
		if s.services[i].Order != s.services[j].Order {
			return s.services[i].Order < s.services[j].Order
		}
		return s.services[i].Slug < s.services[j].Slug
	})
	zap.S().Infow("content loaded", "pages", len(s.pages), "services", len(s.services))
	return s, nil
}

// Page returns the page for slug.
func (s *Site) Page(slug string) (*Page, bool) {
	p, ok := s.pages[slug]
	return p, ok
}

// Services returns service pages in navigation order.
func (s *Site) Services() []*Page { return s.services }

// ServiceTitles lists service page titles; the booking form offers them as
// checkbox options.
func (s *Site) ServiceTitles() []string {
	out := make([]string, 0, len(s.services))
	for _, p := range s.services {
		out = append(out, p.Title)
	}
	return out
}
