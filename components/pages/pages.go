// components/pages/pages.go
//
// Pages component: the home page, one page per service, and plain pages
// such as /about, all built from content blocks.  Static routes from other
// components (/booking, /healthz) win over the /{slug} pattern.
//
//------------------------------------------------------------------------------

package pages

import (
	"errors"
	"html/template"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/component"
	"github.com/yanizio/tradesite/internal/content"
	"github.com/yanizio/tradesite/internal/head"
	"github.com/yanizio/tradesite/internal/routing"
	"github.com/yanizio/tradesite/internal/view"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component serves content pages.
type Component struct {
	deps component.Deps
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "pages" }

// Migrations returns the legacy redirect table.  Pages themselves are
// files.
func (c *Component) Migrations() []string { return []string{routing.Schema} }

// Init captures the content catalogue and layout.
func (c *Component) Init(d component.Deps) error {
	if d.Content == nil || d.View == nil {
		return errors.New("pages: content and view are required")
	}
	c.deps = d
	return nil
}

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get("/", c.handleHome)
	r.Get("/services/{slug}", c.handleService)
	r.Get("/{slug}", c.handlePage)
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }

/*──────────────────────────── Handlers ─────────────────────────────────────*/

func (c *Component) handleHome(w http.ResponseWriter, r *http.Request) {
	p, _ := c.deps.Content.Page(content.HomeSlug)
	c.render(w, r, p, "/")
}

func (c *Component) handleService(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, ok := c.deps.Content.Page(slug)
	if !ok || !p.Service {
		c.notFound(w)
		return
	}
	c.render(w, r, p, routing.BuildPath("services", slug))
}

func (c *Component) handlePage(w http.ResponseWriter, r *http.Request) {
	slug := chi.URLParam(r, "slug")
	p, ok := c.deps.Content.Page(slug)
	if !ok || p.Service || slug == content.HomeSlug {
		c.notFound(w)
		return
	}
	c.render(w, r, p, routing.BuildPath(slug))
}

/*──────────────────────────── Helpers ──────────────────────────────────────*/

func (c *Component) render(w http.ResponseWriter, r *http.Request, p *content.Page, path string) {
	body, err := p.Render()
	if err != nil {
		zap.S().Errorw("pages: render", "slug", p.Slug, "error", err)
		http.Error(w, "template error", http.StatusInternalServerError)
		return
	}

	cfg := c.deps.Config
	h := head.New()
	h.SetTitle(p.Title + " | " + cfg.Mail.Business)
	if p.Description != "" {
		h.Description(p.Description)
	}
	if cfg.HTTP.BaseURL != "" {
		h.Canonical(cfg.HTTP.BaseURL + path)
	}
	if p.Slug == content.HomeSlug {
		if err := h.JSONLD(localBusiness(cfg.Mail.Business, cfg.Mail.BusinessPhone, cfg.HTTP.BaseURL, c.deps.Content.ServiceTitles())); err != nil {
			zap.S().Warnw("pages: json-ld", "error", err)
		}
	}
	c.deps.View.Render(w, http.StatusOK, view.Page{Head: h, Body: body, Nav: c.deps.Nav()})
}

func (c *Component) notFound(w http.ResponseWriter) {
	h := head.New()
	h.SetTitle("Page not found | " + c.deps.Config.Mail.Business)
	h.Meta(`<meta name="robots" content="noindex">`)
	body := template.HTML(`<section class="block"><h1>Page not found</h1><p><a href="/">Back to home</a></p></section>`)
	c.deps.View.Render(w, http.StatusNotFound, view.Page{Head: h, Body: body, Nav: c.deps.Nav()})
}

// localBusiness builds the schema.org block shown to search engines.
func localBusiness(name, phone, url string, services []string) map[string]any {
	lb := map[string]any{
		"@context": "https://schema.org",
		"@type":    "HomeAndConstructionBusiness",
		"name":     name,
	}
	if phone != "" {
		lb["telephone"] = phone
	}
	if url != "" {
		lb["url"] = url
	}
	if len(services) > 0 {
		offers := make([]map[string]any, 0, len(services))
		for _, s := range services {
			offers = append(offers, map[string]any{
				"@type":       "Offer",
				"itemOffered": map[string]string{"@type": "Service", "name": s},
			})
		}
		lb["makesOffer"] = offers
	}
	return lb
}
