// internal/component/deps.go
package component

import (
	"github.com/jmoiron/sqlx"

	"github.com/yanizio/tradesite/internal/config"
	"github.com/yanizio/tradesite/internal/content"
	"github.com/yanizio/tradesite/internal/form"
	"github.com/yanizio/tradesite/internal/middleware"
	"github.com/yanizio/tradesite/internal/notify"
	"github.com/yanizio/tradesite/internal/places"
	"github.com/yanizio/tradesite/internal/routing"
	"github.com/yanizio/tradesite/internal/view"
)

// Deps exposes process-wide resources to Components during Init.
type Deps struct {
	Config     *config.Config
	DB         *sqlx.DB // nil when the submission log is disabled
	Dispatcher *notify.Dispatcher
	Places     *places.Handle
	Tokens     *form.Tokens // CSRF signer for HTML forms
	Content    *content.Site
	Limiter    *middleware.Limiter // nil disables rate limiting
	View       *view.Engine
}

// Nav lists service pages for the site header.
func (d Deps) Nav() []view.NavLink {
	if d.Content == nil {
		return nil
	}
	svc := d.Content.Services()
	out := make([]view.NavLink, 0, len(svc))
	for _, p := range svc {
		out = append(out, view.NavLink{Label: p.Title, Href: routing.BuildPath("services", p.Slug)})
	}
	return out
}
