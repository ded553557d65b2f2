// components/places/places.go
//
// Places component: same-origin proxy for address suggestions.
//
// The booking page script calls these endpoints instead of loading a
// third-party SDK, so the API key stays on the server and the page keeps
// working (manual entry) whenever the lookup is not Ready.
//
//------------------------------------------------------------------------------

package places

import (
	"errors"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/tradesite/internal/component"
	pl "github.com/yanizio/tradesite/internal/places"
)

// Compile-time assertion: *Component satisfies component.Component.
var _ component.Component = (*Component)(nil)

// Component mounts the lookup proxy.
type Component struct {
	h *pl.Handle
}

// Name returns the canonical component key.
func (c *Component) Name() string { return "places" }

// Migrations returns nil; the proxy keeps no state.
func (c *Component) Migrations() []string { return nil }

// Init captures the shared lookup handle.
func (c *Component) Init(d component.Deps) error {
	if d.Places == nil {
		return errors.New("places: handle is required")
	}
	c.h = d.Places
	return nil
}

// Routes builds and returns the router mounted at “/”.
func (c *Component) Routes() chi.Router {
	r := chi.NewRouter()
	r.Get(pl.PathStatus, pl.StatusHandler(c.h))
	r.Get(pl.PathAutocomplete, pl.AutocompleteHandler(c.h))
	r.Get(pl.PathDetails, pl.DetailsHandler(c.h))
	return r
}

// Register component at program start.
func init() { component.Register(&Component{}) }
