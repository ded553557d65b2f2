// internal/component/registry.go
//
// Component registry (cycle-free).
//
// Each concrete component lives under components/<name> and calls
// component.Register() in an init() function.  cmd/web blank-imports the
// components it wants, then calls Mount, which runs every Init with the
// shared Deps and copies each component's routes onto the root router.

package component

import (
	"fmt"
	"net/http"
	"sort"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// Initializer is optional.  If a Component implements it, Mount calls
// Init(deps) once before mounting routes.
type Initializer interface {
	Init(Deps) error
}

// Component contract.
//
// Migrations() may return nil if the component has no schema changes.
// Routes() should mount BOTH page and API endpoints, e.g:
//
//	r := chi.NewRouter()
//	r.Get("/booking", getForm)
//	r.Post("/api/send-booking-email", sendEmail)
//	return r
type Component interface {
	Name() string
	Routes() chi.Router
	Migrations() []string
}

var (
	mu       sync.RWMutex
	registry = map[string]Component{}
)

// Register is invoked from component init() functions.  Registering the
// same name twice panics.
func Register(c Component) {
	mu.Lock()
	defer mu.Unlock()
	if _, dup := registry[c.Name()]; dup {
		panic("component: duplicate registration " + c.Name())
	}
	registry[c.Name()] = c
}

// All returns every registered component sorted by name.
func All() []Component {
	mu.RLock()
	defer mu.RUnlock()
	out := make([]Component, 0, len(registry))
	for _, c := range registry {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name() < out[j].Name() })
	return out
}

// Migrations collects DDL from every component, in All() order.
func Migrations() []string {
	var out []string
	for _, c := range All() {
		out = append(out, c.Migrations()...)
	}
	return out
}

// Mount initialises every component with deps and registers its routes on
// r.  chi refuses two Mounts at “/”, so each route is walked and re-added
// with the middlewares the component attached to it.
func Mount(r chi.Router, deps Deps) error {
	for _, c := range All() {
		if in, ok := c.(Initializer); ok {
			if err := in.Init(deps); err != nil {
				return fmt.Errorf("component %s: init: %w", c.Name(), err)
			}
		}
		n := 0
		err := chi.Walk(c.Routes(), func(method, route string, h http.Handler, mws ...func(http.Handler) http.Handler) error {
			r.With(mws...).Method(method, route, h)
			n++
			return nil
		})
		if err != nil {
			return fmt.Errorf("component %s: routes: %w", c.Name(), err)
		}
		zap.S().Infow("component mounted", "component", c.Name(), "routes", n)
	}
	return nil
}
