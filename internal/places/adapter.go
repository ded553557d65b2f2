// internal/places/adapter.go
//
// Per-form bridge between the address field and the Handle.

package places

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/yanizio/tradesite/internal/booking"
)

// Adapter tracks one address field.  Every accepted value, typed or
// selected, is forwarded to the sink (usually booking.Store.SetAddress).
type Adapter struct {
	h    *Handle
	sink func(booking.Address)

	mu            sync.Mutex
	manual        bool
	toggleVisible bool
	text          string
}

// NewAdapter binds a handle to an address sink.  sink may be nil.
func NewAdapter(h *Handle, sink func(booking.Address)) *Adapter {
	if sink == nil {
		sink = func(booking.Address) {}
	}
	return &Adapter{h: h, sink: sink}
}

// Focus reveals the manual-entry toggle.  It stays visible afterwards.
func (a *Adapter) Focus() {
	a.mu.Lock()
	a.toggleVisible = true
	a.mu.Unlock()
}

// ManualToggleVisible reports whether the field has been focused.
func (a *Adapter) ManualToggleVisible() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.toggleVisible
}

// SetManual turns manual entry on or off.
func (a *Adapter) SetManual(on bool) {
	a.mu.Lock()
	a.manual = on
	a.mu.Unlock()
}

// Manual reports whether manual entry is on.
func (a *Adapter) Manual() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.manual
}

// Degraded reports whether input is plain text only, either by choice or
// because the lookup is not Ready.
func (a *Adapter) Degraded() bool {
	if a.Manual() {
		return true
	}
	_, ok := a.h.Lookup()
	return !ok
}

// Input records typed text as the current address and, when suggestions
// are available, returns them.  Degraded mode returns no suggestions and no
// error.  A lookup failure is returned but the typed text is kept.
func (a *Adapter) Input(ctx context.Context, text string) ([]Prediction, error) {
	a.mu.Lock()
	a.text = text
	manual := a.manual
	a.mu.Unlock()

	a.sink(booking.Address{Formatted: text})

	if manual || strings.TrimSpace(text) == "" {
		return nil, nil
	}
	l, ok := a.h.Lookup()
	if !ok {
		return nil, nil
	}
	preds, err := l.Autocomplete(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("places: autocomplete: %w", err)
	}
	return preds, nil
}

// Select resolves a chosen suggestion into a structured address.
func (a *Adapter) Select(ctx context.Context, placeID string) (booking.Address, error) {
	if a.Manual() {
		return booking.Address{}, fmt.Errorf("%w: manual entry is on", ErrUnavailable)
	}
	l, ok := a.h.Lookup()
	if !ok {
		return booking.Address{}, ErrUnavailable
	}
	addr, err := l.Details(ctx, placeID)
	if err != nil {
		return booking.Address{}, fmt.Errorf("places: details: %w", err)
	}
	addr.FromSuggestion = true

	a.mu.Lock()
	a.text = addr.Formatted
	a.mu.Unlock()
	a.sink(addr)
	return addr, nil
}

// Text returns the field's current text.
func (a *Adapter) Text() string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.text
}
