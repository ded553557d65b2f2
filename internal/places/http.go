// internal/places/http.go
//
// Same-origin proxy for the lookup so browsers and the CLI never hold the
// upstream API key.  Every failure response carries "manual": true, which
// tells the caller to switch the address field to manual entry.

package places

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/yanizio/tradesite/internal/booking"
)

type autocompleteBody struct {
	Predictions []Prediction `json:"predictions"`
}

type detailsBody struct {
	Address booking.Address `json:"address"`
}

type statusBody struct {
	State  string `json:"state"`
	Manual bool   `json:"manual"`
	Error  string `json:"error,omitempty"`
}

// StatusHandler reports the handle state; 503 unless Ready.
func StatusHandler(h *Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		st := h.State()
		body := statusBody{State: st.String(), Manual: st != Ready}
		code := http.StatusOK
		if st != Ready {
			code = http.StatusServiceUnavailable
		}
		writeJSON(w, code, body)
	}
}

// AutocompleteHandler serves GET ?input=.
func AutocompleteHandler(h *Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		input := strings.TrimSpace(r.URL.Query().Get("input"))
		if input == "" {
			writeJSON(w, http.StatusBadRequest, statusBody{Error: "missing input"})
			return
		}
		l, ok := h.Lookup()
		if !ok {
			unavailable(w, h)
			return
		}
		preds, err := l.Autocomplete(r.Context(), input)
		if err != nil {
			zap.S().Warnw("places autocomplete failed", "error", err)
			writeJSON(w, http.StatusBadGateway, statusBody{State: h.State().String(), Manual: true, Error: "address lookup failed"})
			return
		}
		if preds == nil {
			preds = []Prediction{}
		}
		writeJSON(w, http.StatusOK, autocompleteBody{Predictions: preds})
	}
}

// DetailsHandler serves GET ?place_id=.
func DetailsHandler(h *Handle) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.URL.Query().Get("place_id"))
		if id == "" {
			writeJSON(w, http.StatusBadRequest, statusBody{Error: "missing place_id"})
			return
		}
		l, ok := h.Lookup()
		if !ok {
			unavailable(w, h)
			return
		}
		addr, err := l.Details(r.Context(), id)
		if err != nil {
			zap.S().Warnw("places details failed", "place_id", id, "error", err)
			writeJSON(w, http.StatusBadGateway, statusBody{State: h.State().String(), Manual: true, Error: "address lookup failed"})
			return
		}
		writeJSON(w, http.StatusOK, detailsBody{Address: addr})
	}
}

func unavailable(w http.ResponseWriter, h *Handle) {
	writeJSON(w, http.StatusServiceUnavailable, statusBody{
		State:  h.State().String(),
		Manual: true,
		Error:  "address lookup unavailable",
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		zap.S().Debugw("places: write response", "error", err)
	}
}
