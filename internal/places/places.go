// internal/places/places.go
//
// Address resolution.
//
// Context
// -------
// Customers type a job address.  When a place-lookup service is reachable
// the text is forwarded to it and the customer may pick a suggestion, which
// resolves to a structured booking.Address.  When the service is missing,
// still loading, or failed, the field degrades to plain manual entry.  The
// form never blocks on the lookup.
//
// Three pieces cooperate:
//
//   - Lookup is the external service contract.  GoogleClient talks to the
//     Places JSON API directly and RemoteLookup talks to this site's own
//     proxy endpoints.
//   - Handle owns the lifecycle of one Lookup: Uninitialized, Loading,
//     Ready, or Failed.  Init retries a bounded number of times.
//   - Adapter is the per-form bridge that decides, per keystroke, whether
//     to call the Lookup at all.
//
// Notes
// -----
//   - Oxford commas, two spaces after periods.
package places

import (
	"context"
	"errors"

	"github.com/yanizio/tradesite/internal/booking"
)

// ErrUnavailable is returned when no Ready lookup is attached.
var ErrUnavailable = errors.New("places: lookup unavailable")

// Prediction is one autocomplete suggestion.
type Prediction struct {
	PlaceID     string `json:"placeId"`
	Description string `json:"description"`
}

// Lookup is the external place-lookup service.
type Lookup interface {
	Autocomplete(ctx context.Context, input string) ([]Prediction, error)
	Details(ctx context.Context, placeID string) (booking.Address, error)
}
