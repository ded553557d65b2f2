// internal/places/google.go
//
// Google Places client.
//
// Context
// -------
// Two endpoints are used: Place Autocomplete for suggestions and Place
// Details for the address components of the chosen suggestion.  Both go
// through the googlemaps.github.io/maps client.  Suggestions and details are
// cached in an LRU, and concurrent detail requests for the same place
// collapse into one upstream call through singleflight.
//
// Notes
// -----
//   - Status "ZERO_RESULTS" is a successful empty answer, not an error.
//   - The maps client's own limiter is off unless QPS is set.  Callers
//     reach this client through the per-IP limiter on the proxy routes.
//   - Oxford commas, two spaces after periods.

package places

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/singleflight"
	"googlemaps.github.io/maps"

	"github.com/yanizio/tradesite/internal/booking"
	"github.com/yanizio/tradesite/internal/cache"
	"github.com/yanizio/tradesite/internal/metrics"
)

// GoogleConfig configures GoogleClient.
type GoogleConfig struct {
	APIKey     string
	BaseURL    string        // maps default when empty
	Country    string        // ISO-3166 alpha-2 restriction, e.g. "au"
	Timeout    time.Duration // per request, 5s when zero
	CacheSize  int           // entries per cache, 512 when zero
	CacheTTL   time.Duration // 10m when zero
	QPS        int           // client-side request limit, off when zero
	HTTPClient *http.Client  // overrides Timeout when set
}

// GoogleClient implements Lookup against the Places API.
type GoogleClient struct {
	api     *maps.Client
	country string

	preds   *cache.LRU[string, []Prediction]
	details *cache.LRU[string, booking.Address]
	group   singleflight.Group
}

var _ Lookup = (*GoogleClient)(nil)

// NewGoogleClient builds a client.  It performs no I/O.
func NewGoogleClient(cfg GoogleConfig) (*GoogleClient, error) {
	if cfg.Timeout == 0 {
		cfg.Timeout = 5 * time.Second
	}
	if cfg.CacheSize == 0 {
		cfg.CacheSize = 512
	}
	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = 10 * time.Minute
	}
	hc := cfg.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: cfg.Timeout}
	}
	opts := []maps.ClientOption{
		maps.WithAPIKey(cfg.APIKey),
		maps.WithHTTPClient(hc),
		maps.WithRateLimit(cfg.QPS),
	}
	if cfg.BaseURL != "" {
		opts = append(opts, maps.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")))
	}
	api, err := maps.NewClient(opts...)
	if err != nil {
		return nil, fmt.Errorf("places: %w", err)
	}
	return &GoogleClient{
		api:     api,
		country: strings.ToLower(cfg.Country),
		preds:   cache.New[string, []Prediction](cfg.CacheSize, cfg.CacheTTL),
		details: cache.New[string, booking.Address](cfg.CacheSize, cfg.CacheTTL),
	}, nil
}

// GoogleLoader returns a Loader for cfg.  A missing or malformed key fails
// permanently.
func GoogleLoader(cfg GoogleConfig) Loader {
	return func(context.Context) (Lookup, error) {
		if cfg.APIKey == "" {
			return nil, backoff.Permanent(errors.New("places: no API key configured"))
		}
		c, err := NewGoogleClient(cfg)
		if err != nil {
			return nil, backoff.Permanent(err)
		}
		return c, nil
	}
}

// zeroResults reports whether err is the maps client's ZERO_RESULTS status.
func zeroResults(err error) bool {
	return err != nil && strings.Contains(err.Error(), "ZERO_RESULTS")
}

/*──────────────────────────── Lookup ───────────────────────────────*/

// Autocomplete returns address suggestions for input.
func (c *GoogleClient) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	key := strings.ToLower(strings.TrimSpace(input))
	if key == "" {
		return nil, nil
	}
	if p, ok := c.preds.Get(key); ok {
		metrics.PlaceLookups.WithLabelValues("autocomplete", metrics.OutcomeHit).Inc()
		return p, nil
	}

	req := &maps.PlaceAutocompleteRequest{
		Input: input,
		Types: maps.AutocompletePlaceTypeAddress,
	}
	if c.country != "" {
		req.Components = map[maps.Component][]string{maps.ComponentCountry: {c.country}}
	}
	resp, err := c.api.PlaceAutocomplete(ctx, req)
	if err != nil && !zeroResults(err) {
		metrics.PlaceLookups.WithLabelValues("autocomplete", metrics.OutcomeError).Inc()
		return nil, fmt.Errorf("places: autocomplete: %w", err)
	}
	out := make([]Prediction, 0, len(resp.Predictions))
	for _, p := range resp.Predictions {
		out = append(out, Prediction{PlaceID: p.PlaceID, Description: p.Description})
	}
	c.preds.Add(key, out)
	metrics.PlaceLookups.WithLabelValues("autocomplete", metrics.OutcomeMiss).Inc()
	return out, nil
}

// Details resolves placeID into a structured address.
func (c *GoogleClient) Details(ctx context.Context, placeID string) (booking.Address, error) {
	if placeID == "" {
		return booking.Address{}, errors.New("places: empty place id")
	}
	if a, ok := c.details.Get(placeID); ok {
		metrics.PlaceLookups.WithLabelValues("details", metrics.OutcomeHit).Inc()
		return cloneAddr(a), nil
	}

	v, err, _ := c.group.Do(placeID, func() (any, error) {
		res, err := c.api.PlaceDetails(ctx, &maps.PlaceDetailsRequest{
			PlaceID: placeID,
			Fields: []maps.PlaceDetailsFieldMask{
				maps.PlaceDetailsFieldMaskFormattedAddress,
				maps.PlaceDetailsFieldMaskAddressComponent,
			},
		})
		if err != nil {
			return nil, fmt.Errorf("places: details: %w", err)
		}
		addr := toAddress(res)
		c.details.Add(placeID, addr)
		return addr, nil
	})
	if err != nil {
		metrics.PlaceLookups.WithLabelValues("details", metrics.OutcomeError).Inc()
		return booking.Address{}, err
	}
	metrics.PlaceLookups.WithLabelValues("details", metrics.OutcomeMiss).Inc()
	return cloneAddr(v.(booking.Address)), nil
}

// toAddress maps Google component types onto booking component keys.
func toAddress(r maps.PlaceDetailsResult) booking.Address {
	comps := map[string]string{}
	for _, c := range r.AddressComponents {
		for _, t := range c.Types {
			switch t {
			case "street_number":
				comps[booking.ComponentStreetNumber] = c.LongName
			case "route":
				comps[booking.ComponentRoute] = c.LongName
			case "locality":
				comps[booking.ComponentLocality] = c.LongName
			case "administrative_area_level_1":
				comps[booking.ComponentRegion] = c.ShortName
			case "country":
				comps[booking.ComponentCountry] = c.ShortName
			case "postal_code":
				comps[booking.ComponentPostalCode] = c.LongName
			}
		}
	}
	return booking.Address{
		Formatted:      r.FormattedAddress,
		FromSuggestion: true,
		Components:     comps,
	}
}

func cloneAddr(a booking.Address) booking.Address {
	out := a
	out.Components = make(map[string]string, len(a.Components))
	for k, v := range a.Components {
		out.Components[k] = v
	}
	return out
}
