// internal/places/remote.go
//
// Lookup backed by this site's proxy endpoints.  Used by bookctl so the CLI
// exercises the same manual-fallback rules as the browser form.

package places

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/cenkalti/backoff/v4"

	"github.com/yanizio/tradesite/internal/booking"
)

// Proxy routes, relative to the site root.
const (
	PathStatus       = "/api/places/status"
	PathAutocomplete = "/api/places/autocomplete"
	PathDetails      = "/api/places/details"
)

// RemoteLookup calls a running site's /api/places endpoints.
type RemoteLookup struct {
	base string
	http *http.Client
}

var _ Lookup = (*RemoteLookup)(nil)

// NewRemoteLookup targets baseURL, e.g. "https://example.com.au".
func NewRemoteLookup(baseURL string, hc *http.Client) *RemoteLookup {
	if hc == nil {
		hc = http.DefaultClient
	}
	return &RemoteLookup{base: strings.TrimRight(baseURL, "/"), http: hc}
}

// RemoteLoader checks the status endpoint.  503 is retried, any other
// non-200 answer fails permanently.
func RemoteLoader(baseURL string, hc *http.Client) Loader {
	rl := NewRemoteLookup(baseURL, hc)
	return func(ctx context.Context) (Lookup, error) {
		code, err := rl.call(ctx, PathStatus, nil, &statusBody{})
		switch {
		case err == nil:
			return rl, nil
		case code == http.StatusServiceUnavailable || code == 0:
			return nil, err
		default:
			return nil, backoff.Permanent(err)
		}
	}
}

// Autocomplete implements Lookup.
func (r *RemoteLookup) Autocomplete(ctx context.Context, input string) ([]Prediction, error) {
	var body autocompleteBody
	if _, err := r.call(ctx, PathAutocomplete, url.Values{"input": {input}}, &body); err != nil {
		return nil, err
	}
	return body.Predictions, nil
}

// Details implements Lookup.
func (r *RemoteLookup) Details(ctx context.Context, placeID string) (booking.Address, error) {
	var body detailsBody
	if _, err := r.call(ctx, PathDetails, url.Values{"place_id": {placeID}}, &body); err != nil {
		return booking.Address{}, err
	}
	return body.Address, nil
}

func (r *RemoteLookup) call(ctx context.Context, path string, q url.Values, out any) (int, error) {
	u := r.base + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return 0, err
	}
	res, err := r.http.Do(req)
	if err != nil {
		return 0, fmt.Errorf("places: %s: %w", path, err)
	}
	defer res.Body.Close()

	if res.StatusCode != http.StatusOK {
		var sb statusBody
		_ = json.NewDecoder(res.Body).Decode(&sb)
		msg := sb.Error
		if msg == "" {
			msg = http.StatusText(res.StatusCode)
		}
		if sb.Manual {
			return res.StatusCode, fmt.Errorf("%w: %s", ErrUnavailable, msg)
		}
		return res.StatusCode, errors.New("places: " + msg)
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return res.StatusCode, fmt.Errorf("places: decode %s: %w", path, err)
	}
	return res.StatusCode, nil
}
