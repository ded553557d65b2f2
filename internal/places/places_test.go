package places

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/yanizio/tradesite/internal/booking"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

// countingLookup records every call.
type countingLookup struct {
	auto    atomic.Int32
	details atomic.Int32
	err     error
}

func (c *countingLookup) Autocomplete(_ context.Context, input string) ([]Prediction, error) {
	c.auto.Add(1)
	if c.err != nil {
		return nil, c.err
	}
	return []Prediction{{PlaceID: "p1", Description: input + " Street, Sydney NSW"}}, nil
}

func (c *countingLookup) Details(_ context.Context, id string) (booking.Address, error) {
	c.details.Add(1)
	if c.err != nil {
		return booking.Address{}, c.err
	}
	return booking.Address{
		Formatted:  "1 Test St, Sydney NSW 2000, Australia",
		Components: map[string]string{booking.ComponentPostalCode: "2000"},
	}, nil
}

/*──────────────────────────── adapter ──────────────────────────────*/

func TestManualModeNeverCallsLookup(t *testing.T) {
	l := &countingLookup{}
	var got booking.Address
	a := NewAdapter(NewReadyHandle(l), func(addr booking.Address) { got = addr })

	a.Focus()
	require.True(t, a.ManualToggleVisible())
	a.SetManual(true)

	for _, s := range []string{"1", "1 T", "1 Test St"} {
		preds, err := a.Input(context.Background(), s)
		require.NoError(t, err)
		assert.Empty(t, preds)
	}
	_, err := a.Select(context.Background(), "p1")
	assert.ErrorIs(t, err, ErrUnavailable)

	assert.Zero(t, l.auto.Load())
	assert.Zero(t, l.details.Load())
	assert.Equal(t, "1 Test St", got.Formatted)
	assert.False(t, got.FromSuggestion)
}

func TestToggleHiddenUntilFocus(t *testing.T) {
	a := NewAdapter(NewReadyHandle(&countingLookup{}), nil)
	assert.False(t, a.ManualToggleVisible())
	a.Focus()
	assert.True(t, a.ManualToggleVisible())
}

func TestInputDegradesWhenNotReady(t *testing.T) {
	h := NewHandle(func(context.Context) (Lookup, error) { return &countingLookup{}, nil })
	a := NewAdapter(h, nil)

	assert.True(t, a.Degraded())
	preds, err := a.Input(context.Background(), "1 Test")
	require.NoError(t, err)
	assert.Nil(t, preds)
	assert.Equal(t, "1 Test", a.Text())
}

func TestSelectMarksSuggestion(t *testing.T) {
	l := &countingLookup{}
	s := booking.NewStore()
	a := NewAdapter(NewReadyHandle(l), s.SetAddress)

	preds, err := a.Input(context.Background(), "1 Test")
	require.NoError(t, err)
	require.Len(t, preds, 1)

	addr, err := a.Select(context.Background(), preds[0].PlaceID)
	require.NoError(t, err)
	assert.True(t, addr.FromSuggestion)

	d := s.Draft()
	assert.True(t, d.Address.FromSuggestion)
	assert.Equal(t, "2000", d.Address.Components[booking.ComponentPostalCode])
}

func TestInputKeepsTextOnLookupError(t *testing.T) {
	l := &countingLookup{err: errors.New("boom")}
	a := NewAdapter(NewReadyHandle(l), nil)

	_, err := a.Input(context.Background(), "1 Test")
	assert.Error(t, err)
	assert.Equal(t, "1 Test", a.Text())
}

/*──────────────────────────── handle ───────────────────────────────*/

func TestInitRetriesUntilBudget(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func(context.Context) (Lookup, error) {
		calls.Add(1)
		return nil, errors.New("script not loaded")
	}, WithRetry(4, time.Millisecond))

	err := h.Init(context.Background())
	require.Error(t, err)
	assert.Equal(t, int32(4), calls.Load())
	assert.Equal(t, Failed, h.State())
	assert.ErrorIs(t, h.Err(), err)
}

func TestInitSucceedsAfterRetries(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func(context.Context) (Lookup, error) {
		if calls.Add(1) < 3 {
			return nil, errors.New("not yet")
		}
		return &countingLookup{}, nil
	}, WithRetry(10, time.Millisecond))

	require.NoError(t, h.Init(context.Background()))
	assert.Equal(t, Ready, h.State())
	assert.Equal(t, int32(3), calls.Load())

	// Ready handles do not reload.
	require.NoError(t, h.Init(context.Background()))
	assert.Equal(t, int32(3), calls.Load())
}

func TestInitPermanentStopsEarly(t *testing.T) {
	var calls atomic.Int32
	h := NewHandle(func(context.Context) (Lookup, error) {
		calls.Add(1)
		return nil, backoff.Permanent(errors.New("no key"))
	}, WithRetry(10, time.Millisecond))

	require.Error(t, h.Init(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestInitSharedAcrossCallers(t *testing.T) {
	var calls atomic.Int32
	release := make(chan struct{})
	h := NewHandle(func(context.Context) (Lookup, error) {
		calls.Add(1)
		<-release
		return &countingLookup{}, nil
	})

	var wg sync.WaitGroup
	errs := make(chan error, 5)
	wg.Add(1)
	go func() {
		defer wg.Done()
		errs <- h.Init(context.Background())
	}()
	require.Eventually(t, func() bool { return h.State() == Loading }, time.Second, time.Millisecond)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			errs <- h.Init(context.Background())
		}()
	}
	close(release)
	wg.Wait()
	close(errs)

	for err := range errs {
		assert.NoError(t, err)
	}
	assert.Equal(t, int32(1), calls.Load())
}

/*──────────────────────────── google ───────────────────────────────*/

const testKey = "AIza-test-key"

func fakeGoogle(t *testing.T, hits *atomic.Int32) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("/maps/api/place/autocomplete/json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		assert.Equal(t, testKey, r.URL.Query().Get("key"))
		assert.Equal(t, "country:au", r.URL.Query().Get("components"))
		assert.Equal(t, "address", r.URL.Query().Get("types"))
		if r.URL.Query().Get("input") == "nowhere" {
			w.Write([]byte(`{"status":"ZERO_RESULTS","predictions":[]}`))
			return
		}
		w.Write([]byte(`{"status":"OK","predictions":[{"place_id":"abc","description":"1 Test St, Sydney NSW"}]}`))
	})
	mux.HandleFunc("/maps/api/place/details/json", func(w http.ResponseWriter, r *http.Request) {
		hits.Add(1)
		if r.URL.Query().Get("place_id") != "abc" {
			w.Write([]byte(`{"status":"NOT_FOUND"}`))
			return
		}
		w.Write([]byte(`{"status":"OK","result":{
			"formatted_address":"1 Test St, Sydney NSW 2000, Australia",
			"address_components":[
				{"long_name":"1","short_name":"1","types":["street_number"]},
				{"long_name":"Test Street","short_name":"Test St","types":["route"]},
				{"long_name":"Sydney","short_name":"Sydney","types":["locality","political"]},
				{"long_name":"New South Wales","short_name":"NSW","types":["administrative_area_level_1","political"]},
				{"long_name":"Australia","short_name":"AU","types":["country","political"]},
				{"long_name":"2000","short_name":"2000","types":["postal_code"]}]}}`))
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestGoogleClient(t *testing.T) {
	var hits atomic.Int32
	srv := fakeGoogle(t, &hits)
	c, err := NewGoogleClient(GoogleConfig{APIKey: testKey, BaseURL: srv.URL, Country: "AU", HTTPClient: srv.Client()})
	require.NoError(t, err)
	ctx := context.Background()

	preds, err := c.Autocomplete(ctx, "1 Test")
	require.NoError(t, err)
	require.Equal(t, []Prediction{{PlaceID: "abc", Description: "1 Test St, Sydney NSW"}}, preds)

	_, err = c.Autocomplete(ctx, "1 TEST ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), hits.Load(), "second autocomplete should hit the cache")

	addr, err := c.Details(ctx, "abc")
	require.NoError(t, err)
	assert.True(t, addr.FromSuggestion)
	assert.Equal(t, map[string]string{
		booking.ComponentStreetNumber: "1",
		booking.ComponentRoute:        "Test Street",
		booking.ComponentLocality:     "Sydney",
		booking.ComponentRegion:       "NSW",
		booking.ComponentCountry:      "AU",
		booking.ComponentPostalCode:   "2000",
	}, addr.Components)

	_, err = c.Details(ctx, "missing")
	assert.ErrorContains(t, err, "NOT_FOUND")

	preds, err = c.Autocomplete(ctx, "nowhere")
	require.NoError(t, err, "ZERO_RESULTS is an empty answer")
	assert.Empty(t, preds)
}

func TestGoogleLoaderNeedsKey(t *testing.T) {
	h := NewHandle(GoogleLoader(GoogleConfig{}), WithRetry(10, time.Millisecond))
	require.Error(t, h.Init(context.Background()))
	assert.Equal(t, Failed, h.State())
}

/*──────────────────────────── proxy ────────────────────────────────*/

func proxy(h *Handle) *httptest.Server {
	mux := http.NewServeMux()
	mux.Handle(PathStatus, StatusHandler(h))
	mux.Handle(PathAutocomplete, AutocompleteHandler(h))
	mux.Handle(PathDetails, DetailsHandler(h))
	return httptest.NewServer(mux)
}

func TestProxyUnavailable(t *testing.T) {
	h := NewHandle(func(context.Context) (Lookup, error) { return nil, errors.New("x") })
	srv := proxy(h)
	defer srv.Close()

	res, err := srv.Client().Get(srv.URL + PathAutocomplete + "?input=1+Test")
	require.NoError(t, err)
	defer res.Body.Close()
	assert.Equal(t, http.StatusServiceUnavailable, res.StatusCode)

	rl := NewRemoteLookup(srv.URL, srv.Client())
	_, err = rl.Autocomplete(context.Background(), "1 Test")
	assert.ErrorIs(t, err, ErrUnavailable)
}

func TestRemoteRoundTrip(t *testing.T) {
	srv := proxy(NewReadyHandle(&countingLookup{}))
	defer srv.Close()

	h := NewHandle(RemoteLoader(srv.URL, srv.Client()), WithRetry(2, time.Millisecond))
	require.NoError(t, h.Init(context.Background()))

	a := NewAdapter(h, nil)
	preds, err := a.Input(context.Background(), "1 Test")
	require.NoError(t, err)
	require.Len(t, preds, 1)

	addr, err := a.Select(context.Background(), preds[0].PlaceID)
	require.NoError(t, err)
	assert.Equal(t, "2000", addr.Components[booking.ComponentPostalCode])
}
