package main

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yanizio/tradesite/internal/booking"
)

// fakeSite serves the places proxy and the dispatch endpoint.
type fakeSite struct {
	mu       sync.Mutex
	got      []booking.Payload
	placesUp bool
}

func (f *fakeSite) handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/places/status", func(w http.ResponseWriter, _ *http.Request) {
		if !f.placesUp {
			w.WriteHeader(http.StatusNotFound)
			_, _ = w.Write([]byte(`{"state":"failed","manual":true,"error":"disabled"}`))
			return
		}
		_, _ = w.Write([]byte(`{"state":"ready"}`))
	})
	mux.HandleFunc("/api/places/autocomplete", func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`{"predictions":[{"placeId":"p1","description":"1 George St, Sydney NSW"}]}`))
	})
	mux.HandleFunc("/api/places/details", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("place_id") != "p1" {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte(`{"address":{"formatted":"1 George St, Sydney NSW 2000, Australia","fromSuggestion":true,"components":{"locality":"Sydney","postal_code":"2000"}}}`))
	})
	mux.HandleFunc("/api/send-booking-email", func(w http.ResponseWriter, r *http.Request) {
		var p booking.Payload
		if err := json.NewDecoder(r.Body).Decode(&p); err != nil {
			w.WriteHeader(http.StatusBadRequest)
			return
		}
		f.mu.Lock()
		f.got = append(f.got, p)
		f.mu.Unlock()
		_, _ = w.Write([]byte(`{"success":true}`))
	})
	return mux
}

func execute(t *testing.T, args ...string) (string, string, error) {
	t.Helper()
	var out, errOut bytes.Buffer
	cmd := newRootCmd()
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), errOut.String(), err
}

var validFlags = []string{
	"--name", "Jane Citizen",
	"--email", "jane@example.com",
	"--phone", "0412 345 678",
	"--address", "1 George St",
	"--service", "Leak Detection",
	"--service", "Hot Water",
	"--accept-terms",
}

func TestSubmitResolvesAddress(t *testing.T) {
	fs := &fakeSite{placesUp: true}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	out, _, err := execute(t, append([]string{"submit", "--site", srv.URL}, validFlags...)...)
	require.NoError(t, err)
	assert.Contains(t, out, `"success": true`)

	require.Len(t, fs.got, 1)
	p := fs.got[0]
	assert.Equal(t, "1 George St, Sydney NSW 2000, Australia", p.Address)
	assert.True(t, p.AddressFromSuggestion)
	assert.Equal(t, "Sydney", p.AddressComponents["locality"])
	assert.Equal(t, []string{"Leak Detection", "Hot Water"}, p.Services)
	assert.True(t, p.TermsAccepted)
}

func TestSubmitManualKeepsText(t *testing.T) {
	fs := &fakeSite{placesUp: true}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	_, _, err := execute(t, append([]string{"submit", "--site", srv.URL, "--manual"}, validFlags...)...)
	require.NoError(t, err)
	require.Len(t, fs.got, 1)
	assert.Equal(t, "1 George St", fs.got[0].Address)
	assert.False(t, fs.got[0].AddressFromSuggestion)
}

func TestSubmitLookupDownKeepsText(t *testing.T) {
	fs := &fakeSite{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	_, _, err := execute(t, append([]string{"submit", "--site", srv.URL}, validFlags...)...)
	require.NoError(t, err)
	require.Len(t, fs.got, 1)
	assert.Equal(t, "1 George St", fs.got[0].Address)
}

func TestSubmitInvalidPrintsErrors(t *testing.T) {
	fs := &fakeSite{}
	srv := httptest.NewServer(fs.handler())
	defer srv.Close()

	_, errOut, err := execute(t, "submit", "--site", srv.URL, "--manual", "--name", "Jane")
	require.Error(t, err)
	assert.Contains(t, errOut, "email: Please enter your email address.")
	assert.Contains(t, errOut, "termsAccepted: Please accept the terms and conditions.")
	assert.Empty(t, fs.got)
}

func TestPlacesCmd(t *testing.T) {
	srv := httptest.NewServer((&fakeSite{placesUp: true}).handler())
	defer srv.Close()

	out, _, err := execute(t, "places", "--site", srv.URL, "1", "George", "St")
	require.NoError(t, err)
	assert.Equal(t, "p1\t1 George St, Sydney NSW\n", out)
}

func TestLogRequiresDSN(t *testing.T) {
	t.Setenv("TRADE_DATABASE__DSN", "")
	_, _, err := execute(t, "log")
	assert.ErrorContains(t, err, "--dsn")
}
