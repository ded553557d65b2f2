package requestinfo

import (
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const chromeMac = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/125.0.6422.60 Safari/537.36"

func capture(got **Info) http.Handler {
	return Enrich(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		*got = FromContext(r.Context())
	}))
}

func TestEnrichAttachesInfo(t *testing.T) {
	var got *Info
	req := httptest.NewRequest(http.MethodGet, "/services/hot-water?utm_source=google&utm_medium=cpc&utm_campaign=winter", nil)
	req.Header.Set("User-Agent", chromeMac)
	req.Header.Set("Accept-Language", "en-AU,en;q=0.9")
	req.Header.Set("X-Forwarded-For", "203.0.113.9, 10.0.0.1")
	rr := httptest.NewRecorder()
	capture(&got).ServeHTTP(rr, req)

	require.NotNil(t, got)
	assert.Equal(t, "203.0.113.9", got.Origin.IP.String())
	assert.Equal(t, "en-au", got.Origin.Lang)
	assert.Equal(t, Device{Browser: "Chrome", OS: "macOS", Class: "Desktop"}, got.Device)
	assert.Equal(t, "google / cpc / winter", got.Source.String())

	cookies := rr.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Equal(t, SourceCookie, cookies[0].Name)
	assert.True(t, cookies[0].HttpOnly)
}

func TestSourceCookieIsFirstTouch(t *testing.T) {
	first := Source{Name: "flyer", Campaign: "letterbox"}

	var got *Info
	req := httptest.NewRequest(http.MethodPost, "/booking", nil)
	req.Header.Set("Referer", "https://www.facebook.com/some/post")
	req.AddCookie(&http.Cookie{Name: SourceCookie, Value: first.encode()})
	rr := httptest.NewRecorder()
	capture(&got).ServeHTTP(rr, req)

	require.NotNil(t, got)
	assert.Equal(t, first, got.Source)
	assert.Empty(t, rr.Result().Cookies(), "existing cookie must not be replaced")
}

func TestSourceOf(t *testing.T) {
	s := sourceOf(url.Values{}, "https://www.google.com/search?q=plumber", "plumber.example")
	assert.Equal(t, "via google.com", s.String())

	s = sourceOf(url.Values{}, "https://plumber.example/services", "plumber.example:443")
	assert.True(t, s.IsZero(), "internal referer is not a source")

	s = sourceOf(url.Values{}, "", "plumber.example")
	assert.Equal(t, "", s.String())
}

func TestSourceRoundTrip(t *testing.T) {
	s := Source{Referrer: "bing.com", Campaign: "a b&c", Medium: "cpc", Name: "bing"}
	assert.Equal(t, s, decodeSource(s.encode()))
	assert.Equal(t, Source{}, decodeSource("%zz"))
}

func TestFromContextWithoutMiddleware(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	assert.Nil(t, FromContext(req.Context()))
}

func TestClientIP(t *testing.T) {
	cases := []struct {
		name    string
		headers map[string]string
		remote  string
		want    string
	}{
		{"xff", map[string]string{"X-Forwarded-For": "bogus, 198.51.100.4"}, "10.0.0.1:5555", "198.51.100.4"},
		{"real ip", map[string]string{"X-Real-Ip": "198.51.100.7"}, "10.0.0.1:5555", "198.51.100.7"},
		{"remote", nil, "192.0.2.1:1234", "192.0.2.1"},
		{"remote no port", nil, "192.0.2.2", "192.0.2.2"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			req.RemoteAddr = tc.remote
			for k, v := range tc.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tc.want, ClientIP(req).String())
		})
	}
}

func TestFirstLang(t *testing.T) {
	assert.Equal(t, "", firstLang(""))
	assert.Equal(t, "fr-ca", firstLang("fr-CA;q=0.8, en"))
}

func TestInitGeoMissingFile(t *testing.T) {
	assert.Error(t, InitGeo("/nonexistent/GeoLite2-City.mmdb"))
	assert.NoError(t, CloseGeo())
}
