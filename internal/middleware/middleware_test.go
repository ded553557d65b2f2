package middleware

import (
	"crypto/tls"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var ok = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
	w.WriteHeader(http.StatusNoContent)
})

func TestForceHTTPS(t *testing.T) {
	h := ForceHTTPS(true, ok)

	req := httptest.NewRequest(http.MethodPost, "http://plumber.example/api/send-booking-email?x=1", nil)
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusPermanentRedirect, rec.Code)
	assert.Equal(t, "https://plumber.example/api/send-booking-email?x=1", rec.Header().Get("Location"))

	for name, mod := range map[string]func(*http.Request){
		"tls":       func(r *http.Request) { r.TLS = &tls.ConnectionState{} },
		"proxy":     func(r *http.Request) { r.Header.Set("X-Forwarded-Proto", "https") },
		"localhost": func(r *http.Request) { r.Host = "localhost:8080" },
	} {
		req := httptest.NewRequest(http.MethodGet, "http://plumber.example/", nil)
		mod(req)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusNoContent, rec.Code, name)
	}

	rec = httptest.NewRecorder()
	ForceHTTPS(false, ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "http://plumber.example/", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
}

func TestStripPort(t *testing.T) {
	assert.Equal(t, "example.com", stripPort("example.com:443"))
	assert.Equal(t, "[::1]", stripPort("[::1]:8080"))
	assert.Equal(t, "example.com", stripPort("example.com"))
}

func TestSecurityHeaders(t *testing.T) {
	rec := httptest.NewRecorder()
	Security(ok).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	for _, h := range []string{
		"Strict-Transport-Security", "Content-Security-Policy", "X-Frame-Options",
		"X-Content-Type-Options", "Referrer-Policy", "Permissions-Policy",
	} {
		assert.NotEmpty(t, rec.Header().Get(h), h)
	}
}

func TestRateLimit(t *testing.T) {
	h := RateLimit(NewLimiter(0.001, 2))(ok)

	hit := func(ip string) int {
		req := httptest.NewRequest(http.MethodPost, "/api/send-booking-email", nil)
		req.RemoteAddr = ip + ":4000"
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	require.Equal(t, http.StatusNoContent, hit("192.0.2.1"))
	require.Equal(t, http.StatusNoContent, hit("192.0.2.1"))
	assert.Equal(t, http.StatusTooManyRequests, hit("192.0.2.1"))
	assert.Equal(t, http.StatusNoContent, hit("192.0.2.2"), "other clients keep their own bucket")
}

func TestRateLimitDisabled(t *testing.T) {
	assert.Nil(t, NewLimiter(0, 5))
	h := RateLimit(nil)(ok)
	for i := 0; i < 50; i++ {
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		require.Equal(t, http.StatusNoContent, rec.Code)
	}
}
