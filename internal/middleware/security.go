// internal/middleware/security.go
//
// Security-header middleware.
//
// Injects industry-standard headers on every response:
//
//   • Strict-Transport-Security  –  forces HTTPS (2 years + preload)
//   • Content-Security-Policy   –  sane default self-only policy
//   • X-Frame-Options           –  click-jacking defence
//   • X-Content-Type-Options    –  MIME-sniffing defence
//   • Referrer-Policy           –  drops path/query from Referer
//   • Permissions-Policy        –  disables powerful features by default
//
// Notes
// -----
// • Headers are set *before* next.ServeHTTP; a handler that needs a looser
//   policy may overwrite them.
// • Behind a TLS-terminating proxy HSTS still applies because browsers see
//   the site's domain as HTTPS.
// • The CSP allows the Places lookup script to call back to our own
//   /api/places proxy only; the browser never talks to Google directly.
// • Oxford commas, two spaces after periods.

package middleware

import "net/http"

// Security sets security headers for every response.  Headers are set
// before the handler writes so they survive a WriteHeader call.
func Security(next http.Handler) http.Handler {
	const (
		hsts = "max-age=63072000; includeSubDomains; preload"
		csp  = "default-src 'self'; img-src 'self' data:; object-src 'none'; " +
			"base-uri 'self'; form-action 'self'; frame-ancestors 'none'"
		xfo   = "DENY"
		nosn  = "nosniff"
		refer = "strict-origin-when-cross-origin"
		perm  = "geolocation=(), microphone=(), camera=()"
	)

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hdr := w.Header()
		hdr.Set("Strict-Transport-Security", hsts)
		hdr.Set("Content-Security-Policy", csp)
		hdr.Set("X-Frame-Options", xfo)
		hdr.Set("X-Content-Type-Options", nosn)
		hdr.Set("Referrer-Policy", refer)
		hdr.Set("Permissions-Policy", perm)

		next.ServeHTTP(w, r)
	})
}
