// internal/requestinfo/middleware.go
//
// Enrich attaches *Info to every request.
//
// Context
// -------
// Runs right after chi's RequestID and RealIP, before the security filters
// and the rate limiter.  For every request it:
//
//  1. Parses the User-Agent and Accept-Language headers.
//  2. Resolves the client IP (see ClientIP) and, when a GeoLite2 database
//     is loaded, its country and city.
//  3. Works out the arrival source.  The first request that carries utm_*
//     tags or an external Referer sets a 30-day first-touch cookie; later
//     requests, including the booking POST, read it back.
//
// At debug level each request is logged with IP, country, device class,
// bot flag, and source.
package requestinfo

import (
	"context"
	"net"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SourceCookie holds the first-touch Source.
const SourceCookie = "ts_src"

const sourceMaxAge = 30 * 24 * time.Hour

// Enrich wraps next and stores *Info in the request context.
func Enrich(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ip := ClientIP(r)
		country, city := locate(ip)

		info := &Info{
			Device: parseDevice(r.UserAgent()),
			Origin: Origin{IP: ip, Country: country, City: city, Lang: firstLang(r.Header.Get("Accept-Language"))},
			At:     time.Now().UTC(),
		}

		if c, err := r.Cookie(SourceCookie); err == nil {
			info.Source = decodeSource(c.Value)
		} else if s := sourceOf(r.URL.Query(), r.Referer(), r.Host); !s.IsZero() && !info.Device.Bot {
			info.Source = s
			http.SetCookie(w, &http.Cookie{
				Name:     SourceCookie,
				Value:    s.encode(),
				Path:     "/",
				MaxAge:   int(sourceMaxAge / time.Second),
				HttpOnly: true,
				Secure:   r.TLS != nil || r.Header.Get("X-Forwarded-Proto") == "https",
				SameSite: http.SameSiteLaxMode,
			})
		}

		zap.S().Debugw("request info",
			"ip", ip,
			"country", country,
			"device", info.Device.Class,
			"bot", info.Device.Bot,
			"source", info.Source.String(),
			"path", r.URL.Path,
		)

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), ctxKey{}, info)))
	})
}

// ClientIP returns the left-most parseable X-Forwarded-For entry, then
// X-Real-Ip, then the host part of r.RemoteAddr.  The rate limiter keys on
// the same value.
func ClientIP(r *http.Request) net.IP {
	for _, part := range strings.Split(r.Header.Get("X-Forwarded-For"), ",") {
		if ip := net.ParseIP(strings.TrimSpace(part)); ip != nil {
			return ip
		}
	}
	if ip := net.ParseIP(strings.TrimSpace(r.Header.Get("X-Real-Ip"))); ip != nil {
		return ip
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return net.ParseIP(host)
	}
	return net.ParseIP(r.RemoteAddr)
}
