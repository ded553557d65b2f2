// internal/routing/redirect.go
//
// Legacy-URL redirects.
//
// Context
// -------
// Trade sites are usually rebuilt over an older site whose URLs are still
// in search results and on printed material (“/plumbing-services.html”).
// Redirects maps those paths to current ones and answers 301.
//
// Two sources, merged at lookup time:
//
//   • static  – `redirects:` in conf/global.yaml, fixed for the process.
//   • table   – route_redirect rows, reloaded once the TTL lapses.  Only
//               present when the submission database is configured.
//
// Static entries win on conflict.  Reloads are collapsed with singleflight
// so a burst of requests after expiry issues one query.
//
// Notes
// -----
// • Only GET and HEAD are redirected; form POSTs are never rewritten.
// • A failed reload keeps serving the previous table.

package routing

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"
)

// Schema creates the redirect table.  Applied with the other migrations.
const Schema = `CREATE TABLE IF NOT EXISTS route_redirect (
    from_path VARCHAR(255) NOT NULL PRIMARY KEY,
    to_path   VARCHAR(255) NOT NULL
)`

// DefaultTTL is how long a loaded table is trusted.
const DefaultTTL = 5 * time.Minute

// loadTimeout bounds one reload query.
const loadTimeout = 3 * time.Second

// -----------------------------------------------------------------------------
// Redirects
// -----------------------------------------------------------------------------

// Redirects stores from→to pairs.  Construct with NewRedirects.
type Redirects struct {
	static map[string]string
	db     *sqlx.DB
	ttl    time.Duration

	mu       sync.RWMutex
	table    map[string]string
	loadedAt time.Time

	sfg singleflight.Group
}

// NewRedirects returns a ready set.  db may be nil; ttl ≤ 0 means
// DefaultTTL.
func NewRedirects(db *sqlx.DB, ttl time.Duration, static map[string]string) *Redirects {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	s := make(map[string]string, len(static))
	for from, to := range static {
		s[from] = to
	}
	return &Redirects{static: s, db: db, ttl: ttl, table: map[string]string{}}
}

// Load refreshes the table from route_redirect.  It is a no-op without a
// database.  Concurrent callers share one query, which ignores ctx's
// cancellation and runs under loadTimeout.
func (c *Redirects) Load(ctx context.Context) error {
	if c.db == nil {
		return nil
	}
	_, err, _ := c.sfg.Do("load", func() (any, error) {
		ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), loadTimeout)
		defer cancel()

		var rows []struct {
			From string `db:"from_path"`
			To   string `db:"to_path"`
		}
		if err := c.db.SelectContext(ctx, &rows, `SELECT from_path, to_path FROM route_redirect`); err != nil {
			return nil, err
		}
		fresh := make(map[string]string, len(rows))
		for _, r := range rows {
			fresh[r.From] = r.To
		}

		c.mu.Lock()
		c.table = fresh
		c.loadedAt = time.Now()
		c.mu.Unlock()

		zap.S().Debugw("redirect table loaded", "count", len(fresh))
		return nil, nil
	})
	return err
}

// Lookup returns the target for path.
func (c *Redirects) Lookup(path string) (string, bool) {
	if to, ok := c.static[path]; ok {
		return to, true
	}
	c.mu.RLock()
	to, ok := c.table[path]
	c.mu.RUnlock()
	return to, ok
}

// touch postpones the next reload after a failure.
func (c *Redirects) touch() {
	c.mu.Lock()
	c.loadedAt = time.Now()
	c.mu.Unlock()
}

func (c *Redirects) stale() bool {
	if c.db == nil {
		return false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return time.Since(c.loadedAt) > c.ttl
}

// -----------------------------------------------------------------------------
// Middleware
// -----------------------------------------------------------------------------

// Middleware answers 301 for known legacy paths and passes everything else
// through.  The query string is carried over.
func Middleware(c *Redirects) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodGet && r.Method != http.MethodHead {
				next.ServeHTTP(w, r)
				return
			}

			if c.stale() {
				if err := c.Load(r.Context()); err != nil {
					zap.S().Warnw("redirect table reload failed", "err", err)
					c.touch()
				}
			}

			to, ok := c.Lookup(r.URL.Path)
			if !ok || to == r.URL.Path {
				next.ServeHTTP(w, r)
				return
			}
			if r.URL.RawQuery != "" {
				to += "?" + r.URL.RawQuery
			}
			zap.S().Debugw("legacy redirect", "from", r.URL.Path, "to", to)
			http.Redirect(w, r, to, http.StatusMovedPermanently)
		})
	}
}
