// internal/config/model.go
//
// Typed configuration model for the trade-site server and CLI.
//
// Context
// -------
// These structs define the shape of the configuration tree that
// `internal/config/loader.go` builds from three overlay layers:
//
//   • optional `.env`                         – dotenv values,
//   • `conf/global.yaml`                      – primary static file,
//   • `TRADE_`-prefixed environment overrides – highest precedence.
//
// Any value whose string begins with the prefix `vault:` is resolved
// through the Vault client *before* unmarshalling, so the model never
// stores Vault URIs, only plain strings.
//
// Validation happens immediately after unmarshal; the app fails fast if
// required fields are missing.
//
// Notes
// -----
//   • Struct tags use `koanf:"…"`, not `yaml:"…"`.  Koanf ignores `yaml`
//     tags unless configured otherwise.
//   • The `Paths` block is filled at runtime; YAML must not try to set it.
//   • Oxford commas, two spaces after periods.  No em-dash.

package config

import (
	"fmt"
	"strings"
	"time"
)

//
// HTTP section
//

// HTTP holds web-server tunables.  BaseURL is what the CLI posts to.
type HTTP struct {
	ListenAddr string `koanf:"listen_addr" validate:"required,hostname_port"`
	ForceHTTPS bool   `koanf:"force_https"`
	BaseURL    string `koanf:"base_url"    validate:"omitempty,url"`
}

//
// Database section
//

// Database is optional.  An empty DSN disables the submission log; the
// booking flow itself never needs a database.
//
// The DSN is a template with one `%s` verb for the password so operators
// can tweak host, port, or flags in YAML while the secret lives in Vault.
type Database struct {
	DSN      string `koanf:"dsn"      validate:"omitempty,dsn_template"`
	Password string `koanf:"password"`
	MaxOpen  int    `koanf:"max_open" validate:"gte=0"`
	MaxIdle  int    `koanf:"max_idle" validate:"gte=0"`
}

// Enabled reports whether a submission log was configured.
func (d Database) Enabled() bool { return d.DSN != "" }

// ConnString fills the password into the DSN template.
func (d Database) ConnString() string {
	if strings.Contains(d.DSN, "%s") {
		return fmt.Sprintf(d.DSN, d.Password)
	}
	return d.DSN
}

//
// Mail section
//

// Gmail holds OAuth2 refresh-token credentials for the Gmail API sender.
// When ClientID is empty the server logs emails instead of sending them.
type Gmail struct {
	ClientID     string `koanf:"client_id"`
	ClientSecret string `koanf:"client_secret" validate:"required_with=ClientID"`
	RefreshToken string `koanf:"refresh_token" validate:"required_with=ClientID"`
}

// Mail configures the notification dispatcher.
type Mail struct {
	AdminTo       []string `koanf:"admin_to"       validate:"required,min=1,dive,email"`
	From          string   `koanf:"from"           validate:"required"`
	Business      string   `koanf:"business"       validate:"required"`
	BusinessPhone string   `koanf:"business_phone"`
	Gmail         Gmail    `koanf:"gmail"`
}

//
// Places section
//

// Places configures the address lookup provider.  An empty APIKey leaves
// the lookup permanently unavailable and forms fall back to manual entry.
type Places struct {
	APIKey   string        `koanf:"api_key"`
	Country  string        `koanf:"country"  validate:"omitempty,len=2"`
	Attempts int           `koanf:"attempts" validate:"gte=0"`
	Delay    time.Duration `koanf:"delay"`
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

//
// Security and rate limiting
//

// Security holds form-signing material.
type Security struct {
	CSRFKey string `koanf:"csrf_key"` // base64, ≥ 32 bytes decoded
}

// RateLimit caps booking POSTs per client IP.  RPS ≤ 0 disables it.
type RateLimit struct {
	RPS   float64 `koanf:"rps"   validate:"gte=0"`
	Burst int     `koanf:"burst" validate:"gte=0"`
}

// Redirect maps one legacy path to its current location.  A list is used
// instead of a map because koanf splits keys on “.” (“/old.html”).
type Redirect struct {
	From string `koanf:"from" validate:"required,startswith=/"`
	To   string `koanf:"to"   validate:"required"`
}

// Geo points at an optional GeoLite2-City database.
type Geo struct {
	DBPath string `koanf:"db_path"`
}

//
// Paths section (runtime only)
//

// Paths is resolved at runtime, never set in YAML or env.  The loader
// discovers `Root` (repo root or TRADE_ROOT override) so later code can
// build absolute file paths.
type Paths struct {
	Root string // TRADE_ROOT or discovered parent
}

//
// Root aggregate
//

// Config is the immutable aggregate returned by Load() and cached in an
// atomic.Pointer for lock-free reads throughout the app lifetime.
type Config struct {
	HTTP      HTTP       `koanf:"http"`
	Database  Database   `koanf:"database"`
	Mail      Mail       `koanf:"mail"`
	Places    Places     `koanf:"places"`
	Security  Security   `koanf:"security"`
	RateLimit RateLimit  `koanf:"rate_limit"`
	Redirects []Redirect `koanf:"redirects" validate:"dive"`
	Geo       Geo        `koanf:"geo"`
	Timezone  string     `koanf:"timezone"` // IANA name for email timestamps
	Paths     Paths      `koanf:"-"`        // not loaded from config files
}

// RedirectMap flattens Redirects for routing.NewRedirects.
func (c *Config) RedirectMap() map[string]string {
	m := make(map[string]string, len(c.Redirects))
	for _, r := range c.Redirects {
		m[r.From] = r.To
	}
	return m
}
