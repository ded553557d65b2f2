// internal/requestinfo/requestinfo.go
//
// What the site knows about the visitor behind a request: device, rough
// location, and how they first arrived.  The booking dispatcher copies it
// into the staff email so the business can tell a Google Ads lead from a
// flyer lead.  Values are inert and safe to log.
//
// Dependencies
// ------------
//   - github.com/avct/uasurfer          (device parsing)
//   - github.com/oschwald/geoip2-golang (optional MaxMind lookup)
package requestinfo

import (
	"context"
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/avct/uasurfer"
	"github.com/oschwald/geoip2-golang"
)

/*──────────────────────────── types ────────────────────────────────────────*/

// Device is the parsed User-Agent.
type Device struct {
	Browser string // "Chrome", "Safari", ...
	OS      string // "macOS", "iOS", "Android", ...
	Class   string // "Desktop", "Phone", "Tablet", ...
	Bot     bool
}

// Origin is where the request came from on the network.  Country and City
// stay empty without a GeoLite2 database.
type Origin struct {
	IP      net.IP
	Country string // ISO code, "AU"
	City    string
	Lang    string // first Accept-Language tag, lower-case
}

// Source records how a visitor first reached the site.  It survives across
// pages in a first-touch cookie.
type Source struct {
	Referrer string // host of an external referring page
	Campaign string // utm_campaign
	Medium   string // utm_medium
	Name     string // utm_source
}

// IsZero reports whether nothing is known about the arrival.
func (s Source) IsZero() bool { return s == Source{} }

// String renders "google / cpc / hot-water-spring" or "via example.com".
func (s Source) String() string {
	if s.Name == "" && s.Medium == "" && s.Campaign == "" {
		if s.Referrer == "" {
			return ""
		}
		return "via " + s.Referrer
	}
	var parts []string
	for _, p := range []string{s.Name, s.Medium, s.Campaign} {
		if p != "" {
			parts = append(parts, p)
		}
	}
	return strings.Join(parts, " / ")
}

// Info is stored in the request context by Enrich.
type Info struct {
	Device Device
	Origin Origin
	Source Source
	At     time.Time
}

/*──────────────────────────── context ──────────────────────────────────────*/

type ctxKey struct{}

// FromContext returns the value stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

/*──────────────────────────── geo ──────────────────────────────────────────*/

var geoReader *geoip2.Reader

// InitGeo opens the GeoLite2-City database.  Call once at start-up.
func InitGeo(dbPath string) error {
	r, err := geoip2.Open(dbPath)
	if err != nil {
		return fmt.Errorf("requestinfo: open GeoLite2 DB: %w", err)
	}
	geoReader = r
	return nil
}

// CloseGeo releases the handle opened by InitGeo.
func CloseGeo() error {
	if geoReader == nil {
		return nil
	}
	err := geoReader.Close()
	geoReader = nil
	return err
}

func locate(ip net.IP) (country, city string) {
	if geoReader == nil || ip == nil {
		return "", ""
	}
	rec, err := geoReader.City(ip)
	if err != nil {
		return "", ""
	}
	return rec.Country.IsoCode, rec.City.Names["en"]
}

/*──────────────────────────── parsing ──────────────────────────────────────*/

func parseDevice(header string) Device {
	u := uasurfer.Parse(header)

	os := strings.TrimPrefix(u.OS.Name.String(), "OS")
	switch os {
	case "MacOSX":
		os = "macOS"
	case "Unknown":
		os = ""
	}
	browser := strings.TrimPrefix(u.Browser.Name.String(), "Browser")
	if browser == "Unknown" {
		browser = ""
	}
	return Device{
		Browser: browser,
		OS:      os,
		Class:   deviceClass(u.DeviceType),
		Bot:     u.IsBot(),
	}
}

func deviceClass(dt uasurfer.DeviceType) string {
	switch dt {
	case uasurfer.DeviceComputer:
		return "Desktop"
	case uasurfer.DevicePhone:
		return "Phone"
	case uasurfer.DeviceTablet:
		return "Tablet"
	case uasurfer.DeviceTV:
		return "TV"
	case uasurfer.DeviceConsole, uasurfer.DeviceWearable:
		return "Other"
	}
	return "Unknown"
}

// firstLang extracts the first tag before any ";q=" weight.
func firstLang(al string) string {
	tag, _, _ := strings.Cut(al, ",")
	tag, _, _ = strings.Cut(tag, ";")
	return strings.ToLower(strings.TrimSpace(tag))
}

// sourceOf reads campaign tags from the query and an external Referer.
// Referers on host itself are ignored.
func sourceOf(q url.Values, referer, host string) Source {
	s := Source{
		Name:     q.Get("utm_source"),
		Medium:   q.Get("utm_medium"),
		Campaign: q.Get("utm_campaign"),
	}
	if u, err := url.Parse(referer); err == nil && u.Host != "" && !sameHost(u.Host, host) {
		s.Referrer = strings.TrimPrefix(u.Hostname(), "www.")
	}
	return s
}

func sameHost(a, b string) bool {
	ha, _, err := net.SplitHostPort(a)
	if err != nil {
		ha = a
	}
	hb, _, err := net.SplitHostPort(b)
	if err != nil {
		hb = b
	}
	return strings.EqualFold(ha, hb)
}

/*──────────────────────────── cookie codec ─────────────────────────────────*/

func (s Source) encode() string {
	v := url.Values{}
	for k, val := range map[string]string{"r": s.Referrer, "c": s.Campaign, "m": s.Medium, "s": s.Name} {
		if val != "" {
			v.Set(k, val)
		}
	}
	return v.Encode()
}

func decodeSource(raw string) Source {
	v, err := url.ParseQuery(raw)
	if err != nil {
		return Source{}
	}
	return Source{Referrer: v.Get("r"), Campaign: v.Get("c"), Medium: v.Get("m"), Name: v.Get("s")}
}
