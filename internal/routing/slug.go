// internal/routing/slug.go
//
// Slug and path helpers for content pages.
//
// • MakeSlug(title) ─ converts a service name into a URL-safe slug
//   restricted to ASCII a-z, 0-9 and “-”.
// • ValidSlug(s) ─ reports whether s is already in that form, so a file
//   named "Hot Water.yaml" is rejected at start-up instead of producing an
//   unreachable page.
// • BuildPath(parts...) ─ joins segments with a single “/” and guarantees
//   exactly one leading slash.
//
// Rules (MakeSlug)
// ----------------
// 1. Lower-case everything.
// 2. Convert any run of non-[a-z0-9] characters to one “-”.
// 3. Trim leading and trailing “-”.
// 4. If the result is empty, return "page".
// 5. Cap at 100 bytes.

package routing

import (
	"strings"
)

const maxSlug = 100

// MakeSlug converts title → lower-kebab ASCII.
func MakeSlug(title string) string {
	var b strings.Builder
	b.Grow(len(title))

	dash := false
	for _, r := range strings.ToLower(title) {
		if r >= 'a' && r <= 'z' || r >= '0' && r <= '9' {
			b.WriteRune(r)
			dash = false
			continue
		}
		if !dash {
			b.WriteByte('-')
			dash = true
		}
	}

	slug := strings.Trim(b.String(), "-")
	if slug == "" {
		return "page"
	}
	if len(slug) > maxSlug {
		slug = strings.TrimRight(slug[:maxSlug], "-")
	}
	return slug
}

// ValidSlug reports whether s is a canonical slug.
func ValidSlug(s string) bool {
	return s != "" && MakeSlug(s) == s
}

// BuildPath joins segments ensuring exactly one leading slash and no
// duplicate separators.  Empty segments are skipped.
func BuildPath(parts ...string) string {
	var kept []string
	for _, p := range parts {
		if p = strings.Trim(p, "/"); p != "" {
			kept = append(kept, p)
		}
	}
	return "/" + strings.Join(kept, "/")
}
