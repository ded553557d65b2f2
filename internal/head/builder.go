// internal/head/builder.go
//
// The Builder collects everything that should appear inside a page’s
// <head> element.  It is scoped to a single render call.  Page and booking
// handlers push tags into the builder, then the layout template emits the
// slices in a fixed order.
//
// Features
// --------
//   - SetTitle           – single <title> tag (last call wins).
//   - Description        – meta description, escaped.
//   - Canonical          – rel=canonical link.
//   - Meta, Link, Script – pre-built tags with deduplication.
//   - JSONLD             – marshals a value and wraps it in
//     <script type="application/ld+json">…</script>.
//   - Render helpers     – concat methods that return template.HTML.
package head

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"html/template"
	"strings"
	"sync"
)

// Builder is safe for concurrent use, though one goroutine per request is
// the normal case.
type Builder struct {
	mu sync.Mutex

	title string

	metas   []string
	links   []string
	scripts []string
	jsonLD  []string

	seen map[string]struct{}
}

func New() *Builder {
	return &Builder{seen: make(map[string]struct{})}
}

// ------------------------------------------------------------------
// Single-value helpers
// ------------------------------------------------------------------

// SetTitle overrides the page <title>.  The last caller wins.
func (b *Builder) SetTitle(t string) {
	b.mu.Lock()
	b.title = t
	b.mu.Unlock()
}

// Title returns a fully formed <title> tag or an empty string.
func (b *Builder) Title() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.title == "" {
		return ""
	}
	return template.HTML("<title>" + template.HTMLEscapeString(b.title) + "</title>")
}

// Description adds <meta name="description">.  Later calls are ignored.
func (b *Builder) Description(s string) {
	b.add("meta:description", &b.metas,
		`<meta name="description" content="`+template.HTMLEscapeString(s)+`">`)
}

// Canonical adds <link rel="canonical">.
func (b *Builder) Canonical(href string) {
	b.add("link:canonical", &b.links,
		`<link rel="canonical" href="`+template.HTMLEscapeString(href)+`">`)
}

// ------------------------------------------------------------------
// Slice helpers with deduplication
// ------------------------------------------------------------------

// Meta, Link, and Script take trusted, pre-built markup.
func (b *Builder) Meta(tag string)   { b.add("meta:"+tag, &b.metas, tag) }
func (b *Builder) Link(tag string)   { b.add("link:"+tag, &b.links, tag) }
func (b *Builder) Script(tag string) { b.add("script:"+tag, &b.scripts, tag) }

// JSONLD marshals v (typically a schema.org LocalBusiness map).  json
// escapes <, >, and & so the output cannot close the script element.
func (b *Builder) JSONLD(v any) error {
	js, err := json.Marshal(v)
	if err != nil {
		return err
	}
	b.add("jsonld:"+hash(js), &b.jsonLD, string(js))
	return nil
}

func (b *Builder) add(key string, tgt *[]string, tag string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	if _, dup := b.seen[key]; dup {
		return
	}
	b.seen[key] = struct{}{}
	*tgt = append(*tgt, tag)
}

// hash creates a short, stable key for JSON-LD blocks.
func hash(b []byte) string {
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:8])
}

// ------------------------------------------------------------------
// Rendering helpers called from the layout template
// ------------------------------------------------------------------

func (b *Builder) Metas() template.HTML   { return b.concat(b.metas) }
func (b *Builder) Links() template.HTML   { return b.concat(b.links) }
func (b *Builder) Scripts() template.HTML { return b.concat(b.scripts) }

// JSON returns all JSON-LD blocks wrapped in <script> tags.
func (b *Builder) JSON() template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	var sb strings.Builder
	for _, js := range b.jsonLD {
		sb.WriteString(`<script type="application/ld+json">`)
		sb.WriteString(js)
		sb.WriteString(`</script>`)
	}
	return template.HTML(sb.String())
}

// concat joins pre-escaped tags without a separator.
func (b *Builder) concat(sl []string) template.HTML {
	b.mu.Lock()
	defer b.mu.Unlock()
	return template.HTML(strings.Join(sl, ""))
}
