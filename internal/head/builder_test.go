package head

import (
	"strings"
	"testing"
)

func TestBuilder(t *testing.T) {
	b := New()
	b.SetTitle("Leak Detection & Repairs")
	b.Description(`Same-day "emergency" plumbing`)
	b.Description("ignored")
	b.Canonical("https://plumber.example/services/leak-detection")
	b.Meta(`<meta charset="utf-8">`)
	b.Meta(`<meta charset="utf-8">`)

	if got := string(b.Title()); got != "<title>Leak Detection &amp; Repairs</title>" {
		t.Fatalf("Title = %s", got)
	}
	metas := string(b.Metas())
	if strings.Count(metas, "charset") != 1 {
		t.Fatalf("duplicate meta: %s", metas)
	}
	if !strings.Contains(metas, `content="Same-day &#34;emergency&#34; plumbing"`) {
		t.Fatalf("description not escaped: %s", metas)
	}
	if strings.Contains(metas, "ignored") {
		t.Fatal("second description should be dropped")
	}
	if !strings.Contains(string(b.Links()), `rel="canonical"`) {
		t.Fatal("canonical missing")
	}
}

func TestJSONLDEscapesScriptClose(t *testing.T) {
	b := New()
	v := map[string]string{"@type": "Plumber", "name": "</script><b>Acme"}
	if err := b.JSONLD(v); err != nil {
		t.Fatal(err)
	}
	if err := b.JSONLD(v); err != nil {
		t.Fatal(err)
	}
	out := string(b.JSON())
	if strings.Count(out, "application/ld+json") != 1 {
		t.Fatalf("JSON-LD not deduplicated: %s", out)
	}
	if strings.Contains(out, "</script><b>") {
		t.Fatalf("payload not escaped: %s", out)
	}
	if New().JSON() != "" {
		t.Fatal("empty builder should render nothing")
	}
}
