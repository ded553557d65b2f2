package view

import (
	"html/template"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"testing/fstest"

	"github.com/yanizio/tradesite/internal/head"
)

func TestRender(t *testing.T) {
	e, err := New(Site{Business: "Metro <Plumbing>", Phone: "1300 000 000"}, nil)
	if err != nil {
		t.Fatal(err)
	}
	h := head.New()
	h.SetTitle("Book a plumber")

	rec := httptest.NewRecorder()
	e.Render(rec, http.StatusUnprocessableEntity, Page{
		Head: h,
		Body: template.HTML(`<form id="booking"></form>`),
		Nav:  []NavLink{{Label: "Leak Detection", Href: "/services/leak-detection"}},
	})

	if rec.Code != http.StatusUnprocessableEntity {
		t.Fatalf("code = %d", rec.Code)
	}
	body := rec.Body.String()
	for _, want := range []string{
		"<title>Book a plumber</title>",
		`<form id="booking"></form>`,
		`href="/services/leak-detection"`,
		"Metro &lt;Plumbing&gt;",
		`href="/assets/site.css"`,
	} {
		if !strings.Contains(body, want) {
			t.Errorf("missing %q", want)
		}
	}
}

func TestOverride(t *testing.T) {
	e, err := New(Site{}, fstest.MapFS{
		LayoutName: {Data: []byte(`custom:{{.Body}}`)},
	})
	if err != nil {
		t.Fatal(err)
	}
	rec := httptest.NewRecorder()
	e.Render(rec, http.StatusOK, Page{Body: "hi"})
	if rec.Body.String() != "custom:hi" {
		t.Fatalf("body = %q", rec.Body.String())
	}

	if _, err := New(Site{}, fstest.MapFS{LayoutName: {Data: []byte(`{{.Broken`)}}); err == nil {
		t.Fatal("bad override should fail")
	}
}

func TestDict(t *testing.T) {
	m := dict("a", 1, "b", "two", "odd")
	if m["a"] != 1 || m["b"] != "two" || len(m) != 2 {
		t.Fatalf("dict = %v", m)
	}
}
