package booking

import (
	"embed"
	"html/template"

	"github.com/yanizio/tradesite/internal/store"
)

//go:embed templates/*.html
var tplFS embed.FS

var tpl = template.Must(template.ParseFS(tplFS, "templates/*.html"))

const submissionSchema = store.Schema
