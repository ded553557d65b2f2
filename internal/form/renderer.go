// internal/form/renderer.go
//
// Forms subsystem: HTML renderer.
//
// Context
//   Given a FormDef this file converts the definition into accessible HTML.
//   It applies HTML5 validation attributes, injects the CSRF token and render
//   timestamp, re-fills previously posted values, and prints server-side
//   error messages next to the offending control.
//
// Workflow
//   •  Render selects the requested step (if multi-step) and writes each
//      field via writeField.
//   •  Fields with `autocomplete: places` get a data hook for the address
//      lookup script, a hidden `_place_id` input, and a manual-entry toggle
//      that the script reveals on focus.
//   •  The caller receives template.HTML so the page template does not
//      double-escape the markup.
//
// Style
//   Output HTML is deliberately plain so the site stylesheet can target
//   element selectors.  Each input gets id="fld-{name}" and is wrapped in
//   <div class="form-field">.
//
//------------------------------------------------------------------------------

package form

import (
	"bytes"
	"fmt"
	"html"
	"html/template"
	"net/url"
	"slices"
	"strconv"
	"time"
)

// PlaceIDField carries the chosen suggestion's place id on POST.
const PlaceIDField = "_place_id"

// ManualField is posted as "on" when the customer switched to manual entry.
const ManualField = "_manual_address"

// RenderOptions bundles optional parameters influencing HTML output.
type RenderOptions struct {
	Values url.Values        // previously posted values
	Errors map[string]string // field name (or FormLevel) → message
	StepID string            // empty means first step
}

// Render returns the HTML markup for fd with fresh security inputs.
func (t *Tokens) Render(fd *FormDef, opts RenderOptions) (template.HTML, error) {
	fields, stepIndex, err := selectFields(fd, opts.StepID)
	if err != nil {
		return "", err
	}
	tok, err := t.Generate()
	if err != nil {
		return "", fmt.Errorf("render %s: csrf: %w", fd.ID, err)
	}

	var buf bytes.Buffer
	buf.WriteString(`<div class="site-form" data-form="` + html.EscapeString(fd.ID) + `">` + "\n")
	if msg := opts.Errors[FormLevel]; msg != "" {
		buf.WriteString(`<p class="form-error" role="alert">` + html.EscapeString(msg) + `</p>` + "\n")
	}
	for _, f := range fields {
		if err := writeField(&buf, &f, opts); err != nil {
			return "", err
		}
	}

	fmt.Fprintf(&buf, `<input type="hidden" name="csrf_token" value="%s">`+"\n", tok)
	fmt.Fprintf(&buf, `<input type="hidden" name="render_ts" value="%d">`+"\n", t.now().UnixMicro())
	if stepIndex >= 0 {
		fmt.Fprintf(&buf, `<input type="hidden" name="current_step" value="%s">`+"\n", html.EscapeString(fd.Steps[stepIndex].ID))
	}
	label := fd.Submit
	if label == "" {
		label = "Submit"
	}
	buf.WriteString(`<button type="submit">` + html.EscapeString(label) + `</button>` + "\n")
	buf.WriteString(`</div>`)
	return template.HTML(buf.String()), nil
}

// selectFields returns the FieldDefs to render for the requested step.
func selectFields(fd *FormDef, stepID string) ([]FieldDef, int, error) {
	if len(fd.Steps) == 0 {
		return fd.Fields, -1, nil
	}
	if stepID == "" {
		return fd.Steps[0].Fields, 0, nil
	}
	for i, s := range fd.Steps {
		if s.ID == stepID {
			return s.Fields, i, nil
		}
	}
	return nil, -1, fmt.Errorf("render: step %q not found in form %q", stepID, fd.ID)
}

// writeField emits HTML for one field.
func writeField(buf *bytes.Buffer, f *FieldDef, opts RenderOptions) error {
	name := html.EscapeString(f.Name)
	val := opts.Values.Get(f.Name)
	msg := opts.Errors[f.Name]

	cls := "form-field"
	if msg != "" {
		cls += " has-error"
	}
	buf.WriteString(`<div class="` + cls + `">` + "\n")

	attrs := func() {
		if f.Required {
			buf.WriteString(` required`)
		}
		if f.MinLength > 0 {
			buf.WriteString(` minlength="` + strconv.Itoa(f.MinLength) + `"`)
		}
		if f.MaxLength > 0 {
			buf.WriteString(` maxlength="` + strconv.Itoa(f.MaxLength) + `"`)
		}
		if f.Placeholder != "" {
			buf.WriteString(` placeholder="` + html.EscapeString(f.Placeholder) + `"`)
		}
		if msg != "" {
			buf.WriteString(` aria-invalid="true"`)
		}
	}

	switch f.Type {
	case "text", "email", "tel", "date":
		buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")
		buf.WriteString(`<input id="fld-` + name + `" name="` + name + `" type="` + f.Type + `"`)
		attrs()
		if f.Pattern != "" {
			buf.WriteString(` pattern="` + html.EscapeString(f.Pattern) + `"`)
		}
		if f.Autocomplete == "places" {
			buf.WriteString(` data-autocomplete="places" autocomplete="off"`)
		}
		if val != "" {
			buf.WriteString(` value="` + html.EscapeString(val) + `"`)
		}
		buf.WriteString(`>` + "\n")
		if f.Autocomplete == "places" {
			fmt.Fprintf(buf, `<input type="hidden" name="%s" value="%s">`+"\n",
				PlaceIDField, html.EscapeString(opts.Values.Get(PlaceIDField)))
			buf.WriteString(`<label class="manual-toggle" hidden><input type="checkbox" name="` + ManualField + `"> Enter address manually</label>` + "\n")
		}

	case "textarea":
		buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")
		buf.WriteString(`<textarea id="fld-` + name + `" name="` + name + `"`)
		attrs()
		buf.WriteString(`>` + html.EscapeString(val) + `</textarea>` + "\n")

	case "select":
		buf.WriteString(`<label for="fld-` + name + `">` + html.EscapeString(f.Label) + `</label>` + "\n")
		buf.WriteString(`<select id="fld-` + name + `" name="` + name + `"`)
		attrs()
		buf.WriteString(`>` + "\n")
		buf.WriteString(`<option value="">Choose…</option>` + "\n")
		for _, opt := range f.Options {
			sel := ""
			if val == opt {
				sel = ` selected`
			}
			buf.WriteString(`<option value="` + html.EscapeString(opt) + `"` + sel + `>` + html.EscapeString(opt) + `</option>` + "\n")
		}
		buf.WriteString(`</select>` + "\n")

	case "checkbox":
		checked := ""
		if val != "" && val != "false" {
			checked = ` checked`
		}
		buf.WriteString(`<label for="fld-` + name + `"><input id="fld-` + name + `" name="` + name + `" type="checkbox"` + checked)
		if f.Required {
			buf.WriteString(` required`)
		}
		buf.WriteString(`> ` + html.EscapeString(f.Label) + `</label>` + "\n")

	case "radio", "checkboxes":
		kind := "radio"
		if f.Type == "checkboxes" {
			kind = "checkbox"
		}
		buf.WriteString(`<fieldset><legend>` + html.EscapeString(f.Label) + `</legend>` + "\n")
		for i, opt := range f.Options {
			id := fmt.Sprintf("fld-%s-%d", name, i)
			checked := ""
			if slices.Contains(opts.Values[f.Name], opt) {
				checked = ` checked`
			}
			buf.WriteString(`<div class="choice"><input id="` + id + `" name="` + name + `" type="` + kind + `" value="` + html.EscapeString(opt) + `"` + checked)
			if f.Required && kind == "radio" {
				buf.WriteString(` required`)
			}
			buf.WriteString(`> <label for="` + id + `">` + html.EscapeString(opt) + `</label></div>` + "\n")
		}
		buf.WriteString(`</fieldset>` + "\n")

	default:
		return fmt.Errorf("writeField: unsupported field type %q in form field %s", f.Type, f.Name)
	}

	if f.Help != "" {
		buf.WriteString(`<small class="help">` + html.EscapeString(f.Help) + `</small>` + "\n")
	}
	buf.WriteString(`<span class="error" aria-live="polite">` + html.EscapeString(msg) + `</span>` + "\n")
	buf.WriteString(`</div>` + "\n")
	return nil
}

// Stamp returns a render_ts value for t, used by tests and the CLI.
func Stamp(t time.Time) string { return strconv.FormatInt(t.UnixMicro(), 10) }
