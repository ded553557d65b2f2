// internal/form/validate.go
//
// Forms subsystem: server-side validation.
//
// Context
//   The renderer outputs HTML containing a CSRF token and a render timestamp.
//   When the browser posts, Validate checks CSRF, timing, required fields,
//   type constraints, regex patterns, option values, and length limits.  It
//   returns the trimmed values so the caller can map them onto its own
//   model.
//
// Workflow
//   •  Form-level checks (CSRF, then timing) short-circuit.  A bot that
//      submits in under two seconds never reaches field validation.
//   •  Each field is checked by type.  Errors are captured in []ErrorField so
//      the re-rendered form can highlight exact issues.
//   •  Output values are NOT HTML-escaped; every consumer renders through
//      html/template.
//
//------------------------------------------------------------------------------

package form

import (
	"fmt"
	"net/mail"
	"net/url"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

// FormLevel is the ErrorField name used for errors not tied to one field.
const FormLevel = "_form"

// Submission timing window.
const (
	MinFillTime = 2 * time.Second
	MaxFillTime = 30 * time.Minute
)

// ErrorField describes a single validation failure.
type ErrorField struct {
	Name    string // field name, or FormLevel
	Message string // user-facing message
}

// -----------------------------------------------------------------------------
// Public API
// -----------------------------------------------------------------------------

// Validate checks posted against fd.  A non-empty error slice means the form
// must be re-rendered.
func (t *Tokens) Validate(fd *FormDef, posted url.Values) (url.Values, []ErrorField) {
	if err := t.Verify(posted.Get("csrf_token")); err != nil {
		return nil, []ErrorField{{FormLevel, "Security token invalid.  Please refresh and try again."}}
	}
	if msg := t.checkTiming(posted.Get("render_ts")); msg != "" {
		return nil, []ErrorField{{FormLevel, msg}}
	}

	var errs []ErrorField
	clean := url.Values{}
	for _, f := range fd.AllFields() {
		vals := nonEmpty(posted[f.Name])
		if len(vals) == 0 {
			if f.Required {
				errs = append(errs, ErrorField{f.Name, requiredMsg(&f)})
			}
			continue
		}
		if !f.Multi() {
			vals = vals[:1]
		}
		for _, v := range vals {
			out, msg := checkValue(&f, v)
			if msg != "" {
				errs = append(errs, ErrorField{f.Name, msg})
				break
			}
			if !slices.Contains(clean[f.Name], out) {
				clean.Add(f.Name, out)
			}
		}
	}
	return clean, errs
}

// -----------------------------------------------------------------------------
// Form-level helpers
// -----------------------------------------------------------------------------

// checkTiming rejects forms submitted suspiciously fast or too late.
func (t *Tokens) checkTiming(tsRaw string) string {
	if tsRaw == "" {
		return "Timestamp missing.  Please reload the page."
	}
	ts, err := strconv.ParseInt(tsRaw, 10, 64)
	if err != nil {
		return "Bad timestamp.  Please retry."
	}
	delta := t.now().Sub(time.UnixMicro(ts))
	switch {
	case delta < MinFillTime:
		return "Form submitted too quickly.  Please enter the fields manually."
	case delta > MaxFillTime:
		return "Form expired.  Please reload and submit again."
	default:
		return ""
	}
}

// -----------------------------------------------------------------------------
// Field-level helpers
// -----------------------------------------------------------------------------

func nonEmpty(in []string) []string {
	var out []string
	for _, s := range in {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func checkValue(f *FieldDef, val string) (string, string) {
	switch f.Type {
	case "text", "textarea", "tel":
		if msg := lengthCheck(f, val); msg != "" {
			return "", msg
		}
		if f.Pattern != "" && !regexp.MustCompile(f.Pattern).MatchString(val) {
			return "", patternMsg(f)
		}
		return val, ""

	case "email":
		if msg := lengthCheck(f, val); msg != "" {
			return "", msg
		}
		if a, err := mail.ParseAddress(val); err != nil || a.Address != val {
			return "", invalidMsg(f)
		}
		return val, ""

	case "date":
		if _, err := time.Parse("2006-01-02", val); err != nil {
			return "", invalidMsg(f)
		}
		return val, ""

	case "checkbox":
		return "true", ""

	case "select", "radio", "checkboxes":
		if !slices.Contains(f.Options, val) {
			return "", invalidMsg(f)
		}
		return val, ""
	}
	return "", fmt.Sprintf("Unsupported field type %q.", f.Type)
}

// lengthCheck validates minlength / maxlength in characters.
func lengthCheck(f *FieldDef, s string) string {
	n := utf8.RuneCountInString(s)
	if f.MinLength > 0 && n < f.MinLength {
		return fmt.Sprintf("Must be at least %d characters.", f.MinLength)
	}
	if f.MaxLength > 0 && n > f.MaxLength {
		return fmt.Sprintf("Must be at most %d characters.", f.MaxLength)
	}
	return ""
}

// user-friendly default messages
func requiredMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "This field is required."
}
func invalidMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Invalid input."
}
func patternMsg(f *FieldDef) string {
	if f.ErrorMsg != "" {
		return f.ErrorMsg
	}
	return "Input does not match required format."
}
