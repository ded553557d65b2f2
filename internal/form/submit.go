// internal/form/submit.go
//
// Forms subsystem: consolidated Submit helper.
//
// Context
//   Most handlers want one call that parses the POST body and validates it.
//   HandleSubmit provides that so component code stays terse.  What happens
//   to the clean values is up to the caller.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// maxFormBody caps urlencoded bodies.
const maxFormBody = 64 << 10

// ValidationError wraps []ErrorField and satisfies the error interface.
type ValidationError struct{ Fields []ErrorField }

func (ve *ValidationError) Error() string {
	names := make([]string, 0, len(ve.Fields))
	for _, f := range ve.Fields {
		names = append(names, f.Name)
	}
	return "form validation failed: " + strings.Join(names, ", ")
}

// Map returns the first message per field, keyed for RenderOptions.Errors.
func (ve *ValidationError) Map() map[string]string {
	out := make(map[string]string, len(ve.Fields))
	for _, f := range ve.Fields {
		if _, ok := out[f.Name]; !ok {
			out[f.Name] = f.Message
		}
	}
	return out
}

// HandleSubmit parses r and validates it against fd.  On failure the error
// is a *ValidationError (check with IsValidationError); the posted values
// are still returned so the form can be re-filled.
func (t *Tokens) HandleSubmit(fd *FormDef, w http.ResponseWriter, r *http.Request) (clean, posted url.Values, err error) {
	r.Body = http.MaxBytesReader(w, r.Body, maxFormBody)
	if err := r.ParseForm(); err != nil {
		return nil, nil, err
	}
	c, errs := t.Validate(fd, r.PostForm)
	if len(errs) > 0 {
		return nil, r.PostForm, &ValidationError{Fields: errs}
	}
	return c, r.PostForm, nil
}

// IsValidationError reports whether err came from failed validation.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
