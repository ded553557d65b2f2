// internal/booking/validate.go
//
// Field and form validation for booking requests.
//
// Context
// -------
// Each field maps to one go-playground/validator tag expression.  Four custom
// tags are registered at init: `contact_email` (the loose pattern the
// booking page has always accepted), `au_phone` (Australian mobile or
// landline, optional +61 prefix, spaces or hyphens between digits),
// `single_line` (no control characters), and `known_service` (every name is
// one of ServiceOptions).  Length caps match forms/booking.yaml so the JSON
// endpoint accepts nothing the HTML form would refuse.
//
// Check is the stateless entry point used by servers.  Validator wraps it
// with the lazy/eager visibility rules the interactive form needs: errors are
// computed but hidden until the first submit attempt, and after that every
// change re-validates immediately.  The switch is one-way per session.
//
// Notes
// -----
//   - An empty service set is valid and reaches the dispatcher as
//     NotSpecified.  Unknown service names are not.
//   - Oxford commas, two spaces after periods.
package booking

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/go-playground/validator/v10"
)

/*──────────────────────────── rules ────────────────────────────*/

var (
	emailRE = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)
	phoneRE = regexp.MustCompile(`^(\+?61\s?|0)[2-478](\s?\d){8}$`)
)

type rule struct {
	tag  string
	msgs map[string]string // validator tag → message
}

var rules = map[string]rule{
	FieldName: {"required,single_line,max=100", map[string]string{
		"required":    "Please enter your name.",
		"single_line": "Please enter your name on one line.",
		"max":         "Please keep your name under 100 characters.",
	}},
	FieldEmail: {"required,max=254,contact_email", map[string]string{
		"required":      "Please enter your email address.",
		"max":           "Please enter a valid email address.",
		"contact_email": "Please enter a valid email address.",
	}},
	FieldPhone: {"required,max=20,au_phone", map[string]string{
		"required": "Please enter your phone number.",
		"max":      "Please enter a valid Australian phone number.",
		"au_phone": "Please enter a valid Australian phone number.",
	}},
	FieldAddress: {"required,single_line,max=200", map[string]string{
		"required":    "Please enter the job address.",
		"single_line": "Please enter the address on one line.",
		"max":         "Please keep the address under 200 characters.",
	}},
	FieldServices: {"known_service", map[string]string{
		"known_service": "Please choose services from the list.",
	}},
	FieldMessage: {"max=2000", map[string]string{
		"max": "Please keep the message under 2000 characters.",
	}},
	FieldTerms: {"required", map[string]string{
		"required": "Please accept the terms and conditions.",
	}},
	FieldUrgency: {"omitempty,oneof=emergency 24h this-week flexible", map[string]string{
		"oneof": "Please choose how urgent the job is.",
	}},
	FieldPreferredTime: {"omitempty,oneof=morning afternoon evening anytime", map[string]string{
		"oneof": "Please choose a preferred time of day.",
	}},
	FieldPreferredDate: {"omitempty,datetime=2006-01-02", map[string]string{
		"datetime": "Please enter the date as YYYY-MM-DD.",
	}},
}

// checked lists every field with a rule, in form order.
var checked = []string{
	FieldName, FieldEmail, FieldPhone, FieldAddress, FieldServices,
	FieldPreferredTime, FieldPreferredDate, FieldUrgency, FieldMessage, FieldTerms,
}

var validate = newValidate()

func newValidate() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	must(v.RegisterValidation("contact_email", func(fl validator.FieldLevel) bool {
		return emailRE.MatchString(fl.Field().String())
	}))
	must(v.RegisterValidation("au_phone", func(fl validator.FieldLevel) bool {
		return phoneRE.MatchString(strings.ReplaceAll(fl.Field().String(), "-", " "))
	}))
	must(v.RegisterValidation("single_line", func(fl validator.FieldLevel) bool {
		return !strings.ContainsFunc(fl.Field().String(), unicode.IsControl)
	}))
	must(v.RegisterValidation("known_service", func(fl validator.FieldLevel) bool {
		f := fl.Field()
		switch f.Kind() {
		case reflect.String:
			return slices.Contains(ServiceOptions, f.String())
		case reflect.Slice:
			for i := 0; i < f.Len(); i++ {
				if !slices.Contains(ServiceOptions, f.Index(i).String()) {
					return false
				}
			}
			return true
		}
		return false
	}))
	return v
}

func must(err error) {
	if err != nil {
		panic(err)
	}
}

/*──────────────────────────── errors ───────────────────────────*/

// FieldError is the single-field failure returned by ValidateField.
type FieldError struct {
	Field   string
	Message string
}

func (e *FieldError) Error() string { return e.Field + ": " + e.Message }

// ValidationError carries every failing field of a form.
type ValidationError struct {
	Fields map[string]string
}

func (e *ValidationError) Error() string {
	keys := make([]string, 0, len(e.Fields))
	for k := range e.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return fmt.Sprintf("booking: invalid fields: %s", strings.Join(keys, ", "))
}

// IsValidationError reports whether err wraps a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

/*──────────────────────────── checks ───────────────────────────*/

// ValidateField applies one field's rule.  It returns nil for fields without
// a rule (files, newsletter) and ErrUnknownField for names outside the
// schema.
func ValidateField(name string, value any) error {
	r, ok := rules[name]
	if !ok {
		if known(name) {
			return nil
		}
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	if s, ok := value.(string); ok {
		value = strings.TrimSpace(s)
	}
	err := validate.Var(value, r.tag)
	if err == nil {
		return nil
	}
	var ves validator.ValidationErrors
	if errors.As(err, &ves) && len(ves) > 0 {
		if msg, ok := r.msgs[ves[0].Tag()]; ok {
			return &FieldError{Field: name, Message: msg}
		}
	}
	return &FieldError{Field: name, Message: "Please check this field."}
}

// Check validates a payload in full.  On success it returns the immutable
// Validated value; on failure the error is a *ValidationError.
func Check(p Payload) (*Validated, error) {
	p = p.Draft().Payload()
	fields := map[string]string{}
	for _, name := range checked {
		if err := ValidateField(name, fieldValue(p, name)); err != nil {
			var fe *FieldError
			if errors.As(err, &fe) {
				fields[name] = fe.Message
			}
		}
	}
	if len(fields) > 0 {
		return nil, &ValidationError{Fields: fields}
	}
	return &Validated{p: p}, nil
}

// MarshalJSON encodes the validated payload.
func (v *Validated) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.p)
}

func fieldValue(p Payload, name string) any {
	switch name {
	case FieldName:
		return p.Name
	case FieldEmail:
		return p.Email
	case FieldPhone:
		return p.Phone
	case FieldAddress:
		return p.Address
	case FieldServices:
		return p.Services
	case FieldMessage:
		return p.Message
	case FieldPreferredTime:
		return p.PreferredTime
	case FieldPreferredDate:
		return p.PreferredDate
	case FieldUrgency:
		return p.Urgency
	case FieldTerms:
		return p.TermsAccepted
	}
	return nil
}

func known(name string) bool {
	switch name {
	case FieldFiles, FieldNewsletter:
		return true
	}
	_, ok := rules[name]
	return ok
}

/*──────────────────────────── session ──────────────────────────*/

// Validator tracks one form session's error map and visibility mode.
type Validator struct {
	mu        sync.Mutex
	attempted bool
	errs      map[string]string
}

// NewValidator returns a validator in lazy mode.
func NewValidator() *Validator {
	return &Validator{errs: map[string]string{}}
}

// MarkSubmitAttempted switches to eager mode.  There is no way back.
func (v *Validator) MarkSubmitAttempted() {
	v.mu.Lock()
	v.attempted = true
	v.mu.Unlock()
}

// Eager reports whether a submit has been attempted.
func (v *Validator) Eager() bool {
	v.mu.Lock()
	defer v.mu.Unlock()
	return v.attempted
}

// OnBlur validates a field the user has left.  The result is always recorded
// but only returned once the session is eager.
func (v *Validator) OnBlur(name string, value any) error {
	return v.record(name, value)
}

// OnChange re-validates a field while the user edits it.  Like OnBlur the
// result is recorded in both modes and returned only once eager.
func (v *Validator) OnChange(name string, value any) error {
	return v.record(name, value)
}

func (v *Validator) record(name string, value any) error {
	v.mu.Lock()
	defer v.mu.Unlock()
	err := ValidateField(name, value)
	var fe *FieldError
	switch {
	case err == nil:
		delete(v.errs, name)
	case errors.As(err, &fe):
		v.errs[name] = fe.Message
	default:
		return err
	}
	if !v.attempted {
		return nil
	}
	return err
}

// ValidateForm checks the whole draft, replaces the error map, and returns
// the Validated value when every field passes.
func (v *Validator) ValidateForm(d Draft) (*Validated, bool) {
	val, err := Check(d.Payload())

	v.mu.Lock()
	defer v.mu.Unlock()
	v.errs = map[string]string{}
	var ve *ValidationError
	if errors.As(err, &ve) {
		for k, msg := range ve.Fields {
			v.errs[k] = msg
		}
		return nil, false
	}
	return val, true
}

// Visible returns the errors the user should see: none while lazy, a copy
// of the full map once eager.
func (v *Validator) Visible() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := map[string]string{}
	if !v.attempted {
		return out
	}
	for k, msg := range v.errs {
		out[k] = msg
	}
	return out
}

// Computed returns every recorded error regardless of mode.
func (v *Validator) Computed() map[string]string {
	v.mu.Lock()
	defer v.mu.Unlock()
	out := make(map[string]string, len(v.errs))
	for k, msg := range v.errs {
		out[k] = msg
	}
	return out
}
