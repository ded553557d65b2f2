// internal/booking/draft.go
//
// Booking request data model.
//
// Context
// -------
// A booking request moves through two phases.  While the customer is typing
// it lives in a Draft, which anyone may mutate and which carries no
// guarantees.  Once the Validator accepts a Draft it produces a Validated
// value.  Validated is immutable and is the only type the submission
// coordinator, the HTTP transport, and the notification dispatcher accept,
// so unvalidated data can never be sent.
//
// Payload is the wire shape shared by the browser, the CLI, and the
// `/api/send-booking-email` endpoint.  Files are held on the Draft only; they
// are never part of the payload.
//
// Notes
// -----
//   - Field names match the JSON keys so error maps line up with the form.
//   - Oxford commas, two spaces after periods.
package booking

import (
	"slices"
	"strings"
)

// Field names.  These double as JSON keys and error-map keys.
const (
	FieldName          = "name"
	FieldEmail         = "email"
	FieldPhone         = "phone"
	FieldAddress       = "address"
	FieldServices      = "services"
	FieldPreferredTime = "preferredTime"
	FieldPreferredDate = "preferredDate"
	FieldUrgency       = "urgency"
	FieldMessage       = "message"
	FieldFiles         = "files"
	FieldNewsletter    = "newsletter"
	FieldTerms         = "termsAccepted"
)

// Address component keys produced by place resolution.
const (
	ComponentStreetNumber = "street_number"
	ComponentRoute        = "route"
	ComponentLocality     = "locality"
	ComponentRegion       = "region"
	ComponentCountry      = "country"
	ComponentPostalCode   = "postal_code"
)

// NotSpecified is shown downstream when no service was selected.
const NotSpecified = "Not specified"

// ServiceOptions is the closed set of service names a booking may carry.
// forms/booking.yaml offers the same list as checkboxes.
var ServiceOptions = []string{
	"Leak Detection",
	"Blocked Drains",
	"Gas Fitting",
	"Hot Water",
	"Roofing",
	"Air Conditioning",
}

// Address is either free text typed by the customer or a structured result
// chosen from the place-lookup suggestions.
type Address struct {
	Formatted      string            `json:"formatted"`
	FromSuggestion bool              `json:"fromSuggestion"`
	Components     map[string]string `json:"components,omitempty"`
}

// File is one attachment held on the draft.
type File struct {
	Name        string
	ContentType string
	Data        []byte
}

// Draft is the freely mutable, unvalidated booking request.
type Draft struct {
	Name          string
	Email         string
	Phone         string
	Address       Address
	Services      []string // set semantics, see Store.ToggleService
	PreferredTime string
	PreferredDate string
	Urgency       string
	Message       string
	Files         []File
	Newsletter    bool
	TermsAccepted bool
}

// HasService reports whether name is selected.
func (d *Draft) HasService(name string) bool {
	return slices.Contains(d.Services, name)
}

// Clone returns a deep copy so snapshots never alias store state.
func (d Draft) Clone() Draft {
	out := d
	out.Services = slices.Clone(d.Services)
	out.Files = slices.Clone(d.Files)
	if d.Address.Components != nil {
		out.Address.Components = make(map[string]string, len(d.Address.Components))
		for k, v := range d.Address.Components {
			out.Address.Components[k] = v
		}
	}
	return out
}

// Payload converts the draft into its wire shape.  Text fields are trimmed.
func (d Draft) Payload() Payload {
	c := d.Clone()
	if c.Services == nil {
		c.Services = []string{}
	}
	return Payload{
		Name:                  strings.TrimSpace(c.Name),
		Email:                 strings.TrimSpace(c.Email),
		Phone:                 strings.TrimSpace(c.Phone),
		Address:               strings.TrimSpace(c.Address.Formatted),
		AddressComponents:     c.Address.Components,
		AddressFromSuggestion: c.Address.FromSuggestion,
		Services:              c.Services,
		PreferredTime:         strings.TrimSpace(c.PreferredTime),
		PreferredDate:         strings.TrimSpace(c.PreferredDate),
		Urgency:               strings.TrimSpace(c.Urgency),
		Message:               strings.TrimSpace(c.Message),
		Newsletter:            c.Newsletter,
		TermsAccepted:         c.TermsAccepted,
	}
}

// Payload is the JSON body accepted by the dispatch endpoint.
type Payload struct {
	Name                  string            `json:"name"`
	Email                 string            `json:"email"`
	Phone                 string            `json:"phone"`
	Address               string            `json:"address"`
	AddressComponents     map[string]string `json:"addressComponents,omitempty"`
	AddressFromSuggestion bool              `json:"addressFromSuggestion,omitempty"`
	Services              []string          `json:"services"`
	PreferredTime         string            `json:"preferredTime,omitempty"`
	PreferredDate         string            `json:"preferredDate,omitempty"`
	Urgency               string            `json:"urgency,omitempty"`
	Message               string            `json:"message,omitempty"`
	Newsletter            bool              `json:"newsletter"`
	TermsAccepted         bool              `json:"termsAccepted"`
}

// ServicesLabel joins the selected services or returns NotSpecified.
func (p Payload) ServicesLabel() string {
	if len(p.Services) == 0 {
		return NotSpecified
	}
	return strings.Join(p.Services, ", ")
}

// Draft turns a received payload back into a draft, dropping duplicate and
// blank service names along the way.
func (p Payload) Draft() Draft {
	d := Draft{
		Name:  p.Name,
		Email: p.Email,
		Phone: p.Phone,
		Address: Address{
			Formatted:      p.Address,
			FromSuggestion: p.AddressFromSuggestion,
		},
		PreferredTime: p.PreferredTime,
		PreferredDate: p.PreferredDate,
		Urgency:       p.Urgency,
		Message:       p.Message,
		Newsletter:    p.Newsletter,
		TermsAccepted: p.TermsAccepted,
	}
	if p.AddressComponents != nil {
		d.Address.Components = make(map[string]string, len(p.AddressComponents))
		for k, v := range p.AddressComponents {
			d.Address.Components[k] = v
		}
	}
	for _, s := range p.Services {
		s = strings.TrimSpace(s)
		if s != "" && !d.HasService(s) {
			d.Services = append(d.Services, s)
		}
	}
	return d
}

// Validated is an immutable booking request that passed validation.  The
// zero value is never produced by this package; obtain one from Check or
// Validator.ValidateForm.
type Validated struct {
	p Payload
}

// Payload returns a copy of the validated payload.
func (v *Validated) Payload() Payload {
	return v.p.Draft().Payload()
}
