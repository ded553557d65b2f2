// internal/booking/store.go
//
// Form state store: one mutation entry point per field.
//
// The store holds the current Draft.  It never validates and never performs
// I/O; the Validator and the submission coordinator read snapshots from it.
// A mutex guards the draft so the CLI, tests, and any UI bridge may share a
// store across goroutines.

package booking

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
)

var (
	// ErrUnknownField is returned for names outside the booking schema.
	ErrUnknownField = errors.New("booking: unknown field")
	// ErrFieldType is returned when a value has the wrong Go type.
	ErrFieldType = errors.New("booking: wrong value type for field")
)

// Store owns one booking draft.  The zero value is ready to use.
type Store struct {
	mu sync.Mutex
	d  Draft
}

// NewStore returns a store holding an empty draft.
func NewStore() *Store { return &Store{} }

// Draft returns a deep copy of the current draft.
func (s *Store) Draft() Draft {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.d.Clone()
}

// SetField replaces one field's value.  Services use toggle semantics: the
// named service is added when absent and removed when present.
//
// Accepted value types:
//
//	string   – text fields, services (toggle), address (manual entry)
//	Address  – address (suggestion or manual)
//	bool     – newsletter, termsAccepted
//	File     – files (appended)
//	[]File   – files (replaced)
func (s *Store) SetField(name string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch name {
	case FieldName, FieldEmail, FieldPhone, FieldPreferredTime,
		FieldPreferredDate, FieldUrgency, FieldMessage:
		v, ok := value.(string)
		if !ok {
			return typeErr(name, value)
		}
		*s.textField(name) = v

	case FieldAddress:
		switch v := value.(type) {
		case string:
			s.d.Address = Address{Formatted: v}
		case Address:
			s.d.Address = v.clone()
		default:
			return typeErr(name, value)
		}

	case FieldServices:
		v, ok := value.(string)
		if !ok {
			return typeErr(name, value)
		}
		s.toggle(v)

	case FieldFiles:
		switch v := value.(type) {
		case File:
			s.d.Files = append(s.d.Files, v)
		case []File:
			s.d.Files = slices.Clone(v)
		default:
			return typeErr(name, value)
		}

	case FieldNewsletter, FieldTerms:
		v, ok := value.(bool)
		if !ok {
			return typeErr(name, value)
		}
		if name == FieldNewsletter {
			s.d.Newsletter = v
		} else {
			s.d.TermsAccepted = v
		}

	default:
		return fmt.Errorf("%w: %q", ErrUnknownField, name)
	}
	return nil
}

// ToggleService adds name when absent and removes it when present.  Blank
// names are ignored.  Toggling twice restores the original set.
func (s *Store) ToggleService(name string) {
	s.mu.Lock()
	s.toggle(name)
	s.mu.Unlock()
}

// SetAddress records an address and whether it came from a suggestion.
func (s *Store) SetAddress(a Address) {
	s.mu.Lock()
	s.d.Address = a.clone()
	s.mu.Unlock()
}

// AddFile appends one attachment.
func (s *Store) AddFile(f File) {
	s.mu.Lock()
	s.d.Files = append(s.d.Files, f)
	s.mu.Unlock()
}

// Reset restores the initial empty draft.
func (s *Store) Reset() {
	s.mu.Lock()
	s.d = Draft{}
	s.mu.Unlock()
}

func (s *Store) toggle(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	if i := slices.Index(s.d.Services, name); i >= 0 {
		s.d.Services = slices.Delete(s.d.Services, i, i+1)
		return
	}
	s.d.Services = append(s.d.Services, name)
}

// textField maps a text field name to its storage.  Caller holds s.mu.
func (s *Store) textField(name string) *string {
	switch name {
	case FieldName:
		return &s.d.Name
	case FieldEmail:
		return &s.d.Email
	case FieldPhone:
		return &s.d.Phone
	case FieldPreferredTime:
		return &s.d.PreferredTime
	case FieldPreferredDate:
		return &s.d.PreferredDate
	case FieldUrgency:
		return &s.d.Urgency
	default:
		return &s.d.Message
	}
}

func (a Address) clone() Address {
	out := a
	if a.Components != nil {
		out.Components = make(map[string]string, len(a.Components))
		for k, v := range a.Components {
			out.Components[k] = v
		}
	}
	return out
}

func typeErr(name string, value any) error {
	return fmt.Errorf("%w: %s got %T", ErrFieldType, name, value)
}
