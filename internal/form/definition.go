// internal/form/definition.go
//
// Forms subsystem: YAML definition loader.
//
// Context
//   Each server-rendered HTML form is declared in a YAML file under forms/.
//   The file defines the form's identifier, title, fields, and optional
//   multi-step structure.  At start-up LoadFS parses every "*.yaml" in the
//   directory and stores the resulting FormDef in an in-memory registry.  The
//   renderer and validator fetch definitions from the registry by ID, so the
//   markup and the server-side checks always agree.
//
// Workflow
//   •  Structs mirror the YAML schema: FormDef → StepDef → FieldDef.
//   •  Parse decodes one document and validates structural rules.
//   •  LoadFS walks a directory tree, parses each YAML, and registers it.
//   •  Get offers safe, read-only access to a parsed form by ID.
//
// Style
//   Full sentences, two spaces after periods, Oxford commas.
//
//------------------------------------------------------------------------------

package form

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"
	"strings"
	"sync"

	"gopkg.in/yaml.v3"
)

// -----------------------------------------------------------------------------
// Data structures
// -----------------------------------------------------------------------------

// FormDef represents one form definition loaded from YAML.
//
// A form is defined EITHER by a flat Field list OR by a Steps list.
type FormDef struct {
	ID     string     `yaml:"id"`     // e.g. "booking"
	Title  string     `yaml:"title"`  // Display title, optional.
	Submit string     `yaml:"submit"` // Submit button label, optional.
	Fields []FieldDef `yaml:"fields"` // Flat list of fields (single-step).
	Steps  []StepDef  `yaml:"steps"`  // Multi-step definition.  Mutually exclusive with Fields.
}

// FieldDef describes a single input control.  Validation metadata lives
// inline so the server enforces the same rules the browser hints at.
type FieldDef struct {
	Name         string   `yaml:"name"`         // Submission key.  Required.
	Label        string   `yaml:"label"`        // Human-readable label.  Required.
	Type         string   `yaml:"type"`         // See fieldTypes.
	Placeholder  string   `yaml:"placeholder"`  // Optional placeholder text.
	Help         string   `yaml:"help"`         // Optional hint under the control.
	Required     bool     `yaml:"required"`     // True if input is mandatory.
	MinLength    int      `yaml:"minlength"`    // ≥ 0, 0 means unset.
	MaxLength    int      `yaml:"maxlength"`    // ≥ 0, 0 means unset.
	Pattern      string   `yaml:"pattern"`      // Regex pattern string.
	Options      []string `yaml:"options"`      // select, radio, and checkboxes.
	Autocomplete string   `yaml:"autocomplete"` // "places" enables address lookup.
	ErrorMsg     string   `yaml:"error"`        // Custom error message, optional.
}

// StepDef groups fields into a wizard step.
type StepDef struct {
	ID     string     `yaml:"id"`    // Unique per form.  If blank, we derive one.
	Title  string     `yaml:"title"` // Display heading, optional.
	Fields []FieldDef `yaml:"fields"`
}

var fieldTypes = map[string]bool{
	"text": true, "textarea": true, "email": true, "tel": true, "date": true,
	"select": true, "radio": true, "checkbox": true, "checkboxes": true,
}

// Multi reports whether the field submits several values.
func (f *FieldDef) Multi() bool { return f.Type == "checkboxes" }

// AllFields returns every FieldDef regardless of step structure.
func (fd *FormDef) AllFields() []FieldDef {
	if len(fd.Steps) == 0 {
		return fd.Fields
	}
	var out []FieldDef
	for _, s := range fd.Steps {
		out = append(out, s.Fields...)
	}
	return out
}

// -----------------------------------------------------------------------------
// Registry
// -----------------------------------------------------------------------------

var (
	registryMu sync.RWMutex
	registry   = make(map[string]*FormDef)
)

// Get returns a parsed FormDef by ID.  The boolean is false when unknown.
func Get(id string) (*FormDef, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	fd, ok := registry[id]
	return fd, ok
}

// Register inserts or replaces fd.  Caller must ensure fd passed Parse.
func Register(fd *FormDef) {
	registryMu.Lock()
	registry[fd.ID] = fd
	registryMu.Unlock()
}

// -----------------------------------------------------------------------------
// Loader API
// -----------------------------------------------------------------------------

// Parse decodes one YAML document and validates its structure.  name is used
// in error messages only.
func Parse(name string, raw []byte) (*FormDef, error) {
	var fd FormDef
	if err := yaml.Unmarshal(raw, &fd); err != nil {
		return nil, fmt.Errorf("parse YAML %s: %w", name, err)
	}
	if err := validateFormDef(&fd, name); err != nil {
		return nil, err
	}
	return &fd, nil
}

// LoadFS parses and registers every "*.yaml" under fsys.  It fails fast so
// broken definitions surface at start-up, not on first request.
func LoadFS(fsys fs.FS) error {
	n := 0
	err := fs.WalkDir(fsys, ".", func(p string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() || path.Ext(p) != ".yaml" {
			return nil
		}
		raw, err := fs.ReadFile(fsys, p)
		if err != nil {
			return fmt.Errorf("read form file %s: %w", p, err)
		}
		fd, err := Parse(p, raw)
		if err != nil {
			return err
		}
		Register(fd)
		n++
		return nil
	})
	if err != nil {
		return err
	}
	if n == 0 {
		return errors.New("form: no definitions found")
	}
	return nil
}

// -----------------------------------------------------------------------------
// Validation helpers
// -----------------------------------------------------------------------------

// validateFormDef enforces structural rules that cannot be expressed via YAML
// tags alone.
func validateFormDef(fd *FormDef, name string) error {
	if fd.ID == "" {
		return fmt.Errorf("form definition %s: missing required 'id'", name)
	}
	if len(fd.Fields) > 0 && len(fd.Steps) > 0 {
		return fmt.Errorf("form definition %s: cannot have both 'fields' and 'steps'", name)
	}
	if len(fd.Fields) == 0 && len(fd.Steps) == 0 {
		return fmt.Errorf("form definition %s: must have 'fields' or 'steps'", name)
	}

	seen := make(map[string]struct{})
	check := func(f *FieldDef) error {
		if err := validateField(f, name); err != nil {
			return err
		}
		if _, dup := seen[f.Name]; dup {
			return fmt.Errorf("form %s: duplicate field name '%s'", name, f.Name)
		}
		seen[f.Name] = struct{}{}
		return nil
	}

	for i := range fd.Fields {
		if err := check(&fd.Fields[i]); err != nil {
			return err
		}
	}
	for si := range fd.Steps {
		s := &fd.Steps[si]
		if s.ID == "" {
			s.ID = fmt.Sprintf("step%d", si+1)
		}
		for fi := range s.Fields {
			if err := check(&s.Fields[fi]); err != nil {
				return err
			}
		}
	}
	return nil
}

// validateField confirms that essential attributes are present and sane.
func validateField(f *FieldDef, name string) error {
	switch {
	case f.Name == "":
		return fmt.Errorf("form %s: field missing 'name'", name)
	case strings.HasPrefix(f.Name, "_"), f.Name == "csrf_token", f.Name == "render_ts":
		return fmt.Errorf("form %s: field name '%s' is reserved", name, f.Name)
	case f.Label == "":
		return fmt.Errorf("form %s: field '%s' missing 'label'", name, f.Name)
	case !fieldTypes[f.Type]:
		return fmt.Errorf("form %s: field '%s' has unsupported type '%s'", name, f.Name, f.Type)
	}

	switch f.Type {
	case "select", "radio", "checkboxes":
		if len(f.Options) == 0 {
			return fmt.Errorf("form %s: field '%s' needs 'options'", name, f.Name)
		}
	}

	if f.Pattern != "" {
		if _, err := regexp.Compile(f.Pattern); err != nil {
			return fmt.Errorf("form %s: field '%s' invalid regex pattern: %v", name, f.Name, err)
		}
	}
	if f.MinLength < 0 || f.MaxLength < 0 {
		return fmt.Errorf("form %s: field '%s' minlength/maxlength cannot be negative", name, f.Name)
	}
	if f.MaxLength > 0 && f.MinLength > f.MaxLength {
		return fmt.Errorf("form %s: field '%s' minlength greater than maxlength", name, f.Name)
	}
	return nil
}
