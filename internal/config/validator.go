// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// Context
// -------
// `internal/config/loader.go` calls `validateStruct` immediately after it
// unmarshals the merged Koanf tree into a `Config` instance.  Any tag
// mismatch or validation error aborts startup, ensuring the binary never
// runs with partial, malformed, or missing configuration.
//
// Beyond the built-in rules one custom rule is registered here:
// `dsn_template`, which allows at most one `%s` verb (the password slot)
// and no other formatting verbs.
//
// Notes
// -----
//   • Oxford commas, two spaces after periods.
//   • Section dividers use the simple comment style requested.

package config

import (
	"strings"

	"github.com/go-playground/validator/v10"
)

//
// validator instance (package-level singleton)
//

var v = newValidator()

func newValidator() *validator.Validate {
	val := validator.New()
	_ = val.RegisterValidation("dsn_template", func(fl validator.FieldLevel) bool {
		s := strings.ReplaceAll(fl.Field().String(), "%%", "")
		return strings.Count(s, "%") == strings.Count(s, "%s") && strings.Count(s, "%s") <= 1
	})
	return val
}

//
// public API
//

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
