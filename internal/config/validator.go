// internal/config/validator.go
//
// Thin wrapper around go-playground/validator.
//
// loader.go calls validateStruct right after the merged koanf tree is
// unmarshalled.  Any failure aborts startup.

package config

import "github.com/go-playground/validator/v10"

var v = validator.New()

// validateStruct returns the first validation error, or nil on success.
func validateStruct(c *Config) error {
	return v.Struct(c)
}
