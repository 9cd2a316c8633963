package env

import (
	"errors"
	"fmt"
	"strings"
)

// ErrMissingConfig is the class of every required-variable failure.  Both
// MissingError and ParseError match it with errors.Is.
var ErrMissingConfig = errors.New("missing configuration")

// ErrSecret is returned when a vault: reference cannot be resolved.
var ErrSecret = errors.New("secret unresolved")

// MissingError lists every required variable that is absent or empty.
type MissingError struct {
	Names []string
}

func (e *MissingError) Error() string {
	return "missing required environment variables: " + strings.Join(e.Names, ", ")
}

func (e *MissingError) Is(target error) bool { return target == ErrMissingConfig }

// ParseError reports a variable that is present but not of its declared type.
type ParseError struct {
	Name  string
	Value string
	Type  string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("environment variable %s=%q is not a valid %s", e.Name, e.Value, e.Type)
}

func (e *ParseError) Is(target error) bool { return target == ErrMissingConfig }
