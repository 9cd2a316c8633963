// internal/env/required.go
//
// Typed decoding of the required database variables.
//
// Context
// -------
// The five DB_* variables are decoded in one pass: koanf unmarshals the
// snapshot into a struct of raw strings, `vault:` references are resolved,
// and go-playground/validator checks presence and type.  Every missing name
// is collected before returning so operators fix the environment in one go.
//
// Values are passed through untouched.  Transport security and character
// set come from database defaults, never from the environment.
package env

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/yanizio/billing-api/internal/database"
)

// Variable names.
const (
	DBHost     = "DB_HOST"
	DBPort     = "DB_PORT"
	DBUsername = "DB_USERNAME"
	DBPassword = "DB_PASSWORD"
	DBName     = "DB_NAME"
	Mailgun    = "MAILGUN"
)

// Required lists the mandatory variables in declaration order.
var Required = []string{DBHost, DBPort, DBUsername, DBPassword, DBName}

// SecretPrefix marks a value that must be fetched from Vault.
const SecretPrefix = "vault:"

// Resolver turns a `vault:` reference (prefix stripped) into its value.
type Resolver interface {
	Resolve(ctx context.Context, ref string) (string, error)
}

type databaseVars struct {
	Host     string `koanf:"DB_HOST"     validate:"required"`
	Port     string `koanf:"DB_PORT"     validate:"required,port"`
	Username string `koanf:"DB_USERNAME" validate:"required"`
	Password string `koanf:"DB_PASSWORD" validate:"required"`
	Name     string `koanf:"DB_NAME"     validate:"required"`
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		return f.Tag.Get("koanf")
	})
	_ = v.RegisterValidation("port", func(fl validator.FieldLevel) bool {
		p, err := strconv.Atoi(fl.Field().String())
		return err == nil && p > 0 && p <= 65535
	})
	return v
}

// Database decodes the DB_* variables into a database.Config carrying the
// compiled-in transport and character-set defaults.  r may be nil when no
// secret store is configured.
func Database(ctx context.Context, s *Settings, r Resolver) (database.Config, error) {
	var raw databaseVars
	if err := s.k.Unmarshal("", &raw); err != nil {
		return database.Config{}, fmt.Errorf("decode database variables: %w", err)
	}

	fields := map[string]*string{
		DBHost:     &raw.Host,
		DBPort:     &raw.Port,
		DBUsername: &raw.Username,
		DBPassword: &raw.Password,
		DBName:     &raw.Name,
	}
	// Required order, so the first failing reference is reported.
	for _, name := range Required {
		field := fields[name]
		v, err := resolve(ctx, r, name, *field)
		if err != nil {
			return database.Config{}, err
		}
		*field = v
	}

	if err := validate.Struct(&raw); err != nil {
		return database.Config{}, classify(err)
	}

	// Validated above; Atoi cannot fail here.
	port, _ := strconv.Atoi(raw.Port)
	return database.Config{
		Host:         raw.Host,
		Port:         port,
		Username:     raw.Username,
		Password:     raw.Password,
		Name:         raw.Name,
		Transport:    database.DefaultTransport,
		CharacterSet: database.DefaultCharacterSet,
	}, nil
}

// MailKey returns the MAILGUN key.  ok is false when the variable is unset
// or empty; that is not an error.
func MailKey(ctx context.Context, s *Settings, r Resolver) (key string, ok bool, err error) {
	v, set := s.Lookup(Mailgun)
	if !set || v == "" {
		return "", false, nil
	}
	v, err = resolve(ctx, r, Mailgun, v)
	if err != nil {
		return "", false, err
	}
	return v, true, nil
}

// classify folds validator errors into MissingError or ParseError.  Missing
// names are reported in Required order.
func classify(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	missing := map[string]bool{}
	var parse *ParseError
	for _, fe := range verrs {
		if fe.Tag() == "required" {
			missing[fe.Field()] = true
			continue
		}
		if parse == nil {
			parse = &ParseError{Name: fe.Field(), Value: fmt.Sprint(fe.Value()), Type: "integer port"}
		}
	}
	if len(missing) > 0 {
		me := &MissingError{}
		for _, n := range Required {
			if missing[n] {
				me.Names = append(me.Names, n)
			}
		}
		return me
	}
	if parse != nil {
		return parse
	}
	return err
}

func resolve(ctx context.Context, r Resolver, name, v string) (string, error) {
	ref, ok := strings.CutPrefix(v, SecretPrefix)
	if !ok {
		return v, nil
	}
	if r == nil {
		return "", fmt.Errorf("%w: %s references %q but no secret store is configured", ErrSecret, name, v)
	}
	out, err := r.Resolve(ctx, ref)
	if err != nil {
		return "", fmt.Errorf("%w: %s: %v", ErrSecret, name, err)
	}
	return out, nil
}
