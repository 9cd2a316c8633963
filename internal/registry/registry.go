// internal/registry/registry.go
//
// Service registry: built once at startup, read-only afterwards.
//
// Context
// -------
// The configurator writes into a *Builder.  Build() boots every provider in
// the order it was registered, then returns a *Registry whose bindings can
// never change.  The Registry is passed explicitly to the HTTP layer; there
// is no package-level instance.
//
// Rules enforced here:
//
//   • A capability may be registered once.  A second write is a programming
//     error and returns DuplicateError.
//   • A provider may only be registered after every provider it Requires().
//   • After Build() the builder refuses further writes with ErrSealed.
//
// Notes
// -----
// • Optional capabilities (mail) are simply absent; typed getters report
//   presence with a second return value.
package registry

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/yanizio/billing-api/internal/codec"
	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/mail"
	"github.com/yanizio/billing-api/internal/middleware"
	"github.com/yanizio/billing-api/internal/migrate"
	"github.com/yanizio/billing-api/internal/service"
)

var (
	ErrDuplicate     = errors.New("duplicate registration")
	ErrProviderOrder = errors.New("provider registered before its dependency")
	ErrSealed        = errors.New("registry is sealed")
)

// DuplicateError names the capability or provider registered twice.
type DuplicateError struct {
	Name string
}

func (e *DuplicateError) Error() string { return fmt.Sprintf("%s already registered", e.Name) }
func (e *DuplicateError) Is(target error) bool { return target == ErrDuplicate }

// ProviderOrderError names the provider and the dependency it arrived before.
type ProviderOrderError struct {
	Provider string
	Missing  string
}

func (e *ProviderOrderError) Error() string {
	return fmt.Sprintf("provider %s requires %s to be registered first", e.Provider, e.Missing)
}
func (e *ProviderOrderError) Is(target error) bool { return target == ErrProviderOrder }

/*──────────────────────────────── builder ─────────────────────────────────*/

// Builder accumulates registrations.  Not safe for concurrent use; startup
// is single-threaded.
type Builder struct {
	services  map[service.Capability]any
	order     []service.Capability
	providers []service.Provider
	names     map[string]bool
	sealed    bool
}

func NewBuilder() *Builder {
	return &Builder{
		services: make(map[service.Capability]any),
		names:    make(map[string]bool),
	}
}

// Provide registers p after checking its dependencies.
func (b *Builder) Provide(p service.Provider) error {
	if b.sealed {
		return ErrSealed
	}
	name := p.Name()
	if b.names[name] {
		return &DuplicateError{Name: "provider " + name}
	}
	for _, dep := range p.Requires() {
		if !b.names[dep] {
			return &ProviderOrderError{Provider: name, Missing: dep}
		}
	}
	b.names[name] = true
	b.providers = append(b.providers, p)
	return nil
}

// Register binds v to c.
func (b *Builder) Register(c service.Capability, v any) error {
	if b.sealed {
		return ErrSealed
	}
	if v == nil {
		return fmt.Errorf("register %s: nil value", c)
	}
	if _, dup := b.services[c]; dup {
		return &DuplicateError{Name: string(c)}
	}
	b.services[c] = v
	b.order = append(b.order, c)
	return nil
}

// Has reports whether c is bound.
func (b *Builder) Has(c service.Capability) bool {
	_, ok := b.services[c]
	return ok
}

// Lookup satisfies service.Locator.
func (b *Builder) Lookup(c service.Capability) (any, bool) {
	v, ok := b.services[c]
	return v, ok
}

// Capabilities lists bound capabilities in registration order.
func (b *Builder) Capabilities() []service.Capability {
	out := make([]service.Capability, len(b.order))
	copy(out, b.order)
	return out
}

// ProviderNames lists providers in registration order.
func (b *Builder) ProviderNames() []string {
	out := make([]string, len(b.providers))
	for i, p := range b.providers {
		out[i] = p.Name()
	}
	return out
}

// Build seals the builder, boots providers in order, and returns the
// registry.  A boot failure is returned as-is and no registry is produced.
func (b *Builder) Build(ctx context.Context) (*Registry, error) {
	if b.sealed {
		return nil, ErrSealed
	}
	b.sealed = true

	r := &Registry{
		services:  make(map[service.Capability]any, len(b.services)),
		order:     b.Capabilities(),
		providers: make(map[string]service.Provider, len(b.providers)),
		names:     b.ProviderNames(),
	}
	for c, v := range b.services {
		r.services[c] = v
	}
	for _, p := range b.providers {
		r.providers[p.Name()] = p
	}

	for _, p := range b.providers {
		if err := p.Boot(ctx, r); err != nil {
			return nil, fmt.Errorf("boot provider %s: %w", p.Name(), err)
		}
	}

	var h http.Handler = http.NotFoundHandler()
	if mux := r.Router(); mux != nil {
		h = mux
	}
	if chain := r.Middleware(); chain != nil {
		h = chain.Then(h)
	}
	r.handler = h
	return r, nil
}

/*──────────────────────────────── registry ────────────────────────────────*/

// Registry is immutable and safe for concurrent reads.
type Registry struct {
	services  map[service.Capability]any
	order     []service.Capability
	providers map[string]service.Provider
	names     []string
	handler   http.Handler
}

var _ service.Locator = (*Registry)(nil)

// Lookup satisfies service.Locator.
func (r *Registry) Lookup(c service.Capability) (any, bool) {
	v, ok := r.services[c]
	return v, ok
}

// Has reports whether c is bound.
func (r *Registry) Has(c service.Capability) bool {
	_, ok := r.services[c]
	return ok
}

// Capabilities lists bound capabilities in registration order.
func (r *Registry) Capabilities() []service.Capability {
	out := make([]service.Capability, len(r.order))
	copy(out, r.order)
	return out
}

// Providers lists provider names in registration order.
func (r *Registry) Providers() []string {
	out := make([]string, len(r.names))
	copy(out, r.names)
	return out
}

// Provider returns the named provider.
func (r *Registry) Provider(name string) (service.Provider, bool) {
	p, ok := r.providers[name]
	return p, ok
}

// Router returns the registered router, or nil.
func (r *Registry) Router() *chi.Mux {
	m, _ := r.services[service.Router].(*chi.Mux)
	return m
}

// Middleware returns the registered chain, or nil.
func (r *Registry) Middleware() *middleware.Chain {
	c, _ := r.services[service.Middleware].(*middleware.Chain)
	return c
}

// Databases returns the registered database set, or nil.
func (r *Registry) Databases() *database.Set {
	s, _ := r.services[service.Databases].(*database.Set)
	return s
}

// Migrations returns the registered migration list, or nil.
func (r *Registry) Migrations() *migrate.Registry {
	m, _ := r.services[service.Migrations].(*migrate.Registry)
	return m
}

// Content returns the registered content configuration, or nil.
func (r *Registry) Content() *codec.Config {
	c, _ := r.services[service.Content].(*codec.Config)
	return c
}

// Mail returns the mail client when the feature is enabled.
func (r *Registry) Mail() (*mail.Client, bool) {
	c, ok := r.services[service.Mail].(*mail.Client)
	return c, ok
}

// Handler is the middleware chain wrapped around the router.
func (r *Registry) Handler() http.Handler { return r.handler }
