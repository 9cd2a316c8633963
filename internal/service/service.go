// Package service names the capabilities a registry can hold and the
// contract providers implement.  It is a leaf package so that providers
// (database, auth) and the registry can share it without import cycles.
package service

import "context"

// Capability identifies one slot in the service registry.
type Capability string

const (
	Router     Capability = "router"
	Middleware Capability = "middleware"
	Databases  Capability = "databases"
	Migrations Capability = "migrations"
	Content    Capability = "content"
	Mail       Capability = "mail"
)

// Locator resolves a capability to its registered value.
type Locator interface {
	Lookup(Capability) (any, bool)
}

// Provider contributes a capability that other providers may depend on.
//
// Requires lists provider names that must already be registered.  Boot is
// called once, in registration order, when the registry is sealed.
type Provider interface {
	Name() string
	Requires() []string
	Boot(ctx context.Context, s Locator) error
}
