// Package middleware holds the ordered middleware chain and the wrappers
// that can appear in it.
//
// The first entry of a Chain is the outermost wrapper.  The error
// middleware must hold that position so it observes failures from every
// other member and from the router.
package middleware

import (
	"errors"
	"fmt"
	"net/http"
)

// Names of the chain members.
const (
	NameErrors      = "errors"
	NameRequestID   = "request_id"
	NameAccessLog   = "access_log"
	NameMetrics     = "metrics"
	NameForceHTTPS  = "force_https"
	NameSecurity    = "security_headers"
	NameCORS        = "cors"
	NameRequestInfo = "request_info"
	NameSessions    = "sessions"
	NameFiles       = "files"
)

// ErrNoErrorMiddleware is returned by Validate when the chain does not start
// with the error middleware.
var ErrNoErrorMiddleware = errors.New("error middleware must be the outermost entry")

// Func is a standard net/http middleware.
type Func func(http.Handler) http.Handler

type entry struct {
	name string
	fn   Func
}

// Chain is an ordered list of named middleware.
type Chain struct {
	entries []entry
	closers []func() error
}

// NewChain returns an empty chain.
func NewChain() *Chain { return &Chain{} }

// Use appends fn under name.  Names are unique.
func (c *Chain) Use(name string, fn Func) error {
	if fn == nil {
		return fmt.Errorf("middleware %s: nil func", name)
	}
	if c.Has(name) {
		return fmt.Errorf("middleware %s already in chain", name)
	}
	c.entries = append(c.entries, entry{name: name, fn: fn})
	return nil
}

// Has reports whether name is in the chain.
func (c *Chain) Has(name string) bool {
	for _, e := range c.entries {
		if e.name == name {
			return true
		}
	}
	return false
}

// Names returns member names, outermost first.
func (c *Chain) Names() []string {
	out := make([]string, len(c.entries))
	for i, e := range c.entries {
		out[i] = e.name
	}
	return out
}

// Validate checks that the error middleware is present and outermost.
func (c *Chain) Validate() error {
	if len(c.entries) == 0 || c.entries[0].name != NameErrors {
		return ErrNoErrorMiddleware
	}
	return nil
}

// OnClose registers fn to release a resource a member holds, such as the
// GeoIP reader behind request info.
func (c *Chain) OnClose(fn func() error) { c.closers = append(c.closers, fn) }

// Close runs the registered closers in reverse order and returns the first
// error.
func (c *Chain) Close() error {
	var first error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil && first == nil {
			first = err
		}
	}
	c.closers = nil
	return first
}

// Then wraps h so the first entry runs first.
func (c *Chain) Then(h http.Handler) http.Handler {
	for i := len(c.entries) - 1; i >= 0; i-- {
		h = c.entries[i].fn(h)
	}
	return h
}
