// internal/env/settings.go
//
// Immutable snapshot of the process environment.
//
// A *Settings is built once at boot, after the overlay file has been merged,
// and is never written again.  It is backed by a koanf tree so typed
// decoding goes through the same unmarshal path as internal/config.
package env

import (
	"sort"

	"github.com/knadh/koanf/providers/confmap"
	kenv "github.com/knadh/koanf/providers/env"
	koanf "github.com/knadh/koanf/v2"
)

// Settings maps variable names to values.  Safe for concurrent reads.
type Settings struct {
	k *koanf.Koanf
}

// FromProcess snapshots os.Environ().
func FromProcess() *Settings {
	k := koanf.New(".")
	// The env provider never returns an error on Read.
	_ = k.Load(kenv.Provider("", ".", func(s string) string { return s }), nil)
	return &Settings{k: k}
}

// FromMap builds Settings from an explicit map.  Used by tools and tests
// that must not depend on the ambient environment.
func FromMap(m map[string]string) *Settings {
	raw := make(map[string]any, len(m))
	for key, val := range m {
		raw[key] = val
	}
	k := koanf.New(".")
	_ = k.Load(confmap.Provider(raw, "."), nil)
	return &Settings{k: k}
}

// Lookup returns the value and whether the variable is set at all.
func (s *Settings) Lookup(name string) (string, bool) {
	if !s.k.Exists(name) {
		return "", false
	}
	return s.k.String(name), true
}

// Get returns the value or "".
func (s *Settings) Get(name string) string {
	v, _ := s.Lookup(name)
	return v
}

// Keys lists every variable name in sorted order.
func (s *Settings) Keys() []string {
	keys := s.k.Keys()
	sort.Strings(keys)
	return keys
}
