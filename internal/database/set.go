// internal/database/set.go
//
// The database set is the registry's view of persistence: an identifier
// to pool map with per-identifier logging.  Logging must be switched on
// before the database is added, matching the order the configurator uses.
package database

import (
	"errors"
	"fmt"
	"sort"

	"go.uber.org/zap"
)

// ID names a database within the set.
type ID string

// MySQL is the only identifier the application uses.
const MySQL ID = "mysql"

// ErrDuplicateDatabase is returned when an identifier is added twice.
var ErrDuplicateDatabase = errors.New("database already added")

// Set holds at most one *Database per ID.
type Set struct {
	log     *zap.SugaredLogger
	dbs     map[ID]*Database
	logging map[ID]bool
}

// NewSet returns an empty set.  log receives statement traces for every
// identifier with logging enabled; nil disables tracing entirely.
func NewSet(log *zap.SugaredLogger) *Set {
	return &Set{
		log:     log,
		dbs:     make(map[ID]*Database),
		logging: make(map[ID]bool),
	}
}

// EnableLogging turns statement tracing on for id.
func (s *Set) EnableLogging(id ID) { s.logging[id] = true }

// Add places db under id.
func (s *Set) Add(id ID, db *Database) error {
	if _, ok := s.dbs[id]; ok {
		return fmt.Errorf("%w: %s", ErrDuplicateDatabase, id)
	}
	if s.logging[id] && s.log != nil {
		db.log = s.log.With("database", string(id))
	}
	s.dbs[id] = db
	return nil
}

// Get returns the database under id.
func (s *Set) Get(id ID) (*Database, bool) {
	db, ok := s.dbs[id]
	return db, ok
}

// IDs lists identifiers in sorted order.
func (s *Set) IDs() []ID {
	out := make([]ID, 0, len(s.dbs))
	for id := range s.dbs {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// Close closes every pool and returns the first error.
func (s *Set) Close() error {
	var first error
	for _, id := range s.IDs() {
		if err := s.dbs[id].Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
