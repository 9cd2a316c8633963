// internal/migrate/migrate.go
//
// Ordered migration list and a small applier.
//
// Context
// -------
// The configurator declares which entities migrate and in what order; it
// never runs SQL.  `Registry` is that declaration: an append-only,
// duplicate-free list.  Order is significant.  An entity whose table holds
// a foreign key must come after the table it references.
//
// `Migrator` is used by `cmd/web migrate`.  It keeps bookkeeping rows in
// `schema_migrations` so re-running Apply is a no-op, and groups each run
// into a batch that Revert can undo.
//
// Notes
// -----
//   • MySQL commits DDL implicitly, so a failed batch may leave earlier
//     tables behind.  The bookkeeping insert for each migration runs right
//     after its DDL so the table and its row stay in step.
//   • Oxford commas, two spaces after periods.
package migrate

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/database"
)

// ErrDuplicateMigration is returned when a name is added twice.
var ErrDuplicateMigration = errors.New("migration already registered")

// Migration is one entity's schema step.
type Migration struct {
	Name     string
	Database database.ID
	Up       []string
	Down     []string
}

// Registry preserves insertion order.
type Registry struct {
	list []Migration
	seen map[string]struct{}
}

func NewRegistry() *Registry {
	return &Registry{seen: make(map[string]struct{})}
}

// Add appends m.  Names are unique across databases.
func (r *Registry) Add(m Migration) error {
	if m.Name == "" {
		return errors.New("migration name must be non-empty")
	}
	if m.Database == "" {
		return fmt.Errorf("migration %s: database identifier must be non-empty", m.Name)
	}
	if _, dup := r.seen[m.Name]; dup {
		return fmt.Errorf("%w: %s", ErrDuplicateMigration, m.Name)
	}
	r.seen[m.Name] = struct{}{}
	r.list = append(r.list, m)
	return nil
}

// All returns a copy of the list in registration order.
func (r *Registry) All() []Migration {
	out := make([]Migration, len(r.list))
	copy(out, r.list)
	return out
}

// Names returns migration names in registration order.
func (r *Registry) Names() []string {
	out := make([]string, len(r.list))
	for i, m := range r.list {
		out[i] = m.Name
	}
	return out
}

func (r *Registry) Len() int { return len(r.list) }

/*──────────────────────────────── applier ─────────────────────────────────*/

const (
	createBookkeeping = `
        CREATE TABLE IF NOT EXISTS schema_migrations (
            name       VARCHAR(255) NOT NULL PRIMARY KEY,
            batch      INT          NOT NULL,
            applied_at DATETIME     NOT NULL DEFAULT CURRENT_TIMESTAMP
        )`
	selectApplied = `SELECT name FROM schema_migrations`
	selectBatch   = `SELECT COALESCE(MAX(batch), 0) FROM schema_migrations`
	selectInBatch = `SELECT name FROM schema_migrations WHERE batch = ?`
	insertApplied = `INSERT INTO schema_migrations (name, batch) VALUES (?, ?)`
	deleteApplied = `DELETE FROM schema_migrations WHERE name = ?`
)

// Migrator applies a Registry against a database set.
type Migrator struct {
	set *database.Set
	reg *Registry
	log *zap.SugaredLogger
}

// New returns a Migrator.  log may be nil.
func New(set *database.Set, reg *Registry, log *zap.SugaredLogger) *Migrator {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	return &Migrator{set: set, reg: reg, log: log}
}

// Apply runs every pending migration in registration order and returns the
// names it ran.
func (m *Migrator) Apply(ctx context.Context) ([]string, error) {
	var ran []string
	for _, id := range m.databases() {
		db, err := m.db(id)
		if err != nil {
			return ran, err
		}
		names, err := m.applyOn(ctx, id, db)
		ran = append(ran, names...)
		if err != nil {
			return ran, err
		}
	}
	return ran, nil
}

func (m *Migrator) applyOn(ctx context.Context, id database.ID, db *database.Database) ([]string, error) {
	if _, err := db.ExecContext(ctx, createBookkeeping); err != nil {
		return nil, fmt.Errorf("migrate %s: bookkeeping table: %w", id, err)
	}

	var done []string
	if err := db.SelectContext(ctx, &done, selectApplied); err != nil {
		return nil, fmt.Errorf("migrate %s: list applied: %w", id, err)
	}
	applied := make(map[string]bool, len(done))
	for _, n := range done {
		applied[n] = true
	}

	var pending []Migration
	for _, mig := range m.reg.list {
		if mig.Database == id && !applied[mig.Name] {
			pending = append(pending, mig)
		}
	}
	if len(pending) == 0 {
		m.log.Infow("migrations up to date", "database", id)
		return nil, nil
	}

	var batch int
	if err := db.GetContext(ctx, &batch, selectBatch); err != nil {
		return nil, fmt.Errorf("migrate %s: current batch: %w", id, err)
	}
	batch++

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("migrate %s: begin: %w", id, err)
	}
	var ran []string
	for _, mig := range pending {
		for _, stmt := range mig.Up {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return ran, fmt.Errorf("migrate %s: %s: %w", id, mig.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, insertApplied, mig.Name, batch); err != nil {
			_ = tx.Rollback()
			return ran, fmt.Errorf("migrate %s: record %s: %w", id, mig.Name, err)
		}
		m.log.Infow("migration applied", "database", id, "name", mig.Name, "batch", batch)
		ran = append(ran, mig.Name)
	}
	if err := tx.Commit(); err != nil {
		return ran, fmt.Errorf("migrate %s: commit: %w", id, err)
	}
	return ran, nil
}

// Revert undoes the most recent batch on each database, newest migration
// first, and returns the names it reverted.
func (m *Migrator) Revert(ctx context.Context) ([]string, error) {
	var reverted []string
	ids := m.databases()
	for i := len(ids) - 1; i >= 0; i-- {
		db, err := m.db(ids[i])
		if err != nil {
			return reverted, err
		}
		names, err := m.revertOn(ctx, ids[i], db)
		reverted = append(reverted, names...)
		if err != nil {
			return reverted, err
		}
	}
	return reverted, nil
}

func (m *Migrator) revertOn(ctx context.Context, id database.ID, db *database.Database) ([]string, error) {
	var batch int
	if err := db.GetContext(ctx, &batch, selectBatch); err != nil {
		return nil, fmt.Errorf("revert %s: current batch: %w", id, err)
	}
	if batch == 0 {
		return nil, nil
	}
	var names []string
	if err := db.SelectContext(ctx, &names, selectInBatch, batch); err != nil {
		return nil, fmt.Errorf("revert %s: list batch: %w", id, err)
	}
	inBatch := make(map[string]bool, len(names))
	for _, n := range names {
		inBatch[n] = true
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("revert %s: begin: %w", id, err)
	}
	var reverted []string
	for i := len(m.reg.list) - 1; i >= 0; i-- {
		mig := m.reg.list[i]
		if mig.Database != id || !inBatch[mig.Name] {
			continue
		}
		for _, stmt := range mig.Down {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				_ = tx.Rollback()
				return reverted, fmt.Errorf("revert %s: %s: %w", id, mig.Name, err)
			}
		}
		if _, err := tx.ExecContext(ctx, deleteApplied, mig.Name); err != nil {
			_ = tx.Rollback()
			return reverted, fmt.Errorf("revert %s: unrecord %s: %w", id, mig.Name, err)
		}
		m.log.Infow("migration reverted", "database", id, "name", mig.Name, "batch", batch)
		reverted = append(reverted, mig.Name)
	}
	if err := tx.Commit(); err != nil {
		return reverted, fmt.Errorf("revert %s: commit: %w", id, err)
	}
	return reverted, nil
}

// databases lists identifiers in order of first appearance.
func (m *Migrator) databases() []database.ID {
	var ids []database.ID
	seen := map[database.ID]bool{}
	for _, mig := range m.reg.list {
		if !seen[mig.Database] {
			seen[mig.Database] = true
			ids = append(ids, mig.Database)
		}
	}
	return ids
}

func (m *Migrator) db(id database.ID) (*database.Database, error) {
	db, ok := m.set.Get(id)
	if !ok {
		return nil, fmt.Errorf("migrate: database %q not configured", id)
	}
	return db, nil
}
