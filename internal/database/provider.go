package database

import (
	"context"
	"fmt"

	"github.com/go-sql-driver/mysql"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/service"
)

// ProviderName is the name other providers list in Requires().
const ProviderName = "persistence"

// Provider is the persistence provider.  It has no dependencies and must be
// registered before anything that queries the database.
type Provider struct {
	Log *zap.SugaredLogger
}

var _ service.Provider = (*Provider)(nil)

func (p *Provider) Name() string       { return ProviderName }
func (p *Provider) Requires() []string { return nil }

// Boot routes driver-level diagnostics into zap and checks that a database
// set was registered.
func (p *Provider) Boot(_ context.Context, s service.Locator) error {
	if p.Log != nil {
		_ = mysql.SetLogger(driverLogger{p.Log})
	}
	v, ok := s.Lookup(service.Databases)
	if !ok {
		return fmt.Errorf("persistence: no %s registered", service.Databases)
	}
	if _, ok := v.(*Set); !ok {
		return fmt.Errorf("persistence: %s has type %T", service.Databases, v)
	}
	return nil
}

// Databases fetches the registered set from s.
func Databases(s service.Locator) (*Set, bool) {
	v, ok := s.Lookup(service.Databases)
	if !ok {
		return nil, false
	}
	set, ok := v.(*Set)
	return set, ok
}

type driverLogger struct{ log *zap.SugaredLogger }

func (l driverLogger) Print(v ...any) { l.log.Warn(v...) }
