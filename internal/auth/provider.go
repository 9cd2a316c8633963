// internal/auth/provider.go
//
// Authentication provider and middleware.
//
// Context
// -------
// The provider depends on persistence: Boot pulls the `mysql` database out
// of the registered set and builds the token store.  The router is built
// before Boot runs, so Require is a method on the provider and reads the
// store at request time.
//
// A request is authenticated by, in order:
//
//   1. `Authorization: Bearer <token>` matched against user_tokens.
//   2. A `user_id` value in the signed session cookie, when sessions are on.
//
// Anything else is a 401 rendered by the error middleware.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/apperr"
	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/service"
	"github.com/yanizio/billing-api/internal/session"
)

// ProviderName is the registered name of the authentication provider.
const ProviderName = "auth"

// SessionUserKey is the session field holding a logged-in user's ID.
const SessionUserKey = "user_id"

type Provider struct {
	Log   *zap.SugaredLogger
	store atomic.Pointer[TokenStore]
}

var _ service.Provider = (*Provider)(nil)

func (p *Provider) Name() string       { return ProviderName }
func (p *Provider) Requires() []string { return []string{database.ProviderName} }

// Boot binds the provider to the mysql database.
func (p *Provider) Boot(_ context.Context, s service.Locator) error {
	set, ok := database.Databases(s)
	if !ok {
		return errors.New("auth: database set unavailable")
	}
	db, ok := set.Get(database.MySQL)
	if !ok {
		return fmt.Errorf("auth: database %q not registered", database.MySQL)
	}
	p.store.Store(NewTokenStore(db))
	return nil
}

// Store returns the booted token store, or nil before Boot.
func (p *Provider) Store() *TokenStore { return p.store.Load() }

// Require rejects anonymous requests with 401.
func (p *Provider) Require(next http.Handler) http.Handler {
	return apperr.Handler(func(w http.ResponseWriter, r *http.Request) error {
		id, err := p.identify(r)
		if err != nil {
			return err
		}
		next.ServeHTTP(w, r.WithContext(WithUser(r.Context(), id)))
		return nil
	})
}

func (p *Provider) identify(r *http.Request) (int64, error) {
	if tok, ok := bearer(r.Header.Get("Authorization")); ok {
		st := p.Store()
		if st == nil {
			return 0, apperr.Unavailable("authentication not ready", nil)
		}
		id, err := st.UserForToken(r.Context(), tok)
		switch {
		case errors.Is(err, ErrInvalidToken):
			return 0, apperr.Unauthorized("invalid or expired token")
		case err != nil:
			if p.Log != nil {
				p.Log.Errorw("token lookup failed", "err", err)
			}
			return 0, apperr.Internal(err)
		}
		return id, nil
	}

	if s := session.FromContext(r.Context()); s != nil {
		if raw := s.Get(SessionUserKey); raw != "" {
			if id, err := strconv.ParseInt(raw, 10, 64); err == nil {
				return id, nil
			}
		}
	}
	return 0, apperr.Unauthorized("authentication required")
}

func bearer(h string) (string, bool) {
	scheme, tok, ok := strings.Cut(h, " ")
	if !ok || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	tok = strings.TrimSpace(tok)
	return tok, tok != ""
}
