package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"golang.org/x/sync/singleflight"

	"github.com/yanizio/billing-api/internal/database"
)

// ErrInvalidToken is returned for unknown or expired tokens.
var ErrInvalidToken = errors.New("invalid token")

const selectTokenUser = `
SELECT user_id FROM user_tokens
WHERE token = ? AND (expires_at IS NULL OR expires_at > NOW())
LIMIT 1`

// TokenStore resolves bearer tokens against the user_tokens table.
// Concurrent lookups of the same token share one query.
type TokenStore struct {
	db  *database.Database
	sfg singleflight.Group
}

func NewTokenStore(db *database.Database) *TokenStore { return &TokenStore{db: db} }

// UserForToken returns the owning user's ID.
func (s *TokenStore) UserForToken(ctx context.Context, token string) (int64, error) {
	if token == "" {
		return 0, ErrInvalidToken
	}
	// The shared query must not die with whichever caller arrived first.
	qctx := context.WithoutCancel(ctx)
	v, err, _ := s.sfg.Do(token, func() (any, error) {
		var id int64
		err := s.db.GetContext(qctx, &id, selectTokenUser, token)
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return int64(0), ErrInvalidToken
		case err != nil:
			return int64(0), fmt.Errorf("token lookup: %w", err)
		}
		return id, nil
	})
	if err != nil {
		return 0, err
	}
	return v.(int64), nil
}
