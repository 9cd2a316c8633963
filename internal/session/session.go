// internal/session/session.go
//
// Signed cookie sessions.
//
// Context
//   The session middleware is optional (middleware.sessions).  When enabled
//   every request carries a *Session in its context.  Values live in a
//   single cookie, `billing_session`, signed and timestamped by
//   gorilla/securecookie.  A cookie with a bad signature, or one older than
//   the session lifetime, is discarded and the request starts empty.
//
//   The cookie is only rewritten when the handler changed the session.
//
// Style
//   Two-space sentence spacing, Oxford comma, terse inline notes.
//
//------------------------------------------------------------------------------

package session

import (
	"context"
	"errors"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/securecookie"
)

const (
	CookieName = "billing_session"
	MinKeyLen  = 32
	maxAge     = 14 * 24 * time.Hour
)

// Session is a small string map.  Safe for concurrent use within one request.
type Session struct {
	mu        sync.Mutex
	values    map[string]string
	changed   bool
	destroyed bool
}

func (s *Session) Get(key string) string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.values[key]
}

func (s *Session) Set(key, val string) {
	s.mu.Lock()
	s.values[key] = val
	s.changed = true
	s.mu.Unlock()
}

func (s *Session) Delete(key string) {
	s.mu.Lock()
	delete(s.values, key)
	s.changed = true
	s.mu.Unlock()
}

// Destroy clears the session and expires the cookie.
func (s *Session) Destroy() {
	s.mu.Lock()
	s.values = map[string]string{}
	s.destroyed = true
	s.changed = true
	s.mu.Unlock()
}

type ctxKey struct{}

// FromContext returns the request's session, or nil when sessions are off.
func FromContext(ctx context.Context) *Session {
	s, _ := ctx.Value(ctxKey{}).(*Session)
	return s
}

// Store signs and verifies session cookies.
type Store struct {
	sc *securecookie.SecureCookie
}

// NewStore requires a key of at least MinKeyLen bytes.  Cookies are signed,
// not encrypted, and expire after maxAge.
func NewStore(key string) (*Store, error) {
	if len(key) < MinKeyLen {
		return nil, errors.New("session: key must be at least 32 bytes")
	}
	sc := securecookie.New([]byte(key), nil).
		MaxAge(int(maxAge / time.Second)).
		SetSerializer(securecookie.JSONEncoder{})
	return &Store{sc: sc}, nil
}

func (st *Store) encode(values map[string]string) (string, error) {
	return st.sc.Encode(CookieName, values)
}

func (st *Store) decode(cookie string) (map[string]string, bool) {
	values := map[string]string{}
	if err := st.sc.Decode(CookieName, cookie, &values); err != nil {
		return nil, false
	}
	return values, true
}

// Middleware loads the session and writes it back before the first byte
// of the response when it changed.
func (st *Store) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		s := &Session{values: map[string]string{}}
		if c, err := r.Cookie(CookieName); err == nil {
			if v, ok := st.decode(c.Value); ok {
				s.values = v
			}
		}
		sw := &writer{ResponseWriter: w, store: st, sess: s, secure: r.TLS != nil}
		next.ServeHTTP(sw, r.WithContext(context.WithValue(r.Context(), ctxKey{}, s)))
		sw.commit()
	})
}

// writer defers the Set-Cookie header until the response starts.
type writer struct {
	http.ResponseWriter
	store     *Store
	sess      *Session
	secure    bool
	committed bool
}

func (w *writer) commit() {
	if w.committed {
		return
	}
	w.committed = true

	w.sess.mu.Lock()
	changed, destroyed := w.sess.changed, w.sess.destroyed
	values := w.sess.values
	w.sess.mu.Unlock()
	if !changed {
		return
	}

	c := &http.Cookie{
		Name:     CookieName,
		Path:     "/",
		HttpOnly: true,
		Secure:   w.secure,
		SameSite: http.SameSiteLaxMode,
	}
	if destroyed {
		c.MaxAge = -1
	} else {
		v, err := w.store.encode(values)
		if err != nil {
			return
		}
		c.Value = v
		c.Expires = time.Now().Add(maxAge)
	}
	http.SetCookie(w.ResponseWriter, c)
}

func (w *writer) WriteHeader(code int) {
	w.commit()
	w.ResponseWriter.WriteHeader(code)
}

func (w *writer) Write(b []byte) (int, error) {
	w.commit()
	return w.ResponseWriter.Write(b)
}

func (w *writer) Unwrap() http.ResponseWriter { return w.ResponseWriter }
