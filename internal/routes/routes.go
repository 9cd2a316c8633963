// internal/routes/routes.go
//
// Route table.
//
//	GET  /healthz         – pings mysql; 503 when unreachable.
//	GET  /metrics         – Prometheus exposition.
//	GET  /api/me          – authenticated user's profile.
//	POST /api/mail/test   – sends a test message; 404 when mail is off.
//
// Unknown paths and methods are rendered through apperr so they share the
// JSON error body.
package routes

import (
	"context"
	"database/sql"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/apperr"
	"github.com/yanizio/billing-api/internal/auth"
	"github.com/yanizio/billing-api/internal/codec"
	"github.com/yanizio/billing-api/internal/database"
	"github.com/yanizio/billing-api/internal/mail"
)

const pingTimeout = 2 * time.Second

// Env is what handlers need.  Mail is nil when the provider is disabled.
type Env struct {
	DB      *database.Database
	Content *codec.Config
	Auth    *auth.Provider
	Mail    *mail.Client
	Log     *zap.SugaredLogger
}

// Table populates a router.
type Table func(r chi.Router, e Env)

// Default is the application's route table.
func Default(r chi.Router, e Env) {
	if e.Log == nil {
		e.Log = zap.NewNop().Sugar()
	}
	h := handlers{Env: e}

	r.NotFound(apperr.Handler(func(http.ResponseWriter, *http.Request) error {
		return apperr.NotFound("no route")
	}).ServeHTTP)
	r.MethodNotAllowed(apperr.Handler(func(http.ResponseWriter, *http.Request) error {
		return &apperr.Error{Status: http.StatusMethodNotAllowed, Code: "method_not_allowed", Message: "method not allowed"}
	}).ServeHTTP)

	r.Method(http.MethodGet, "/healthz", apperr.Handler(h.health))
	r.Method(http.MethodGet, "/metrics", promhttp.Handler())

	r.Route("/api", func(r chi.Router) {
		r.Use(e.Auth.Require)
		r.Method(http.MethodGet, "/me", apperr.Handler(h.me))
		r.Method(http.MethodPost, "/mail/test", apperr.Handler(h.mailTest))
	})
}

type handlers struct{ Env }

func (h handlers) health(w http.ResponseWriter, r *http.Request) error {
	ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
	defer cancel()
	if err := h.DB.Ping(ctx); err != nil {
		h.Log.Warnw("health check failed", "err", err)
		return apperr.Unavailable("database unreachable", err)
	}
	return h.Content.Respond(w, http.StatusOK, map[string]string{"status": "ok"})
}

type profile struct {
	ID        int64     `db:"id"         json:"id"`
	Name      string    `db:"name"       json:"name"`
	Email     string    `db:"email"      json:"email"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`
}

const selectProfile = `SELECT id, name, email, created_at FROM users WHERE id = ?`

func (h handlers) me(w http.ResponseWriter, r *http.Request) error {
	id, _ := auth.UserID(r.Context())
	var p profile
	switch err := h.DB.GetContext(r.Context(), &p, selectProfile, id); {
	case errors.Is(err, sql.ErrNoRows):
		return apperr.NotFound("user not found")
	case err != nil:
		return apperr.Internal(err)
	}
	return h.Content.Respond(w, http.StatusOK, p)
}

type mailTestRequest struct {
	To string `json:"to" validate:"required,email"`
}

func (h handlers) mailTest(w http.ResponseWriter, r *http.Request) error {
	if h.Mail == nil {
		return apperr.NotFound("mail is not configured")
	}
	var req mailTestRequest
	if err := h.Content.Decode(r, &req); err != nil {
		return err
	}
	id, err := h.Mail.Send(r.Context(), mail.Message{
		To:      []string{req.To},
		Subject: "Test message",
		Text:    "Mail delivery is configured.",
	})
	if err != nil {
		if errors.Is(err, mail.ErrNoDomain) {
			return apperr.Unavailable("mail domain not configured", err)
		}
		return apperr.Internal(err)
	}
	return h.Content.Respond(w, http.StatusAccepted, map[string]string{"id": id})
}
