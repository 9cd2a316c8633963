// internal/middleware/errors.go
//
// Error middleware.
//
// Installs a per-request apperr.Renderer so handlers (and other
// middleware) can return errors, and recovers panics.  Both paths produce
// the same JSON body:
//
//	{"error": true, "reason": "…", "code": "…"}
//
// A panic after the response has started cannot be rendered; it is logged
// and the connection aborted.
//
// Status ≥ 500 is logged at error level with the underlying cause; the
// cause is never sent to the client.

package middleware

import (
	"fmt"
	"net/http"

	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/apperr"
	"github.com/yanizio/billing-api/internal/codec"
)

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
	Code   string `json:"code,omitempty"`
}

// Errors returns the error middleware.
func Errors(content *codec.Config, log *zap.SugaredLogger) Func {
	if log == nil {
		log = zap.NewNop().Sugar()
	}
	render := func(w http.ResponseWriter, r *http.Request, err error) {
		ae := apperr.From(err)
		fields := []any{
			"method", r.Method,
			"path", r.URL.Path,
			"status", ae.Status,
			"request_id", chimw.GetReqID(r.Context()),
		}
		if ae.Status >= http.StatusInternalServerError {
			log.Errorw("request failed", append(fields, "err", err)...)
		} else {
			log.Debugw("request rejected", append(fields, "reason", ae.Message)...)
		}
		body := ErrorBody{Error: true, Reason: ae.Message, Code: ae.Code}
		if werr := content.Respond(w, ae.Status, body); werr != nil {
			log.Warnw("write error response", "err", werr)
		}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			r = r.WithContext(apperr.WithRenderer(r.Context(), render))
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				err := apperr.Internal(fmt.Errorf("panic: %v", rec))
				if ww.Status() != 0 {
					// Headers are out; a JSON body would corrupt the response.
					log.Errorw("panic after response started",
						"method", r.Method,
						"path", r.URL.Path,
						"status", ww.Status(),
						"request_id", chimw.GetReqID(r.Context()),
						"err", err,
					)
					panic(http.ErrAbortHandler)
				}
				render(ww, r, err)
			}()
			next.ServeHTTP(ww, r)
		})
	}
}
