// internal/middleware/observe.go
//
// Request ID, access log, and Prometheus instrumentation.
//
// Context
// -------
// The access log writes one INFO line per request with method, route
// pattern, status, size, and latency.  When the request-info middleware
// sits further in, its UA and geo fields are included too.  Route
// patterns come from matching the router directly because chi's routing
// context is private to the mux.
package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/yanizio/billing-api/internal/metrics"
	"github.com/yanizio/billing-api/internal/requestinfo"
)

// RequestID assigns or propagates X-Request-ID.
func RequestID(next http.Handler) http.Handler {
	return chimw.RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set(chimw.RequestIDHeader, chimw.GetReqID(r.Context()))
		next.ServeHTTP(w, r)
	}))
}

// routePattern resolves the chi pattern for r, or "unmatched".
func routePattern(routes chi.Routes, r *http.Request) string {
	if routes == nil {
		return "unmatched"
	}
	rctx := chi.NewRouteContext()
	if routes.Match(rctx, r.Method, r.URL.Path) {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}

// AccessLog logs each completed request.
func AccessLog(log *zap.SugaredLogger, routes chi.Routes) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			holder := requestinfo.NewHolder()
			next.ServeHTTP(ww, r.WithContext(requestinfo.WithHolder(r.Context(), holder)))

			fields := []any{
				"method", r.Method,
				"route", routePattern(routes, r),
				"path", r.URL.Path,
				"status", status(ww),
				"bytes", ww.BytesWritten(),
				"duration", time.Since(start),
				"request_id", chimw.GetReqID(r.Context()),
			}
			if info := holder.Info(); info != nil {
				fields = append(fields,
					"ip", info.IP,
					"browser", info.UA.Browser,
					"device", info.UA.Device,
					"bot", info.UA.IsBot,
					"country", info.Geo.CountryISO,
				)
			}
			log.Infow("request", fields...)
		})
	}
}

// Metrics records request counts and latency by route pattern.
func Metrics(routes chi.Routes) Func {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			route := routePattern(routes, r)
			metrics.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(status(ww))).Inc()
			metrics.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
		})
	}
}

func status(ww chimw.WrapResponseWriter) int {
	if s := ww.Status(); s != 0 {
		return s
	}
	return http.StatusOK
}
