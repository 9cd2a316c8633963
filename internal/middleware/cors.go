package middleware

import (
	"github.com/go-chi/cors"
)

// CORS allows cross-origin calls from origins.  Credentials are allowed so
// session cookies work from a browser front end.
func CORS(origins []string) Func {
	return cors.Handler(cors.Options{
		AllowedOrigins:   origins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"},
		ExposedHeaders:   []string{"X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	})
}
