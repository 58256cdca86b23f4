package middleware

import (
	"net/http"
	"slices"

	"github.com/go-chi/cors"
)

// defaultOrigin is the local admin dashboard.
const defaultOrigin = "http://localhost:3000"

// CORS builds the options for go-chi/cors. Browsers reject credentials with
// a wildcard origin, so "*" turns them off. Retry-After is exposed for
// clients backing off a full rewrite queue.
func CORS(allowedOrigins []string) cors.Options {
	if len(allowedOrigins) == 0 {
		allowedOrigins = []string{defaultOrigin}
	}

	return cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet, http.MethodPost, http.MethodPut, http.MethodDelete, http.MethodOptions,
		},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", RequestIDHeader},
		ExposedHeaders:   []string{RequestIDHeader, "Retry-After"},
		AllowCredentials: !slices.Contains(allowedOrigins, "*"),
		MaxAge:           300,
	}
}
