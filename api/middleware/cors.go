package middleware

import (
	"net/http"

	"github.com/go-chi/cors"
)

// CORS allows any origin. Callers authenticate with bearer tokens, never
// cookies, so credentials are not allowed.
func CORS() func(http.Handler) http.Handler {
	return cors.New(cors.Options{
		AllowedOrigins:   []string{"*"},
		AllowedMethods:   []string{"GET", "POST", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "Idempotency-Key", "X-Client-Info", "X-Request-Id", "apikey"},
		ExposedHeaders:   []string{"X-Request-Id"},
		AllowCredentials: false,
		MaxAge:           300,
	}).Handler
}
