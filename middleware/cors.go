// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"net/http"

	"github.com/rs/cors"
)

// CreatorKeyHeader carries the creator secret on results and delete requests
const CreatorKeyHeader = "X-Creator-Key"

// CORS allows cross-origin requests from allowedOrigins ("*" for any)
func CORS(allowedOrigins []string) func(http.Handler) http.Handler {
	c := cors.New(cors.Options{
		AllowedOrigins: allowedOrigins,
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders: []string{"Content-Type", CreatorKeyHeader},
		MaxAge:         600,
	})
	return c.Handler
}
