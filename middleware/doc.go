// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package middleware provides HTTP middleware and helper functions.

# Request Logging

Wrap handlers with request logging:

	mux.HandleFunc("GET /health", middleware.WithLogging(handler))

Logs request start (method, path, remote) and completion (duration_ms).
The ResponseWriter is passed through untouched, so WebSocket upgrades keep
working.

# CORS Middleware

Built on rs/cors from the configured origins:

	handler = middleware.CORS(cfg.AllowedOrigins)(mux)

Allows GET, POST, DELETE and OPTIONS with headers Content-Type and
X-Creator-Key.

# Rate Limiting

Per client IP token buckets (x/time/rate), kept in an expiring LRU:

	limit := middleware.RateLimit(cfg.TrustProxyHeaders, cfg.RateLimitInterval, cfg.RateLimitBurst, 10000, time.Hour)
	mux.Handle("POST /api/polls/{id}/vote", limit(middleware.WithLogging(h.CastVote)))

Rejected requests get 429 with Retry-After.

# JSON Helpers

Write JSON responses:

	middleware.JSONResponse(w, http.StatusOK, data)
	middleware.ErrorResponse(w, http.StatusBadRequest, "message")

Parse JSON request bodies (at most MaxBodyBytes):

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

# Internal Errors

	middleware.InternalError(w, r, err, "Failed to create poll")

Logs the error, sends it to Sentry when configured and writes a 500 with the
generic message only.

# Client IP Extraction

	ip := middleware.GetClientIP(r, cfg.TrustProxyHeaders)

X-Forwarded-For and X-Real-IP are only honored behind a trusted proxy. The
IP is forwarded to the verification service and keys the rate limiter.
*/
package middleware
