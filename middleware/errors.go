// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package middleware

import (
	"log/slog"
	"net/http"

	"github.com/getsentry/sentry-go"
)

// InternalError logs err with the request context, reports it to Sentry
// (a no-op when Sentry is not initialized) and writes a generic 500.
func InternalError(w http.ResponseWriter, r *http.Request, err error, message string) {
	slog.Error(message,
		"method", r.Method,
		"path", r.URL.Path,
		"error", err,
	)
	sentry.CaptureException(err)

	ErrorResponse(w, http.StatusInternalServerError, message)
}
