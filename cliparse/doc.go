// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package cliparse handles command-line argument parsing and configuration.

# Configuration

ParseFlags returns a Config struct with all settings:

	cfg, err := cliparse.ParseFlags(os.Args[1:])

Environment variables are read first (struct tags, with defaults), then
CLI flags override them. main loads an optional .env file beforehand.

# Environment Variables

	PORT                 → -p (default 8000)
	DATABASE_URL         → -d (required)
	DATABASE_TYPE        → -t (sqlite, postgres or mongo; default sqlite)
	TURNSTILE_SECRET_KEY → --turnstile-secret (required unless disabled)
	TURNSTILE_DISABLED   → --no-verify
	LOG_LEVEL            → --log-level (default info)

Environment only:

	TURNSTILE_URL        verification endpoint
	VERIFY_TIMEOUT       verification call timeout (5s)
	ALLOWED_ORIGINS      comma separated CORS / WebSocket origins
	TRUST_PROXY_HEADERS  trust X-Forwarded-For for client IPs
	RATE_LIMIT_INTERVAL  token refill interval per client (1s)
	RATE_LIMIT_BURST     burst per client (10)
	POLL_LIFETIME        creation to hard deletion (168h)
	SWEEP_INTERVAL       expired poll sweep period for SQL stores (1m)
	BROADCAST_TIMEOUT    per-observer push timeout (5s)
	SENTRY_DSN           error reporting, disabled when empty

# Validation

ParseFlags returns an error if required values are missing or invalid:

  - DATABASE_URL must be provided
  - DATABASE_TYPE must be sqlite, postgres or mongo
  - TURNSTILE_SECRET_KEY must be provided unless TURNSTILE_DISABLED
  - POLL_LIFETIME must be at least one hour

# Example

	cfg, err := cliparse.ParseFlags(os.Args[1:])
	if err != nil {
		log.Fatal(err)
	}

	pollStore, err := db.Open(cfg.DatabaseType, cfg.DatabaseURL)
	// ...
*/
package cliparse
