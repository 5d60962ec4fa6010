// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package main provides the entry point for the quick-poll API server.

quick-poll runs short-lived anonymous polls: a creator posts a question
with a few options, voters pick one (or several) until the poll closes,
and anyone allowed to see the results can watch the tally change live
over a WebSocket.

# Starting the Server

Configuration comes from the environment (optionally a .env file) and
CLI flags, flags winning:

	DATABASE_URL=file:quickpoll.db TURNSTILE_DISABLED=true go run .

Or with flags:

	go run . -p 8000 -t postgres -d "postgres://..."

# Configuration

Required settings:

  - DATABASE_URL (-d): SQLite file, PostgreSQL DSN or MongoDB URL
  - TURNSTILE_SECRET_KEY (--turnstile-secret): unless TURNSTILE_DISABLED (--no-verify)

Optional settings:

  - PORT (-p): Server port (default: 8000)
  - DATABASE_TYPE (-t): sqlite, postgres or mongo (default: sqlite)
  - ALLOWED_ORIGINS: comma separated CORS and WebSocket origins
  - POLL_LIFETIME, SWEEP_INTERVAL, BROADCAST_TIMEOUT, VERIFY_TIMEOUT
  - RATE_LIMIT_INTERVAL, RATE_LIMIT_BURST, TRUST_PROXY_HEADERS
  - SENTRY_DSN, LOG_LEVEL (--log-level)

# Architecture

  - vote: validation and the vote application engine
  - live: subscription registry, broadcaster and WebSocket observers
  - store: storage contract and the expiry sweeper
  - db: SQLite and PostgreSQL store
  - mongostore: MongoDB store
  - verify: Cloudflare Turnstile client
  - handlers, router, middleware: HTTP surface
  - models, auth, cliparse, metrics: shared types, secrets, config, Prometheus

See package documentation for each component.
*/
package main
