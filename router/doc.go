// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package router defines HTTP routes for the quick-poll API.

# Route Registration

NewRouter wires handlers to a http.ServeMux and wraps it with CORS and
panic recovery:

	handler := router.NewRouter(store, verifier, broadcaster, cfg)

# Endpoints

Health and operations:

	GET /health  - Liveness
	GET /        - Banner
	GET /metrics - Prometheus exposition

Polls:

	POST   /api/polls              - Create poll (rate limited)
	GET    /api/polls/{id}         - Public view, no tally
	GET    /api/polls/{id}/results - Tally (X-Creator-Key for private polls)
	DELETE /api/polls/{id}         - Delete (X-Creator-Key)

Voting:

	POST /api/polls/{id}/vote - Cast a vote (rate limited)

Live results:

	GET /api/ws/polls/{id}/results - WebSocket stream (?creator_key= for private polls)

Stats:

	GET /api/stats - Global counters

# Handler Initialization

The router builds the vote engine and the handlers from the injected
dependencies. The broadcaster is shared by the engine (publishing), the
live handler (subscribing) and the poll handler (closing on delete).
*/
package router
