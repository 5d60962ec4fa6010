// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package handlers contains HTTP request handlers for the Quick Poll API.

# Handler Types

Each handler is a struct built from its dependencies:

  - PollHandler: create, read, results and delete
  - VotingHandler: vote submission through vote.Engine
  - LiveHandler: WebSocket result streams
  - StatsHandler: global counters

	pollHandler := handlers.NewPollHandler(pollStore, verifier, broadcaster, cfg)
	votingHandler := handlers.NewVotingHandler(engine, cfg)

# Polls

	POST   /api/polls              → CreatePoll (returns creator_key)
	GET    /api/polls/{id}         → GetPoll (no tally)
	GET    /api/polls/{id}/results → GetResults
	DELETE /api/polls/{id}         → DeletePoll

Private results and deletion need the X-Creator-Key header. Deleting with a
wrong key and deleting an unknown poll both answer 403, so the key cannot be
probed.

Creation runs human verification after input validation. Three-word poll
IDs are retried on collision.

# Voting

	POST /api/polls/{id}/vote → CastVote

Outcome to status:

	admitted                  200
	not found                 404
	closed                    403
	already voted             409
	invalid options           400
	verification failed       400
	verification unavailable  503
	storage unavailable       500

# Live Results

	GET /api/ws/polls/{id}/results[?creator_key=...] → LiveHandler.Subscribe

404 and 403 are answered before the upgrade. After the upgrade the observer
is subscribed, then sent the current results, then updated after every
admitted vote until it disconnects or the poll goes away.
*/
package handlers
