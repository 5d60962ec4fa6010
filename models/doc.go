// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package models defines request, response, and domain types for the API.

# Request Types

Types for parsing incoming JSON:

  - CreatePollRequest: question, options, duration_hours, allow_multiple_choices,
    public_results, theme, turnstile_token
  - VoteRequest: option_ids, voter_fingerprint, turnstile_token

# Response Types

Types for JSON responses:

  - PollCreatedResponse: poll_id, creator_key, question, active_until, expire_at
  - VoteResponse: message
  - StatsResponse: total_polls_created, total_votes_cast
  - ErrorResponse: error, message

# Domain Types

  - Poll: the aggregate (question, options, configuration, tally, lifecycle)
  - Option: a selectable choice with a stable ID
  - Tally: option ID -> vote count
  - VoterSet: fingerprints already counted, membership only

# Public Views

Poll never goes over the wire directly. Use the views instead:

	poll.Public()  // PollPublic, no tally
	poll.Results() // PollResults, tally with every option present

The creator key and voter fingerprints are not part of either view.

# Time

All instants are UTC. Stores call Poll.Normalize after loading so that
comparisons never mix zones.
*/
package models
