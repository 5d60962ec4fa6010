// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"time"

	"github.com/danielhkuo/quick-poll/models"
)

// Validate decides whether req may be applied to poll at now. It is pure:
// it reads the snapshot and never touches storage.
//
// Checks run in order and the first failure wins: existence, acceptance
// window, duplicate voter, option validity, cardinality.
func Validate(poll *models.Poll, req models.VoteRequest, now time.Time) Outcome {
	if poll == nil {
		return NotFound
	}

	// Open while now is strictly before active_until
	if !now.UTC().Before(poll.ActiveUntil.UTC()) {
		return Closed
	}

	if poll.Voters.Contains(req.VoterFingerprint) {
		return AlreadyVoted
	}

	selected := Distinct(req.OptionIDs)
	if len(selected) == 0 || len(selected) > models.MaxVoteOptions {
		return InvalidOptions
	}
	for _, id := range selected {
		if !poll.HasOption(id) {
			return InvalidOptions
		}
	}

	if !poll.AllowMultipleChoices && len(selected) != 1 {
		return InvalidOptions
	}

	return Admitted
}

// Distinct returns ids without duplicates, keeping first-seen order
func Distinct(ids []string) []string {
	seen := make(map[string]struct{}, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
