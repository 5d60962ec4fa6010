// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package vote decides whether a vote may be counted and applies it.

# Validation

Validate is a pure function over a poll snapshot:

	outcome := vote.Validate(poll, req, time.Now())

Checks run in order, first failure wins:

 1. poll is nil: NotFound
 2. now is not strictly before active_until (compared in UTC): Closed
 3. fingerprint already in the voter set: AlreadyVoted
 4. no options, or an option ID the poll does not have: InvalidOptions
 5. single-choice poll with more than one distinct option: InvalidOptions

Duplicate option IDs in a request collapse to one.

# Applying

	engine := vote.NewEngine(pollStore, verifier, broadcaster)
	results, err := engine.ApplyVote(ctx, pollID, req)
	switch vote.OutcomeOf(err) {
	case vote.Admitted:
	case vote.AlreadyVoted:
		...
	}

ApplyVote loads the poll with FindForVote, validates it, asks the verifier,
then performs one conditional write in the store. The early read only
filters out votes that would fail anyway; the conditional write is what
guarantees a fingerprint is counted once, even when many requests race.

After a successful write the global vote counter is bumped (best effort) and
the post-write results are handed to the Publisher. Neither can fail the
vote.

Verification runs after the local checks so a closed poll or a repeat voter
never spends a token. ErrVerificationUnavailable matches
ErrVerificationFailed with errors.Is; OutcomeOf tells them apart.

# Fingerprints

The voter fingerprint is supplied by the client. A client that mints a new
fingerprint for every request is not deduplicated; human verification is the
only barrier against that.
*/
package vote
