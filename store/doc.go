// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package store defines the Poll Store contract shared by the SQL (package db)
and MongoDB (package mongostore) backends.

# Atomic Votes

ApplyVote is the enforcement point for one counted vote per fingerprint. It
must be a single conditional write: increment the chosen options and add the
fingerprint only if the fingerprint is absent and active_until is still
after now. A prior read is never enough.

	poll, err := s.ApplyVote(ctx, pollID, []string{optionID}, fingerprint, now)
	switch {
	case errors.Is(err, store.ErrAlreadyVoted):
	case errors.Is(err, store.ErrClosed):
	case errors.Is(err, store.ErrNotFound):
	}

# Expiry

MongoDB drops expired polls through a TTL index. SQL backends hide expired
polls from reads at once and rely on the sweeper to delete them:

	go store.RunSweeper(ctx, pollStore, cfg.SweepInterval, broadcaster.ClosePolls)

# Stats

IncrementStat and Stats maintain best-effort global counters
(StatPollsCreated, StatVotesCast). Their loss is not a correctness failure.
*/
package store
