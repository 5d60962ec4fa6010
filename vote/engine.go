// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/metrics"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/verify"
)

// Publisher receives the post-write results of every admitted vote
type Publisher interface {
	Broadcast(ctx context.Context, pollID string, results models.PollResults)
}

// Engine applies votes. It holds no per-poll state; the store is the only
// place a vote becomes durable.
type Engine struct {
	store     store.PollStore
	verifier  verify.Verifier
	publisher Publisher

	// Now is the clock used for the acceptance window
	Now func() time.Time
}

// NewEngine creates an engine. publisher may be nil.
func NewEngine(s store.PollStore, v verify.Verifier, p Publisher) *Engine {
	return &Engine{
		store:     s,
		verifier:  v,
		publisher: p,
		Now:       time.Now,
	}
}

// ApplyVote validates, verifies and records one vote, then broadcasts the
// new tally. On success it returns the results after the write. Rejections
// are returned as errors matching one of the package sentinels; use
// OutcomeOf to get the tag.
func (e *Engine) ApplyVote(ctx context.Context, pollID string, req models.VoteRequest) (models.PollResults, error) {
	results, err := e.apply(ctx, pollID, req)

	outcome := OutcomeOf(err)
	metrics.Votes.WithLabelValues(outcome.String()).Inc()
	if outcome != Admitted {
		slog.Info("vote rejected", "poll_id", pollID, "outcome", outcome.String())
	}

	return results, err
}

func (e *Engine) apply(ctx context.Context, pollID string, req models.VoteRequest) (models.PollResults, error) {
	selected := Distinct(req.OptionIDs)

	// Pre-filter: cheap checks before the verification round trip
	poll, err := e.store.FindForVote(ctx, pollID, req.VoterFingerprint)
	if errors.Is(err, store.ErrNotFound) {
		return models.PollResults{}, ErrNotFound
	}
	if err != nil {
		slog.Error("failed to load poll for vote", "poll_id", pollID, "error", err)
		return models.PollResults{}, errors.Wrapf(ErrStorageUnavailable, "%v", err)
	}

	if outcome := Validate(poll, req, e.Now()); outcome != Admitted {
		return models.PollResults{}, outcome.Err()
	}

	if err := e.verifier.Verify(ctx, req.TurnstileToken, req.RemoteIP); err != nil {
		if errors.Is(err, verify.ErrRejected) {
			return models.PollResults{}, ErrVerificationFailed
		}
		slog.Warn("verification unavailable", "poll_id", pollID, "error", err)
		return models.PollResults{}, errors.WithStack(ErrVerificationUnavailable)
	}

	// The conditional write is the real duplicate check
	updated, err := e.store.ApplyVote(ctx, pollID, selected, req.VoterFingerprint, e.Now())
	switch {
	case err == nil:
	case errors.Is(err, store.ErrAlreadyVoted):
		return models.PollResults{}, ErrAlreadyVoted
	case errors.Is(err, store.ErrNotFound):
		return models.PollResults{}, ErrNotFound
	case errors.Is(err, store.ErrClosed):
		return models.PollResults{}, ErrClosed
	case errors.Is(err, store.ErrUnknownOption):
		return models.PollResults{}, ErrInvalidOptions
	default:
		slog.Error("failed to apply vote", "poll_id", pollID, "error", err)
		return models.PollResults{}, errors.Wrapf(ErrStorageUnavailable, "%v", err)
	}

	if err := e.store.IncrementStat(ctx, store.StatVotesCast); err != nil {
		slog.Warn("failed to increment vote counter", "poll_id", pollID, "error", err)
	}

	results := updated.Results()

	if e.publisher != nil {
		// The voter hanging up must not cut the broadcast short
		e.publisher.Broadcast(context.WithoutCancel(ctx), pollID, results)
	}

	return results, nil
}
