// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"time"

	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/models"
)

var (
	ErrNotFound      = errors.New("poll not found")
	ErrAlreadyVoted  = errors.New("fingerprint already voted")
	ErrDuplicateID   = errors.New("poll id already in use")
	ErrUnknownOption = errors.New("unknown option")
	ErrClosed        = errors.New("poll closed")
)

// Global counters
const (
	StatPollsCreated = "total_polls_created"
	StatVotesCast    = "total_votes_cast"
)

// PollStore is durable keyed storage for polls.
// Implementations serialize writes to a single poll.
type PollStore interface {
	// Create inserts a new poll. Returns ErrDuplicateID if the poll ID is taken.
	Create(ctx context.Context, poll *models.Poll) error

	// Find loads a poll without its voter set. Polls past expire_at are
	// reported as ErrNotFound even before they are swept.
	Find(ctx context.Context, pollID string) (*models.Poll, error)

	// FindForVote loads a poll whose Voters contains fingerprint if, and only
	// if, that fingerprint has already voted.
	FindForVote(ctx context.Context, pollID, fingerprint string) (*models.Poll, error)

	// ApplyVote atomically increments every option in optionIDs and adds
	// fingerprint to the voter set, only if fingerprint is not already
	// present and the poll is still accepting votes at now. Returns the
	// snapshot after the write, ErrAlreadyVoted, ErrClosed or ErrNotFound.
	ApplyVote(ctx context.Context, pollID string, optionIDs []string, fingerprint string, now time.Time) (*models.Poll, error)

	// Delete removes the poll if creatorKey matches and returns the number
	// of polls deleted (0 or 1).
	Delete(ctx context.Context, pollID, creatorKey string) (int64, error)

	// Sweep permanently removes polls whose expire_at is at or before now
	// and returns their IDs. Stores with native expiry return nil.
	Sweep(ctx context.Context, now time.Time) ([]string, error)

	IncrementStat(ctx context.Context, name string) error
	Stats(ctx context.Context) (map[string]int64, error)

	Close() error
}
