// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package vote

import "github.com/pkg/errors"

// Outcome is the tagged result of a vote attempt
type Outcome int

const (
	Admitted Outcome = iota
	NotFound
	Closed
	AlreadyVoted
	InvalidOptions
	VerificationFailed
	VerificationUnavailable
	StorageUnavailable
)

func (o Outcome) String() string {
	switch o {
	case Admitted:
		return "admitted"
	case NotFound:
		return "not_found"
	case Closed:
		return "closed"
	case AlreadyVoted:
		return "already_voted"
	case InvalidOptions:
		return "invalid_options"
	case VerificationFailed:
		return "verification_failed"
	case VerificationUnavailable:
		return "verification_unavailable"
	case StorageUnavailable:
		return "storage_unavailable"
	default:
		return "unknown"
	}
}

var (
	ErrNotFound           = errors.New("poll not found")
	ErrClosed             = errors.New("poll is closed for voting")
	ErrAlreadyVoted       = errors.New("already voted on this poll")
	ErrInvalidOptions     = errors.New("invalid option selection")
	ErrVerificationFailed = errors.New("human verification failed")
	ErrStorageUnavailable = errors.New("storage unavailable")

	// ErrVerificationUnavailable also matches ErrVerificationFailed, so callers
	// that only care whether verification passed can check one error
	ErrVerificationUnavailable error = verificationUnavailable{}
)

type verificationUnavailable struct{}

func (verificationUnavailable) Error() string { return "human verification unavailable" }

func (verificationUnavailable) Is(target error) bool {
	return target == ErrVerificationFailed
}

// Err returns the sentinel error for a rejection, nil for Admitted
func (o Outcome) Err() error {
	switch o {
	case Admitted:
		return nil
	case NotFound:
		return ErrNotFound
	case Closed:
		return ErrClosed
	case AlreadyVoted:
		return ErrAlreadyVoted
	case InvalidOptions:
		return ErrInvalidOptions
	case VerificationFailed:
		return ErrVerificationFailed
	case VerificationUnavailable:
		return ErrVerificationUnavailable
	default:
		return ErrStorageUnavailable
	}
}

// OutcomeOf maps an error returned by Engine.ApplyVote back to its outcome.
// Unrecognized errors are StorageUnavailable.
func OutcomeOf(err error) Outcome {
	switch {
	case err == nil:
		return Admitted
	case errors.Is(err, ErrNotFound):
		return NotFound
	case errors.Is(err, ErrClosed):
		return Closed
	case errors.Is(err, ErrAlreadyVoted):
		return AlreadyVoted
	case errors.Is(err, ErrInvalidOptions):
		return InvalidOptions
	// Checked before ErrVerificationFailed, which it also matches
	case errors.Is(err, ErrVerificationUnavailable):
		return VerificationUnavailable
	case errors.Is(err, ErrVerificationFailed):
		return VerificationFailed
	default:
		return StorageUnavailable
	}
}
