// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package models

import "time"

// Poll field limits
const (
	MinOptions        = 2
	MaxOptions        = 10
	MaxQuestionLength = 280
	MaxOptionLength   = 200
	MaxVoteOptions    = 10
	MaxFingerprintLen = 128
	DefaultTheme      = "default"
)

// Request types

type CreatePollRequest struct {
	Question             string   `json:"question"`
	Options              []string `json:"options"`
	DurationHours        int      `json:"duration_hours"`
	AllowMultipleChoices bool     `json:"allow_multiple_choices"`
	PublicResults        *bool    `json:"public_results"`
	Theme                string   `json:"theme"`
	TurnstileToken       string   `json:"turnstile_token"`
}

// option_ids is treated as a set: duplicates collapse
type VoteRequest struct {
	OptionIDs        []string `json:"option_ids"`
	VoterFingerprint string   `json:"voter_fingerprint"`
	TurnstileToken   string   `json:"turnstile_token"`

	// RemoteIP is forwarded to the verification service, never decoded from JSON
	RemoteIP string `json:"-"`
}

// Response types

type PollCreatedResponse struct {
	PollID      string    `json:"poll_id"`
	CreatorKey  string    `json:"creator_key"`
	Question    string    `json:"question"`
	ActiveUntil time.Time `json:"active_until"`
	ExpireAt    time.Time `json:"expire_at"`
}

type VoteResponse struct {
	Message string `json:"message"`
}

type StatsResponse struct {
	TotalPollsCreated int64 `json:"total_polls_created"`
	TotalVotesCast    int64 `json:"total_votes_cast"`
}

// Domain types

type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// Tally maps option ID -> vote count
type Tally map[string]uint64

// VoterSet holds voter fingerprints for membership tests only.
// Snapshots loaded for voting carry just the fingerprint being checked.
type VoterSet map[string]struct{}

func NewVoterSet(fingerprints ...string) VoterSet {
	s := make(VoterSet, len(fingerprints))
	for _, fp := range fingerprints {
		s[fp] = struct{}{}
	}
	return s
}

func (s VoterSet) Contains(fingerprint string) bool {
	_, ok := s[fingerprint]
	return ok
}

type Poll struct {
	PollID               string
	CreatorKey           string `json:"-"`
	Question             string
	Options              []Option
	AllowMultipleChoices bool
	PublicResults        bool
	Theme                string
	Votes                Tally
	VoterCount           uint64
	Voters               VoterSet
	CreatedAt            time.Time
	ActiveUntil          time.Time
	ExpireAt             time.Time
}

// HasOption reports whether id names one of the poll's options
func (p *Poll) HasOption(id string) bool {
	for _, opt := range p.Options {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Tally returns a count for every option, zero for options nobody picked
func (p *Poll) Tally() Tally {
	t := make(Tally, len(p.Options))
	for _, opt := range p.Options {
		t[opt.ID] = p.Votes[opt.ID]
	}
	return t
}

// Normalize converts all instants to UTC
func (p *Poll) Normalize() {
	p.CreatedAt = p.CreatedAt.UTC()
	p.ActiveUntil = p.ActiveUntil.UTC()
	p.ExpireAt = p.ExpireAt.UTC()
}

// Public views

// PollPublic can be shown to any voter
type PollPublic struct {
	PollID               string    `json:"poll_id"`
	Question             string    `json:"question"`
	Options              []Option  `json:"options"`
	AllowMultipleChoices bool      `json:"allow_multiple_choices"`
	Theme                string    `json:"theme"`
	ActiveUntil          time.Time `json:"active_until"`
	ExpireAt             time.Time `json:"expire_at"`
	PublicResults        bool      `json:"public_results"`
}

// PollResults is the public view plus the tally.
// It is also the payload pushed to live observers.
type PollResults struct {
	PollPublic
	Votes      Tally  `json:"votes"`
	VoterCount uint64 `json:"voter_count"`
}

func (p *Poll) Public() PollPublic {
	return PollPublic{
		PollID:               p.PollID,
		Question:             p.Question,
		Options:              p.Options,
		AllowMultipleChoices: p.AllowMultipleChoices,
		Theme:                p.Theme,
		ActiveUntil:          p.ActiveUntil,
		ExpireAt:             p.ExpireAt,
		PublicResults:        p.PublicResults,
	}
}

func (p *Poll) Results() PollResults {
	return PollResults{
		PollPublic: p.Public(),
		Votes:      p.Tally(),
		VoterCount: p.VoterCount,
	}
}

// Error response

type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
