// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dustin/go-humanize"
	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/auth"
	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/live"
	"github.com/danielhkuo/quick-poll/metrics"
	"github.com/danielhkuo/quick-poll/middleware"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
	"github.com/danielhkuo/quick-poll/verify"
)

const (
	// DefaultDurationHours applies when duration_hours is omitted
	DefaultDurationHours = 24

	// Attempts at finding a free three-word poll ID
	maxPollIDAttempts = 10

	maxThemeLength = 32
)

type PollHandler struct {
	store       store.PollStore
	verifier    verify.Verifier
	broadcaster *live.Broadcaster
	cfg         cliparse.Config
}

func NewPollHandler(s store.PollStore, v verify.Verifier, b *live.Broadcaster, cfg cliparse.Config) *PollHandler {
	return &PollHandler{store: s, verifier: v, broadcaster: b, cfg: cfg}
}

// validateCreate normalizes req in place and returns a client-facing message
// for the first problem found
func (h *PollHandler) validateCreate(req *models.CreatePollRequest) string {
	req.Question = strings.TrimSpace(req.Question)
	if req.Question == "" {
		return "question is required"
	}
	if utf8.RuneCountInString(req.Question) > models.MaxQuestionLength {
		return "question is too long"
	}

	if len(req.Options) < models.MinOptions || len(req.Options) > models.MaxOptions {
		return "options must have between 2 and 10 entries"
	}
	seen := make(map[string]struct{}, len(req.Options))
	for i, opt := range req.Options {
		opt = strings.TrimSpace(opt)
		if opt == "" {
			return "options must not be blank"
		}
		if utf8.RuneCountInString(opt) > models.MaxOptionLength {
			return "option is too long"
		}
		key := strings.ToLower(opt)
		if _, dup := seen[key]; dup {
			return "options must be unique"
		}
		seen[key] = struct{}{}
		req.Options[i] = opt
	}

	if req.DurationHours == 0 {
		req.DurationHours = DefaultDurationHours
	}
	if req.DurationHours < 1 || req.DurationHours > h.cfg.MaxDurationHours() {
		return "duration_hours is out of range"
	}

	req.Theme = strings.TrimSpace(req.Theme)
	if req.Theme == "" {
		req.Theme = models.DefaultTheme
	}
	if len(req.Theme) > maxThemeLength {
		return "theme is too long"
	}

	return ""
}

// CreatePoll handles POST /api/polls
func (h *PollHandler) CreatePoll(w http.ResponseWriter, r *http.Request) {
	var req models.CreatePollRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	if msg := h.validateCreate(&req); msg != "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, msg)
		return
	}

	// Human verification
	ip := middleware.GetClientIP(r, h.cfg.TrustProxyHeaders)
	if err := h.verifier.Verify(r.Context(), req.TurnstileToken, ip); err != nil {
		if errors.Is(err, verify.ErrRejected) {
			middleware.ErrorResponse(w, http.StatusBadRequest, "Human verification failed")
			return
		}
		slog.Warn("verification unavailable for poll creation", "error", err)
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Human verification is temporarily unavailable")
		return
	}

	creatorKey, err := auth.GenerateCreatorKey()
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to create poll")
		return
	}

	now := time.Now().UTC()
	publicResults := true
	if req.PublicResults != nil {
		publicResults = *req.PublicResults
	}

	poll := &models.Poll{
		CreatorKey:           creatorKey,
		Question:             req.Question,
		AllowMultipleChoices: req.AllowMultipleChoices,
		PublicResults:        publicResults,
		Theme:                req.Theme,
		Votes:                models.Tally{},
		Voters:               models.NewVoterSet(),
		CreatedAt:            now,
		ActiveUntil:          now.Add(time.Duration(req.DurationHours) * time.Hour),
		ExpireAt:             now.Add(h.cfg.PollLifetime),
	}
	for _, text := range req.Options {
		poll.Options = append(poll.Options, models.Option{ID: auth.GenerateOptionID(), Text: text})
	}

	// Three-word IDs collide; retry with a fresh one
	created := false
	for attempt := 0; attempt < maxPollIDAttempts && !created; attempt++ {
		poll.PollID, err = auth.GeneratePollID()
		if err != nil {
			middleware.InternalError(w, r, err, "Failed to create poll")
			return
		}

		err = h.store.Create(r.Context(), poll)
		switch {
		case err == nil:
			created = true
		case errors.Is(err, store.ErrDuplicateID):
			slog.Debug("poll ID taken, retrying", "poll_id", poll.PollID, "attempt", attempt+1)
		default:
			middleware.InternalError(w, r, err, "Failed to create poll")
			return
		}
	}
	if !created {
		middleware.InternalError(w, r, errors.New("no free poll ID"), "Failed to create poll")
		return
	}

	if err := h.store.IncrementStat(r.Context(), store.StatPollsCreated); err != nil {
		slog.Warn("failed to increment poll counter", "error", err)
	}
	metrics.PollsCreated.Inc()

	slog.Info("poll created",
		"poll_id", poll.PollID,
		"options", len(poll.Options),
		"closes", humanize.Time(poll.ActiveUntil),
	)

	middleware.JSONResponse(w, http.StatusCreated, models.PollCreatedResponse{
		PollID:      poll.PollID,
		CreatorKey:  poll.CreatorKey,
		Question:    poll.Question,
		ActiveUntil: poll.ActiveUntil,
		ExpireAt:    poll.ExpireAt,
	})
}

// loadPoll writes the error response and returns nil when the poll cannot be loaded
func (h *PollHandler) loadPoll(w http.ResponseWriter, r *http.Request) *models.Poll {
	poll, err := h.store.Find(r.Context(), r.PathValue("id"))
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return nil
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load poll")
		return nil
	}
	return poll
}

// GetPoll handles GET /api/polls/{id}
func (h *PollHandler) GetPoll(w http.ResponseWriter, r *http.Request) {
	poll := h.loadPoll(w, r)
	if poll == nil {
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll.Public())
}

// GetResults handles GET /api/polls/{id}/results
// Private results need the X-Creator-Key header.
func (h *PollHandler) GetResults(w http.ResponseWriter, r *http.Request) {
	poll := h.loadPoll(w, r)
	if poll == nil {
		return
	}

	if !auth.CanViewResults(poll.PublicResults, r.Header.Get(middleware.CreatorKeyHeader), poll.CreatorKey) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are private")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, poll.Results())
}

// DeletePoll handles DELETE /api/polls/{id}
// Unknown poll and wrong key get the same answer.
func (h *PollHandler) DeletePoll(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")
	creatorKey := r.Header.Get(middleware.CreatorKeyHeader)
	if creatorKey == "" {
		middleware.ErrorResponse(w, http.StatusForbidden, "Poll not found or access denied")
		return
	}

	n, err := h.store.Delete(r.Context(), pollID, creatorKey)
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to delete poll")
		return
	}
	if n == 0 {
		middleware.ErrorResponse(w, http.StatusForbidden, "Poll not found or access denied")
		return
	}

	h.broadcaster.ClosePoll(pollID)
	slog.Info("poll deleted", "poll_id", pollID)

	w.WriteHeader(http.StatusNoContent)
}
