// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quick-poll/cliparse"
	"github.com/danielhkuo/quick-poll/middleware"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/vote"
)

type VotingHandler struct {
	engine *vote.Engine
	cfg    cliparse.Config
}

func NewVotingHandler(engine *vote.Engine, cfg cliparse.Config) *VotingHandler {
	return &VotingHandler{engine: engine, cfg: cfg}
}

// CastVote handles POST /api/polls/{id}/vote
// The response never carries the tally, private results stay private.
func (h *VotingHandler) CastVote(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	var req models.VoteRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	if req.VoterFingerprint == "" {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_fingerprint is required")
		return
	}
	if len(req.VoterFingerprint) > models.MaxFingerprintLen {
		middleware.ErrorResponse(w, http.StatusBadRequest, "voter_fingerprint is too long")
		return
	}
	if len(req.OptionIDs) == 0 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "option_ids is required")
		return
	}

	req.RemoteIP = middleware.GetClientIP(r, h.cfg.TrustProxyHeaders)

	_, err := h.engine.ApplyVote(r.Context(), pollID, req)
	switch vote.OutcomeOf(err) {
	case vote.Admitted:
		middleware.JSONResponse(w, http.StatusOK, models.VoteResponse{Message: "Vote recorded"})
	case vote.NotFound:
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
	case vote.Closed:
		middleware.ErrorResponse(w, http.StatusForbidden, "Poll is closed")
	case vote.AlreadyVoted:
		middleware.ErrorResponse(w, http.StatusConflict, "You have already voted on this poll")
	case vote.InvalidOptions:
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid option selection")
	case vote.VerificationFailed:
		middleware.ErrorResponse(w, http.StatusBadRequest, "Human verification failed")
	case vote.VerificationUnavailable:
		middleware.ErrorResponse(w, http.StatusServiceUnavailable, "Human verification is temporarily unavailable")
	default:
		middleware.InternalError(w, r, err, "Failed to record vote")
	}
}
