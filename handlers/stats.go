// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"net/http"

	"github.com/danielhkuo/quick-poll/middleware"
	"github.com/danielhkuo/quick-poll/models"
	"github.com/danielhkuo/quick-poll/store"
)

type StatsHandler struct {
	store store.PollStore
}

func NewStatsHandler(s store.PollStore) *StatsHandler {
	return &StatsHandler{store: s}
}

// GetStats handles GET /api/stats
func (h *StatsHandler) GetStats(w http.ResponseWriter, r *http.Request) {
	stats, err := h.store.Stats(r.Context())
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load stats")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, models.StatsResponse{
		TotalPollsCreated: stats[store.StatPollsCreated],
		TotalVotesCast:    stats[store.StatVotesCast],
	})
}
