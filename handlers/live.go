// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"context"
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/auth"
	"github.com/danielhkuo/quick-poll/live"
	"github.com/danielhkuo/quick-poll/middleware"
	"github.com/danielhkuo/quick-poll/store"
)

type LiveHandler struct {
	store       store.PollStore
	broadcaster *live.Broadcaster
	upgrader    *websocket.Upgrader
}

func NewLiveHandler(s store.PollStore, b *live.Broadcaster, allowedOrigins []string) *LiveHandler {
	return &LiveHandler{
		store:       s,
		broadcaster: b,
		upgrader:    live.NewUpgrader(allowedOrigins),
	}
}

// Subscribe handles GET /api/ws/polls/{id}/results
// Private polls need ?creator_key=. Access is checked before the upgrade.
func (h *LiveHandler) Subscribe(w http.ResponseWriter, r *http.Request) {
	pollID := r.PathValue("id")

	poll, err := h.store.Find(r.Context(), pollID)
	if errors.Is(err, store.ErrNotFound) {
		middleware.ErrorResponse(w, http.StatusNotFound, "Poll not found")
		return
	}
	if err != nil {
		middleware.InternalError(w, r, err, "Failed to load poll")
		return
	}

	if !auth.CanViewResults(poll.PublicResults, r.URL.Query().Get("creator_key"), poll.CreatorKey) {
		middleware.ErrorResponse(w, http.StatusForbidden, "Results are private")
		return
	}

	// Upgrade writes its own error response
	ws, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		slog.Warn("websocket upgrade failed", "poll_id", pollID, "error", err)
		return
	}

	conn := live.NewConn(ws)
	unsubscribe := h.broadcaster.Subscribe(pollID, conn)
	defer unsubscribe()

	slog.Info("live observer connected", "poll_id", pollID, "observer", conn.ID)

	// Read after subscribing so no vote falls between snapshot and stream
	current, err := h.store.Find(r.Context(), pollID)
	if err != nil {
		slog.Warn("failed to load initial results", "poll_id", pollID, "error", err)
		conn.Close()
		return
	}
	if err := conn.Push(context.Background(), current.Results()); err != nil {
		slog.Warn("failed to send initial results", "poll_id", pollID, "error", err)
		conn.Close()
		return
	}

	conn.Run()
	slog.Info("live observer disconnected", "poll_id", pollID, "observer", conn.ID)
}
