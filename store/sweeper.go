// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package store

import (
	"context"
	"log/slog"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/danielhkuo/quick-poll/metrics"
)

// RunSweeper calls Sweep every interval until ctx is done.
// onRemoved is called with the IDs of every swept poll.
func RunSweeper(ctx context.Context, s PollStore, interval time.Duration, onRemoved func(pollIDs []string)) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	slog.Info("expiry sweeper started", "interval", interval.String(),
		"next", humanize.Time(time.Now().Add(interval)))

	for {
		select {
		case <-ctx.Done():
			slog.Info("expiry sweeper stopped")
			return
		case now := <-ticker.C:
			SweepOnce(ctx, s, now, onRemoved)
		}
	}
}

// SweepOnce runs a single sweep and reports the result
func SweepOnce(ctx context.Context, s PollStore, now time.Time, onRemoved func(pollIDs []string)) {
	removed, err := s.Sweep(ctx, now.UTC())
	if err != nil {
		slog.Error("failed to sweep expired polls", "error", err)
		return
	}
	if len(removed) == 0 {
		return
	}

	metrics.SweptPolls.Add(float64(len(removed)))
	slog.Info("expired polls removed", "count", len(removed))

	if onRemoved != nil {
		onRemoved(removed)
	}
}
