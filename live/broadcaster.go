// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/danielhkuo/quick-poll/metrics"
	"github.com/danielhkuo/quick-poll/models"
)

// Broadcaster pushes results to every observer of a poll
type Broadcaster struct {
	registry *Registry
	timeout  time.Duration
}

// NewBroadcaster creates a broadcaster over registry. Each push is bounded
// by timeout.
func NewBroadcaster(registry *Registry, timeout time.Duration) *Broadcaster {
	return &Broadcaster{registry: registry, timeout: timeout}
}

// Subscribe registers o for pollID and returns the function that removes it.
// The returned function is safe to call more than once.
func (b *Broadcaster) Subscribe(pollID string, o Observer) (unsubscribe func()) {
	if b.registry.Subscribe(pollID, o) {
		metrics.LiveObservers.Inc()
	}

	var once sync.Once
	return func() {
		once.Do(func() {
			if b.registry.Unsubscribe(pollID, o) {
				metrics.LiveObservers.Dec()
			}
		})
	}
}

// Broadcast pushes results to a snapshot of pollID's observers concurrently
// and waits for every push to finish or time out. An observer whose push
// fails is removed and closed. Broadcast never returns an error.
func (b *Broadcaster) Broadcast(ctx context.Context, pollID string, results models.PollResults) {
	observers := b.registry.Snapshot(pollID)
	if len(observers) == 0 {
		return
	}

	var wg sync.WaitGroup
	for _, o := range observers {
		wg.Add(1)
		go func(o Observer) {
			defer wg.Done()

			pushCtx, cancel := context.WithTimeout(ctx, b.timeout)
			defer cancel()

			if err := o.Push(pushCtx, results); err != nil {
				metrics.BroadcastPushes.WithLabelValues("failed").Inc()
				slog.Warn("live push failed, closing observer", "poll_id", pollID, "error", err)
				b.remove(pollID, o)
				return
			}
			metrics.BroadcastPushes.WithLabelValues("delivered").Inc()
		}(o)
	}
	wg.Wait()

	slog.Debug("results broadcast", "poll_id", pollID, "observers", len(observers))
}

func (b *Broadcaster) remove(pollID string, o Observer) {
	if b.registry.Unsubscribe(pollID, o) {
		metrics.LiveObservers.Dec()
	}
	if err := o.Close(); err != nil {
		slog.Debug("failed to close observer", "poll_id", pollID, "error", err)
	}
}

// ClosePoll drops and closes every observer of pollID, for deleted or
// expired polls
func (b *Broadcaster) ClosePoll(pollID string) {
	dropped := b.registry.Drop(pollID)
	if len(dropped) == 0 {
		return
	}

	metrics.LiveObservers.Sub(float64(len(dropped)))
	for _, o := range dropped {
		if err := o.Close(); err != nil {
			slog.Debug("failed to close observer", "poll_id", pollID, "error", err)
		}
	}
	slog.Info("live observers closed", "poll_id", pollID, "count", len(dropped))
}

// ClosePolls calls ClosePoll for each ID. It fits store.RunSweeper's callback.
func (b *Broadcaster) ClosePolls(pollIDs []string) {
	for _, id := range pollIDs {
		b.ClosePoll(id)
	}
}
