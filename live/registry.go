// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"sync"

	"github.com/danielhkuo/quick-poll/models"
)

// Observer receives result pushes for one poll. Implementations must be
// comparable (normally a pointer) and must honor ctx in Push.
type Observer interface {
	Push(ctx context.Context, results models.PollResults) error
	Close() error
}

// Registry maps poll IDs to their observers in subscription order.
// It is safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	observers map[string][]Observer
}

func NewRegistry() *Registry {
	return &Registry{observers: make(map[string][]Observer)}
}

// Subscribe adds o to pollID and reports whether it was added.
// Subscribing the same observer twice is a no-op.
func (r *Registry) Subscribe(pollID string, o Observer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.observers[pollID] {
		if existing == o {
			return false
		}
	}
	r.observers[pollID] = append(r.observers[pollID], o)
	return true
}

// Unsubscribe removes o from pollID and reports whether it was there.
// The entry for pollID disappears with its last observer.
func (r *Registry) Unsubscribe(pollID string, o Observer) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.observers[pollID]
	for i, existing := range list {
		if existing != o {
			continue
		}

		rest := make([]Observer, 0, len(list)-1)
		rest = append(rest, list[:i]...)
		rest = append(rest, list[i+1:]...)
		if len(rest) == 0 {
			delete(r.observers, pollID)
		} else {
			r.observers[pollID] = rest
		}
		return true
	}
	return false
}

// Snapshot returns a copy of pollID's observers. Later changes to the
// registry do not affect the returned slice.
func (r *Registry) Snapshot(pollID string) []Observer {
	r.mu.RLock()
	defer r.mu.RUnlock()

	list := r.observers[pollID]
	if len(list) == 0 {
		return nil
	}
	return append([]Observer(nil), list...)
}

// Drop removes every observer of pollID and returns them
func (r *Registry) Drop(pollID string) []Observer {
	r.mu.Lock()
	defer r.mu.Unlock()

	list := r.observers[pollID]
	delete(r.observers, pollID)
	return list
}

// Len returns the number of observers of pollID
func (r *Registry) Len(pollID string) int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers[pollID])
}

// Polls returns the number of polls with at least one observer
func (r *Registry) Polls() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.observers)
}
