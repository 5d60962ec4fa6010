// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

/*
Package live fans out poll results to connected observers.

# Registry

Registry maps poll IDs to observers, in subscription order, behind one
RWMutex. Snapshot returns a copy, so a broadcast in progress is never
affected by subscribers coming and going.

	registry := live.NewRegistry()

One registry is created per server and shared by the broadcaster and the
live handler.

# Broadcaster

	b := live.NewBroadcaster(registry, cfg.BroadcastTimeout)
	unsubscribe := b.Subscribe(pollID, conn)
	defer unsubscribe()

	b.Broadcast(ctx, pollID, poll.Results())

Broadcast pushes to every observer concurrently and waits for all of them,
each push bounded by the timeout. A failed push is logged and counted, and
the observer is removed and closed. Nothing is queued or retried: a client
that misses an update reconnects and gets the current state.

ClosePoll and ClosePolls close every observer of deleted or expired polls.

# Conn

Conn is the WebSocket Observer (gorilla/websocket). Each push is one JSON
text frame with the PollResults shape. Pushes whose voter_count is lower
than the last one sent are skipped, since concurrent broadcasts can finish
out of order. Run handles ping/pong and returns when the peer disconnects.
*/
package live
