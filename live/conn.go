// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package live

import (
	"context"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/pkg/errors"

	"github.com/danielhkuo/quick-poll/models"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period. Must be less than pongWait.
	pingPeriod = (pongWait * 9) / 10

	// Maximum message size allowed from peer, clients only send pongs
	maxMessageSize = 512
)

// NewUpgrader returns an upgrader that accepts browser origins from
// allowedOrigins ("*" allows any). Requests without an Origin header are
// accepted.
func NewUpgrader(allowedOrigins []string) *websocket.Upgrader {
	allowAll := false
	allowed := make(map[string]struct{}, len(allowedOrigins))
	for _, o := range allowedOrigins {
		if o == "*" {
			allowAll = true
		}
		allowed[strings.ToLower(strings.TrimSuffix(o, "/"))] = struct{}{}
	}

	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if origin == "" || allowAll {
				return true
			}
			u, err := url.Parse(origin)
			if err != nil {
				return false
			}
			_, ok := allowed[strings.ToLower(u.Scheme+"://"+u.Host)]
			return ok
		},
	}
}

// Conn is an Observer over a WebSocket connection. Writes are serialized.
// A push carrying a lower voter_count than one already sent is skipped, so
// concurrent broadcasts never move the client backwards.
type Conn struct {
	ID string

	ws *websocket.Conn

	writeMu   sync.Mutex
	sent      bool
	lastCount uint64

	closeOnce sync.Once
	done      chan struct{}
}

var _ Observer = &Conn{}

func NewConn(ws *websocket.Conn) *Conn {
	return &Conn{
		ID:   uuid.NewString(),
		ws:   ws,
		done: make(chan struct{}),
	}
}

// Push writes results as a JSON text frame
func (c *Conn) Push(ctx context.Context, results models.PollResults) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	select {
	case <-c.done:
		return errors.New("connection closed")
	default:
	}

	// Only a strictly lower voter_count is stale; an equal one is still sent
	if c.sent && results.VoterCount < c.lastCount {
		return nil
	}

	deadline := time.Now().Add(writeWait)
	if d, ok := ctx.Deadline(); ok && d.Before(deadline) {
		deadline = d
	}
	if err := c.ws.SetWriteDeadline(deadline); err != nil {
		return errors.Wrap(err, "failed to set write deadline")
	}
	if err := c.ws.WriteJSON(results); err != nil {
		return errors.Wrap(err, "failed to write results")
	}

	c.sent = true
	c.lastCount = results.VoterCount
	return nil
}

// Close sends a close frame and closes the connection. Safe to call more
// than once and concurrently with Run.
func (c *Conn) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, "")
		c.ws.WriteControl(websocket.CloseMessage, msg, time.Now().Add(time.Second))
		err = c.ws.Close()
	})
	return err
}

// Done is closed once Close has been called
func (c *Conn) Done() <-chan struct{} {
	return c.done
}

// Run keeps the connection alive with pings and reads until the peer goes
// away or the connection is closed. It always closes the connection before
// returning.
func (c *Conn) Run() {
	defer c.Close()

	go c.pingLoop()

	c.ws.SetReadLimit(maxMessageSize)
	c.ws.SetReadDeadline(time.Now().Add(pongWait))
	c.ws.SetPongHandler(func(string) error {
		return c.ws.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		// Clients have nothing to say; reading drives control frames
		if _, _, err := c.ws.ReadMessage(); err != nil {
			return
		}
	}
}

func (c *Conn) pingLoop() {
	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-c.done:
			return
		case <-ticker.C:
			if err := c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				c.Close()
				return
			}
		}
	}
}
