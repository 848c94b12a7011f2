// Package ws implements the live fan-out core of the feed: a registry of
// authenticated websocket connections, a heartbeat sweep that prunes
// half-open ones, and best-effort broadcast of newly created posts.
package ws

import (
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// TokenVerifier authenticates the opaque bearer token presented during
// the handshake
type TokenVerifier interface {
	Verify(token string) (*domain.Identity, error)
}

// Options tune hub behaviour; zero values fall back to the defaults in
// the domain package
type Options struct {
	HeartbeatInterval time.Duration
	HandshakeTimeout  time.Duration
	MaxMessageSize    int64
	Logger            *slog.Logger
}

// Hub maintains the set of authenticated live connections and fans out
// posts to them. Unauthenticated connections are never members.
type Hub struct {
	mu    sync.RWMutex
	conns map[*Conn]struct{}

	verifier TokenVerifier
	log      *slog.Logger

	heartbeatInterval time.Duration
	handshakeTimeout  time.Duration
	maxMessageSize    int64

	done      chan struct{}
	closeOnce sync.Once
}

// NewHub creates a Hub using the given verifier for handshakes
func NewHub(verifier TokenVerifier, opts Options) *Hub {
	if opts.HeartbeatInterval <= 0 {
		opts.HeartbeatInterval = domain.HeartbeatInterval
	}
	if opts.HandshakeTimeout <= 0 {
		opts.HandshakeTimeout = domain.HandshakeTimeout
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = domain.MaxMessageSize
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	return &Hub{
		conns:             make(map[*Conn]struct{}),
		verifier:          verifier,
		log:               opts.Logger,
		heartbeatInterval: opts.HeartbeatInterval,
		handshakeTimeout:  opts.HandshakeTimeout,
		maxMessageSize:    opts.MaxMessageSize,
		done:              make(chan struct{}),
	}
}

// ServeConn takes ownership of an upgraded websocket connection and runs
// its pumps until it closes
func (h *Hub) ServeConn(wsConn *websocket.Conn) {
	c := newConn(h, wsConn)
	go c.writePump()
	go c.readPump()
}

// Run drives the heartbeat sweep until Close is called
func (h *Hub) Run() {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case <-h.done:
			return
		case <-ticker.C:
			h.sweep()
		}
	}
}

// Close stops the heartbeat and drops every connection. Clients observe
// a going-away close and reconnect once the server is back.
func (h *Hub) Close() {
	h.closeOnce.Do(func() {
		close(h.done)
	})

	for _, c := range h.snapshot() {
		h.unregister(c)
		c.terminate()
	}
}

// register inserts an authenticated connection into the registry.
// Only called after a successful handshake.
func (h *Hub) register(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.conns[c] = struct{}{}
}

// unregister removes a connection. Idempotent; removing a non-member is
// a no-op, so it is safe to race with heartbeat pruning and broadcast
// failure handling.
func (h *Hub) unregister(c *Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	delete(h.conns, c)
}

// ConnectedCount returns the number of authenticated live connections
func (h *Hub) ConnectedCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// snapshot returns a stable copy of the registry so iteration tolerates
// concurrent removals
func (h *Hub) snapshot() []*Conn {
	h.mu.RLock()
	defer h.mu.RUnlock()

	conns := make([]*Conn, 0, len(h.conns))
	for c := range h.conns {
		conns = append(conns, c)
	}
	return conns
}

// BroadcastPost delivers a newly created post to every registered
// connection. Delivery is best-effort and at-most-once: a connection
// that cannot take the message is dropped, and one bad connection never
// blocks fan-out to the rest.
func (h *Hub) BroadcastPost(post domain.Post) {
	payload := domain.NewTweetEnvelope(post).Encode()

	delivered := 0
	for _, c := range h.snapshot() {
		if err := c.trySend(payload); err != nil {
			h.log.Warn("dropping connection on failed delivery",
				"user", c.Identity().Username, "err", err)
			h.unregister(c)
			c.terminate()
			continue
		}
		delivered++
	}

	h.log.Debug("broadcast post", "post", post.ID, "delivered", delivered)
}

// sweep prunes connections that did not respond since the previous tick
// and probes the rest. A silently dead connection survives at most one
// full interval before removal.
func (h *Hub) sweep() {
	for _, c := range h.snapshot() {
		if !c.alive.Swap(false) {
			h.log.Info("terminating dead connection", "user", c.Identity().Username)
			h.unregister(c)
			c.terminate()
			continue
		}
		c.ping()
	}
}
