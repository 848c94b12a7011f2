package ws

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// Time allowed to write a message to the peer
const writeWait = 10 * time.Second

var (
	errConnClosed   = errors.New("connection closed")
	errSlowConsumer = errors.New("send buffer full")
)

// Conn represents a single websocket connection. It is created
// unauthenticated on accept; the identity is attached exactly once by a
// successful handshake, before the conn enters the hub registry.
type Conn struct {
	hub  *Hub
	ws   *websocket.Conn
	send chan []byte

	// identity is set by the read pump before registration and never
	// mutated afterwards; the hub mutex publishes it to other goroutines.
	identity *domain.Identity

	alive atomic.Bool

	done      chan struct{}
	closeOnce sync.Once
	closeCode int
}

func newConn(hub *Hub, wsConn *websocket.Conn) *Conn {
	c := &Conn{
		hub:  hub,
		ws:   wsConn,
		send: make(chan []byte, 256),
		done: make(chan struct{}),
	}
	c.alive.Store(true)
	return c
}

// Identity returns the authenticated identity, or the zero value for a
// connection that has not completed the handshake
func (c *Conn) Identity() domain.Identity {
	if c.identity == nil {
		return domain.Identity{}
	}
	return *c.identity
}

// trySend queues a message for the write pump without blocking. A send
// that cannot complete is a delivery failure, never a wait.
func (c *Conn) trySend(msg []byte) error {
	select {
	case <-c.done:
		return errConnClosed
	default:
	}

	select {
	case c.send <- msg:
		return nil
	default:
		return errSlowConsumer
	}
}

// shutdown initiates a close with the given close code. Idempotent; the
// first caller's code wins.
func (c *Conn) shutdown(code int) {
	c.closeOnce.Do(func() {
		c.closeCode = code
		close(c.done)
	})
}

// terminate forcibly closes the underlying transport, used by heartbeat
// pruning and failed broadcast deliveries
func (c *Conn) terminate() {
	c.shutdown(websocket.CloseGoingAway)
	if c.ws != nil {
		c.ws.Close()
	}
}

// ping sends a transport-level liveness probe
func (c *Conn) ping() {
	if c.ws == nil {
		return
	}
	c.ws.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait))
}

// readPump pumps messages from the websocket connection. The first
// meaningful message must be an auth envelope; everything else before
// authentication is a protocol error and ends the connection.
func (c *Conn) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.shutdown(websocket.CloseGoingAway)
	}()

	c.ws.SetReadLimit(c.hub.maxMessageSize)
	// Unauthenticated connections may not linger; the deadline is lifted
	// once the handshake completes and the heartbeat takes over.
	c.ws.SetReadDeadline(time.Now().Add(c.hub.handshakeTimeout))
	c.ws.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		_, raw, err := c.ws.ReadMessage()
		if err != nil {
			return
		}

		env, err := domain.ParseEnvelope(raw)
		if err != nil {
			c.trySend(domain.ErrorEnvelope("invalid message format").Encode())
			if c.identity == nil {
				c.shutdown(websocket.ClosePolicyViolation)
				return
			}
			continue
		}

		if c.identity == nil {
			if !c.handshake(env) {
				return
			}
			continue
		}

		switch env.Type {
		case domain.KindPing:
			c.alive.Store(true)
			c.trySend(domain.PongEnvelope().Encode())
		default:
			c.trySend(domain.ErrorEnvelope("unexpected message kind").Encode())
		}
	}
}

// handshake processes the first envelope of a connection. It returns
// false when the connection must be dropped; there is no retry — a
// rejected client reconnects and authenticates again.
func (c *Conn) handshake(env domain.Envelope) bool {
	if env.Type != domain.KindAuth {
		c.trySend(domain.ErrorEnvelope("authentication required").Encode())
		c.shutdown(websocket.ClosePolicyViolation)
		return false
	}

	identity, err := c.hub.verifier.Verify(env.Token)
	if err != nil {
		c.hub.log.Info("websocket auth rejected", "err", err)
		c.trySend(domain.AuthErrorEnvelope("Invalid token").Encode())
		c.shutdown(websocket.ClosePolicyViolation)
		return false
	}

	c.identity = identity
	c.ws.SetReadDeadline(time.Time{})
	c.hub.register(c)
	c.trySend(domain.AuthSuccessEnvelope(*identity).Encode())
	c.hub.log.Info("websocket authenticated", "user", identity.Username)
	return true
}

// writePump pumps queued messages to the websocket connection. On
// shutdown it drains the queue, writes a close frame with the recorded
// code and closes the transport.
func (c *Conn) writePump() {
	defer c.ws.Close()

	for {
		select {
		case msg := <-c.send:
			c.ws.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}

		case <-c.done:
			// Flush anything queued before the close so the peer sees
			// auth_error and friends ahead of the close frame
			for {
				select {
				case msg := <-c.send:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					if err := c.ws.WriteMessage(websocket.TextMessage, msg); err != nil {
						return
					}
				default:
					c.ws.SetWriteDeadline(time.Now().Add(writeWait))
					c.ws.WriteMessage(websocket.CloseMessage,
						websocket.FormatCloseMessage(c.closeCode, ""))
					return
				}
			}
		}
	}
}
