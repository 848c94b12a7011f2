package ws

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// newTestConn creates an authenticated conn without an actual websocket
// connection, suitable for registry and broadcast tests
func newTestConn(hub *Hub, username string) *Conn {
	c := newConn(hub, nil)
	c.identity = &domain.Identity{UserID: "id-" + username, Username: username}
	return c
}

// recvEnvelope reads one queued message from a conn, or fails the test
func recvEnvelope(t *testing.T, c *Conn) domain.Envelope {
	t.Helper()
	select {
	case raw := <-c.send:
		env, err := domain.ParseEnvelope(raw)
		if err != nil {
			t.Fatalf("Queued message is not a valid envelope: %v", err)
		}
		return env
	case <-time.After(time.Second):
		t.Fatal("Timed out waiting for a queued message")
		return domain.Envelope{}
	}
}

func TestNewHub_Defaults(t *testing.T) {
	hub := NewHub(nil, Options{})

	if hub.conns == nil {
		t.Error("Registry map not initialized")
	}
	if hub.heartbeatInterval != domain.HeartbeatInterval {
		t.Errorf("Expected default heartbeat interval, got %v", hub.heartbeatInterval)
	}
	if hub.handshakeTimeout != domain.HandshakeTimeout {
		t.Errorf("Expected default handshake timeout, got %v", hub.handshakeTimeout)
	}
}

func TestHub_RegisterUnregister(t *testing.T) {
	hub := NewHub(nil, Options{})
	c := newTestConn(hub, "alice")

	hub.register(c)
	if hub.ConnectedCount() != 1 {
		t.Errorf("Expected 1 connection, got %d", hub.ConnectedCount())
	}

	hub.unregister(c)
	if hub.ConnectedCount() != 0 {
		t.Errorf("Expected 0 connections, got %d", hub.ConnectedCount())
	}

	// Removing a non-member is a no-op
	hub.unregister(c)
	if hub.ConnectedCount() != 0 {
		t.Errorf("Expected idempotent remove, got %d", hub.ConnectedCount())
	}
}

func TestHub_BroadcastPost_AllMembers(t *testing.T) {
	hub := NewHub(nil, Options{})

	alice := newTestConn(hub, "alice")
	bob := newTestConn(hub, "bob")
	hub.register(alice)
	hub.register(bob)

	post := domain.NewPost("u1", "alice", "hi")
	hub.BroadcastPost(post)

	for _, c := range []*Conn{alice, bob} {
		env := recvEnvelope(t, c)
		if env.Type != domain.KindNewTweet {
			t.Errorf("Expected new_tweet, got %q", env.Type)
		}
		if env.Data == nil || env.Data.ID != post.ID {
			t.Errorf("Expected post %s in payload, got %+v", post.ID, env.Data)
		}
	}

	// Exactly one envelope each
	if len(alice.send) != 0 || len(bob.send) != 0 {
		t.Error("Expected exactly one envelope per member")
	}
}

func TestHub_BroadcastPost_SkipsNonMembers(t *testing.T) {
	hub := NewHub(nil, Options{})

	member := newTestConn(hub, "alice")
	hub.register(member)

	// Never authenticated, never registered
	stranger := newConn(hub, nil)

	hub.BroadcastPost(domain.NewPost("u1", "alice", "hi"))

	recvEnvelope(t, member)
	if len(stranger.send) != 0 {
		t.Error("Unregistered connection must never receive a broadcast")
	}
}

func TestHub_BroadcastPost_PartialFailureIsolation(t *testing.T) {
	hub := NewHub(nil, Options{})

	healthy := newTestConn(hub, "alice")
	broken := newTestConn(hub, "bob")
	broken.terminate() // transport already gone

	hub.register(healthy)
	hub.register(broken)

	post := domain.NewPost("u1", "alice", "still delivered")
	hub.BroadcastPost(post)

	// The healthy member still got the envelope
	env := recvEnvelope(t, healthy)
	if env.Type != domain.KindNewTweet {
		t.Errorf("Expected new_tweet, got %q", env.Type)
	}

	// The broken member was pruned without aborting the fan-out
	if hub.ConnectedCount() != 1 {
		t.Errorf("Expected broken connection removed, count %d", hub.ConnectedCount())
	}
}

func TestHub_BroadcastPost_SlowConsumerDropped(t *testing.T) {
	hub := NewHub(nil, Options{})

	slow := newTestConn(hub, "bob")
	hub.register(slow)

	// Fill the send buffer so the next delivery cannot complete
	junk, _ := json.Marshal(domain.PongEnvelope())
	for i := 0; i < cap(slow.send); i++ {
		slow.send <- junk
	}

	hub.BroadcastPost(domain.NewPost("u1", "alice", "hi"))

	if hub.ConnectedCount() != 0 {
		t.Errorf("Expected slow consumer removed, count %d", hub.ConnectedCount())
	}
}

func TestHub_HeartbeatPrunesDeadConnections(t *testing.T) {
	hub := NewHub(nil, Options{HeartbeatInterval: 20 * time.Millisecond})
	go hub.Run()
	defer hub.Close()

	responsive := newTestConn(hub, "alice")
	dead := newTestConn(hub, "bob")
	hub.register(responsive)
	hub.register(dead)

	// Simulate a client that keeps answering probes
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(5 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				responsive.alive.Store(true)
			}
		}
	}()

	// The dead conn survives at most one full interval: first sweep marks
	// it, second sweep removes it
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if hub.ConnectedCount() == 1 {
			break
		}
		time.Sleep(5 * time.Millisecond)
	}

	if hub.ConnectedCount() != 1 {
		t.Fatalf("Expected dead connection pruned, count %d", hub.ConnectedCount())
	}
	hub.mu.RLock()
	_, ok := hub.conns[responsive]
	hub.mu.RUnlock()
	if !ok {
		t.Error("Responsive connection should survive the sweep")
	}
}

func TestHub_ConnectedCount(t *testing.T) {
	hub := NewHub(nil, Options{})

	if hub.ConnectedCount() != 0 {
		t.Errorf("Expected 0, got %d", hub.ConnectedCount())
	}

	conns := []*Conn{
		newTestConn(hub, "a"),
		newTestConn(hub, "b"),
		newTestConn(hub, "c"),
	}
	for _, c := range conns {
		hub.register(c)
	}

	if hub.ConnectedCount() != 3 {
		t.Errorf("Expected 3, got %d", hub.ConnectedCount())
	}
}
