package feedclient

import (
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// Callbacks is the application-facing notification surface. Callbacks
// run on the manager's event loop and must not block.
type Callbacks struct {
	OnConnect    func(domain.Identity)
	OnDisconnect func()
	OnPost       func(domain.Post)
	OnError      func(message string)
}

// Config configures a Manager
type Config struct {
	// URL is the websocket endpoint, e.g. ws://localhost:8080/ws
	URL string

	Dialer    *websocket.Dialer
	Policy    Policy
	Logger    *slog.Logger
	Callbacks Callbacks
}

// event wraps a state machine event with the transport generation it
// belongs to, so messages from an abandoned transport cannot disturb the
// current one. Control events carry generation -1 and always apply.
type event struct {
	gen  int
	ev   Event
	conn *websocket.Conn // set alongside TransportOpened
	stop bool
}

// Manager maintains exactly one logical live connection. All state
// transitions happen on a single event loop; the loop is the only writer
// of the session state and the only sender on the transport.
type Manager struct {
	cfg Config

	events chan event
	done   chan struct{}

	mu    sync.RWMutex
	state State

	// loop-owned, never touched outside run()
	conn       *websocket.Conn
	gen        int
	retryTimer *time.Timer

	closeOnce sync.Once
}

// NewManager creates a Manager and starts its event loop. The manager
// stays Disconnected until a token is supplied via SetToken.
func NewManager(cfg Config) *Manager {
	if cfg.Dialer == nil {
		cfg.Dialer = websocket.DefaultDialer
	}
	if cfg.Policy.RetryDelay <= 0 {
		cfg.Policy.RetryDelay = domain.ReconnectDelay
	}
	if cfg.Policy.MaxAttempts <= 0 {
		cfg.Policy.MaxAttempts = domain.MaxReconnectAttempts
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}

	m := &Manager{
		cfg:    cfg,
		events: make(chan event, 32),
		done:   make(chan struct{}),
	}
	go m.run()
	return m
}

// SetToken supplies the identity token driving the connection. A
// non-empty token connects (or re-authenticates after the next
// reconnect); an empty token is a logout and tears everything down.
func (m *Manager) SetToken(token string) {
	m.post(event{gen: -1, ev: TokenChanged{Token: token}})
}

// Connect explicitly starts a connection attempt, e.g. a manual retry
// after the automatic attempts were exhausted
func (m *Manager) Connect() {
	m.post(event{gen: -1, ev: ConnectRequested{}})
}

// Status returns a snapshot of the session state
func (m *Manager) Status() State {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.state
}

// Close shuts the manager down, closing any open transport with a
// normal closure so the server does not expect a reconnect
func (m *Manager) Close() {
	m.closeOnce.Do(func() {
		select {
		case m.events <- event{stop: true}:
		case <-m.done:
		}
	})
}

func (m *Manager) post(e event) {
	select {
	case m.events <- e:
	case <-m.done:
	}
}

func (m *Manager) run() {
	defer close(m.done)

	for e := range m.events {
		if e.stop {
			m.step(TokenChanged{Token: ""}, nil)
			return
		}
		if e.gen >= 0 && e.gen != m.gen {
			// Stale event from an abandoned transport
			continue
		}
		m.step(e.ev, e.conn)
	}
}

func (m *Manager) step(ev Event, opened *websocket.Conn) {
	if opened != nil {
		m.conn = opened
		go m.readLoop(opened, m.gen)
	}

	next, effects := Step(m.Status(), ev, m.cfg.Policy)

	m.mu.Lock()
	m.state = next
	m.mu.Unlock()

	for _, eff := range effects {
		m.apply(eff)
	}
}

func (m *Manager) apply(eff Effect) {
	switch eff := eff.(type) {

	case Dial:
		m.gen++
		go m.dial(m.gen)

	case SendAuth:
		if m.conn == nil {
			return
		}
		m.conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
		if err := m.conn.WriteJSON(domain.AuthEnvelope(eff.Token)); err != nil {
			m.cfg.Logger.Warn("send auth failed", "err", err)
		}

	case CloseTransport:
		if m.conn == nil {
			return
		}
		m.conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(eff.Code, ""),
			time.Now().Add(time.Second))
		m.conn.Close()
		m.conn = nil
		// Anything still in flight from that transport is stale now
		m.gen++

	case ScheduleRetry:
		if m.retryTimer != nil {
			m.retryTimer.Stop()
		}
		m.retryTimer = time.AfterFunc(eff.Delay, func() {
			m.post(event{gen: -1, ev: RetryElapsed{}})
		})

	case CancelRetry:
		if m.retryTimer != nil {
			m.retryTimer.Stop()
			m.retryTimer = nil
		}

	case NotifyConnected:
		if m.cfg.Callbacks.OnConnect != nil {
			m.cfg.Callbacks.OnConnect(eff.User)
		}

	case NotifyDisconnected:
		if m.conn != nil {
			m.conn.Close()
			m.conn = nil
			m.gen++
		}
		if m.cfg.Callbacks.OnDisconnect != nil {
			m.cfg.Callbacks.OnDisconnect()
		}

	case NotifyError:
		if m.cfg.Callbacks.OnError != nil {
			m.cfg.Callbacks.OnError(eff.Message)
		}

	case DeliverPost:
		if m.cfg.Callbacks.OnPost != nil {
			m.cfg.Callbacks.OnPost(eff.Post)
		}
	}
}

func (m *Manager) dial(gen int) {
	conn, _, err := m.cfg.Dialer.Dial(m.cfg.URL, nil)
	if err != nil {
		m.cfg.Logger.Debug("dial failed", "url", m.cfg.URL, "err", err)
		m.post(event{gen: gen, ev: TransportClosed{Code: websocket.CloseAbnormalClosure}})
		return
	}
	m.post(event{gen: gen, ev: TransportOpened{}, conn: conn})
}

// readLoop turns inbound wire messages into state machine events until
// the transport drops
func (m *Manager) readLoop(conn *websocket.Conn, gen int) {
	for {
		_, raw, err := conn.ReadMessage()
		if err != nil {
			code := websocket.CloseAbnormalClosure
			var closeErr *websocket.CloseError
			if errors.As(err, &closeErr) {
				code = closeErr.Code
			}
			m.post(event{gen: gen, ev: TransportClosed{Code: code}})
			return
		}

		env, err := domain.ParseEnvelope(raw)
		if err != nil {
			m.cfg.Logger.Warn("dropping unreadable message", "err", err)
			continue
		}

		switch env.Type {
		case domain.KindAuthSuccess:
			var id domain.Identity
			if env.User != nil {
				id = *env.User
			}
			m.post(event{gen: gen, ev: AuthAccepted{User: id}})

		case domain.KindAuthError:
			m.post(event{gen: gen, ev: AuthRejected{Message: env.Message}})

		case domain.KindNewTweet:
			if env.Data != nil {
				m.post(event{gen: gen, ev: PostReceived{Post: *env.Data}})
			}

		case domain.KindPong:
			// Liveness reply, nothing to do

		case domain.KindError:
			m.cfg.Logger.Warn("server reported protocol error", "message", env.Message)
		}
	}
}
