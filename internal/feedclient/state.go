// Package feedclient maintains a single logical live-feed connection over
// an unreliable transport: it authenticates after every (re)connect,
// retries unexpected drops with a fixed delay and bounded attempts, and
// merges pushed posts into a locally held feed without duplicates.
//
// The reconnection policy lives in a pure transition function, Step, so
// it can be exercised without a real transport; Manager supplies the
// transport, the timer and the callback surface around it.
package feedclient

import (
	"time"

	"github.com/gorilla/websocket"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// Status is the tri-state connectivity indicator surfaced to the
// application
type Status int

const (
	StatusDisconnected Status = iota
	StatusConnecting
	StatusConnected
)

func (s Status) String() string {
	switch s {
	case StatusConnecting:
		return "connecting"
	case StatusConnected:
		return "connected"
	default:
		return "disconnected"
	}
}

// State is the complete client session state. It is only ever written by
// the manager loop applying Step.
type State struct {
	Status       Status
	Token        string
	Attempts     int
	RetryPending bool
	LastError    string
}

// Policy bounds automatic reconnection
type Policy struct {
	RetryDelay  time.Duration
	MaxAttempts int
}

// DefaultPolicy is a fixed 3s delay with 5 attempts. The delay is
// deliberately not exponential.
func DefaultPolicy() Policy {
	return Policy{
		RetryDelay:  domain.ReconnectDelay,
		MaxAttempts: domain.MaxReconnectAttempts,
	}
}

// Event is an input to the state machine
type Event interface{ isEvent() }

type (
	// TokenChanged carries the current identity token; empty means logout
	TokenChanged struct{ Token string }

	// ConnectRequested is an explicit connect, e.g. a manual retry after
	// exhaustion
	ConnectRequested struct{}

	// TransportOpened fires when the dial completes
	TransportOpened struct{}

	// AuthAccepted is the server's auth_success reply
	AuthAccepted struct{ User domain.Identity }

	// AuthRejected is the server's auth_error reply
	AuthRejected struct{ Message string }

	// PostReceived is a live-pushed feed item
	PostReceived struct{ Post domain.Post }

	// TransportClosed fires when the transport drops, with the close code
	TransportClosed struct{ Code int }

	// RetryElapsed fires when the reconnect delay timer expires
	RetryElapsed struct{}
)

func (TokenChanged) isEvent()     {}
func (ConnectRequested) isEvent() {}
func (TransportOpened) isEvent()  {}
func (AuthAccepted) isEvent()     {}
func (AuthRejected) isEvent()     {}
func (PostReceived) isEvent()     {}
func (TransportClosed) isEvent()  {}
func (RetryElapsed) isEvent()     {}

// Effect is an output of the state machine, executed by the manager
type Effect interface{ isEffect() }

type (
	// Dial opens a new transport
	Dial struct{}

	// SendAuth sends the auth envelope on the open transport
	SendAuth struct{ Token string }

	// CloseTransport closes the transport with the given close code
	CloseTransport struct{ Code int }

	// ScheduleRetry arms the reconnect timer
	ScheduleRetry struct{ Delay time.Duration }

	// CancelRetry disarms a pending reconnect timer
	CancelRetry struct{}

	// NotifyConnected reports a completed handshake to the application
	NotifyConnected struct{ User domain.Identity }

	// NotifyDisconnected reports a lost or closed connection
	NotifyDisconnected struct{}

	// NotifyError surfaces a user-visible error state
	NotifyError struct{ Message string }

	// DeliverPost hands a live post to the application
	DeliverPost struct{ Post domain.Post }
)

func (Dial) isEffect()               {}
func (SendAuth) isEffect()           {}
func (CloseTransport) isEffect()     {}
func (ScheduleRetry) isEffect()      {}
func (CancelRetry) isEffect()        {}
func (NotifyConnected) isEffect()    {}
func (NotifyDisconnected) isEffect() {}
func (NotifyError) isEffect()        {}
func (DeliverPost) isEffect()        {}

// Step applies one event to the session state and returns the new state
// plus the effects to execute. Pure and deterministic.
func Step(s State, ev Event, p Policy) (State, []Effect) {
	switch ev := ev.(type) {

	case TokenChanged:
		if ev.Token == "" {
			// Logout: force-close, cancel any pending retry, full reset
			var effects []Effect
			if s.RetryPending {
				effects = append(effects, CancelRetry{})
			}
			if s.Status != StatusDisconnected {
				effects = append(effects, CloseTransport{Code: websocket.CloseNormalClosure})
			}
			return State{}, effects
		}

		s.Token = ev.Token
		s.Attempts = 0
		s.LastError = ""
		if s.Status == StatusDisconnected && !s.RetryPending {
			s.Status = StatusConnecting
			return s, []Effect{Dial{}}
		}
		return s, nil

	case ConnectRequested:
		if s.Token == "" {
			s.LastError = "no authentication token"
			return s, []Effect{NotifyError{Message: s.LastError}}
		}
		if s.Status != StatusDisconnected || s.RetryPending {
			return s, nil
		}
		s.Status = StatusConnecting
		s.Attempts = 0
		s.LastError = ""
		return s, []Effect{Dial{}}

	case TransportOpened:
		if s.Status != StatusConnecting {
			// Token was cleared while dialing; drop the fresh transport
			return s, []Effect{CloseTransport{Code: websocket.CloseNormalClosure}}
		}
		return s, []Effect{SendAuth{Token: s.Token}}

	case AuthAccepted:
		if s.Status != StatusConnecting {
			return s, nil
		}
		s.Status = StatusConnected
		s.Attempts = 0
		s.LastError = ""
		return s, []Effect{NotifyConnected{User: ev.User}}

	case AuthRejected:
		// The token is presumed invalid: close cleanly and wait for the
		// caller to supply a new one. No automatic retry.
		s.Status = StatusDisconnected
		s.Attempts = 0
		s.LastError = ev.Message
		return s, []Effect{
			CloseTransport{Code: websocket.CloseNormalClosure},
			NotifyError{Message: ev.Message},
		}

	case PostReceived:
		if s.Status != StatusConnected {
			return s, nil
		}
		return s, []Effect{DeliverPost{Post: ev.Post}}

	case TransportClosed:
		if s.Status == StatusDisconnected {
			return s, nil
		}
		s.Status = StatusDisconnected

		effects := []Effect{NotifyDisconnected{}}

		if ev.Code == websocket.CloseNormalClosure {
			// Intentional closure: no retry
			s.Attempts = 0
			return s, effects
		}
		if s.Token == "" {
			return s, effects
		}
		if s.Attempts >= p.MaxAttempts {
			s.LastError = "connection lost"
			return s, append(effects, NotifyError{Message: s.LastError})
		}

		s.Attempts++
		s.RetryPending = true
		return s, append(effects, ScheduleRetry{Delay: p.RetryDelay})

	case RetryElapsed:
		if !s.RetryPending {
			return s, nil
		}
		s.RetryPending = false
		if s.Token == "" || s.Status != StatusDisconnected {
			return s, nil
		}
		s.Status = StatusConnecting
		return s, []Effect{Dial{}}
	}

	return s, nil
}
