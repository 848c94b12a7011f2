package domain

import (
	"encoding/json"
	"fmt"
)

// EnvelopeKind discriminates the messages exchanged over the live connection
type EnvelopeKind string

const (
	KindAuth        EnvelopeKind = "auth"         // client → server, first message
	KindAuthSuccess EnvelopeKind = "auth_success" // server → client
	KindAuthError   EnvelopeKind = "auth_error"   // server → client, followed by close
	KindPing        EnvelopeKind = "ping"         // client → server liveness
	KindPong        EnvelopeKind = "pong"         // server → client liveness reply
	KindNewTweet    EnvelopeKind = "new_tweet"    // server → client fan-out
	KindError       EnvelopeKind = "error"        // server → client protocol error
)

// knownKinds is the closed set of envelope kinds. Anything else on the wire
// is rejected, never silently ignored.
var knownKinds = map[EnvelopeKind]bool{
	KindAuth:        true,
	KindAuthSuccess: true,
	KindAuthError:   true,
	KindPing:        true,
	KindPong:        true,
	KindNewTweet:    true,
	KindError:       true,
}

// Envelope is a single tagged message on the live connection. Exactly one
// kind per message; the payload fields used depend on the kind.
type Envelope struct {
	Type    EnvelopeKind `json:"type"`
	Token   string       `json:"token,omitempty"`   // auth
	Message string       `json:"message,omitempty"` // auth_error, error
	User    *Identity    `json:"user,omitempty"`    // auth_success
	Data    *Post        `json:"data,omitempty"`    // new_tweet
}

// ParseEnvelope decodes a wire message and rejects unknown kinds
func ParseEnvelope(raw []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return Envelope{}, fmt.Errorf("malformed envelope: %w", err)
	}
	if !knownKinds[env.Type] {
		return Envelope{}, fmt.Errorf("unknown envelope kind %q", env.Type)
	}
	return env, nil
}

// Encode marshals the envelope for the wire
func (e Envelope) Encode() []byte {
	data, _ := json.Marshal(e)
	return data
}

func AuthEnvelope(token string) Envelope {
	return Envelope{Type: KindAuth, Token: token}
}

func AuthSuccessEnvelope(id Identity) Envelope {
	return Envelope{Type: KindAuthSuccess, User: &id}
}

func AuthErrorEnvelope(message string) Envelope {
	return Envelope{Type: KindAuthError, Message: message}
}

func PingEnvelope() Envelope {
	return Envelope{Type: KindPing}
}

func PongEnvelope() Envelope {
	return Envelope{Type: KindPong}
}

func NewTweetEnvelope(post Post) Envelope {
	return Envelope{Type: KindNewTweet, Data: &post}
}

func ErrorEnvelope(message string) Envelope {
	return Envelope{Type: KindError, Message: message}
}
