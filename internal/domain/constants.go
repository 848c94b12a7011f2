package domain

import "time"

// ==== WebSocket Constants ====

// MaxMessageSize is the maximum allowed WebSocket message size in bytes
const MaxMessageSize = 4096

// MaxFeedSize is the maximum number of posts retained for the feed
const MaxFeedSize = 500

// MaxPostLength is the maximum post content length in runes
const MaxPostLength = 280

// ==== Auth Constants ====

// TokenTTL is the default access token time-to-live
const TokenTTL = 7 * 24 * time.Hour

// ==== Timing Constants ====

const (
	// HeartbeatInterval is the period of the server liveness sweep
	HeartbeatInterval = 30 * time.Second

	// HandshakeTimeout is how long an unauthenticated connection may stay open
	HandshakeTimeout = 30 * time.Second

	// ReconnectDelay is the fixed delay between client reconnect attempts
	ReconnectDelay = 3 * time.Second

	// MaxReconnectAttempts bounds automatic client reconnects
	MaxReconnectAttempts = 5
)

// ==== Rate Limit Constants ====

const (
	// DefaultRateLimitAPI is the default rate limit for API endpoints (requests/sec)
	DefaultRateLimitAPI = 10

	// DefaultRateLimitWS is the default rate limit for WebSocket upgrades (req/sec)
	DefaultRateLimitWS = 5
)
