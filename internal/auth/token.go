// Package auth implements token issuance and verification for the feed.
//
// Access tokens are HS256-signed JWTs carrying the user identity, so the
// WebSocket handshake and the API middleware can authenticate requests
// without a store lookup.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// ErrInvalidToken is returned for expired, malformed or badly signed tokens
var ErrInvalidToken = errors.New("invalid token")

// Claims is the payload embedded inside an access token
type Claims struct {
	jwt.RegisteredClaims

	UserID   string `json:"userId"`
	Username string `json:"username"`
	Email    string `json:"email"`
}

// TokenService issues and verifies JWT access tokens
type TokenService struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenService creates a TokenService signing with the given secret
func NewTokenService(secret string, ttl time.Duration) *TokenService {
	return &TokenService{
		secret: []byte(secret),
		ttl:    ttl,
	}
}

// Generate creates a signed access token for the user
func (s *TokenService) Generate(user *domain.User) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user.ID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(s.ttl)),
		},
		UserID:   user.ID.String(),
		Username: user.Username,
		Email:    user.Email,
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(s.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify checks the signature and validity of a token string and returns
// the identity it carries. Implements the ws.TokenVerifier contract.
func (s *TokenService) Verify(tokenString string) (*domain.Identity, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}

	return &domain.Identity{
		UserID:   claims.UserID,
		Username: claims.Username,
	}, nil
}
