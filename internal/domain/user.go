package domain

import (
	"time"

	"github.com/google/uuid"
)

// User represents a registered account
type User struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// NewUser creates a new User with generated ID
func NewUser(username, email, passwordHash string) *User {
	return &User{
		ID:           uuid.New(),
		Username:     username,
		Email:        email,
		PasswordHash: passwordHash,
		CreatedAt:    time.Now().UTC(),
	}
}

// Identity is the authenticated principal attached to a live connection.
// Immutable once attached to a connection.
type Identity struct {
	UserID   string `json:"userId"`
	Username string `json:"username"`
}

// Identity returns the wire identity for this user
func (u *User) Identity() Identity {
	return Identity{
		UserID:   u.ID.String(),
		Username: u.Username,
	}
}
