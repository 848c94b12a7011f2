// Package store defines the persistence boundary of the application.
//
// The feed core never touches storage directly; handlers receive these
// interfaces at process start and pass created posts on for broadcast.
package store

import (
	"context"
	"errors"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

var (
	// ErrNotFound is returned when a requested record does not exist
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a unique constraint would be violated
	ErrConflict = errors.New("already exists")
)

// UserStore persists registered accounts
type UserStore interface {
	CreateUser(ctx context.Context, user *domain.User) error
	UserByEmail(ctx context.Context, email string) (*domain.User, error)
	UserByUsername(ctx context.Context, username string) (*domain.User, error)
}

// PostStore persists feed posts. Implementations retain at most
// domain.MaxFeedSize posts, oldest evicted first.
type PostStore interface {
	CreatePost(ctx context.Context, post domain.Post) error
	// RecentPosts returns retained posts newest-first.
	RecentPosts(ctx context.Context) ([]domain.Post, error)
}

// Store bundles the two persistence surfaces
type Store interface {
	UserStore
	PostStore
}
