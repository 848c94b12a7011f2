package store

import (
	"context"
	"strings"
	"sync"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

// Memory is an in-process Store. It is the default backend and the one
// used by tests; all access is serialized by a single mutex.
type Memory struct {
	mu              sync.RWMutex
	usersByEmail    map[string]*domain.User
	usersByUsername map[string]*domain.User
	posts           *postRing
}

// NewMemory creates an empty in-memory store
func NewMemory() *Memory {
	return &Memory{
		usersByEmail:    make(map[string]*domain.User),
		usersByUsername: make(map[string]*domain.User),
		posts:           newPostRing(domain.MaxFeedSize),
	}
}

// CreateUser inserts a user; email and username must both be unused
func (m *Memory) CreateUser(_ context.Context, user *domain.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	email := strings.ToLower(user.Email)
	if _, exists := m.usersByEmail[email]; exists {
		return ErrConflict
	}
	if _, exists := m.usersByUsername[user.Username]; exists {
		return ErrConflict
	}

	m.usersByEmail[email] = user
	m.usersByUsername[user.Username] = user
	return nil
}

// UserByEmail looks up a user by email, case-insensitive
func (m *Memory) UserByEmail(_ context.Context, email string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.usersByEmail[strings.ToLower(email)]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

// UserByUsername looks up a user by exact username
func (m *Memory) UserByUsername(_ context.Context, username string) (*domain.User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, ok := m.usersByUsername[username]
	if !ok {
		return nil, ErrNotFound
	}
	return user, nil
}

// CreatePost appends a post to the retained feed
func (m *Memory) CreatePost(_ context.Context, post domain.Post) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.posts.add(post)
	return nil
}

// RecentPosts returns the retained feed newest-first
func (m *Memory) RecentPosts(_ context.Context) ([]domain.Post, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return m.posts.newestFirst(), nil
}
