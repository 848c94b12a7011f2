package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

const (
	userByEmailKey    = "chirp:user:email:%s"
	userByUsernameKey = "chirp:user:name:%s"
	postsKey          = "chirp:posts"
)

// Redis is a Store backed by a Redis server. Users are stored as JSON
// values keyed by email and username; the feed is a list with the newest
// post at the head, trimmed to domain.MaxFeedSize.
type Redis struct {
	client *redis.Client
}

// NewRedis creates a Redis-backed store and verifies connectivity
func NewRedis(ctx context.Context, addr, password string, db int) (*Redis, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("store: redis ping: %w", err)
	}
	return &Redis{client: client}, nil
}

// Close releases the underlying connection pool
func (r *Redis) Close() error {
	return r.client.Close()
}

// redisUser mirrors domain.User with the password hash included; the
// domain type keeps the hash out of JSON, but the store must round-trip it
type redisUser struct {
	ID           uuid.UUID `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"passwordHash"`
	CreatedAt    time.Time `json:"createdAt"`
}

func toRedisUser(user *domain.User) redisUser {
	return redisUser{
		ID:           user.ID,
		Username:     user.Username,
		Email:        user.Email,
		PasswordHash: user.PasswordHash,
		CreatedAt:    user.CreatedAt,
	}
}

func (u redisUser) toDomain() *domain.User {
	return &domain.User{
		ID:           u.ID,
		Username:     u.Username,
		Email:        u.Email,
		PasswordHash: u.PasswordHash,
		CreatedAt:    u.CreatedAt,
	}
}

// CreateUser inserts a user; email and username must both be unused
func (r *Redis) CreateUser(ctx context.Context, user *domain.User) error {
	data, err := json.Marshal(toRedisUser(user))
	if err != nil {
		return fmt.Errorf("store: marshal user: %w", err)
	}

	emailKey := fmt.Sprintf(userByEmailKey, strings.ToLower(user.Email))
	nameKey := fmt.Sprintf(userByUsernameKey, user.Username)

	ok, err := r.client.SetNX(ctx, emailKey, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: redis setnx: %w", err)
	}
	if !ok {
		return ErrConflict
	}

	ok, err = r.client.SetNX(ctx, nameKey, data, 0).Result()
	if err != nil {
		return fmt.Errorf("store: redis setnx: %w", err)
	}
	if !ok {
		// Username taken; undo the email reservation
		r.client.Del(ctx, emailKey)
		return ErrConflict
	}
	return nil
}

// UserByEmail looks up a user by email, case-insensitive
func (r *Redis) UserByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.getUser(ctx, fmt.Sprintf(userByEmailKey, strings.ToLower(email)))
}

// UserByUsername looks up a user by exact username
func (r *Redis) UserByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.getUser(ctx, fmt.Sprintf(userByUsernameKey, username))
}

func (r *Redis) getUser(ctx context.Context, key string) (*domain.User, error) {
	data, err := r.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("store: redis get: %w", err)
	}

	var user redisUser
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("store: unmarshal user: %w", err)
	}
	return user.toDomain(), nil
}

// CreatePost pushes a post onto the feed and trims to the retention cap
func (r *Redis) CreatePost(ctx context.Context, post domain.Post) error {
	data, err := json.Marshal(post)
	if err != nil {
		return fmt.Errorf("store: marshal post: %w", err)
	}

	pipe := r.client.TxPipeline()
	pipe.LPush(ctx, postsKey, data)
	pipe.LTrim(ctx, postsKey, 0, domain.MaxFeedSize-1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("store: redis lpush: %w", err)
	}
	return nil
}

// RecentPosts returns the retained feed newest-first
func (r *Redis) RecentPosts(ctx context.Context) ([]domain.Post, error) {
	items, err := r.client.LRange(ctx, postsKey, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("store: redis lrange: %w", err)
	}

	posts := make([]domain.Post, 0, len(items))
	for _, item := range items {
		var post domain.Post
		if err := json.Unmarshal([]byte(item), &post); err != nil {
			return nil, fmt.Errorf("store: unmarshal post: %w", err)
		}
		posts = append(posts, post)
	}
	return posts, nil
}
