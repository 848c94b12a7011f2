package domain

import (
	"time"

	"github.com/google/uuid"
)

// Post is a single feed item. Immutable once created; the live fan-out
// only ever receives it by value.
type Post struct {
	ID        string    `json:"id"`
	Author    string    `json:"author"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"timestamp"`
	UserID    string    `json:"userId"`
}

// NewPost creates a Post owned by the given user
func NewPost(userID, author, content string) Post {
	return Post{
		ID:        uuid.New().String(),
		Author:    author,
		Content:   content,
		CreatedAt: time.Now().UTC(),
		UserID:    userID,
	}
}
