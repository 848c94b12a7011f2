package store

import "github.com/mmuslimabdulj/chirp/internal/domain"

// postRing is a fixed-size circular buffer holding the retained feed.
// It provides O(1) append; the oldest post is overwritten when full.
type postRing struct {
	data []domain.Post
	head int // next write position
	size int // current number of elements
	cap  int
}

func newPostRing(capacity int) *postRing {
	return &postRing{
		data: make([]domain.Post, capacity),
		cap:  capacity,
	}
}

// add appends a post, overwriting the oldest if full
func (r *postRing) add(post domain.Post) {
	r.data[r.head] = post
	r.head = (r.head + 1) % r.cap

	if r.size < r.cap {
		r.size++
	}
}

// newestFirst returns the retained posts, most recent first
func (r *postRing) newestFirst() []domain.Post {
	result := make([]domain.Post, 0, r.size)
	for i := 1; i <= r.size; i++ {
		// Walk backwards from the most recent write position
		idx := (r.head - i + r.cap) % r.cap
		result = append(result, r.data[idx])
	}
	return result
}

// len returns the current number of elements
func (r *postRing) len() int {
	return r.size
}
