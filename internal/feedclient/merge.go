package feedclient

import "github.com/mmuslimabdulj/chirp/internal/domain"

// Merge reconciles a live-pushed post into a locally held feed. If a post
// with the same id is already present the feed is returned unchanged;
// otherwise a new feed is returned with the post prepended (newest
// first). The input slice is never mutated.
//
// Duplicates are expected in normal operation: a post can arrive once on
// the live channel and again through a full refetch after a reconnect.
func Merge(feed []domain.Post, incoming domain.Post) []domain.Post {
	for _, post := range feed {
		if post.ID == incoming.ID {
			return feed
		}
	}

	merged := make([]domain.Post, 0, len(feed)+1)
	merged = append(merged, incoming)
	merged = append(merged, feed...)
	return merged
}
