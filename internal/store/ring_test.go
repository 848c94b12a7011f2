package store

import (
	"testing"

	"github.com/mmuslimabdulj/chirp/internal/domain"
)

func TestPostRing_New(t *testing.T) {
	r := newPostRing(10)

	if r.len() != 0 {
		t.Errorf("Expected empty ring, got %d elements", r.len())
	}
	if r.cap != 10 {
		t.Errorf("Expected capacity 10, got %d", r.cap)
	}
}

func TestPostRing_AddAndNewestFirst(t *testing.T) {
	r := newPostRing(5)

	r.add(domain.Post{ID: "1"})
	r.add(domain.Post{ID: "2"})
	r.add(domain.Post{ID: "3"})

	if r.len() != 3 {
		t.Fatalf("Expected 3 elements, got %d", r.len())
	}

	all := r.newestFirst()
	if len(all) != 3 {
		t.Fatalf("Expected 3 posts, got %d", len(all))
	}

	// Newest first
	if all[0].ID != "3" {
		t.Errorf("Expected post 3 first, got %s", all[0].ID)
	}
	if all[2].ID != "1" {
		t.Errorf("Expected post 1 last, got %s", all[2].ID)
	}
}

func TestPostRing_Overflow(t *testing.T) {
	r := newPostRing(3)

	// Add 5 posts to a capacity-3 ring
	for _, id := range []string{"1", "2", "3", "4", "5"} {
		r.add(domain.Post{ID: id})
	}

	if r.len() != 3 {
		t.Fatalf("Expected 3 elements (capped), got %d", r.len())
	}

	all := r.newestFirst()
	if all[0].ID != "5" {
		t.Errorf("Expected post 5 first, got %s", all[0].ID)
	}
	if all[2].ID != "3" {
		t.Errorf("Expected post 3 last (1 and 2 evicted), got %s", all[2].ID)
	}
}
