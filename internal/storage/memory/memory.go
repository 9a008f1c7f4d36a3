// Package memory is a process-local Store. It keeps the same invariants as
// the relational store: every mutation runs under the write lock, deletes
// cascade to comments, and readers only ever see copies.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/minifeed/backend/internal/models"
	"github.com/minifeed/backend/internal/storage"
)

type MemoryStorage struct {
	mu            sync.RWMutex
	posts         map[int]*models.Post
	nextPostID    int
	nextCommentID int
	now           func() time.Time
}

var _ storage.Store = (*MemoryStorage)(nil)

func New() *MemoryStorage {
	return NewWithClock(func() time.Time { return time.Now().UTC() })
}

// NewWithClock lets tests control timestamps.
func NewWithClock(now func() time.Time) *MemoryStorage {
	return &MemoryStorage{
		posts: make(map[int]*models.Post),
		now:   now,
	}
}

func (s *MemoryStorage) CreatePost(ctx context.Context, content string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.nextPostID++
	ts := s.now()
	post := &models.Post{
		ID:        s.nextPostID,
		Content:   content,
		CreatedAt: ts,
		UpdatedAt: ts,
		Comments:  []models.Comment{},
	}
	s.posts[post.ID] = post
	return clonePost(post), nil
}

func (s *MemoryStorage) ListPosts(ctx context.Context) ([]models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	posts := make([]models.Post, 0, len(s.posts))
	for _, post := range s.posts {
		posts = append(posts, *clonePost(post))
	}
	sort.Slice(posts, func(i, j int) bool {
		if !posts[i].CreatedAt.Equal(posts[j].CreatedAt) {
			return posts[i].CreatedAt.After(posts[j].CreatedAt)
		}
		return posts[i].ID > posts[j].ID
	})
	return posts, nil
}

func (s *MemoryStorage) GetPost(ctx context.Context, id int) (*models.Post, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	post, ok := s.posts[id]
	if !ok {
		return nil, storage.ErrNotFound
	}
	return clonePost(post), nil
}

func (s *MemoryStorage) PostExists(ctx context.Context, id int) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.posts[id]
	return ok, nil
}

func (s *MemoryStorage) UpdatePost(ctx context.Context, id int, patch storage.PostPatch) error {
	return s.mutate(id, func(post *models.Post) {
		if patch.Content != nil {
			post.Content = *patch.Content
		}
	})
}

func (s *MemoryStorage) DeletePost(ctx context.Context, id int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.posts[id]; !ok {
		return storage.ErrNotFound
	}
	// comments live inside the post, so they go with it
	delete(s.posts, id)
	return nil
}

func (s *MemoryStorage) AddComment(ctx context.Context, postID int, content string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[postID]
	if !ok {
		return storage.ErrNotFound
	}
	s.nextCommentID++
	ts := s.now()
	post.Comments = append(post.Comments, models.Comment{
		ID:        s.nextCommentID,
		Content:   content,
		PostID:    postID,
		CreatedAt: ts,
	})
	post.UpdatedAt = ts
	return nil
}

func (s *MemoryStorage) IncrementLiked(ctx context.Context, id int) error {
	return s.mutate(id, func(post *models.Post) { post.Liked++ })
}

func (s *MemoryStorage) IncrementDisliked(ctx context.Context, id int) error {
	return s.mutate(id, func(post *models.Post) { post.Disliked++ })
}

// mutate applies fn to the stored post under the write lock and bumps UpdatedAt.
func (s *MemoryStorage) mutate(id int, fn func(*models.Post)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	post, ok := s.posts[id]
	if !ok {
		return storage.ErrNotFound
	}
	fn(post)
	post.UpdatedAt = s.now()
	return nil
}

// Close drops all data.
func (s *MemoryStorage) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.posts = make(map[int]*models.Post)
	return nil
}

func clonePost(p *models.Post) *models.Post {
	out := *p
	out.Comments = make([]models.Comment, len(p.Comments))
	copy(out.Comments, p.Comments)
	return &out
}
