package storage

import (
	"context"
	"errors"

	"github.com/minifeed/backend/internal/models"
)

// ErrNotFound is returned when the targeted post does not exist.
var ErrNotFound = errors.New("post not found")

// PostPatch holds the fields an update may change. Nil fields are left alone.
type PostPatch struct {
	Content *string
}

// Store is the persistence contract behind the posts service. Every read
// returns hydrated posts (comments included, in insertion order). Every
// mutation is atomic on its own.
type Store interface {
	CreatePost(ctx context.Context, content string) (*models.Post, error)
	ListPosts(ctx context.Context) ([]models.Post, error)
	GetPost(ctx context.Context, id int) (*models.Post, error)
	PostExists(ctx context.Context, id int) (bool, error)
	UpdatePost(ctx context.Context, id int, patch PostPatch) error
	DeletePost(ctx context.Context, id int) error
	AddComment(ctx context.Context, postID int, content string) error
	IncrementLiked(ctx context.Context, id int) error
	IncrementDisliked(ctx context.Context, id int) error
	Close() error
}
