// Package posts holds the feed's business rules: post lifecycle, comments
// and like/dislike counters on top of a storage.Store.
package posts

import (
	"context"
	"errors"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/minifeed/backend/internal/metrics"
	"github.com/minifeed/backend/internal/models"
	"github.com/minifeed/backend/internal/storage"
)

type operation struct {
	name    string
	failure string
}

var (
	opCreate  = operation{"create", "Failed to create post"}
	opList    = operation{"list", "Failed to fetch posts"}
	opGet     = operation{"get", "Failed to fetch post"}
	opUpdate  = operation{"update", "Failed to update post"}
	opDelete  = operation{"delete", "Failed to delete post"}
	opComment = operation{"comment", "Failed to add comment"}
	opLike    = operation{"like", "Failed to like post"}
	opDislike = operation{"dislike", "Failed to dislike post"}
)

// Service is safe for concurrent use; it keeps no state besides the store.
// Every mutation returns the full hydrated post, never a delta.
type Service struct {
	store storage.Store
	log   *logrus.Logger
}

func NewService(store storage.Store, log *logrus.Logger) *Service {
	return &Service{store: store, log: log}
}

// Create stores a new post. A nil content is stored as empty.
func (s *Service) Create(ctx context.Context, content *string) (post *models.Post, err error) {
	defer s.observe(opCreate, &err)

	var body string
	if content != nil {
		body = *content
	}
	created, err := s.store.CreatePost(ctx, body)
	if err != nil {
		return nil, s.internal(opCreate, 0, err)
	}
	s.log.WithField("post_id", created.ID).Info("Created post")
	return s.hydrate(ctx, opCreate, created.ID)
}

// List returns every post, newest first, with comments.
func (s *Service) List(ctx context.Context) (posts []models.Post, err error) {
	defer s.observe(opList, &err)

	posts, err = s.store.ListPosts(ctx)
	if err != nil {
		return nil, s.internal(opList, 0, err)
	}
	return posts, nil
}

func (s *Service) Get(ctx context.Context, id int) (post *models.Post, err error) {
	defer s.observe(opGet, &err)
	return s.hydrate(ctx, opGet, id)
}

func (s *Service) Update(ctx context.Context, id int, patch storage.PostPatch) (post *models.Post, err error) {
	defer s.observe(opUpdate, &err)

	if err := s.ensureExists(ctx, opUpdate, id); err != nil {
		return nil, err
	}
	if err := s.store.UpdatePost(ctx, id, patch); err != nil {
		return nil, s.storeErr(opUpdate, id, err)
	}
	s.log.WithField("post_id", id).Info("Updated post")
	return s.hydrate(ctx, opUpdate, id)
}

// Delete removes the post and, with it, all of its comments.
func (s *Service) Delete(ctx context.Context, id int) (res *models.DeletePostResponse, err error) {
	defer s.observe(opDelete, &err)

	if err := s.ensureExists(ctx, opDelete, id); err != nil {
		return nil, err
	}
	if err := s.store.DeletePost(ctx, id); err != nil {
		return nil, s.storeErr(opDelete, id, err)
	}
	s.log.WithField("post_id", id).Info("Deleted post")
	return &models.DeletePostResponse{
		Message: fmt.Sprintf("Post with ID %d successfully deleted", id),
	}, nil
}

// AddComment attaches content to the post and returns the parent post.
// Callers validate content; it is stored as given.
func (s *Service) AddComment(ctx context.Context, postID int, content string) (post *models.Post, err error) {
	defer s.observe(opComment, &err)

	if err := s.ensureExists(ctx, opComment, postID); err != nil {
		return nil, err
	}
	if err := s.store.AddComment(ctx, postID, content); err != nil {
		return nil, s.storeErr(opComment, postID, err)
	}
	s.log.WithField("post_id", postID).Info("Added comment to post")
	return s.hydrate(ctx, opComment, postID)
}

func (s *Service) Like(ctx context.Context, id int) (post *models.Post, err error) {
	defer s.observe(opLike, &err)
	return s.increment(ctx, opLike, id, s.store.IncrementLiked)
}

func (s *Service) Dislike(ctx context.Context, id int) (post *models.Post, err error) {
	defer s.observe(opDislike, &err)
	return s.increment(ctx, opDislike, id, s.store.IncrementDisliked)
}

func (s *Service) increment(ctx context.Context, op operation, id int, inc func(context.Context, int) error) (*models.Post, error) {
	if err := s.ensureExists(ctx, op, id); err != nil {
		return nil, err
	}
	if err := inc(ctx, id); err != nil {
		return nil, s.storeErr(op, id, err)
	}
	s.log.WithFields(logrus.Fields{"post_id": id, "op": op.name}).Info("Incremented counter")
	return s.hydrate(ctx, op, id)
}

// ensureExists is the check half of check-then-act. The store reports
// ErrNotFound again if the post disappears before the write lands.
func (s *Service) ensureExists(ctx context.Context, op operation, id int) error {
	ok, err := s.store.PostExists(ctx, id)
	if err != nil {
		return s.internal(op, id, err)
	}
	if !ok {
		return s.notFound(op, id)
	}
	return nil
}

func (s *Service) hydrate(ctx context.Context, op operation, id int) (*models.Post, error) {
	post, err := s.store.GetPost(ctx, id)
	if err != nil {
		return nil, s.storeErr(op, id, err)
	}
	return post, nil
}

func (s *Service) storeErr(op operation, id int, err error) error {
	if errors.Is(err, storage.ErrNotFound) {
		return s.notFound(op, id)
	}
	return s.internal(op, id, err)
}

func (s *Service) notFound(op operation, id int) error {
	err := &NotFoundError{ID: id}
	s.log.WithFields(logrus.Fields{"op": op.name, "post_id": id}).Warn(err.Error())
	return err
}

func (s *Service) internal(op operation, id int, cause error) error {
	entry := s.log.WithField("op", op.name).WithError(cause)
	if id != 0 {
		entry = entry.WithField("post_id", id)
	}
	entry.Error(op.failure)
	return &InternalError{Op: op.name, Message: op.failure, Err: cause}
}

func (s *Service) observe(op operation, err *error) {
	result := metrics.ResultOK
	switch {
	case *err == nil:
	case errors.Is(*err, ErrNotFound):
		result = metrics.ResultNotFound
	default:
		result = metrics.ResultError
	}
	metrics.RecordPostOperation(op.name, result)
}
