// Package feed holds the client-side state of the feed page: the post list,
// the in-flight flags that stop duplicate submissions and the per-post
// comment panels. Mutations replace a post wholesale with what the server
// returned; nothing is merged or applied optimistically.
package feed

import (
	"context"
	"errors"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/minifeed/backend/internal/models"
)

// ErrBusy is returned when the same kind of request is already in flight.
var ErrBusy = errors.New("feed: request already in flight")

// API is the subset of the relay the page talks to.
type API interface {
	ListPosts(ctx context.Context) ([]models.Post, error)
	CreatePost(ctx context.Context, content string) (*models.Post, error)
	Like(ctx context.Context, id int) (*models.Post, error)
	Dislike(ctx context.Context, id int) (*models.Post, error)
	Comment(ctx context.Context, id int, text string) (*models.Post, error)
}

type Feed struct {
	api API
	log *logrus.Logger

	mu           sync.Mutex
	posts        []models.Post
	loading      bool
	submitting   bool
	commenting   map[int]bool
	showComments map[int]bool
}

func New(api API, log *logrus.Logger) *Feed {
	return &Feed{
		api:          api,
		log:          log,
		posts:        []models.Post{},
		loading:      true,
		commenting:   make(map[int]bool),
		showComments: make(map[int]bool),
	}
}

// Refresh replaces the whole list with the server's. On failure the list is
// left as it was.
func (f *Feed) Refresh(ctx context.Context) error {
	posts, err := f.api.ListPosts(ctx)

	f.mu.Lock()
	defer f.mu.Unlock()
	f.loading = false
	if err != nil {
		f.log.WithError(err).Error("Error fetching posts")
		return err
	}
	if posts == nil {
		posts = []models.Post{}
	}
	f.posts = posts
	return nil
}

// Submit creates a post from trimmed content and reloads the list. Blank
// content is ignored.
func (f *Feed) Submit(ctx context.Context, content string) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil
	}

	f.mu.Lock()
	if f.submitting {
		f.mu.Unlock()
		return ErrBusy
	}
	f.submitting = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		f.submitting = false
		f.mu.Unlock()
	}()

	if _, err := f.api.CreatePost(ctx, content); err != nil {
		f.log.WithError(err).Error("Error creating post")
		return err
	}
	return f.Refresh(ctx)
}

func (f *Feed) Like(ctx context.Context, id int) error {
	post, err := f.api.Like(ctx, id)
	if err != nil {
		f.log.WithError(err).WithField("post_id", id).Error("Error liking post")
		return err
	}
	f.replace(post)
	return nil
}

func (f *Feed) Dislike(ctx context.Context, id int) error {
	post, err := f.api.Dislike(ctx, id)
	if err != nil {
		f.log.WithError(err).WithField("post_id", id).Error("Error disliking post")
		return err
	}
	f.replace(post)
	return nil
}

// Comment adds trimmed text to post id. Blank text is ignored and only one
// comment per post may be in flight.
func (f *Feed) Comment(ctx context.Context, id int, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	f.mu.Lock()
	if f.commenting[id] {
		f.mu.Unlock()
		return ErrBusy
	}
	f.commenting[id] = true
	f.mu.Unlock()

	defer func() {
		f.mu.Lock()
		delete(f.commenting, id)
		f.mu.Unlock()
	}()

	post, err := f.api.Comment(ctx, id, text)
	if err != nil {
		f.log.WithError(err).WithField("post_id", id).Error("Error adding comment")
		return err
	}
	f.replace(post)
	return nil
}

// ToggleComments flips the comment panel of post id and returns the new state.
func (f *Feed) ToggleComments(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	visible := !f.showComments[id]
	if visible {
		f.showComments[id] = true
	} else {
		delete(f.showComments, id)
	}
	return visible
}

func (f *Feed) CommentsVisible(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.showComments[id]
}

func (f *Feed) Loading() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loading
}

func (f *Feed) Submitting() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.submitting
}

func (f *Feed) Commenting(id int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.commenting[id]
}

// Posts returns a copy of the current list.
func (f *Feed) Posts() []models.Post {
	f.mu.Lock()
	defer f.mu.Unlock()

	out := make([]models.Post, len(f.posts))
	for i, p := range f.posts {
		comments := make([]models.Comment, len(p.Comments))
		copy(comments, p.Comments)
		p.Comments = comments
		out[i] = p
	}
	return out
}

// WordCount is the word count shown under the post composer.
func WordCount(content string) int {
	return len(strings.Fields(content))
}

// replace swaps in post by id. Ids not in the list are ignored.
func (f *Feed) replace(post *models.Post) {
	if post == nil {
		return
	}
	f.mu.Lock()
	defer f.mu.Unlock()

	for i := range f.posts {
		if f.posts[i].ID == post.ID {
			f.posts[i] = *post
			return
		}
	}
}
