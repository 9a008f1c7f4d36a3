// Package storetest holds the behavioral suite every storage.Store
// implementation must pass.
package storetest

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/minifeed/backend/internal/storage"
)

// Factory returns an empty store. The suite closes it.
type Factory func(t *testing.T) storage.Store

// Run exercises the Store contract against stores built by newStore.
func Run(t *testing.T, newStore Factory) {
	t.Run("CreatePost and GetPost", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "hello")
		require.NoError(t, err)
		assert.NotZero(t, created.ID)

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "hello", got.Content)
		assert.Zero(t, got.Liked)
		assert.Zero(t, got.Disliked)
		assert.NotNil(t, got.Comments)
		assert.Empty(t, got.Comments)
		assert.False(t, got.CreatedAt.IsZero())
	})

	t.Run("CreatePost with empty content", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "")
		require.NoError(t, err)

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "", got.Content)
	})

	t.Run("GetPost not found", func(t *testing.T) {
		s := open(t, newStore)

		_, err := s.GetPost(context.Background(), 4242)
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("PostExists", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "x")
		require.NoError(t, err)

		ok, err := s.PostExists(ctx, created.ID)
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.PostExists(ctx, created.ID+100)
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("ListPosts newest first", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		empty, err := s.ListPosts(ctx)
		require.NoError(t, err)
		assert.NotNil(t, empty)
		assert.Empty(t, empty)

		a, err := s.CreatePost(ctx, "A")
		require.NoError(t, err)
		b, err := s.CreatePost(ctx, "B")
		require.NoError(t, err)
		require.NoError(t, s.AddComment(ctx, a.ID, "on A"))

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 2)
		assert.Equal(t, b.ID, posts[0].ID)
		assert.Equal(t, a.ID, posts[1].ID)
		assert.Empty(t, posts[0].Comments)
		require.Len(t, posts[1].Comments, 1)
		assert.Equal(t, "on A", posts[1].Comments[0].Content)
	})

	t.Run("UpdatePost", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "before")
		require.NoError(t, err)
		require.NoError(t, s.IncrementLiked(ctx, created.ID))

		content := "after"
		require.NoError(t, s.UpdatePost(ctx, created.ID, storage.PostPatch{Content: &content}))

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Content)
		assert.Equal(t, 1, got.Liked)
		assert.False(t, got.UpdatedAt.Before(created.UpdatedAt))
		assert.WithinDuration(t, created.CreatedAt, got.CreatedAt, time.Millisecond)

		require.NoError(t, s.UpdatePost(ctx, created.ID, storage.PostPatch{}))
		got, err = s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, "after", got.Content)
	})

	t.Run("UpdatePost not found", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		content := "ghost"
		err := s.UpdatePost(ctx, 999, storage.PostPatch{Content: &content})
		assert.ErrorIs(t, err, storage.ErrNotFound)

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		assert.Empty(t, posts)
	})

	t.Run("AddComment keeps insertion order", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "post")
		require.NoError(t, err)
		require.NoError(t, s.AddComment(ctx, created.ID, "first"))
		require.NoError(t, s.AddComment(ctx, created.ID, "second"))
		require.NoError(t, s.AddComment(ctx, created.ID, "third"))

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		require.Len(t, got.Comments, 3)
		assert.Equal(t, "first", got.Comments[0].Content)
		assert.Equal(t, "second", got.Comments[1].Content)
		assert.Equal(t, "third", got.Comments[2].Content)
		assert.Less(t, got.Comments[0].ID, got.Comments[1].ID)
	})

	t.Run("AddComment to missing post", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		err := s.AddComment(ctx, 321, "orphan")
		assert.ErrorIs(t, err, storage.ErrNotFound)
	})

	t.Run("DeletePost cascades", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		doomed, err := s.CreatePost(ctx, "doomed")
		require.NoError(t, err)
		kept, err := s.CreatePost(ctx, "kept")
		require.NoError(t, err)
		require.NoError(t, s.AddComment(ctx, doomed.ID, "gone"))
		require.NoError(t, s.AddComment(ctx, kept.ID, "stays"))

		require.NoError(t, s.DeletePost(ctx, doomed.ID))

		_, err = s.GetPost(ctx, doomed.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		posts, err := s.ListPosts(ctx)
		require.NoError(t, err)
		require.Len(t, posts, 1)
		assert.Equal(t, kept.ID, posts[0].ID)
		require.Len(t, posts[0].Comments, 1)
		assert.Equal(t, "stays", posts[0].Comments[0].Content)

		assert.ErrorIs(t, s.DeletePost(ctx, doomed.ID), storage.ErrNotFound)
	})

	t.Run("Increment counters", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "count me")
		require.NoError(t, err)

		require.NoError(t, s.IncrementLiked(ctx, created.ID))
		require.NoError(t, s.IncrementLiked(ctx, created.ID))
		require.NoError(t, s.IncrementDisliked(ctx, created.ID))

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, 2, got.Liked)
		assert.Equal(t, 1, got.Disliked)
		assert.Equal(t, "count me", got.Content)

		assert.ErrorIs(t, s.IncrementLiked(ctx, created.ID+50), storage.ErrNotFound)
		assert.ErrorIs(t, s.IncrementDisliked(ctx, created.ID+50), storage.ErrNotFound)
	})

	t.Run("Concurrent likes are not lost", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "popular")
		require.NoError(t, err)

		const n = 25
		var wg sync.WaitGroup
		errs := make(chan error, n)
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				errs <- s.IncrementLiked(ctx, created.ID)
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			require.NoError(t, err)
		}

		got, err := s.GetPost(ctx, created.ID)
		require.NoError(t, err)
		assert.Equal(t, n, got.Liked)
		assert.Zero(t, got.Disliked)
	})

	t.Run("Concurrent delete and comment leave no orphans", func(t *testing.T) {
		s := open(t, newStore)
		ctx := context.Background()

		created, err := s.CreatePost(ctx, "racy")
		require.NoError(t, err)

		var wg sync.WaitGroup
		wg.Add(2)
		go func() {
			defer wg.Done()
			for i := 0; i < 10; i++ {
				err := s.AddComment(ctx, created.ID, "late")
				if err != nil {
					assert.ErrorIs(t, err, storage.ErrNotFound)
				}
			}
		}()
		go func() {
			defer wg.Done()
			assert.NoError(t, s.DeletePost(ctx, created.ID))
		}()
		wg.Wait()

		_, err = s.GetPost(ctx, created.ID)
		assert.ErrorIs(t, err, storage.ErrNotFound)

		// A fresh post must not inherit comments from the deleted one.
		fresh, err := s.CreatePost(ctx, "fresh")
		require.NoError(t, err)
		got, err := s.GetPost(ctx, fresh.ID)
		require.NoError(t, err)
		assert.Empty(t, got.Comments)
	})
}

func open(t *testing.T, newStore Factory) storage.Store {
	t.Helper()
	s := newStore(t)
	t.Cleanup(func() { _ = s.Close() })
	return s
}
