package feed

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/minifeed/backend/internal/logging"
	"github.com/minifeed/backend/internal/models"
)

type mockAPI struct {
	mock.Mock
}

func (m *mockAPI) ListPosts(ctx context.Context) ([]models.Post, error) {
	args := m.Called(ctx)
	posts, _ := args.Get(0).([]models.Post)
	return posts, args.Error(1)
}

func (m *mockAPI) CreatePost(ctx context.Context, content string) (*models.Post, error) {
	args := m.Called(ctx, content)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockAPI) Like(ctx context.Context, id int) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockAPI) Dislike(ctx context.Context, id int) (*models.Post, error) {
	args := m.Called(ctx, id)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func (m *mockAPI) Comment(ctx context.Context, id int, text string) (*models.Post, error) {
	args := m.Called(ctx, id, text)
	post, _ := args.Get(0).(*models.Post)
	return post, args.Error(1)
}

func post(id int, content string) models.Post {
	return models.Post{ID: id, Content: content, Comments: []models.Comment{}}
}

func loaded(t *testing.T, api *mockAPI, posts ...models.Post) *Feed {
	t.Helper()
	ctx := context.Background()
	api.On("ListPosts", ctx).Return(posts, nil).Once()
	f := New(api, logging.Discard())
	require.NoError(t, f.Refresh(ctx))
	return f
}

func TestRefresh(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := New(api, logging.Discard())
	assert.True(t, f.Loading())
	assert.Empty(t, f.Posts())

	api.On("ListPosts", ctx).Return([]models.Post{post(2, "b"), post(1, "a")}, nil).Once()
	require.NoError(t, f.Refresh(ctx))
	assert.False(t, f.Loading())
	require.Len(t, f.Posts(), 2)
	assert.Equal(t, 2, f.Posts()[0].ID)

	boom := errors.New("relay down")
	api.On("ListPosts", ctx).Return(nil, boom).Once()
	assert.ErrorIs(t, f.Refresh(ctx), boom)
	assert.Len(t, f.Posts(), 2, "a failed refresh keeps the old list")
	api.AssertExpectations(t)
}

func TestRefreshFailureStillEndsLoading(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	api.On("ListPosts", ctx).Return(nil, errors.New("nope"))

	var buf bytes.Buffer
	f := New(api, logging.NewWithOutput(&buf, "info", "json"))
	require.Error(t, f.Refresh(ctx))
	assert.False(t, f.Loading())
	assert.Contains(t, buf.String(), "Error fetching posts")
}

func TestSubmit(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api)

	created := post(1, "hello")
	api.On("CreatePost", ctx, "hello").Return(&created, nil).Once()
	api.On("ListPosts", ctx).Return([]models.Post{created}, nil).Once()

	require.NoError(t, f.Submit(ctx, "  hello  "))
	assert.Equal(t, []models.Post{created}, f.Posts())
	assert.False(t, f.Submitting())
	api.AssertExpectations(t)
}

func TestSubmitIgnoresBlank(t *testing.T) {
	api := &mockAPI{}
	f := loaded(t, api)

	for _, content := range []string{"", "   ", "\n\t"} {
		assert.NoError(t, f.Submit(context.Background(), content))
	}
	api.AssertNotCalled(t, "CreatePost", mock.Anything, mock.Anything)
}

func TestSubmitFailureSkipsRefresh(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api, post(1, "old"))

	api.On("CreatePost", ctx, "new").Return(nil, errors.New("500")).Once()
	require.Error(t, f.Submit(ctx, "new"))
	assert.False(t, f.Submitting())
	assert.Len(t, f.Posts(), 1)
	api.AssertNumberOfCalls(t, "ListPosts", 1)
}

func TestSubmitWhileBusy(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api)

	release := make(chan struct{})
	created := post(1, "first")
	api.On("CreatePost", ctx, "first").
		Run(func(mock.Arguments) { <-release }).
		Return(&created, nil).Once()
	api.On("ListPosts", ctx).Return([]models.Post{created}, nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.Submit(ctx, "first") }()

	require.Eventually(t, f.Submitting, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.Submit(ctx, "second"), ErrBusy)

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.Submitting())
	api.AssertNotCalled(t, "CreatePost", ctx, "second")
}

func TestLikeReplacesPostWholesale(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	stale := post(1, "a")
	stale.Comments = []models.Comment{{ID: 9, Content: "stale"}}
	f := loaded(t, api, post(2, "b"), stale)

	fresh := post(1, "a")
	fresh.Liked = 3
	api.On("Like", ctx, 1).Return(&fresh, nil).Once()

	require.NoError(t, f.Like(ctx, 1))
	posts := f.Posts()
	assert.Equal(t, 2, posts[0].ID)
	assert.Equal(t, fresh, posts[1])
	assert.Empty(t, posts[1].Comments, "fields are replaced, never merged")
}

func TestDislike(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api, post(1, "a"))

	fresh := post(1, "a")
	fresh.Disliked = 1
	api.On("Dislike", ctx, 1).Return(&fresh, nil).Once()
	require.NoError(t, f.Dislike(ctx, 1))
	assert.Equal(t, 1, f.Posts()[0].Disliked)

	api.On("Dislike", ctx, 1).Return(nil, &APIError{Status: 500, Message: "Failed to dislike the post"}).Once()
	err := f.Dislike(ctx, 1)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, 1, f.Posts()[0].Disliked)
}

func TestUnknownIDIsIgnored(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api, post(1, "a"))

	other := post(42, "elsewhere")
	api.On("Like", ctx, 42).Return(&other, nil).Once()
	require.NoError(t, f.Like(ctx, 42))
	require.Len(t, f.Posts(), 1)
	assert.Equal(t, 1, f.Posts()[0].ID)
}

func TestComment(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api, post(1, "a"))

	fresh := post(1, "a")
	fresh.Comments = []models.Comment{{ID: 1, Content: "nice"}}
	api.On("Comment", ctx, 1, "nice").Return(&fresh, nil).Once()

	require.NoError(t, f.Comment(ctx, 1, "  nice "))
	assert.Equal(t, fresh.Comments, f.Posts()[0].Comments)
	assert.False(t, f.Commenting(1))

	require.NoError(t, f.Comment(ctx, 1, "   "))
	api.AssertNumberOfCalls(t, "Comment", 1)
}

func TestCommentBusyIsPerPost(t *testing.T) {
	ctx := context.Background()
	api := &mockAPI{}
	f := loaded(t, api, post(1, "a"), post(2, "b"))

	release := make(chan struct{})
	first := post(1, "a")
	api.On("Comment", ctx, 1, "slow").
		Run(func(mock.Arguments) { <-release }).
		Return(&first, nil).Once()
	second := post(2, "b")
	api.On("Comment", ctx, 2, "fast").Return(&second, nil).Once()

	done := make(chan error, 1)
	go func() { done <- f.Comment(ctx, 1, "slow") }()

	require.Eventually(t, func() bool { return f.Commenting(1) }, time.Second, time.Millisecond)
	assert.ErrorIs(t, f.Comment(ctx, 1, "again"), ErrBusy)
	assert.NoError(t, f.Comment(ctx, 2, "fast"))

	close(release)
	require.NoError(t, <-done)
	assert.False(t, f.Commenting(1))
	api.AssertExpectations(t)
}

func TestToggleComments(t *testing.T) {
	f := New(&mockAPI{}, logging.Discard())

	assert.False(t, f.CommentsVisible(1))
	assert.True(t, f.ToggleComments(1))
	assert.True(t, f.CommentsVisible(1))
	assert.False(t, f.CommentsVisible(2))
	assert.False(t, f.ToggleComments(1))
	assert.False(t, f.CommentsVisible(1))
}

func TestPostsReturnsCopy(t *testing.T) {
	api := &mockAPI{}
	p := post(1, "a")
	p.Comments = []models.Comment{{ID: 1, Content: "orig"}}
	f := loaded(t, api, p)

	got := f.Posts()
	got[0].Content = "changed"
	got[0].Comments[0].Content = "changed"

	again := f.Posts()
	assert.Equal(t, "a", again[0].Content)
	assert.Equal(t, "orig", again[0].Comments[0].Content)
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 0, WordCount("   "))
	assert.Equal(t, 3, WordCount(" one  two three "))
}
