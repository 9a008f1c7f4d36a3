package feed

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/minifeed/backend/internal/models"
)

// APIError is a non-2xx answer from the relay.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("relay returned %d: %s", e.Status, e.Message)
}

// Client talks to the relay's /api/posts routes.
type Client struct {
	baseURL string
	http    *http.Client
}

var _ API = (*Client)(nil)

func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

func (c *Client) ListPosts(ctx context.Context) ([]models.Post, error) {
	var posts []models.Post
	if err := c.do(ctx, http.MethodGet, "/api/posts", nil, &posts); err != nil {
		return nil, fmt.Errorf("listing posts: %w", err)
	}
	for i := range posts {
		posts[i].NormalizeComments()
	}
	return posts, nil
}

func (c *Client) CreatePost(ctx context.Context, content string) (*models.Post, error) {
	return c.post(ctx, "/api/posts", map[string]string{"content": content}, "creating post")
}

func (c *Client) Like(ctx context.Context, id int) (*models.Post, error) {
	return c.post(ctx, postPath(id, "like"), nil, "liking post")
}

func (c *Client) Dislike(ctx context.Context, id int) (*models.Post, error) {
	return c.post(ctx, postPath(id, "dislike"), nil, "disliking post")
}

func (c *Client) Comment(ctx context.Context, id int, text string) (*models.Post, error) {
	return c.post(ctx, postPath(id, "comments"), map[string]string{"text": text}, "adding comment")
}

func (c *Client) post(ctx context.Context, path string, payload any, what string) (*models.Post, error) {
	var post models.Post
	if err := c.do(ctx, http.MethodPost, path, payload, &post); err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	post.NormalizeComments()
	return &post, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		var apiErr struct {
			Error string `json:"error"`
		}
		_ = json.NewDecoder(resp.Body).Decode(&apiErr)
		if apiErr.Error == "" {
			apiErr.Error = http.StatusText(resp.StatusCode)
		}
		return &APIError{Status: resp.StatusCode, Message: apiErr.Error}
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func postPath(id int, action string) string {
	return "/api/posts/" + strconv.Itoa(id) + "/" + action
}
