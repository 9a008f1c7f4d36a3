// Package relay is the browser-facing proxy in front of the feed API. It
// keeps no state: every request is forwarded to the backend and the answer,
// or a fixed failure message, is sent back.
package relay

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/minifeed/backend/internal/config"
	"github.com/minifeed/backend/internal/metrics"
	"github.com/minifeed/backend/internal/middleware"
)

const (
	msgFetchFailed   = "Failed to fetch posts from backend."
	msgCreateFailed  = "Failed to create post"
	msgLikeFailed    = "Failed to like the post"
	msgDislikeFailed = "Failed to dislike the post"
	msgCommentFailed = "Failed to add comment"
	msgTextRequired  = "Comment text is required"
	msgInternal      = "Internal Server Error"
)

type Relay struct {
	backend string
	client  *http.Client
	log     *logrus.Logger
}

func New(cfg *config.Relay, log *logrus.Logger) *Relay {
	return &Relay{
		backend: cfg.BackendURL,
		client:  &http.Client{Timeout: cfg.Timeout},
		log:     log,
	}
}

// NewServer creates the relay's HTTP server.
func NewServer(cfg *config.Relay, log *logrus.Logger) *http.Server {
	r := New(cfg, log)

	return &http.Server{
		Addr:         cfg.Addr(),
		Handler:      r.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
}

func (r *Relay) RegisterRoutes() *gin.Engine {
	e := gin.New()
	e.Use(gin.Recovery())
	e.Use(middleware.RequestID())
	e.Use(middleware.Logger(r.log))
	e.Use(middleware.Metrics("relay"))

	e.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok", "backend": r.backend})
	})
	e.GET("/metrics", gin.WrapH(metrics.Handler()))

	api := e.Group("/api/posts")
	{
		api.GET("", r.listPosts)
		api.POST("", r.createPost)
		api.POST("/:id/like", r.vote("like", msgLikeFailed))
		api.POST("/:id/dislike", r.vote("dislike", msgDislikeFailed))
		api.POST("/:id/comments", r.addComment)
	}

	return e
}

func (r *Relay) listPosts(c *gin.Context) {
	status, body, err := r.forward(c, http.MethodGet, "/posts", nil)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, msgFetchFailed, err)
		return
	}
	if !success(status) {
		c.JSON(status, gin.H{"error": fmt.Sprintf("Backend error: %d - %s", status, body)})
		return
	}
	if !json.Valid(body) {
		r.fail(c, http.StatusInternalServerError, msgFetchFailed, errMalformed)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, body)
}

func (r *Relay) createPost(c *gin.Context) {
	var payload any
	if err := c.ShouldBindJSON(&payload); err != nil {
		r.fail(c, http.StatusInternalServerError, msgCreateFailed, err)
		return
	}
	encoded, err := json.Marshal(payload)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, msgCreateFailed, err)
		return
	}

	status, body, err := r.forward(c, http.MethodPost, "/posts", encoded)
	if err == nil && !json.Valid(body) {
		err = errMalformed
	}
	if err != nil {
		r.fail(c, http.StatusInternalServerError, msgCreateFailed, err)
		return
	}
	c.Data(status, gin.MIMEJSON, body)
}

// vote relays a like or dislike. Upstream status and body pass through.
func (r *Relay) vote(action, failure string) gin.HandlerFunc {
	return func(c *gin.Context) {
		status, body, err := r.forward(c, http.MethodPost, postPath(c, action), nil)
		if err == nil && !json.Valid(body) {
			err = errMalformed
		}
		if err != nil {
			r.fail(c, http.StatusInternalServerError, failure, err)
			return
		}
		c.Data(status, gin.MIMEJSON, body)
	}
}

type commentInput struct {
	Text any `json:"text"`
}

type upstreamError struct {
	Error string `json:"error"`
}

func (r *Relay) addComment(c *gin.Context) {
	var input commentInput
	if err := c.ShouldBindJSON(&input); err != nil {
		r.fail(c, http.StatusInternalServerError, msgInternal, err)
		return
	}
	text, isString := input.Text.(string)
	text = strings.TrimSpace(text)
	if !isString || text == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": msgTextRequired})
		return
	}

	encoded, err := json.Marshal(map[string]string{"content": text})
	if err != nil {
		r.fail(c, http.StatusInternalServerError, msgInternal, err)
		return
	}

	status, body, err := r.forward(c, http.MethodPost, postPath(c, "comments"), encoded)
	if err != nil {
		r.fail(c, http.StatusInternalServerError, msgInternal, err)
		return
	}
	if !success(status) {
		var upstream upstreamError
		if err := json.Unmarshal(body, &upstream); err != nil {
			r.fail(c, http.StatusInternalServerError, msgInternal, err)
			return
		}
		msg := upstream.Error
		if msg == "" {
			msg = msgCommentFailed
		}
		c.JSON(status, gin.H{"error": msg})
		return
	}
	if !json.Valid(body) {
		r.fail(c, http.StatusInternalServerError, msgInternal, errMalformed)
		return
	}
	c.Data(http.StatusOK, gin.MIMEJSON, body)
}

var errMalformed = errors.New("backend returned malformed JSON")

// forward sends body to the backend path and returns the upstream status and
// raw response body.
func (r *Relay) forward(c *gin.Context, method, path string, body []byte) (int, []byte, error) {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(c.Request.Context(), method, r.backend+path, reader)
	if err != nil {
		return 0, nil, fmt.Errorf("building backend request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if id := middleware.GetRequestID(c); id != "" {
		req.Header.Set(middleware.RequestIDHeader, id)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("calling backend: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("reading backend response: %w", err)
	}
	return resp.StatusCode, data, nil
}

func (r *Relay) fail(c *gin.Context, status int, msg string, err error) {
	_ = c.Error(err)
	r.log.WithFields(logrus.Fields{
		"route":      c.FullPath(),
		"request_id": middleware.GetRequestID(c),
		"error":      err.Error(),
	}).Error(msg)
	c.JSON(status, gin.H{"error": msg})
}

func postPath(c *gin.Context, action string) string {
	return "/posts/" + url.PathEscape(c.Param("id")) + "/" + action
}

func success(status int) bool {
	return status >= 200 && status < 300
}
