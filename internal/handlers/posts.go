package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/minifeed/backend/internal/models"
	"github.com/minifeed/backend/internal/posts"
	"github.com/minifeed/backend/internal/storage"
)

type PostHandler struct {
	service *posts.Service
}

func NewPostHandler(service *posts.Service) *PostHandler {
	return &PostHandler{service: service}
}

// GetPosts returns every post, newest first
func (h *PostHandler) GetPosts(c *gin.Context) {
	list, err := h.service.List(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, list)
}

// GetPost returns a single post by ID
func (h *PostHandler) GetPost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := h.service.Get(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// CreatePost creates a new post. The body and its content are optional.
func (h *PostHandler) CreatePost(c *gin.Context) {
	var input models.CreatePostRequest
	if !bindOptionalJSON(c, &input) {
		return
	}

	post, err := h.service.Create(c.Request.Context(), input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, post)
}

// UpdatePost applies the given fields to an existing post
func (h *PostHandler) UpdatePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	var input models.UpdatePostRequest
	if !bindOptionalJSON(c, &input) {
		return
	}

	post, err := h.service.Update(c.Request.Context(), id, storage.PostPatch{Content: input.Content})
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}

// DeletePost deletes a post together with its comments
func (h *PostHandler) DeletePost(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	res, err := h.service.Delete(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, res)
}

func (h *PostHandler) LikePost(c *gin.Context) {
	h.interact(c, h.service.Like)
}

func (h *PostHandler) DislikePost(c *gin.Context) {
	h.interact(c, h.service.Dislike)
}

func (h *PostHandler) interact(c *gin.Context, apply func(ctx context.Context, id int) (*models.Post, error)) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	post, err := apply(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
