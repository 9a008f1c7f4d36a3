package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/minifeed/backend/internal/models"
	"github.com/minifeed/backend/internal/posts"
)

type CommentHandler struct {
	service *posts.Service
}

func NewCommentHandler(service *posts.Service) *CommentHandler {
	return &CommentHandler{service: service}
}

// CreateComment adds a comment and returns the parent post with all of its
// comments. Content must be non-empty after trimming; it is stored as sent.
func (h *CommentHandler) CreateComment(c *gin.Context) {
	id, ok := parsePostID(c)
	if !ok {
		return
	}

	var input models.CreateCommentRequest
	if err := c.ShouldBindJSON(&input); err != nil || strings.TrimSpace(input.Content) == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Comment content is required"})
		return
	}

	post, err := h.service.AddComment(c.Request.Context(), id, input.Content)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, post)
}
