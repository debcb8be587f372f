package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/services"
)

type PostHandler struct {
	postService      services.PostService
	embeddingService services.EmbeddingService
}

func NewPostHandler(postService services.PostService, embeddingService services.EmbeddingService) *PostHandler {
	return &PostHandler{postService: postService, embeddingService: embeddingService}
}

func (ph *PostHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	var accountID *uuid.UUID
	if raw := c.Query("user"); raw != "" {
		parsed, err := uuid.Parse(raw)
		if err != nil {
			RespondError(c, http.StatusBadRequest, "invalid_user_id", err)
			return
		}
		accountID = &parsed
	}
	posts, err := ph.postService.List(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		RespondError(c, statusForError(err), "list_posts_failed", err)
		return
	}
	RespondOK(c, gin.H{"posts": posts})
}

func (ph *PostHandler) Get(c *gin.Context) {
	post, err := ph.postService.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		RespondError(c, statusForError(err), "post_not_found", err)
		return
	}
	RespondOK(c, gin.H{"post": post})
}

func (ph *PostHandler) Similar(c *gin.Context) {
	limit := queryInt(c, "limit", 10)
	results, err := ph.embeddingService.SimilarPosts(c.Request.Context(), c.Param("id"), limit)
	if err != nil {
		RespondError(c, statusForError(err), "similar_posts_failed", err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}

func (ph *PostHandler) SearchAI(c *gin.Context) {
	text := c.Query("text")
	if text == "" {
		RespondError(c, http.StatusBadRequest, "missing_text", errors.New("text is required"))
		return
	}
	limit := queryInt(c, "limit", 10)
	results, err := ph.embeddingService.SearchPosts(c.Request.Context(), text, limit)
	if err != nil {
		RespondError(c, statusForError(err), "search_posts_failed", err)
		return
	}
	RespondOK(c, gin.H{"results": results})
}
