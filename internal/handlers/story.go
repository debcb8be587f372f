package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/services"
)

type StoryHandler struct {
	storyService services.StoryService
}

func NewStoryHandler(storyService services.StoryService) *StoryHandler {
	return &StoryHandler{storyService: storyService}
}

func (sh *StoryHandler) List(c *gin.Context) {
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
	stories, err := sh.storyService.List(c.Request.Context(), accountID, limit, offset)
	if err != nil {
		RespondError(c, statusForError(err), "list_stories_failed", err)
		return
	}
	RespondOK(c, gin.H{"stories": stories})
}

func (sh *StoryHandler) Get(c *gin.Context) {
	story, err := sh.storyService.GetByID(c.Request.Context(), c.Param("story_id"))
	if err != nil {
		RespondError(c, statusForError(err), "story_not_found", err)
		return
	}
	RespondOK(c, gin.H{"story": story})
}
