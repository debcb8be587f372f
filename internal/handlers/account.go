package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/gramsight/gramsight-backend/internal/services"
)

type AccountHandler struct {
	accountService services.AccountService
}

func NewAccountHandler(accountService services.AccountService) *AccountHandler {
	return &AccountHandler{accountService: accountService}
}

func (ah *AccountHandler) Create(c *gin.Context) {
	var body struct {
		Username          string `json:"username" binding:"required"`
		AutoUpdateProfile bool   `json:"allow_auto_update_profile"`
		AutoUpdateStories bool   `json:"allow_auto_update_stories"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("username is required"))
		return
	}
	account, err := ah.accountService.Create(c.Request.Context(), body.Username, body.AutoUpdateProfile, body.AutoUpdateStories)
	if err != nil {
		RespondError(c, statusForError(err), "create_account_failed", err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"user": account})
}

func (ah *AccountHandler) List(c *gin.Context) {
	limit := queryInt(c, "limit", 50)
	offset := queryInt(c, "offset", 0)
	accounts, err := ah.accountService.List(c.Request.Context(), limit, offset)
	if err != nil {
		RespondError(c, statusForError(err), "list_accounts_failed", err)
		return
	}
	RespondOK(c, gin.H{"users": accounts})
}

func (ah *AccountHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	account, err := ah.accountService.GetByID(c.Request.Context(), id)
	if err != nil {
		RespondError(c, statusForError(err), "account_not_found", err)
		return
	}
	logs, err := ah.accountService.UpdateLogs(c.Request.Context(), id, 20)
	if err != nil {
		RespondError(c, statusForError(err), "load_update_logs_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": account, "update_logs": logs})
}

func (ah *AccountHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	limit := queryInt(c, "limit", 50)
	history, err := ah.accountService.History(c.Request.Context(), id, limit)
	if err != nil {
		RespondError(c, statusForError(err), "load_history_failed", err)
		return
	}
	RespondOK(c, gin.H{"history": history})
}

// Refresh enqueues a background sync for the account. The op field selects
// which one.
func (ah *AccountHandler) Refresh(c *gin.Context) {
	id, err := uuid.Parse(c.Param("uuid"))
	if err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_account_id", err)
		return
	}
	var body struct {
		Op string `json:"op" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("op is required"))
		return
	}
	jobType, ok := refreshJobTypes[body.Op]
	if !ok {
		RespondError(c, http.StatusBadRequest, "unsupported_op", fmt.Errorf("unsupported refresh op: %s", body.Op))
		return
	}
	taskID, err := ah.accountService.EnqueueRefresh(c.Request.Context(), id, jobType)
	if err != nil {
		RespondError(c, statusForError(err), "enqueue_refresh_failed", err)
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"task_id": taskID})
}

var refreshJobTypes = map[string]string{
	"profile": services.JobAccountSyncProfile,
	"posts":   services.JobAccountSyncPosts,
	"stories": services.JobAccountSyncStories,
}
