package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gramsight/gramsight-backend/internal/services"
)

type AuthHandler struct {
	authService services.AuthService
}

func NewAuthHandler(authService services.AuthService) *AuthHandler {
	return &AuthHandler{authService: authService}
}

// Verify exchanges an identity-provider ID token for the app user record.
func (ah *AuthHandler) Verify(c *gin.Context) {
	var body struct {
		Token string `json:"token" binding:"required"`
	}
	if err := c.ShouldBindJSON(&body); err != nil {
		RespondError(c, http.StatusBadRequest, "invalid_body", errors.New("token is required"))
		return
	}
	identity, err := ah.authService.VerifyIDToken(c.Request.Context(), body.Token)
	if err != nil {
		RespondError(c, http.StatusUnauthorized, "invalid_token", err)
		return
	}
	user, err := ah.authService.ResolveUser(c.Request.Context(), identity)
	if err != nil {
		RespondError(c, http.StatusInternalServerError, "resolve_user_failed", err)
		return
	}
	RespondOK(c, gin.H{"user": user})
}
