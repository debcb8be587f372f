package handlers

import (
	"github.com/gin-gonic/gin"
)

func HealthCheck(c *gin.Context) {
	RespondOK(c, gin.H{"status": "ok"})
}
