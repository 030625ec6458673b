package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "podforge",
		"uptime":  time.Since(h.startedAt).Truncate(time.Second).String(),
	})
}
