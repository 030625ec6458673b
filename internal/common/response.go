package common

import "github.com/gin-gonic/gin"

// Fail writes a flat error body. Handlers add protocol headers
// (Retry-After etc.) before calling this.
func Fail(c *gin.Context, httpStatus int, msg string) {
	c.JSON(httpStatus, gin.H{"error": msg})
}
