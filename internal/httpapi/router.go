package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/podforge/podforge/internal/httpapi/handlers"
	"github.com/podforge/podforge/internal/httpapi/middleware"
	"github.com/podforge/podforge/internal/podcast"
	"github.com/podforge/podforge/internal/ratelimit"
)

func NewRouter(svc *podcast.Service, limiter ratelimit.Limiter, mediaDir string) *gin.Engine {
	r := gin.New()
	r.HandleMethodNotAllowed = true
	r.Use(gin.Logger())
	r.Use(middleware.Recovery())
	r.Use(middleware.RequestID())
	r.Use(middleware.SecureHeaders())

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "route not found"})
	})
	r.NoMethod(func(c *gin.Context) {
		c.JSON(http.StatusMethodNotAllowed, gin.H{"error": "method not allowed"})
	})

	h := handlers.NewHandler(svc)

	r.GET("/healthz", h.Health)

	r.POST("/generate", middleware.RateLimit(limiter), h.GeneratePodcast)
	r.GET("/status/:job_id", middleware.NoCache(), h.GetJobStatus)

	if mediaDir != "" {
		r.Static("/media", mediaDir)
	}

	return r
}
