package handlers

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"github.com/podforge/podforge/internal/common"
	"github.com/podforge/podforge/internal/podcast"
)

const estimatedTime = "2-5 minutes"

type jobResponse struct {
	ID        string            `json:"id"`
	Status    podcast.JobStatus `json:"status"`
	Result    *podcast.Result   `json:"result,omitempty"`
	Error     *string           `json:"error,omitempty"`
	CreatedAt time.Time         `json:"createdAt"`
	UpdatedAt time.Time         `json:"updatedAt"`
}

// GeneratePodcast admits a generation request: payload bound check, JSON
// decode, then Service.Submit (validate, persist pending, dispatch). The
// rate limiter runs before this handler as route middleware.
func (h *Handler) GeneratePodcast(c *gin.Context) {
	start := time.Now()

	// cheap reject before reading the body
	if c.Request.ContentLength > 2*podcast.MaxContentLength {
		common.Fail(c, http.StatusRequestEntityTooLarge, "request payload too large")
		return
	}

	var req podcast.GenerationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		common.Fail(c, http.StatusBadRequest, "invalid request body")
		return
	}

	job, err := h.Svc.Submit(c.Request.Context(), &req)
	if err != nil {
		var verr *podcast.ValidationError
		switch {
		case errors.As(err, &verr):
			log.Printf("invalid generation request: %s", verr.Error())
			common.Fail(c, http.StatusBadRequest, verr.Error())
		case errors.Is(err, podcast.ErrDispatchFailed):
			log.Printf("dispatch failed after %s: %v", time.Since(start), err)
			common.Fail(c, http.StatusInternalServerError, "error starting podcast generation")
		default:
			log.Printf("generation admission failed after %s: %v", time.Since(start), err)
			common.Fail(c, http.StatusInternalServerError, "internal error")
		}
		return
	}

	log.Printf("podcast job queued job=%s language=%s in=%s", job.ID, job.Language, time.Since(start))

	c.JSON(http.StatusAccepted, gin.H{
		"jobId":         job.ID,
		"status":        job.Status,
		"message":       "podcast generation started. use the jobId to check status.",
		"statusUrl":     "/status/" + job.ID,
		"estimatedTime": estimatedTime,
	})
}

// GetJobStatus is a pure projection of the job store; responses are
// shaped identically for every status so one caller-side type decodes
// all of them.
func (h *Handler) GetJobStatus(c *gin.Context) {
	jobID := c.Param("job_id")
	if jobID == "" {
		common.Fail(c, http.StatusBadRequest, "job id required")
		return
	}

	j, err := h.Svc.Status(c.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			common.Fail(c, http.StatusNotFound, "job not found")
			return
		}
		log.Printf("job status read failed job=%s err=%v", jobID, err)
		common.Fail(c, http.StatusInternalServerError, "internal error")
		return
	}

	c.JSON(http.StatusOK, jobResponse{
		ID:        j.ID,
		Status:    j.Status,
		Result:    j.Result,
		Error:     j.Error,
		CreatedAt: j.CreatedAt,
		UpdatedAt: j.UpdatedAt,
	})
}
