package audiojobs

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/societyspeaks/narrator/internal/models"
	"gorm.io/gorm"
)

// createJobRequest is the admin "generate all audio" payload
type createJobRequest struct {
	ContentType  string `json:"content_type" binding:"required"`
	CollectionID uint   `json:"collection_id" binding:"required"`
	VoiceID      string `json:"voice_id" binding:"required"`
}

// jobResponse is what both endpoints return; the polling UI reads it as-is
type jobResponse struct {
	ID             uint   `json:"id"`
	ContentType    string `json:"content_type"`
	CollectionID   uint   `json:"collection_id"`
	VoiceID        string `json:"voice_id"`
	Status         string `json:"status"`
	TotalItems     int    `json:"total_items"`
	CompletedItems int    `json:"completed_items"`
	FailedItems    int    `json:"failed_items"`
	ErrorSummary   string `json:"error_summary,omitempty"`
}

func toJobResponse(job *models.AudioGenerationJob) jobResponse {
	return jobResponse{
		ID:             job.ID,
		ContentType:    job.ContentType,
		CollectionID:   job.CollectionID,
		VoiceID:        job.VoiceID,
		Status:         job.Status,
		TotalItems:     job.TotalItems,
		CompletedItems: job.CompletedItems,
		FailedItems:    job.FailedItems,
		ErrorSummary:   job.ErrorSummary,
	}
}

// CreateJobHandler handles the admin "generate all audio" action. Creation
// is idempotent: if an active job already covers the collection, that job is
// returned with 200 instead of 202. enqueuePass kicks the worker so a fresh
// job does not wait for the next scheduler tick; it may be nil.
func CreateJobHandler(svc *Service, enqueuePass func() error) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req createJobRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "content_type, collection_id and voice_id are required"})
			return
		}

		job, created, err := svc.CreateJob(c.Request.Context(), req.ContentType, req.CollectionID, req.VoiceID)
		if err != nil {
			if errors.Is(err, ErrInvalidJobRequest) {
				c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
				return
			}
			_ = c.Error(err)
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to create audio job"})
			return
		}

		if created && enqueuePass != nil {
			if err := enqueuePass(); err != nil {
				// The periodic scheduler will still pick the job up.
				_ = c.Error(err)
			}
		}

		status := http.StatusOK
		if created {
			status = http.StatusAccepted
		}
		c.JSON(status, toJobResponse(job))
	}
}

// GetJobHandler returns job progress. Kept to a single row read; the
// polling UI hits this every few seconds.
func GetJobHandler(svc *Service) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := strconv.ParseUint(c.Param("id"), 10, 64)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid job id"})
			return
		}

		job, err := svc.GetJob(c.Request.Context(), uint(id))
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
				return
			}
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to load job"})
			return
		}

		c.JSON(http.StatusOK, toJobResponse(job))
	}
}
