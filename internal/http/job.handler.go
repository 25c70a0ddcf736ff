package http

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// CreateJob queues a re-run of the models for an already ingested upload.
func CreateJob(ctx *appcontext.Context) gin.HandlerFunc {
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, services.NewRedisProgressPublisher(ctx.RedisClient, ctx.Logger))
	uploads := store.NewUploadStore(ctx.DB, ctx.Logger)

	return func(c *gin.Context) {
		type createJobRequest struct {
			UploadID string   `json:"upload_id" binding:"required"`
			Models   []string `json:"models"`
		}

		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		var request createJobRequest
		if err := c.BindJSON(&request); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}
		uploadID, err := uuid.Parse(request.UploadID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
			return
		}

		upload, err := uploads.GetByID(c.Request.Context(), companyID, uploadID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return
		}
		if upload.Status == entity.UploadStatusPending || upload.Status == entity.UploadStatusValidating {
			c.JSON(http.StatusConflict, gin.H{"error": "Upload is not ingested yet"})
			return
		}

		// Reject unknown model names before the worker sees the job.
		if _, err := pipeline.ResolveOrder(request.Models); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		job, err := jobs.Create(c.Request.Context(), companyID, uploadID, request.Models)
		if err != nil {
			ctx.Logger.Error("Failed to create job", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create job"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"job": job})
	}
}

func GetJob(ctx *appcontext.Context) gin.HandlerFunc {
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, nil)

	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		jobID, err := uuid.Parse(c.Param("jobID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
			return
		}

		job, err := jobs.GetByID(c.Request.Context(), companyID, jobID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"job": job})
	}
}

func ListJobsByUpload(ctx *appcontext.Context) gin.HandlerFunc {
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, nil)

	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		uploadID, err := uuid.Parse(c.Param("uploadID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
			return
		}

		list, err := jobs.ListByUpload(c.Request.Context(), companyID, uploadID)
		if err != nil {
			ctx.Logger.Error("Failed to list jobs", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list jobs"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"jobs": list})
	}
}

// CancelJob requests cancellation. The worker observes it between models,
// so a running job stops at the next model boundary.
func CancelJob(ctx *appcontext.Context) gin.HandlerFunc {
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, services.NewRedisProgressPublisher(ctx.RedisClient, ctx.Logger))

	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		jobID, err := uuid.Parse(c.Param("jobID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
			return
		}

		cancelled, err := jobs.Cancel(c.Request.Context(), companyID, jobID)
		if err != nil {
			ctx.Logger.Error("Failed to cancel job", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel job"})
			return
		}
		if !cancelled {
			c.JSON(http.StatusConflict, gin.H{"error": "Job already finished"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Job cancelled"})
	}
}
