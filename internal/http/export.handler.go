package http

import (
	"encoding/json"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// CreateExport records a request to serialize a completed job's results.
// The row starts pending; an external renderer picks it up and fills in the
// file path and download URL.
func CreateExport(ctx *appcontext.Context) gin.HandlerFunc {
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, nil)

	return func(c *gin.Context) {
		type createExportRequest struct {
			JobID  string   `json:"job_id" binding:"required"`
			Models []string `json:"models"`
			Format string   `json:"format"`
		}

		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		var request createExportRequest
		if err := c.BindJSON(&request); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}
		jobID, err := uuid.Parse(request.JobID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid job ID"})
			return
		}

		job, err := jobs.GetByID(c.Request.Context(), companyID, jobID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Job not found"})
			return
		}
		if job.Status != entity.JobStatusCompleted {
			c.JSON(http.StatusConflict, gin.H{"error": "Job has no results to export yet"})
			return
		}

		if _, err := pipeline.ResolveOrder(request.Models); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		format := request.Format
		if format == "" {
			format = "xlsx"
		}
		if format != "xlsx" && format != "csv" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unsupported export format"})
			return
		}

		models := request.Models
		if len(models) == 0 {
			models = pipeline.CatalogNames()
		}
		modelsJSON, err := json.Marshal(models)
		if err != nil {
			ctx.Logger.Error("Failed to marshal models list", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export"})
			return
		}

		export := entity.DataExport{
			CompanyID:      companyID,
			JobID:          jobID,
			RequestedByID:  &userID,
			ExportFormat:   format,
			ModelsIncluded: datatypes.JSON(modelsJSON),
			Status:         entity.ExportStatusPending,
		}
		if err := ctx.DB.Create(&export).Error; err != nil {
			ctx.Logger.Error("Failed to create export", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create export"})
			return
		}

		c.JSON(http.StatusAccepted, gin.H{"export": export})
	}
}

func GetExport(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		exportID, err := uuid.Parse(c.Param("exportID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid export ID"})
			return
		}

		var export entity.DataExport
		if err := ctx.DB.Where("id = ? AND company_id = ?", exportID, companyID).First(&export).Error; err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Export not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"export": export})
	}
}

func ListExports(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		var exports []entity.DataExport
		if err := ctx.DB.Where("company_id = ?", companyID).Order("created_at DESC").Find(&exports).Error; err != nil {
			ctx.Logger.Error("Failed to fetch exports", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch exports"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"exports": exports})
	}
}
