package http

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// GetJobResults returns the full artifacts of a job, optionally filtered
// to a comma-separated subset of models (?models=daily,weekly) and a
// single result kind (?kind=filters|attrs).
func GetJobResults(ctx *appcontext.Context) gin.HandlerFunc {
	results := store.NewResultStore(ctx.DB, ctx.Logger)

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

		var models []string
		if raw := c.Query("models"); raw != "" {
			for _, name := range strings.Split(raw, ",") {
				if name = strings.TrimSpace(name); name != "" {
					models = append(models, name)
				}
			}
		}

		kind := c.Query("kind")
		if kind != "" && kind != entity.ResultKindFilters && kind != entity.ResultKindAttrs {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown result kind"})
			return
		}

		list, err := results.ListByJobModels(c.Request.Context(), companyID, jobID, models)
		if err != nil {
			ctx.Logger.Error("Failed to list results", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list results"})
			return
		}

		if kind != "" {
			filtered := list[:0]
			for _, result := range list {
				if result.ResultType == kind {
					filtered = append(filtered, result)
				}
			}
			list = filtered
		}

		c.JSON(http.StatusOK, gin.H{"results": list})
	}
}

// GetJobResultSummary returns counts-only rows, cheap enough to poll.
func GetJobResultSummary(ctx *appcontext.Context) gin.HandlerFunc {
	results := store.NewResultStore(ctx.DB, ctx.Logger)

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

		summary, err := results.SummarizeByJob(c.Request.Context(), companyID, jobID)
		if err != nil {
			ctx.Logger.Error("Failed to summarize results", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to summarize results"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"summary": summary})
	}
}
