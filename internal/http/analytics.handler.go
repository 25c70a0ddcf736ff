package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/store"
	"github.com/Brownbull/gabeda-backend/internal/utils"
)

// GetCompanyInsights lists the insights the caller's role may see, newest
// first across all uploads of the company.
func GetCompanyInsights(ctx *appcontext.Context) gin.HandlerFunc {
	analytics := store.NewAnalyticsStore(ctx.DB, ctx.Logger)
	return func(c *gin.Context) {
		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		member := utils.GetMembership(ctx, userID, companyID)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User does not have access to this company"})
			return
		}

		results, err := analytics.ListVisible(c.Request.Context(), companyID, member.Role)
		if err != nil {
			ctx.Logger.Error("Failed to fetch insights", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch insights"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"insights": results})
	}
}

// GetUploadInsights lists the role-visible insights derived from one upload.
func GetUploadInsights(ctx *appcontext.Context) gin.HandlerFunc {
	analytics := store.NewAnalyticsStore(ctx.DB, ctx.Logger)
	return func(c *gin.Context) {
		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		uploadID, err := uuid.Parse(c.Param("uploadID"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid upload ID"})
			return
		}

		member := utils.GetMembership(ctx, userID, companyID)
		if member == nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User does not have access to this company"})
			return
		}

		results, err := analytics.ListByUpload(c.Request.Context(), companyID, uploadID, member.Role)
		if err != nil {
			ctx.Logger.Error("Failed to fetch insights", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch insights"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"insights": results})
	}
}

// GetDashboardStatistics aggregates company-wide counts for the overview
// screen: upload and job totals, transaction volume and the distribution of
// insight types, with last-month counterparts for trend arrows.
func GetDashboardStatistics(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		now := time.Now()
		currentMonthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, now.Location())

		var totalUploadCount int64
		ctx.DB.Model(&entity.DataUpload{}).Where("company_id = ?", companyID).Count(&totalUploadCount)

		var completedUploadCount int64
		ctx.DB.Model(&entity.DataUpload{}).Where("company_id = ? AND status = ?", companyID, entity.UploadStatusCompleted).Count(&completedUploadCount)

		var totalJobCount int64
		ctx.DB.Model(&entity.ProcessingJob{}).Where("company_id = ?", companyID).Count(&totalJobCount)

		var totalTransactionCount int64
		ctx.DB.Model(&entity.Transaction{}).Where("company_id = ?", companyID).Count(&totalTransactionCount)

		var totalRevenue float64
		ctx.DB.Model(&entity.Transaction{}).Select("COALESCE(SUM(total), 0)").Where("company_id = ?", companyID).Scan(&totalRevenue)

		var pastMonthUploadCount int64
		ctx.DB.Model(&entity.DataUpload{}).Where("company_id = ? AND created_at < ?", companyID, currentMonthStart).Count(&pastMonthUploadCount)

		var pastMonthJobCount int64
		ctx.DB.Model(&entity.ProcessingJob{}).Where("company_id = ? AND created_at < ?", companyID, currentMonthStart).Count(&pastMonthJobCount)

		var pastMonthTransactionCount int64
		ctx.DB.Model(&entity.Transaction{}).Where("company_id = ? AND created_at < ?", companyID, currentMonthStart).Count(&pastMonthTransactionCount)

		var jobStatusCountsRaw []struct {
			Status string
			Count  int64
		}
		ctx.DB.Model(&entity.ProcessingJob{}).
			Select("processing_jobs.status, COUNT(*) as count").
			Where("processing_jobs.company_id = ?", companyID).
			Group("processing_jobs.status").
			Scan(&jobStatusCountsRaw)

		jobStatusCountsResponse := struct {
			Queued    int64 `json:"queued"`
			Running   int64 `json:"running"`
			Completed int64 `json:"completed"`
			Failed    int64 `json:"failed"`
			Cancelled int64 `json:"cancelled"`
		}{}

		for _, item := range jobStatusCountsRaw {
			switch item.Status {
			case entity.JobStatusQueued:
				jobStatusCountsResponse.Queued = item.Count
			case entity.JobStatusRunning:
				jobStatusCountsResponse.Running = item.Count
			case entity.JobStatusCompleted:
				jobStatusCountsResponse.Completed = item.Count
			case entity.JobStatusFailed:
				jobStatusCountsResponse.Failed = item.Count
			case entity.JobStatusCancelled:
				jobStatusCountsResponse.Cancelled = item.Count
			}
		}

		var insightTypeDistributionRaw []struct {
			ResultType string
			Count      int64
		}
		ctx.DB.Model(&entity.AnalyticsResult{}).
			Select("analytics_results.result_type, COUNT(*) as count").
			Where("analytics_results.company_id = ?", companyID).
			Group("analytics_results.result_type").
			Scan(&insightTypeDistributionRaw)

		insightTypeDistributionResponse := []struct {
			ID    int    `json:"id"`
			Label string `json:"label"`
			Value int64  `json:"value"`
		}{}

		for i, item := range insightTypeDistributionRaw {
			insightTypeDistributionResponse = append(insightTypeDistributionResponse, struct {
				ID    int    `json:"id"`
				Label string `json:"label"`
				Value int64  `json:"value"`
			}{
				ID:    i + 1,
				Label: item.ResultType,
				Value: item.Count,
			})
		}

		response := gin.H{
			"totalUploadCount":          totalUploadCount,
			"completedUploadCount":      completedUploadCount,
			"totalJobCount":             totalJobCount,
			"totalTransactionCount":     totalTransactionCount,
			"totalRevenue":              totalRevenue,
			"pastMonthUploadCount":      pastMonthUploadCount,
			"pastMonthJobCount":         pastMonthJobCount,
			"pastMonthTransactionCount": pastMonthTransactionCount,
			"jobStatusCounts":           jobStatusCountsResponse,
			"insightTypeDistribution":   insightTypeDistributionResponse,
		}

		c.JSON(http.StatusOK, response)
	}
}
