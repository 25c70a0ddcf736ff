package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/meilisearch/meilisearch-go"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/utils"
)

// SearchResources queries the shared "resources" index, always scoped to a
// company the caller belongs to. "up:" and "in:" prefixes narrow the search
// to uploads or insights.
func SearchResources(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID := c.Query("company_id")
		query := c.Query("q")

		if companyID == "" || query == "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Missing company_id or search query"})
			return
		}

		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		parsedCompanyID, err := uuid.Parse(companyID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company ID"})
			return
		}

		if !utils.UserHasCompanyAccess(ctx, userID, parsedCompanyID) {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "User does not have access to this company"})
			return
		}

		if ctx.MeilisearchClient == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Search is not configured"})
			return
		}

		var typeFilter string
		var actualQuery string

		switch {
		case strings.HasPrefix(query, "up:"):
			typeFilter = "type = upload"
			actualQuery = strings.TrimPrefix(query, "up:")
		case strings.HasPrefix(query, "in:"):
			typeFilter = "type = insight"
			actualQuery = strings.TrimPrefix(query, "in:")
		default:
			typeFilter = "type IN [upload, insight]"
			actualQuery = query
		}

		filter := fmt.Sprintf("company_id = %s AND %s", companyID, typeFilter)

		searchParams := &meilisearch.SearchRequest{
			Query:  actualQuery,
			Filter: filter,
		}

		searchResult, err := ctx.MeilisearchClient.Index("resources").Search(actualQuery, searchParams)
		if err != nil {
			ctx.Logger.Error("Failed to perform search", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to perform search"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"results": searchResult.Hits})
	}
}
