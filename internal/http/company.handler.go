package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/utils"
)

func CreateCompany(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		type createCompanyRequest struct {
			Name     string `json:"name" binding:"required"`
			Industry string `json:"industry"`
			Location string `json:"location"`
			Currency string `json:"currency"`
		}

		var request createCompanyRequest
		if err := c.BindJSON(&request); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		userID, err := utils.GetUserIDFromClaims(c)
		if err != nil {
			ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
			c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
			return
		}

		company := entity.Company{
			Name:     request.Name,
			Industry: request.Industry,
			Location: request.Location,
			Currency: request.Currency,
		}
		if err := ctx.DB.Create(&company).Error; err != nil {
			ctx.Logger.Error("Failed to create company", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create company"})
			return
		}

		member := entity.CompanyMember{
			CompanyID: company.ID,
			UserID:    userID,
			Role:      entity.RoleAdmin,
		}
		if err := ctx.DB.Create(&member).Error; err != nil {
			ctx.Logger.Error("Failed to create membership", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create membership"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"company": company})
	}
}

func GetCompanyMembers(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		var members []entity.CompanyMember
		if err := ctx.DB.Preload("User").Where("company_id = ?", companyID).Find(&members).Error; err != nil {
			ctx.Logger.Error("Failed to get company members", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get company members"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"members": members})
	}
}

func InviteUser(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		type inviteRequest struct {
			Email string `json:"email" binding:"required,email"`
			Role  string `json:"role" binding:"required"`
		}

		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		if !utils.UserHasRole(ctx, userID, companyID, entity.RoleAdmin) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Only admins can invite members"})
			return
		}

		var request inviteRequest
		if err := c.BindJSON(&request); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}
		if !validRole(request.Role) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Unknown role"})
			return
		}

		var invited entity.User
		err := ctx.DB.Where("email = ?", request.Email).First(&invited).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			invited = entity.User{Email: request.Email}
			if err := ctx.DB.Create(&invited).Error; err != nil {
				ctx.Logger.Error("Failed to create invited user", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite user"})
				return
			}
		} else if err != nil {
			ctx.Logger.Error("Failed to look up invited user", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to invite user"})
			return
		}

		member := entity.CompanyMember{
			CompanyID: companyID,
			UserID:    invited.ID,
			Role:      request.Role,
		}
		if err := ctx.DB.Create(&member).Error; err != nil {
			ctx.Logger.Error("Failed to create membership", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "User is already a member"})
			return
		}

		var inviter entity.User
		var company entity.Company
		ctx.DB.First(&inviter, "id = ?", userID)
		ctx.DB.First(&company, "id = ?", companyID)
		if err := services.SendInvitationEmail(request.Email, inviter.FirstName, company.Name, ctx.FrontendURL); err != nil {
			ctx.Logger.Warn("Failed to send invitation email", zap.Error(err))
		}

		c.JSON(http.StatusOK, gin.H{"member": member})
	}
}

func GetColumnConfig(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		var company entity.Company
		if err := ctx.DB.First(&company, "id = ?", companyID).Error; err != nil {
			ctx.Logger.Error("Failed to get company", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get company"})
			return
		}

		var raw pipeline.ColumnSchema
		if len(company.ColumnConfig) > 0 {
			if err := json.Unmarshal(company.ColumnConfig, &raw); err != nil {
				ctx.Logger.Error("Failed to decode column config", zap.Error(err))
				c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to decode column config"})
				return
			}
		}
		resolved, err := pipeline.ResolveSchema(raw)
		if err != nil {
			ctx.Logger.Error("Stored column config is invalid", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, gin.H{"column_config": resolved})
	}
}

// UpdateColumnConfig validates the supplied mapping before storing it, so a
// broken schema is rejected here instead of failing the next upload.
func UpdateColumnConfig(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		if !utils.UserHasRole(ctx, userID, companyID, entity.RoleAdmin, entity.RoleBusinessOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to change the column mapping"})
			return
		}

		var raw pipeline.ColumnSchema
		if err := c.BindJSON(&raw); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		resolved, err := pipeline.ResolveSchema(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		configJSON, err := json.Marshal(resolved)
		if err != nil {
			ctx.Logger.Error("Failed to encode column config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to encode column config"})
			return
		}
		err = ctx.DB.Model(&entity.Company{}).
			Where("id = ?", companyID).
			Update("column_config", datatypes.JSON(configJSON)).Error
		if err != nil {
			ctx.Logger.Error("Failed to update column config", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update column config"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"column_config": resolved})
	}
}

func UpdateAnalysisSettings(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		type settingsRequest struct {
			TopProductsThreshold *float64 `json:"top_products_threshold"`
			DeadStockDays        *int     `json:"dead_stock_days"`
		}

		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}
		if !utils.UserHasRole(ctx, userID, companyID, entity.RoleAdmin, entity.RoleBusinessOwner) {
			c.JSON(http.StatusForbidden, gin.H{"error": "Insufficient role to change analysis settings"})
			return
		}

		var request settingsRequest
		if err := c.BindJSON(&request); err != nil {
			ctx.Logger.Error("Failed to bind request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		updates := map[string]interface{}{}
		if request.TopProductsThreshold != nil {
			if *request.TopProductsThreshold <= 0 || *request.TopProductsThreshold > 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "top_products_threshold must be in (0, 1]"})
				return
			}
			updates["top_products_threshold"] = *request.TopProductsThreshold
		}
		if request.DeadStockDays != nil {
			if *request.DeadStockDays < 1 {
				c.JSON(http.StatusBadRequest, gin.H{"error": "dead_stock_days must be positive"})
				return
			}
			updates["dead_stock_days"] = *request.DeadStockDays
		}
		if len(updates) == 0 {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Nothing to update"})
			return
		}

		if err := ctx.DB.Model(&entity.Company{}).Where("id = ?", companyID).Updates(updates).Error; err != nil {
			ctx.Logger.Error("Failed to update analysis settings", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update analysis settings"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"message": "Settings updated"})
	}
}

// companyScope parses the companyID path param and checks the caller is a
// member. Responds and returns ok=false on any failure.
func companyScope(ctx *appcontext.Context, c *gin.Context) (uuid.UUID, uuid.UUID, bool) {
	userID, err := utils.GetUserIDFromClaims(c)
	if err != nil {
		ctx.Logger.Error("Failed to get user ID from claims", zap.Error(err))
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Unauthorized"})
		return uuid.Nil, uuid.Nil, false
	}

	companyID, err := uuid.Parse(c.Param("companyID"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid company ID"})
		return uuid.Nil, uuid.Nil, false
	}

	if !utils.UserHasCompanyAccess(ctx, userID, companyID) {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "User does not have access to this company"})
		return uuid.Nil, uuid.Nil, false
	}
	return companyID, userID, true
}

func validRole(role string) bool {
	switch role {
	case entity.RoleAdmin, entity.RoleBusinessOwner, entity.RoleAnalyst, entity.RoleOperationsManager:
		return true
	}
	return false
}
