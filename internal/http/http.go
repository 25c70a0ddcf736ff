package http

import (
	"github.com/gin-gonic/gin"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/http/middleware"
)

type APIService struct {
	engine  *gin.Engine
	context *appcontext.Context
}

func NewHTTPService(ctx *appcontext.Context) *APIService {
	engine := gin.New()
	engine.Use(gin.Recovery())
	engine.Use(middleware.CORSMiddleware())

	service := &APIService{
		engine:  engine,
		context: ctx,
	}
	service.setupRoutes()
	return service
}

func (h *APIService) Engine() *gin.Engine {
	return h.engine
}

func (h *APIService) setupRoutes() {
	h.engine.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	v1 := h.engine.Group("/api/v1")
	h.setupAuthRoutes(v1)
	h.setupCompanyRoutes(v1)
	h.setupUploadRoutes(v1)
	h.setupJobRoutes(v1)
	h.setupInsightRoutes(v1)
	h.setupExportRoutes(v1)
	h.setupSearchRoutes(v1)
}

func (h *APIService) setupAuthRoutes(group *gin.RouterGroup) {
	auth := group.Group("/auth")

	auth.POST("/register", Register(h.context))
	auth.POST("/login", Login(h.context))
	auth.POST("/logout", Logout(h.context))
	auth.GET("/me", middleware.JWTAuthMiddleware(), GetUserInfo(h.context))
}

func (h *APIService) setupCompanyRoutes(group *gin.RouterGroup) {
	companies := group.Group("/companies")
	companies.Use(middleware.JWTAuthMiddleware())

	companies.POST("/", CreateCompany(h.context))
	companies.GET("/:companyID/members", GetCompanyMembers(h.context))
	companies.POST("/:companyID/invite", InviteUser(h.context))
	companies.GET("/:companyID/column-config", GetColumnConfig(h.context))
	companies.PUT("/:companyID/column-config", UpdateColumnConfig(h.context))
	companies.PUT("/:companyID/settings", UpdateAnalysisSettings(h.context))
	companies.GET("/:companyID/statistics", GetDashboardStatistics(h.context))
}

func (h *APIService) setupUploadRoutes(group *gin.RouterGroup) {
	uploads := group.Group("/companies/:companyID/uploads")
	uploads.Use(middleware.JWTAuthMiddleware())

	uploads.POST("/", UploadCSV(h.context))
	uploads.GET("/", ListUploads(h.context))
	uploads.GET("/:uploadID", GetUpload(h.context))
	uploads.GET("/:uploadID/jobs", ListJobsByUpload(h.context))
	uploads.GET("/:uploadID/insights", GetUploadInsights(h.context))
}

func (h *APIService) setupJobRoutes(group *gin.RouterGroup) {
	jobs := group.Group("/companies/:companyID/jobs")
	jobs.Use(middleware.JWTAuthMiddleware())

	jobs.POST("/", CreateJob(h.context))
	jobs.GET("/:jobID", GetJob(h.context))
	jobs.POST("/:jobID/cancel", CancelJob(h.context))
	jobs.GET("/:jobID/results", GetJobResults(h.context))
	jobs.GET("/:jobID/results/summary", GetJobResultSummary(h.context))
}

func (h *APIService) setupInsightRoutes(group *gin.RouterGroup) {
	insights := group.Group("/companies/:companyID")
	insights.Use(middleware.JWTAuthMiddleware())

	insights.GET("/insights", GetCompanyInsights(h.context))
	insights.GET("/schema/default", GetDefaultColumnSchema(h.context))
	insights.POST("/schema/preview", PreviewSchemaMapping(h.context))
}

func (h *APIService) setupExportRoutes(group *gin.RouterGroup) {
	exports := group.Group("/companies/:companyID/exports")
	exports.Use(middleware.JWTAuthMiddleware())

	exports.POST("/", CreateExport(h.context))
	exports.GET("/", ListExports(h.context))
	exports.GET("/:exportID", GetExport(h.context))
}

func (h *APIService) setupSearchRoutes(group *gin.RouterGroup) {
	search := group.Group("/search")
	search.Use(middleware.JWTAuthMiddleware())

	search.GET("/", SearchResources(h.context))
}
