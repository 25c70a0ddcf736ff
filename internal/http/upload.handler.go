package http

import (
	"context"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/entity"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// UploadCSV receives a tenant CSV, stores the raw file and kicks off
// ingestion in the background. The response carries the upload in pending
// state; clients follow progress through the job endpoints.
func UploadCSV(ctx *appcontext.Context) gin.HandlerFunc {
	objects := services.ObjectStoreFor(ctx)
	uploads := store.NewUploadStore(ctx.DB, ctx.Logger)
	txs := store.NewTransactionStore(ctx.DB, ctx.Logger)
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, services.NewRedisProgressPublisher(ctx.RedisClient, ctx.Logger))
	indexer := services.NewSearchIndexer(ctx.MeilisearchClient, ctx.Logger)
	ingest := services.NewIngestService(ctx.DB, ctx.Logger, uploads, txs, jobs, objects, indexer)

	return func(c *gin.Context) {
		type uploadForm struct {
			Models []string `form:"models"`
		}

		companyID, userID, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			ctx.Logger.Error("Failed to get file from request", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to get file from request"})
			return
		}
		if !isCSVFile(file) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid file type, only CSV files are allowed"})
			return
		}

		var form uploadForm
		if err := c.ShouldBind(&form); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to bind request"})
			return
		}

		src, err := file.Open()
		if err != nil {
			ctx.Logger.Error("Failed to open file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open file"})
			return
		}
		defer src.Close()

		objectPath := companyID.String() + "/" + uuid.NewString() + "/" + filepath.Base(file.Filename)
		storedPath, err := objects.Save(c.Request.Context(), objectPath, src)
		if err != nil {
			ctx.Logger.Error("Failed to store file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to store file"})
			return
		}

		upload := &entity.DataUpload{
			CompanyID:    companyID,
			UploadedByID: &userID,
			FileName:     file.Filename,
			FileSize:     file.Size,
			FilePath:     storedPath,
			Status:       entity.UploadStatusPending,
		}
		if err := uploads.Create(c.Request.Context(), upload); err != nil {
			ctx.Logger.Error("Failed to create upload", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create upload"})
			return
		}

		// Ingestion continues after the response; the request context dies
		// with the response writer.
		go func(upload entity.DataUpload, models []string) {
			if _, err := ingest.Process(context.Background(), &upload, models); err != nil {
				ctx.Logger.Error("Background ingest failed",
					zap.String("upload_id", upload.ID.String()),
					zap.Error(err))
			}
		}(*upload, form.Models)

		c.JSON(http.StatusAccepted, gin.H{"upload": upload})
	}
}

func GetUpload(ctx *appcontext.Context) gin.HandlerFunc {
	uploads := store.NewUploadStore(ctx.DB, ctx.Logger)

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

		upload, err := uploads.GetByID(c.Request.Context(), companyID, uploadID)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "Upload not found"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"upload": upload})
	}
}

func ListUploads(ctx *appcontext.Context) gin.HandlerFunc {
	uploads := store.NewUploadStore(ctx.DB, ctx.Logger)

	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		list, err := uploads.ListByCompany(c.Request.Context(), companyID, 50)
		if err != nil {
			ctx.Logger.Error("Failed to list uploads", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list uploads"})
			return
		}

		c.JSON(http.StatusOK, gin.H{"uploads": list})
	}
}

func isCSVFile(file *multipart.FileHeader) bool {
	return strings.EqualFold(filepath.Ext(file.Filename), ".csv")
}
