package http

import (
	"encoding/csv"
	"net/http"
	"sort"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/Brownbull/gabeda-backend/internal/appcontext"
	"github.com/Brownbull/gabeda-backend/internal/pipeline"
	"github.com/Brownbull/gabeda-backend/internal/services"
	"github.com/Brownbull/gabeda-backend/internal/store"
)

// GetDefaultColumnSchema returns the built-in column mapping a company
// starts from before configuring its own.
func GetDefaultColumnSchema(ctx *appcontext.Context) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"schema":          pipeline.DefaultSchema(),
			"required_fields": pipeline.RequiredFields(),
		})
	}
}

type fieldMapping struct {
	Field        string `json:"field"`
	SourceColumn string `json:"source_column"`
	DataType     string `json:"data_type"`
	Present      bool   `json:"present"`
	Required     bool   `json:"required"`
}

// PreviewSchemaMapping checks a CSV file's header row against the company's
// resolved column schema without ingesting anything: which canonical fields
// map to a present column, which required columns are missing and which CSV
// columns nothing maps to.
func PreviewSchemaMapping(ctx *appcontext.Context) gin.HandlerFunc {
	uploads := store.NewUploadStore(ctx.DB, ctx.Logger)
	txs := store.NewTransactionStore(ctx.DB, ctx.Logger)
	jobs := store.NewJobStore(ctx.DB, ctx.Logger, nil)
	ingest := services.NewIngestService(ctx.DB, ctx.Logger, uploads, txs, jobs, services.ObjectStoreFor(ctx), nil)

	return func(c *gin.Context) {
		companyID, _, ok := companyScope(ctx, c)
		if !ok {
			return
		}

		file, err := c.FormFile("file")
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
			return
		}
		if !isCSVFile(file) {
			c.JSON(http.StatusBadRequest, gin.H{"error": "Only CSV files are accepted"})
			return
		}

		schema, err := ingest.CompanySchema(c.Request.Context(), companyID)
		if err != nil {
			ctx.Logger.Error("Failed to resolve company schema", zap.Error(err))
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		src, err := file.Open()
		if err != nil {
			ctx.Logger.Error("Failed to open uploaded file", zap.Error(err))
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to open uploaded file"})
			return
		}
		defer src.Close()

		header, err := csv.NewReader(src).Read()
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "File has no header row"})
			return
		}

		present := make(map[string]bool, len(header))
		for _, name := range header {
			present[name] = true
		}

		required := make(map[string]bool)
		for _, field := range pipeline.RequiredFields() {
			required[field] = true
		}

		mapped := make(map[string]bool)
		var mappings []fieldMapping
		var missingRequired []string
		for field, spec := range schema {
			mapped[spec.SourceColumn] = true
			mappings = append(mappings, fieldMapping{
				Field:        field,
				SourceColumn: spec.SourceColumn,
				DataType:     string(spec.DataType),
				Present:      present[spec.SourceColumn],
				Required:     required[field],
			})
			if required[field] && !present[spec.SourceColumn] {
				missingRequired = append(missingRequired, spec.SourceColumn)
			}
		}
		sort.Slice(mappings, func(i, j int) bool { return mappings[i].Field < mappings[j].Field })
		sort.Strings(missingRequired)

		var unmappedColumns []string
		for _, name := range header {
			if !mapped[name] {
				unmappedColumns = append(unmappedColumns, name)
			}
		}

		c.JSON(http.StatusOK, gin.H{
			"valid":            len(missingRequired) == 0,
			"mappings":         mappings,
			"missing_required": missingRequired,
			"unmapped_columns": unmappedColumns,
		})
	}
}
