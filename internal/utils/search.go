package utils

import (
	"github.com/Brownbull/gabeda-backend/internal/entity"
)

// Search documents live in the shared "resources" index. Each document
// carries company_id so queries are always tenant-filtered.

func UploadToDocument(upload *entity.DataUpload) map[string]interface{} {
	return map[string]interface{}{
		"id":         upload.ID.String(),
		"type":       "upload",
		"name":       upload.FileName,
		"file_name":  upload.FileName,
		"status":     upload.Status,
		"company_id": upload.CompanyID.String(),
	}
}

func InsightToDocument(result *entity.AnalyticsResult) map[string]interface{} {
	doc := map[string]interface{}{
		"id":         result.ID.String(),
		"type":       "insight",
		"name":       result.Title,
		"title":      result.Title,
		"status":     result.ResultType,
		"company_id": result.CompanyID.String(),
	}
	if result.AnalysisDate != nil {
		doc["analysis_date"] = result.AnalysisDate.Format("2006-01-02")
	}
	return doc
}
