package entity

import (
	"encoding/json"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Result kinds. A model emits a filters table (row-level flags) and/or an
// attrs table (aggregated attributes).
const (
	ResultKindFilters = "filters"
	ResultKindAttrs   = "attrs"
)

// ModelResult is one artifact per (job, model, kind). Re-running a model
// within the same job upserts on that key, never duplicates.
type ModelResult struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	JobID     uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_result_job_model_kind" json:"job_id"`

	ModelName  string `gorm:"type:varchar(100);not null;uniqueIndex:idx_result_job_model_kind" json:"model_name"`
	ResultType string `gorm:"type:varchar(20);not null;uniqueIndex:idx_result_job_model_kind" json:"result_type"`

	RowCount    int            `json:"row_count"`
	ColumnCount int            `json:"column_count"`
	Columns     datatypes.JSON `gorm:"type:jsonb" json:"columns"`

	// DataPreview holds the first rows only; the full table, when
	// materialized, lives behind the opaque DataPath handle.
	DataPreview datatypes.JSON `gorm:"type:jsonb" json:"data_preview"`
	DataPath    string         `gorm:"type:varchar(500)" json:"data_path"`

	ExecutionTimeMs int64 `json:"execution_time_ms"`
}

// NewModelResult builds a result artifact from a produced table. CompanyID
// is stamped by the store when the artifact is saved under its job.
func NewModelResult(jobID uuid.UUID, model, resultType string, columns []string, rowCount int, preview []map[string]interface{}, executionMs int64) (*ModelResult, error) {
	columnsJSON, err := json.Marshal(columns)
	if err != nil {
		return nil, fmt.Errorf("encoding %s columns: %w", model, err)
	}
	previewJSON, err := json.Marshal(preview)
	if err != nil {
		return nil, fmt.Errorf("encoding %s preview: %w", model, err)
	}
	return &ModelResult{
		JobID:           jobID,
		ModelName:       model,
		ResultType:      resultType,
		RowCount:        rowCount,
		ColumnCount:     len(columns),
		Columns:         datatypes.JSON(columnsJSON),
		DataPreview:     datatypes.JSON(previewJSON),
		ExecutionTimeMs: executionMs,
	}, nil
}
