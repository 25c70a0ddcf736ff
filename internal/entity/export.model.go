package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	ExportStatusPending   = "pending"
	ExportStatusCompleted = "completed"
	ExportStatusFailed    = "failed"
)

// DataExport records a request to serialize a job's results. Rendering the
// workbook itself is an external concern; this entity plus the model-subset
// result query is the boundary.
type DataExport struct {
	gorm.Model
	ID            uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID     uuid.UUID  `gorm:"type:uuid;not null;index" json:"company_id"`
	JobID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"job_id"`
	RequestedByID *uuid.UUID `gorm:"type:uuid" json:"requested_by_id"`

	ExportFormat   string         `gorm:"type:varchar(20);default:'xlsx'" json:"export_format"`
	ModelsIncluded datatypes.JSON `gorm:"type:jsonb" json:"models_included"`

	FilePath      string `gorm:"type:varchar(500)" json:"file_path"`
	FileSizeBytes *int64 `json:"file_size_bytes"`
	DownloadURL   string `gorm:"type:varchar(500)" json:"download_url"`

	Status       string `gorm:"type:varchar(20);default:'pending'" json:"status"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	CompletedAt *time.Time `json:"completed_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}
