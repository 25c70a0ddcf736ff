package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Upload statuses. The ingest service drives pending -> validating ->
// processing -> completed | failed.
const (
	UploadStatusPending    = "pending"
	UploadStatusValidating = "validating"
	UploadStatusProcessing = "processing"
	UploadStatusCompleted  = "completed"
	UploadStatusFailed     = "failed"
)

type DataUpload struct {
	gorm.Model
	ID           uuid.UUID  `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID    uuid.UUID  `gorm:"type:uuid;not null;index:idx_upload_company_status" json:"company_id"`
	UploadedByID *uuid.UUID `gorm:"type:uuid" json:"uploaded_by_id"`

	FileName string `gorm:"type:varchar(255);not null" json:"file_name"`
	FileSize int64  `gorm:"not null" json:"file_size"`
	FilePath string `gorm:"type:varchar(500);not null" json:"file_path"`

	Status       string `gorm:"type:varchar(20);default:'pending';index:idx_upload_company_status" json:"status"`
	RowCount     *int   `json:"row_count"`
	ErrorMessage string `gorm:"type:text" json:"error_message"`

	ProcessingMetadata datatypes.JSON `gorm:"type:jsonb" json:"processing_metadata"`

	ProcessingStartedAt   *time.Time `json:"processing_started_at"`
	ProcessingCompletedAt *time.Time `json:"processing_completed_at"`

	AnalysisStartDate *time.Time `gorm:"type:date" json:"analysis_start_date"`
	AnalysisEndDate   *time.Time `gorm:"type:date" json:"analysis_end_date"`

	Jobs []ProcessingJob `gorm:"foreignKey:UploadID" json:"jobs,omitempty"`
}
