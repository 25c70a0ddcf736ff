package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Job statuses. queued -> running happens exactly once; completed, failed
// and cancelled are terminal.
const (
	JobStatusQueued    = "queued"
	JobStatusRunning   = "running"
	JobStatusCompleted = "completed"
	JobStatusFailed    = "failed"
	JobStatusCancelled = "cancelled"
)

type ProcessingJob struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index" json:"company_id"`
	UploadID  uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`

	ModelsToExecute datatypes.JSON `gorm:"type:jsonb" json:"models_to_execute"`
	ModelsCompleted datatypes.JSON `gorm:"type:jsonb" json:"models_completed"`
	CurrentModel    string         `gorm:"type:varchar(100)" json:"current_model"`
	Progress        int            `gorm:"default:0" json:"progress"`
	Status          string         `gorm:"type:varchar(20);default:'queued';index" json:"status"`

	ErrorMessage string `gorm:"type:text" json:"error_message"`
	ErrorDetail  string `gorm:"type:text" json:"error_detail"`

	ProcessingTimeSeconds *float64 `json:"processing_time_seconds"`

	// Worker claim bookkeeping.
	Attempts    int        `gorm:"default:0" json:"attempts"`
	HeartbeatAt *time.Time `json:"heartbeat_at"`

	StartedAt   *time.Time `json:"started_at"`
	CompletedAt *time.Time `json:"completed_at"`

	Results []ModelResult `gorm:"foreignKey:JobID" json:"results,omitempty"`
}

// IsComplete reports whether the job reached a terminal status.
func (j *ProcessingJob) IsComplete() bool {
	switch j.Status {
	case JobStatusCompleted, JobStatusFailed, JobStatusCancelled:
		return true
	}
	return false
}
