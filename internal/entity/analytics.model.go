package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Analytics result types derived after a pipeline walk.
const (
	AnalyticsKindKPI       = "kpi"
	AnalyticsKindAlert     = "alert"
	AnalyticsKindPareto    = "pareto"
	AnalyticsKindInventory = "inventory"
	AnalyticsKindPeakTimes = "peak_times"
)

type AnalyticsResult struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;index:idx_analytics_company_type" json:"company_id"`
	UploadID  uuid.UUID `gorm:"type:uuid;not null;index" json:"upload_id"`

	ResultType string         `gorm:"type:varchar(20);not null;index:idx_analytics_company_type" json:"result_type"`
	Title      string         `gorm:"type:varchar(200);not null" json:"title"`
	Value      datatypes.JSON `gorm:"type:jsonb;not null" json:"value"`

	// Empty list means visible to every member role.
	VisibleToRoles datatypes.JSON `gorm:"type:jsonb" json:"visible_to_roles"`

	AnalysisDate *time.Time `gorm:"type:date" json:"analysis_date"`
}
