package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Member roles, used for analytics result visibility.
const (
	RoleAdmin             = "admin"
	RoleBusinessOwner     = "business_owner"
	RoleAnalyst           = "analyst"
	RoleOperationsManager = "operations_manager"
)

type CompanyMember struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_company_user" json:"company_id"`
	UserID    uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_member_company_user" json:"user_id"`
	Role      string    `gorm:"type:varchar(50);not null" json:"role"`

	User User `gorm:"foreignKey:UserID" json:"user,omitempty"`
}
