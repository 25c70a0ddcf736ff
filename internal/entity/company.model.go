package entity

import (
	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

type Company struct {
	gorm.Model
	ID       uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	Name     string    `gorm:"type:varchar(255);not null" json:"name"`
	Industry string    `gorm:"type:varchar(50);default:'retail'" json:"industry"`
	Location string    `gorm:"type:varchar(100);default:'Santiago, Chile'" json:"location"`
	Currency string    `gorm:"type:varchar(10);default:'CLP'" json:"currency"`

	// ColumnConfig maps canonical field names to CSV column declarations.
	// Empty entries fall back to the default Chilean retail export layout.
	ColumnConfig datatypes.JSON `gorm:"type:jsonb" json:"column_config"`

	// Analysis parameters used by the insight derivations.
	TopProductsThreshold float64 `gorm:"type:decimal(3,2);default:0.20" json:"top_products_threshold"`
	DeadStockDays        int     `gorm:"default:30" json:"dead_stock_days"`

	Members []CompanyMember `gorm:"foreignKey:CompanyID" json:"members,omitempty"`
	Uploads []DataUpload    `gorm:"foreignKey:CompanyID" json:"uploads,omitempty"`
}
