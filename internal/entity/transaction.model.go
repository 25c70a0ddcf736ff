package entity

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Transaction is one canonical transaction line, normalized from a tenant
// CSV. Rows are written once by the normalizer and read-only afterwards.
type Transaction struct {
	gorm.Model
	ID        uuid.UUID `gorm:"type:uuid;default:uuid_generate_v4();primary_key" json:"id"`
	CompanyID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tx_identity;index:idx_tx_company_date" json:"company_id"`
	UploadID  uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_tx_identity" json:"upload_id"`

	TransactionID      string    `gorm:"type:varchar(100);not null;uniqueIndex:idx_tx_identity" json:"transaction_id"`
	Date               time.Time `gorm:"type:date;not null;index:idx_tx_company_date" json:"date"`
	ProductID          string    `gorm:"type:varchar(100);not null;index" json:"product_id"`
	ProductDescription string    `gorm:"type:varchar(500)" json:"product_description"`
	Quantity           float64   `gorm:"type:decimal(10,2);not null" json:"quantity"`
	UnitPrice          float64   `gorm:"type:decimal(12,2);not null" json:"unit_price"`
	Total              float64   `gorm:"type:decimal(12,2);not null" json:"total"`

	Cost       *float64 `gorm:"type:decimal(12,2)" json:"cost"`
	CustomerID string   `gorm:"type:varchar(100)" json:"customer_id"`
	Category   string   `gorm:"type:varchar(100)" json:"category"`

	// Calendar features derived by the normalizer. Weekday is Monday=0.
	Hour    *int `json:"hour"`
	Weekday *int `json:"weekday"`
	Month   *int `json:"month"`
}
