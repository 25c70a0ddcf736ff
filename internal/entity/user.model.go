package entity

import (
	"github.com/google/uuid"
	"gorm.io/gorm"
)

type User struct {
	gorm.Model
	ID        uuid.UUID `json:"id" gorm:"type:uuid;primary_key;default:uuid_generate_v4()"`
	Email     string    `json:"email" gorm:"type:varchar(100);uniqueIndex"`
	FirstName string    `json:"first_name" gorm:"type:varchar(100)"`
	LastName  string    `json:"last_name" gorm:"type:varchar(100)"`

	PasswordHash string `json:"-" gorm:"type:varchar(255)"`

	Memberships []CompanyMember `json:"memberships,omitempty" gorm:"foreignKey:UserID"`
}
