package models

import (
	"time"

	"gorm.io/gorm"
)

// Student represents a student enrolled at the center
type Student struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name         string `gorm:"type:varchar(255)" json:"name"`
	Phone        string `gorm:"type:varchar(50)" json:"phone"`
	Email        string `gorm:"type:varchar(255);index" json:"email"`
	GuardianName string `gorm:"type:varchar(255)" json:"guardian_name"`
	IsActive     bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Memberships  []GroupMember        `gorm:"foreignKey:StudentID" json:"memberships,omitempty"`
	Transactions []PaymentTransaction `gorm:"foreignKey:StudentID" json:"transactions,omitempty"`
	Obligations  []Obligation         `gorm:"foreignKey:StudentID" json:"obligations,omitempty"`
}
