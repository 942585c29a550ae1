package models

import (
	"time"

	"gorm.io/gorm"
)

// Group is a billable tutoring group tied to one fee and one academic year
type Group struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name           string `gorm:"type:varchar(255)" json:"name"`
	FeeID          uint   `gorm:"index" json:"fee_id"`
	AcademicYearID uint   `gorm:"index" json:"academic_year_id"`
	IsActive       bool   `gorm:"default:true" json:"is_active"`

	// Relationships
	Fee          Fee           `gorm:"foreignKey:FeeID" json:"fee,omitempty"`
	AcademicYear AcademicYear  `gorm:"foreignKey:AcademicYearID" json:"academic_year,omitempty"`
	Members      []GroupMember `gorm:"foreignKey:GroupID" json:"members,omitempty"`
}
