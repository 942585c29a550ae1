package models

import (
	"time"

	"gorm.io/gorm"
)

// Fee is a billing template: how much an enrollment in a group costs.
// Treated as immutable reference data once obligations point at it.
type Fee struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	Name      string     `gorm:"type:varchar(255)" json:"name"`
	Amount    float64    `gorm:"type:decimal(15,2)" json:"amount"`
	StartDate *time.Time `json:"start_date"` // applicability window
	EndDate   *time.Time `json:"end_date"`
}
