package models

import (
	"time"

	"gorm.io/gorm"
)

// GroupMember links a student to a group. Creating one is the enrollment
// event that triggers obligation generation.
type GroupMember struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	GroupID    uint      `gorm:"index:idx_group_members_group_student,priority:1" json:"group_id"`
	StudentID  uint      `gorm:"index:idx_group_members_group_student,priority:2" json:"student_id"`
	EnrolledAt time.Time `json:"enrolled_at"`

	// Relationships
	Group   Group   `gorm:"foreignKey:GroupID" json:"group,omitempty"`
	Student Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
}
