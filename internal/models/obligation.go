package models

import (
	"time"

	"gorm.io/gorm"
)

// Obligation is the aggregate financial obligation for one student's
// enrollment: one row per (student, fee, academic year, group) among
// non-deleted rows. Totals and status are always derived from the
// transaction rows, never mutated independently.
type Obligation struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	StudentID      uint  `gorm:"uniqueIndex:uniq_obligations_key,where:deleted_at IS NULL,priority:1" json:"student_id"`
	FeeID          uint  `gorm:"uniqueIndex:uniq_obligations_key,where:deleted_at IS NULL,priority:2" json:"fee_id"`
	AcademicYearID uint  `gorm:"uniqueIndex:uniq_obligations_key,where:deleted_at IS NULL,priority:3" json:"academic_year_id"`
	GroupID        *uint `gorm:"uniqueIndex:uniq_obligations_key,where:deleted_at IS NULL,priority:4" json:"group_id"`

	TotalAmountDue  float64 `gorm:"type:decimal(15,2)" json:"total_amount_due"`
	TotalAmountPaid float64 `gorm:"type:decimal(15,2)" json:"total_amount_paid"`
	TotalDiscount   float64 `gorm:"type:decimal(15,2)" json:"total_discount"`
	// OutstandingAmount = due - paid - discount. Not floor-clamped: an
	// overpayment shows as a negative value for audit. Status logic gates
	// on <= 0, never on a clamped copy.
	OutstandingAmount float64 `gorm:"type:decimal(15,2)" json:"outstanding_amount"`

	Status         PaymentStatus `gorm:"type:varchar(20);default:'PENDING';index" json:"status"`
	DueDate        *time.Time    `json:"due_date"`
	EnrollmentDate time.Time     `json:"enrollment_date"`

	// Relationships
	Student      Student      `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Fee          Fee          `gorm:"foreignKey:FeeID" json:"fee,omitempty"`
	AcademicYear AcademicYear `gorm:"foreignKey:AcademicYearID" json:"academic_year,omitempty"`
	Group        *Group       `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// CoveredAmount is what counts toward settling the obligation
func (o Obligation) CoveredAmount() float64 {
	return o.TotalAmountPaid + o.TotalDiscount
}

// DeriveStatus recomputes the obligation-level status against now
func (o Obligation) DeriveStatus(now time.Time) PaymentStatus {
	return DeriveStatus(o.TotalAmountDue, o.CoveredAmount(), o.DueDate, now)
}
