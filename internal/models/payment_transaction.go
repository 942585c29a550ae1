package models

import (
	"time"

	"gorm.io/gorm"
)

// PayMethod is how a payment was taken
type PayMethod string

const (
	PayMethodCash         PayMethod = "cash"
	PayMethodBankTransfer PayMethod = "bank_transfer"
	PayMethodEWallet      PayMethod = "e_wallet"
	PayMethodQRIS         PayMethod = "qris"
	PayMethodOther        PayMethod = "other"
)

// PaymentTransaction records one payment event for a (student, fee) pair.
// Rows are never hard deleted; removal sets DeletedAt and the obligation
// totals are re-derived from what remains.
type PaymentTransaction struct {
	ID        uint           `gorm:"primarykey" json:"id"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"deleted_at,omitempty"`

	FeeID     uint  `gorm:"index:idx_payment_transactions_student_fee,priority:2" json:"fee_id"`
	StudentID uint  `gorm:"index:idx_payment_transactions_student_fee,priority:1" json:"student_id"`
	GroupID   *uint `gorm:"index" json:"group_id"`

	Amount   float64 `gorm:"type:decimal(15,2)" json:"amount"`
	Discount float64 `gorm:"type:decimal(15,2)" json:"discount"`
	// GeneratedAmount is the amount owed at the time this transaction was
	// recorded, kept for audit.
	GeneratedAmount float64 `gorm:"type:decimal(15,2)" json:"generated_amount"`

	PayMethod   PayMethod     `gorm:"type:varchar(50);default:'cash'" json:"pay_method"`
	ReferenceNo string        `gorm:"type:varchar(100);index" json:"reference_no"`
	DueDate     *time.Time    `json:"due_date"`
	PaidAt      time.Time     `json:"paid_at"`
	Status      PaymentStatus `gorm:"type:varchar(20);default:'PENDING'" json:"status"`

	// Relationships
	Fee     Fee     `gorm:"foreignKey:FeeID" json:"fee,omitempty"`
	Student Student `gorm:"foreignKey:StudentID" json:"student,omitempty"`
	Group   *Group  `gorm:"foreignKey:GroupID" json:"group,omitempty"`
}

// DeriveStatus recomputes the transaction-level status against now
func (t PaymentTransaction) DeriveStatus(now time.Time) PaymentStatus {
	return DeriveStatus(t.GeneratedAmount, t.Amount+t.Discount, t.DueDate, now)
}
