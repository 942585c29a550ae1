package models

import "time"

// PaymentStatus is the derived lifecycle status of a transaction or obligation
type PaymentStatus string

const (
	PaymentStatusPending PaymentStatus = "PENDING"
	PaymentStatusPartial PaymentStatus = "PARTIAL"
	PaymentStatusPaid    PaymentStatus = "PAID"
	PaymentStatusOverdue PaymentStatus = "OVERDUE"
)

// DeriveStatus maps (amountDue, amountPaid, dueDate, now) to a PaymentStatus.
// It is the single source of truth for status: both the transaction-level and
// the obligation-level status fields are computed through it, never by hand.
//
// Rules:
//   - PAID wins over time: a fully covered (or overpaid) obligation is never
//     flagged OVERDUE, no matter how far past the due date it is.
//   - a nil dueDate never produces OVERDUE.
func DeriveStatus(amountDue, amountPaid float64, dueDate *time.Time, now time.Time) PaymentStatus {
	outstanding := amountDue - amountPaid
	isPastDue := dueDate != nil && now.After(*dueDate)

	if amountPaid == 0 {
		if isPastDue {
			return PaymentStatusOverdue
		}
		return PaymentStatusPending
	}

	if outstanding <= 0 {
		return PaymentStatusPaid
	}

	if isPastDue {
		return PaymentStatusOverdue
	}
	return PaymentStatusPartial
}
