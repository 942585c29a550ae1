package services

import (
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
)

// ObligationTermDays is how long after enrollment an obligation falls due.
// Billing is always the full fee amount; pro-rating by elapsed academic-year
// time is a possible future refinement of this constant.
const ObligationTermDays = 30

// ObligationService owns the obligation aggregate: generation at enrollment,
// recomputation when payments land, and the overdue sweep.
type ObligationService struct {
	db *gorm.DB
}

func NewObligationService(db *gorm.DB) *ObligationService {
	return &ObligationService{db: db}
}

// BatchFailure identifies one row a best-effort batch could not process
type BatchFailure struct {
	StudentID    uint   `json:"student_id,omitempty"`
	ObligationID uint   `json:"obligation_id,omitempty"`
	Reason       string `json:"reason"`
}

// BatchResult carries the successes and the per-row failures of a bulk
// operation. A bad row never aborts the rest of the batch.
type BatchResult struct {
	SuccessCount int                 `json:"success_count"`
	Created      []models.Obligation `json:"created,omitempty"`
	Failures     []BatchFailure      `json:"failures,omitempty"`
}

// GenerateForEnrollment creates the obligation for one student's enrollment
// into a billable group, seeding totals from any transactions recorded
// before the obligation existed.
func (s *ObligationService) GenerateForEnrollment(studentID, groupID uint) (*models.Obligation, error) {
	var student models.Student
	if err := s.db.Where("is_active = ?", true).First(&student, studentID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: student %d", ErrNotFound, studentID)
		}
		return nil, err
	}

	var group models.Group
	if err := s.db.Preload("Fee").Preload("AcademicYear").
		Where("is_active = ?", true).First(&group, groupID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
		}
		return nil, err
	}
	if group.Fee.ID == 0 {
		return nil, fmt.Errorf("%w: fee for group %d", ErrNotFound, groupID)
	}
	if group.AcademicYear.ID == 0 {
		return nil, fmt.Errorf("%w: academic year for group %d", ErrNotFound, groupID)
	}

	// Pre-check on the obligation key. Not atomic with the insert; the
	// partial unique index is the actual backstop below.
	var count int64
	if err := s.db.Model(&models.Obligation{}).
		Where("student_id = ? AND fee_id = ? AND academic_year_id = ? AND group_id = ?",
			studentID, group.FeeID, group.AcademicYearID, groupID).
		Count(&count).Error; err != nil {
		return nil, err
	}
	if count > 0 {
		return nil, fmt.Errorf("%w: student %d, group %d", ErrConflict, studentID, groupID)
	}

	enrollmentDate := time.Now()
	var member models.GroupMember
	if err := s.db.Where("group_id = ? AND student_id = ?", groupID, studentID).
		First(&member).Error; err == nil {
		enrollmentDate = member.EnrolledAt
	}

	// Back-fill: payments recorded before the obligation existed still count
	paid, discount, err := s.sumTransactions(studentID, group.FeeID)
	if err != nil {
		return nil, err
	}

	dueDate := enrollmentDate.AddDate(0, 0, ObligationTermDays)
	obligation := models.Obligation{
		StudentID:         studentID,
		FeeID:             group.FeeID,
		AcademicYearID:    group.AcademicYearID,
		GroupID:           &group.ID,
		TotalAmountDue:    group.Fee.Amount,
		TotalAmountPaid:   paid,
		TotalDiscount:     discount,
		OutstandingAmount: group.Fee.Amount - paid - discount,
		DueDate:           &dueDate,
		EnrollmentDate:    enrollmentDate,
	}
	obligation.Status = obligation.DeriveStatus(time.Now())

	if err := s.db.Create(&obligation).Error; err != nil {
		if isDuplicateKeyError(err) {
			return nil, fmt.Errorf("%w: student %d, group %d", ErrConflict, studentID, groupID)
		}
		return nil, err
	}
	return &obligation, nil
}

// GenerateForGroup creates obligations for every current member of the
// group, best effort. Students who already have one are skipped; other
// per-student failures are collected, not fatal.
func (s *ObligationService) GenerateForGroup(groupID uint) (*BatchResult, error) {
	var members []models.GroupMember
	if err := s.db.Where("group_id = ?", groupID).Find(&members).Error; err != nil {
		return nil, err
	}
	if len(members) == 0 {
		// distinguish "empty group" from "no group"
		var group models.Group
		if err := s.db.First(&group, groupID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return nil, fmt.Errorf("%w: group %d", ErrNotFound, groupID)
			}
			return nil, err
		}
	}

	result := &BatchResult{}
	for _, m := range members {
		obligation, err := s.GenerateForEnrollment(m.StudentID, groupID)
		if err != nil {
			if errors.Is(err, ErrConflict) {
				continue // already billed
			}
			log.Printf("generate obligation: student %d group %d: %v", m.StudentID, groupID, err)
			result.Failures = append(result.Failures, BatchFailure{
				StudentID: m.StudentID,
				Reason:    err.Error(),
			})
			continue
		}
		result.Created = append(result.Created, *obligation)
		result.SuccessCount++
	}
	return result, nil
}

// ApplyPayment re-derives the obligation for (student, fee, academic year,
// group) from its source transactions. Pure recomputation: running it twice
// with the same transactions yields the same row, so it is safe to retry.
//
// When no obligation exists yet and a group is known, one is generated
// first. With no group to resolve a fee from, the update is skipped and
// logged; the next enrollment-time generation picks the payment up.
func (s *ObligationService) ApplyPayment(studentID, feeID, academicYearID uint, groupID *uint) (*models.Obligation, error) {
	query := s.db.Where("student_id = ? AND fee_id = ? AND academic_year_id = ?",
		studentID, feeID, academicYearID)
	if groupID != nil {
		query = query.Where("group_id = ?", *groupID)
	}

	var obligation models.Obligation
	err := query.First(&obligation).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		if groupID == nil {
			log.Printf("apply payment: no obligation for student %d fee %d and no group given, skipping", studentID, feeID)
			return nil, nil
		}
		created, genErr := s.GenerateForEnrollment(studentID, *groupID)
		if genErr != nil {
			return nil, genErr
		}
		obligation = *created
	} else if err != nil {
		return nil, err
	}

	if err := s.recompute(&obligation, time.Now()); err != nil {
		return nil, err
	}
	return &obligation, nil
}

// RecalculateAll re-derives every active obligation from its transactions,
// best effort. Useful after bulk imports or manual corrections.
func (s *ObligationService) RecalculateAll() (*BatchResult, error) {
	var obligations []models.Obligation
	if err := s.db.Find(&obligations).Error; err != nil {
		return nil, err
	}

	now := time.Now()
	result := &BatchResult{}
	for i := range obligations {
		if err := s.recompute(&obligations[i], now); err != nil {
			log.Printf("recalculate obligation %d: %v", obligations[i].ID, err)
			result.Failures = append(result.Failures, BatchFailure{
				ObligationID: obligations[i].ID,
				Reason:       err.Error(),
			})
			continue
		}
		result.SuccessCount++
	}
	return result, nil
}

// SweepOverdue re-evaluates every active transaction and obligation whose
// due date has passed and promotes its status to OVERDUE where the derived
// status differs from the stored one. One-directional: a sweep never
// un-overdues a row, only ApplyPayment corrects downward. Returns the
// number of rows transitioned; per-row failures are logged and skipped.
func (s *ObligationService) SweepOverdue(now time.Time) (int, error) {
	transitioned := 0

	var transactions []models.PaymentTransaction
	if err := s.db.
		Where("due_date IS NOT NULL AND due_date < ? AND status NOT IN ?",
			now, []models.PaymentStatus{models.PaymentStatusPaid, models.PaymentStatusOverdue}).
		Find(&transactions).Error; err != nil {
		return 0, err
	}
	for i := range transactions {
		derived := transactions[i].DeriveStatus(now)
		if derived == transactions[i].Status {
			continue
		}
		if err := s.db.Model(&transactions[i]).Update("status", derived).Error; err != nil {
			log.Printf("sweep: transaction %d: %v", transactions[i].ID, err)
			continue
		}
		transitioned++
	}

	var obligations []models.Obligation
	if err := s.db.
		Where("due_date IS NOT NULL AND due_date < ? AND status <> ?",
			now, models.PaymentStatusPaid).
		Find(&obligations).Error; err != nil {
		return transitioned, err
	}
	for i := range obligations {
		derived := obligations[i].DeriveStatus(now)
		if derived == obligations[i].Status {
			continue
		}
		if err := s.db.Model(&obligations[i]).Update("status", derived).Error; err != nil {
			log.Printf("sweep: obligation %d: %v", obligations[i].ID, err)
			continue
		}
		transitioned++
	}

	return transitioned, nil
}

// recompute rebuilds the derived fields of one obligation from the active
// transactions for its (student, fee) pair and persists them.
func (s *ObligationService) recompute(obligation *models.Obligation, now time.Time) error {
	paid, discount, err := s.sumTransactions(obligation.StudentID, obligation.FeeID)
	if err != nil {
		return err
	}

	obligation.TotalAmountPaid = paid
	obligation.TotalDiscount = discount
	obligation.OutstandingAmount = obligation.TotalAmountDue - paid - discount
	obligation.Status = obligation.DeriveStatus(now)

	return s.db.Model(obligation).Updates(map[string]interface{}{
		"total_amount_paid":  obligation.TotalAmountPaid,
		"total_discount":     obligation.TotalDiscount,
		"outstanding_amount": obligation.OutstandingAmount,
		"status":             obligation.Status,
	}).Error
}

func (s *ObligationService) sumTransactions(studentID, feeID uint) (paid, discount float64, err error) {
	row := struct {
		Paid     float64
		Discount float64
	}{}
	err = s.db.Model(&models.PaymentTransaction{}).
		Select("COALESCE(SUM(amount), 0) AS paid, COALESCE(SUM(discount), 0) AS discount").
		Where("student_id = ? AND fee_id = ?", studentID, feeID).
		Scan(&row).Error
	return row.Paid, row.Discount, err
}

func isDuplicateKeyError(err error) bool {
	return errors.Is(err, gorm.ErrDuplicatedKey) ||
		strings.Contains(err.Error(), "duplicate key") || // postgres
		strings.Contains(err.Error(), "UNIQUE constraint failed") // sqlite, tests
}
