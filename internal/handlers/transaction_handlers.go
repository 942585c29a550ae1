package handlers

import (
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
	"tutorcenter_backoffice/internal/services"
)

type TransactionHandler struct {
	db          *gorm.DB
	cache       *services.RedisCache
	obligations *services.ObligationService
}

func NewTransactionHandler(db *gorm.DB, cache *services.RedisCache, obligations *services.ObligationService) *TransactionHandler {
	return &TransactionHandler{db: db, cache: cache, obligations: obligations}
}

type transactionRequest struct {
	StudentID uint             `json:"student_id" validate:"required"`
	FeeID     uint             `json:"fee_id" validate:"required"`
	GroupID   *uint            `json:"group_id"`
	Amount    float64          `json:"amount" validate:"required,gt=0"`
	Discount  float64          `json:"discount" validate:"gte=0"`
	PayMethod models.PayMethod `json:"pay_method" validate:"omitempty,oneof=cash bank_transfer e_wallet qris other"`
	DueDate   *time.Time       `json:"due_date"`
	PaidAt    *time.Time       `json:"paid_at"`
}

// ListTransactions returns transactions with optional filters
func (h *TransactionHandler) ListTransactions(c echo.Context) error {
	query := h.db.Model(&models.PaymentTransaction{}).Preload("Student").Preload("Fee")

	if studentID := c.QueryParam("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if feeID := c.QueryParam("fee_id"); feeID != "" {
		query = query.Where("fee_id = ?", feeID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if start := c.QueryParam("start"); start != "" {
		if t, err := time.Parse("2006-01-02", start); err == nil {
			query = query.Where("paid_at >= ?", t)
		}
	}
	if end := c.QueryParam("end"); end != "" {
		if t, err := time.Parse("2006-01-02", end); err == nil {
			query = query.Where("paid_at < ?", t.AddDate(0, 0, 1))
		}
	}

	var transactions []models.PaymentTransaction
	if err := query.Order("paid_at desc").Find(&transactions).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch transactions")
	}
	return c.JSON(http.StatusOK, transactions)
}

// CreateTransaction records one payment and recomputes the obligation it
// rolls up into
func (h *TransactionHandler) CreateTransaction(c echo.Context) error {
	var req transactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var student models.Student
	if err := h.db.First(&student, req.StudentID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Student not found")
	}
	var fee models.Fee
	if err := h.db.First(&fee, req.FeeID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Fee not found")
	}

	paidAt := time.Now()
	if req.PaidAt != nil {
		paidAt = *req.PaidAt
	}
	payMethod := req.PayMethod
	if payMethod == "" {
		payMethod = models.PayMethodCash
	}

	transaction := models.PaymentTransaction{
		StudentID:       req.StudentID,
		FeeID:           req.FeeID,
		GroupID:         req.GroupID,
		Amount:          req.Amount,
		Discount:        req.Discount,
		GeneratedAmount: fee.Amount,
		PayMethod:       payMethod,
		ReferenceNo:     uuid.New().String(),
		DueDate:         req.DueDate,
		PaidAt:          paidAt,
	}
	transaction.Status = transaction.DeriveStatus(time.Now())

	if err := h.db.Create(&transaction).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to record transaction")
	}

	if err := h.recomputeObligation(c, &transaction); err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, transaction)
}

// UpdateTransaction amends a recorded payment and recomputes the obligation
func (h *TransactionHandler) UpdateTransaction(c echo.Context) error {
	var transaction models.PaymentTransaction
	if err := h.db.First(&transaction, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Transaction not found")
	}

	var req transactionRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	transaction.Amount = req.Amount
	transaction.Discount = req.Discount
	if req.PayMethod != "" {
		transaction.PayMethod = req.PayMethod
	}
	transaction.DueDate = req.DueDate
	if req.PaidAt != nil {
		transaction.PaidAt = *req.PaidAt
	}
	transaction.Status = transaction.DeriveStatus(time.Now())

	if err := h.db.Save(&transaction).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update transaction")
	}

	if err := h.recomputeObligation(c, &transaction); err != nil {
		return err
	}

	return c.JSON(http.StatusOK, transaction)
}

// DeleteTransaction soft-deletes the payment record and re-derives the
// obligation totals from what remains. The row is never physically removed.
func (h *TransactionHandler) DeleteTransaction(c echo.Context) error {
	var transaction models.PaymentTransaction
	if err := h.db.First(&transaction, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Transaction not found")
	}

	if err := h.db.Delete(&transaction).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete transaction")
	}

	if err := h.recomputeObligation(c, &transaction); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}

func (h *TransactionHandler) recomputeObligation(c echo.Context, t *models.PaymentTransaction) error {
	academicYearID, err := h.resolveAcademicYear(t)
	if err != nil {
		return err
	}

	if _, err := h.obligations.ApplyPayment(t.StudentID, t.FeeID, academicYearID, t.GroupID); err != nil {
		return err
	}
	if h.cache != nil {
		_ = h.cache.Delete(c.Request().Context(), dashboardCacheKey)
	}
	return nil
}

// resolveAcademicYear finds the academic year the payment belongs to:
// through the group when one was supplied, otherwise whichever active
// obligation already references this (student, fee).
func (h *TransactionHandler) resolveAcademicYear(t *models.PaymentTransaction) (uint, error) {
	if t.GroupID != nil {
		var group models.Group
		if err := h.db.First(&group, *t.GroupID).Error; err == nil {
			return group.AcademicYearID, nil
		}
	}
	var obligation models.Obligation
	if err := h.db.Where("student_id = ? AND fee_id = ?", t.StudentID, t.FeeID).
		First(&obligation).Error; err == nil {
		return obligation.AcademicYearID, nil
	}
	// No group and no obligation yet: ApplyPayment logs and skips this case
	return 0, nil
}
