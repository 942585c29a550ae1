package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
	"tutorcenter_backoffice/internal/services"
)

type ObligationHandler struct {
	db          *gorm.DB
	cache       *services.RedisCache
	obligations *services.ObligationService
}

func NewObligationHandler(db *gorm.DB, cache *services.RedisCache, obligations *services.ObligationService) *ObligationHandler {
	return &ObligationHandler{db: db, cache: cache, obligations: obligations}
}

// ListObligations returns obligations with optional filters
func (h *ObligationHandler) ListObligations(c echo.Context) error {
	query := h.db.Model(&models.Obligation{}).
		Preload("Student").Preload("Fee").Preload("Group")

	if studentID := c.QueryParam("student_id"); studentID != "" {
		query = query.Where("student_id = ?", studentID)
	}
	if groupID := c.QueryParam("group_id"); groupID != "" {
		query = query.Where("group_id = ?", groupID)
	}
	if status := c.QueryParam("status"); status != "" {
		query = query.Where("status = ?", status)
	}

	var obligations []models.Obligation
	if err := query.Order("due_date asc").Find(&obligations).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch obligations")
	}
	return c.JSON(http.StatusOK, obligations)
}

type generateRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
	GroupID   uint `json:"group_id" validate:"required"`
}

// Generate creates the obligation for one enrollment. Conflicts surface as
// 409 so idempotent callers can treat them as success.
func (h *ObligationHandler) Generate(c echo.Context) error {
	var req generateRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	obligation, err := h.obligations.GenerateForEnrollment(req.StudentID, req.GroupID)
	if err != nil {
		return err
	}
	h.invalidateDashboard(c)
	return c.JSON(http.StatusCreated, obligation)
}

// GenerateForGroup bulk-creates obligations for a whole group, best effort
func (h *ObligationHandler) GenerateForGroup(c echo.Context) error {
	groupID, err := strconv.ParseUint(c.Param("groupId"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid group id")
	}

	result, err := h.obligations.GenerateForGroup(uint(groupID))
	if err != nil {
		return err
	}
	h.invalidateDashboard(c)
	return c.JSON(http.StatusOK, result)
}

// Recalculate re-derives every active obligation from its transactions
func (h *ObligationHandler) Recalculate(c echo.Context) error {
	result, err := h.obligations.RecalculateAll()
	if err != nil {
		return err
	}
	h.invalidateDashboard(c)
	return c.JSON(http.StatusOK, result)
}

// SweepNow triggers the overdue sweep outside its schedule
func (h *ObligationHandler) SweepNow(c echo.Context) error {
	count, err := h.obligations.SweepOverdue(time.Now())
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Sweep failed")
	}
	h.invalidateDashboard(c)
	return c.JSON(http.StatusOK, map[string]int{"transitioned": count})
}

// DeleteObligation soft-deletes an obligation (explicit removal only; the
// engine itself never deletes)
func (h *ObligationHandler) DeleteObligation(c echo.Context) error {
	var obligation models.Obligation
	if err := h.db.First(&obligation, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Obligation not found")
	}
	if err := h.db.Delete(&obligation).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete obligation")
	}
	h.invalidateDashboard(c)
	return c.NoContent(http.StatusNoContent)
}

func (h *ObligationHandler) invalidateDashboard(c echo.Context) {
	if h.cache != nil {
		_ = h.cache.Delete(c.Request().Context(), dashboardCacheKey)
	}
}
