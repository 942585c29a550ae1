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

type GroupHandler struct {
	db          *gorm.DB
	cache       *services.RedisCache
	obligations *services.ObligationService
}

func NewGroupHandler(db *gorm.DB, cache *services.RedisCache, obligations *services.ObligationService) *GroupHandler {
	return &GroupHandler{db: db, cache: cache, obligations: obligations}
}

type groupRequest struct {
	Name           string `json:"name" validate:"required"`
	FeeID          uint   `json:"fee_id" validate:"required"`
	AcademicYearID uint   `json:"academic_year_id" validate:"required"`
	IsActive       *bool  `json:"is_active"`
}

func (h *GroupHandler) ListGroups(c echo.Context) error {
	var groups []models.Group
	if err := h.db.Preload("Fee").Preload("AcademicYear").Find(&groups).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch groups")
	}
	return c.JSON(http.StatusOK, groups)
}

func (h *GroupHandler) GetGroup(c echo.Context) error {
	var group models.Group
	if err := h.db.Preload("Fee").Preload("AcademicYear").Preload("Members.Student").
		First(&group, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Group not found")
	}
	return c.JSON(http.StatusOK, group)
}

func (h *GroupHandler) CreateGroup(c echo.Context) error {
	var req groupRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var fee models.Fee
	if err := h.db.First(&fee, req.FeeID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Fee not found")
	}
	var year models.AcademicYear
	if err := h.db.First(&year, req.AcademicYearID).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Academic year not found")
	}

	group := models.Group{
		Name:           req.Name,
		FeeID:          req.FeeID,
		AcademicYearID: req.AcademicYearID,
		IsActive:       true,
	}
	if req.IsActive != nil {
		group.IsActive = *req.IsActive
	}
	if err := h.db.Create(&group).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create group")
	}
	return c.JSON(http.StatusCreated, group)
}

type addMemberRequest struct {
	StudentID uint `json:"student_id" validate:"required"`
}

// AddMember enrolls a student into the group and generates their payment
// obligation. A 409 from the generator means the enrollment was already
// billed; the membership row is still created.
func (h *GroupHandler) AddMember(c echo.Context) error {
	groupID, err := strconv.ParseUint(c.Param("id"), 10, 32)
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "invalid group id")
	}

	var req addMemberRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	var existing int64
	h.db.Model(&models.GroupMember{}).
		Where("group_id = ? AND student_id = ?", groupID, req.StudentID).
		Count(&existing)
	if existing > 0 {
		return echo.NewHTTPError(http.StatusConflict, "Student is already a member of this group")
	}

	member := models.GroupMember{
		GroupID:    uint(groupID),
		StudentID:  req.StudentID,
		EnrolledAt: time.Now(),
	}
	if err := h.db.Create(&member).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to enroll student")
	}

	obligation, err := h.obligations.GenerateForEnrollment(req.StudentID, uint(groupID))
	if err != nil {
		return err
	}
	h.invalidateDashboard(c)

	return c.JSON(http.StatusCreated, map[string]interface{}{
		"member":     member,
		"obligation": obligation,
	})
}

// RemoveMember soft-deletes the membership; the obligation stays for audit
func (h *GroupHandler) RemoveMember(c echo.Context) error {
	groupID := c.Param("id")
	studentID := c.Param("studentId")

	result := h.db.Where("group_id = ? AND student_id = ?", groupID, studentID).
		Delete(&models.GroupMember{})
	if result.Error != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to remove member")
	}
	if result.RowsAffected == 0 {
		return echo.NewHTTPError(http.StatusNotFound, "Membership not found")
	}
	return c.NoContent(http.StatusNoContent)
}

func (h *GroupHandler) invalidateDashboard(c echo.Context) {
	if h.cache != nil {
		_ = h.cache.Delete(c.Request().Context(), dashboardCacheKey)
	}
}
