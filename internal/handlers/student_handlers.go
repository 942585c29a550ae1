package handlers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
)

type StudentHandler struct {
	db *gorm.DB
}

func NewStudentHandler(db *gorm.DB) *StudentHandler {
	return &StudentHandler{db: db}
}

type studentRequest struct {
	Name         string `json:"name" validate:"required"`
	Phone        string `json:"phone"`
	Email        string `json:"email" validate:"omitempty,email"`
	GuardianName string `json:"guardian_name"`
	IsActive     *bool  `json:"is_active"`
}

// ListStudents returns all students, optionally filtered by active flag
func (h *StudentHandler) ListStudents(c echo.Context) error {
	query := h.db.Model(&models.Student{})
	if active := c.QueryParam("active"); active != "" {
		query = query.Where("is_active = ?", active == "true")
	}
	if search := c.QueryParam("search"); search != "" {
		query = query.Where("name LIKE ?", "%"+search+"%")
	}

	var students []models.Student
	if err := query.Order("name asc").Find(&students).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch students")
	}
	return c.JSON(http.StatusOK, students)
}

func (h *StudentHandler) GetStudent(c echo.Context) error {
	var student models.Student
	if err := h.db.Preload("Memberships.Group").First(&student, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Student not found")
	}
	return c.JSON(http.StatusOK, student)
}

func (h *StudentHandler) CreateStudent(c echo.Context) error {
	var req studentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student := models.Student{
		Name:         req.Name,
		Phone:        req.Phone,
		Email:        req.Email,
		GuardianName: req.GuardianName,
		IsActive:     true,
	}
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	if err := h.db.Create(&student).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create student")
	}
	return c.JSON(http.StatusCreated, student)
}

func (h *StudentHandler) UpdateStudent(c echo.Context) error {
	var student models.Student
	if err := h.db.First(&student, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusNotFound, "Student not found")
	}

	var req studentRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	student.Name = req.Name
	student.Phone = req.Phone
	student.Email = req.Email
	student.GuardianName = req.GuardianName
	if req.IsActive != nil {
		student.IsActive = *req.IsActive
	}

	if err := h.db.Save(&student).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to update student")
	}
	return c.JSON(http.StatusOK, student)
}

// DeleteStudent soft-deletes the student; their transactions and
// obligations keep their history
func (h *StudentHandler) DeleteStudent(c echo.Context) error {
	if err := h.db.Delete(&models.Student{}, c.Param("id")).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to delete student")
	}
	return c.NoContent(http.StatusNoContent)
}
