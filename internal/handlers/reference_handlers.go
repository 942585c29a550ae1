package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"gorm.io/gorm"

	"tutorcenter_backoffice/internal/models"
)

// ReferenceHandler covers the billing reference data: fees and academic years
type ReferenceHandler struct {
	db *gorm.DB
}

func NewReferenceHandler(db *gorm.DB) *ReferenceHandler {
	return &ReferenceHandler{db: db}
}

type feeRequest struct {
	Name      string     `json:"name" validate:"required"`
	Amount    float64    `json:"amount" validate:"required,gt=0"`
	StartDate *time.Time `json:"start_date"`
	EndDate   *time.Time `json:"end_date"`
}

func (h *ReferenceHandler) ListFees(c echo.Context) error {
	var fees []models.Fee
	if err := h.db.Order("name asc").Find(&fees).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch fees")
	}
	return c.JSON(http.StatusOK, fees)
}

func (h *ReferenceHandler) CreateFee(c echo.Context) error {
	var req feeRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	fee := models.Fee{
		Name:      req.Name,
		Amount:    req.Amount,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
	}
	if err := h.db.Create(&fee).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create fee")
	}
	return c.JSON(http.StatusCreated, fee)
}

type academicYearRequest struct {
	Label     string    `json:"label" validate:"required"`
	StartDate time.Time `json:"start_date" validate:"required"`
	EndDate   time.Time `json:"end_date" validate:"required,gtfield=StartDate"`
	IsActive  *bool     `json:"is_active"`
}

func (h *ReferenceHandler) ListAcademicYears(c echo.Context) error {
	var years []models.AcademicYear
	if err := h.db.Order("start_date desc").Find(&years).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to fetch academic years")
	}
	return c.JSON(http.StatusOK, years)
}

func (h *ReferenceHandler) CreateAcademicYear(c echo.Context) error {
	var req academicYearRequest
	if err := bindAndValidate(c, &req); err != nil {
		return err
	}

	year := models.AcademicYear{
		Label:     req.Label,
		StartDate: req.StartDate,
		EndDate:   req.EndDate,
		IsActive:  true,
	}
	if req.IsActive != nil {
		year.IsActive = *req.IsActive
	}
	if err := h.db.Create(&year).Error; err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to create academic year")
	}
	return c.JSON(http.StatusCreated, year)
}
