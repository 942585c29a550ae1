package handlers

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"tutorcenter_backoffice/internal/services"
)

// DashboardHandler serves the financial rollups the reporting surface reads
type DashboardHandler struct {
	finance *services.FinanceService
	cache   *services.RedisCache
}

func NewDashboardHandler(finance *services.FinanceService, cache *services.RedisCache) *DashboardHandler {
	return &DashboardHandler{finance: finance, cache: cache}
}

// FinanceSummary returns the dashboard snapshot, served from cache when warm
func (h *DashboardHandler) FinanceSummary(c echo.Context) error {
	if h.cache == nil {
		summary, err := h.finance.Summary(time.Now())
		if err != nil {
			return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute summary")
		}
		return c.JSON(http.StatusOK, summary)
	}

	summary, err := services.GetOrSet(h.cache, c.Request().Context(), dashboardCacheKey, dashboardCacheTTL,
		func() (*services.FinanceSummary, error) {
			return h.finance.Summary(time.Now())
		})
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute summary")
	}
	return c.JSON(http.StatusOK, summary)
}

// FinanceSummaryRange restricts revenue figures to [start, end]
func (h *DashboardHandler) FinanceSummaryRange(c echo.Context) error {
	start, err := time.Parse("2006-01-02", c.QueryParam("start"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "start must be YYYY-MM-DD")
	}
	end, err := time.Parse("2006-01-02", c.QueryParam("end"))
	if err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "end must be YYYY-MM-DD")
	}
	if end.Before(start) {
		return echo.NewHTTPError(http.StatusBadRequest, "end must not be before start")
	}
	// make the range inclusive of the end day
	end = end.AddDate(0, 0, 1).Add(-time.Nanosecond)

	summary, err := h.finance.SummaryRange(start, end)
	if err != nil {
		return echo.NewHTTPError(http.StatusInternalServerError, "Failed to compute range summary")
	}
	return c.JSON(http.StatusOK, summary)
}
