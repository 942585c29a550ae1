package middleware

import (
	"errors"
	"net/http"

	"github.com/labstack/echo/v4"

	"tutorcenter_backoffice/internal/services"
)

// CustomErrorHandler maps service errors and echo HTTPErrors onto the JSON
// error envelope every endpoint shares.
func CustomErrorHandler(err error, c echo.Context) {
	code := http.StatusInternalServerError
	message := "Something went wrong. Please try again later."

	switch {
	case errors.Is(err, services.ErrNotFound):
		code = http.StatusNotFound
		message = err.Error()
	case errors.Is(err, services.ErrConflict):
		code = http.StatusConflict
		message = err.Error()
	case errors.Is(err, services.ErrValidation):
		code = http.StatusBadRequest
		message = err.Error()
	default:
		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			if msg, ok := he.Message.(string); ok && msg != "" {
				message = msg
			} else {
				message = http.StatusText(code)
			}
		}
	}

	c.Logger().Error(err)

	if c.Response().Committed {
		return
	}
	if err := c.JSON(code, map[string]interface{}{"error": message}); err != nil {
		c.Logger().Error(err)
	}
}
