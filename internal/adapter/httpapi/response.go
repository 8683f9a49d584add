package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIError is the body of every error response.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

func errorResponse(c echo.Context, status int, message, detail string) error {
	return c.JSON(status, APIError{
		Message: message,
		Error:   detail,
		Path:    c.Request().URL.Path,
		Status:  status,
	})
}

func badRequest(c echo.Context, message, detail string) error {
	return errorResponse(c, http.StatusBadRequest, message, detail)
}

func internalError(c echo.Context, detail string) error {
	return errorResponse(c, http.StatusInternalServerError, "internal server error", detail)
}

// errorHandler renders echo's own errors (unknown route, wrong method) in the
// same shape as handler errors.
func errorHandler(err error, c echo.Context) {
	if c.Response().Committed {
		return
	}
	status := http.StatusInternalServerError
	message := http.StatusText(status)
	if he, ok := err.(*echo.HTTPError); ok {
		status = he.Code
		if m, ok := he.Message.(string); ok {
			message = m
		}
	}
	_ = errorResponse(c, status, message, err.Error())
}
