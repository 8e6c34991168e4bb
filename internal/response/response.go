package response

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// APIResponse is the success envelope.
type APIResponse struct {
	Data    any    `json:"data"`
	Status  int    `json:"status"`
	Message string `json:"message,omitempty"`
	Path    string `json:"path"`
}

// APIError is the error envelope.
type APIError struct {
	Message string `json:"message"`
	Error   string `json:"error"`
	Path    string `json:"path"`
	Status  int    `json:"status"`
}

// requestPath returns the request path, or "" outside a request.
func requestPath(c echo.Context) string {
	if c == nil || c.Request() == nil {
		return ""
	}
	return c.Request().URL.Path
}

// OK sends 200 with data.
func OK(c echo.Context, data any, message string) error {
	return c.JSON(http.StatusOK, APIResponse{
		Data:    data,
		Status:  http.StatusOK,
		Message: message,
		Path:    requestPath(c),
	})
}

// Error sends status with the error envelope.
func Error(c echo.Context, status int, message, detail string) error {
	return c.JSON(status, APIError{
		Message: message,
		Error:   detail,
		Path:    requestPath(c),
		Status:  status,
	})
}

// BadRequest sends 400 with the error envelope.
func BadRequest(c echo.Context, message, detail string) error {
	return Error(c, http.StatusBadRequest, message, detail)
}

// NotFound sends 404 with the error envelope.
func NotFound(c echo.Context, message, detail string) error {
	return Error(c, http.StatusNotFound, message, detail)
}

// QueryFailed reports a report query that was rolled back.
func QueryFailed(c echo.Context, message, detail string) error {
	return Error(c, http.StatusBadGateway, message, detail)
}

// InternalError sends 500 with the error envelope.
func InternalError(c echo.Context, message, detail string) error {
	return Error(c, http.StatusInternalServerError, message, detail)
}
