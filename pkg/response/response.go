package response

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/pkg/database"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

// JSON sends a success body as-is. Clients consume bare documents.
func JSON(c *gin.Context, status int, data interface{}) {
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	c.JSON(status, data)
}

// OK responds with HTTP 200.
func OK(c *gin.Context, data interface{}) {
	JSON(c, http.StatusOK, data)
}

// Created responds with HTTP 201 Created.
func Created(c *gin.Context, data interface{}) {
	JSON(c, http.StatusCreated, data)
}

// Error sends an error response shaped as {"detail": ..., "code": ...}.
func Error(c *gin.Context, err error) {
	appErr := normalize(err)
	if appErr.Status >= http.StatusInternalServerError {
		_ = c.Error(err)
	}
	c.Header("Cache-Control", "no-store")
	c.Header("Pragma", "no-cache")
	if appErr.Status == http.StatusUnauthorized {
		c.Header("WWW-Authenticate", "Bearer")
	}
	c.AbortWithStatusJSON(appErr.Status, appErr)
}

// NoContent sends a 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

func normalize(err error) *appErrors.Error {
	if errors.Is(err, database.ErrUnavailable) {
		var appErr *appErrors.Error
		if !errors.As(err, &appErr) || appErr.Status >= http.StatusInternalServerError {
			return appErrors.Wrap(err, appErrors.ErrServiceUnavailable.Code, appErrors.ErrServiceUnavailable.Status, appErrors.ErrServiceUnavailable.Message)
		}
	}
	return appErrors.FromError(err)
}
