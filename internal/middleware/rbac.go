package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/response"
)

// Require admits the request only when the current user holds every capability.
// It must run after Auth.
func Require(caps ...models.Capability) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, ok := CurrentUser(c)
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidToken, ""))
			return
		}
		for _, capability := range caps {
			if !user.Can(capability) {
				response.Error(c, appErrors.Clone(appErrors.ErrForbidden, ""))
				return
			}
		}
		c.Next()
	}
}
