package middleware

import (
	"context"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/logger"
	"github.com/noah-isme/examprep-api/pkg/response"
)

// ContextUserKey is the gin context key storing the resolved *models.User.
const ContextUserKey = "currentUser"

type identityResolver interface {
	Resolve(ctx context.Context, token string) (*models.User, error)
}

// Auth protects routes by requiring a bearer token that resolves to a user.
func Auth(resolver identityResolver) gin.HandlerFunc {
	return func(c *gin.Context) {
		token, ok := bearerToken(c.GetHeader("Authorization"))
		if !ok {
			response.Error(c, appErrors.Clone(appErrors.ErrInvalidToken, ""))
			return
		}

		user, err := resolver.Resolve(c.Request.Context(), token)
		if err != nil {
			response.Error(c, err)
			return
		}

		c.Set(ContextUserKey, user)
		c.Set(logger.ContextUserIDKey, user.ID)
		c.Next()
	}
}

// CurrentUser returns the user attached by Auth.
func CurrentUser(c *gin.Context) (*models.User, bool) {
	v, exists := c.Get(ContextUserKey)
	if !exists {
		return nil, false
	}
	user, ok := v.(*models.User)
	return user, ok && user != nil
}

func bearerToken(header string) (string, bool) {
	parts := strings.SplitN(strings.TrimSpace(header), " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", false
	}
	token := strings.TrimSpace(parts[1])
	return token, token != ""
}
