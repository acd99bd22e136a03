package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/middleware"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/service"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/response"
)

// currentUser writes a 401 and returns false when Auth did not run.
func currentUser(c *gin.Context) (*models.User, bool) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		response.Error(c, appErrors.Clone(appErrors.ErrInvalidToken, ""))
		return nil, false
	}
	return user, true
}

func requestMeta(c *gin.Context) service.RequestMeta {
	user, _ := middleware.CurrentUser(c)
	return service.RequestMeta{Actor: user, IP: c.ClientIP(), UserAgent: c.GetHeader("User-Agent")}
}

// bindJSON decodes the body and answers 400 on malformed JSON.
func bindJSON(c *gin.Context, dst interface{}) bool {
	if err := c.ShouldBindJSON(dst); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid request body"))
		return false
	}
	return true
}

func pageParams(c *gin.Context) (int, int) {
	page, _ := strconv.Atoi(c.DefaultQuery("page", "1"))
	size, _ := strconv.Atoi(c.DefaultQuery("page_size", "20"))
	return page, size
}

func setTotalCount(c *gin.Context, p models.Pagination) {
	c.Header("X-Total-Count", strconv.Itoa(p.TotalCount))
}
