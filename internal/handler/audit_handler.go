package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type auditLister interface {
	List(ctx context.Context, filter models.AuditFilter) ([]models.AuditLog, *models.Pagination, error)
}

// AuditHandler serves the administrative activity log.
type AuditHandler struct {
	audit auditLister
}

// NewAuditHandler constructs an AuditHandler.
func NewAuditHandler(audit auditLister) *AuditHandler {
	return &AuditHandler{audit: audit}
}

// List godoc
// @Summary Activity log
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param user_id query string false "Actor filter"
// @Param action query string false "Action filter"
// @Param resource query string false "Resource filter"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.AuditPage
// @Router /admin/audit-logs [get]
func (h *AuditHandler) List(c *gin.Context) {
	filter := models.AuditFilter{
		UserID:   c.Query("user_id"),
		Action:   c.Query("action"),
		Resource: c.Query("resource"),
	}
	filter.Page, filter.PageSize = pageParams(c)

	logs, pagination, err := h.audit.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	setTotalCount(c, *pagination)
	response.OK(c, dto.AuditPage{Items: logs, Pagination: *pagination})
}
