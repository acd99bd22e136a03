package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/service"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type userAdminService interface {
	List(ctx context.Context, filter models.UserFilter) (*dto.UserPage, error)
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, req dto.CreateUserRequest, meta service.RequestMeta) (*models.User, error)
	Update(ctx context.Context, id string, req dto.UpdateUserRequest, meta service.RequestMeta) (*models.User, error)
	Delete(ctx context.Context, id string, meta service.RequestMeta) error
	Reset(ctx context.Context, id string, meta service.RequestMeta) error
}

type progressReporter interface {
	Report(ctx context.Context, user *models.User) (*dto.UserProgressReport, error)
}

type progressExporter interface {
	UserProgress(ctx context.Context, userID, format string) (*service.ExportFile, error)
}

// resetFields lists what a reset clears, echoed back to the caller.
var resetFields = []string{"selected_exam_id", "user_progress", "user_answers"}

// UserHandler handles admin user management endpoints.
type UserHandler struct {
	users    userAdminService
	progress progressReporter
	exports  progressExporter
}

// NewUserHandler creates a new user handler.
func NewUserHandler(users userAdminService, progress progressReporter, exports progressExporter) *UserHandler {
	return &UserHandler{users: users, progress: progress, exports: exports}
}

// List godoc
// @Summary List users
// @Description List users with pagination and filtering
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Param role query string false "Role filter"
// @Param status query string false "Status filter"
// @Param search query string false "Search term"
// @Success 200 {object} dto.UserPage
// @Failure 403 {object} errors.Error
// @Router /admin/users [get]
func (h *UserHandler) List(c *gin.Context) {
	var filter models.UserFilter
	filter.Page, filter.PageSize = pageParams(c)
	if role := c.Query("role"); role != "" {
		r := models.UserRole(role)
		filter.Role = &r
	}
	if status := c.Query("status"); status != "" {
		s := models.UserStatus(status)
		filter.Status = &s
	}
	filter.Search = c.Query("search")

	page, err := h.users.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	setTotalCount(c, page.Pagination)
	response.OK(c, page)
}

// Get godoc
// @Summary Get user
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} models.User
// @Failure 404 {object} errors.Error
// @Router /admin/users/{id} [get]
func (h *UserHandler) Get(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Create godoc
// @Summary Create user
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.CreateUserRequest true "Create user payload"
// @Success 201 {object} models.User
// @Failure 400 {object} errors.Error
// @Router /admin/users [post]
func (h *UserHandler) Create(c *gin.Context) {
	var req dto.CreateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Create(c.Request.Context(), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, user)
}

// Update godoc
// @Summary Update user
// @Description Role changes require a super admin
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param payload body dto.UpdateUserRequest true "Update payload"
// @Success 200 {object} models.User
// @Failure 400 {object} errors.Error
// @Failure 403 {object} errors.Error
// @Router /admin/users/{id} [put]
func (h *UserHandler) Update(c *gin.Context) {
	var req dto.UpdateUserRequest
	if !bindJSON(c, &req) {
		return
	}
	user, err := h.users.Update(c.Request.Context(), c.Param("id"), req, requestMeta(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, user)
}

// Delete godoc
// @Summary Delete user
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 204
// @Failure 404 {object} errors.Error
// @Router /admin/users/{id} [delete]
func (h *UserHandler) Delete(c *gin.Context) {
	if err := h.users.Delete(c.Request.Context(), c.Param("id"), requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Reset godoc
// @Summary Reset a user's learning history
// @Description Clears the selected exam, progress records and answer events
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} errors.Error
// @Router /admin/users/{id}/reset [post]
func (h *UserHandler) Reset(c *gin.Context) {
	id := c.Param("id")
	if err := h.users.Reset(c.Request.Context(), id, requestMeta(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{
		"message":      "User progress reset successfully",
		"user_id":      id,
		"reset_fields": resetFields,
	})
}

// Progress godoc
// @Summary A user's progress across every exam they practised
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param id path string true "User ID"
// @Success 200 {object} dto.UserProgressReport
// @Failure 404 {object} errors.Error
// @Router /admin/users/{id}/progress [get]
func (h *UserHandler) Progress(c *gin.Context) {
	user, err := h.users.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	report, err := h.progress.Report(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, report)
}

// ExportProgress godoc
// @Summary Download a user's progress report
// @Tags Admin
// @Produce text/csv
// @Produce application/pdf
// @Produce application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Security BearerAuth
// @Param id path string true "User ID"
// @Param format query string false "csv, pdf or xlsx" default(csv)
// @Success 200 {file} file
// @Failure 400 {object} errors.Error
// @Router /admin/users/{id}/progress/export [get]
func (h *UserHandler) ExportProgress(c *gin.Context) {
	file, err := h.exports.UserProgress(c.Request.Context(), c.Param("id"), c.DefaultQuery("format", "csv"))
	if err != nil {
		response.Error(c, err)
		return
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
