package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type progressService interface {
	SelectExam(ctx context.Context, userID, examID string) error
	Dashboard(ctx context.Context, user *models.User) (*dto.DashboardResponse, error)
	SubjectProgress(ctx context.Context, user *models.User) ([]dto.SubjectProgress, error)
}

// ProgressHandler serves the learner's own exam selection and progress.
type ProgressHandler struct {
	progress progressService
}

// NewProgressHandler constructs a ProgressHandler.
func NewProgressHandler(progress progressService) *ProgressHandler {
	return &ProgressHandler{progress: progress}
}

// SelectExam godoc
// @Summary Select the exam to prepare for
// @Tags Progress
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.SelectExamRequest true "Exam selection"
// @Success 200 {object} map[string]string
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /users/me/exam [post]
func (h *ProgressHandler) SelectExam(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.SelectExamRequest
	if !bindJSON(c, &req) {
		return
	}
	if err := h.progress.SelectExam(c.Request.Context(), user.ID, req.ExamID); err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, gin.H{"message": "Exam selected successfully"})
}

// Dashboard godoc
// @Summary Selected exam and aggregated progress
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {object} dto.DashboardResponse
// @Failure 400 {object} errors.Error
// @Router /users/me/dashboard [get]
func (h *ProgressHandler) Dashboard(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	dash, err := h.progress.Dashboard(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dash)
}

// SubjectProgress godoc
// @Summary Per-subject progress on the selected exam
// @Tags Progress
// @Produce json
// @Security BearerAuth
// @Success 200 {array} dto.SubjectProgress
// @Failure 400 {object} errors.Error
// @Router /users/me/progress [get]
func (h *ProgressHandler) SubjectProgress(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	items, err := h.progress.SubjectProgress(c.Request.Context(), user)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, items)
}
