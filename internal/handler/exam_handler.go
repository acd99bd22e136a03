package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/middleware"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type examCatalog interface {
	ListExams(ctx context.Context) ([]models.ExamSummary, bool, error)
	GetExam(ctx context.Context, id string) (*models.Exam, bool, error)
	ListQuestions(ctx context.Context, examID, subjectID string) ([]models.PublicQuestion, error)
}

// ExamHandler serves the public exam catalog.
type ExamHandler struct {
	catalog examCatalog
}

// NewExamHandler constructs an ExamHandler.
func NewExamHandler(catalog examCatalog) *ExamHandler {
	return &ExamHandler{catalog: catalog}
}

// List godoc
// @Summary List exams
// @Tags Exams
// @Produce json
// @Success 200 {array} models.ExamSummary
// @Router /exams [get]
func (h *ExamHandler) List(c *gin.Context) {
	exams, hit, err := h.catalog.ListExams(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, exams)
}

// Get godoc
// @Summary Get exam with subjects
// @Tags Exams
// @Produce json
// @Param id path string true "Exam ID"
// @Success 200 {object} models.Exam
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /exams/{id} [get]
func (h *ExamHandler) Get(c *gin.Context) {
	exam, hit, err := h.catalog.GetExam(c.Request.Context(), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetCacheHit(c, hit)
	response.OK(c, exam)
}

// Questions godoc
// @Summary List a subject's questions without answer keys
// @Tags Exams
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param subject_id path string true "Subject ID"
// @Success 200 {array} models.PublicQuestion
// @Failure 404 {object} errors.Error
// @Router /exams/{id}/subjects/{subject_id}/questions [get]
func (h *ExamHandler) Questions(c *gin.Context) {
	questions, err := h.catalog.ListQuestions(c.Request.Context(), c.Param("id"), c.Param("subject_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, questions)
}
