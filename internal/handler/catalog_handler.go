package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/middleware"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type examAdminService interface {
	ListAll(ctx context.Context) ([]models.Exam, error)
	CreateExam(ctx context.Context, req dto.ExamRequest) (*models.Exam, error)
	UpdateExam(ctx context.Context, id string, req dto.ExamRequest) (*models.Exam, error)
	DeleteExam(ctx context.Context, id string) error
}

type questionAdminService interface {
	List(ctx context.Context, filter models.QuestionFilter) (*dto.QuestionPage, error)
	Create(ctx context.Context, subjectID, createdBy string, req dto.QuestionRequest) (*models.Question, *models.Exam, error)
	Update(ctx context.Context, id string, req dto.QuestionRequest) (*models.Question, *models.Exam, error)
	Delete(ctx context.Context, id string) (*models.Exam, error)
}

// CatalogHandler manages exams and questions for administrators.
type CatalogHandler struct {
	exams     examAdminService
	questions questionAdminService
}

// NewCatalogHandler constructs a CatalogHandler.
func NewCatalogHandler(exams examAdminService, questions questionAdminService) *CatalogHandler {
	return &CatalogHandler{exams: exams, questions: questions}
}

// ListExams godoc
// @Summary List every exam including unpublished metadata
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Exam
// @Router /admin/exams [get]
func (h *CatalogHandler) ListExams(c *gin.Context) {
	exams, err := h.exams.ListAll(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exams)
}

// CreateExam godoc
// @Summary Create exam
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ExamRequest true "Exam with subjects"
// @Success 201 {object} models.Exam
// @Failure 400 {object} errors.Error
// @Router /admin/exams [post]
func (h *CatalogHandler) CreateExam(c *gin.Context) {
	var req dto.ExamRequest
	if !bindJSON(c, &req) {
		return
	}
	exam, err := h.exams.CreateExam(c.Request.Context(), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, exam.ID)
	response.Created(c, exam)
}

// UpdateExam godoc
// @Summary Update exam
// @Description Replaces the subject list. Removed subjects lose their questions.
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Param payload body dto.ExamRequest true "Exam with subjects"
// @Success 200 {object} models.Exam
// @Failure 404 {object} errors.Error
// @Router /admin/exams/{id} [put]
func (h *CatalogHandler) UpdateExam(c *gin.Context) {
	var req dto.ExamRequest
	if !bindJSON(c, &req) {
		return
	}
	exam, err := h.exams.UpdateExam(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, exam)
}

// DeleteExam godoc
// @Summary Delete exam
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Exam ID"
// @Success 204
// @Failure 404 {object} errors.Error
// @Router /admin/exams/{id} [delete]
func (h *CatalogHandler) DeleteExam(c *gin.Context) {
	if err := h.exams.DeleteExam(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// ListQuestions godoc
// @Summary List a subject's questions with answer keys
// @Tags Admin
// @Produce json
// @Security BearerAuth
// @Param subject_id path string true "Subject ID"
// @Param difficulty query string false "easy, medium or hard"
// @Param status query string false "draft, published or archived"
// @Param page query int false "Page number"
// @Param page_size query int false "Page size"
// @Success 200 {object} dto.QuestionPage
// @Router /admin/subjects/{subject_id}/questions [get]
func (h *CatalogHandler) ListQuestions(c *gin.Context) {
	filter := models.QuestionFilter{SubjectID: c.Param("subject_id")}
	filter.Page, filter.PageSize = pageParams(c)
	if d := c.Query("difficulty"); d != "" {
		difficulty := models.QuestionDifficulty(d)
		filter.Difficulty = &difficulty
	}
	if s := c.Query("status"); s != "" {
		status := models.QuestionStatus(s)
		filter.Status = &status
	}

	page, err := h.questions.List(c.Request.Context(), filter)
	if err != nil {
		response.Error(c, err)
		return
	}
	setTotalCount(c, page.Pagination)
	response.OK(c, page)
}

// CreateQuestion godoc
// @Summary Add a question to a subject
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param subject_id path string true "Subject ID"
// @Param payload body dto.QuestionRequest true "Question"
// @Success 201 {object} models.Question
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /admin/subjects/{subject_id}/questions [post]
func (h *CatalogHandler) CreateQuestion(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.QuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	question, _, err := h.questions.Create(c.Request.Context(), c.Param("subject_id"), user.ID, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	middleware.SetAuditResource(c, question.ID)
	response.Created(c, question)
}

// UpdateQuestion godoc
// @Summary Update question
// @Tags Admin
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Param payload body dto.QuestionRequest true "Question"
// @Success 200 {object} models.Question
// @Failure 404 {object} errors.Error
// @Router /admin/questions/{id} [put]
func (h *CatalogHandler) UpdateQuestion(c *gin.Context) {
	var req dto.QuestionRequest
	if !bindJSON(c, &req) {
		return
	}
	question, _, err := h.questions.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, question)
}

// DeleteQuestion godoc
// @Summary Delete question
// @Tags Admin
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Success 204
// @Failure 404 {object} errors.Error
// @Router /admin/questions/{id} [delete]
func (h *CatalogHandler) DeleteQuestion(c *gin.Context) {
	if _, err := h.questions.Delete(c.Request.Context(), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}
