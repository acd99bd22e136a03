package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type tutorService interface {
	Explain(ctx context.Context, questionID string, req dto.ExplanationRequest) (*dto.ExplanationResponse, error)
	Chat(ctx context.Context, user *models.User, req dto.ChatRequest) (*dto.ChatResponse, error)
	StudyTips(ctx context.Context, user *models.User, subjectID string) (*dto.StudyTipsResponse, error)
}

// AIHandler exposes the AI tutor features. Every endpoint degrades to canned content.
type AIHandler struct {
	tutor tutorService
}

// NewAIHandler constructs an AIHandler.
func NewAIHandler(tutor tutorService) *AIHandler {
	return &AIHandler{tutor: tutor}
}

// Explanation godoc
// @Summary Generate an explanation for a question
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Param payload body dto.ExplanationRequest false "Selected answer"
// @Success 200 {object} dto.ExplanationResponse
// @Failure 404 {object} errors.Error
// @Router /questions/{id}/explanation [post]
func (h *AIHandler) Explanation(c *gin.Context) {
	var req dto.ExplanationRequest
	if c.Request.ContentLength != 0 && !bindJSON(c, &req) {
		return
	}
	res, err := h.tutor.Explain(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// Chat godoc
// @Summary Chat with the AI tutor
// @Tags AI
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param payload body dto.ChatRequest true "Message and history"
// @Success 200 {object} dto.ChatResponse
// @Failure 400 {object} errors.Error
// @Router /ai/chat [post]
func (h *AIHandler) Chat(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.ChatRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.tutor.Chat(c.Request.Context(), user, req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}

// StudyTips godoc
// @Summary Personalised study tips for a subject
// @Tags AI
// @Produce json
// @Security BearerAuth
// @Param subject_id query string true "Subject ID"
// @Success 200 {object} dto.StudyTipsResponse
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /users/me/study-tips [get]
func (h *AIHandler) StudyTips(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	res, err := h.tutor.StudyTips(c.Request.Context(), user, c.Query("subject_id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
