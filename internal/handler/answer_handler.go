package handler

import (
	"context"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/pkg/response"
)

type answerSubmitter interface {
	Submit(ctx context.Context, user *models.User, questionID string, req dto.AnswerRequest) (*dto.AnswerResponse, error)
}

// AnswerHandler grades submitted answers.
type AnswerHandler struct {
	answers answerSubmitter
}

// NewAnswerHandler constructs an AnswerHandler.
func NewAnswerHandler(answers answerSubmitter) *AnswerHandler {
	return &AnswerHandler{answers: answers}
}

// Submit godoc
// @Summary Submit an answer
// @Description Grades the answer, records it and updates progress on the selected exam
// @Tags Questions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param id path string true "Question ID"
// @Param payload body dto.AnswerRequest true "Answer"
// @Success 200 {object} dto.AnswerResponse
// @Failure 400 {object} errors.Error
// @Failure 404 {object} errors.Error
// @Router /questions/{id}/answer [post]
func (h *AnswerHandler) Submit(c *gin.Context) {
	user, ok := currentUser(c)
	if !ok {
		return
	}
	var req dto.AnswerRequest
	if !bindJSON(c, &req) {
		return
	}
	res, err := h.answers.Submit(c.Request.Context(), user, c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, res)
}
