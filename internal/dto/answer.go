package dto

import "github.com/noah-isme/examprep-api/internal/models"

// AnswerRequest carries the chosen option id.
type AnswerRequest struct {
	Answer string `json:"answer" validate:"required"`
}

// AnswerResponse reveals correctness and the stored explanation.
type AnswerResponse struct {
	Correct       bool               `json:"correct"`
	CorrectAnswer string             `json:"correct_answer"`
	Explanation   models.Explanation `json:"explanation"`
}
