package dto

import "github.com/noah-isme/examprep-api/internal/models"

// ChatMessage is one turn of a tutor conversation.
type ChatMessage struct {
	Role    string `json:"role" validate:"required,oneof=user assistant"`
	Content string `json:"content" validate:"required"`
}

// ChatRequest asks the tutor a question, optionally about a specific question.
type ChatRequest struct {
	Message    string        `json:"message" validate:"required,max=4000"`
	History    []ChatMessage `json:"history" validate:"omitempty,dive"`
	QuestionID string        `json:"question_id,omitempty" validate:"omitempty,objectid"`
}

// ChatResponse is the tutor's reply.
type ChatResponse struct {
	Reply            string   `json:"reply"`
	RelatedQuestions []string `json:"related_questions"`
	Fallback         bool     `json:"fallback"`
}

// ExplanationRequest optionally includes the option the student picked.
type ExplanationRequest struct {
	SelectedAnswer string `json:"selected_answer,omitempty"`
}

// ExplanationResponse carries a generated or stored explanation.
type ExplanationResponse struct {
	QuestionID  string             `json:"question_id"`
	Explanation models.Explanation `json:"explanation"`
	Generated   bool               `json:"generated"`
}

// StudyTipsResponse lists personalised tips for a subject.
type StudyTipsResponse struct {
	SubjectID    string   `json:"subject_id"`
	AccuracyRate float64  `json:"accuracy_rate"`
	Tips         []string `json:"tips"`
	Generated    bool     `json:"generated"`
}
