package dto

import (
	"time"

	"github.com/noah-isme/examprep-api/internal/models"
)

// SelectExamRequest points the caller at an exam.
type SelectExamRequest struct {
	ExamID string `json:"exam_id" validate:"required"`
}

// SubjectProgress is one subject's tally with its completion percentage.
type SubjectProgress struct {
	SubjectID       string     `json:"subject_id"`
	SubjectName     string     `json:"subject_name,omitempty"`
	Progress        float64    `json:"progress"`
	QuestionsSolved int        `json:"questions_solved"`
	CorrectAnswers  int        `json:"correct_answers"`
	AccuracyRate    float64    `json:"accuracy_rate"`
	LastStudied     *time.Time `json:"last_studied,omitempty"`
}

// UserProgress aggregates a user's records for one exam.
type UserProgress struct {
	UserID            string            `json:"user_id"`
	ExamID            string            `json:"exam_id"`
	OverallProgress   float64           `json:"overall_progress"`
	QuestionsSolved   int               `json:"questions_solved"`
	AccuracyRate      float64           `json:"accuracy_rate"`
	StudyTimeHours    float64           `json:"study_time_hours"`
	CurrentStreakDays int               `json:"current_streak_days"`
	LastStudiedDate   *time.Time        `json:"last_studied_date"`
	SubjectProgress   []SubjectProgress `json:"subject_progress"`
}

// DashboardResponse is the student landing payload.
type DashboardResponse struct {
	SelectedExam models.Exam   `json:"selected_exam"`
	UserProgress *UserProgress `json:"user_progress"`
}
