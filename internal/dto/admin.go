package dto

import (
	"time"

	"github.com/noah-isme/examprep-api/internal/models"
)

// CreateUserRequest is the admin payload for provisioning an account.
type CreateUserRequest struct {
	Name     string            `json:"name" validate:"required,max=120"`
	Email    string            `json:"email" validate:"required,email,max=254"`
	Password string            `json:"password" validate:"required,strongpassword"`
	Role     models.UserRole   `json:"role" validate:"omitempty,oneof=student tutor teacher admin super_admin"`
	Status   models.UserStatus `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// UpdateUserRequest patches profile, role or status.
type UpdateUserRequest struct {
	Name   *string            `json:"name" validate:"omitempty,max=120"`
	Email  *string            `json:"email" validate:"omitempty,email,max=254"`
	Role   *models.UserRole   `json:"role" validate:"omitempty,oneof=student tutor teacher admin super_admin"`
	Status *models.UserStatus `json:"status" validate:"omitempty,oneof=active inactive suspended"`
}

// ExamRequest creates or replaces an exam and its subject list.
type ExamRequest struct {
	Name        string           `json:"name" validate:"required,max=200"`
	Country     string           `json:"country" validate:"required,max=100"`
	Description string           `json:"description" validate:"max=2000"`
	Subjects    []SubjectRequest `json:"subjects" validate:"dive"`
	Gradient    string           `json:"gradient"`
	BorderColor string           `json:"borderColor"`
	BgColor     string           `json:"bgColor"`
	Flag        string           `json:"flag"`
}

// SubjectRequest describes one embedded subject. An empty id creates a new subject.
type SubjectRequest struct {
	ID          string `json:"id" validate:"omitempty,objectid"`
	Name        string `json:"name" validate:"required,max=200"`
	Description string `json:"description"`
	Duration    string `json:"duration"`
	Icon        string `json:"icon"`
	Gradient    string `json:"gradient"`
	BgColor     string `json:"bgColor"`
}

// QuestionRequest creates or replaces a question.
type QuestionRequest struct {
	Question      string                    `json:"question" validate:"required"`
	Options       []models.Option           `json:"options" validate:"required,min=2,dive"`
	CorrectAnswer string                    `json:"correct_answer" validate:"required"`
	Explanation   models.Explanation        `json:"explanation"`
	QuestionType  models.QuestionType       `json:"question_type" validate:"omitempty,oneof=multiple_choice true_false"`
	Difficulty    models.QuestionDifficulty `json:"difficulty" validate:"omitempty,oneof=easy medium hard"`
	Status        models.QuestionStatus     `json:"status" validate:"omitempty,oneof=draft published archived"`
	Tags          []string                  `json:"tags"`
	Duration      string                    `json:"duration"`
}

// QuestionPage is a paginated admin question listing.
type QuestionPage struct {
	Items      []models.Question `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// UserPage is a paginated admin user listing.
type UserPage struct {
	Items      []models.User     `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// AuditPage is a paginated activity log.
type AuditPage struct {
	Items      []models.AuditLog `json:"items"`
	Pagination models.Pagination `json:"pagination"`
}

// ExamProgress groups one user's progress under an exam.
type ExamProgress struct {
	ExamID   string            `json:"exam_id"`
	ExamName string            `json:"exam_name"`
	Subjects []SubjectProgress `json:"subjects"`
}

// UserProgressReport is the admin view of a user's learning history.
type UserProgressReport struct {
	UserID string         `json:"user_id"`
	Name   string         `json:"name"`
	Email  string         `json:"email"`
	Exams  []ExamProgress `json:"exams"`
}

// SystemMetrics is a point-in-time snapshot of instrumentation counters.
type SystemMetrics struct {
	CacheHitRatio            float64   `json:"cache_hit_ratio"`
	CacheHits                uint64    `json:"cache_hits"`
	CacheMisses              uint64    `json:"cache_misses"`
	RequestsTotal            uint64    `json:"requests_total"`
	AverageRequestDurationMs float64   `json:"average_request_duration_ms"`
	AnswersTotal             uint64    `json:"answers_total"`
	AIFallbacks              uint64    `json:"ai_fallbacks"`
	Goroutines               int       `json:"goroutines"`
	GeneratedAt              time.Time `json:"generated_at"`
}
