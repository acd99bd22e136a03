package models

import (
	"math"
	"time"
)

// AnswerEvent is an immutable record of one submitted answer.
type AnswerEvent struct {
	ID             string    `db:"id" json:"id"`
	UserID         string    `db:"user_id" json:"user_id"`
	QuestionID     string    `db:"question_id" json:"question_id"`
	ExamID         string    `db:"exam_id" json:"exam_id"`
	SubjectID      string    `db:"subject_id" json:"subject_id"`
	SelectedAnswer string    `db:"selected_answer" json:"selected_answer"`
	IsCorrect      bool      `db:"is_correct" json:"is_correct"`
	AnsweredAt     time.Time `db:"answered_at" json:"answered_at"`
}

// ProgressRecord is the running tally for one (user, exam, subject).
type ProgressRecord struct {
	ID              string    `db:"id" json:"id"`
	UserID          string    `db:"user_id" json:"user_id"`
	ExamID          string    `db:"exam_id" json:"exam_id"`
	SubjectID       string    `db:"subject_id" json:"subject_id"`
	QuestionsSolved int       `db:"questions_solved" json:"questions_solved"`
	CorrectAnswers  int       `db:"correct_answers" json:"correct_answers"`
	AccuracyRate    float64   `db:"accuracy_rate" json:"accuracy_rate"`
	LastStudied     time.Time `db:"last_studied" json:"last_studied"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

// Apply counts one more answer and recomputes accuracy from the counters.
func (p *ProgressRecord) Apply(isCorrect bool, at time.Time) {
	p.QuestionsSolved++
	if isCorrect {
		p.CorrectAnswers++
	}
	p.LastStudied = at
	p.Normalize()
}

// Normalize derives accuracy from the counters so it never drifts.
func (p *ProgressRecord) Normalize() {
	if p.CorrectAnswers > p.QuestionsSolved {
		p.CorrectAnswers = p.QuestionsSolved
	}
	p.AccuracyRate = Percent(p.CorrectAnswers, p.QuestionsSolved)
}

// Percent returns part/whole*100, or 0 when whole is not positive.
func Percent(part, whole int) float64 {
	if whole <= 0 {
		return 0
	}
	return float64(part) / float64(whole) * 100
}

// ClampedPercent caps Percent at 100.
func ClampedPercent(part, whole int) float64 {
	return math.Min(Percent(part, whole), 100)
}
