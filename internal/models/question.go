package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// QuestionDifficulty grades how hard a question is.
type QuestionDifficulty string

const (
	DifficultyEasy   QuestionDifficulty = "easy"
	DifficultyMedium QuestionDifficulty = "medium"
	DifficultyHard   QuestionDifficulty = "hard"
)

// QuestionStatus is the editorial state of a question.
type QuestionStatus string

const (
	QuestionDraft     QuestionStatus = "draft"
	QuestionPublished QuestionStatus = "published"
	QuestionArchived  QuestionStatus = "archived"
)

// QuestionType describes the answer shape.
type QuestionType string

const (
	QuestionMultipleChoice QuestionType = "multiple_choice"
	QuestionTrueFalse      QuestionType = "true_false"
)

// Option is one selectable answer.
type Option struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// OptionList is persisted as JSONB.
type OptionList []Option

func (o OptionList) Value() (driver.Value, error) {
	if o == nil {
		o = OptionList{}
	}
	data, err := json.Marshal(o)
	if err != nil {
		return nil, fmt.Errorf("marshal options: %w", err)
	}
	return data, nil
}

func (o *OptionList) Scan(value interface{}) error {
	return scanJSON(value, o, "options")
}

// Has reports whether an option id is present.
func (o OptionList) Has(id string) bool {
	for _, opt := range o {
		if opt.ID == id {
			return true
		}
	}
	return false
}

// Explanation is the structured rationale returned after answering.
type Explanation struct {
	Reasoning  []string `json:"reasoning"`
	Concept    string   `json:"concept"`
	Sources    []string `json:"sources"`
	BiasCheck  string   `json:"bias_check"`
	Reflection string   `json:"reflection"`
}

func (e Explanation) Value() (driver.Value, error) {
	e.normalize()
	data, err := json.Marshal(e)
	if err != nil {
		return nil, fmt.Errorf("marshal explanation: %w", err)
	}
	return data, nil
}

func (e *Explanation) Scan(value interface{}) error {
	if err := scanJSON(value, e, "explanation"); err != nil {
		return err
	}
	e.normalize()
	return nil
}

func (e *Explanation) normalize() {
	if e.Reasoning == nil {
		e.Reasoning = []string{}
	}
	if e.Sources == nil {
		e.Sources = []string{}
	}
}

// Tags is a JSONB string array.
type Tags []string

func (t Tags) Value() (driver.Value, error) {
	if t == nil {
		t = Tags{}
	}
	return json.Marshal(t)
}

func (t *Tags) Scan(value interface{}) error {
	return scanJSON(value, t, "tags")
}

// Question belongs to one subject of one exam.
type Question struct {
	ID            string             `db:"id" json:"id"`
	ExamID        string             `db:"exam_id" json:"exam_id"`
	SubjectID     string             `db:"subject_id" json:"subject_id"`
	Text          string             `db:"question" json:"question"`
	Options       OptionList         `db:"options" json:"options"`
	CorrectAnswer string             `db:"correct_answer" json:"correct_answer"`
	Explanation   Explanation        `db:"explanation" json:"explanation"`
	QuestionType  QuestionType       `db:"question_type" json:"question_type"`
	Difficulty    QuestionDifficulty `db:"difficulty" json:"difficulty"`
	Status        QuestionStatus     `db:"status" json:"status"`
	Tags          Tags               `db:"tags" json:"tags"`
	Duration      string             `db:"duration" json:"duration,omitempty"`
	CreatedBy     *string            `db:"created_by" json:"created_by,omitempty"`
	CreatedAt     time.Time          `db:"created_at" json:"created_at"`
	UpdatedAt     time.Time          `db:"updated_at" json:"updated_at"`
}

// Normalize fills defaults once after scanning.
func (q *Question) Normalize() {
	if q == nil {
		return
	}
	if q.Options == nil {
		q.Options = OptionList{}
	}
	if q.Tags == nil {
		q.Tags = Tags{}
	}
	q.Explanation.normalize()
	if q.QuestionType == "" {
		q.QuestionType = QuestionMultipleChoice
	}
	if q.Difficulty == "" {
		q.Difficulty = DifficultyMedium
	}
	if q.Status == "" {
		q.Status = QuestionPublished
	}
}

// Published reports whether learners may see and answer the question.
func (q *Question) Published() bool {
	return q.Status == QuestionPublished
}

// IsCorrect compares by exact option id.
func (q *Question) IsCorrect(selected string) bool {
	return selected == q.CorrectAnswer
}

// PublicQuestion hides the answer key from students.
type PublicQuestion struct {
	ID           string             `json:"id"`
	SubjectID    string             `json:"subject_id"`
	Text         string             `json:"question"`
	Options      OptionList         `json:"options"`
	QuestionType QuestionType       `json:"question_type"`
	Difficulty   QuestionDifficulty `json:"difficulty"`
	Duration     string             `json:"duration,omitempty"`
}

func (q Question) Public() PublicQuestion {
	return PublicQuestion{
		ID:           q.ID,
		SubjectID:    q.SubjectID,
		Text:         q.Text,
		Options:      q.Options,
		QuestionType: q.QuestionType,
		Difficulty:   q.Difficulty,
		Duration:     q.Duration,
	}
}

// QuestionFilter narrows admin question listings.
type QuestionFilter struct {
	SubjectID  string
	Difficulty *QuestionDifficulty
	Status     *QuestionStatus
	Page       int
	PageSize   int
}
