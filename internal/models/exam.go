package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"
)

// Subject is embedded in its exam's subjects column.
type Subject struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Description    string `json:"description"`
	TotalQuestions int    `json:"total_questions"`
	Duration       string `json:"duration,omitempty"`
	Icon           string `json:"icon,omitempty"`
	Gradient       string `json:"gradient,omitempty"`
	BgColor        string `json:"bgColor,omitempty"`
}

// SubjectList is persisted as JSONB in declared order.
type SubjectList []Subject

func (s SubjectList) Value() (driver.Value, error) {
	if s == nil {
		s = SubjectList{}
	}
	data, err := json.Marshal(s)
	if err != nil {
		return nil, fmt.Errorf("marshal subjects: %w", err)
	}
	return data, nil
}

func (s *SubjectList) Scan(value interface{}) error {
	return scanJSON(value, s, "subjects")
}

// Find returns the subject with the given id.
func (s SubjectList) Find(id string) (Subject, bool) {
	for _, subject := range s {
		if subject.ID == id {
			return subject, true
		}
	}
	return Subject{}, false
}

// Exam is a catalog entry with its embedded subjects.
type Exam struct {
	ID             string      `db:"id" json:"id"`
	Name           string      `db:"name" json:"name"`
	Country        string      `db:"country" json:"country"`
	Description    string      `db:"description" json:"description"`
	Subjects       SubjectList `db:"subjects" json:"subjects"`
	TotalQuestions int         `db:"total_questions" json:"total_questions"`
	Gradient       string      `db:"gradient" json:"gradient,omitempty"`
	BorderColor    string      `db:"border_color" json:"borderColor,omitempty"`
	BgColor        string      `db:"bg_color" json:"bgColor,omitempty"`
	Flag           string      `db:"flag" json:"flag,omitempty"`
	CreatedAt      time.Time   `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time   `db:"updated_at" json:"updated_at"`
}

// Normalize fills defaults once at the store boundary.
func (e *Exam) Normalize() {
	if e == nil {
		return
	}
	if e.Subjects == nil {
		e.Subjects = SubjectList{}
	}
}

// ExamSummary is the list projection without embedded subjects.
type ExamSummary struct {
	ID             string `json:"id"`
	Name           string `json:"name"`
	Country        string `json:"country"`
	Description    string `json:"description"`
	TotalQuestions int    `json:"total_questions"`
	Gradient       string `json:"gradient,omitempty"`
	BorderColor    string `json:"borderColor,omitempty"`
	BgColor        string `json:"bgColor,omitempty"`
	Flag           string `json:"flag,omitempty"`
}

func (e Exam) Summary() ExamSummary {
	return ExamSummary{
		ID:             e.ID,
		Name:           e.Name,
		Country:        e.Country,
		Description:    e.Description,
		TotalQuestions: e.TotalQuestions,
		Gradient:       e.Gradient,
		BorderColor:    e.BorderColor,
		BgColor:        e.BgColor,
		Flag:           e.Flag,
	}
}

func scanJSON(value interface{}, dst interface{}, what string) error {
	if value == nil {
		return nil
	}
	var data []byte
	switch v := value.(type) {
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("unsupported %s type %T", what, value)
	}
	if len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("unmarshal %s: %w", what, err)
	}
	return nil
}
