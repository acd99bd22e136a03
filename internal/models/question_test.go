package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExplanationScanFillsEmptyLists(t *testing.T) {
	var e Explanation
	require.NoError(t, e.Scan([]byte(`{"concept":"ratio"}`)))
	assert.Equal(t, "ratio", e.Concept)
	assert.NotNil(t, e.Reasoning)
	assert.NotNil(t, e.Sources)
}

func TestSubjectListScanAndFind(t *testing.T) {
	var s SubjectList
	require.NoError(t, s.Scan(`[{"id":"s1","name":"Math","description":"","total_questions":4}]`))
	got, ok := s.Find("s1")
	require.True(t, ok)
	assert.Equal(t, 4, got.TotalQuestions)
	_, ok = s.Find("nope")
	assert.False(t, ok)
}

func TestSubjectListScanRejectsUnknownType(t *testing.T) {
	var s SubjectList
	assert.Error(t, s.Scan(42))
}

func TestQuestionNormalizeDefaults(t *testing.T) {
	q := &Question{CorrectAnswer: "b"}
	q.Normalize()
	assert.Equal(t, QuestionMultipleChoice, q.QuestionType)
	assert.Equal(t, DifficultyMedium, q.Difficulty)
	assert.Equal(t, QuestionPublished, q.Status)
	assert.True(t, q.IsCorrect("b"))
	assert.False(t, q.IsCorrect("B"))
}
