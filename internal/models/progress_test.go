package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestProgressApplyFirstAnswer(t *testing.T) {
	now := time.Now().UTC()

	correct := ProgressRecord{}
	correct.Apply(true, now)
	assert.Equal(t, 1, correct.QuestionsSolved)
	assert.Equal(t, 1, correct.CorrectAnswers)
	assert.Equal(t, 100.0, correct.AccuracyRate)
	assert.Equal(t, now, correct.LastStudied)

	wrong := ProgressRecord{}
	wrong.Apply(false, now)
	assert.Equal(t, 1, wrong.QuestionsSolved)
	assert.Equal(t, 0, wrong.CorrectAnswers)
	assert.Equal(t, 0.0, wrong.AccuracyRate)
}

func TestProgressApplyRecomputesAccuracy(t *testing.T) {
	rec := ProgressRecord{QuestionsSolved: 3, CorrectAnswers: 2, AccuracyRate: 12}
	rec.Apply(false, time.Now())
	assert.Equal(t, 4, rec.QuestionsSolved)
	assert.Equal(t, 50.0, rec.AccuracyRate)
}

func TestClampedPercent(t *testing.T) {
	assert.Equal(t, 0.0, ClampedPercent(5, 0))
	assert.Equal(t, 50.0, ClampedPercent(1, 2))
	assert.Equal(t, 100.0, ClampedPercent(7, 3))
}
