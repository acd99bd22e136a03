package service

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

func sampleQuestion() *models.Question {
	q := &models.Question{
		ID:            testQuestionID,
		ExamID:        testExamID,
		SubjectID:     testSubjectID,
		Text:          "What is 2+2?",
		Options:       models.OptionList{{ID: "a", Text: "3"}, {ID: "b", Text: "4"}},
		CorrectAnswer: "b",
		Explanation:   models.Explanation{Concept: "Addition", Reasoning: []string{"2 and 2 make 4"}},
		Tags:          models.Tags{"arithmetic"},
	}
	q.Normalize()
	return q
}

func newTestAnswerService(t *testing.T) (*AnswerService, *mockLedger) {
	t.Helper()
	questions := newMockQuestionRepo(sampleExam())
	questions.questions[testQuestionID] = sampleQuestion()
	ledger := newMockLedger()
	return NewAnswerService(questions, ledger, NewMetricsService(), zap.NewNop()), ledger
}

func TestAnswerSubmitCorrectAndIncorrect(t *testing.T) {
	svc, ledger := newTestAnswerService(t)
	user := studentUser()
	examID := testExamID
	user.SelectedExamID = &examID
	ctx := context.Background()

	res, err := svc.Submit(ctx, user, testQuestionID, dto.AnswerRequest{Answer: "b"})
	require.NoError(t, err)
	assert.True(t, res.Correct)
	assert.Equal(t, "b", res.CorrectAnswer)
	assert.Equal(t, "Addition", res.Explanation.Concept)

	res, err = svc.Submit(ctx, user, testQuestionID, dto.AnswerRequest{Answer: "a"})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	assert.Equal(t, "b", res.CorrectAnswer)

	require.Len(t, ledger.events, 2)
	assert.False(t, ledger.events[1].IsCorrect)
	assert.Equal(t, "a", ledger.events[1].SelectedAnswer)

	rec := ledger.records[[3]string{user.ID, testExamID, testSubjectID}]
	require.NotNil(t, rec)
	assert.Equal(t, 2, rec.QuestionsSolved)
	assert.Equal(t, 1, rec.CorrectAnswers)
	assert.Equal(t, 50.0, rec.AccuracyRate)
}

func TestAnswerFirstOutcomeCreatesRecord(t *testing.T) {
	svc, ledger := newTestAnswerService(t)
	user := studentUser()
	examID := testExamID
	user.SelectedExamID = &examID

	_, err := svc.Submit(context.Background(), user, testQuestionID, dto.AnswerRequest{Answer: "a"})
	require.NoError(t, err)
	rec := ledger.records[[3]string{user.ID, testExamID, testSubjectID}]
	require.NotNil(t, rec)
	assert.Equal(t, 1, rec.QuestionsSolved)
	assert.Equal(t, 0.0, rec.AccuracyRate)
}

func TestAnswerWithoutSelectionKeepsEventOnly(t *testing.T) {
	svc, ledger := newTestAnswerService(t)
	user := studentUser()

	_, err := svc.Submit(context.Background(), user, testQuestionID, dto.AnswerRequest{Answer: "b"})
	require.NoError(t, err)
	assert.Len(t, ledger.events, 1)
	assert.Equal(t, []bool{false}, ledger.tracked)
	assert.Empty(t, ledger.records)
}

func TestAnswerOtherExamNotTracked(t *testing.T) {
	svc, ledger := newTestAnswerService(t)
	user := studentUser()
	other := "00000000-0000-4000-8000-000000000000"
	user.SelectedExamID = &other

	_, err := svc.Submit(context.Background(), user, testQuestionID, dto.AnswerRequest{Answer: "b"})
	require.NoError(t, err)
	assert.Equal(t, []bool{false}, ledger.tracked)
}

func TestAnswerErrors(t *testing.T) {
	svc, ledger := newTestAnswerService(t)
	user := studentUser()
	ctx := context.Background()

	_, err := svc.Submit(ctx, user, "q-1", dto.AnswerRequest{Answer: "a"})
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	_, err = svc.Submit(ctx, user, testQuestionID, dto.AnswerRequest{Answer: "  "})
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	_, err = svc.Submit(ctx, user, "00000000-0000-4000-8000-000000000000", dto.AnswerRequest{Answer: "a"})
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	ledger.recordErr = errors.New("tx aborted")
	_, err = svc.Submit(ctx, user, testQuestionID, dto.AnswerRequest{Answer: "a"})
	assert.Equal(t, 500, appErrors.FromError(err).Status)
	assert.Empty(t, ledger.events)
}

func TestAnswerUnpublishedQuestionIsHidden(t *testing.T) {
	for _, status := range []models.QuestionStatus{models.QuestionDraft, models.QuestionArchived} {
		t.Run(string(status), func(t *testing.T) {
			questions := newMockQuestionRepo(sampleExam())
			q := sampleQuestion()
			q.Status = status
			questions.questions[testQuestionID] = q
			ledger := newMockLedger()
			svc := NewAnswerService(questions, ledger, NewMetricsService(), zap.NewNop())
			user := studentUser()
			examID := testExamID
			user.SelectedExamID = &examID

			res, err := svc.Submit(context.Background(), user, testQuestionID, dto.AnswerRequest{Answer: "b"})
			require.Error(t, err)
			assert.Nil(t, res)
			assert.Equal(t, 404, appErrors.FromError(err).Status)
			assert.Empty(t, ledger.events)
			assert.Empty(t, ledger.records)
		})
	}
}

func TestAnswerGradesRawValue(t *testing.T) {
	svc, ledger := newTestAnswerService(t)

	res, err := svc.Submit(context.Background(), studentUser(), testQuestionID, dto.AnswerRequest{Answer: " b"})
	require.NoError(t, err)
	assert.False(t, res.Correct)
	require.Len(t, ledger.events, 1)
	assert.Equal(t, " b", ledger.events[0].SelectedAnswer)
}
