package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

type answerRepository interface {
	RecordAnswer(ctx context.Context, event *models.AnswerEvent, trackProgress bool) (*models.ProgressRecord, error)
}

// AnswerService grades submissions and records them with their progress update.
type AnswerService struct {
	questions questionLoader
	answers   answerRepository
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NewAnswerService constructs an AnswerService.
func NewAnswerService(questions questionLoader, answers answerRepository, metrics *MetricsService, logger *zap.Logger) *AnswerService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnswerService{
		questions: questions,
		answers:   answers,
		metrics:   metrics,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Submit grades the selected option by exact comparison with the answer key
// and stores the answer event. Progress is tallied in the same transaction,
// but only when the question belongs to the user's selected exam: answers to
// any other exam, or without a selection, keep the event alone so no progress
// row exists outside the selected exam. Unpublished questions answer 404.
func (s *AnswerService) Submit(ctx context.Context, user *models.User, questionID string, req dto.AnswerRequest) (*dto.AnswerResponse, error) {
	if !IsValidID(questionID) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid question ID")
	}
	selected := req.Answer
	if strings.TrimSpace(selected) == "" {
		return nil, appErrors.Clone(appErrors.ErrValidation, "answer is required")
	}

	q, err := s.questions.FindByID(ctx, questionID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	if !q.Published() {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
	}

	correct := q.IsCorrect(selected)
	event := &models.AnswerEvent{
		UserID:         user.ID,
		QuestionID:     q.ID,
		ExamID:         q.ExamID,
		SubjectID:      q.SubjectID,
		SelectedAnswer: selected,
		IsCorrect:      correct,
		AnsweredAt:     s.now(),
	}
	track := user.SelectedExamID != nil && *user.SelectedExamID == q.ExamID
	if _, err := s.answers.RecordAnswer(ctx, event, track); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to record answer")
	}
	s.metrics.RecordAnswer(correct)

	return &dto.AnswerResponse{
		Correct:       correct,
		CorrectAnswer: q.CorrectAnswer,
		Explanation:   q.Explanation,
	}, nil
}
