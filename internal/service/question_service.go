package service

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

type questionRepository interface {
	FindByID(ctx context.Context, id string) (*models.Question, error)
	List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error)
	Create(ctx context.Context, q *models.Question) (*models.Exam, error)
	Update(ctx context.Context, q *models.Question) (*models.Exam, error)
	Delete(ctx context.Context, id string) (*models.Question, *models.Exam, error)
}

type subjectExamFinder interface {
	FindBySubjectID(ctx context.Context, subjectID string) (*models.Exam, error)
}

type catalogInvalidator interface {
	Invalidate(ctx context.Context)
}

type indexScheduler interface {
	QueueIndex(questionID string)
	QueueRemove(questionID string)
}

// QuestionService is the admin question bank. Every mutation recounts the
// owning exam's totals in the same transaction as the write.
type QuestionService struct {
	questions questionRepository
	exams     subjectExamFinder
	catalog   catalogInvalidator
	indexer   indexScheduler
	validator *validator.Validate
	logger    *zap.Logger
}

// NewQuestionService constructs a QuestionService.
func NewQuestionService(questions questionRepository, exams subjectExamFinder, catalog catalogInvalidator, indexer indexScheduler, validate *validator.Validate, logger *zap.Logger) *QuestionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &QuestionService{questions: questions, exams: exams, catalog: catalog, indexer: indexer, validator: validate, logger: logger}
}

// List returns a filtered page of a subject's questions including answer keys.
func (s *QuestionService) List(ctx context.Context, filter models.QuestionFilter) (*dto.QuestionPage, error) {
	if !IsValidID(filter.SubjectID) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid subject ID")
	}
	if filter.Difficulty != nil && !validDifficulty(*filter.Difficulty) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid difficulty")
	}
	if filter.Status != nil && !validQuestionStatus(*filter.Status) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid status")
	}
	items, total, err := s.questions.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	if items == nil {
		items = []models.Question{}
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	return &dto.QuestionPage{Items: items, Pagination: models.NewPagination(page, size, total)}, nil
}

// Get returns one question with its answer key.
func (s *QuestionService) Get(ctx context.Context, id string) (*models.Question, error) {
	if !IsValidID(id) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid question ID")
	}
	return s.load(ctx, id)
}

// Create adds a question under subjectID and returns it with the recounted exam.
func (s *QuestionService) Create(ctx context.Context, subjectID, createdBy string, req dto.QuestionRequest) (*models.Question, *models.Exam, error) {
	if !IsValidID(subjectID) {
		return nil, nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid subject ID")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, nil, err
	}
	exam, err := s.exams.FindBySubjectID(ctx, subjectID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "Subject not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load subject")
	}

	q := &models.Question{ExamID: exam.ID, SubjectID: subjectID}
	applyQuestionRequest(q, req)
	if createdBy != "" {
		q.CreatedBy = &createdBy
	}
	updated, err := s.questions.Create(ctx, q)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create question")
	}
	s.afterWrite(ctx, q)
	return q, updated, nil
}

// Update replaces a question's content. The owning subject does not change.
func (s *QuestionService) Update(ctx context.Context, id string, req dto.QuestionRequest) (*models.Question, *models.Exam, error) {
	if !IsValidID(id) {
		return nil, nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid question ID")
	}
	if err := s.validateRequest(req); err != nil {
		return nil, nil, err
	}
	q, err := s.load(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	applyQuestionRequest(q, req)
	updated, err := s.questions.Update(ctx, q)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
		}
		return nil, nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update question")
	}
	s.afterWrite(ctx, q)
	return q, updated, nil
}

// Delete removes a question and returns the recounted exam.
func (s *QuestionService) Delete(ctx context.Context, id string) (*models.Exam, error) {
	if !IsValidID(id) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid question ID")
	}
	deleted, exam, err := s.questions.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete question")
	}
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	if s.indexer != nil {
		s.indexer.QueueRemove(deleted.ID)
	}
	return exam, nil
}

func (s *QuestionService) afterWrite(ctx context.Context, q *models.Question) {
	if s.catalog != nil {
		s.catalog.Invalidate(ctx)
	}
	if s.indexer != nil {
		s.indexer.QueueIndex(q.ID)
	}
}

func (s *QuestionService) load(ctx context.Context, id string) (*models.Question, error) {
	q, err := s.questions.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Question not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load question")
	}
	return q, nil
}

// validateRequest also checks the answer key names one of the options.
func (s *QuestionService) validateRequest(req dto.QuestionRequest) error {
	if err := s.validator.Struct(req); err != nil {
		return validationError(err)
	}
	seen := make(map[string]struct{}, len(req.Options))
	for _, opt := range req.Options {
		id := strings.TrimSpace(opt.ID)
		if id == "" {
			return appErrors.Clone(appErrors.ErrValidation, "option id is required")
		}
		if _, dup := seen[id]; dup {
			return appErrors.Clone(appErrors.ErrValidation, "option ids must be unique")
		}
		seen[id] = struct{}{}
	}
	if !models.OptionList(req.Options).Has(req.CorrectAnswer) {
		return appErrors.Clone(appErrors.ErrValidation, "correct_answer must match an option id")
	}
	return nil
}

func applyQuestionRequest(q *models.Question, req dto.QuestionRequest) {
	q.Text = strings.TrimSpace(req.Question)
	q.Options = models.OptionList(req.Options)
	q.CorrectAnswer = req.CorrectAnswer
	q.Explanation = req.Explanation
	q.QuestionType = req.QuestionType
	q.Difficulty = req.Difficulty
	q.Status = req.Status
	q.Tags = models.Tags(req.Tags)
	q.Duration = req.Duration
	q.Normalize()
}

func validDifficulty(d models.QuestionDifficulty) bool {
	switch d {
	case models.DifficultyEasy, models.DifficultyMedium, models.DifficultyHard:
		return true
	}
	return false
}

func validQuestionStatus(st models.QuestionStatus) bool {
	switch st {
	case models.QuestionDraft, models.QuestionPublished, models.QuestionArchived:
		return true
	}
	return false
}
