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

type examRepository interface {
	List(ctx context.Context) ([]models.Exam, error)
	FindByID(ctx context.Context, id string) (*models.Exam, error)
	Create(ctx context.Context, exam *models.Exam) error
	Update(ctx context.Context, exam *models.Exam) error
	Delete(ctx context.Context, id string) error
}

type subjectQuestionRepository interface {
	ListBySubject(ctx context.Context, examID, subjectID string) ([]models.Question, error)
}

// ExamService is the exam catalog: cached reads for students and admin mutations.
type ExamService struct {
	exams     examRepository
	questions subjectQuestionRepository
	cache     *CacheService
	validator *validator.Validate
	logger    *zap.Logger
}

// NewExamService constructs an ExamService.
func NewExamService(exams examRepository, questions subjectQuestionRepository, cache *CacheService, validate *validator.Validate, logger *zap.Logger) *ExamService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	return &ExamService{exams: exams, questions: questions, cache: cache, validator: validate, logger: logger}
}

// ListExams returns exam summaries. The bool reports a cache hit.
func (s *ExamService) ListExams(ctx context.Context) ([]models.ExamSummary, bool, error) {
	var cached []models.ExamSummary
	if hit, _ := s.cache.Get(ctx, cacheKeyExamList, &cached); hit {
		return cached, true, nil
	}

	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, false, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	summaries := make([]models.ExamSummary, 0, len(exams))
	for _, exam := range exams {
		summaries = append(summaries, exam.Summary())
	}
	_ = s.cache.Set(ctx, cacheKeyExamList, summaries, 0)
	return summaries, false, nil
}

// GetExam returns one exam with its subjects. A malformed id is a 400, a missing exam a 404.
func (s *ExamService) GetExam(ctx context.Context, id string) (*models.Exam, bool, error) {
	if !IsValidID(id) {
		return nil, false, appErrors.Clone(appErrors.ErrBadRequest, "Invalid exam ID")
	}

	var cached models.Exam
	if hit, _ := s.cache.Get(ctx, cacheKeyExamPrefix+id, &cached); hit {
		return &cached, true, nil
	}

	exam, err := s.loadExam(ctx, id, "Exam not found")
	if err != nil {
		return nil, false, err
	}
	_ = s.cache.Set(ctx, cacheKeyExamPrefix+id, exam, 0)
	return exam, false, nil
}

// ListQuestions returns the student view of a subject's questions.
func (s *ExamService) ListQuestions(ctx context.Context, examID, subjectID string) ([]models.PublicQuestion, error) {
	exam, _, err := s.GetExam(ctx, examID)
	if err != nil {
		return nil, err
	}
	if !IsValidID(subjectID) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid subject ID")
	}
	if _, ok := exam.Subjects.Find(subjectID); !ok {
		return nil, appErrors.Clone(appErrors.ErrNotFound, "Subject not found in exam")
	}

	questions, err := s.questions.ListBySubject(ctx, examID, subjectID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list questions")
	}
	out := make([]models.PublicQuestion, 0, len(questions))
	for _, q := range questions {
		if !q.Published() {
			continue
		}
		out = append(out, q.Public())
	}
	return out, nil
}

// ListAll returns full exam records for the admin panel, uncached.
func (s *ExamService) ListAll(ctx context.Context) ([]models.Exam, error) {
	exams, err := s.exams.List(ctx)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list exams")
	}
	return exams, nil
}

// CreateExam inserts an exam; subject ids are assigned by the store.
func (s *ExamService) CreateExam(ctx context.Context, req dto.ExamRequest) (*models.Exam, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	exam := &models.Exam{}
	if err := applyExamRequest(exam, req); err != nil {
		return nil, err
	}
	if err := s.exams.Create(ctx, exam); err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create exam")
	}
	s.invalidate(ctx)
	return exam, nil
}

// UpdateExam replaces exam fields and its subject list. Subjects missing from
// the request are dropped together with their questions.
func (s *ExamService) UpdateExam(ctx context.Context, id string, req dto.ExamRequest) (*models.Exam, error) {
	if !IsValidID(id) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid exam ID")
	}
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	exam, err := s.loadExam(ctx, id, "Exam not found")
	if err != nil {
		return nil, err
	}
	if err := applyExamRequest(exam, req); err != nil {
		return nil, err
	}
	if err := s.exams.Update(ctx, exam); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update exam")
	}
	s.invalidate(ctx)
	return exam, nil
}

// DeleteExam removes the exam, its questions and any user selections of it.
func (s *ExamService) DeleteExam(ctx context.Context, id string) error {
	if !IsValidID(id) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Invalid exam ID")
	}
	if err := s.exams.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete exam")
	}
	s.invalidate(ctx)
	return nil
}

// Invalidate drops every cached catalog entry.
func (s *ExamService) Invalidate(ctx context.Context) {
	s.invalidate(ctx)
}

func (s *ExamService) invalidate(ctx context.Context) {
	// failures are logged by the cache service; stale entries expire by TTL
	_ = s.cache.Invalidate(ctx, cachePatternExams)
}

func (s *ExamService) loadExam(ctx context.Context, id, notFound string) (*models.Exam, error) {
	exam, err := s.exams.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, notFound)
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	return exam, nil
}

// applyExamRequest copies the request onto exam. A subject id must name one of
// the exam's current subjects and may appear once; new subjects omit it.
func applyExamRequest(exam *models.Exam, req dto.ExamRequest) error {
	exam.Name = strings.TrimSpace(req.Name)
	exam.Country = strings.TrimSpace(req.Country)
	exam.Description = req.Description
	exam.Gradient = req.Gradient
	exam.BorderColor = req.BorderColor
	exam.BgColor = req.BgColor
	exam.Flag = req.Flag

	existing := make(map[string]models.Subject, len(exam.Subjects))
	for _, subject := range exam.Subjects {
		existing[subject.ID] = subject
	}
	subjects := make(models.SubjectList, 0, len(req.Subjects))
	seen := make(map[string]struct{}, len(req.Subjects))
	for _, in := range req.Subjects {
		if in.ID != "" {
			if _, ok := existing[in.ID]; !ok {
				return appErrors.Clone(appErrors.ErrValidation, "Unknown subject ID "+in.ID)
			}
			if _, dup := seen[in.ID]; dup {
				return appErrors.Clone(appErrors.ErrValidation, "Duplicate subject ID "+in.ID)
			}
			seen[in.ID] = struct{}{}
		}
		subject := models.Subject{
			ID:          in.ID,
			Name:        strings.TrimSpace(in.Name),
			Description: in.Description,
			Duration:    in.Duration,
			Icon:        in.Icon,
			Gradient:    in.Gradient,
			BgColor:     in.BgColor,
		}
		if prev, ok := existing[in.ID]; ok {
			subject.TotalQuestions = prev.TotalQuestions
		}
		subjects = append(subjects, subject)
	}
	exam.Subjects = subjects
	return nil
}
