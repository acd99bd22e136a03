package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/repository"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

const (
	testExamID     = "1f0b9d3e-2a8c-4d7e-9b61-3c5a7e9f1d20"
	testSubjectID  = "5a2c7e91-4b3d-4f60-8e12-7d9c0b1a2e34"
	testSubject2ID = "9c4e1a7b-6d2f-4a83-b5e0-2f7d8c3b1a56"
	testQuestionID = "c3d8e2f1-7a4b-4c95-a6d0-8e1f2b3c4d57"
)

type mockExamRepo struct {
	exams    map[string]*models.Exam
	listErr  error
	listHits int
	findHits int
	updated  *models.Exam
	deleted  []string
}

func newMockExamRepo(exams ...*models.Exam) *mockExamRepo {
	repo := &mockExamRepo{exams: map[string]*models.Exam{}}
	for _, e := range exams {
		repo.exams[e.ID] = e
	}
	return repo
}

func (m *mockExamRepo) List(ctx context.Context) ([]models.Exam, error) {
	m.listHits++
	if m.listErr != nil {
		return nil, m.listErr
	}
	out := make([]models.Exam, 0, len(m.exams))
	for _, e := range m.exams {
		out = append(out, *e)
	}
	return out, nil
}

func (m *mockExamRepo) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	m.findHits++
	if e, ok := m.exams[id]; ok {
		cp := *e
		return &cp, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) FindBySubjectID(ctx context.Context, subjectID string) (*models.Exam, error) {
	for _, e := range m.exams {
		if _, ok := e.Subjects.Find(subjectID); ok {
			cp := *e
			return &cp, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockExamRepo) Create(ctx context.Context, exam *models.Exam) error {
	exam.ID = testExamID
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) Update(ctx context.Context, exam *models.Exam) error {
	if _, ok := m.exams[exam.ID]; !ok {
		return sql.ErrNoRows
	}
	m.updated = exam
	m.exams[exam.ID] = exam
	return nil
}

func (m *mockExamRepo) Delete(ctx context.Context, id string) error {
	if _, ok := m.exams[id]; !ok {
		return sql.ErrNoRows
	}
	delete(m.exams, id)
	m.deleted = append(m.deleted, id)
	return nil
}

type mockSubjectQuestions struct {
	questions []models.Question
}

func (m *mockSubjectQuestions) ListBySubject(ctx context.Context, examID, subjectID string) ([]models.Question, error) {
	var out []models.Question
	for _, q := range m.questions {
		if q.ExamID == examID && q.SubjectID == subjectID {
			out = append(out, q)
		}
	}
	return out, nil
}

func sampleExam() *models.Exam {
	return &models.Exam{
		ID:      testExamID,
		Name:    "SAT",
		Country: "USA",
		Subjects: models.SubjectList{
			{ID: testSubjectID, Name: "Math", TotalQuestions: 4},
			{ID: testSubject2ID, Name: "Reading", TotalQuestions: 2},
		},
		TotalQuestions: 6,
	}
}

func newTestCache(t *testing.T) (*CacheService, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	repo := repository.NewCacheRepository(client, zap.NewNop())
	return NewCacheService(repo, NewMetricsService(), time.Minute, zap.NewNop(), true), mr
}

func TestExamServiceListExamsIsCached(t *testing.T) {
	repo := newMockExamRepo(sampleExam())
	cache, _ := newTestCache(t)
	svc := NewExamService(repo, &mockSubjectQuestions{}, cache, nil, zap.NewNop())
	ctx := context.Background()

	first, hit, err := svc.ListExams(ctx)
	require.NoError(t, err)
	assert.False(t, hit)
	require.Len(t, first, 1)
	assert.Equal(t, "SAT", first[0].Name)

	second, hit, err := svc.ListExams(ctx)
	require.NoError(t, err)
	assert.True(t, hit)
	assert.Equal(t, first, second)
	assert.Equal(t, 1, repo.listHits)
}

func TestExamServiceWorksWithoutCache(t *testing.T) {
	repo := newMockExamRepo(sampleExam())
	svc := NewExamService(repo, &mockSubjectQuestions{}, nil, nil, zap.NewNop())

	_, hit, err := svc.ListExams(context.Background())
	require.NoError(t, err)
	assert.False(t, hit)
	_, _, err = svc.ListExams(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, repo.listHits)
}

func TestExamServiceGetExamIDHandling(t *testing.T) {
	svc := NewExamService(newMockExamRepo(sampleExam()), &mockSubjectQuestions{}, nil, nil, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.GetExam(ctx, "not-an-id")
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
	assert.Equal(t, "Invalid exam ID", appErrors.FromError(err).Message)

	_, _, err = svc.GetExam(ctx, "00000000-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	exam, _, err := svc.GetExam(ctx, testExamID)
	require.NoError(t, err)
	assert.Len(t, exam.Subjects, 2)
}

func TestExamServiceListQuestionsHidesDraftsAndAnswerKeys(t *testing.T) {
	questions := &mockSubjectQuestions{questions: []models.Question{
		{ID: "q1", ExamID: testExamID, SubjectID: testSubjectID, Text: "2+2?", CorrectAnswer: "b", Status: models.QuestionPublished},
		{ID: "q2", ExamID: testExamID, SubjectID: testSubjectID, Text: "draft", CorrectAnswer: "a", Status: models.QuestionDraft},
		{ID: "q3", ExamID: testExamID, SubjectID: testSubject2ID, Text: "other subject", Status: models.QuestionPublished},
	}}
	svc := NewExamService(newMockExamRepo(sampleExam()), questions, nil, nil, zap.NewNop())

	got, err := svc.ListQuestions(context.Background(), testExamID, testSubjectID)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, "2+2?", got[0].Text)
}

func TestExamServiceListQuestionsUnknownSubject(t *testing.T) {
	svc := NewExamService(newMockExamRepo(sampleExam()), &mockSubjectQuestions{}, nil, nil, zap.NewNop())

	_, err := svc.ListQuestions(context.Background(), testExamID, "00000000-0000-4000-8000-000000000000")
	require.Error(t, err)
	assert.Equal(t, 404, appErrors.FromError(err).Status)

	_, err = svc.ListQuestions(context.Background(), testExamID, "math")
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestExamServiceMutationsInvalidateCache(t *testing.T) {
	repo := newMockExamRepo(sampleExam())
	cache, mr := newTestCache(t)
	svc := NewExamService(repo, &mockSubjectQuestions{}, cache, nil, zap.NewNop())
	ctx := context.Background()

	_, _, err := svc.ListExams(ctx)
	require.NoError(t, err)
	_, _, err = svc.GetExam(ctx, testExamID)
	require.NoError(t, err)
	require.Len(t, mr.Keys(), 2)

	updated, err := svc.UpdateExam(ctx, testExamID, dto.ExamRequest{
		Name:    "SAT 2025",
		Country: "USA",
		Subjects: []dto.SubjectRequest{
			{ID: testSubjectID, Name: "Mathematics"},
		},
	})
	require.NoError(t, err)
	assert.Empty(t, mr.Keys())

	assert.Equal(t, "SAT 2025", updated.Name)
	require.Len(t, updated.Subjects, 1)
	assert.Equal(t, "Mathematics", updated.Subjects[0].Name)
	assert.Equal(t, 4, updated.Subjects[0].TotalQuestions, "existing subject keeps its recounted total")
}

func TestExamServiceCreateValidates(t *testing.T) {
	svc := NewExamService(newMockExamRepo(), &mockSubjectQuestions{}, nil, nil, zap.NewNop())

	_, err := svc.CreateExam(context.Background(), dto.ExamRequest{Country: "USA"})
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	exam, err := svc.CreateExam(context.Background(), dto.ExamRequest{
		Name:     " GRE ",
		Country:  "USA",
		Subjects: []dto.SubjectRequest{{Name: "Verbal"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "GRE", exam.Name)
	assert.Equal(t, testExamID, exam.ID)
}

func TestExamServiceDelete(t *testing.T) {
	repo := newMockExamRepo(sampleExam())
	svc := NewExamService(repo, &mockSubjectQuestions{}, nil, nil, zap.NewNop())

	require.NoError(t, svc.DeleteExam(context.Background(), testExamID))
	assert.Equal(t, []string{testExamID}, repo.deleted)

	err := svc.DeleteExam(context.Background(), testExamID)
	assert.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestExamServiceStoreOutage(t *testing.T) {
	repo := newMockExamRepo()
	repo.listErr = errors.New("boom")
	svc := NewExamService(repo, &mockSubjectQuestions{}, nil, nil, zap.NewNop())

	_, _, err := svc.ListExams(context.Background())
	require.Error(t, err)
	assert.Equal(t, 500, appErrors.FromError(err).Status)
}

func TestExamServiceRejectsForeignAndDuplicateSubjectIDs(t *testing.T) {
	repo := newMockExamRepo(sampleExam())
	svc := NewExamService(repo, &mockSubjectQuestions{}, nil, nil, zap.NewNop())
	ctx := context.Background()
	foreign := "5c6d7e8f-0000-4000-8000-0000000000ff"

	cases := []struct {
		name     string
		subjects []dto.SubjectRequest
	}{
		{"foreign", []dto.SubjectRequest{{ID: foreign, Name: "Stolen"}}},
		{"duplicate", []dto.SubjectRequest{{ID: testSubjectID, Name: "Math"}, {ID: testSubjectID, Name: "Math again"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.UpdateExam(ctx, testExamID, dto.ExamRequest{Name: "SAT", Country: "USA", Subjects: tc.subjects})
			require.Error(t, err)
			assert.Equal(t, 400, appErrors.FromError(err).Status)
		})
	}

	_, err := svc.CreateExam(ctx, dto.ExamRequest{Name: "GRE", Country: "USA", Subjects: []dto.SubjectRequest{{ID: foreign, Name: "Verbal"}}})
	require.Error(t, err)
	assert.Equal(t, 400, appErrors.FromError(err).Status)

	exam, err := repo.FindByID(ctx, testExamID)
	require.NoError(t, err)
	assert.Len(t, exam.Subjects, 2)
}
