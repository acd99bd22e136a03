package service

import (
	"context"
	"database/sql"
	"errors"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

// studySessionGap is the longest pause between answers still counted as study time.
const studySessionGap = 30 * time.Minute

type progressRepository interface {
	ListByUserExam(ctx context.Context, userID, examID string) ([]models.ProgressRecord, error)
	ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error)
	ActivityTimes(ctx context.Context, userID, examID string) ([]time.Time, error)
}

type examSelector interface {
	SetSelectedExam(ctx context.Context, userID, examID string) error
}

type examFinder interface {
	FindByID(ctx context.Context, id string) (*models.Exam, error)
}

// ProgressService reads the progress ledger and manages exam selection.
type ProgressService struct {
	users    examSelector
	exams    examFinder
	progress progressRepository
	logger   *zap.Logger
	now      func() time.Time
}

// NewProgressService constructs a ProgressService.
func NewProgressService(users examSelector, exams examFinder, progress progressRepository, logger *zap.Logger) *ProgressService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ProgressService{
		users:    users,
		exams:    exams,
		progress: progress,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// SelectExam points the user at an existing exam.
func (s *ProgressService) SelectExam(ctx context.Context, userID, examID string) error {
	if !IsValidID(examID) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Invalid exam ID")
	}
	if err := s.users.SetSelectedExam(ctx, userID, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "Exam not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to select exam")
	}
	return nil
}

// Dashboard returns the selected exam and the user's aggregated progress on it.
// user_progress is nil until the first answer is recorded.
func (s *ProgressService) Dashboard(ctx context.Context, user *models.User) (*dto.DashboardResponse, error) {
	examID, err := selectedExamID(user)
	if err != nil {
		return nil, err
	}

	var (
		exam    *models.Exam
		records []models.ProgressRecord
		times   []time.Time
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		exam, err = s.exams.FindByID(gctx, examID)
		return err
	})
	g.Go(func() error {
		var err error
		records, err = s.progress.ListByUserExam(gctx, user.ID, examID)
		return err
	})
	g.Go(func() error {
		var err error
		times, err = s.progress.ActivityTimes(gctx, user.ID, examID)
		return err
	})
	if err := g.Wait(); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Selected exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load dashboard")
	}

	resp := &dto.DashboardResponse{SelectedExam: *exam}
	if len(records) > 0 {
		resp.UserProgress = buildUserProgress(user.ID, exam, records, times, s.now())
	}
	return resp, nil
}

// SubjectProgress lists per-subject progress on the selected exam.
func (s *ProgressService) SubjectProgress(ctx context.Context, user *models.User) ([]dto.SubjectProgress, error) {
	examID, err := selectedExamID(user)
	if err != nil {
		return nil, err
	}
	exam, err := s.exams.FindByID(ctx, examID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "Selected exam not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
	}
	records, err := s.progress.ListByUserExam(ctx, user.ID, examID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}
	return subjectProgressList(exam, records), nil
}

// Report groups every progress record of a user by exam, for staff review.
func (s *ProgressService) Report(ctx context.Context, user *models.User) (*dto.UserProgressReport, error) {
	records, err := s.progress.ListByUser(ctx, user.ID)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load progress")
	}

	byExam := make(map[string][]models.ProgressRecord)
	var order []string
	for _, rec := range records {
		if _, ok := byExam[rec.ExamID]; !ok {
			order = append(order, rec.ExamID)
		}
		byExam[rec.ExamID] = append(byExam[rec.ExamID], rec)
	}

	report := &dto.UserProgressReport{UserID: user.ID, Name: user.Name, Email: user.Email, Exams: []dto.ExamProgress{}}
	for _, examID := range order {
		exam, err := s.exams.FindByID(ctx, examID)
		switch {
		case err == nil:
		case errors.Is(err, sql.ErrNoRows):
			// progress of a deleted exam is still reported, without subject totals
			exam = &models.Exam{ID: examID}
		default:
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load exam")
		}
		report.Exams = append(report.Exams, dto.ExamProgress{
			ExamID:   examID,
			ExamName: exam.Name,
			Subjects: subjectProgressList(exam, byExam[examID]),
		})
	}
	return report, nil
}

func selectedExamID(user *models.User) (string, error) {
	if user == nil || user.SelectedExamID == nil || *user.SelectedExamID == "" {
		return "", appErrors.Clone(appErrors.ErrBadRequest, "No exam selected")
	}
	if !IsValidID(*user.SelectedExamID) {
		return "", appErrors.Clone(appErrors.ErrBadRequest, "Invalid exam ID")
	}
	return *user.SelectedExamID, nil
}

func buildUserProgress(userID string, exam *models.Exam, records []models.ProgressRecord, times []time.Time, now time.Time) *dto.UserProgress {
	var solved, correct int
	var last *time.Time
	for i := range records {
		solved += records[i].QuestionsSolved
		correct += records[i].CorrectAnswers
		if ls := records[i].LastStudied; !ls.IsZero() && (last == nil || ls.After(*last)) {
			t := ls
			last = &t
		}
	}
	return &dto.UserProgress{
		UserID:            userID,
		ExamID:            exam.ID,
		OverallProgress:   models.ClampedPercent(solved, exam.TotalQuestions),
		QuestionsSolved:   solved,
		AccuracyRate:      models.Percent(correct, solved),
		StudyTimeHours:    studyHours(times),
		CurrentStreakDays: currentStreak(times, now),
		LastStudiedDate:   last,
		SubjectProgress:   subjectProgressList(exam, records),
	}
}

// subjectProgressList orders records by the exam's subject order; records for
// subjects no longer in the exam come last with zero completion.
func subjectProgressList(exam *models.Exam, records []models.ProgressRecord) []dto.SubjectProgress {
	position := make(map[string]int, len(exam.Subjects))
	for i, subject := range exam.Subjects {
		position[subject.ID] = i
	}

	out := make([]dto.SubjectProgress, 0, len(records))
	for _, rec := range records {
		rec.Normalize()
		item := dto.SubjectProgress{
			SubjectID:       rec.SubjectID,
			QuestionsSolved: rec.QuestionsSolved,
			CorrectAnswers:  rec.CorrectAnswers,
			AccuracyRate:    rec.AccuracyRate,
		}
		if !rec.LastStudied.IsZero() {
			ls := rec.LastStudied
			item.LastStudied = &ls
		}
		if subject, ok := exam.Subjects.Find(rec.SubjectID); ok {
			item.SubjectName = subject.Name
			item.Progress = models.ClampedPercent(rec.QuestionsSolved, subject.TotalQuestions)
		}
		out = append(out, item)
	}

	sort.SliceStable(out, func(i, j int) bool {
		pi, iok := position[out[i].SubjectID]
		pj, jok := position[out[j].SubjectID]
		if iok != jok {
			return iok
		}
		return pi < pj
	})
	return out
}

// studyHours sums gaps between consecutive answers that fall within one session.
func studyHours(times []time.Time) float64 {
	if len(times) < 2 {
		return 0
	}
	sorted := append([]time.Time(nil), times...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Before(sorted[j]) })

	var total time.Duration
	for i := 1; i < len(sorted); i++ {
		if gap := sorted[i].Sub(sorted[i-1]); gap <= studySessionGap {
			total += gap
		}
	}
	hours := total.Hours()
	return float64(int(hours*100+0.5)) / 100
}

// currentStreak counts consecutive UTC days with activity ending today or yesterday.
func currentStreak(times []time.Time, now time.Time) int {
	if len(times) == 0 {
		return 0
	}
	days := make(map[time.Time]struct{}, len(times))
	for _, t := range times {
		days[truncateDay(t)] = struct{}{}
	}

	day := truncateDay(now)
	if _, ok := days[day]; !ok {
		day = day.AddDate(0, 0, -1)
		if _, ok := days[day]; !ok {
			return 0
		}
	}
	streak := 0
	for {
		if _, ok := days[day]; !ok {
			return streak
		}
		streak++
		day = day.AddDate(0, 0, -1)
	}
}

func truncateDay(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
