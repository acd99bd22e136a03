package service

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/noah-isme/examprep-api/internal/dto"
	"github.com/noah-isme/examprep-api/internal/models"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
	"github.com/noah-isme/examprep-api/pkg/export"
)

var progressExportHeaders = []string{"Exam", "Subject", "Questions Solved", "Correct Answers", "Accuracy (%)", "Completion (%)", "Last Studied"}

type progressReporter interface {
	Report(ctx context.Context, user *models.User) (*dto.UserProgressReport, error)
}

type userGetter interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

// ExportFile is a rendered download.
type ExportFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// ExportService renders a user's progress report as csv, pdf or xlsx.
type ExportService struct {
	users    userGetter
	progress progressReporter
	logger   *zap.Logger
	now      func() time.Time
}

// NewExportService constructs an ExportService.
func NewExportService(users userGetter, progress progressReporter, logger *zap.Logger) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{users: users, progress: progress, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// UserProgress renders the progress of userID in the requested format.
func (s *ExportService) UserProgress(ctx context.Context, userID, rawFormat string) (*ExportFile, error) {
	format, err := export.ParseFormat(rawFormat)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, err.Error())
	}
	renderer, err := export.RendererFor(format)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, err.Error())
	}

	user, err := s.users.Get(ctx, userID)
	if err != nil {
		return nil, err
	}
	report, err := s.progress.Report(ctx, user)
	if err != nil {
		return nil, err
	}

	data, err := renderer.Render(progressDataset(report))
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to render export")
	}
	s.logger.Info("progress export rendered",
		zap.String("user_id", user.ID),
		zap.String("format", string(format)),
		zap.Int("bytes", len(data)),
	)
	return &ExportFile{
		Filename:    fmt.Sprintf("progress-%s-%s.%s", user.ID, s.now().Format("20060102"), format),
		ContentType: renderer.ContentType(),
		Data:        data,
	}, nil
}

func progressDataset(report *dto.UserProgressReport) export.Dataset {
	title := "Progress report"
	if report.Name != "" {
		title = fmt.Sprintf("Progress report: %s <%s>", report.Name, report.Email)
	}
	ds := export.Dataset{Title: title, Headers: progressExportHeaders}
	for _, exam := range report.Exams {
		examName := exam.ExamName
		if examName == "" {
			examName = exam.ExamID
		}
		for _, subject := range exam.Subjects {
			subjectName := subject.SubjectName
			if strings.TrimSpace(subjectName) == "" {
				subjectName = subject.SubjectID
			}
			lastStudied := ""
			if subject.LastStudied != nil {
				lastStudied = subject.LastStudied.UTC().Format(time.RFC3339)
			}
			ds.Rows = append(ds.Rows, map[string]string{
				"Exam":             examName,
				"Subject":          subjectName,
				"Questions Solved": strconv.Itoa(subject.QuestionsSolved),
				"Correct Answers":  strconv.Itoa(subject.CorrectAnswers),
				"Accuracy (%)":     strconv.FormatFloat(subject.AccuracyRate, 'f', 1, 64),
				"Completion (%)":   strconv.FormatFloat(subject.Progress, 'f', 1, 64),
				"Last Studied":     lastStudied,
			})
		}
	}
	return ds
}
