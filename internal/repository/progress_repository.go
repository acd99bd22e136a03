package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/examprep-api/internal/models"
)

const progressColumns = `id, user_id, exam_id, subject_id, questions_solved, correct_answers, accuracy_rate, last_studied, created_at, updated_at`

const answerColumns = `id, user_id, question_id, exam_id, subject_id, selected_answer, is_correct, answered_at`

// ProgressRepository reads and writes the progress ledger and answer log.
type ProgressRepository struct {
	db *sqlx.DB
}

func NewProgressRepository(db *sqlx.DB) *ProgressRepository {
	return &ProgressRepository{db: db}
}

// ListByUserExam returns the per-subject records of one exam.
func (r *ProgressRepository) ListByUserExam(ctx context.Context, userID, examID string) ([]models.ProgressRecord, error) {
	const query = `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 AND exam_id = $2 ORDER BY created_at ASC`
	var records []models.ProgressRecord
	if err := r.db.SelectContext(ctx, &records, query, userID, examID); err != nil {
		return nil, dbError("list progress", err)
	}
	for i := range records {
		records[i].Normalize()
	}
	return records, nil
}

// ListByUser returns every record of a user across exams.
func (r *ProgressRepository) ListByUser(ctx context.Context, userID string) ([]models.ProgressRecord, error) {
	const query = `SELECT ` + progressColumns + ` FROM user_progress WHERE user_id = $1 ORDER BY exam_id, created_at ASC`
	var records []models.ProgressRecord
	if err := r.db.SelectContext(ctx, &records, query, userID); err != nil {
		return nil, dbError("list user progress", err)
	}
	for i := range records {
		records[i].Normalize()
	}
	return records, nil
}

// RecordAnswer appends the answer event and, when trackProgress is set,
// folds it into the (user, exam, subject) record. Both writes share one
// transaction: either the event and its tally persist together or neither does.
func (r *ProgressRepository) RecordAnswer(ctx context.Context, event *models.AnswerEvent, trackProgress bool) (*models.ProgressRecord, error) {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}
	if event.AnsweredAt.IsZero() {
		event.AnsweredAt = time.Now().UTC()
	}

	var record *models.ProgressRecord
	err := withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const insert = `INSERT INTO user_answers (` + answerColumns + `)
VALUES (:id, :user_id, :question_id, :exam_id, :subject_id, :selected_answer, :is_correct, :answered_at)`
		if _, err := tx.NamedExecContext(ctx, insert, event); err != nil {
			return dbError("insert answer", err)
		}
		if !trackProgress {
			return nil
		}
		var err error
		record, err = applyAnswer(ctx, tx, event)
		return err
	})
	if err != nil {
		return nil, err
	}
	return record, nil
}

func applyAnswer(ctx context.Context, tx *sqlx.Tx, event *models.AnswerEvent) (*models.ProgressRecord, error) {
	var rec models.ProgressRecord
	err := tx.GetContext(ctx, &rec, `SELECT `+progressColumns+` FROM user_progress
WHERE user_id = $1 AND exam_id = $2 AND subject_id = $3 FOR UPDATE`, event.UserID, event.ExamID, event.SubjectID)
	switch {
	case err == nil:
		rec.Apply(event.IsCorrect, event.AnsweredAt)
		rec.UpdatedAt = event.AnsweredAt
		if _, err := tx.ExecContext(ctx, `UPDATE user_progress SET questions_solved = $2, correct_answers = $3, accuracy_rate = $4,
last_studied = $5, updated_at = $5 WHERE id = $1`, rec.ID, rec.QuestionsSolved, rec.CorrectAnswers, rec.AccuracyRate, rec.LastStudied); err != nil {
			return nil, dbError("update progress", err)
		}
		return &rec, nil
	case errors.Is(err, sql.ErrNoRows):
		return insertProgress(ctx, tx, event)
	default:
		return nil, dbError("lock progress", err)
	}
}

// insertProgress creates the first record; a concurrent first answer for the
// same triple falls through to an in-place increment.
func insertProgress(ctx context.Context, tx *sqlx.Tx, event *models.AnswerEvent) (*models.ProgressRecord, error) {
	rec := models.ProgressRecord{
		ID:        uuid.NewString(),
		UserID:    event.UserID,
		ExamID:    event.ExamID,
		SubjectID: event.SubjectID,
		CreatedAt: event.AnsweredAt,
		UpdatedAt: event.AnsweredAt,
	}
	rec.Apply(event.IsCorrect, event.AnsweredAt)

	const upsert = `INSERT INTO user_progress (` + progressColumns + `)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
ON CONFLICT (user_id, exam_id, subject_id) DO UPDATE SET
    questions_solved = user_progress.questions_solved + 1,
    correct_answers = user_progress.correct_answers + EXCLUDED.correct_answers,
    accuracy_rate = (user_progress.correct_answers + EXCLUDED.correct_answers) * 100.0 / (user_progress.questions_solved + 1),
    last_studied = EXCLUDED.last_studied,
    updated_at = EXCLUDED.updated_at
RETURNING ` + progressColumns
	var stored models.ProgressRecord
	if err := tx.GetContext(ctx, &stored, upsert,
		rec.ID, rec.UserID, rec.ExamID, rec.SubjectID, rec.QuestionsSolved, rec.CorrectAnswers,
		rec.AccuracyRate, rec.LastStudied, rec.CreatedAt, rec.UpdatedAt); err != nil {
		return nil, dbError("insert progress", err)
	}
	stored.Normalize()
	return &stored, nil
}

// ActivityTimes returns answer timestamps for an exam, oldest first.
func (r *ProgressRepository) ActivityTimes(ctx context.Context, userID, examID string) ([]time.Time, error) {
	var times []time.Time
	if err := r.db.SelectContext(ctx, &times, `SELECT answered_at FROM user_answers WHERE user_id = $1 AND exam_id = $2 ORDER BY answered_at ASC`, userID, examID); err != nil {
		return nil, dbError("list activity", err)
	}
	return times, nil
}

// RecentAnswers returns the latest answers for a subject, newest first.
func (r *ProgressRepository) RecentAnswers(ctx context.Context, userID, subjectID string, limit int) ([]models.AnswerEvent, error) {
	if limit <= 0 {
		limit = 20
	}
	const query = `SELECT ` + answerColumns + ` FROM user_answers WHERE user_id = $1 AND subject_id = $2 ORDER BY answered_at DESC LIMIT $3`
	var events []models.AnswerEvent
	if err := r.db.SelectContext(ctx, &events, query, userID, subjectID, limit); err != nil {
		return nil, dbError("list recent answers", err)
	}
	return events, nil
}
