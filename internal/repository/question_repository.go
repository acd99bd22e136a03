package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/examprep-api/internal/models"
)

const questionColumns = `id, exam_id, subject_id, question, options, correct_answer, explanation, question_type, difficulty, status, tags, duration, created_by, created_at, updated_at`

// QuestionRepository persists questions and keeps exam totals in step.
type QuestionRepository struct {
	db *sqlx.DB
}

func NewQuestionRepository(db *sqlx.DB) *QuestionRepository {
	return &QuestionRepository{db: db}
}

// FindByID returns sql.ErrNoRows when absent.
func (r *QuestionRepository) FindByID(ctx context.Context, id string) (*models.Question, error) {
	var q models.Question
	if err := r.db.GetContext(ctx, &q, `SELECT `+questionColumns+` FROM questions WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("find question", err)
	}
	q.Normalize()
	return &q, nil
}

// ListBySubject returns the non-archived questions of one subject in creation order.
func (r *QuestionRepository) ListBySubject(ctx context.Context, examID, subjectID string) ([]models.Question, error) {
	const query = `SELECT ` + questionColumns + ` FROM questions
WHERE exam_id = $1 AND subject_id = $2 AND status <> 'archived' ORDER BY created_at ASC, id ASC`
	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, query, examID, subjectID); err != nil {
		return nil, dbError("list subject questions", err)
	}
	for i := range questions {
		questions[i].Normalize()
	}
	return questions, nil
}

// List returns a filtered page of questions with the total count.
func (r *QuestionRepository) List(ctx context.Context, filter models.QuestionFilter) ([]models.Question, int, error) {
	conditions := []string{"subject_id = $1"}
	args := []interface{}{filter.SubjectID}
	if filter.Difficulty != nil {
		conditions = append(conditions, fmt.Sprintf("difficulty = $%d", len(args)+1))
		args = append(args, *filter.Difficulty)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	where := " FROM questions WHERE " + strings.Join(conditions, " AND ")

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s%s ORDER BY created_at DESC LIMIT %d OFFSET %d", questionColumns, where, size, offset)

	var questions []models.Question
	if err := r.db.SelectContext(ctx, &questions, listQuery, args...); err != nil {
		return nil, 0, dbError("list questions", err)
	}
	for i := range questions {
		questions[i].Normalize()
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*)"+where, args...); err != nil {
		return nil, 0, dbError("count questions", err)
	}
	return questions, total, nil
}

// Create inserts the question and recounts its exam in one transaction.
// It returns the exam with refreshed totals.
func (r *QuestionRepository) Create(ctx context.Context, q *models.Question) (*models.Exam, error) {
	if q.ID == "" {
		q.ID = uuid.NewString()
	}
	q.Normalize()
	now := time.Now().UTC()
	q.CreatedAt = now
	q.UpdatedAt = now

	var exam *models.Exam
	err := withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `INSERT INTO questions (` + questionColumns + `)
VALUES (:id, :exam_id, :subject_id, :question, :options, :correct_answer, :explanation, :question_type, :difficulty, :status, :tags, :duration, :created_by, :created_at, :updated_at)`
		if _, err := tx.NamedExecContext(ctx, query, q); err != nil {
			return dbError("create question", err)
		}
		var err error
		exam, err = recountExam(ctx, tx, q.ExamID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// Update rewrites the question and recounts its exam.
func (r *QuestionRepository) Update(ctx context.Context, q *models.Question) (*models.Exam, error) {
	q.Normalize()
	q.UpdatedAt = time.Now().UTC()

	var exam *models.Exam
	err := withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		const query = `UPDATE questions SET subject_id = :subject_id, question = :question, options = :options,
correct_answer = :correct_answer, explanation = :explanation, question_type = :question_type, difficulty = :difficulty,
status = :status, tags = :tags, duration = :duration, updated_at = :updated_at WHERE id = :id AND exam_id = :exam_id`
		res, err := tx.NamedExecContext(ctx, query, q)
		if err != nil {
			return dbError("update question", err)
		}
		if err := expectAffected(res, "update question"); err != nil {
			return err
		}
		exam, err = recountExam(ctx, tx, q.ExamID)
		return err
	})
	if err != nil {
		return nil, err
	}
	return exam, nil
}

// Delete removes the question and recounts its exam.
func (r *QuestionRepository) Delete(ctx context.Context, id string) (*models.Question, *models.Exam, error) {
	var (
		deleted models.Question
		exam    *models.Exam
	)
	err := withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := tx.GetContext(ctx, &deleted, `DELETE FROM questions WHERE id = $1 RETURNING `+questionColumns, id); err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				return sql.ErrNoRows
			}
			return dbError("delete question", err)
		}
		var err error
		exam, err = recountExam(ctx, tx, deleted.ExamID)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	deleted.Normalize()
	return &deleted, exam, nil
}
