package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/examprep-api/internal/models"
)

const examColumns = `id, name, country, description, subjects, total_questions, gradient, border_color, bg_color, flag, created_at, updated_at`

// ExamRepository persists exams with their embedded subjects.
type ExamRepository struct {
	db *sqlx.DB
}

func NewExamRepository(db *sqlx.DB) *ExamRepository {
	return &ExamRepository{db: db}
}

// List returns every exam ordered by name.
func (r *ExamRepository) List(ctx context.Context) ([]models.Exam, error) {
	var exams []models.Exam
	if err := r.db.SelectContext(ctx, &exams, `SELECT `+examColumns+` FROM exams ORDER BY name ASC`); err != nil {
		return nil, dbError("list exams", err)
	}
	for i := range exams {
		exams[i].Normalize()
	}
	return exams, nil
}

// FindByID returns sql.ErrNoRows when the exam does not exist.
func (r *ExamRepository) FindByID(ctx context.Context, id string) (*models.Exam, error) {
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, `SELECT `+examColumns+` FROM exams WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("find exam", err)
	}
	exam.Normalize()
	return &exam, nil
}

// FindBySubjectID locates the exam embedding the given subject.
func (r *ExamRepository) FindBySubjectID(ctx context.Context, subjectID string) (*models.Exam, error) {
	probe, err := json.Marshal([]map[string]string{{"id": subjectID}})
	if err != nil {
		return nil, err
	}
	var exam models.Exam
	if err := r.db.GetContext(ctx, &exam, `SELECT `+examColumns+` FROM exams WHERE subjects @> $1::jsonb LIMIT 1`, string(probe)); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("find exam by subject", err)
	}
	exam.Normalize()
	return &exam, nil
}

// Create inserts an exam, assigning ids to new subjects.
func (r *ExamRepository) Create(ctx context.Context, exam *models.Exam) error {
	if exam.ID == "" {
		exam.ID = uuid.NewString()
	}
	assignSubjectIDs(exam.Subjects)
	for i := range exam.Subjects {
		exam.Subjects[i].TotalQuestions = 0
	}
	exam.TotalQuestions = 0
	now := time.Now().UTC()
	exam.CreatedAt = now
	exam.UpdatedAt = now

	const query = `INSERT INTO exams (` + examColumns + `)
VALUES (:id, :name, :country, :description, :subjects, :total_questions, :gradient, :border_color, :bg_color, :flag, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, exam); err != nil {
		return dbError("create exam", err)
	}
	return nil
}

// Update rewrites exam fields and its subject list. Questions of removed
// subjects are deleted and all totals are recounted in the same transaction.
func (r *ExamRepository) Update(ctx context.Context, exam *models.Exam) error {
	assignSubjectIDs(exam.Subjects)
	return withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		exam.UpdatedAt = time.Now().UTC()
		const update = `UPDATE exams SET name = :name, country = :country, description = :description, subjects = :subjects,
gradient = :gradient, border_color = :border_color, bg_color = :bg_color, flag = :flag, updated_at = :updated_at WHERE id = :id`
		res, err := tx.NamedExecContext(ctx, update, exam)
		if err != nil {
			return dbError("update exam", err)
		}
		if err := expectAffected(res, "update exam"); err != nil {
			return err
		}

		query, args := `DELETE FROM questions WHERE exam_id = ?`, []interface{}{exam.ID}
		if len(exam.Subjects) > 0 {
			ids := make([]string, 0, len(exam.Subjects))
			for _, s := range exam.Subjects {
				ids = append(ids, s.ID)
			}
			if query, args, err = sqlx.In(`DELETE FROM questions WHERE exam_id = ? AND subject_id NOT IN (?)`, exam.ID, ids); err != nil {
				return err
			}
		}
		if _, err := tx.ExecContext(ctx, tx.Rebind(query), args...); err != nil {
			return dbError("delete orphaned questions", err)
		}

		updated, err := recountExam(ctx, tx, exam.ID)
		if err != nil {
			return err
		}
		*exam = *updated
		return nil
	})
}

// Delete removes the exam, its questions, and clears user selections of it.
func (r *ExamRepository) Delete(ctx context.Context, id string) error {
	return withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if _, err := tx.ExecContext(ctx, `UPDATE users SET selected_exam_id = NULL, updated_at = $2 WHERE selected_exam_id = $1`, id, time.Now().UTC()); err != nil {
			return dbError("clear exam selections", err)
		}
		if _, err := tx.ExecContext(ctx, `DELETE FROM questions WHERE exam_id = $1`, id); err != nil {
			return dbError("delete exam questions", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM exams WHERE id = $1`, id)
		if err != nil {
			return dbError("delete exam", err)
		}
		return expectAffected(res, "delete exam")
	})
}

type subjectCount struct {
	SubjectID string `db:"subject_id"`
	Total     int    `db:"total"`
}

// recountExam recomputes subject and exam totals by counting questions.
// The exam row is locked so concurrent recounts serialize.
func recountExam(ctx context.Context, tx *sqlx.Tx, examID string) (*models.Exam, error) {
	var exam models.Exam
	if err := tx.GetContext(ctx, &exam, `SELECT `+examColumns+` FROM exams WHERE id = $1 FOR UPDATE`, examID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("lock exam for recount", err)
	}
	exam.Normalize()

	var counts []subjectCount
	if err := tx.SelectContext(ctx, &counts, `SELECT subject_id, COUNT(*) AS total FROM questions WHERE exam_id = $1 GROUP BY subject_id`, examID); err != nil {
		return nil, dbError("count subject questions", err)
	}
	bySubject := make(map[string]int, len(counts))
	for _, c := range counts {
		bySubject[c.SubjectID] = c.Total
	}

	total := 0
	for i := range exam.Subjects {
		n := bySubject[exam.Subjects[i].ID]
		exam.Subjects[i].TotalQuestions = n
		total += n
	}
	exam.TotalQuestions = total
	exam.UpdatedAt = time.Now().UTC()

	if _, err := tx.ExecContext(ctx, `UPDATE exams SET subjects = $2, total_questions = $3, updated_at = $4 WHERE id = $1`,
		exam.ID, exam.Subjects, exam.TotalQuestions, exam.UpdatedAt); err != nil {
		return nil, dbError("write exam totals", err)
	}
	return &exam, nil
}

func assignSubjectIDs(subjects models.SubjectList) {
	for i := range subjects {
		if subjects[i].ID == "" {
			subjects[i].ID = uuid.NewString()
		}
	}
}
