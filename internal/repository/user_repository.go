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

const userColumns = `id, email, password_hash, name, role, status, selected_exam_id, login_count, last_login, created_at, updated_at`

// UserRepository provides database access for the user directory.
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new instance of UserRepository.
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail returns a user by exact email. Missing rows yield sql.ErrNoRows.
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, email); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("find user by email", err)
	}
	user.Normalize()
	return &user, nil
}

// FindByID returns a user by identifier. Malformed ids are reported as
// sql.ErrNoRows without touching the database.
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, sql.ErrNoRows
	}
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1 LIMIT 1`
	var user models.User
	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sql.ErrNoRows
		}
		return nil, dbError("find user by id", err)
	}
	user.Normalize()
	return &user, nil
}

// Create inserts a new user. A concurrent insert of the same email surfaces as ErrDuplicate.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	if user.ID == "" {
		user.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if user.CreatedAt.IsZero() {
		user.CreatedAt = now
	}
	user.UpdatedAt = now
	user.Normalize()

	const query = `INSERT INTO users (id, email, password_hash, name, role, status, selected_exam_id, login_count, created_at, updated_at)
VALUES (:id, :email, :password_hash, :name, :role, :status, :selected_exam_id, :login_count, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, user); err != nil {
		return dbError("create user", err)
	}
	return nil
}

// Update writes the mutable profile fields.
func (r *UserRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now().UTC()
	const query = `UPDATE users SET email = :email, name = :name, role = :role, status = :status, updated_at = :updated_at WHERE id = :id`
	res, err := r.db.NamedExecContext(ctx, query, user)
	if err != nil {
		return dbError("update user", err)
	}
	return expectAffected(res, "update user")
}

// UpdatePassword updates the stored password hash.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	const query = `UPDATE users SET password_hash = $2, updated_at = $3 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, passwordHash, updatedAt); err != nil {
		return dbError("update password", err)
	}
	return nil
}

// RecordLogin stamps last_login and bumps login_count.
func (r *UserRepository) RecordLogin(ctx context.Context, id string, ts time.Time) error {
	const query = `UPDATE users SET last_login = $2, login_count = login_count + 1, updated_at = $2 WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, ts); err != nil {
		return dbError("record login", err)
	}
	return nil
}

// SetSelectedExam points the user at an exam. The exam must exist at write time.
func (r *UserRepository) SetSelectedExam(ctx context.Context, userID, examID string) error {
	const query = `UPDATE users SET selected_exam_id = $2, updated_at = $3
WHERE id = $1 AND EXISTS (SELECT 1 FROM exams WHERE id = $2)`
	res, err := r.db.ExecContext(ctx, query, userID, examID, time.Now().UTC())
	if err != nil {
		return dbError("select exam", err)
	}
	return expectAffected(res, "select exam")
}

// List returns users based on filters with total count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error) {
	baseQuery := `FROM users WHERE 1=1`
	var conditions []string
	var args []interface{}

	if filter.Role != nil {
		conditions = append(conditions, fmt.Sprintf("role = $%d", len(args)+1))
		args = append(args, *filter.Role)
	}
	if filter.Status != nil {
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)+1))
		args = append(args, *filter.Status)
	}
	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf("(LOWER(email) LIKE $%d OR LOWER(name) LIKE $%d)", len(args)+1, len(args)+1))
		args = append(args, "%"+strings.ToLower(filter.Search)+"%")
	}
	if len(conditions) > 0 {
		baseQuery += " AND " + strings.Join(conditions, " AND ")
	}

	_, size, offset := pageBounds(filter.Page, filter.PageSize)
	listQuery := fmt.Sprintf("SELECT %s %s ORDER BY created_at DESC LIMIT %d OFFSET %d", userColumns, baseQuery, size, offset)

	var users []models.User
	if err := r.db.SelectContext(ctx, &users, listQuery, args...); err != nil {
		return nil, 0, dbError("list users", err)
	}
	for i := range users {
		users[i].Normalize()
	}

	var total int
	if err := r.db.GetContext(ctx, &total, "SELECT COUNT(*) "+baseQuery, args...); err != nil {
		return nil, 0, dbError("count users", err)
	}
	return users, total, nil
}

// Delete removes the user together with its answers and progress.
func (r *UserRepository) Delete(ctx context.Context, id string) error {
	return withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		if err := clearLearningHistory(ctx, tx, id); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
		if err != nil {
			return dbError("delete user", err)
		}
		return expectAffected(res, "delete user")
	})
}

// Reset wipes progress, answers and the selected exam, keeping the account.
func (r *UserRepository) Reset(ctx context.Context, id string) error {
	return withinTx(ctx, r.db, func(tx *sqlx.Tx) error {
		res, err := tx.ExecContext(ctx, `UPDATE users SET selected_exam_id = NULL, updated_at = $2 WHERE id = $1`, id, time.Now().UTC())
		if err != nil {
			return dbError("reset user", err)
		}
		if err := expectAffected(res, "reset user"); err != nil {
			return err
		}
		return clearLearningHistory(ctx, tx, id)
	})
}

func clearLearningHistory(ctx context.Context, tx *sqlx.Tx, userID string) error {
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_progress WHERE user_id = $1`, userID); err != nil {
		return dbError("delete user progress", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM user_answers WHERE user_id = $1`, userID); err != nil {
		return dbError("delete user answers", err)
	}
	return nil
}

func expectAffected(res sql.Result, op string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return dbError(op, err)
	}
	if n == 0 {
		return sql.ErrNoRows
	}
	return nil
}
