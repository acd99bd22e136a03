package models

import (
	"strings"
	"time"
)

// UserRole represents the available roles for the authorization layer.
type UserRole string

const (
	RoleStudent    UserRole = "student"
	RoleTutor      UserRole = "tutor"
	RoleTeacher    UserRole = "teacher"
	RoleAdmin      UserRole = "admin"
	RoleSuperAdmin UserRole = "super_admin"
)

// Valid reports whether the role is one of the known values.
func (r UserRole) Valid() bool {
	switch r {
	case RoleStudent, RoleTutor, RoleTeacher, RoleAdmin, RoleSuperAdmin:
		return true
	}
	return false
}

// UserStatus captures whether an account may sign in.
type UserStatus string

const (
	StatusActive    UserStatus = "active"
	StatusInactive  UserStatus = "inactive"
	StatusSuspended UserStatus = "suspended"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusActive, StatusInactive, StatusSuspended:
		return true
	}
	return false
}

// User represents an application user stored in the users table.
type User struct {
	ID             string     `db:"id" json:"id"`
	Email          string     `db:"email" json:"email"`
	PasswordHash   string     `db:"password_hash" json:"-"`
	Name           string     `db:"name" json:"name"`
	Role           UserRole   `db:"role" json:"role"`
	Status         UserStatus `db:"status" json:"status"`
	SelectedExamID *string    `db:"selected_exam_id" json:"selected_exam_id"`
	LoginCount     int        `db:"login_count" json:"login_count"`
	LastLogin      *time.Time `db:"last_login" json:"last_login,omitempty"`
	CreatedAt      time.Time  `db:"created_at" json:"created_at"`
	UpdatedAt      time.Time  `db:"updated_at" json:"updated_at"`
}

// Normalize fills defaults for rows written before role/status existed.
func (u *User) Normalize() {
	if u == nil {
		return
	}
	u.Role = UserRole(strings.ToLower(string(u.Role)))
	if !u.Role.Valid() {
		u.Role = RoleStudent
	}
	if !u.Status.Valid() {
		u.Status = StatusActive
	}
	if u.SelectedExamID != nil && *u.SelectedExamID == "" {
		u.SelectedExamID = nil
	}
}

// IsActive reports whether the account may authenticate.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// UserFilter captures filtering criteria for listing users.
type UserFilter struct {
	Role     *UserRole
	Status   *UserStatus
	Search   string
	Page     int
	PageSize int
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int `json:"page"`
	PageSize   int `json:"page_size"`
	TotalCount int `json:"total_count"`
	TotalPages int `json:"total_pages"`
}

// NewPagination computes page count from a total.
func NewPagination(page, size, total int) Pagination {
	pages := 0
	if size > 0 {
		pages = (total + size - 1) / size
	}
	return Pagination{Page: page, PageSize: size, TotalCount: total, TotalPages: pages}
}
