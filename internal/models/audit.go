package models

import (
	"encoding/json"
	"time"
)

// Audit actions recorded for logins and administrative mutations.
const (
	AuditActionLogin          = "LOGIN"
	AuditActionSignup         = "SIGNUP"
	AuditActionPasswordChange = "PASSWORD_CHANGE"
	AuditActionUserCreate     = "USER_CREATE"
	AuditActionUserUpdate     = "USER_UPDATE"
	AuditActionUserDelete     = "USER_DELETE"
	AuditActionUserReset      = "USER_RESET"
	AuditActionExamCreate     = "EXAM_CREATE"
	AuditActionExamUpdate     = "EXAM_UPDATE"
	AuditActionExamDelete     = "EXAM_DELETE"
	AuditActionQuestionCreate = "QUESTION_CREATE"
	AuditActionQuestionUpdate = "QUESTION_UPDATE"
	AuditActionQuestionDelete = "QUESTION_DELETE"
)

// AuditLog represents an audit trail record.
type AuditLog struct {
	ID         string          `db:"id" json:"id"`
	UserID     *string         `db:"user_id" json:"user_id,omitempty"`
	Action     string          `db:"action" json:"action"`
	Resource   string          `db:"resource" json:"resource"`
	ResourceID *string         `db:"resource_id" json:"resource_id,omitempty"`
	Details    json.RawMessage `db:"details" json:"details,omitempty"`
	IPAddress  string          `db:"ip_address" json:"ip_address"`
	UserAgent  string          `db:"user_agent" json:"user_agent"`
	CreatedAt  time.Time       `db:"created_at" json:"created_at"`
}

// AuditFilter narrows the activity log.
type AuditFilter struct {
	UserID   string
	Action   string
	Resource string
	Page     int
	PageSize int
}
