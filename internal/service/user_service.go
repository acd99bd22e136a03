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
	"github.com/noah-isme/examprep-api/internal/repository"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

type userRepository interface {
	List(ctx context.Context, filter models.UserFilter) ([]models.User, int, error)
	FindByID(ctx context.Context, id string) (*models.User, error)
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	Delete(ctx context.Context, id string) error
	Reset(ctx context.Context, id string) error
}

// RequestMeta identifies who performed an administrative action.
type RequestMeta struct {
	Actor     *models.User
	IP        string
	UserAgent string
}

func (m RequestMeta) actorID() string {
	if m.Actor == nil {
		return ""
	}
	return m.Actor.ID
}

// UserService handles administrative user management.
type UserService struct {
	repo      userRepository
	hasher    *CredentialHasher
	audit     auditRecorder
	validator *validator.Validate
	logger    *zap.Logger
}

// NewUserService creates an instance of UserService.
func NewUserService(repo userRepository, hasher *CredentialHasher, audit auditRecorder, validate *validator.Validate, logger *zap.Logger) *UserService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if hasher == nil {
		hasher = NewCredentialHasher(0)
	}
	return &UserService{repo: repo, hasher: hasher, audit: audit, validator: validate, logger: logger}
}

// List returns paginated users and pagination metadata.
func (s *UserService) List(ctx context.Context, filter models.UserFilter) (*dto.UserPage, error) {
	if filter.Role != nil && !filter.Role.Valid() {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid role")
	}
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid status")
	}
	users, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to list users")
	}
	if users == nil {
		users = []models.User{}
	}
	page, size := normalizePage(filter.Page, filter.PageSize)
	return &dto.UserPage{Items: users, Pagination: models.NewPagination(page, size, total)}, nil
}

// Get returns a user by ID.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	if !IsValidID(id) {
		return nil, appErrors.Clone(appErrors.ErrBadRequest, "Invalid user ID")
	}
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to load user")
	}
	return user, nil
}

// Create provisions an account. Assigning a staff role needs users:change_role.
func (s *UserService) Create(ctx context.Context, req dto.CreateUserRequest, meta RequestMeta) (*models.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	role := req.Role
	if role == "" {
		role = models.RoleStudent
	}
	if role != models.RoleStudent && !meta.Actor.Can(models.CapUsersChangeRole) {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "")
	}

	if _, err := s.repo.FindByEmail(ctx, req.Email); err == nil {
		return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "")
	} else if !errors.Is(err, sql.ErrNoRows) {
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
	}

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		return nil, err
	}
	user := &models.User{
		Email:        req.Email,
		Name:         strings.TrimSpace(req.Name),
		PasswordHash: hash,
		Role:         role,
		Status:       req.Status,
	}
	if err := s.repo.Create(ctx, user); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to create user")
	}

	s.record(ctx, meta, models.AuditActionUserCreate, user.ID, map[string]interface{}{"email": user.Email, "role": user.Role})
	return user, nil
}

// Update patches profile fields. Role changes need users:change_role and an
// actor may not change its own role or status.
func (s *UserService) Update(ctx context.Context, id string, req dto.UpdateUserRequest, meta RequestMeta) (*models.User, error) {
	if err := s.validator.Struct(req); err != nil {
		return nil, validationError(err)
	}
	user, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	changes := map[string]interface{}{}
	if req.Role != nil && *req.Role != user.Role {
		if !meta.Actor.Can(models.CapUsersChangeRole) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		if user.ID == meta.actorID() {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "Cannot change your own role")
		}
		changes["role"] = map[string]interface{}{"from": user.Role, "to": *req.Role}
		user.Role = *req.Role
	}
	if req.Status != nil && *req.Status != user.Status {
		if user.ID == meta.actorID() {
			return nil, appErrors.Clone(appErrors.ErrBadRequest, "Cannot change your own status")
		}
		if user.Role.IsStaff() && !meta.Actor.Can(models.CapUsersChangeRole) {
			return nil, appErrors.Clone(appErrors.ErrForbidden, "")
		}
		changes["status"] = map[string]interface{}{"from": user.Status, "to": *req.Status}
		user.Status = *req.Status
	}
	if req.Name != nil {
		user.Name = strings.TrimSpace(*req.Name)
	}
	if req.Email != nil && strings.TrimSpace(*req.Email) != user.Email {
		email := strings.TrimSpace(*req.Email)
		if existing, err := s.repo.FindByEmail(ctx, email); err == nil && existing.ID != user.ID {
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "")
		} else if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to check email uniqueness")
		}
		changes["email"] = email
		user.Email = email
	}

	if err := s.repo.Update(ctx, user); err != nil {
		switch {
		case errors.Is(err, sql.ErrNoRows):
			return nil, appErrors.Clone(appErrors.ErrNotFound, "User not found")
		case errors.Is(err, repository.ErrDuplicate):
			return nil, appErrors.Clone(appErrors.ErrDuplicateEmail, "")
		}
		return nil, appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to update user")
	}

	s.record(ctx, meta, models.AuditActionUserUpdate, user.ID, changes)
	return user, nil
}

// Delete removes a user with its answers and progress. Requires users:delete.
func (s *UserService) Delete(ctx context.Context, id string, meta RequestMeta) error {
	if !meta.Actor.Can(models.CapUsersDelete) {
		return appErrors.Clone(appErrors.ErrForbidden, "")
	}
	if !IsValidID(id) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Invalid user ID")
	}
	if id == meta.actorID() {
		return appErrors.Clone(appErrors.ErrBadRequest, "Cannot delete your own account")
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to delete user")
	}
	s.record(ctx, meta, models.AuditActionUserDelete, id, nil)
	return nil
}

// Reset clears the selected exam and all learning history, keeping the account.
func (s *UserService) Reset(ctx context.Context, id string, meta RequestMeta) error {
	if !IsValidID(id) {
		return appErrors.Clone(appErrors.ErrBadRequest, "Invalid user ID")
	}
	if err := s.repo.Reset(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.Clone(appErrors.ErrNotFound, "User not found")
		}
		return appErrors.Wrap(err, appErrors.ErrInternal.Code, appErrors.ErrInternal.Status, "failed to reset user")
	}
	s.record(ctx, meta, models.AuditActionUserReset, id, nil)
	return nil
}

func (s *UserService) record(ctx context.Context, meta RequestMeta, action, resourceID string, details map[string]interface{}) {
	if s.audit == nil {
		return
	}
	s.audit.Record(ctx, AuditEntry{
		UserID:     meta.actorID(),
		Action:     action,
		Resource:   "users",
		ResourceID: resourceID,
		Details:    details,
		IP:         meta.IP,
		UserAgent:  meta.UserAgent,
	})
}
