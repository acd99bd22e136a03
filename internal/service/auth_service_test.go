package service

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/examprep-api/internal/models"
	"github.com/noah-isme/examprep-api/internal/repository"
	appErrors "github.com/noah-isme/examprep-api/pkg/errors"
)

const authTestUserID = "8d3e4c52-6a5e-4a0b-9a43-6c1f0d7e8b21"

type mockAuthRepo struct {
	users             map[string]*models.User
	findByEmailErr    error
	findByIDErr       error
	createErr         error
	recordLoginErr    error
	updatePasswordErr error
	loginRecorded     int
}

func newMockAuthRepo(users ...*models.User) *mockAuthRepo {
	repo := &mockAuthRepo{users: map[string]*models.User{}}
	for _, u := range users {
		repo.users[u.ID] = u
	}
	return repo
}

func (m *mockAuthRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if m.findByEmailErr != nil {
		return nil, m.findByEmailErr
	}
	for _, u := range m.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if m.findByIDErr != nil {
		return nil, m.findByIDErr
	}
	if u, ok := m.users[id]; ok {
		return u, nil
	}
	return nil, sql.ErrNoRows
}

func (m *mockAuthRepo) Create(ctx context.Context, user *models.User) error {
	if m.createErr != nil {
		return m.createErr
	}
	if user.ID == "" {
		user.ID = authTestUserID
	}
	m.users[user.ID] = user
	return nil
}

func (m *mockAuthRepo) RecordLogin(ctx context.Context, id string, ts time.Time) error {
	if m.recordLoginErr != nil {
		return m.recordLoginErr
	}
	m.loginRecorded++
	if u, ok := m.users[id]; ok {
		u.LoginCount++
		u.LastLogin = &ts
	}
	return nil
}

func (m *mockAuthRepo) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if m.updatePasswordErr != nil {
		return m.updatePasswordErr
	}
	if u, ok := m.users[id]; ok {
		u.PasswordHash = passwordHash
	}
	return nil
}

type mockAuditRecorder struct {
	entries []AuditEntry
}

func (m *mockAuditRecorder) Record(ctx context.Context, entry AuditEntry) {
	m.entries = append(m.entries, entry)
}

func newTestAuthService(t *testing.T, repo *mockAuthRepo) (*AuthService, *mockAuditRecorder) {
	t.Helper()
	tokens, err := NewTokenService("test-secret", "HS256", 30*time.Minute)
	require.NoError(t, err)
	audit := &mockAuditRecorder{}
	svc := NewAuthService(repo, NewCredentialHasher(bcrypt.MinCost), tokens, audit, nil, zap.NewNop())
	return svc, audit
}

func seededUser(t *testing.T, password string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return &models.User{
		ID:           authTestUserID,
		Email:        "ana@x.com",
		Name:         "Ana",
		PasswordHash: string(hash),
		Role:         models.RoleStudent,
		Status:       models.StatusActive,
	}
}

func TestAuthSignupThenLogin(t *testing.T) {
	repo := newMockAuthRepo()
	svc, audit := newTestAuthService(t, repo)
	ctx := context.Background()

	signup, err := svc.Signup(ctx, models.SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", signup.TokenType)
	assert.NotEmpty(t, signup.AccessToken)

	created := repo.users[authTestUserID]
	require.NotNil(t, created)
	assert.Equal(t, models.RoleStudent, created.Role)
	assert.NotEqual(t, "Passw0rd!", created.PasswordHash)

	// tokens carry second-resolution timestamps
	svc.tokens.now = func() time.Time { return time.Now().Add(2 * time.Second) }

	login, err := svc.Login(ctx, models.LoginRequest{Email: "ana@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.NotEqual(t, signup.AccessToken, login.AccessToken)
	assert.Equal(t, 1, repo.loginRecorded)

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ana@x.com", Password: "WrongPass1!"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 401, appErr.Status)
	assert.Equal(t, "Incorrect email or password", appErr.Message)

	require.Len(t, audit.entries, 2)
	assert.Equal(t, models.AuditActionSignup, audit.entries[0].Action)
	assert.Equal(t, models.AuditActionLogin, audit.entries[1].Action)
}

func TestAuthSignupDuplicateEmail(t *testing.T) {
	repo := newMockAuthRepo(seededUser(t, "Passw0rd!"))
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "Passw0rd!"})
	require.Error(t, err)
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEmail)
	assert.Equal(t, 400, appErrors.FromError(err).Status)
}

func TestAuthSignupDuplicateRaceSurfacesAsDuplicate(t *testing.T) {
	repo := newMockAuthRepo()
	repo.createErr = repository.ErrDuplicate
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, appErrors.ErrDuplicateEmail)
}

func TestAuthSignupWeakPassword(t *testing.T) {
	svc, _ := newTestAuthService(t, newMockAuthRepo())

	_, err := svc.Signup(context.Background(), models.SignupRequest{Name: "Ana", Email: "ana@x.com", Password: "password1!"})
	require.Error(t, err)
	appErr := appErrors.FromError(err)
	assert.Equal(t, 400, appErr.Status)
	assert.Equal(t, "Password must contain at least one uppercase letter", appErr.Message)
}

func TestAuthLoginUnknownEmailMatchesWrongPassword(t *testing.T) {
	svc, _ := newTestAuthService(t, newMockAuthRepo(seededUser(t, "Passw0rd!")))

	_, unknown := svc.Login(context.Background(), models.LoginRequest{Email: "who@x.com", Password: "Passw0rd!"})
	_, wrong := svc.Login(context.Background(), models.LoginRequest{Email: "ana@x.com", Password: "nope"})

	require.Error(t, unknown)
	require.Error(t, wrong)
	assert.Equal(t, appErrors.FromError(unknown).Message, appErrors.FromError(wrong).Message)
	assert.Equal(t, appErrors.FromError(unknown).Status, appErrors.FromError(wrong).Status)
}

func TestAuthLoginSuspendedAccount(t *testing.T) {
	user := seededUser(t, "Passw0rd!")
	user.Status = models.StatusSuspended
	repo := newMockAuthRepo(user)
	svc, _ := newTestAuthService(t, repo)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@x.com", Password: "Passw0rd!"})
	assert.ErrorIs(t, err, appErrors.ErrInactiveAccount)
	assert.Zero(t, repo.loginRecorded)
}

func TestAuthLoginToleratesLoginStampFailure(t *testing.T) {
	repo := newMockAuthRepo(seededUser(t, "Passw0rd!"))
	repo.recordLoginErr = errors.New("db down")
	svc, _ := newTestAuthService(t, repo)

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "ana@x.com", Password: "Passw0rd!"})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)
}

func TestAuthResolve(t *testing.T) {
	repo := newMockAuthRepo(seededUser(t, "Passw0rd!"))
	svc, _ := newTestAuthService(t, repo)
	ctx := context.Background()

	token, err := svc.tokens.Issue(authTestUserID, 0)
	require.NoError(t, err)

	user, err := svc.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "ana@x.com", user.Email)

	malformed, err := svc.tokens.Issue("not-an-id", 0)
	require.NoError(t, err)
	_, errMalformed := svc.Resolve(ctx, malformed)

	delete(repo.users, authTestUserID)
	_, errDeleted := svc.Resolve(ctx, token)

	_, errGarbage := svc.Resolve(ctx, "garbage")

	for _, err := range []error{errMalformed, errDeleted, errGarbage} {
		require.Error(t, err)
		appErr := appErrors.FromError(err)
		assert.Equal(t, 401, appErr.Status)
		assert.Equal(t, "Could not validate credentials", appErr.Message)
	}
}

func TestAuthChangePassword(t *testing.T) {
	repo := newMockAuthRepo(seededUser(t, "Passw0rd!"))
	svc, audit := newTestAuthService(t, repo)
	ctx := context.Background()

	err := svc.ChangePassword(ctx, authTestUserID, models.ChangePasswordRequest{CurrentPassword: "bad", NewPassword: "N3wPassw0rd!"})
	assert.ErrorIs(t, err, appErrors.ErrBadRequest)

	err = svc.ChangePassword(ctx, authTestUserID, models.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "weak"})
	assert.ErrorIs(t, err, appErrors.ErrWeakPassword)

	require.NoError(t, svc.ChangePassword(ctx, authTestUserID, models.ChangePasswordRequest{CurrentPassword: "Passw0rd!", NewPassword: "N3wPassw0rd!"}))

	_, err = svc.Login(ctx, models.LoginRequest{Email: "ana@x.com", Password: "N3wPassw0rd!"})
	require.NoError(t, err)
	assert.Equal(t, models.AuditActionPasswordChange, audit.entries[0].Action)
}
