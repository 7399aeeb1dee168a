package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/noah-isme/hrms-approval-api/internal/models"
	appErrors "github.com/noah-isme/hrms-approval-api/pkg/errors"
)

type authRepoStub struct {
	users    map[string]*models.User
	tokens   map[string]*models.RefreshToken
	audit    []*models.AuditLog
	revoked  []string
	password string
}

func newAuthRepoStub(users ...*models.User) *authRepoStub {
	stub := &authRepoStub{users: make(map[string]*models.User), tokens: make(map[string]*models.RefreshToken)}
	for _, u := range users {
		stub.users[u.ID] = u
	}
	return stub
}

func (s *authRepoStub) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range s.users {
		if u.Email == email {
			copy := *u
			return &copy, nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := s.users[id]; ok {
		copy := *u
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) UpdateLastLogin(ctx context.Context, id string, ts time.Time) error {
	if u, ok := s.users[id]; ok {
		u.LastLogin = &ts
	}
	return nil
}

func (s *authRepoStub) UpdatePassword(ctx context.Context, id, passwordHash string, updatedAt time.Time) error {
	if u, ok := s.users[id]; ok {
		u.PasswordHash = passwordHash
		s.password = passwordHash
	}
	return nil
}

func (s *authRepoStub) RevokeUserRefreshTokens(ctx context.Context, userID string) error {
	for _, token := range s.tokens {
		if token.UserID == userID {
			token.Revoked = true
		}
	}
	s.revoked = append(s.revoked, userID)
	return nil
}

func (s *authRepoStub) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	copy := *token
	s.tokens[token.Token] = &copy
	return nil
}

func (s *authRepoStub) FindRefreshToken(ctx context.Context, token string) (*models.RefreshToken, error) {
	if stored, ok := s.tokens[token]; ok {
		copy := *stored
		return &copy, nil
	}
	return nil, sql.ErrNoRows
}

func (s *authRepoStub) RevokeRefreshToken(ctx context.Context, id string, revokedAt time.Time) error {
	for _, token := range s.tokens {
		if token.ID == id {
			token.Revoked = true
			at := revokedAt
			token.RevokedAt = &at
		}
	}
	return nil
}

func (s *authRepoStub) CreateAuditLog(ctx context.Context, log *models.AuditLog) error {
	s.audit = append(s.audit, log)
	return nil
}

func hashPassword(t *testing.T, password string) string {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.MinCost)
	require.NoError(t, err)
	return string(hash)
}

func testAuthConfig() AuthConfig {
	return AuthConfig{
		AccessTokenSecret:  "test-secret",
		AccessTokenExpiry:  15 * time.Minute,
		RefreshTokenExpiry: 24 * time.Hour,
		Issuer:             "hrms-approval-api",
	}
}

func activeUser(t *testing.T) *models.User {
	return &models.User{
		ID:           "user-1",
		TenantID:     "t1",
		Email:        "hr@example.com",
		PasswordHash: hashPassword(t, "s3cret!"),
		FullName:     "HR Person",
		Role:         models.RoleEmployee,
		ApprovalRole: "HR",
		Active:       true,
	}
}

func TestLoginIssuesTokenPair(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "hr@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, int64(900), resp.ExpiresIn)
	require.Equal(t, "user-1", resp.User.ID)
	require.Equal(t, "HR", resp.User.ApprovalRole)
	require.Len(t, repo.tokens, 1)
	require.Len(t, repo.audit, 1)
	require.Equal(t, models.AuditActionLogin, repo.audit[0].Action)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "user-1", claims.UserID)
	require.Equal(t, "t1", claims.TenantID)
	require.Equal(t, "HR", claims.ApprovalRole)
}

func TestLoginWrongPassword(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "hr@example.com", Password: "nope"})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc := NewAuthService(newAuthRepoStub(), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, typed.Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	user := activeUser(t)
	user.Active = false
	svc := NewAuthService(newAuthRepoStub(user), nil, nil, testAuthConfig())

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "hr@example.com", Password: "s3cret!"})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, typed.Code)
}

func TestLoginSingleSessionRevokesOlderTokens(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	cfg := testAuthConfig()
	cfg.SingleSession = true
	svc := NewAuthService(repo, nil, nil, cfg)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "hr@example.com", Password: "s3cret!"})
	require.NoError(t, err)
	require.Equal(t, []string{"user-1"}, repo.revoked)
}

func TestRefreshTokenRotates(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	repo.tokens["old-token"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "old-token",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "old-token"})
	require.NoError(t, err)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEqual(t, "old-token", resp.RefreshToken)
	require.True(t, repo.tokens["old-token"].Revoked)
	require.Contains(t, repo.tokens, resp.RefreshToken)
}

func TestRefreshTokenExpired(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	repo.tokens["stale"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "user-1",
		Token:     "stale",
		ExpiresAt: time.Now().UTC().Add(-time.Minute),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	_, err := svc.RefreshToken(context.Background(), models.RefreshTokenRequest{RefreshToken: "stale"})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}

func TestLogoutRejectsForeignToken(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	repo.tokens["other"] = &models.RefreshToken{
		ID:        "rt-1",
		UserID:    "someone-else",
		Token:     "other",
		ExpiresAt: time.Now().UTC().Add(time.Hour),
	}
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.Logout(context.Background(), "other", "user-1", models.LoginRequest{})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestChangePassword(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "s3cret!",
		NewPassword: "brand-new",
	})
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(repo.password), []byte("brand-new")))
	require.Equal(t, []string{"user-1"}, repo.revoked)
}

func TestChangePasswordWrongOld(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	err := svc.ChangePassword(context.Background(), "user-1", models.ChangePasswordRequest{
		OldPassword: "wrong",
		NewPassword: "brand-new",
	})
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrForbidden.Code, typed.Code)
}

func TestValidateTokenRejectsTampering(t *testing.T) {
	repo := newAuthRepoStub(activeUser(t))
	svc := NewAuthService(repo, nil, nil, testAuthConfig())

	resp, err := svc.Login(context.Background(), models.LoginRequest{Email: "hr@example.com", Password: "s3cret!"})
	require.NoError(t, err)

	other := testAuthConfig()
	other.AccessTokenSecret = "different-secret"
	otherSvc := NewAuthService(repo, nil, nil, other)

	_, err = otherSvc.ValidateToken(resp.AccessToken)
	typed := appErrors.FromError(err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, typed.Code)
}
