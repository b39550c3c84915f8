package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"

	"github.com/school-logistics/roster-api/internal/models"
	appErrors "github.com/school-logistics/roster-api/pkg/errors"
)

func newTestAuthService(repo *mockUserRepo) *AuthService {
	return NewAuthService(repo, newTestTokenService(time.Hour), NewValidator(), zap.NewNop())
}

func TestAuthServiceSignup(t *testing.T) {
	repo := &mockUserRepo{}
	svc := newTestAuthService(repo)

	res, err := svc.Signup(context.Background(), models.SignupRequest{Username: "Alice_01", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice_01", res.Username)
	assert.Equal(t, models.RoleUser, res.Role)
	assert.NotEmpty(t, res.UserID)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, res.UserID, claims.UserID)
	assert.Equal(t, models.RoleUser, claims.Role)

	stored, err := repo.FindByUsername(context.Background(), "alice_01")
	require.NoError(t, err)
	require.NoError(t, bcrypt.CompareHashAndPassword([]byte(stored.PasswordHash), []byte("secret")))
}

func TestAuthServiceSignupValidation(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})

	cases := []struct {
		name string
		req  models.SignupRequest
	}{
		{"missing username", models.SignupRequest{Password: "secret"}},
		{"short username", models.SignupRequest{Username: "ab", Password: "secret"}},
		{"bad charset", models.SignupRequest{Username: "no spaces", Password: "secret"}},
		{"short password", models.SignupRequest{Username: "alice", Password: "ab"}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Signup(context.Background(), tc.req)
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, errorCode(t, err))
		})
	}
}

func TestAuthServiceSignupDuplicate(t *testing.T) {
	repo := &mockUserRepo{users: map[string]*models.User{"1": {ID: "1", Username: "alice"}}}
	svc := newTestAuthService(repo)

	_, err := svc.Signup(context.Background(), models.SignupRequest{Username: "Alice", Password: "secret"})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrConflict.Code, errorCode(t, err))
}

func TestAuthServiceLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &mockUserRepo{users: map[string]*models.User{
		"1": {ID: "1", Username: "alice", PasswordHash: string(hash), Role: models.RoleAdmin},
	}}
	svc := newTestAuthService(repo)

	res, err := svc.Login(context.Background(), models.LoginRequest{Username: "ALICE", Password: "secret"})
	require.NoError(t, err)
	assert.Equal(t, "alice", res.Username)
	assert.Equal(t, models.RoleAdmin, res.Role)
	assert.Equal(t, "1", res.UserID)

	claims, err := svc.ValidateToken(res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, claims.Role)
}

// Unknown usernames and wrong passwords must be indistinguishable from the
// caller's point of view.
func TestAuthServiceLoginFailuresLookAlike(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("secret"), bcrypt.DefaultCost)
	require.NoError(t, err)
	repo := &mockUserRepo{users: map[string]*models.User{
		"1": {ID: "1", Username: "alice", PasswordHash: string(hash), Role: models.RoleUser},
	}}
	svc := newTestAuthService(repo)

	_, unknownErr := svc.Login(context.Background(), models.LoginRequest{Username: "nobody", Password: "secret"})
	require.Error(t, unknownErr)

	_, wrongErr := svc.Login(context.Background(), models.LoginRequest{Username: "alice", Password: "nope"})
	require.Error(t, wrongErr)

	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, unknownErr))
	assert.Equal(t, appErrors.ErrInvalidCredentials.Code, errorCode(t, wrongErr))
	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthServiceAuthorize(t *testing.T) {
	svc := newTestAuthService(&mockUserRepo{})
	tokens := svc.tokens

	adminToken, err := tokens.Issue("admin-1", models.RoleAdmin)
	require.NoError(t, err)
	userToken, err := tokens.Issue("user-1", models.RoleUser)
	require.NoError(t, err)

	claims, err := svc.Authorize(adminToken, ActionUserList)
	require.NoError(t, err)
	assert.Equal(t, "admin-1", claims.UserID)

	_, err = svc.Authorize(userToken, ActionUserList)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrForbidden.Code, errorCode(t, err))

	claims, err = svc.Authorize(userToken, ActionStudentUpdate)
	require.NoError(t, err)
	assert.Equal(t, models.RoleUser, claims.Role)
}

func TestAuthServiceAuthorizeExpiredToken(t *testing.T) {
	repo := &mockUserRepo{}
	svc := NewAuthService(repo, newTestTokenService(time.Millisecond), NewValidator(), zap.NewNop())

	token, err := svc.tokens.Issue("user-1", models.RoleAdmin)
	require.NoError(t, err)
	time.Sleep(20 * time.Millisecond)

	_, err = svc.Authorize(token, ActionUserList)
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrTokenExpired.Code, errorCode(t, err))
}
