package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/edupanel/scheduling-api/internal/models"
	"github.com/edupanel/scheduling-api/pkg/config"
	appErrors "github.com/edupanel/scheduling-api/pkg/errors"
)

func newAuthFixture(t *testing.T) (*AuthService, *mockUserReader) {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("s3cret"), bcrypt.MinCost)
	require.NoError(t, err)

	users := &mockUserReader{users: map[string]*models.User{
		"usr-1": {
			ID: "usr-1", Email: "admin@school.test", PasswordHash: string(hash),
			FullName: "Admin", Role: models.RoleAdmin, Active: true,
		},
	}}
	svc := NewAuthService(authUserReaderAdapter{users}, config.JWTConfig{
		Secret:     "test-secret",
		Expiration: time.Hour,
		Issuer:     "scheduling-api-test",
	}, nil, nil)
	return svc, users
}

// authUserReaderAdapter adds email lookup over the id-keyed mock.
type authUserReaderAdapter struct {
	inner *mockUserReader
}

func (a authUserReaderAdapter) FindByID(ctx context.Context, id string) (*models.User, error) {
	return a.inner.FindByID(ctx, id)
}

func (a authUserReaderAdapter) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	for _, u := range a.inner.users {
		if u.Email == email {
			return u, nil
		}
	}
	return a.inner.FindByID(ctx, "")
}

func TestLoginIssuesToken(t *testing.T) {
	svc, _ := newAuthFixture(t)

	result, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "s3cret"})
	require.NoError(t, err)
	require.NotEmpty(t, result.AccessToken)
	require.Equal(t, "usr-1", result.User.ID)
	require.Equal(t, int64(3600), result.ExpiresIn)

	claims, err := svc.ValidateToken(result.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "usr-1", claims.UserID)
	require.Equal(t, models.RoleAdmin, claims.Role)
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "wrong"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginUnknownEmail(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "nobody@school.test", Password: "s3cret"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInvalidCredentials.Code, appErrors.FromError(err).Code)
}

func TestLoginInactiveAccount(t *testing.T) {
	svc, users := newAuthFixture(t)
	users.users["usr-1"].Active = false

	_, err := svc.Login(context.Background(), models.LoginRequest{Email: "admin@school.test", Password: "s3cret"})
	require.Error(t, err)
	require.Equal(t, appErrors.ErrInactiveAccount.Code, appErrors.FromError(err).Code)
}

func TestValidateTokenRejectsGarbage(t *testing.T) {
	svc, _ := newAuthFixture(t)

	_, err := svc.ValidateToken("not-a-token")
	require.Error(t, err)
	require.Equal(t, appErrors.ErrUnauthorized.Code, appErrors.FromError(err).Code)
}
