package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"photoshelf/internal/pkg/jwtutil"
	"photoshelf/internal/repository"
	"photoshelf/internal/testutil"
)

const testSecret = "test-secret"

type recordingRevoker struct {
	tokenID string
	ttl     time.Duration
	err     error
}

func (r *recordingRevoker) Revoke(_ context.Context, tokenID string, ttl time.Duration) error {
	r.tokenID = tokenID
	r.ttl = ttl
	return r.err
}

func newAuthService(t *testing.T, revoker TokenRevoker) *AuthService {
	t.Helper()
	db := testutil.NewDB(t)
	return NewAuthService(repository.NewUserRepository(db), revoker, AuthConfig{
		JWTSecret:     testSecret,
		JWTExpiration: time.Hour,
		InitialQuota:  5,
		BcryptCost:    bcrypt.MinCost,
	})
}

func TestRegisterThenLogin(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: " Ann@Example.com ", Password: "password1"})
	require.NoError(t, err)
	assert.Equal(t, "ann@example.com", user.Email)
	assert.Equal(t, 0, user.PhotosUploaded)
	assert.Equal(t, 5, user.PhotosRemaining)
	assert.NotEqual(t, "password1", user.PasswordHash)

	result, err := svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)
	assert.NotEmpty(t, result.TokenID)
	assert.WithinDuration(t, time.Now().Add(time.Hour), result.ExpiresAt, time.Minute)

	claims, err := jwtutil.ParseToken(testSecret, result.Token)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
}

func TestRegisterRejectsDuplicateEmail(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Register(ctx, RegisterInput{Name: "Other", Email: "ANN@example.com", Password: "password2"})
	assert.ErrorIs(t, err, ErrEmailExists)
}

func TestRegisterValidatesInput(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	cases := []RegisterInput{
		{Name: "", Email: "a@example.com", Password: "password1"},
		{Name: "A", Email: "", Password: "password1"},
		{Name: "A", Email: "a@example.com", Password: "short"},
	}
	for _, in := range cases {
		_, err := svc.Register(ctx, in)
		assert.ErrorIs(t, err, ErrInvalidInput)
	}
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	_, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginInput{Email: "ann@example.com", Password: "wrong-password"})
	assert.ErrorIs(t, err, ErrInvalidCredential)

	_, err = svc.Login(ctx, LoginInput{Email: "nobody@example.com", Password: "password1"})
	assert.ErrorIs(t, err, ErrInvalidCredential)
}

func TestLogoutRevokesForRemainingLifetime(t *testing.T) {
	revoker := &recordingRevoker{}
	svc := newAuthService(t, revoker)

	err := svc.Logout(context.Background(), "jti-1", time.Now().Add(30*time.Minute))
	require.NoError(t, err)
	assert.Equal(t, "jti-1", revoker.tokenID)
	assert.InDelta(t, float64(30*time.Minute), float64(revoker.ttl), float64(time.Minute))

	revoker.err = errors.New("redis down")
	assert.Error(t, svc.Logout(context.Background(), "jti-2", time.Now().Add(time.Minute)))
}

func TestLogoutWithoutRevokerIsNoop(t *testing.T) {
	svc := newAuthService(t, nil)
	assert.NoError(t, svc.Logout(context.Background(), "jti-1", time.Now().Add(time.Minute)))
}

func TestGetUserByID(t *testing.T) {
	svc := newAuthService(t, nil)
	ctx := context.Background()

	user, err := svc.Register(ctx, RegisterInput{Name: "Ann", Email: "ann@example.com", Password: "password1"})
	require.NoError(t, err)

	found, err := svc.GetUserByID(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Ann", found.Name)

	_, err = svc.GetUserByID(ctx, user.ID+100)
	assert.ErrorIs(t, err, ErrUserNotFound)

	_, err = svc.GetUserByID(ctx, 0)
	assert.ErrorIs(t, err, ErrInvalidInput)
}
