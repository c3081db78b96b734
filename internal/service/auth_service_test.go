package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"inkwell/internal/auth"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-secret-key-with-enough-length!!"

func newTestAuth(t *testing.T, users *userRepoStub, revoker TokenRevoker) *AuthService {
	t.Helper()
	tokens, err := auth.NewTokenManager(testSecret, time.Hour)
	require.NoError(t, err)
	return NewAuthService(users, tokens, revoker)
}

func TestAuthService_Register(t *testing.T) {
	t.Parallel()

	t.Run("creates user and issues token", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		var created *models.User
		repo.createFn = func(_ context.Context, u *models.User) error {
			created = u
			return nil
		}
		svc := newTestAuth(t, repo, newMemRevoker())

		session, err := svc.Register(context.Background(), models.NewUserInput{
			Name: "Ada", Email: "ADA@x.com", Phone: "+1", Password: "secret", Role: "writer",
		})
		require.NoError(t, err)
		require.NotNil(t, created)
		assert.Equal(t, "ada@x.com", created.Email)
		assert.Equal(t, models.RoleWriter, session.User.Role)
		assert.NotEmpty(t, session.Token)
		assert.Equal(t, created.ID, session.Claims.UserID())
	})

	t.Run("invalid input never reaches the store", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			t.Fatal("Create must not be called")
			return nil
		}
		svc := newTestAuth(t, repo, newMemRevoker())

		_, err := svc.Register(context.Background(), models.NewUserInput{
			Name: "Ada", Email: "not-an-email", Phone: "+1", Password: "secret",
		})
		assertValidationError(t, err)
	})

	t.Run("admin cannot be requested", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			t.Fatal("Create must not be called")
			return nil
		}
		svc := newTestAuth(t, repo, newMemRevoker())

		_, err := svc.Register(context.Background(), models.NewUserInput{
			Name: "Mallory", Email: "m@x.com", Phone: "+1", Password: "secret", Role: "admin",
		})
		assertValidationError(t, err)
	})

	t.Run("duplicate surfaces store error", func(t *testing.T) {
		t.Parallel()
		repo := noopUserRepo()
		repo.createFn = func(context.Context, *models.User) error {
			return models.NewConflictError("Email already registered")
		}
		svc := newTestAuth(t, repo, newMemRevoker())

		_, err := svc.Register(context.Background(), models.NewUserInput{
			Name: "Ada", Email: "a@x.com", Phone: "+1", Password: "secret",
		})
		assertValidationError(t, err)
		assert.True(t, models.IsConflict(err))
	})
}

func TestAuthService_Login(t *testing.T) {
	t.Parallel()

	ada := mustUser(t, "Ada", "a@x.com", "+1", models.RoleReader)
	repo := noopUserRepo()
	usersByID(repo, ada)
	svc := newTestAuth(t, repo, newMemRevoker())
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		password   string
		code       string
	}{
		{name: "email", identifier: "a@x.com", password: "secret"},
		{name: "phone", identifier: "+1", password: "secret"},
		{name: "wrong password", identifier: "a@x.com", password: "nope", code: models.CodeInvalidCredentials},
		{name: "unknown user", identifier: "b@x.com", password: "secret", code: models.CodeInvalidCredentials},
		{name: "missing identifier", identifier: " ", password: "secret", code: models.CodeValidation},
		{name: "missing password", identifier: "a@x.com", password: "", code: models.CodeValidation},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			session, err := svc.Login(ctx, tt.identifier, tt.password)
			if tt.code != "" {
				assertCode(t, err, tt.code)
				assert.Nil(t, session)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, ada.ID, session.User.ID)
			assert.NotEmpty(t, session.Token)
		})
	}
}

func TestAuthService_Login_RepoError(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	repoErr := errors.New("db down")
	repo.getByIdentifierFn = func(context.Context, string) (*models.User, error) { return nil, repoErr }
	svc := newTestAuth(t, repo, newMemRevoker())

	_, err := svc.Login(context.Background(), "a@x.com", "secret")
	assert.ErrorIs(t, err, repoErr)
}

func TestAuthService_Profile(t *testing.T) {
	t.Parallel()

	ada := mustUser(t, "Ada", "a@x.com", "+1", models.RoleReader)
	repo := noopUserRepo()
	usersByID(repo, ada)
	revoker := newMemRevoker()
	svc := newTestAuth(t, repo, revoker)
	ctx := context.Background()

	session, err := svc.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	user, err := svc.Profile(ctx, session.Token)
	require.NoError(t, err)
	assert.Equal(t, ada.ID, user.ID)

	_, err = svc.Profile(ctx, "")
	assertCode(t, err, models.CodeUnauthenticated)

	_, err = svc.Profile(ctx, "not.a.token")
	assertCode(t, err, models.CodeUnauthenticated)

	other, err := auth.NewTokenManager("a-different-secret-of-enough-length", time.Hour)
	require.NoError(t, err)
	forged, _, err := other.Issue(ada.ID, models.RoleAdmin)
	require.NoError(t, err)
	_, err = svc.Profile(ctx, forged)
	assertCode(t, err, models.CodeUnauthenticated)
}

func TestAuthService_Profile_DeletedUser(t *testing.T) {
	t.Parallel()
	repo := noopUserRepo()
	svc := newTestAuth(t, repo, newMemRevoker())

	token, _, err := svc.tokens.Issue("gone", models.RoleReader)
	require.NoError(t, err)

	_, err = svc.Profile(context.Background(), token)
	assertCode(t, err, models.CodeUnauthenticated)
}

func TestAuthService_Logout(t *testing.T) {
	t.Parallel()

	ada := mustUser(t, "Ada", "a@x.com", "+1", models.RoleReader)
	repo := noopUserRepo()
	usersByID(repo, ada)
	revoker := newMemRevoker()
	svc := newTestAuth(t, repo, revoker)
	ctx := context.Background()

	session, err := svc.Login(ctx, "a@x.com", "secret")
	require.NoError(t, err)

	svc.Logout(ctx, session.Token)
	assert.True(t, revoker.IsRevoked(ctx, session.Claims.ID))

	_, err = svc.Profile(ctx, session.Token)
	assertCode(t, err, models.CodeUnauthenticated)

	// Logging out again, or without a token, is harmless.
	svc.Logout(ctx, session.Token)
	svc.Logout(ctx, "")
	svc.Logout(ctx, "garbage")
}

func TestAuthService_Logout_RevokeFailureIgnored(t *testing.T) {
	t.Parallel()

	ada := mustUser(t, "Ada", "a@x.com", "+1", models.RoleReader)
	repo := noopUserRepo()
	usersByID(repo, ada)
	revoker := newMemRevoker()
	revoker.err = errors.New("redis down")
	svc := newTestAuth(t, repo, revoker)

	session, err := svc.Login(context.Background(), "+1", "secret")
	require.NoError(t, err)
	svc.Logout(context.Background(), session.Token)
	assert.False(t, revoker.IsRevoked(context.Background(), session.Claims.ID))
}
