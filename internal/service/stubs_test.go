package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type userRepoStub struct {
	getByIDFn         func(context.Context, string) (*models.User, error)
	getByEmailFn      func(context.Context, string) (*models.User, error)
	getByPhoneFn      func(context.Context, string) (*models.User, error)
	getByIdentifierFn func(context.Context, string) (*models.User, error)
	createFn          func(context.Context, *models.User) error
	updateFn          func(context.Context, *models.User) error
	updateRoleFn      func(context.Context, string, models.Role) error
	listByRolesFn     func(context.Context, ...models.Role) ([]models.User, error)
}

func (s *userRepoStub) GetByID(ctx context.Context, id string) (*models.User, error) {
	return s.getByIDFn(ctx, id)
}
func (s *userRepoStub) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getByEmailFn(ctx, email)
}
func (s *userRepoStub) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return s.getByPhoneFn(ctx, phone)
}
func (s *userRepoStub) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	return s.getByIdentifierFn(ctx, identifier)
}
func (s *userRepoStub) Create(ctx context.Context, user *models.User) error {
	return s.createFn(ctx, user)
}
func (s *userRepoStub) Update(ctx context.Context, user *models.User) error {
	return s.updateFn(ctx, user)
}
func (s *userRepoStub) UpdateRole(ctx context.Context, id string, role models.Role) error {
	return s.updateRoleFn(ctx, id, role)
}
func (s *userRepoStub) ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	return s.listByRolesFn(ctx, roles...)
}

type blogRepoStub struct {
	createFn              func(context.Context, *models.Blog) error
	getByIDFn             func(context.Context, string) (*models.Blog, error)
	listFn                func(context.Context, repository.BlogFilter) ([]models.Blog, error)
	listByAuthorFn        func(context.Context, string) ([]models.Blog, error)
	updateFn              func(context.Context, *models.Blog) error
	deleteFn              func(context.Context, string) error
	countByAuthorFn       func(context.Context, string) (int64, error)
	updateWriterDetailsFn func(context.Context, string, string, string) error
}

func (s *blogRepoStub) Create(ctx context.Context, blog *models.Blog) error {
	return s.createFn(ctx, blog)
}
func (s *blogRepoStub) GetByID(ctx context.Context, id string) (*models.Blog, error) {
	return s.getByIDFn(ctx, id)
}
func (s *blogRepoStub) List(ctx context.Context, filter repository.BlogFilter) ([]models.Blog, error) {
	return s.listFn(ctx, filter)
}
func (s *blogRepoStub) ListByAuthor(ctx context.Context, authorID string) ([]models.Blog, error) {
	return s.listByAuthorFn(ctx, authorID)
}
func (s *blogRepoStub) Update(ctx context.Context, blog *models.Blog) error {
	return s.updateFn(ctx, blog)
}
func (s *blogRepoStub) Delete(ctx context.Context, id string) error {
	return s.deleteFn(ctx, id)
}
func (s *blogRepoStub) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	return s.countByAuthorFn(ctx, authorID)
}
func (s *blogRepoStub) UpdateWriterDetails(ctx context.Context, authorID, name, photo string) error {
	return s.updateWriterDetailsFn(ctx, authorID, name, photo)
}

func noopUserRepo() *userRepoStub {
	notFound := func(context.Context, string) (*models.User, error) { return nil, nil }
	return &userRepoStub{
		getByIDFn: func(_ context.Context, id string) (*models.User, error) {
			return nil, models.NewNotFoundError("User", id)
		},
		getByEmailFn:      notFound,
		getByPhoneFn:      notFound,
		getByIdentifierFn: notFound,
		createFn:          func(context.Context, *models.User) error { return nil },
		updateFn:          func(context.Context, *models.User) error { return nil },
		listByRolesFn:     func(context.Context, ...models.Role) ([]models.User, error) { return []models.User{}, nil },
	}
}

func noopBlogRepo() *blogRepoStub {
	return &blogRepoStub{
		createFn: func(context.Context, *models.Blog) error { return nil },
		getByIDFn: func(_ context.Context, id string) (*models.Blog, error) {
			return nil, models.NewNotFoundError("Blog", id)
		},
		listFn:                func(context.Context, repository.BlogFilter) ([]models.Blog, error) { return []models.Blog{}, nil },
		listByAuthorFn:        func(context.Context, string) ([]models.Blog, error) { return []models.Blog{}, nil },
		updateFn:              func(context.Context, *models.Blog) error { return nil },
		deleteFn:              func(context.Context, string) error { return nil },
		countByAuthorFn:       func(context.Context, string) (int64, error) { return 0, nil },
		updateWriterDetailsFn: func(context.Context, string, string, string) error { return nil },
	}
}

// usersByID makes GetByID and GetByIdentifier resolve from a fixed set.
func usersByID(repo *userRepoStub, users ...*models.User) {
	repo.getByIDFn = func(_ context.Context, id string) (*models.User, error) {
		for _, u := range users {
			if u.ID == id {
				copied := *u
				return &copied, nil
			}
		}
		return nil, models.NewNotFoundError("User", id)
	}
	repo.getByIdentifierFn = func(_ context.Context, identifier string) (*models.User, error) {
		for _, u := range users {
			if u.Email == identifier || u.Phone == identifier {
				copied := *u
				return &copied, nil
			}
		}
		return nil, nil
	}
}

// memRevoker is an in-memory TokenRevoker.
type memRevoker struct {
	mu      sync.Mutex
	revoked map[string]time.Time
	err     error
}

func newMemRevoker() *memRevoker {
	return &memRevoker{revoked: make(map[string]time.Time)}
}

func (r *memRevoker) Revoke(_ context.Context, jti string, until time.Time) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.revoked[jti] = until
	return nil
}

func (r *memRevoker) IsRevoked(_ context.Context, jti string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	_, ok := r.revoked[jti]
	return ok
}

type storageStub struct {
	presignFn func(context.Context, string, string, string) (*storage.PresignedUpload, error)
}

func (s *storageStub) PresignUpload(ctx context.Context, prefix, owner, ext string) (*storage.PresignedUpload, error) {
	return s.presignFn(ctx, prefix, owner, ext)
}

func mustUser(t *testing.T, name, email, phone string, role models.Role) *models.User {
	t.Helper()
	u, err := models.NewUser(models.NewUserInput{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: "secret",
		Role:     string(role),
	})
	require.NoError(t, err)
	return u
}

func assertCode(t *testing.T, err error, code string) {
	t.Helper()
	require.Error(t, err)
	var appErr *models.AppError
	require.True(t, errors.As(err, &appErr), "expected AppError, got %T: %v", err, err)
	assert.Equal(t, code, appErr.Code)
}

func assertValidationError(t *testing.T, err error) {
	t.Helper()
	assertCode(t, err, models.CodeValidation)
}
