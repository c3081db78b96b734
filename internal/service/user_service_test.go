package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func TestUserService_UpdateProfile(t *testing.T) {
	t.Parallel()

	t.Run("name change refreshes blog bylines", func(t *testing.T) {
		t.Parallel()
		writer := mustUser(t, "Old Name", "w@x.com", "+1", models.RoleWriter)
		users := noopUserRepo()
		usersByID(users, writer)
		var saved *models.User
		users.updateFn = func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		}
		blogs := noopBlogRepo()
		var bylineName string
		blogs.updateWriterDetailsFn = func(_ context.Context, authorID, name, _ string) error {
			assert.Equal(t, writer.ID, authorID)
			bylineName = name
			return nil
		}

		svc := NewUserService(users, blogs, nil)
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:        writer.ID,
			ProfileUpdate: models.ProfileUpdate{Name: strPtr("  New Name ")},
		})
		require.NoError(t, err)
		assert.Equal(t, "New Name", user.Name)
		require.NotNil(t, saved)
		assert.Equal(t, "New Name", saved.Name)
		assert.Equal(t, "New Name", bylineName)
	})

	t.Run("education only leaves blogs alone", func(t *testing.T) {
		t.Parallel()
		writer := mustUser(t, "Writer", "w@x.com", "+1", models.RoleWriter)
		users := noopUserRepo()
		usersByID(users, writer)
		blogs := noopBlogRepo()
		blogs.updateWriterDetailsFn = func(context.Context, string, string, string) error {
			t.Fatal("bylines must not be rewritten")
			return nil
		}

		svc := NewUserService(users, blogs, nil)
		user, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:        writer.ID,
			ProfileUpdate: models.ProfileUpdate{Education: strPtr("MSc")},
		})
		require.NoError(t, err)
		assert.Equal(t, "MSc", user.Education)
		assert.Equal(t, "Writer", user.Name)
	})

	t.Run("invalid name", func(t *testing.T) {
		t.Parallel()
		reader := mustUser(t, "Reader", "r@x.com", "+1", models.RoleReader)
		users := noopUserRepo()
		usersByID(users, reader)
		users.updateFn = func(context.Context, *models.User) error {
			t.Fatal("Update must not be called")
			return nil
		}

		svc := NewUserService(users, noopBlogRepo(), nil)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{
			UserID:        reader.ID,
			ProfileUpdate: models.ProfileUpdate{Name: strPtr(strings.Repeat("x", 81))},
		})
		assertValidationError(t, err)
	})

	t.Run("unknown user", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), noopBlogRepo(), nil)
		_, err := svc.UpdateProfile(context.Background(), UpdateProfileInput{UserID: "missing"})
		assertCode(t, err, models.CodeNotFound)
	})
}

func TestUserService_Writers(t *testing.T) {
	t.Parallel()
	users := noopUserRepo()
	users.listByRolesFn = func(_ context.Context, roles ...models.Role) ([]models.User, error) {
		assert.ElementsMatch(t, []models.Role{models.RoleWriter, models.RoleAdmin}, roles)
		return []models.User{{Name: "Amy"}}, nil
	}
	svc := NewUserService(users, noopBlogRepo(), nil)

	writers, err := svc.Writers(context.Background())
	require.NoError(t, err)
	assert.Len(t, writers, 1)
}

func TestUserService_RequestPhotoUpload(t *testing.T) {
	t.Parallel()

	t.Run("storage not configured", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), noopBlogRepo(), nil)
		_, err := svc.RequestPhotoUpload(context.Background(), PhotoUploadInput{UserID: "u", Filename: "me.png"})
		assertCode(t, err, models.CodeUnavailable)
	})

	t.Run("unsupported extension", func(t *testing.T) {
		t.Parallel()
		svc := NewUserService(noopUserRepo(), noopBlogRepo(), &storageStub{})
		_, err := svc.RequestPhotoUpload(context.Background(), PhotoUploadInput{UserID: "u", Filename: "me.exe"})
		assertValidationError(t, err)
	})

	t.Run("points photo at the new object", func(t *testing.T) {
		t.Parallel()
		writer := mustUser(t, "Writer", "w@x.com", "+1", models.RoleWriter)
		users := noopUserRepo()
		usersByID(users, writer)
		var saved *models.User
		users.updateFn = func(_ context.Context, u *models.User) error {
			saved = u
			return nil
		}
		blogs := noopBlogRepo()
		var bylinePhoto string
		blogs.updateWriterDetailsFn = func(_ context.Context, _, _, photo string) error {
			bylinePhoto = photo
			return nil
		}
		store := &storageStub{presignFn: func(_ context.Context, prefix, owner, ext string) (*storage.PresignedUpload, error) {
			assert.Equal(t, "avatars", prefix)
			assert.Equal(t, writer.ID, owner)
			assert.Equal(t, "jpg", ext)
			return &storage.PresignedUpload{
				UploadURL: "https://s3/upload",
				Key:       "avatars/" + owner + "/k.jpg",
				PublicURL: "https://cdn/avatars/" + owner + "/k.jpg",
				ExpiresAt: time.Now().Add(time.Minute),
			}, nil
		}}

		svc := NewUserService(users, blogs, store)
		upload, err := svc.RequestPhotoUpload(context.Background(), PhotoUploadInput{UserID: writer.ID, Filename: "Me.JPG"})
		require.NoError(t, err)
		assert.Equal(t, "https://s3/upload", upload.UploadURL)
		require.NotNil(t, saved)
		assert.Equal(t, upload.Key, saved.Photo.PublicID)
		assert.Equal(t, upload.PublicURL, saved.Photo.URL)
		assert.Equal(t, upload.PublicURL, bylinePhoto)
	})

	t.Run("presign failure", func(t *testing.T) {
		t.Parallel()
		reader := mustUser(t, "Reader", "r@x.com", "+1", models.RoleReader)
		users := noopUserRepo()
		usersByID(users, reader)
		store := &storageStub{presignFn: func(context.Context, string, string, string) (*storage.PresignedUpload, error) {
			return nil, errors.New("s3 down")
		}}
		svc := NewUserService(users, noopBlogRepo(), store)
		_, err := svc.RequestPhotoUpload(context.Background(), PhotoUploadInput{UserID: reader.ID, Filename: "a.png"})
		assertCode(t, err, models.CodeInternal)
	})
}
