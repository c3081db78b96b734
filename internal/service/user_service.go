package service

import (
	"context"
	"path"
	"strings"

	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/storage"
)

// PhotoStorage presigns uploads for profile photos.
type PhotoStorage interface {
	PresignUpload(ctx context.Context, prefix, owner, ext string) (*storage.PresignedUpload, error)
}

const avatarPrefix = "avatars"

var allowedPhotoExts = map[string]bool{"jpg": true, "jpeg": true, "png": true, "webp": true, "gif": true}

type UserService struct {
	users   repository.UserRepository
	blogs   repository.BlogRepository
	storage PhotoStorage
}

// NewUserService creates the profile service. storage may be nil, in which
// case photo uploads report Unavailable.
func NewUserService(users repository.UserRepository, blogs repository.BlogRepository, storage PhotoStorage) *UserService {
	return &UserService{users: users, blogs: blogs, storage: storage}
}

type UpdateProfileInput struct {
	UserID string
	models.ProfileUpdate
}

// UpdateProfile applies name/education changes. A new name is copied onto
// the user's blogs so their byline stays current.
func (s *UserService) UpdateProfile(ctx context.Context, in UpdateProfileInput) (*models.User, error) {
	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	previousName := user.Name
	if err := in.Apply(user); err != nil {
		return nil, err
	}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}

	if user.Name != previousName && user.Role.CanPublish() {
		if err := s.blogs.UpdateWriterDetails(ctx, user.ID, user.Name, user.Photo.URL); err != nil {
			return nil, err
		}
	}
	return user, nil
}

// Writers lists every user allowed to publish.
func (s *UserService) Writers(ctx context.Context) ([]models.User, error) {
	return s.users.ListByRoles(ctx, models.RoleWriter, models.RoleAdmin)
}

type PhotoUploadInput struct {
	UserID   string
	Filename string
}

// RequestPhotoUpload presigns an upload and points the user's photo at the
// object that will be written there.
func (s *UserService) RequestPhotoUpload(ctx context.Context, in PhotoUploadInput) (*storage.PresignedUpload, error) {
	if s.storage == nil {
		return nil, models.NewUnavailableError("Photo uploads are not configured")
	}

	ext := strings.ToLower(strings.TrimPrefix(path.Ext(in.Filename), "."))
	if !allowedPhotoExts[ext] {
		return nil, models.NewValidationError("Photo must be a jpg, png, webp or gif file")
	}

	user, err := s.users.GetByID(ctx, in.UserID)
	if err != nil {
		return nil, err
	}

	upload, err := s.storage.PresignUpload(ctx, avatarPrefix, user.ID, ext)
	if err != nil {
		return nil, models.NewInternalError(err)
	}

	user.Photo = models.ImageRef{URL: upload.PublicURL, PublicID: upload.Key}
	if err := s.users.Update(ctx, user); err != nil {
		return nil, err
	}
	if user.Role.CanPublish() {
		if err := s.blogs.UpdateWriterDetails(ctx, user.ID, user.Name, user.Photo.URL); err != nil {
			return nil, err
		}
	}
	return upload, nil
}
