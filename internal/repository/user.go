// Package repository implements the data access layer for the application.
package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"
	"inkwell/internal/validation"

	"gorm.io/gorm"
)

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByPhone(ctx context.Context, phone string) (*models.User, error)
	GetByIdentifier(ctx context.Context, identifier string) (*models.User, error)
	Create(ctx context.Context, user *models.User) error
	Update(ctx context.Context, user *models.User) error
	UpdateRole(ctx context.Context, id string, role models.Role) error
	ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error)
}

type userRepository struct {
	db *gorm.DB
}

// NewUserRepository returns a new UserRepository implementation.
func NewUserRepository(db *gorm.DB) UserRepository {
	return &userRepository{db: db}
}

// withBlogCount selects the derived no_ofBlogs column alongside the user.
func withBlogCount(db *gorm.DB) *gorm.DB {
	return db.Model(&models.User{}).
		Select("users.*, (SELECT COUNT(*) FROM blogs WHERE blogs.created_by = users.id) AS blog_count")
}

func (r *userRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	key := cache.UserKey(id)

	err := cache.Aside(ctx, key, &user, cache.UserTTL, func() error {
		if err := withBlogCount(r.db.WithContext(ctx)).Where("users.id = ?", id).Take(&user).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("User", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})

	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (r *userRepository) getBy(ctx context.Context, column, value string) (*models.User, error) {
	var user models.User
	if err := withBlogCount(r.db.WithContext(ctx)).Where("users."+column+" = ?", value).Take(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, models.NewInternalError(err)
	}
	return &user, nil
}

// GetByEmail returns (nil, nil) when no user has the email.
func (r *userRepository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return r.getBy(ctx, "email", strings.ToLower(strings.TrimSpace(email)))
}

// GetByPhone returns (nil, nil) when no user has the phone.
func (r *userRepository) GetByPhone(ctx context.Context, phone string) (*models.User, error) {
	return r.getBy(ctx, "phone", strings.TrimSpace(phone))
}

// GetByIdentifier resolves a login identifier: email when it looks like one,
// phone otherwise, then the other column.
func (r *userRepository) GetByIdentifier(ctx context.Context, identifier string) (*models.User, error) {
	identifier = strings.TrimSpace(identifier)
	if identifier == "" {
		return nil, nil
	}

	lookups := []func(context.Context, string) (*models.User, error){r.GetByPhone, r.GetByEmail}
	if validation.LooksLikeEmail(identifier) {
		lookups[0], lookups[1] = lookups[1], lookups[0]
	}
	for _, lookup := range lookups {
		user, err := lookup(ctx, identifier)
		if err != nil || user != nil {
			return user, err
		}
	}
	return nil, nil
}

func (r *userRepository) Create(ctx context.Context, user *models.User) error {
	if err := r.db.WithContext(ctx).Create(user).Error; err != nil {
		if isUniqueConstraintError(err) {
			switch uniqueField(err, "email", "phone") {
			case "email":
				return models.NewConflictError("Email already registered")
			case "phone":
				return models.NewConflictError("Phone already registered")
			default:
				return models.NewConflictError("User already exists")
			}
		}
		return models.NewInternalError(err)
	}
	return nil
}

// Update writes the profile columns. Users read through the cache carry no
// password hash and may hold a stale role, so neither password nor role is
// part of an update; roles change only through UpdateRole.
func (r *userRepository) Update(ctx context.Context, user *models.User) error {
	user.UpdatedAt = time.Now()
	err := r.db.WithContext(ctx).
		Model(&models.User{ID: user.ID}).
		Select("name", "education", "photo_url", "photo_public_id", "updated_at").
		Updates(user).Error
	if err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("User already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateUser(ctx, user.ID)
	return nil
}

// UpdateRole changes a user's role and drops the cached copy.
func (r *userRepository) UpdateRole(ctx context.Context, id string, role models.Role) error {
	res := r.db.WithContext(ctx).
		Model(&models.User{}).
		Where("id = ?", id).
		Updates(map[string]any{"role": role, "updated_at": time.Now()})
	if res.Error != nil {
		return models.NewInternalError(res.Error)
	}
	if res.RowsAffected == 0 {
		return models.NewNotFoundError("User", id)
	}
	cache.InvalidateUser(ctx, id)
	return nil
}

// ListByRoles returns users holding any of roles, ordered by name.
func (r *userRepository) ListByRoles(ctx context.Context, roles ...models.Role) ([]models.User, error) {
	users := []models.User{}
	q := withBlogCount(r.db.WithContext(ctx))
	if len(roles) > 0 {
		q = q.Where("users.role IN ?", roles)
	}
	if err := q.Order("users.name ASC").Order("users.id ASC").Find(&users).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return users, nil
}
