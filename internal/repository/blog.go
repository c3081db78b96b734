package repository

import (
	"context"
	"errors"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/category"
	"inkwell/internal/models"

	"gorm.io/gorm"
)

// BlogFilter narrows List results. The zero value lists everything.
type BlogFilter struct {
	Category string
}

// BlogRepository defines persistence operations for blogs.
type BlogRepository interface {
	Create(ctx context.Context, blog *models.Blog) error
	GetByID(ctx context.Context, id string) (*models.Blog, error)
	List(ctx context.Context, filter BlogFilter) ([]models.Blog, error)
	ListByAuthor(ctx context.Context, authorID string) ([]models.Blog, error)
	Update(ctx context.Context, blog *models.Blog) error
	Delete(ctx context.Context, id string) error
	CountByAuthor(ctx context.Context, authorID string) (int64, error)
	UpdateWriterDetails(ctx context.Context, authorID, name, photo string) error
}

type blogRepository struct {
	db *gorm.DB
}

// NewBlogRepository returns a new BlogRepository implementation.
func NewBlogRepository(db *gorm.DB) BlogRepository {
	return &blogRepository{db: db}
}

// newestFirst orders blogs so successive reads return the same sequence.
func newestFirst(db *gorm.DB) *gorm.DB {
	return db.Order("created_at DESC").Order("id DESC")
}

func (r *blogRepository) Create(ctx context.Context, blog *models.Blog) error {
	if err := r.db.WithContext(ctx).Create(blog).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A blog with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateBlogList(ctx)
	cache.InvalidateUser(ctx, blog.CreatedBy)
	return nil
}

func (r *blogRepository) GetByID(ctx context.Context, id string) (*models.Blog, error) {
	var blog models.Blog
	err := cache.Aside(ctx, cache.BlogKey(id), &blog, cache.BlogTTL, func() error {
		if err := r.db.WithContext(ctx).Where("id = ?", id).Take(&blog).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.NewNotFoundError("Blog", id)
			}
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &blog, nil
}

// List returns blogs newest first. The unfiltered list is cached; category
// lists are served from the indexed category_key column.
func (r *blogRepository) List(ctx context.Context, filter BlogFilter) ([]models.Blog, error) {
	blogs := []models.Blog{}

	if name := strings.TrimSpace(filter.Category); name != "" {
		err := newestFirst(r.db.WithContext(ctx)).
			Where("category_key = ?", category.Normalize(name)).
			Find(&blogs).Error
		if err != nil {
			return nil, models.NewInternalError(err)
		}
		return blogs, nil
	}

	err := cache.Aside(ctx, cache.BlogListKey, &blogs, cache.BlogListTTL, func() error {
		if err := newestFirst(r.db.WithContext(ctx)).Find(&blogs).Error; err != nil {
			return models.NewInternalError(err)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return blogs, nil
}

func (r *blogRepository) ListByAuthor(ctx context.Context, authorID string) ([]models.Blog, error) {
	blogs := []models.Blog{}
	if err := newestFirst(r.db.WithContext(ctx)).Where("created_by = ?", authorID).Find(&blogs).Error; err != nil {
		return nil, models.NewInternalError(err)
	}
	return blogs, nil
}

func (r *blogRepository) Update(ctx context.Context, blog *models.Blog) error {
	if err := r.db.WithContext(ctx).Save(blog).Error; err != nil {
		if isUniqueConstraintError(err) {
			return models.NewConflictError("A blog with this slug already exists")
		}
		return models.NewInternalError(err)
	}
	cache.InvalidateBlog(ctx, blog.ID)
	return nil
}

func (r *blogRepository) Delete(ctx context.Context, id string) error {
	var blog models.Blog
	if err := r.db.WithContext(ctx).Select("id", "created_by").Where("id = ?", id).Take(&blog).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.NewNotFoundError("Blog", id)
		}
		return models.NewInternalError(err)
	}
	if err := r.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Blog{}).Error; err != nil {
		return models.NewInternalError(err)
	}
	cache.InvalidateBlog(ctx, id)
	cache.InvalidateUser(ctx, blog.CreatedBy)
	return nil
}

func (r *blogRepository) CountByAuthor(ctx context.Context, authorID string) (int64, error) {
	var n int64
	if err := r.db.WithContext(ctx).Model(&models.Blog{}).Where("created_by = ?", authorID).Count(&n).Error; err != nil {
		return 0, models.NewInternalError(err)
	}
	return n, nil
}

// UpdateWriterDetails refreshes the author name and photo copied onto blogs.
func (r *blogRepository) UpdateWriterDetails(ctx context.Context, authorID, name, photo string) error {
	var ids []string
	if err := r.db.WithContext(ctx).Model(&models.Blog{}).Where("created_by = ?", authorID).Pluck("id", &ids).Error; err != nil {
		return models.NewInternalError(err)
	}
	if len(ids) == 0 {
		return nil
	}
	err := r.db.WithContext(ctx).Model(&models.Blog{}).
		Where("created_by = ?", authorID).
		Updates(map[string]interface{}{"writer_name": name, "writer_photo": photo}).Error
	if err != nil {
		return models.NewInternalError(err)
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, cache.BlogKey(id))
	}
	cache.Invalidate(ctx, append(keys, cache.BlogListKey)...)
	return nil
}
