package models

import (
	"strings"
	"time"
	"unicode/utf8"

	"inkwell/internal/category"

	"github.com/google/uuid"
	"github.com/gosimple/slug"
	"gorm.io/gorm"
)

const (
	minTitleLen    = 2
	maxTitleLen    = 120
	maxCategoryLen = 40
	minAboutLen    = 10
	maxAboutLen    = 20000
	maxSlugBaseLen = 160
)

// Blog is a published article.
type Blog struct {
	ID       string `gorm:"primaryKey;type:varchar(36)" json:"_id"`
	Title    string `gorm:"size:120;not null" json:"title"`
	Slug     string `gorm:"size:200;uniqueIndex;not null" json:"slug"`
	Category string `gorm:"size:40;not null" json:"category"`
	// CategoryKey is the normalized category used for server-side filtering.
	CategoryKey string    `gorm:"size:40;not null;index" json:"-"`
	About       string    `gorm:"type:text;not null" json:"about"`
	BlogImage   ImageRef  `gorm:"embedded;embeddedPrefix:image_" json:"blogImage"`
	WriterName  string    `gorm:"size:80;not null;default:''" json:"writerName"`
	WriterPhoto string    `gorm:"not null;default:''" json:"writerPhoto"`
	CreatedBy   string    `gorm:"type:varchar(36);not null;index" json:"createdBy"`
	CreatedAt   time.Time `gorm:"index" json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// CategoryName implements category.Categorized.
func (b Blog) CategoryName() string { return b.Category }

// BeforeCreate assigns an id when the caller did not.
func (b *Blog) BeforeCreate(_ *gorm.DB) error {
	if b.ID == "" {
		b.ID = uuid.NewString()
	}
	return nil
}

// BeforeSave keeps the normalized category in sync.
func (b *Blog) BeforeSave(_ *gorm.DB) error {
	if b.Category != "" {
		b.CategoryKey = category.Normalize(b.Category)
	}
	return nil
}

// NewBlogInput is the raw payload for creating a blog.
type NewBlogInput struct {
	Title     string   `json:"title"`
	Category  string   `json:"category"`
	About     string   `json:"about"`
	BlogImage ImageRef `json:"blogImage"`
}

// NewBlog validates the input and builds a Blog authored by author.
func NewBlog(in NewBlogInput, author *User) (*Blog, error) {
	if author == nil {
		return nil, NewUnauthenticatedError("Author required")
	}
	if !author.Role.CanPublish() {
		return nil, NewForbiddenError("Only writers and admins can publish blogs")
	}

	title := strings.TrimSpace(in.Title)
	cat := strings.TrimSpace(in.Category)
	about := strings.TrimSpace(in.About)
	if err := validateBlogFields(title, cat, about); err != nil {
		return nil, err
	}

	id := uuid.NewString()
	return &Blog{
		ID:          id,
		Title:       title,
		Slug:        blogSlug(title, id),
		Category:    cat,
		CategoryKey: category.Normalize(cat),
		About:       about,
		BlogImage:   in.BlogImage,
		WriterName:  author.Name,
		WriterPhoto: author.Photo.URL,
		CreatedBy:   author.ID,
	}, nil
}

// BlogUpdate holds optional blog changes; nil fields are left alone.
type BlogUpdate struct {
	Title     *string   `json:"title"`
	Category  *string   `json:"category"`
	About     *string   `json:"about"`
	BlogImage *ImageRef `json:"blogImage"`
}

// Apply validates and applies the update in place.
func (p BlogUpdate) Apply(b *Blog) error {
	title, cat, about := b.Title, b.Category, b.About
	if p.Title != nil {
		title = strings.TrimSpace(*p.Title)
	}
	if p.Category != nil {
		cat = strings.TrimSpace(*p.Category)
	}
	if p.About != nil {
		about = strings.TrimSpace(*p.About)
	}
	if err := validateBlogFields(title, cat, about); err != nil {
		return err
	}
	if title != b.Title {
		b.Slug = blogSlug(title, b.ID)
	}
	b.Title, b.Category, b.About = title, cat, about
	b.CategoryKey = category.Normalize(cat)
	if p.BlogImage != nil {
		b.BlogImage = *p.BlogImage
	}
	return nil
}

func validateBlogFields(title, cat, about string) error {
	if n := utf8.RuneCountInString(title); n < minTitleLen || n > maxTitleLen {
		return NewValidationError("Title must be between 2 and 120 characters")
	}
	if cat == "" {
		return NewValidationError("Category is required")
	}
	if utf8.RuneCountInString(cat) > maxCategoryLen {
		return NewValidationError("Category must not exceed 40 characters")
	}
	if n := utf8.RuneCountInString(about); n < minAboutLen || n > maxAboutLen {
		return NewValidationError("About must be between 10 and 20000 characters")
	}
	return nil
}

// blogSlug derives a unique slug from the title and the id's first segment.
func blogSlug(title, id string) string {
	suffix := id
	if i := strings.IndexByte(id, '-'); i > 0 {
		suffix = id[:i]
	}
	base := strings.Trim(truncate(slug.Make(title), maxSlugBaseLen), "-")
	if base == "" {
		return suffix
	}
	return base + "-" + suffix
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
