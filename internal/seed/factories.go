// Package seed provides helpers to create demo data for the application
// database. These helpers are intended for development and testing only.
package seed

import (
	"context"
	"fmt"
	"log"
	"math/rand"
	"strings"
	"time"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
)

// DefaultPassword is the password of every seeded account.
const DefaultPassword = "password123"

// Factory builds domain entities and persists them through the repositories.
// It is a thin helper used by the seeder and tests.
type Factory struct {
	users repository.UserRepository
	blogs repository.BlogRepository
	opts  Options
	rng   *rand.Rand
	// phone counter keeps generated numbers unique within a run
	nextPhone int
}

// NewFactory creates a Factory. Repositories may be nil in DryRun mode.
func NewFactory(users repository.UserRepository, blogs repository.BlogRepository, opts Options) *Factory {
	seed := opts.RandSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	gofakeit.Seed(seed)
	return &Factory{
		users: users,
		blogs: blogs,
		opts:  opts,
		// #nosec G404: acceptable for seeding
		rng:       rand.New(rand.NewSource(seed)),
		nextPhone: 1000000,
	}
}

// BuildUser constructs a valid user with the given role without persisting it.
func (f *Factory) BuildUser(role models.Role, overrides ...func(*models.NewUserInput)) (*models.User, error) {
	f.nextPhone++
	in := models.NewUserInput{
		Name:      gofakeit.Name(),
		Email:     strings.ToLower(fmt.Sprintf("%s.%d@example.com", gofakeit.Username(), f.nextPhone)),
		Phone:     fmt.Sprintf("+1555%07d", f.nextPhone),
		Password:  DefaultPassword,
		Role:      string(role),
		Education: gofakeit.RandomString([]string{"", "BSc Computer Science", "MA Journalism", "Self-taught", "PhD Physics"}),
	}
	for _, override := range overrides {
		override(&in)
	}
	return models.NewUser(in)
}

// CreateUser builds and persists a user.
func (f *Factory) CreateUser(ctx context.Context, role models.Role, overrides ...func(*models.NewUserInput)) (*models.User, error) {
	user, err := f.BuildUser(role, overrides...)
	if err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		user.ID = uuid.NewString()
		log.Printf("[dry-run] CreateUser: role=%s email=%s", user.Role, user.Email)
		return user, nil
	}
	if err := f.users.Create(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// BuildBlog constructs a blog by author in the given category without
// persisting it. CreatedAt is spread over the last MaxDays days.
func (f *Factory) BuildBlog(author *models.User, categoryName string, overrides ...func(*models.NewBlogInput)) (*models.Blog, error) {
	in := models.NewBlogInput{
		Title:    strings.TrimSuffix(gofakeit.Sentence(gofakeit.Number(3, 8)), "."),
		Category: categoryName,
		About:    gofakeit.Paragraph(2, 4, 12, "\n\n"),
		BlogImage: models.ImageRef{
			URL:      fmt.Sprintf("https://picsum.photos/seed/%s/1200/630", gofakeit.UUID()),
			PublicID: "seed/" + gofakeit.UUID(),
		},
	}
	for _, override := range overrides {
		override(&in)
	}

	blog, err := models.NewBlog(in, author)
	if err != nil {
		return nil, err
	}

	maxDays := f.opts.MaxDays
	if maxDays <= 0 {
		maxDays = 90
	}
	back := time.Duration(f.rng.Intn(maxDays))*24*time.Hour +
		time.Duration(f.rng.Intn(24))*time.Hour +
		time.Duration(f.rng.Intn(60))*time.Minute
	blog.CreatedAt = time.Now().Add(-back)
	blog.UpdatedAt = blog.CreatedAt
	return blog, nil
}

// CreateBlog builds and persists a blog.
func (f *Factory) CreateBlog(ctx context.Context, author *models.User, categoryName string, overrides ...func(*models.NewBlogInput)) (*models.Blog, error) {
	blog, err := f.BuildBlog(author, categoryName, overrides...)
	if err != nil {
		return nil, err
	}
	if f.opts.DryRun {
		log.Printf("[dry-run] CreateBlog: category=%s author=%s title=%q", blog.Category, author.Email, blog.Title)
		return blog, nil
	}
	if err := f.blogs.Create(ctx, blog); err != nil {
		return nil, err
	}
	return blog, nil
}
