package seed

import (
	"context"
	"fmt"
	"log"

	"inkwell/internal/models"
	"inkwell/internal/repository"

	"gorm.io/gorm"
)

// Options configuration for the seeder
type Options struct {
	// NumWriters is the number of writer accounts; at least one is created.
	NumWriters int
	// NumReaders is the number of reader accounts; at least one is created.
	NumReaders int
	// BlogsPerWriter is how many blogs each writer and the admin publish.
	BlogsPerWriter int
	ShouldClean    bool
	DryRun         bool
	MaxDays        int
	// RandSeed makes generated content reproducible when non-zero.
	RandSeed int64
}

// DemoCategory is a category used for seeded blogs. Weight is its relative
// share of the generated posts.
type DemoCategory struct {
	Name   string
	Weight int
}

// DemoCategories mixes spellings on purpose so the feed filters see aliases.
var DemoCategories = []DemoCategory{
	{Name: "Game", Weight: 3},
	{Name: "GAMES", Weight: 1},
	{Name: "Tech", Weight: 3},
	{Name: "Gadgets", Weight: 2},
	{Name: "Travel", Weight: 2},
	{Name: "Food", Weight: 1},
	{Name: "Sports", Weight: 1},
}

// Result summarizes a seeding run.
type Result struct {
	Users []*models.User
	Blogs []*models.Blog
}

// Seeder populates the database with demo data.
type Seeder struct {
	db      *gorm.DB
	opts    Options
	factory *Factory
}

// NewSeeder creates a Seeder. db may be nil in DryRun mode.
func NewSeeder(db *gorm.DB, opts Options) *Seeder {
	var users repository.UserRepository
	var blogs repository.BlogRepository
	if db != nil {
		users = repository.NewUserRepository(db)
		blogs = repository.NewBlogRepository(db)
	}
	return &Seeder{db: db, opts: opts, factory: NewFactory(users, blogs, opts)}
}

// Seed creates one admin, the configured writers and readers, and blogs for
// every account that can publish.
func (s *Seeder) Seed(ctx context.Context) (*Result, error) {
	writers := max(s.opts.NumWriters, 1)
	readers := max(s.opts.NumReaders, 1)
	log.Printf("🌱 Starting database seeding with %d writers, %d readers and %d blogs each...",
		writers, readers, s.opts.BlogsPerWriter)

	if s.opts.ShouldClean && !s.opts.DryRun {
		if err := clearData(s.db); err != nil {
			log.Printf("⚠️  Warning: could not clear existing data: %v", err)
		}
	}

	res := &Result{}

	admin, err := s.factory.CreateUser(ctx, models.RoleAdmin, func(in *models.NewUserInput) {
		in.Name = "Inkwell Admin"
		in.Email = "admin@example.com"
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create admin: %w", err)
	}
	res.Users = append(res.Users, admin)
	publishers := []*models.User{admin}

	for i := 0; i < writers; i++ {
		user, err := s.factory.CreateUser(ctx, models.RoleWriter, func(in *models.NewUserInput) {
			if i == 0 {
				in.Email = "writer@example.com"
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create writer: %w", err)
		}
		res.Users = append(res.Users, user)
		publishers = append(publishers, user)
	}

	for i := 0; i < readers; i++ {
		user, err := s.factory.CreateUser(ctx, models.RoleReader, func(in *models.NewUserInput) {
			if i == 0 {
				in.Email = "reader@example.com"
			}
		})
		if err != nil {
			return nil, fmt.Errorf("failed to create reader: %w", err)
		}
		res.Users = append(res.Users, user)
	}
	log.Printf("✓ %d users created", len(res.Users))

	plan := categoryPlan(s.opts.BlogsPerWriter, DemoCategories)
	for _, author := range publishers {
		for _, name := range plan {
			blog, err := s.factory.CreateBlog(ctx, author, name)
			if err != nil {
				return nil, fmt.Errorf("failed to create blog: %w", err)
			}
			res.Blogs = append(res.Blogs, blog)
		}
	}
	log.Printf("✓ %d blogs created", len(res.Blogs))

	log.Println("🎉 Database seeding completed successfully!")
	return res, nil
}

// categoryPlan spreads n blogs over the categories by weight. Remainders go
// to the heaviest categories first, so the result always has n entries.
func categoryPlan(n int, cats []DemoCategory) []string {
	if n <= 0 || len(cats) == 0 {
		return nil
	}
	total := 0
	for _, c := range cats {
		total += c.Weight
	}
	if total <= 0 {
		return nil
	}

	counts := make([]int, len(cats))
	assigned := 0
	for i, c := range cats {
		counts[i] = n * c.Weight / total
		assigned += counts[i]
	}
	for assigned < n {
		best := 0
		for i, c := range cats {
			if c.Weight*(counts[best]+1) > cats[best].Weight*(counts[i]+1) {
				best = i
			}
		}
		counts[best]++
		assigned++
	}

	plan := make([]string, 0, n)
	for i, c := range cats {
		for j := 0; j < counts[i]; j++ {
			plan = append(plan, c.Name)
		}
	}
	return plan
}

func clearData(db *gorm.DB) error {
	log.Println("🗑️  Clearing existing data...")
	return db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.Blog{}).Error; err != nil {
			return err
		}
		return tx.Session(&gorm.Session{AllowGlobalUpdate: true}).Delete(&models.User{}).Error
	})
}
