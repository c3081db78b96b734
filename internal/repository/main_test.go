package repository

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/database"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func setupMockDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	gormDB, err := gorm.Open(postgres.New(postgres.Config{
		Conn: db,
	}), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)

	return gormDB, mock
}

// setupTestDB opens a file-backed SQLite database with the full schema.
func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "repo.db")
	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{Logger: logger.Discard})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(database.PersistentModels()...))
	t.Cleanup(func() {
		if sqlDB, err := db.DB(); err == nil {
			_ = sqlDB.Close()
		}
	})
	return db
}

func setupCache(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	mr, err := miniredis.Run()
	require.NoError(t, err)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	cache.SetClient(rdb)
	t.Cleanup(func() {
		cache.SetClient(nil)
		_ = rdb.Close()
		mr.Close()
	})
	return mr
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

func mustBlog(t *testing.T, author *models.User, title, cat string, at time.Time) *models.Blog {
	t.Helper()
	b, err := models.NewBlog(models.NewBlogInput{
		Title:    title,
		Category: cat,
		About:    "Long enough body text for a blog.",
	}, author)
	require.NoError(t, err)
	b.CreatedAt = at
	b.UpdatedAt = at
	return b
}

func seedUser(t *testing.T, repo UserRepository, name, email, phone string, role models.Role) *models.User {
	t.Helper()
	u := mustUser(t, name, email, phone, role)
	require.NoError(t, repo.Create(context.Background(), u))
	return u
}
