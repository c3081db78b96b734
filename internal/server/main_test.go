package server

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/notifications"
	"inkwell/internal/repository"

	"github.com/alicebob/miniredis/v2"
	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const testJWTSecret = "server-test-secret-that-is-long-enough"

func testConfig() *config.Config {
	return &config.Config{
		JWTSecret:      testJWTSecret,
		JWTTTL:         time.Hour,
		Port:           "0",
		Env:            "test",
		AllowedOrigins: "http://localhost:5173",
	}
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "server.db")
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

// setupRedis points the shared cache at a fresh miniredis.
func setupRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
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
	return mr, rdb
}

type testEnv struct {
	srv *Server
	app *fiber.App
	db  *gorm.DB
	hub *notifications.Manager
}

func newTestEnv(t *testing.T, hub *notifications.Manager) *testEnv {
	t.Helper()
	db := setupTestDB(t)
	srv, err := NewServerWithDeps(testConfig(), db, nil, hub)
	require.NoError(t, err)
	return &testEnv{srv: srv, app: srv.NewApp(), db: db, hub: hub}
}

// do sends a JSON request and decodes a JSON response into out when non-nil.
func (e *testEnv) do(t *testing.T, method, path string, body any, token string, out any) *http.Response {
	t.Helper()
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(t, err)
		reader = bytes.NewReader(raw)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	t.Cleanup(func() { _ = resp.Body.Close() })
	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

// register creates an account through the API and returns its session.
func (e *testEnv) register(t *testing.T, name, email, phone string, role models.Role) SessionResponse {
	t.Helper()
	var session SessionResponse
	resp := e.do(t, http.MethodPost, "/api/users/register", models.NewUserInput{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: "secret",
		Role:     string(role),
	}, "", &session)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return session
}

// registerAdmin signs up a writer and promotes it the way an operator would.
func (e *testEnv) registerAdmin(t *testing.T, name, email, phone string) SessionResponse {
	t.Helper()
	session := e.register(t, name, email, phone, models.RoleWriter)
	require.NoError(t, repository.NewUserRepository(e.db).UpdateRole(context.Background(), session.User.ID, models.RoleAdmin))
	session.User.Role = models.RoleAdmin
	return session
}

func (e *testEnv) createBlog(t *testing.T, token, title, category string) models.Blog {
	t.Helper()
	var blog models.Blog
	resp := e.do(t, http.MethodPost, "/api/blogs/create", models.NewBlogInput{
		Title:    title,
		Category: category,
		About:    "Body text long enough to pass validation.",
	}, token, &blog)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return blog
}

func cookieNamed(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}
