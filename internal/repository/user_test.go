package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"inkwell/internal/cache"
	"inkwell/internal/models"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

const userSelect = `SELECT users.*, (SELECT COUNT(*) FROM blogs WHERE blogs.created_by = users.id) AS blog_count FROM "users" WHERE users.id = $1`

func TestUserRepository_GetByID(t *testing.T) {
	db, mock := setupMockDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	tests := []struct {
		name          string
		userID        string
		mockBehavior  func()
		expectedName  string
		expectedCount int64
		expectedCode  string
	}{
		{
			name:   "Success",
			userID: "u-1",
			mockBehavior: func() {
				rows := sqlmock.NewRows([]string{"id", "name", "email", "phone", "role", "blog_count"}).
					AddRow("u-1", "Ada", "ada@example.com", "+1", "writer", 3)
				mock.ExpectQuery(regexp.QuoteMeta(userSelect)).
					WithArgs("u-1", 1).
					WillReturnRows(rows)
			},
			expectedName:  "Ada",
			expectedCount: 3,
		},
		{
			name:   "Not Found",
			userID: "missing",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(userSelect)).
					WithArgs("missing", 1).
					WillReturnError(gorm.ErrRecordNotFound)
			},
			expectedCode: models.CodeNotFound,
		},
		{
			name:   "Database Error",
			userID: "u-2",
			mockBehavior: func() {
				mock.ExpectQuery(regexp.QuoteMeta(userSelect)).
					WithArgs("u-2", 1).
					WillReturnError(errors.New("connection reset"))
			},
			expectedCode: models.CodeInternal,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.mockBehavior()
			user, err := repo.GetByID(ctx, tt.userID)

			if tt.expectedCode != "" {
				require.Error(t, err)
				assert.True(t, models.HasCode(err, tt.expectedCode))
			} else if assert.NotNil(t, user) {
				assert.Equal(t, tt.expectedName, user.Name)
				assert.Equal(t, tt.expectedCount, user.BlogCount)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestUserRepository_CreateAndLookup(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	created := seedUser(t, repo, "Ada", "A@X.com", "+1", models.RoleReader)
	assert.NotEmpty(t, created.ID)

	tests := []struct {
		name       string
		identifier string
		found      bool
	}{
		{name: "by email", identifier: "a@x.com", found: true},
		{name: "by email mixed case", identifier: "  A@x.COM ", found: true},
		{name: "by phone", identifier: "+1", found: true},
		{name: "unknown email", identifier: "b@x.com", found: false},
		{name: "unknown phone", identifier: "+2", found: false},
		{name: "empty", identifier: "", found: false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := repo.GetByIdentifier(ctx, tt.identifier)
			require.NoError(t, err)
			if !tt.found {
				assert.Nil(t, user)
				return
			}
			require.NotNil(t, user)
			assert.Equal(t, created.ID, user.ID)
			assert.True(t, user.CheckPassword("secret"))
		})
	}
}

func TestUserRepository_Create_Duplicates(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, repo, "Ada", "a@x.com", "+1", models.RoleReader)

	tests := []struct {
		name    string
		email   string
		phone   string
		message string
	}{
		{name: "same email", email: "a@x.com", phone: "+2", message: "Email already registered"},
		{name: "same phone", email: "b@x.com", phone: "+1", message: "Phone already registered"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := repo.Create(ctx, mustUser(t, "Other", tt.email, tt.phone, models.RoleReader))
			require.Error(t, err)
			assert.True(t, models.IsConflict(err))
			assert.True(t, models.HasCode(err, models.CodeValidation))

			var appErr *models.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, tt.message, appErr.Message)
		})
	}

	var count int64
	require.NoError(t, db.Model(&models.User{}).Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_Create_ConcurrentPhoneCollision(t *testing.T) {
	db := setupTestDB(t)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	// SQLite has a single writer; callers still race for it.
	sqlDB.SetMaxOpenConns(1)
	repo := NewUserRepository(db)
	ctx := context.Background()

	const n = 8
	users := make([]*models.User, n)
	for i := range users {
		users[i] = mustUser(t, "Racer", fmt.Sprintf("racer%d@x.com", i), "+1", models.RoleReader)
	}

	var ok, conflicts, other atomic.Int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	for _, u := range users {
		wg.Add(1)
		go func(u *models.User) {
			defer wg.Done()
			<-start
			switch err := repo.Create(ctx, u); {
			case err == nil:
				ok.Add(1)
			case models.HasCode(err, models.CodeValidation) && models.IsConflict(err):
				conflicts.Add(1)
			default:
				other.Add(1)
			}
		}(u)
	}
	close(start)
	wg.Wait()

	assert.Equal(t, int32(1), ok.Load())
	assert.Equal(t, int32(n-1), conflicts.Load())
	assert.Zero(t, other.Load())

	var count int64
	require.NoError(t, db.Model(&models.User{}).Where("phone = ?", "+1").Count(&count).Error)
	assert.Equal(t, int64(1), count)
}

func TestUserRepository_BlogCountIsDerived(t *testing.T) {
	db := setupTestDB(t)
	users := NewUserRepository(db)
	blogs := NewBlogRepository(db)
	ctx := context.Background()

	writer := seedUser(t, users, "Writer", "w@x.com", "+10", models.RoleWriter)
	now := time.Now()
	for i, title := range []string{"First post", "Second post"} {
		require.NoError(t, blogs.Create(ctx, mustBlog(t, writer, title, "tech", now.Add(time.Duration(i)*time.Minute))))
	}

	got, err := users.GetByID(ctx, writer.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(2), got.BlogCount)

	byEmail, err := users.GetByEmail(ctx, "w@x.com")
	require.NoError(t, err)
	assert.Equal(t, int64(2), byEmail.BlogCount)
}

func TestUserRepository_Update_KeepsPassword(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, repo, "Ada", "a@x.com", "+1", models.RoleReader)

	// Simulates a user decoded from the cache, which never carries the hash.
	stale := *u
	stale.Password = ""
	stale.Name = "Ada Lovelace"
	stale.Education = "Mathematics"
	require.NoError(t, repo.Update(ctx, &stale))

	got, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, "Ada Lovelace", got.Name)
	assert.Equal(t, "Mathematics", got.Education)
	assert.True(t, got.CheckPassword("secret"))
}

func TestUserRepository_Update_LeavesRole(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, repo, "Ada", "a@x.com", "+1", models.RoleWriter)
	require.NoError(t, repo.UpdateRole(ctx, u.ID, models.RoleReader))

	// u still says writer, like a copy read before the demotion.
	u.Education = "Mathematics"
	require.NoError(t, repo.Update(ctx, u))

	got, err := repo.GetByEmail(ctx, "a@x.com")
	require.NoError(t, err)
	assert.Equal(t, models.RoleReader, got.Role)
	assert.Equal(t, "Mathematics", got.Education)
}

func TestUserRepository_UpdateRole(t *testing.T) {
	mr := setupCache(t)
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, repo, "Ada", "a@x.com", "+1", models.RoleWriter)
	_, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	require.True(t, mr.Exists(cache.UserKey(u.ID)))

	require.NoError(t, repo.UpdateRole(ctx, u.ID, models.RoleAdmin))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, models.RoleAdmin, got.Role)

	err = repo.UpdateRole(ctx, "missing", models.RoleReader)
	assert.True(t, models.HasCode(err, models.CodeNotFound))
}

func TestUserRepository_GetByID_UsesCache(t *testing.T) {
	mr := setupCache(t)
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	u := seedUser(t, repo, "Ada", "a@x.com", "+1", models.RoleReader)

	_, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.True(t, mr.Exists(cache.UserKey(u.ID)))

	u.Name = "Renamed"
	require.NoError(t, repo.Update(ctx, u))
	assert.False(t, mr.Exists(cache.UserKey(u.ID)))

	got, err := repo.GetByID(ctx, u.ID)
	require.NoError(t, err)
	assert.Equal(t, "Renamed", got.Name)

	var cached models.User
	found, err := cache.GetJSON(ctx, cache.UserKey(u.ID), &cached)
	require.NoError(t, err)
	require.True(t, found)
	assert.Empty(t, cached.Password)
}

func TestUserRepository_ListByRoles(t *testing.T) {
	db := setupTestDB(t)
	repo := NewUserRepository(db)
	ctx := context.Background()

	seedUser(t, repo, "Zed", "z@x.com", "+3", models.RoleWriter)
	seedUser(t, repo, "Reader", "r@x.com", "+4", models.RoleReader)
	seedUser(t, repo, "Amy", "amy@x.com", "+5", models.RoleAdmin)

	writers, err := repo.ListByRoles(ctx, models.RoleWriter, models.RoleAdmin)
	require.NoError(t, err)
	require.Len(t, writers, 2)
	assert.Equal(t, "Amy", writers[0].Name)
	assert.Equal(t, "Zed", writers[1].Name)
}

func TestIsUniqueConstraintError(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		want  bool
		field string
	}{
		{name: "nil", err: nil},
		{name: "pg unique", err: &pgconn.PgError{Code: "23505", ConstraintName: "idx_users_email"}, want: true, field: "email"},
		{name: "pg other", err: &pgconn.PgError{Code: "23503"}},
		{name: "sqlite", err: errors.New("UNIQUE constraint failed: users.phone"), want: true, field: "phone"},
		{name: "translated", err: gorm.ErrDuplicatedKey, want: true},
		{name: "unrelated", err: errors.New("timeout")},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isUniqueConstraintError(tt.err))
			if tt.want {
				assert.Equal(t, tt.field, uniqueField(tt.err, "email", "phone"))
			}
		})
	}
}
