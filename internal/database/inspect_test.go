package database

import (
	"context"
	"testing"

	"inkwell/internal/config"
	"inkwell/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInspectSchema(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	tables, err := InspectSchema(ctx, db)
	require.NoError(t, err)
	require.Len(t, tables, 2)
	assert.Equal(t, "users", tables[0].Name)
	assert.False(t, tables[0].Exists)

	require.NoError(t, runAutoMigrate(db))
	user, err := models.NewUser(models.NewUserInput{
		Name:     "Ada Lovelace",
		Email:    "ada@example.com",
		Phone:    "+15550000001",
		Password: "password123",
		Role:     "writer",
	})
	require.NoError(t, err)
	require.NoError(t, db.Create(user).Error)

	tables, err = InspectSchema(ctx, db)
	require.NoError(t, err)
	users := tables[0]
	assert.True(t, users.Exists)
	assert.Equal(t, int64(1), users.Rows)

	var names []string
	for _, c := range users.Columns {
		names = append(names, c.Name)
	}
	assert.Contains(t, names, "email")
	assert.Contains(t, names, "phone")

	blogs := tables[1]
	assert.Equal(t, "blogs", blogs.Name)
	assert.Zero(t, blogs.Rows)
	assert.NotEmpty(t, blogs.Indexes)
}

func TestListConstraints_RequiresPostgres(t *testing.T) {
	_, err := ListConstraints(context.Background(), openSQLite(t))
	assert.Error(t, err)
}

func TestResetSchema(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()
	require.NoError(t, RunMigrations(ctx, db))

	err := ResetSchema(ctx, db, &config.Config{Env: "production"})
	assert.Error(t, err)
	assert.True(t, db.Migrator().HasTable("users"))

	require.NoError(t, ResetSchema(ctx, db, &config.Config{Env: "development"}))
	assert.False(t, db.Migrator().HasTable("users"))
	assert.False(t, db.Migrator().HasTable("blogs"))
	assert.False(t, db.Migrator().HasTable(gooseVersionTable))

	require.NoError(t, RunMigrations(ctx, db), "migrations rerun from scratch")
	assert.True(t, db.Migrator().HasTable("blogs"))
}
