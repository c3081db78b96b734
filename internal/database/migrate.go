package database

import (
	"context"
	"database/sql"
	"embed"
	"fmt"
	"io/fs"
	"log/slog"
	"path"
	"strings"
	"sync"

	"inkwell/internal/middleware"

	"github.com/pressly/goose/v3"
	"gorm.io/gorm"
)

//go:embed migrations/*.sql
var migrationFS embed.FS

// goose keeps its dialect and base FS in package globals.
var gooseMu sync.Mutex

// Migration describes one embedded SQL migration.
type Migration struct {
	Version int64
	Name    string
}

func (m Migration) String() string {
	return fmt.Sprintf("%05d_%s", m.Version, m.Name)
}

type gooseLogger struct{}

func (gooseLogger) Printf(format string, v ...interface{}) {
	middleware.Logger.Info("goose: " + fmt.Sprintf(format, v...))
}

func (gooseLogger) Fatalf(format string, v ...interface{}) {
	middleware.Logger.Error("goose: " + fmt.Sprintf(format, v...))
}

func migrationsDir() (fs.FS, error) {
	return fs.Sub(migrationFS, "migrations")
}

func gooseDialect(db *gorm.DB) string {
	if db.Dialector.Name() == DriverSQLite {
		return "sqlite3"
	}
	return "postgres"
}

// withGoose configures goose for db and runs fn with the underlying sql.DB.
func withGoose(db *gorm.DB, fn func(*sql.DB) error) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("get sql.DB: %w", err)
	}
	dir, err := migrationsDir()
	if err != nil {
		return err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(dir)
	goose.SetLogger(gooseLogger{})
	if err := goose.SetDialect(gooseDialect(db)); err != nil {
		return err
	}
	return fn(sqlDB)
}

// RunMigrations applies every pending embedded migration.
func RunMigrations(ctx context.Context, db *gorm.DB) error {
	return withGoose(db, func(sqlDB *sql.DB) error {
		if err := goose.UpContext(ctx, sqlDB, "."); err != nil {
			return err
		}
		version, err := goose.GetDBVersionContext(ctx, sqlDB)
		if err == nil {
			middleware.Logger.Info("Migrations applied", slog.Int64("version", version))
		}
		return nil
	})
}

// RollbackMigration reverts the most recently applied migration.
func RollbackMigration(ctx context.Context, db *gorm.DB) error {
	return withGoose(db, func(sqlDB *sql.DB) error {
		return goose.DownContext(ctx, sqlDB, ".")
	})
}

// CurrentVersion returns the latest applied migration version, 0 when none.
func CurrentVersion(ctx context.Context, db *gorm.DB) (int64, error) {
	var version int64
	err := withGoose(db, func(sqlDB *sql.DB) error {
		v, err := goose.GetDBVersionContext(ctx, sqlDB)
		version = v
		return err
	})
	return version, err
}

// GetMigrations lists the embedded migrations in version order.
func GetMigrations() ([]Migration, error) {
	return collect(0)
}

// PendingMigrations lists embedded migrations newer than the applied version.
func PendingMigrations(ctx context.Context, db *gorm.DB) ([]Migration, error) {
	current, err := CurrentVersion(ctx, db)
	if err != nil {
		return nil, err
	}
	return collect(current)
}

func collect(after int64) ([]Migration, error) {
	dir, err := migrationsDir()
	if err != nil {
		return nil, err
	}

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(dir)
	found, err := goose.CollectMigrations(".", after, goose.MaxVersion)
	if err != nil {
		return nil, err
	}
	out := make([]Migration, 0, len(found))
	for _, m := range found {
		if m.Version <= after {
			continue
		}
		out = append(out, Migration{Version: m.Version, Name: migrationName(m.Source)})
	}
	return out, nil
}

// migrationName turns "00001_create_users.sql" into "create_users".
func migrationName(source string) string {
	base := strings.TrimSuffix(path.Base(source), ".sql")
	if _, name, ok := strings.Cut(base, "_"); ok {
		return name
	}
	return base
}
