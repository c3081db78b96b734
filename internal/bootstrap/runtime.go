// Package bootstrap wires the runtime dependencies shared by the commands.
package bootstrap

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/middleware"
	"inkwell/internal/models"
	"inkwell/internal/repository"
	"inkwell/internal/seed"

	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const defaultAdminPhone = "+10000000000"

// Options control runtime initialization behavior.
type Options struct {
	// ApplySchema runs migrations or AutoMigrate per DB_SCHEMA_MODE.
	ApplySchema bool
	// SeedDemo seeds demo data when the users table is empty.
	SeedDemo bool
}

// InitRuntime connects to the database and Redis, applies the schema, seeds
// an empty database when asked and ensures the bootstrap admin exists. The
// Redis client is nil when Redis is unreachable.
func InitRuntime(ctx context.Context, cfg *config.Config, opts Options) (*gorm.DB, *redis.Client, error) {
	db, err := database.Connect(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("database connection failed: %w", err)
	}

	if opts.ApplySchema {
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			return nil, nil, fmt.Errorf("failed to apply schema: %w", err)
		}
	}

	r := cache.InitRedis(cfg.RedisURL)

	if opts.SeedDemo {
		if err := seedIfEmpty(ctx, db); err != nil {
			return nil, nil, fmt.Errorf("failed to seed demo data: %w", err)
		}
	}

	users := repository.NewUserRepository(db)
	if _, err := EnsureAdmin(ctx, cfg, users); err != nil {
		return nil, nil, fmt.Errorf("failed to bootstrap admin: %w", err)
	}

	return db, r, nil
}

// EnsureAdmin creates the configured bootstrap admin, or promotes the
// existing account with that email. Without BOOTSTRAP_ADMIN_EMAIL it does
// nothing and returns nil.
func EnsureAdmin(ctx context.Context, cfg *config.Config, users repository.UserRepository) (*models.User, error) {
	if cfg == nil || users == nil {
		return nil, nil
	}
	email := strings.ToLower(strings.TrimSpace(cfg.BootstrapAdminEmail))
	if email == "" {
		return nil, nil
	}

	existing, err := users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		if existing.Role == models.RoleAdmin {
			return existing, nil
		}
		if err := users.UpdateRole(ctx, existing.ID, models.RoleAdmin); err != nil {
			return nil, err
		}
		existing.Role = models.RoleAdmin
		middleware.Logger.Info("promoted bootstrap admin", slog.String("user_id", existing.ID))
		return existing, nil
	}

	if cfg.BootstrapAdminPassword == "" {
		return nil, fmt.Errorf("BOOTSTRAP_ADMIN_PASSWORD must be set when BOOTSTRAP_ADMIN_EMAIL is")
	}
	name := strings.TrimSpace(cfg.BootstrapAdminName)
	if name == "" {
		name = "Inkwell Admin"
	}
	phone := strings.TrimSpace(cfg.BootstrapAdminPhone)
	if phone == "" {
		phone = defaultAdminPhone
	}

	admin, err := models.NewUser(models.NewUserInput{
		Name:     name,
		Email:    email,
		Phone:    phone,
		Password: cfg.BootstrapAdminPassword,
		Role:     string(models.RoleAdmin),
	})
	if err != nil {
		return nil, err
	}
	if err := users.Create(ctx, admin); err != nil {
		return nil, err
	}
	middleware.Logger.Info("created bootstrap admin", slog.String("user_id", admin.ID), slog.String("email", email))
	return admin, nil
}

func seedIfEmpty(ctx context.Context, db *gorm.DB) error {
	var count int64
	if err := db.WithContext(ctx).Model(&models.User{}).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return nil
	}
	_, err := seed.NewSeeder(db, seed.Options{NumWriters: 3, NumReaders: 3, BlogsPerWriter: 5}).Seed(ctx)
	return err
}
