// Package main provides role management utilities for Inkwell.
package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"inkwell/internal/cache"
	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/models"
	"inkwell/internal/repository"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Println("Usage:")
		fmt.Println("  go run ./cmd/admin set-role <email|phone> <reader|writer|admin>  - Change a user's role")
		fmt.Println("  go run ./cmd/admin list <writer|admin>                          - List users holding a role")
		os.Exit(1)
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}
	// Connect the cache so role changes drop the cached user.
	if rdb := cache.InitRedis(cfg.RedisURL); rdb != nil {
		defer func() { _ = rdb.Close() }()
	}
	users := repository.NewUserRepository(db)
	ctx := context.Background()

	switch command := os.Args[1]; command {
	case "set-role":
		if len(os.Args) < 4 {
			fmt.Println("Usage: go run ./cmd/admin set-role <email|phone> <reader|writer|admin>")
			os.Exit(1)
		}
		setRole(ctx, users, os.Args[2], os.Args[3])

	case "list":
		role := "admin"
		if len(os.Args) > 2 {
			role = os.Args[2]
		}
		listRole(ctx, users, role)

	default:
		fmt.Printf("Unknown command: %s\n", command)
		os.Exit(1)
	}
}

func setRole(ctx context.Context, users repository.UserRepository, identifier, roleName string) {
	role, err := models.ParseRole(roleName)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	user, err := users.GetByIdentifier(ctx, identifier)
	if err != nil {
		log.Fatalf("Database error: %v", err)
	}
	if user == nil {
		fmt.Printf("User %s not found\n", identifier)
		os.Exit(1)
	}

	if user.Role == role {
		fmt.Printf("User %s (%s) already has role %s\n", user.Name, user.Email, role)
		return
	}

	if err := users.UpdateRole(ctx, user.ID, role); err != nil {
		log.Fatalf("Failed to update user: %v", err)
	}

	fmt.Printf("✅ %s (%s) is now %s\n", user.Name, user.Email, role)
}

func listRole(ctx context.Context, users repository.UserRepository, roleName string) {
	role, err := models.ParseRole(roleName)
	if err != nil {
		log.Fatalf("Invalid role: %v", err)
	}

	list, err := users.ListByRoles(ctx, role)
	if err != nil {
		log.Fatalf("Failed to fetch users: %v", err)
	}

	if len(list) == 0 {
		fmt.Printf("No users with role %s\n", role)
		return
	}

	fmt.Printf("\n📋 Users with role %s:\n", role)
	fmt.Println("─────────────────────────────────────")
	for _, u := range list {
		fmt.Printf("ID: %s | Name: %s | Email: %s | Blogs: %d\n", u.ID, u.Name, u.Email, u.BlogCount)
	}
	fmt.Println("─────────────────────────────────────")
}
