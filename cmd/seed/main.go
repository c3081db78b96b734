// Command main runs the database seeder for Inkwell.
package main

import (
	"context"
	"flag"
	"log"

	"inkwell/internal/config"
	"inkwell/internal/database"
	"inkwell/internal/seed"
)

func main() {
	numWriters := flag.Int("writers", 5, "Number of writer accounts to create")
	numReaders := flag.Int("readers", 10, "Number of reader accounts to create")
	blogsPer := flag.Int("blogs", 8, "Blogs per writer (the admin publishes as many)")
	shouldClean := flag.Bool("clean", true, "Clean database before seeding")
	dryRun := flag.Bool("dry-run", false, "Generate data without writing to the database")
	maxDays := flag.Int("max-days", 90, "Spread blog timestamps over this many days")
	flag.Parse()

	log.Println("🌱 Database Seeder")
	log.Println("==================")
	log.Printf("Target: %d writers, %d readers, %d blogs each, clean=%v\n", *numWriters, *numReaders, *blogsPer, *shouldClean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	ctx := context.Background()
	opts := seed.Options{
		NumWriters:     *numWriters,
		NumReaders:     *numReaders,
		BlogsPerWriter: *blogsPer,
		ShouldClean:    *shouldClean,
		DryRun:         *dryRun,
		MaxDays:        *maxDays,
	}

	var s *seed.Seeder
	if *dryRun {
		s = seed.NewSeeder(nil, opts)
	} else {
		db, err := database.Connect(cfg)
		if err != nil {
			log.Fatalf("Failed to connect to database: %v", err)
		}
		if err := database.ApplySchema(ctx, db, cfg); err != nil {
			log.Fatalf("Failed to apply schema: %v", err)
		}
		s = seed.NewSeeder(db, opts)
	}

	res, err := s.Seed(ctx)
	if err != nil {
		log.Fatalf("❌ Seeding failed: %v", err)
	}

	log.Printf("✅ Seeded %d users and %d blogs. Every account uses the password %q.", len(res.Users), len(res.Blogs), seed.DefaultPassword)
}
