// Command main runs the database seeder for Grapevine.
package main

import (
	"context"
	"flag"
	"log"

	"grapevine/internal/bootstrap"
	"grapevine/internal/config"
	"grapevine/internal/seed"
)

func main() {
	numUsers := flag.Int("users", 25, "Number of users to create")
	numGossips := flag.Int("gossips", 100, "Number of gossips to create")
	clean := flag.Bool("clean", true, "Clean database before seeding")
	flag.Parse()

	log.Println("Database Seeder")
	log.Printf("Target: %d users, %d gossips, clean=%v", *numUsers, *numGossips, *clean)

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, _, err := bootstrap.InitRuntime(cfg, bootstrap.Options{EnsureAdmin: true})
	if err != nil {
		log.Fatalf("Failed to initialize runtime: %v", err)
	}

	s := seed.NewSeeder(db)
	if err := s.Run(context.Background(), seed.Options{
		NumUsers:   *numUsers,
		NumGossips: *numGossips,
		Clean:      *clean,
	}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Println("Seeding complete")
}
