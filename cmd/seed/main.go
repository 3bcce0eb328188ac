// Command main seeds FemCircle demo data.
package main

import (
	"context"
	"flag"
	"log"

	"femcircle/internal/config"
	"femcircle/internal/database"
	"femcircle/internal/repository"
	"femcircle/internal/seed"
)

func main() {
	fillers := flag.Int("listings", 0, "Number of generated filler listings to add")
	shouldClean := flag.Bool("clean", false, "Delete all users and listings before seeding")
	randSeed := flag.Int64("rand-seed", 0, "Seed for generated content (0 = random)")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	ctx := context.Background()
	if *shouldClean {
		if err := seed.Reset(ctx, db); err != nil {
			log.Fatalf("Cleanup failed: %v", err)
		}
	}

	s := seed.NewSeeder(repository.NewUserRepository(db), repository.NewProductRepository(db), seed.Options{
		FillerListings: *fillers,
		RandSeed:       *randSeed,
	})
	res, err := s.Demo(ctx)
	if err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	log.Printf("Seeded %d users and %d listings", res.Users, res.Listings)
	if res.Users > 0 {
		log.Printf("Demo logins: admin / %s, priya and ananya / %s", seed.AdminPassword, seed.MemberPassword)
	}
}
