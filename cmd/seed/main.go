// Command seed populates the database with demo artists and posts.
package main

import (
	"context"
	"flag"
	"log"

	"localmade/internal/cache"
	"localmade/internal/config"
	"localmade/internal/database"
	"localmade/internal/repository"
	"localmade/internal/seed"
	"localmade/internal/service"
)

func main() {
	artists := flag.Int("artists", 12, "number of demo artists to create")
	posts := flag.Int("posts", 3, "posts per artist")
	flag.Parse()

	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Connect(cfg)
	if err != nil {
		log.Fatalf("Failed to connect to database: %v", err)
	}

	if err := seed.Artists(db, seed.Options{Artists: *artists, PostsPerUser: *posts}); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}

	// Prime the directory cache so the first page view after seeding is warm.
	cache.InitRedis(cfg.RedisURL)
	directory := service.NewDirectoryService(
		repository.NewProfileRepository(db),
		repository.NewPostRepository(db),
	)
	directory.Warm(context.Background())
}
