// Package seed provides helpers to create demo data for the application
// database. Intended for development and testing only.
package seed

import (
	"fmt"
	"log"
	"time"

	"localmade/internal/models"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

// Options control how much demo data is created.
type Options struct {
	Artists      int
	PostsPerUser int
	Password     string
}

// Artists creates demo accounts with public profiles and posts. Blob keys
// point at nonexistent objects, which is fine for directory rendering demos.
func Artists(db *gorm.DB, opts Options) error {
	if opts.Artists <= 0 {
		opts.Artists = 12
	}
	if opts.PostsPerUser <= 0 {
		opts.PostsPerUser = 3
	}
	password := opts.Password
	if password == "" {
		password = "localmade-demo"
	}

	gofakeit.Seed(time.Now().UnixNano())

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return fmt.Errorf("hash demo password: %w", err)
	}

	for i := 0; i < opts.Artists; i++ {
		id := uuid.NewString()
		account := models.Account{
			ID:           id,
			Email:        gofakeit.Email(),
			PasswordHash: string(hash),
		}
		if err := db.Create(&account).Error; err != nil {
			return fmt.Errorf("seed account: %w", err)
		}

		fullName := gofakeit.Name()
		username := gofakeit.Username()
		description := gofakeit.Sentence(12)
		location := gofakeit.City()
		jobRole := gofakeit.JobTitle()
		profile := models.Profile{
			ID:            id,
			FullName:      &fullName,
			Username:      &username,
			Description:   &description,
			Location:      &location,
			JobRole:       &jobRole,
			PublicProfile: true,
			UpdatedAt:     time.Now().UTC(),
		}
		if err := db.Create(&profile).Error; err != nil {
			return fmt.Errorf("seed profile: %w", err)
		}

		for j := 0; j < opts.PostsPerUser; j++ {
			postID := uuid.NewString()
			post := models.Post{
				ID:        postID,
				UserID:    id,
				ImageURL:  fmt.Sprintf("%s/%s.jpg", id, postID),
				Caption:   gofakeit.Sentence(6),
				CreatedAt: time.Now().UTC().Add(-time.Duration(gofakeit.Number(1, 72)) * time.Hour),
			}
			if err := db.Create(&post).Error; err != nil {
				return fmt.Errorf("seed post: %w", err)
			}
		}
	}

	log.Printf("seeded %d artists with %d posts each", opts.Artists, opts.PostsPerUser)
	return nil
}
