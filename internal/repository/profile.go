package repository

import (
	"context"
	"errors"
	"time"

	"localmade/internal/cache"
	"localmade/internal/models"
	"localmade/internal/observability"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// profileUpsertColumns are the columns fully overwritten on every upsert.
// Omitted form values arrive as nil and are written as NULL on purpose.
var profileUpsertColumns = []string{
	"full_name", "username", "description", "location",
	"job_role", "avatar_url", "public_profile", "updated_at",
}

// ProfileRepository defines the interface for profile data operations.
type ProfileRepository interface {
	Fetch(ctx context.Context, userID string) (*models.Profile, error)
	Upsert(ctx context.Context, userID string, fields models.ProfileFields) (*models.Profile, error)
	ListPublic(ctx context.Context) ([]models.Profile, error)
}

type profileRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewProfileRepository creates a new profile repository.
func NewProfileRepository(db *gorm.DB) ProfileRepository {
	return &profileRepository{db: db, log: observability.NewRepoLogger("profiles")}
}

// Fetch reads the single profile row for userID. A missing row yields
// models.ErrProfileNotFound, which is a valid outcome distinct from faults.
func (r *profileRepository) Fetch(ctx context.Context, userID string) (*models.Profile, error) {
	var profile models.Profile
	err := r.db.WithContext(ctx).First(&profile, "id = ?", userID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrProfileNotFound
	}
	if err != nil {
		r.log.LogError(ctx, err, "fetch")
		return nil, err
	}
	return &profile, nil
}

// Upsert writes id plus all listed fields and a fresh updated_at; it creates
// the row if absent, else overwrites the listed columns entirely.
func (r *profileRepository) Upsert(ctx context.Context, userID string, fields models.ProfileFields) (*models.Profile, error) {
	profile := models.Profile{
		ID:            userID,
		FullName:      fields.FullName,
		Username:      fields.Username,
		Description:   fields.Description,
		Location:      fields.Location,
		JobRole:       fields.JobRole,
		AvatarURL:     fields.AvatarURL,
		PublicProfile: fields.PublicProfile,
		UpdatedAt:     time.Now().UTC(),
	}

	err := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns(profileUpsertColumns),
	}).Create(&profile).Error
	if err != nil {
		r.log.LogError(ctx, err, "upsert")
		return nil, err
	}

	r.log.LogWrite(ctx, "upsert", map[string]interface{}{"id": userID})
	cache.InvalidateDirectory(ctx)
	return &profile, nil
}

// ListPublic returns all profiles flagged public.
func (r *profileRepository) ListPublic(ctx context.Context) ([]models.Profile, error) {
	var profiles []models.Profile
	err := r.db.WithContext(ctx).
		Where("public_profile = ?", true).
		Order("updated_at DESC").
		Find(&profiles).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_public")
		return nil, err
	}
	return profiles, nil
}
