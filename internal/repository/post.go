package repository

import (
	"context"
	"errors"

	"localmade/internal/cache"
	"localmade/internal/models"
	"localmade/internal/observability"

	"gorm.io/gorm"
)

// PostRepository defines the interface for post row operations. Blob
// lifecycle coordination lives in service.PostService.
type PostRepository interface {
	Create(ctx context.Context, post *models.Post) error
	GetOwned(ctx context.Context, postID, userID string) (*models.Post, error)
	ListByUser(ctx context.Context, userID string) ([]models.Post, error)
	Delete(ctx context.Context, postID, userID string) error
}

type postRepository struct {
	db  *gorm.DB
	log *observability.RepoLogger
}

// NewPostRepository creates a new post repository.
func NewPostRepository(db *gorm.DB) PostRepository {
	return &postRepository{db: db, log: observability.NewRepoLogger("posts")}
}

func (r *postRepository) Create(ctx context.Context, post *models.Post) error {
	if err := r.db.WithContext(ctx).Create(post).Error; err != nil {
		r.log.LogError(ctx, err, "create")
		return err
	}
	r.log.LogWrite(ctx, "create", map[string]interface{}{"id": post.ID, "user_id": post.UserID})
	cache.InvalidateDirectory(ctx)
	return nil
}

// GetOwned resolves a post filtered by both id and owner. A row owned by
// someone else is indistinguishable from an absent one.
func (r *postRepository) GetOwned(ctx context.Context, postID, userID string) (*models.Post, error) {
	var post models.Post
	err := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", postID, userID).
		First(&post).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, models.ErrPostNotFound
	}
	if err != nil {
		r.log.LogError(ctx, err, "get_owned")
		return nil, err
	}
	return &post, nil
}

func (r *postRepository) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	var posts []models.Post
	err := r.db.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&posts).Error
	if err != nil {
		r.log.LogError(ctx, err, "list_by_user")
		return nil, err
	}
	return posts, nil
}

// Delete removes the row filtered by id AND user_id so a guessed post id
// cannot delete another user's post.
func (r *postRepository) Delete(ctx context.Context, postID, userID string) error {
	result := r.db.WithContext(ctx).
		Where("id = ? AND user_id = ?", postID, userID).
		Delete(&models.Post{})
	if result.Error != nil {
		r.log.LogError(ctx, result.Error, "delete")
		return result.Error
	}
	if result.RowsAffected == 0 {
		return models.ErrPostNotFound
	}
	r.log.LogWrite(ctx, "delete", map[string]interface{}{"id": postID, "user_id": userID})
	cache.InvalidateDirectory(ctx)
	return nil
}
