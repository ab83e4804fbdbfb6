package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"localmade/internal/models"
	"localmade/internal/observability"
	"localmade/internal/repository"
	"localmade/internal/storage"

	"github.com/google/uuid"
)

// opTimeout bounds every remote operation so a hung backend call cannot hang
// a caller's loading state indefinitely.
const opTimeout = 15 * time.Second

// PostService coordinates post rows with their image blobs. The blob upload
// strictly precedes the row insert; there is no cross-service transaction,
// so partial failures are handled with compensating actions.
type PostService struct {
	posts repository.PostRepository
	store storage.Store
}

// NewPostService creates a new post service.
func NewPostService(posts repository.PostRepository, store storage.Store) *PostService {
	return &PostService{posts: posts, store: store}
}

// Create validates and normalizes the image, uploads the blob, then inserts
// the row referencing it. One UUID serves as both the row id and the blob key
// so the key is collision-free before the row exists. If the insert fails,
// the uploaded blob is removed again.
func (s *PostService) Create(ctx context.Context, userID string, imageBytes []byte, imageExt, caption string) (*models.Post, error) {
	if userID == "" {
		return nil, models.NewValidationError("Invalid user")
	}
	if strings.TrimSpace(caption) == "" {
		return nil, models.NewValidationError("A caption is required")
	}

	img, err := normalizeImage(imageBytes, imageExt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	postID := uuid.NewString()
	blobKey := fmt.Sprintf("%s/%s.%s", userID, postID, img.Ext)

	if err := s.store.Upload(ctx, storage.BucketPosts, blobKey, img.JPEG); err != nil {
		return nil, models.NewInternalError(err)
	}
	if err := s.store.Upload(ctx, storage.BucketPosts, webpVariantKey(blobKey), img.WebP); err != nil {
		s.removeRenditions(ctx, blobKey)
		return nil, models.NewInternalError(err)
	}

	post := &models.Post{
		ID:        postID,
		UserID:    userID,
		ImageURL:  blobKey,
		Caption:   caption,
		CreatedAt: time.Now().UTC(),
	}
	if err := s.posts.Create(ctx, post); err != nil {
		// Compensate: the row never existed, so the blobs must not either.
		s.removeRenditions(ctx, blobKey)
		return nil, models.NewInternalError(err)
	}

	return post, nil
}

// webpVariantKey maps a stored JPEG key to its WebP rendition key.
func webpVariantKey(jpegKey string) string {
	return strings.TrimSuffix(jpegKey, ".jpg") + ".webp"
}

func (s *PostService) removeRenditions(ctx context.Context, jpegKey string) {
	if err := s.store.Remove(ctx, storage.BucketPosts, jpegKey, webpVariantKey(jpegKey)); err != nil {
		observability.GlobalLogger.ErrorContext(ctx, "orphaned blob cleanup failed",
			slog.String("bucket", storage.BucketPosts),
			slog.String("key", jpegKey),
			slog.String("error", err.Error()),
		)
	}
}

// ListByUser returns the user's posts, newest first.
func (s *PostService) ListByUser(ctx context.Context, userID string) ([]models.Post, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	return s.posts.ListByUser(ctx, userID)
}

// Delete removes the post's blob and row. The blob goes first; if its removal
// fails the row delete is aborted so the two stores cannot silently diverge
// (a dangling blob with no row is the acceptable direction, a row with no
// blob is not).
func (s *PostService) Delete(ctx context.Context, postID, userID string) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	post, err := s.posts.GetOwned(ctx, postID, userID)
	if err != nil {
		return err
	}

	if err := s.store.Remove(ctx, storage.BucketPosts, post.ImageURL, webpVariantKey(post.ImageURL)); err != nil && !errors.Is(err, storage.ErrNotFound) {
		return models.NewInternalError(fmt.Errorf("blob removal failed, row kept: %w", err))
	}

	return s.posts.Delete(ctx, postID, userID)
}

// ResolveImage materializes a displayable image by downloading the blob.
// This is read-time work, not a stored attribute; callers cache the result
// themselves if they need to.
func (s *PostService) ResolveImage(ctx context.Context, blobKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.store.Download(ctx, storage.BucketPosts, blobKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewNotFoundError("Image", blobKey)
		}
		return nil, models.NewInternalError(err)
	}
	return data, nil
}
