package service

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/png"
	"strings"
	"sync"
	"testing"

	"localmade/internal/models"
	"localmade/internal/storage"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// postRepoStub is an in-memory repository.PostRepository. onCreate lets tests
// observe state at insert time, e.g. to prove the blob already exists.
type postRepoStub struct {
	mu        sync.Mutex
	posts     map[string]models.Post
	createErr error
	listErr   map[string]error
	onCreate  func(post *models.Post)
}

func newPostRepoStub() *postRepoStub {
	return &postRepoStub{posts: make(map[string]models.Post), listErr: make(map[string]error)}
}

func (s *postRepoStub) Create(_ context.Context, post *models.Post) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.onCreate != nil {
		s.onCreate(post)
	}
	if s.createErr != nil {
		return s.createErr
	}
	s.posts[post.ID] = *post
	return nil
}

func (s *postRepoStub) GetOwned(_ context.Context, postID, userID string) (*models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok || post.UserID != userID {
		return nil, models.ErrPostNotFound
	}
	return &post, nil
}

func (s *postRepoStub) ListByUser(_ context.Context, userID string) ([]models.Post, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.listErr[userID]; err != nil {
		return nil, err
	}
	var out []models.Post
	for _, post := range s.posts {
		if post.UserID == userID {
			out = append(out, post)
		}
	}
	return out, nil
}

func (s *postRepoStub) Delete(_ context.Context, postID, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	post, ok := s.posts[postID]
	if !ok || post.UserID != userID {
		return models.ErrPostNotFound
	}
	delete(s.posts, postID)
	return nil
}

// removeFailStore delegates to a real store but fails blob removal.
type removeFailStore struct {
	storage.Store
}

func (s *removeFailStore) Remove(context.Context, string, ...string) error {
	return errors.New("storage backend down")
}

func pngBytes(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, image.NewRGBA(image.Rect(0, 0, 8, 8))))
	return buf.Bytes()
}

func newTestStore(t *testing.T) storage.Store {
	t.Helper()
	store, err := storage.NewDiskStore(t.TempDir())
	require.NoError(t, err)
	return store
}

func TestPostService_Create(t *testing.T) {
	repo := newPostRepoStub()
	store := newTestStore(t)
	svc := NewPostService(repo, store)
	ctx := context.Background()

	// The blob must be downloadable at the moment the row is inserted.
	repo.onCreate = func(post *models.Post) {
		_, err := store.Download(ctx, storage.BucketPosts, post.ImageURL)
		assert.NoError(t, err)
	}

	post, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.NoError(t, err)
	assert.Equal(t, "sunset", post.Caption)
	assert.Equal(t, "user-1", post.UserID)
	assert.True(t, strings.HasPrefix(post.ImageURL, "user-1/"))
	assert.True(t, strings.HasSuffix(post.ImageURL, ".jpg"))

	data, err := store.Download(ctx, storage.BucketPosts, post.ImageURL)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	// The WebP rendition is stored alongside the JPEG master.
	webpData, err := store.Download(ctx, storage.BucketPosts, webpVariantKey(post.ImageURL))
	require.NoError(t, err)
	assert.NotEmpty(t, webpData)
}

func TestPostService_Create_Validation(t *testing.T) {
	svc := NewPostService(newPostRepoStub(), newTestStore(t))
	ctx := context.Background()

	_, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "   ")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.Create(ctx, "", pngBytes(t), "png", "sunset")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)

	_, err = svc.Create(ctx, "user-1", []byte("not an image"), "png", "sunset")
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "VALIDATION_ERROR", appErr.Code)
}

func TestPostService_Create_InsertFailureRemovesBlob(t *testing.T) {
	repo := newPostRepoStub()
	repo.createErr = errors.New("insert failed")
	store := newTestStore(t)
	svc := NewPostService(repo, store)
	ctx := context.Background()

	var uploadedKey string
	repo.onCreate = func(post *models.Post) { uploadedKey = post.ImageURL }

	_, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.Error(t, err)
	require.NotEmpty(t, uploadedKey)

	_, err = store.Download(ctx, storage.BucketPosts, uploadedKey)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Download(ctx, storage.BucketPosts, webpVariantKey(uploadedKey))
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPostService_Delete(t *testing.T) {
	repo := newPostRepoStub()
	store := newTestStore(t)
	svc := NewPostService(repo, store)
	ctx := context.Background()

	post, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, post.ID, "user-1"))

	_, err = store.Download(ctx, storage.BucketPosts, post.ImageURL)
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = store.Download(ctx, storage.BucketPosts, webpVariantKey(post.ImageURL))
	assert.ErrorIs(t, err, storage.ErrNotFound)

	posts, err := svc.ListByUser(ctx, "user-1")
	require.NoError(t, err)
	assert.Empty(t, posts)
}

func TestPostService_Delete_NotOwned(t *testing.T) {
	repo := newPostRepoStub()
	svc := NewPostService(repo, newTestStore(t))
	ctx := context.Background()

	post, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.NoError(t, err)

	err = svc.Delete(ctx, post.ID, "someone-else")
	assert.ErrorIs(t, err, models.ErrPostNotFound)
}

func TestPostService_Delete_BlobRemovalFailureKeepsRow(t *testing.T) {
	repo := newPostRepoStub()
	store := newTestStore(t)
	svc := NewPostService(repo, store)
	ctx := context.Background()

	post, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.NoError(t, err)

	broken := NewPostService(repo, &removeFailStore{Store: store})
	err = broken.Delete(ctx, post.ID, "user-1")
	require.Error(t, err)

	// The row survives so nothing references a half-deleted post.
	posts, lerr := repo.ListByUser(ctx, "user-1")
	require.NoError(t, lerr)
	assert.Len(t, posts, 1)
}

func TestPostService_ResolveImage(t *testing.T) {
	repo := newPostRepoStub()
	store := newTestStore(t)
	svc := NewPostService(repo, store)
	ctx := context.Background()

	post, err := svc.Create(ctx, "user-1", pngBytes(t), "png", "sunset")
	require.NoError(t, err)

	data, err := svc.ResolveImage(ctx, post.ImageURL)
	require.NoError(t, err)
	assert.NotEmpty(t, data)

	_, err = svc.ResolveImage(ctx, "user-1/unknown.jpg")
	var appErr *models.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, "NOT_FOUND", appErr.Code)
}
