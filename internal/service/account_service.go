package service

import (
	"context"
	"errors"
	"sync"

	"localmade/internal/models"
	"localmade/internal/repository"
	"localmade/internal/storage"

	"golang.org/x/sync/errgroup"
)

// ActionOutcome classifies the result of an account mutation. Handlers and
// clients decide how to render it; nothing in this layer assumes a modal.
type ActionOutcome string

const (
	OutcomeOK     ActionOutcome = "ok"
	OutcomeFailed ActionOutcome = "failed"
)

// ActionStatus is the typed result of an account mutation. Posts carries the
// refreshed list after post mutations so the view reflects backend state.
type ActionStatus struct {
	Outcome ActionOutcome `json:"outcome"`
	Message string        `json:"message"`
	Posts   []models.Post `json:"posts,omitempty"`
}

// AccountState is the hydrated account screen: editable profile fields and
// the post list. A missing profile hydrates blank fields, never an error.
type AccountState struct {
	Profile models.ProfileFields `json:"profile"`
	Posts   []models.Post        `json:"posts"`
}

// AccountService orchestrates the profile and post repositories behind the
// account screen. One mutation per user may be in flight at a time; a second
// is rejected rather than queued.
type AccountService struct {
	profiles repository.ProfileRepository
	posts    *PostService
	store    storage.Store

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewAccountService creates a new account service.
func NewAccountService(profiles repository.ProfileRepository, posts *PostService, store storage.Store) *AccountService {
	return &AccountService{
		profiles: profiles,
		posts:    posts,
		store:    store,
		inFlight: make(map[string]struct{}),
	}
}

// acquire marks the user's mutation slot. Release must run on every path so
// a failed action never leaves the account stuck in-flight.
func (s *AccountService) acquire(userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, busy := s.inFlight[userID]; busy {
		return models.ErrActionInFlight
	}
	s.inFlight[userID] = struct{}{}
	return nil
}

func (s *AccountService) release(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.inFlight, userID)
}

// Hydrate loads the profile and post list concurrently.
func (s *AccountService) Hydrate(ctx context.Context, userID string) (*AccountState, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	state := &AccountState{}
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		profile, err := s.profiles.Fetch(gctx, userID)
		if errors.Is(err, models.ErrProfileNotFound) {
			return nil // no row yet: leave the fields blank
		}
		if err != nil {
			return err
		}
		state.Profile = models.ProfileFields{
			FullName:      profile.FullName,
			Username:      profile.Username,
			Description:   profile.Description,
			Location:      profile.Location,
			JobRole:       profile.JobRole,
			AvatarURL:     profile.AvatarURL,
			PublicProfile: profile.PublicProfile,
		}
		return nil
	})

	g.Go(func() error {
		posts, err := s.posts.ListByUser(gctx, userID)
		if err != nil {
			return err
		}
		state.Posts = posts
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return state, nil
}

// SubmitProfile upserts the profile with the caller's current field values.
func (s *AccountService) SubmitProfile(ctx context.Context, userID string, fields models.ProfileFields) (*ActionStatus, error) {
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	if _, err := s.profiles.Upsert(ctx, userID, fields); err != nil {
		return &ActionStatus{Outcome: OutcomeFailed, Message: "Error updating the data!"}, nil
	}
	return &ActionStatus{Outcome: OutcomeOK, Message: "Profile updated!"}, nil
}

// SubmitPost creates a post and returns the refreshed post list.
func (s *AccountService) SubmitPost(ctx context.Context, userID string, imageBytes []byte, imageExt, caption string) (*ActionStatus, error) {
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	if _, err := s.posts.Create(ctx, userID, imageBytes, imageExt, caption); err != nil {
		var appErr *models.AppError
		if errors.As(err, &appErr) && appErr.Code == "VALIDATION_ERROR" {
			return nil, err
		}
		return s.withRefreshedPosts(ctx, userID, &ActionStatus{
			Outcome: OutcomeFailed, Message: "Error uploading post!",
		}), nil
	}
	return s.withRefreshedPosts(ctx, userID, &ActionStatus{
		Outcome: OutcomeOK, Message: "Post uploaded successfully!",
	}), nil
}

// DeletePost deletes a post and returns the refreshed post list.
func (s *AccountService) DeletePost(ctx context.Context, userID, postID string) (*ActionStatus, error) {
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	if err := s.posts.Delete(ctx, postID, userID); err != nil {
		if errors.Is(err, models.ErrPostNotFound) {
			return nil, err
		}
		return s.withRefreshedPosts(ctx, userID, &ActionStatus{
			Outcome: OutcomeFailed, Message: "Error deleting post!",
		}), nil
	}
	return s.withRefreshedPosts(ctx, userID, &ActionStatus{
		Outcome: OutcomeOK, Message: "Post deleted.",
	}), nil
}

// SubmitAvatar uploads an avatar blob and writes its key into the profile,
// preserving the other profile fields as currently stored.
func (s *AccountService) SubmitAvatar(ctx context.Context, userID string, imageBytes []byte, imageExt string) (*ActionStatus, error) {
	if err := s.acquire(userID); err != nil {
		return nil, err
	}
	defer s.release(userID)

	img, err := normalizeImage(imageBytes, imageExt)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	key := userID + "/avatar." + img.Ext
	if err := s.store.Upload(ctx, storage.BucketAvatars, key, img.JPEG); err != nil {
		return &ActionStatus{Outcome: OutcomeFailed, Message: "Error uploading avatar!"}, nil
	}
	if err := s.store.Upload(ctx, storage.BucketAvatars, webpVariantKey(key), img.WebP); err != nil {
		return &ActionStatus{Outcome: OutcomeFailed, Message: "Error uploading avatar!"}, nil
	}

	// The upsert overwrites every column, so the current fields must be read
	// back first. A missing row means a fresh profile; a read fault must not
	// proceed, or the upsert would null out fields that still exist.
	fields := models.ProfileFields{AvatarURL: &key}
	profile, fetchErr := s.profiles.Fetch(ctx, userID)
	switch {
	case fetchErr == nil:
		fields = models.ProfileFields{
			FullName:      profile.FullName,
			Username:      profile.Username,
			Description:   profile.Description,
			Location:      profile.Location,
			JobRole:       profile.JobRole,
			AvatarURL:     &key,
			PublicProfile: profile.PublicProfile,
		}
	case errors.Is(fetchErr, models.ErrProfileNotFound):
		// no row yet: write the avatar into an otherwise blank profile
	default:
		return &ActionStatus{Outcome: OutcomeFailed, Message: "Error updating the data!"}, nil
	}
	if _, err := s.profiles.Upsert(ctx, userID, fields); err != nil {
		return &ActionStatus{Outcome: OutcomeFailed, Message: "Error updating the data!"}, nil
	}
	return &ActionStatus{Outcome: OutcomeOK, Message: "Profile updated!"}, nil
}

// ResolveAvatar downloads an avatar blob for display.
func (s *AccountService) ResolveAvatar(ctx context.Context, blobKey string) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	data, err := s.store.Download(ctx, storage.BucketAvatars, blobKey)
	if err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return nil, models.NewNotFoundError("Avatar", blobKey)
		}
		return nil, models.NewInternalError(err)
	}
	return data, nil
}

func (s *AccountService) withRefreshedPosts(ctx context.Context, userID string, status *ActionStatus) *ActionStatus {
	if posts, err := s.posts.ListByUser(ctx, userID); err == nil {
		status.Posts = posts
	}
	return status
}
