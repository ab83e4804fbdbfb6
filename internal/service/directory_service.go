package service

import (
	"context"

	"localmade/internal/cache"
	"localmade/internal/models"
	"localmade/internal/observability"
	"localmade/internal/repository"

	"golang.org/x/sync/errgroup"
)

// directoryFanoutLimit bounds the concurrent per-profile post fetches.
const directoryFanoutLimit = 8

// DirectoryEntry is one public profile joined with its posts. PostsError is
// set when that profile's post fetch failed; the entry still appears so one
// broken profile cannot blank the whole directory.
type DirectoryEntry struct {
	Profile    models.Profile `json:"profile"`
	Posts      []models.Post  `json:"posts"`
	PostsError string         `json:"posts_error,omitempty"`
}

// DirectoryService aggregates the public artist directory.
type DirectoryService struct {
	profiles repository.ProfileRepository
	posts    repository.PostRepository
}

// NewDirectoryService creates a new directory service.
func NewDirectoryService(profiles repository.ProfileRepository, posts repository.PostRepository) *DirectoryService {
	return &DirectoryService{profiles: profiles, posts: posts}
}

// ListPublicProfiles returns every profile flagged public, each joined with
// its posts. The per-profile fetches fan out concurrently and the aggregate
// completes once all finish. The result is served cache-aside from Redis;
// mutations invalidate the key.
func (s *DirectoryService) ListPublicProfiles(ctx context.Context) ([]DirectoryEntry, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	var entries []DirectoryEntry
	err := cache.Aside(ctx, cache.DirectoryKey, &entries, cache.DirectoryTTL, func() error {
		built, err := s.build(ctx)
		if err != nil {
			return err
		}
		entries = built
		return nil
	})
	if err != nil {
		return nil, err
	}
	return entries, nil
}

func (s *DirectoryService) build(ctx context.Context) ([]DirectoryEntry, error) {
	profiles, err := s.profiles.ListPublic(ctx)
	if err != nil {
		return nil, err
	}

	entries := make([]DirectoryEntry, len(profiles))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(directoryFanoutLimit)

	for i, profile := range profiles {
		g.Go(func() error {
			posts, err := s.posts.ListByUser(gctx, profile.ID)
			entry := DirectoryEntry{Profile: profile, Posts: posts}
			if err != nil {
				// Annotate instead of failing the aggregate.
				observability.DirectoryFanoutFailures.Inc()
				entry.Posts = nil
				entry.PostsError = "posts unavailable"
			}
			entries[i] = entry
			return nil
		})
	}
	// Join; the closures never return errors.
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return entries, nil
}

// Warm builds the directory once and primes the cache. Used at startup and
// by the seeder; failures are logged, not fatal.
func (s *DirectoryService) Warm(ctx context.Context) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()
	entries, err := s.build(ctx)
	if err != nil {
		observability.GlobalLogger.WarnContext(ctx, "directory warm failed", "error", err.Error())
		return
	}
	_ = cache.SetJSON(ctx, cache.DirectoryKey, entries, cache.DirectoryTTL)
}
