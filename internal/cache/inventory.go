package cache

import (
	"context"
	"time"
)

const (
	// DirectoryKey caches the full public directory aggregate.
	DirectoryKey = "directory:public"
)

const (
	// DirectoryTTL is short: the listing is cheap to rebuild and mutations
	// invalidate it anyway.
	DirectoryTTL = 1 * time.Minute
)

// Invalidate removes a key; a nil client makes this a no-op.
func Invalidate(ctx context.Context, key string) {
	if client != nil {
		client.Del(ctx, key)
	}
}

// InvalidateDirectory drops the cached public directory aggregate.
// Called after any profile or post mutation.
func InvalidateDirectory(ctx context.Context) {
	Invalidate(ctx, DirectoryKey)
}
