package store

import (
	"context"
	"time"

	"github.com/FocuswithJustin/ReformedChapter/core/resource"
	"github.com/FocuswithJustin/ReformedChapter/internal/cache"
)

const snapshotKey = "resources"

// CachedStore serves List from a TTL snapshot of the wrapped store. Writes
// that change the resource table drop the snapshot.
type CachedStore struct {
	Store
	snapshot *cache.TTLCache[string, []resource.Resource]
}

// NewCachedStore wraps s with a snapshot cache of the given TTL.
func NewCachedStore(s Store, ttl time.Duration) *CachedStore {
	return &CachedStore{
		Store:    s,
		snapshot: cache.New[string, []resource.Resource](ttl),
	}
}

// List returns the cached snapshot, loading it once per TTL. Callers must
// not modify the returned slice.
func (c *CachedStore) List(ctx context.Context) ([]resource.Resource, error) {
	return c.snapshot.GetOrLoad(snapshotKey, func() ([]resource.Resource, error) {
		return c.Store.List(ctx)
	})
}

// Count answers from the snapshot when one is cached.
func (c *CachedStore) Count(ctx context.Context) (int, error) {
	if rs, ok := c.snapshot.Get(snapshotKey); ok {
		return len(rs), nil
	}
	return c.Store.Count(ctx)
}

// Insert writes through and invalidates the snapshot.
func (c *CachedStore) Insert(ctx context.Context, rs []resource.Resource) (int, error) {
	n, err := c.Store.Insert(ctx, rs)
	if n > 0 {
		c.Invalidate()
	}
	return n, err
}

// ApproveSubmission writes through and invalidates the snapshot.
func (c *CachedStore) ApproveSubmission(ctx context.Context, id string) (*Submission, error) {
	sub, err := c.Store.ApproveSubmission(ctx, id)
	if err == nil {
		c.Invalidate()
	}
	return sub, err
}

// Invalidate drops the cached snapshot.
func (c *CachedStore) Invalidate() {
	c.snapshot.Invalidate()
}
