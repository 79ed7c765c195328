package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/davidwtbuxton/pastebin/pkg/paste"
)

// CachedStore wraps an EntityStore with a read-through cache for paste
// hydration: an in-process expirable LRU in front of an optional Redis layer.
// Search result pages hydrate the same hot pastes repeatedly, which this keeps
// off the database. Writes invalidate both layers.
type CachedStore struct {
	store EntityStore
	l1    *lru.LRU[int64, *paste.Paste]
	redis *redis.Client
	ttl   time.Duration
}

// NewCachedStore creates a caching layer over the given store. The redis
// client may be nil, in which case only the in-process cache is used.
func NewCachedStore(store EntityStore, size int, ttl time.Duration, rdb *redis.Client) *CachedStore {
	return &CachedStore{
		store: store,
		l1:    lru.NewLRU[int64, *paste.Paste](size, nil, ttl),
		redis: rdb,
		ttl:   ttl,
	}
}

func cacheKey(id int64) string {
	return fmt.Sprintf("paste:%d", id)
}

// GetPaste implements PasteReader with read-through caching. Lookups that
// miss everywhere fall through to the underlying store; ErrNotFound is not
// cached, so a paste created after a miss is visible immediately.
func (c *CachedStore) GetPaste(ctx context.Context, id int64) (*paste.Paste, error) {
	if p, ok := c.l1.Get(id); ok {
		return p, nil
	}

	if c.redis != nil {
		cached, err := c.redis.Get(ctx, cacheKey(id)).Result()
		if err == nil {
			var p paste.Paste
			if err := json.Unmarshal([]byte(cached), &p); err == nil {
				c.l1.Add(id, &p)
				return &p, nil
			}
			// Corrupt entry, drop it and reload from the store.
			c.redis.Del(ctx, cacheKey(id))
		}
	}

	p, err := c.store.GetPaste(ctx, id)
	if err != nil {
		return nil, err
	}

	c.l1.Add(id, p)
	if c.redis != nil {
		if data, err := json.Marshal(p); err == nil {
			c.redis.Set(ctx, cacheKey(id), data, c.ttl)
		}
	}
	return p, nil
}

// PutPaste implements PasteWriter, invalidating cached copies.
func (c *CachedStore) PutPaste(ctx context.Context, p *paste.Paste) error {
	if err := c.store.PutPaste(ctx, p); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

// CreatePasteWithFiles implements PasteWriter, invalidating cached copies.
func (c *CachedStore) CreatePasteWithFiles(ctx context.Context, p *paste.Paste, files []NewFile) error {
	if err := c.store.CreatePasteWithFiles(ctx, p, files); err != nil {
		return err
	}
	c.invalidate(ctx, p.ID)
	return nil
}

// ScanPastes implements Scanner by delegating to the underlying store. Scans
// bypass the cache: the reconciliation jobs must see the authoritative rows.
func (c *CachedStore) ScanPastes(ctx context.Context, cursor string, limit int) ([]*paste.Paste, string, error) {
	return c.store.ScanPastes(ctx, cursor, limit)
}

// ScanPeelings implements Scanner by delegating to the underlying store.
func (c *CachedStore) ScanPeelings(ctx context.Context, cursor string, limit int) ([]*Peeling, string, error) {
	return c.store.ScanPeelings(ctx, cursor, limit)
}

func (c *CachedStore) invalidate(ctx context.Context, id int64) {
	c.l1.Remove(id)
	if c.redis != nil {
		c.redis.Del(ctx, cacheKey(id))
	}
}
