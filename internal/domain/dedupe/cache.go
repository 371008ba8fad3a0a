package dedupe

import (
	"context"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
)

// Cache is the bounded, windowed record of recently kept fingerprints.
type Cache interface {
	// SeenAndRecord atomically checks if key was seen within the window and
	// records it if not. Returns true if key was already seen.
	SeenAndRecord(ctx context.Context, key string) (bool, error)

	// Unrecord removes a key so the item can be submitted again. Used when a
	// kept item was not processed to completion.
	Unrecord(ctx context.Context, key string) error

	// Size returns the number of keys currently held.
	Size() int64
}

// memoryCache keeps fingerprints in an expirable LRU: entries leave the window
// after the configured TTL or when capacity forces the oldest out.
type memoryCache struct {
	mu      sync.Mutex
	lru     *expirable.LRU[string, struct{}]
	maxSize int
	window  time.Duration
}

// NewMemoryCache creates an in-process fingerprint cache.
func NewMemoryCache(opts ...Option) Cache {
	c := &memoryCache{
		maxSize: defaultMaxSize,
		window:  defaultWindow,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.lru = expirable.NewLRU[string, struct{}](c.maxSize, nil, c.window)
	return c
}

func (c *memoryCache) SeenAndRecord(_ context.Context, key string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.lru.Peek(key); ok {
		return true, nil
	}
	c.lru.Add(key, struct{}{})
	return false, nil
}

func (c *memoryCache) Unrecord(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lru.Remove(key)
	return nil
}

func (c *memoryCache) Size() int64 {
	return int64(c.lru.Len())
}
