package embedder

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Cache provides in-memory LRU caching of vectors by content hash
type Cache struct {
	cache *lru.Cache[string, []float32]
}

// NewCache creates a new vector cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](maxLen)
	if err != nil {
		cache, _ = lru.New[string, []float32](DefaultCacheSize)
	}
	return &Cache{
		cache: cache,
	}
}

// Get returns a copy of the cached vector so callers cannot mutate it
func (c *Cache) Get(hash string) ([]float32, bool) {
	vec, ok := c.cache.Get(hash)
	if !ok {
		return nil, false
	}
	out := make([]float32, len(vec))
	copy(out, vec)
	return out, true
}

// Set stores a copy of vec
func (c *Cache) Set(hash string, vec []float32) {
	stored := make([]float32, len(vec))
	copy(stored, vec)
	c.cache.Add(hash, stored)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// CachedEmbedder serves repeated texts from a Cache and forwards the rest,
// de-duplicated, to the wrapped embedder in one call
type CachedEmbedder struct {
	next  Embedder
	cache *Cache
}

// WithCache wraps next in an LRU cache holding up to size vectors
func WithCache(next Embedder, size int) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: NewCache(size)}
}

// Embed implements Embedder
func (c *CachedEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	hashes := make([]string, len(texts))

	missIndex := make(map[string]int)
	misses := make([]string, 0)
	for i, text := range texts {
		hashes[i] = ComputeHash(text)
		if vec, ok := c.cache.Get(hashes[i]); ok {
			out[i] = vec
			continue
		}
		if _, queued := missIndex[hashes[i]]; !queued {
			missIndex[hashes[i]] = len(misses)
			misses = append(misses, text)
		}
	}

	if len(misses) > 0 {
		vectors, err := c.next.Embed(ctx, misses)
		if err != nil {
			return nil, err
		}
		if len(vectors) != len(misses) {
			return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrProviderFailed, len(vectors), len(misses))
		}
		for i := range texts {
			if out[i] != nil {
				continue
			}
			vec := vectors[missIndex[hashes[i]]]
			c.cache.Set(hashes[i], vec)
			cp := make([]float32, len(vec))
			copy(cp, vec)
			out[i] = cp
		}
	}

	return out, nil
}

// Info implements Describer
func (c *CachedEmbedder) Info() Info {
	return Describe(c.next)
}

// Close closes the wrapped embedder
func (c *CachedEmbedder) Close() error {
	c.cache.Clear()
	return Close(c.next)
}
