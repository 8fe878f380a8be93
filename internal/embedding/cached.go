package embedding

import (
	"container/list"
	"context"
	"fmt"
	"sync"
)

// CachedProvider wraps a Provider with an LRU cache keyed by literal text.
// Repeated embeddings of identical text (common when the same passage is
// re-indexed) skip the network round trip. This is a transparent cost
// optimization, distinct from the indexer's session dedup policy.
type CachedProvider struct {
	inner    Provider
	capacity int

	mu    sync.Mutex
	cache map[string]*list.Element
	lru   *list.List
}

type cacheEntry struct {
	text   string
	vector []float32
}

// NewCachedProvider wraps inner with an LRU of the given capacity.
// capacity <= 0 disables caching and returns the inner provider unchanged.
func NewCachedProvider(inner Provider, capacity int) Provider {
	if capacity <= 0 {
		return inner
	}
	return &CachedProvider{
		inner:    inner,
		capacity: capacity,
		cache:    make(map[string]*list.Element),
		lru:      list.New(),
	}
}

// Embed serves cached vectors where possible and forwards only the missing
// texts to the inner provider, preserving input order in the result.
func (c *CachedProvider) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	vectors := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	c.mu.Lock()
	for i, text := range texts {
		if elem, ok := c.cache[text]; ok {
			c.lru.MoveToFront(elem)
			vectors[i] = elem.Value.(*cacheEntry).vector
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	c.mu.Unlock()

	if len(missing) == 0 {
		return vectors, nil
	}
	fresh, err := c.inner.Embed(ctx, missing)
	if err != nil {
		return nil, err
	}
	if len(fresh) != len(missing) {
		return nil, fmt.Errorf("%w: got %d vectors for %d texts", ErrEmbeddingFailed, len(fresh), len(missing))
	}

	c.mu.Lock()
	for i, idx := range missingIdx {
		vectors[idx] = fresh[i]
		c.put(missing[i], fresh[i])
	}
	c.mu.Unlock()
	return vectors, nil
}

// put inserts or refreshes an entry, evicting the oldest past capacity.
// Caller holds the lock.
func (c *CachedProvider) put(text string, vector []float32) {
	if elem, ok := c.cache[text]; ok {
		c.lru.MoveToFront(elem)
		elem.Value.(*cacheEntry).vector = vector
		return
	}
	elem := c.lru.PushFront(&cacheEntry{text: text, vector: vector})
	c.cache[text] = elem
	if c.lru.Len() > c.capacity {
		oldest := c.lru.Back()
		if oldest != nil {
			c.lru.Remove(oldest)
			delete(c.cache, oldest.Value.(*cacheEntry).text)
		}
	}
}

// Dimensions returns the inner provider's dimension.
func (c *CachedProvider) Dimensions() int { return c.inner.Dimensions() }

// Model returns the inner provider's model identifier.
func (c *CachedProvider) Model() string { return c.inner.Model() }

// Close closes the inner provider.
func (c *CachedProvider) Close() error { return c.inner.Close() }
