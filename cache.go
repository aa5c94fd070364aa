package cratedeb

import (
	"context"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/cratedeb/cratedeb/crate"
)

// Compile-time interface compliance checks
var (
	_ MetadataCache = (*MemoryCache)(nil)
	_ MetadataCache = (*LRUCache)(nil)
	_ Fetcher       = (*CachingFetcher)(nil)
)

// MetadataCache stores fetched crate metadata keyed by exact release.
// Cached metadata is shared and must be treated as read-only.
// Implementations must be safe for concurrent use.
type MetadataCache interface {
	// Get returns the cached metadata for a release and whether it was
	// present. An error means the cache itself failed, not a miss.
	Get(ctx context.Context, name, version string) (*crate.Metadata, bool, error)

	// Put stores metadata for a release.
	Put(ctx context.Context, name, version string, meta *crate.Metadata) error
}

func cacheKey(name, version string) string {
	return name + "@" + version
}

// MemoryCache is an unbounded thread-safe in-memory cache. Operations
// create one per invocation to keep repeated lookups of the same
// release from hitting the fetcher again.
type MemoryCache struct {
	mu    sync.RWMutex
	items map[string]*crate.Metadata
}

// NewMemoryCache creates an empty in-memory cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{items: make(map[string]*crate.Metadata)}
}

// Get retrieves cached metadata.
func (c *MemoryCache) Get(ctx context.Context, name, version string) (*crate.Metadata, bool, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	meta, ok := c.items[cacheKey(name, version)]
	return meta, ok, nil
}

// Put stores metadata.
func (c *MemoryCache) Put(ctx context.Context, name, version string, meta *crate.Metadata) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items[cacheKey(name, version)] = meta
	return nil
}

// Clear removes all entries.
func (c *MemoryCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*crate.Metadata)
}

// Len returns the number of cached releases.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

// LRUCache is a bounded cache that evicts the least recently used
// releases. Suited to long-running processes that sweep many crates.
type LRUCache struct {
	inner *lru.Cache[string, *crate.Metadata]
}

// NewLRUCache creates a cache holding at most size releases.
func NewLRUCache(size int) (*LRUCache, error) {
	inner, err := lru.New[string, *crate.Metadata](size)
	if err != nil {
		return nil, err
	}
	return &LRUCache{inner: inner}, nil
}

// Get retrieves cached metadata, marking the release recently used.
func (c *LRUCache) Get(ctx context.Context, name, version string) (*crate.Metadata, bool, error) {
	meta, ok := c.inner.Get(cacheKey(name, version))
	return meta, ok, nil
}

// Put stores metadata, evicting the least recently used release if the
// cache is full.
func (c *LRUCache) Put(ctx context.Context, name, version string, meta *crate.Metadata) error {
	c.inner.Add(cacheKey(name, version), meta)
	return nil
}

// Len returns the number of cached releases.
func (c *LRUCache) Len() int {
	return c.inner.Len()
}

// CachingFetcher puts a MetadataCache in front of another fetcher.
//
// Requirements are first resolved to an exact version through the
// inner fetcher's version listing, memoized per crate, so differently
// spelled requirements selecting the same release share one cache
// entry. Cache failures degrade to fetching: a Get error counts as a
// miss and a Put error is dropped.
type CachingFetcher struct {
	inner Fetcher
	cache MetadataCache

	mu       sync.Mutex
	versions map[string][]VersionInfo
}

// NewCachingFetcher wraps a fetcher with a cache. A nil cache means a
// fresh MemoryCache.
func NewCachingFetcher(inner Fetcher, cache MetadataCache) *CachingFetcher {
	if cache == nil {
		cache = NewMemoryCache()
	}
	return &CachingFetcher{
		inner:    inner,
		cache:    cache,
		versions: make(map[string][]VersionInfo),
	}
}

// Versions lists the crate's releases, memoizing the listing for the
// fetcher's lifetime.
func (f *CachingFetcher) Versions(ctx context.Context, name string) ([]VersionInfo, error) {
	f.mu.Lock()
	if vis, ok := f.versions[name]; ok {
		f.mu.Unlock()
		return vis, nil
	}
	f.mu.Unlock()

	vis, err := f.inner.Versions(ctx, name)
	if err != nil {
		return nil, err
	}

	f.mu.Lock()
	f.versions[name] = vis
	f.mu.Unlock()
	return vis, nil
}

// Fetch resolves the requirement to an exact release and serves it
// from the cache when possible.
func (f *CachingFetcher) Fetch(ctx context.Context, name string, req crate.Requirement) (*crate.Metadata, error) {
	versions, err := f.Versions(ctx, name)
	if err != nil {
		return nil, err
	}
	chosen, ok := MaxSatisfying(versions, req)
	if !ok {
		return nil, &FetchError{Name: name, Version: req.String(), Err: ErrVersionNotFound}
	}

	if meta, hit, err := f.cache.Get(ctx, name, chosen.String()); err == nil && hit {
		return meta, nil
	}

	exact, err := crate.ParseRequirement("=" + chosen.String())
	if err != nil {
		return nil, &FetchError{Name: name, Version: chosen.String(), Err: err}
	}
	meta, err := f.inner.Fetch(ctx, name, exact)
	if err != nil {
		return nil, err
	}
	_ = f.cache.Put(ctx, name, chosen.String(), meta)
	return meta, nil
}
