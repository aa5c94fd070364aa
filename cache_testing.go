package cratedeb

import (
	"context"
	"errors"

	"github.com/cratedeb/cratedeb/crate"
)

// Compile-time interface compliance checks
var (
	_ MetadataCache = NoopCache{}
	_ MetadataCache = (*FailingCache)(nil)
)

// NoopCache discards all writes and always misses. Useful for testing
// without caching effects.
type NoopCache struct{}

// Get always returns a cache miss.
func (NoopCache) Get(ctx context.Context, name, version string) (*crate.Metadata, bool, error) {
	return nil, false, nil
}

// Put discards the metadata and returns success.
func (NoopCache) Put(ctx context.Context, name, version string, meta *crate.Metadata) error {
	return nil
}

// FailingCache always returns errors. Useful for testing that cache
// failures degrade to fetching instead of aborting.
type FailingCache struct {
	GetErr error
	PutErr error
}

// NewFailingCache creates a cache that fails with the given errors.
func NewFailingCache(getErr, putErr error) *FailingCache {
	if getErr == nil {
		getErr = errors.New("cache get failed")
	}
	if putErr == nil {
		putErr = errors.New("cache put failed")
	}
	return &FailingCache{GetErr: getErr, PutErr: putErr}
}

// Get always returns an error.
func (c *FailingCache) Get(ctx context.Context, name, version string) (*crate.Metadata, bool, error) {
	return nil, false, c.GetErr
}

// Put always returns an error.
func (c *FailingCache) Put(ctx context.Context, name, version string, meta *crate.Metadata) error {
	return c.PutErr
}
