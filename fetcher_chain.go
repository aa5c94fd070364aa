package cratedeb

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/cratedeb/cratedeb/crate"
)

// ChainFetcher tries several fetchers in order, with the semantics
// cargo gives source replacement: the first fetcher that knows a crate
// owns it, and every release of that crate comes from the owner. Mixed
// sources therefore cannot interleave releases of one crate.
//
// Lookup falls through to the next fetcher on any error, not just
// not-found, so a broken source degrades the chain instead of breaking
// it.
type ChainFetcher struct {
	fetchers []Fetcher

	// owner maps a crate name to the index of the fetcher that first
	// served it.
	owner   map[string]int
	ownerMu sync.RWMutex
}

var _ Fetcher = (*ChainFetcher)(nil)

// NewChainFetcher builds a chain from the given fetchers, consulted in
// order.
func NewChainFetcher(fetchers ...Fetcher) (*ChainFetcher, error) {
	if len(fetchers) == 0 {
		return nil, errors.New("no fetchers provided")
	}
	for i, f := range fetchers {
		if f == nil {
			return nil, fmt.Errorf("fetcher %d is nil", i)
		}
	}
	return &ChainFetcher{
		fetchers: fetchers,
		owner:    make(map[string]int),
	}, nil
}

// Fetch fetches from the crate's owning fetcher, establishing
// ownership on first contact.
func (f *ChainFetcher) Fetch(ctx context.Context, name string, req crate.Requirement) (*crate.Metadata, error) {
	if idx, ok := f.ownerOf(name); ok {
		return f.fetchers[idx].Fetch(ctx, name, req)
	}

	var lastErr error
	allNotFound := true
	for i, fetcher := range f.fetchers {
		meta, err := fetcher.Fetch(ctx, name, req)
		if err == nil {
			f.claim(name, i)
			return meta, nil
		}
		if !errors.Is(err, ErrCrateNotFound) {
			allNotFound = false
		}
		lastErr = err
	}
	if allNotFound {
		return nil, &FetchError{
			Name:    name,
			Version: req.String(),
			Err:     fmt.Errorf("%w in any of %d sources", ErrCrateNotFound, len(f.fetchers)),
		}
	}
	return nil, lastErr
}

// Versions lists versions from the crate's owning fetcher,
// establishing ownership on first contact.
func (f *ChainFetcher) Versions(ctx context.Context, name string) ([]VersionInfo, error) {
	if idx, ok := f.ownerOf(name); ok {
		return f.fetchers[idx].Versions(ctx, name)
	}

	var lastErr error
	allNotFound := true
	for i, fetcher := range f.fetchers {
		versions, err := fetcher.Versions(ctx, name)
		if err == nil {
			f.claim(name, i)
			return versions, nil
		}
		if !errors.Is(err, ErrCrateNotFound) {
			allNotFound = false
		}
		lastErr = err
	}
	if allNotFound {
		return nil, &FetchError{
			Name: name,
			Err:  fmt.Errorf("%w in any of %d sources", ErrCrateNotFound, len(f.fetchers)),
		}
	}
	return nil, lastErr
}

func (f *ChainFetcher) ownerOf(name string) (int, bool) {
	f.ownerMu.RLock()
	defer f.ownerMu.RUnlock()
	idx, ok := f.owner[name]
	return idx, ok
}

func (f *ChainFetcher) claim(name string, idx int) {
	f.ownerMu.Lock()
	defer f.ownerMu.Unlock()
	if _, exists := f.owner[name]; !exists {
		f.owner[name] = idx
	}
}
