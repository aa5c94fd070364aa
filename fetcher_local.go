package cratedeb

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cratedeb/cratedeb/crate"
)

// LocalFetcher serves crate metadata from unpacked crate sources on
// disk, for working offline or against patched trees.
//
// Two layouts are accepted. A root that holds a Cargo.toml directly
// serves exactly that crate. Otherwise each immediate subdirectory
// containing a Cargo.toml serves one release; the {name}-{version}
// naming that "cargo vendor" and unpacked .crate archives use works
// unchanged, but only the manifest inside decides name and version.
type LocalFetcher struct {
	root  string
	cache sync.Map // map[string]*crate.Metadata keyed by manifest path
}

var _ Fetcher = (*LocalFetcher)(nil)

// NewLocalFetcher creates a fetcher over a local directory.
func NewLocalFetcher(root string) *LocalFetcher {
	return &LocalFetcher{root: filepath.Clean(root)}
}

// Versions lists the releases of a crate present under the root,
// newest first. Local sources never carry yank markers.
func (f *LocalFetcher) Versions(ctx context.Context, name string) ([]VersionInfo, error) {
	metas, err := f.releases(ctx, name)
	if err != nil {
		return nil, err
	}
	out := make([]VersionInfo, len(metas))
	for i, m := range metas {
		out[i] = VersionInfo{Version: m.Version}
	}
	return out, nil
}

// Fetch returns the newest local release satisfying the requirement.
func (f *LocalFetcher) Fetch(ctx context.Context, name string, req crate.Requirement) (*crate.Metadata, error) {
	metas, err := f.releases(ctx, name)
	if err != nil {
		return nil, err
	}
	for _, m := range metas {
		if req.Matches(m.Version) {
			return m, nil
		}
	}
	return nil, &FetchError{Name: name, Version: req.String(), Err: ErrVersionNotFound}
}

// releases collects every local release of the named crate, newest
// first.
func (f *LocalFetcher) releases(ctx context.Context, name string) ([]*crate.Metadata, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var paths []string
	if rootManifest := filepath.Join(f.root, "Cargo.toml"); fileExists(rootManifest) {
		paths = append(paths, rootManifest)
	} else {
		entries, err := os.ReadDir(f.root)
		if err != nil {
			return nil, &FetchError{Name: name, Err: err}
		}
		for _, e := range entries {
			if !e.IsDir() {
				continue
			}
			// Cheap prefilter on the conventional directory naming;
			// the manifest inside has the final say.
			if !strings.HasPrefix(e.Name(), name) {
				continue
			}
			manifest := filepath.Join(f.root, e.Name(), "Cargo.toml")
			if fileExists(manifest) {
				paths = append(paths, manifest)
			}
		}
	}

	var metas []*crate.Metadata
	for _, path := range paths {
		meta, err := f.load(path)
		if err != nil {
			return nil, &FetchError{Name: name, Err: err}
		}
		if meta.Name == name {
			metas = append(metas, meta)
		}
	}
	if len(metas) == 0 {
		return nil, &FetchError{Name: name, Err: ErrCrateNotFound}
	}
	sort.Slice(metas, func(i, j int) bool {
		return metas[i].Version.Compare(metas[j].Version) > 0
	})
	return metas, nil
}

func (f *LocalFetcher) load(path string) (*crate.Metadata, error) {
	if cached, ok := f.cache.Load(path); ok {
		return cached.(*crate.Metadata), nil
	}
	meta, err := ParseManifestFile(path)
	if err != nil {
		return nil, err
	}
	f.cache.Store(path, meta)
	return meta, nil
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}
