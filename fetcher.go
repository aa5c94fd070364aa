package cratedeb

import (
	"context"
	"errors"
	"fmt"

	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/registry"
)

// Fetcher supplies crate metadata to resolution.
//
// Implementations must be safe for concurrent use; build-order
// discovery fetches from several goroutines at once.
type Fetcher interface {
	// Fetch returns metadata for the newest release of a crate that
	// satisfies the requirement. The match-anything requirement selects
	// the newest release outright.
	Fetch(ctx context.Context, name string, req crate.Requirement) (*crate.Metadata, error)

	// Versions lists the crate's published releases, including yanked
	// ones.
	Versions(ctx context.Context, name string) ([]VersionInfo, error)
}

// MaxSatisfying returns the newest release satisfying a requirement.
// Yanked releases never satisfy; pre-releases only when the
// requirement names one.
func MaxSatisfying(versions []VersionInfo, req crate.Requirement) (crate.Version, bool) {
	var (
		best  crate.Version
		found bool
	)
	for _, vi := range versions {
		if vi.Yanked || !req.Matches(vi.Version) {
			continue
		}
		if !found || best.Compare(vi.Version) < 0 {
			best = vi.Version
			found = true
		}
	}
	return best, found
}

// RegistryFetcher fetches crate metadata from a crates.io style
// registry API.
type RegistryFetcher struct {
	client *registry.Client
}

var _ Fetcher = (*RegistryFetcher)(nil)

// NewRegistryFetcher wraps a registry client. A nil client means the
// default crates.io client.
func NewRegistryFetcher(client *registry.Client) *RegistryFetcher {
	if client == nil {
		client = registry.NewClient(registry.DefaultBaseURL)
	}
	return &RegistryFetcher{client: client}
}

// Versions lists the crate's releases as the registry reports them.
// Releases whose version number does not parse are skipped.
func (f *RegistryFetcher) Versions(ctx context.Context, name string) ([]VersionInfo, error) {
	resp, err := f.client.GetCrate(ctx, name)
	if err != nil {
		return nil, &FetchError{Name: name, Err: registryFetchErr(err)}
	}
	out := make([]VersionInfo, 0, len(resp.Versions))
	for _, vd := range resp.Versions {
		v, err := crate.ParseVersion(vd.Num)
		if err != nil {
			continue
		}
		out = append(out, VersionInfo{Version: v, Yanked: vd.Yanked})
	}
	return out, nil
}

// Fetch resolves the requirement against the registry's version
// listing, then fetches the chosen release's dependency list.
func (f *RegistryFetcher) Fetch(ctx context.Context, name string, req crate.Requirement) (*crate.Metadata, error) {
	resp, err := f.client.GetCrate(ctx, name)
	if err != nil {
		return nil, &FetchError{Name: name, Version: req.String(), Err: registryFetchErr(err)}
	}
	chosen, ok := pickVersion(resp.Versions, req)
	if !ok {
		return nil, &FetchError{Name: name, Version: req.String(), Err: ErrVersionNotFound}
	}
	depsResp, err := f.client.GetDependencies(ctx, name, chosen.Num)
	if err != nil {
		return nil, &FetchError{Name: name, Version: chosen.Num, Err: registryFetchErr(err)}
	}
	meta, err := metadataFromRegistry(resp, chosen, depsResp)
	if err != nil {
		return nil, &FetchError{Name: name, Version: chosen.Num, Err: err}
	}
	return meta, nil
}

// pickVersion selects the newest non-yanked version data satisfying the
// requirement.
func pickVersion(versions []registry.VersionData, req crate.Requirement) (registry.VersionData, bool) {
	var (
		best    registry.VersionData
		bestVer crate.Version
		found   bool
	)
	for _, vd := range versions {
		if vd.Yanked {
			continue
		}
		v, err := crate.ParseVersion(vd.Num)
		if err != nil {
			continue
		}
		if !req.Matches(v) {
			continue
		}
		if !found || bestVer.Compare(v) < 0 {
			best, bestVer, found = vd, v, true
		}
	}
	return best, found
}

func metadataFromRegistry(resp *registry.CrateResponse, vd registry.VersionData, deps *registry.DependenciesResponse) (*crate.Metadata, error) {
	version, err := crate.ParseVersion(vd.Num)
	if err != nil {
		return nil, fmt.Errorf("bad version %q: %w", vd.Num, err)
	}
	out := make([]crate.Dependency, 0, len(deps.Dependencies))
	for _, d := range deps.Dependencies {
		req, err := crate.ParseRequirement(d.Req)
		if err != nil {
			return nil, fmt.Errorf("dependency %s: %w", d.CrateID, err)
		}
		out = append(out, crate.Dependency{
			Name:            d.CrateID,
			Req:             req,
			Kind:            dependencyKind(d.Kind),
			Optional:        d.Optional,
			DefaultFeatures: d.DefaultFeatures,
			Features:        d.Features,
			Target:          d.Target,
		})
	}
	return &crate.Metadata{
		Name:         resp.Crate.Name,
		Version:      version,
		Description:  resp.Crate.Description,
		Homepage:     resp.Crate.Homepage,
		Repository:   resp.Crate.Repository,
		Dependencies: out,
		Features:     vd.Features,
		// The versions endpoint does not expose build targets, and
		// nearly every published crate ships a library.
		HasLib: true,
	}, nil
}

func dependencyKind(s string) crate.DependencyKind {
	switch s {
	case registry.KindBuild:
		return crate.KindBuild
	case registry.KindDev:
		return crate.KindDev
	}
	return crate.KindNormal
}

// registryFetchErr maps a registry 404 onto the crate-not-found
// sentinel so callers can test with errors.Is.
func registryFetchErr(err error) error {
	var regErr *registry.Error
	if errors.As(err, &regErr) && regErr.NotFound() {
		return ErrCrateNotFound
	}
	return err
}
