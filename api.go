// Package cratedeb translates Rust crate releases into Debian source
// package stanzas and resolves whole-archive build orders.
//
// The translation follows the Debian Rust team's packaging conventions:
// one source package per crate release, a development package carrying
// the crate source, a metapackage per feature worth keeping, and
// dependency entries synthesized from cargo's semver requirements.
//
// # Overview
//
// The package splits into four layers:
//
//   - Manifest parsing: ParseManifest reads Cargo.toml content into
//     crate.Metadata, the input everything else works from.
//   - Translation: TranslateDependency turns one cargo dependency into
//     Debian dependency entries; BuildPackages generates the full
//     debian/control and debian/tests/control content for a release.
//   - Resolution: ResolveBuildOrder walks a dependency closure through
//     a registry and returns the order the closure has to be built in.
//   - Fetchers: RegistryFetcher speaks the crates.io HTTP API,
//     LocalFetcher reads checked-out crate sources, ChainFetcher
//     layers several sources with first-hit-wins semantics.
//
// # Quick Start
//
// Generating packaging stanzas for a published crate:
//
//	bundle, diags, err := cratedeb.PackageCrate(ctx, "serde", "^1", nil)
//	if err != nil {
//	    return err
//	}
//	err = bundle.Control.WriteFile("debian/control")
//
// Resolving the build order for a set of crates:
//
//	order, err := cratedeb.ResolveBuildOrder(ctx, roots, cratedeb.SourceBuildDeps,
//	    cratedeb.WithFetcher(cratedeb.CratesIO()))
//
// # Registries
//
// The public crates.io registry is the default. Any crates.io style
// endpoint works through registry.NewClient, and local mirrors or
// checkouts plug in through LocalFetcher and ChainFetcher:
//
//	local := cratedeb.NewLocalFetcher("/srv/crate-mirror")
//	chain, err := cratedeb.NewChainFetcher(local, cratedeb.CratesIO())
//
// # Thread Safety
//
// Fetchers, caches and the resolution entry points are safe for
// concurrent use. A *config.Config is read-only during generation and
// may be shared.
package cratedeb

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/cratedeb/cratedeb/config"
	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/registry"
)

// CratesIO returns a fetcher backed by the public crates.io registry.
func CratesIO(opts ...registry.ClientOption) Fetcher {
	return NewRegistryFetcher(registry.NewClient(registry.DefaultBaseURL, opts...))
}

// PackageCrate fetches the newest release of a crate satisfying the
// requirement and generates its packaging stanzas. An empty requirement
// matches any release. The fetcher defaults to crates.io; override it
// with WithFetcher.
//
// A config with crate_src_path set skips the registry and reads the
// manifest from that checkout instead.
func PackageCrate(ctx context.Context, name, requirement string, cfg *config.Config, opts ...Option) (*ControlBundle, []Diagnostic, error) {
	if cfg != nil && cfg.CrateSrcDir() != "" {
		return PackageManifest(filepath.Join(cfg.CrateSrcDir(), "Cargo.toml"), cfg, opts...)
	}

	opCfg, err := newOpConfig(opts...)
	if err != nil {
		return nil, nil, err
	}
	fetcher := opCfg.fetcher
	if fetcher == nil {
		fetcher = CratesIO()
	}

	if requirement == "" {
		requirement = "*"
	}
	req, err := crate.ParseRequirement(requirement)
	if err != nil {
		return nil, nil, fmt.Errorf("requirement %q: %w", requirement, err)
	}

	meta, err := fetcher.Fetch(ctx, name, req)
	if err != nil {
		return nil, nil, fmt.Errorf("fetch crate %s: %w", name, err)
	}
	return BuildPackages(meta, cfg, opts...)
}

// PackageManifest generates packaging stanzas from a Cargo.toml on
// disk.
func PackageManifest(path string, cfg *config.Config, opts ...Option) (*ControlBundle, []Diagnostic, error) {
	meta, err := ParseManifestFile(path)
	if err != nil {
		return nil, nil, err
	}
	return BuildPackages(meta, cfg, opts...)
}
