// Package config reads the per-crate override file that steers stanza
// generation: package naming, feature collapsing, and hand-maintained
// field values layered over what the manifest provides.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
)

// DefaultMaintainer is the maintainer packages carry when the config
// does not name one.
const DefaultMaintainer = "Debian Rust Maintainers <pkg-rust-maintainers@alioth-lists.debian.net>"

// Config is one crate's override file. The zero value plus
// DefaultMaintainer is a valid configuration; Default returns it.
type Config struct {
	// Bin forces packaging the crate's executables on or off. Unset,
	// the decision falls back to BuildBinPackage's default.
	Bin *bool `toml:"bin"`

	// BinName renames the executables package. Empty means the
	// debianized crate name.
	BinName string `toml:"bin_name"`

	// SemverSuffix pins the source package to one semver series, e.g.
	// rust-nom-7, so several series can ship side by side.
	SemverSuffix bool `toml:"semver_suffix"`

	// Overlay is a directory of files copied over the generated
	// debian/ directory, relative to the config file.
	Overlay string `toml:"overlay"`

	// Excludes and Whitelist filter the upstream tarball contents.
	Excludes  []string `toml:"excludes"`
	Whitelist []string `toml:"whitelist"`

	// AllowPrereleaseDeps accepts pre-release bounds in dependency
	// requirements instead of rejecting them.
	AllowPrereleaseDeps bool `toml:"allow_prerelease_deps"`

	// CrateSrcPath points at a local crate checkout to use instead of
	// the registry, relative to the config file.
	CrateSrcPath string `toml:"crate_src_path"`

	// Summary and Description replace the values derived from the
	// manifest, keeping the generated suffixes.
	Summary     string `toml:"summary"`
	Description string `toml:"description"`

	Maintainer string   `toml:"maintainer"`
	Uploaders  []string `toml:"uploaders"`

	// CollapseFeatures folds every feature into the bare library
	// package instead of generating feature metapackages.
	CollapseFeatures bool `toml:"collapse_features"`

	// RequiresRoot overrides the Rules-Requires-Root field.
	RequiresRoot string `toml:"requires_root"`

	Source   *SourceOverride             `toml:"source"`
	Packages map[string]*PackageOverride `toml:"packages"`

	// UnknownKeys lists document keys that matched no field. They do
	// not fail the parse; callers surface them as warnings.
	UnknownKeys []string `toml:"-"`

	// dir is the config file's directory. Relative paths in the
	// document resolve against it.
	dir string
}

// SourceOverride adjusts the source stanza.
type SourceOverride struct {
	Section string `toml:"section"`

	// Policy overrides the Standards-Version field.
	Policy string `toml:"policy"`

	Homepage   string `toml:"homepage"`
	VcsGit     string `toml:"vcs_git"`
	VcsBrowser string `toml:"vcs_browser"`

	// BuildDepends entries are appended to the computed list;
	// BuildDependsExcludes entries are removed from it afterwards.
	BuildDepends         []string `toml:"build_depends"`
	BuildDependsExcludes []string `toml:"build_depends_excludes"`
}

// PackageOverride adjusts one binary package stanza. Section, Summary
// and Description replace the generated values; the list fields are
// appended to them.
type PackageOverride struct {
	Section     string   `toml:"section"`
	Summary     string   `toml:"summary"`
	Description string   `toml:"description"`
	Depends     []string `toml:"depends"`
	Recommends  []string `toml:"recommends"`
	Suggests    []string `toml:"suggests"`
	Provides    []string `toml:"provides"`
	ExtraLines  []string `toml:"extra_lines"`

	// TestIsBroken marks the package's autopkgtest flaky.
	TestIsBroken *bool `toml:"test_is_broken"`

	// TestDepends replaces the computed test dependencies. An empty
	// list clears them.
	TestDepends []string `toml:"test_depends"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{Maintainer: DefaultMaintainer}
}

// Load reads and parses a config file. The empty path yields Default,
// so an unset flag value can be passed through directly.
func Load(path string) (*Config, error) {
	if path == "" {
		return Default(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	c, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("config %s: %w", path, err)
	}
	c.dir = filepath.Dir(path)
	return c, nil
}

// Parse decodes a config document. Unknown keys never fail the parse;
// they are collected into UnknownKeys.
func Parse(data []byte) (*Config, error) {
	c := Default()
	if err := toml.Unmarshal(data, c); err != nil {
		return nil, err
	}

	// A second, strict pass collects the keys the tolerant pass
	// silently skipped.
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	var scratch Config
	var strict *toml.StrictMissingError
	if err := dec.Decode(&scratch); errors.As(err, &strict) {
		for i := range strict.Errors {
			c.UnknownKeys = append(c.UnknownKeys, strings.Join(strict.Errors[i].Key(), "."))
		}
	}
	return c, nil
}

// BuildBinPackage reports whether the crate's executables get a
// package. Unset, executables are packaged unless the source tracks a
// single semver series.
func (c *Config) BuildBinPackage() bool {
	if c.Bin != nil {
		return *c.Bin
	}
	return !c.SemverSuffix
}

// BinNameFor returns the executables package name, falling back to
// the given name when none is configured.
func (c *Config) BinNameFor(fallback string) string {
	if c.BinName != "" {
		return c.BinName
	}
	return fallback
}

// OverlayDir resolves the overlay directory against the config file's
// location. Empty when no overlay is configured.
func (c *Config) OverlayDir() string {
	return c.resolve(c.Overlay)
}

// CrateSrcDir resolves the local crate source directory against the
// config file's location. Empty when none is configured.
func (c *Config) CrateSrcDir() string {
	return c.resolve(c.CrateSrcPath)
}

func (c *Config) resolve(path string) string {
	if path == "" || filepath.IsAbs(path) || c.dir == "" {
		return path
	}
	return filepath.Join(c.dir, path)
}

// PackageKey addresses one binary package in the Packages table:
// "bin" for the executables package, "lib" for the bare library,
// "lib+{feature}" for a feature metapackage.
type PackageKey string

const (
	// KeyBin addresses the executables package.
	KeyBin PackageKey = "bin"
	// KeyLib addresses the bare library package.
	KeyLib PackageKey = "lib"
)

// FeatureKey returns the key addressing a feature metapackage. The
// empty feature addresses the bare library.
func FeatureKey(feature string) PackageKey {
	if feature == "" {
		return KeyLib
	}
	return PackageKey("lib+" + feature)
}

// Package returns the override paragraph for a package, or nil when
// the document has none.
func (c *Config) Package(key PackageKey) *PackageOverride {
	if c.Packages == nil {
		return nil
	}
	return c.Packages[string(key)]
}

// MergedList collects one list-valued override across a package's own
// paragraph and the paragraphs of the features it provides. A feature
// metapackage thereby inherits the overrides of every feature it
// subsumes.
func (c *Config) MergedList(key PackageKey, provides []string, get func(*PackageOverride) []string) []string {
	var out []string
	for _, k := range c.mergedKeys(key, provides) {
		if o := c.Package(k); o != nil {
			out = append(out, get(o)...)
		}
	}
	return out
}

// TestIsBroken reports whether the package's autopkgtest is marked
// broken by its own paragraph or by one of its provided features'.
func (c *Config) TestIsBroken(key PackageKey, provides []string) bool {
	for _, k := range c.mergedKeys(key, provides) {
		if o := c.Package(k); o != nil && o.TestIsBroken != nil && *o.TestIsBroken {
			return true
		}
	}
	return false
}

// TestDepends returns the overriding test dependency list and whether
// any paragraph set one. The bool separates "replace with nothing"
// from "not configured".
func (c *Config) TestDepends(key PackageKey, provides []string) ([]string, bool) {
	var (
		out []string
		set bool
	)
	for _, k := range c.mergedKeys(key, provides) {
		if o := c.Package(k); o != nil && o.TestDepends != nil {
			set = true
			out = append(out, o.TestDepends...)
		}
	}
	return out, set
}

func (c *Config) mergedKeys(key PackageKey, provides []string) []PackageKey {
	keys := make([]PackageKey, 0, len(provides)+1)
	keys = append(keys, key)
	for _, f := range provides {
		keys = append(keys, FeatureKey(f))
	}
	return keys
}
