package lockfile

import (
	"errors"
	"fmt"
	"os"
	"sort"
	"strings"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/cratedeb/cratedeb/crate"
)

// MaxSupportedVersion is the newest lockfile format revision this
// package understands.
const MaxSupportedVersion = 4

// Package is one [[package]] entry: a single pinned release.
type Package struct {
	Name    string `toml:"name"`
	Version string `toml:"version"`

	// Source identifies where the release comes from, e.g.
	// "registry+https://github.com/rust-lang/crates.io-index".
	// Workspace members carry no source.
	Source string `toml:"source"`

	// Checksum is the SHA-256 of the packaged archive. Workspace
	// members and git sources carry none.
	Checksum string `toml:"checksum"`

	// Dependencies lists resolved dependency references in the
	// shortened form described in the package documentation.
	Dependencies []string `toml:"dependencies"`
}

// IsMember reports whether the entry is a workspace member rather than
// a fetched crate.
func (p Package) IsMember() bool { return p.Source == "" }

// Lockfile is a parsed Cargo.lock.
type Lockfile struct {
	// Version is the declared format revision, zero for v1 and v2
	// files that predate the header.
	Version int `toml:"version"`

	// Packages holds every pinned release, sorted by name then
	// version.
	Packages []Package `toml:"package"`
}

// ReadFile reads and parses a lockfile from the given path.
func ReadFile(path string) (*Lockfile, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read lockfile: %w", err)
	}
	lf, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("lockfile %s: %w", path, err)
	}
	return lf, nil
}

// Parse parses lockfile content.
//
// Entries come back sorted regardless of file order. Every pinned
// version must parse as a semantic version. A v1 [metadata] table and
// any other unknown keys are ignored.
func Parse(data []byte) (*Lockfile, error) {
	var lf Lockfile
	if err := toml.Unmarshal(data, &lf); err != nil {
		return nil, fmt.Errorf("parse lockfile: %w", err)
	}
	if lf.Version > MaxSupportedVersion {
		return nil, fmt.Errorf("lockfile format v%d is newer than the supported v%d", lf.Version, MaxSupportedVersion)
	}
	seen := make(map[string]bool, len(lf.Packages))
	for _, p := range lf.Packages {
		if p.Name == "" {
			return nil, errors.New("package entry without a name")
		}
		if _, err := crate.ParseVersion(p.Version); err != nil {
			return nil, fmt.Errorf("package %s: bad version: %w", p.Name, err)
		}
		key := p.Name + " " + p.Version + " " + p.Source
		if seen[key] {
			return nil, fmt.Errorf("package %s %s listed twice", p.Name, p.Version)
		}
		seen[key] = true
	}
	sort.Slice(lf.Packages, func(i, j int) bool {
		a, b := lf.Packages[i], lf.Packages[j]
		if a.Name != b.Name {
			return a.Name < b.Name
		}
		return crate.MustVersion(a.Version).Compare(crate.MustVersion(b.Version)) < 0
	})
	return &lf, nil
}

// Members returns the workspace members, the packages the lockfile was
// generated for.
func (l *Lockfile) Members() []Package {
	var out []Package
	for _, p := range l.Packages {
		if p.IsMember() {
			out = append(out, p)
		}
	}
	return out
}

// Resolve resolves one dependency reference against the lockfile's
// package list. A bare name must be unique; a version or source
// qualifier narrows the candidates until exactly one remains.
func (l *Lockfile) Resolve(ref string) (Package, error) {
	fields := strings.Fields(ref)
	if len(fields) == 0 {
		return Package{}, errors.New("empty dependency reference")
	}

	candidates := make([]Package, 0, 1)
	for _, p := range l.Packages {
		if p.Name == fields[0] {
			candidates = append(candidates, p)
		}
	}
	if len(fields) >= 2 {
		candidates = filterPackages(candidates, func(p Package) bool { return p.Version == fields[1] })
	}
	if len(fields) >= 3 {
		source := strings.Trim(strings.Join(fields[2:], " "), "()")
		candidates = filterPackages(candidates, func(p Package) bool { return p.Source == source })
	}

	switch len(candidates) {
	case 0:
		return Package{}, fmt.Errorf("dependency %q matches no package", ref)
	case 1:
		return candidates[0], nil
	default:
		return Package{}, fmt.Errorf("dependency %q is ambiguous across %d packages", ref, len(candidates))
	}
}

func filterPackages(pkgs []Package, keep func(Package) bool) []Package {
	out := pkgs[:0]
	for _, p := range pkgs {
		if keep(p) {
			out = append(out, p)
		}
	}
	return out
}
