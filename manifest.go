package cratedeb

import (
	"errors"
	"fmt"
	"os"
	"sort"

	toml "github.com/pelletier/go-toml/v2"

	"github.com/cratedeb/cratedeb/crate"
)

// manifestDoc mirrors the subset of Cargo.toml the translation needs.
// Everything else in the manifest is ignored.
type manifestDoc struct {
	Package struct {
		Name        string `toml:"name"`
		Version     string `toml:"version"`
		Description string `toml:"description"`
		Homepage    string `toml:"homepage"`
		Repository  string `toml:"repository"`
	} `toml:"package"`
	Lib map[string]any `toml:"lib"`
	Bin []struct {
		Name string `toml:"name"`
		Path string `toml:"path"`
	} `toml:"bin"`
	Dependencies      map[string]any `toml:"dependencies"`
	DevDependencies   map[string]any `toml:"dev-dependencies"`
	BuildDependencies map[string]any `toml:"build-dependencies"`
	Target            map[string]struct {
		Dependencies      map[string]any `toml:"dependencies"`
		DevDependencies   map[string]any `toml:"dev-dependencies"`
		BuildDependencies map[string]any `toml:"build-dependencies"`
	} `toml:"target"`
	Features map[string][]string `toml:"features"`
}

// ParseManifest parses Cargo.toml content into crate metadata.
//
// Dependency declarations are accepted in both forms, the shorthand
// version string and the inline table. Target-specific dependency
// tables keep their cfg expression. Library detection works from the
// manifest alone: a crate counts as a library when it declares a [lib]
// section or declares no [[bin]] targets.
func ParseManifest(content []byte) (*crate.Metadata, error) {
	var doc manifestDoc
	if err := toml.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("parse manifest: %w", err)
	}
	if doc.Package.Name == "" {
		return nil, errors.New("manifest has no package.name")
	}
	if doc.Package.Version == "" {
		return nil, fmt.Errorf("manifest for %s has no package.version", doc.Package.Name)
	}
	version, err := crate.ParseVersion(doc.Package.Version)
	if err != nil {
		return nil, fmt.Errorf("manifest for %s: bad version: %w", doc.Package.Name, err)
	}

	var deps []crate.Dependency
	for _, section := range []struct {
		table map[string]any
		kind  crate.DependencyKind
	}{
		{doc.Dependencies, crate.KindNormal},
		{doc.BuildDependencies, crate.KindBuild},
		{doc.DevDependencies, crate.KindDev},
	} {
		parsed, err := parseDependencyTable(section.table, section.kind, "")
		if err != nil {
			return nil, fmt.Errorf("manifest for %s: %w", doc.Package.Name, err)
		}
		deps = append(deps, parsed...)
	}

	targets := make([]string, 0, len(doc.Target))
	for cfg := range doc.Target {
		targets = append(targets, cfg)
	}
	sort.Strings(targets)
	for _, cfg := range targets {
		section := doc.Target[cfg]
		for _, part := range []struct {
			table map[string]any
			kind  crate.DependencyKind
		}{
			{section.Dependencies, crate.KindNormal},
			{section.BuildDependencies, crate.KindBuild},
			{section.DevDependencies, crate.KindDev},
		} {
			parsed, err := parseDependencyTable(part.table, part.kind, cfg)
			if err != nil {
				return nil, fmt.Errorf("manifest for %s: target %s: %w", doc.Package.Name, cfg, err)
			}
			deps = append(deps, parsed...)
		}
	}

	binaries := make([]string, 0, len(doc.Bin))
	for _, b := range doc.Bin {
		if b.Name != "" {
			binaries = append(binaries, b.Name)
		}
	}
	sort.Strings(binaries)

	return &crate.Metadata{
		Name:         doc.Package.Name,
		Version:      version,
		Description:  doc.Package.Description,
		Homepage:     doc.Package.Homepage,
		Repository:   doc.Package.Repository,
		Dependencies: deps,
		Features:     doc.Features,
		HasLib:       doc.Lib != nil || len(doc.Bin) == 0,
		Binaries:     binaries,
	}, nil
}

// ParseManifestFile reads and parses a Cargo.toml file.
func ParseManifestFile(path string) (*crate.Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read manifest: %w", err)
	}
	meta, err := ParseManifest(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return meta, nil
}

// parseDependencyTable parses one dependencies table. Entries come out
// sorted by manifest name so repeated parses agree.
func parseDependencyTable(table map[string]any, kind crate.DependencyKind, target string) ([]crate.Dependency, error) {
	names := make([]string, 0, len(table))
	for name := range table {
		names = append(names, name)
	}
	sort.Strings(names)

	out := make([]crate.Dependency, 0, len(names))
	for _, name := range names {
		dep, err := parseDependency(name, table[name], kind, target)
		if err != nil {
			return nil, err
		}
		out = append(out, dep)
	}
	return out, nil
}

// parseDependency handles both the shorthand form ("1.0") and the
// inline table form.
func parseDependency(name string, value any, kind crate.DependencyKind, target string) (crate.Dependency, error) {
	dep := crate.Dependency{
		Name:            name,
		Kind:            kind,
		DefaultFeatures: true,
		Target:          target,
	}

	switch v := value.(type) {
	case string:
		req, err := crate.ParseRequirement(v)
		if err != nil {
			return crate.Dependency{}, fmt.Errorf("dependency %s: %w", name, err)
		}
		dep.Req = req
		return dep, nil
	case map[string]any:
		return parseDependencyFields(dep, name, v)
	}
	return crate.Dependency{}, fmt.Errorf("dependency %s: unsupported declaration of type %T", name, value)
}

func parseDependencyFields(dep crate.Dependency, name string, table map[string]any) (crate.Dependency, error) {
	if w, ok := table["workspace"].(bool); ok && w {
		return crate.Dependency{}, fmt.Errorf("dependency %s: workspace inheritance is not supported, parse the published manifest instead", name)
	}
	if pkg, ok := table["package"].(string); ok && pkg != "" && pkg != name {
		dep.Name = pkg
		dep.Rename = name
	}
	if vs, ok := table["version"].(string); ok {
		req, err := crate.ParseRequirement(vs)
		if err != nil {
			return crate.Dependency{}, fmt.Errorf("dependency %s: %w", name, err)
		}
		dep.Req = req
	}
	if opt, ok := table["optional"].(bool); ok {
		dep.Optional = opt
	}
	// Manifests spell this both ways; cargo accepts both.
	for _, key := range []string{"default-features", "default_features"} {
		if df, ok := table[key].(bool); ok {
			dep.DefaultFeatures = df
			break
		}
	}
	if raw, ok := table["features"]; ok {
		feats, err := stringSlice(raw)
		if err != nil {
			return crate.Dependency{}, fmt.Errorf("dependency %s: features: %w", name, err)
		}
		dep.Features = feats
	}
	return dep, nil
}

func stringSlice(v any) ([]string, error) {
	switch items := v.(type) {
	case []string:
		return items, nil
	case []any:
		out := make([]string, 0, len(items))
		for _, item := range items {
			s, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("expected a string, got %T", item)
			}
			out = append(out, s)
		}
		return out, nil
	}
	return nil, fmt.Errorf("expected an array of strings, got %T", v)
}
