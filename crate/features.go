package crate

import (
	"slices"
	"sort"
	"strings"
)

// EdgeKind classifies one entry in a feature's edge list.
type EdgeKind int

const (
	// EdgeFeature activates another feature of the same crate.
	EdgeFeature EdgeKind = iota
	// EdgeDep activates a dependency ("dep:name" or an optional
	// dependency's name).
	EdgeDep
	// EdgeDepFeature activates one feature of a dependency
	// ("name/feature"), without the dependency's default features.
	EdgeDepFeature
)

// FeatureEdge is one parsed entry of a feature's edge list.
type FeatureEdge struct {
	Kind    EdgeKind
	Name    string
	Feature string
	// Weak marks "name?/feature" edges. Weak edges are honored as their
	// strong form: the resulting dependency set may be a superset of
	// what an actual build activates, never a subset.
	Weak bool
}

// ParseFeatureEdge parses a raw feature edge string.
func ParseFeatureEdge(s string) FeatureEdge {
	if rest, ok := strings.CutPrefix(s, "dep:"); ok {
		return FeatureEdge{Kind: EdgeDep, Name: rest}
	}
	if name, feature, ok := strings.Cut(s, "/"); ok {
		weak := false
		if n, found := strings.CutSuffix(name, "?"); found {
			name, weak = n, true
		}
		return FeatureEdge{Kind: EdgeDepFeature, Name: name, Feature: feature, Weak: weak}
	}
	return FeatureEdge{Kind: EdgeFeature, Name: s}
}

// DanglingReference records a feature edge that resolved to nothing.
// The edge is dropped; the reference is reported so callers can surface
// it as a warning.
type DanglingReference struct {
	// Feature is the vertex the edge appears in.
	Feature string
	// Ref is the raw edge text.
	Ref string
}

type vertex struct {
	// features lists the same-crate features this vertex activates.
	// Always contains "" except on the "" vertex itself.
	features []string
	// deps lists the crate dependencies this vertex activates.
	deps []Dependency
}

func (v vertex) shape() string {
	var b strings.Builder
	b.WriteString(strings.Join(v.features, "\x1f"))
	b.WriteByte(0x1e)
	for i, d := range v.deps {
		if i > 0 {
			b.WriteByte(0x1f)
		}
		b.WriteString(d.Key())
	}
	return b.String()
}

// FeatureGraph is the feature activation graph of one crate release.
// Vertices are feature names, optional dependency names, the implicit
// "" vertex holding the unconditional dependencies, and a "default"
// vertex synthesized when the manifest declares none.
type FeatureGraph struct {
	vertices map[string]vertex
}

// NewFeatureGraph builds the activation graph for a release. Dangling
// edges are dropped and reported, never fatal.
func NewFeatureGraph(meta *Metadata) (*FeatureGraph, []DanglingReference) {
	depsByName := make(map[string][]Dependency)
	for _, d := range meta.Dependencies {
		if d.Kind == KindDev {
			continue
		}
		name := d.NameInManifest()
		depsByName[name] = append(depsByName[name], d)
	}

	g := &FeatureGraph{vertices: make(map[string]vertex)}
	var dangling []DanglingReference

	// A feature edge may name a declared feature or an optional
	// dependency; both get vertices.
	isVertexName := func(name string) bool {
		if _, ok := meta.Features[name]; ok {
			return true
		}
		for _, d := range depsByName[name] {
			if d.Optional {
				return true
			}
		}
		return false
	}

	for feature, edges := range meta.Features {
		v := vertex{features: []string{""}}
		for _, raw := range edges {
			edge := ParseFeatureEdge(raw)
			switch edge.Kind {
			case EdgeFeature:
				if !isVertexName(edge.Name) {
					dangling = append(dangling, DanglingReference{Feature: feature, Ref: raw})
					continue
				}
				v.features = append(v.features, edge.Name)
			case EdgeDep:
				deps, ok := depsByName[edge.Name]
				if !ok {
					dangling = append(dangling, DanglingReference{Feature: feature, Ref: raw})
					continue
				}
				v.deps = append(v.deps, deps...)
			case EdgeDepFeature:
				deps, ok := depsByName[edge.Name]
				if !ok {
					dangling = append(dangling, DanglingReference{Feature: feature, Ref: raw})
					continue
				}
				for _, d := range deps {
					d.Features = []string{edge.Feature}
					d.DefaultFeatures = false
					v.deps = append(v.deps, d)
				}
			}
		}
		g.vertices[feature] = v
	}

	// Optional dependencies double as features of the same name.
	for name, deps := range depsByName {
		var optional []Dependency
		for _, d := range deps {
			if d.Optional {
				optional = append(optional, d)
			}
		}
		if len(optional) > 0 {
			g.vertices[name] = vertex{features: []string{""}, deps: optional}
		}
	}

	g.vertices[""] = vertex{deps: meta.RequiredDependencies()}
	if _, ok := g.vertices["default"]; !ok {
		g.vertices["default"] = vertex{features: []string{""}}
	}

	sort.Slice(dangling, func(i, j int) bool {
		if dangling[i].Feature != dangling[j].Feature {
			return dangling[i].Feature < dangling[j].Feature
		}
		return dangling[i].Ref < dangling[j].Ref
	})
	return g, dangling
}

// Features returns every vertex name in sorted order, "" first.
func (g *FeatureGraph) Features() []string {
	out := make([]string, 0, len(g.vertices))
	for f := range g.vertices {
		out = append(out, f)
	}
	sort.Strings(out)
	return out
}

// Has reports whether a feature vertex exists.
func (g *FeatureGraph) Has(feature string) bool {
	_, ok := g.vertices[feature]
	return ok
}

// Vertex returns a feature's direct edges: the same-crate features it
// names and the crate dependencies it activates. ok is false for
// unknown names.
func (g *FeatureGraph) Vertex(feature string) (features []string, deps []Dependency, ok bool) {
	v, ok := g.vertices[feature]
	if !ok {
		return nil, nil, false
	}
	return slices.Clone(v.features), slices.Clone(v.deps), true
}

// ActivationSet is the closure of a set of activated features: every
// feature reached and every dependency those features activate.
type ActivationSet struct {
	// Features holds the reached vertex names, sorted, "" included.
	Features []string
	// Dependencies holds the activated dependencies, deduplicated by
	// identity, in deterministic order.
	Dependencies []Dependency
}

// Closure walks the graph from the given start features and returns
// everything they activate. No start features means the unconditional
// set (the "" vertex alone). Cycles in the graph are fine; every vertex
// is visited once.
func (g *FeatureGraph) Closure(start ...string) ActivationSet {
	if len(start) == 0 {
		start = []string{""}
	}
	seen := make(map[string]bool)
	queue := slices.Clone(start)
	var set ActivationSet
	for len(queue) > 0 {
		f := queue[0]
		queue = queue[1:]
		if seen[f] {
			continue
		}
		seen[f] = true
		v, ok := g.vertices[f]
		if !ok {
			continue
		}
		set.Features = append(set.Features, f)
		queue = append(queue, v.features...)
		set.Dependencies = append(set.Dependencies, v.deps...)
	}
	sort.Strings(set.Features)
	set.Dependencies = dedupDependencies(set.Dependencies)
	return set
}

func dedupDependencies(deps []Dependency) []Dependency {
	seen := make(map[string]bool, len(deps))
	out := deps[:0]
	for _, d := range deps {
		k := d.Key()
		if seen[k] {
			continue
		}
		seen[k] = true
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key() < out[j].Key() })
	return out
}

// Equal reports whether two activation sets activate the same features
// and the same dependencies.
func (s ActivationSet) Equal(other ActivationSet) bool {
	return slices.Equal(s.Features, other.Features) &&
		slices.Equal(depKeys(s.Dependencies), depKeys(other.Dependencies))
}

// Superset reports whether s activates every dependency other does.
// Dependency identity is what containment means here: two closures may
// reach different vertex names yet activate comparable sets, e.g. a
// feature that subsumes "default" without naming it.
func (s ActivationSet) Superset(other ActivationSet) bool {
	return subset(depKeys(other.Dependencies), depKeys(s.Dependencies))
}

// HasFeature reports whether the set activates a feature.
func (s ActivationSet) HasFeature(name string) bool {
	_, ok := slices.BinarySearch(s.Features, name)
	return ok
}

func depKeys(deps []Dependency) []string {
	keys := make([]string, len(deps))
	for i, d := range deps {
		keys[i] = d.Key()
	}
	return keys
}

// subset reports whether every element of a (sorted) appears in b (sorted).
func subset(a, b []string) bool {
	i := 0
	for _, want := range a {
		for i < len(b) && b[i] < want {
			i++
		}
		if i >= len(b) || b[i] != want {
			return false
		}
		i++
	}
	return true
}

// Reduce collapses features that add nothing of their own onto the
// feature that provides them, removing the collapsed vertices from the
// graph. It returns, for each surviving vertex ("" included), the
// sorted features it transitively provides.
//
// Two reductions happen. Features with identical edges are collapsed
// onto the lexically first of their group. Features with no crate
// dependencies and at most one named feature edge are provided by that
// feature, or by "" when they name none.
func (g *FeatureGraph) Reduce() map[string][]string {
	shapeOwner := make(map[string]string)
	for _, f := range g.Features() {
		if f == "" {
			continue
		}
		v := g.vertices[f]
		k := v.shape()
		if first, ok := shapeOwner[k]; ok {
			g.vertices[f] = vertex{features: []string{"", first}}
		} else {
			shapeOwner[k] = f
		}
	}

	provided := make(map[string][]string)
	for _, f := range g.Features() {
		if f == "" {
			continue
		}
		v := g.vertices[f]
		if len(v.deps) != 0 {
			continue
		}
		switch len(v.features) {
		case 1:
			provided[""] = append(provided[""], f)
			delete(g.vertices, f)
		case 2:
			provided[v.features[1]] = append(provided[v.features[1]], f)
			delete(g.vertices, f)
		}
	}

	result := make(map[string][]string)
	for _, f := range g.Features() {
		list := flattenProvides(provided, f)
		if len(list) > 0 {
			sort.Strings(list)
			result[f] = list
		}
	}
	return result
}

func flattenProvides(provided map[string][]string, f string) []string {
	var out []string
	for _, p := range provided[f] {
		out = append(out, p)
		out = append(out, flattenProvides(provided, p)...)
	}
	return out
}
