package cratedeb

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"

	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/debian"
)

// TranslateRequirement translates one version requirement on a crate
// into a Debian dependency constraint. The feature argument selects the
// target package family: "" for the bare library package, a feature
// name for its feature package.
//
// Cargo requirements and Debian relations do not line up one to one.
// A requirement spanning several release series becomes one clause per
// series, joined as alternatives with the highest series first. A
// requirement Debian cannot express at all either fails with
// *UnrepresentablePredicate or, where a looser dependency is safe,
// degrades with a warning diagnostic.
func TranslateRequirement(req crate.Requirement, crateName, feature string, policy Policy) (debian.Constraint, []Diagnostic, error) {
	if req.IsAny() {
		// A wildcard admits any release series. Only the packager can
		// know which series the archive actually carries, so emit the
		// unversioned name and flag it.
		d := fixmef(CodeUnrepresentable,
			"crate %s: requirement %q matches any version; pin the wanted series by hand", crateName, req)
		c := debian.Constraint{Clauses: []debian.Clause{{Package: featurePackage(crateName, "", feature)}}}
		return c, []Diagnostic{d}, nil
	}

	var (
		r      vrange
		diags  []Diagnostic
		reqStr = req.String()
	)
	for _, cmp := range req.Comparators() {
		coerced, ds, err := coerceComparator(cmp, crateName, reqStr, policy)
		diags = append(diags, ds...)
		if err != nil {
			return debian.Constraint{}, diags, err
		}
		if err := foldComparator(&r, coerced, crateName, reqStr); err != nil {
			return debian.Constraint{}, diags, err
		}
	}

	clauses, err := r.clauses(crateName, feature)
	if err != nil {
		return debian.Constraint{}, diags, fmt.Errorf("crate %s: requirement %q: %w", crateName, reqStr, err)
	}
	return debian.Constraint{Clauses: clauses}, diags, nil
}

// TranslateDependency translates one dependency declaration into its
// control-file entries: one constraint per requested feature of the
// target crate, all sharing the requirement's version interval. A
// declaration requesting no features depends on the bare library
// package alone.
func TranslateDependency(dep crate.Dependency, policy Policy) ([]debian.Constraint, []Diagnostic, error) {
	features := make([]string, 0, len(dep.Features)+1)
	if dep.DefaultFeatures {
		features = append(features, "default")
	}
	features = append(features, dep.Features...)
	if len(features) == 0 {
		features = []string{""}
	}

	var (
		out   []debian.Constraint
		diags []Diagnostic
	)
	for _, f := range features {
		c, ds, err := TranslateRequirement(dep.Req, dep.Name, f, policy)
		diags = append(diags, ds...)
		if err != nil {
			return nil, diags, err
		}
		out = append(out, c)
	}
	return out, dedupDiagnostics(diags), nil
}

// TranslateDependencies renders a dependency list as sorted,
// deduplicated control-file entries. Identical entries from different
// declarations collapse into one; distinct constraints on the same
// crate stay separate and must all hold.
func TranslateDependencies(deps []crate.Dependency, policy Policy) ([]string, []Diagnostic, error) {
	var (
		entries []string
		diags   []Diagnostic
	)
	for _, dep := range deps {
		cs, ds, err := TranslateDependency(dep, policy)
		diags = append(diags, ds...)
		if err != nil {
			return nil, diags, err
		}
		for _, c := range cs {
			entries = append(entries, c.String())
		}
	}
	sort.Strings(entries)
	entries = slices.Compact(entries)
	return entries, dedupDiagnostics(diags), nil
}

// coerceComparator vets one comparator against what Debian relations
// can express. Pre-release bounds and ">= 0" have no equivalent; the
// policy decides between failing and degrading with a warning.
func coerceComparator(c crate.Comparator, crateName, reqStr string, policy Policy) (crate.Comparator, []Diagnostic, error) {
	var diags []Diagnostic
	if c.Version.IsPrerelease() {
		if !policy.AllowPrerelease {
			return c, nil, &UnrepresentablePredicate{Crate: crateName, Requirement: reqStr}
		}
		stripped := c.Version.WithoutPrerelease()
		diags = append(diags, warnf(CodePrereleaseStripped,
			"crate %s: treating pre-release bound %s as %s", crateName, c.Version, stripped))
		c.Version = stripped
	}
	if c.Op == crate.OpGreaterEq && c.Version.Arity() == 1 && c.Version.IsZero() {
		// ">= 0" admits pre-releases of 0.0.0, which Debian version
		// ordering cannot reach. "> 0" is the closest expressible bound.
		diags = append(diags, warnf(CodeZeroBoundCoerced,
			"crate %s: treating requirement \">= 0\" as \"> 0\"", crateName))
		c.Op = crate.OpGreater
	}
	return c, diags, nil
}

// vrange is the version interval a requirement folds into: an optional
// inclusive floor and an optional exclusive ceiling.
type vrange struct {
	ge *crate.Version
	lt *crate.Version
}

// constrainGE keeps the highest floor seen so far.
func (r *vrange) constrainGE(v crate.Version) {
	if r.ge == nil || r.ge.Compare(v) <= 0 {
		r.ge = &v
	}
}

// constrainLT keeps the lowest ceiling seen so far.
func (r *vrange) constrainLT(v crate.Version) {
	if r.lt == nil || v.Compare(*r.lt) < 0 {
		r.lt = &v
	}
}

// foldComparator narrows the interval by one comparator, mirroring how
// cargo interprets each operator.
func foldComparator(r *vrange, c crate.Comparator, crateName, reqStr string) error {
	v := c.Version
	switch c.Op {
	case crate.OpLess:
		if v.IsZero() {
			// "< 0" admits nothing at all.
			return &UnrepresentablePredicate{Crate: crateName, Requirement: reqStr}
		}
		r.constrainLT(v)
	case crate.OpLessEq:
		r.constrainLT(v.NextAfter())
	case crate.OpGreater:
		r.constrainGE(v.NextAfter())
	case crate.OpGreaterEq:
		r.constrainGE(v)
	case crate.OpExact, crate.OpWildcard:
		r.constrainGE(v)
		r.constrainLT(v.NextAfter())
	case crate.OpTilde:
		r.constrainGE(v)
		if v.Arity() >= 3 {
			r.constrainLT(v.Truncate(2).NextAfter())
		} else {
			r.constrainLT(v.NextAfter())
		}
	case crate.OpCaret:
		r.constrainGE(v)
		switch {
		case v.Arity() >= 3 && v.Major() == 0 && v.Minor() == 0:
			r.constrainLT(v.NextAfter())
		case v.Arity() >= 2 && v.Major() == 0:
			r.constrainLT(v.Truncate(2).NextAfter())
		default:
			r.constrainLT(v.Truncate(1).NextAfter())
		}
	}
	return nil
}

// boundedSeries is one release series slot of a double-bounded
// interval: the series version, and the bound that applies within it
// (RelNone for fully covered interior series).
type boundedSeries struct {
	series crate.Version
	rel    debian.Relation
	bound  *crate.Version
}

// expand splits a double-bounded interval into per-series slots at the
// coarsest granularity where the bounds differ. The floor lands in the
// first series, the ceiling in the last, and everything between is
// covered whole.
func (r *vrange) expand() ([]boundedSeries, error) {
	ge, lt := *r.ge, *r.lt
	if ge.Compare(lt) >= 0 {
		return nil, fmt.Errorf("contradictory version range (>= %s and << %s)", ge, lt)
	}

	var out []boundedSeries
	switch {
	case ge.Major() < lt.Major():
		out = append(out, boundedSeries{ge.Truncate(1), debian.RelGE, &ge})
		for m := ge.Major() + 1; m < lt.Major(); m++ {
			out = append(out, boundedSeries{dotted(m), debian.RelNone, nil})
		}
		out = append(out, boundedSeries{lt.Truncate(1), debian.RelLT, &lt})
	case ge.Minor() < lt.Minor():
		out = append(out, boundedSeries{ge.Truncate(2), debian.RelGE, &ge})
		for m := ge.Minor() + 1; m < lt.Minor(); m++ {
			out = append(out, boundedSeries{dotted(ge.Major(), m), debian.RelNone, nil})
		}
		out = append(out, boundedSeries{lt.Truncate(2), debian.RelLT, &lt})
	default:
		out = append(out, boundedSeries{ge.Truncate(3), debian.RelGE, &ge})
		for p := ge.Patch() + 1; p < lt.Patch(); p++ {
			out = append(out, boundedSeries{dotted(ge.Major(), ge.Minor(), p), debian.RelNone, nil})
		}
		out = append(out, boundedSeries{lt.Truncate(3), debian.RelLT, &lt})
	}
	return out, nil
}

// clauses renders the folded interval against one package family.
func (r *vrange) clauses(crateName, feature string) ([]debian.Clause, error) {
	switch {
	case r.ge == nil && r.lt == nil:
		return []debian.Clause{{Package: featurePackage(crateName, "", feature)}}, nil
	case r.lt == nil:
		return []debian.Clause{{
			Package:  featurePackage(crateName, "", feature),
			Relation: debian.RelGE,
			Bound:    r.ge.String(),
		}}, nil
	case r.ge == nil:
		return []debian.Clause{{
			Package:  featurePackage(crateName, "", feature),
			Relation: debian.RelLT,
			Bound:    r.lt.String(),
		}}, nil
	}

	series, err := r.expand()
	if err != nil {
		return nil, err
	}

	// Highest series first, so a resolver taking the first installable
	// alternative prefers the newest candidate.
	clauses := make([]debian.Clause, 0, len(series))
	for i := len(series) - 1; i >= 0; i-- {
		s := series[i]
		cl := debian.Clause{
			Package: featurePackage(crateName, s.series.String(), feature),
			Series:  s.series.String(),
		}
		if s.bound != nil {
			if s.bound.Compare(s.series) == 0 {
				if s.rel == debian.RelLT {
					// A ceiling at the series floor leaves nothing of
					// the series.
					continue
				}
				// A floor at the series floor is implied by the name.
			} else {
				cl.Relation = s.rel
				cl.Bound = s.bound.String()
			}
		}
		clauses = append(clauses, cl)
	}
	return clauses, nil
}

// featurePackage names the dependency target: the crate's library
// package for feature "", its feature package otherwise, within the
// given release series ("" for the unversioned family).
func featurePackage(crateName, series, feature string) string {
	base := crateName
	if series != "" {
		base += "-" + series
	}
	if feature == "" {
		return debian.LibName(base)
	}
	return debian.FeatureName(base, feature)
}

// dotted builds a version with exactly the given components.
func dotted(parts ...int) crate.Version {
	strs := make([]string, len(parts))
	for i, p := range parts {
		strs[i] = strconv.Itoa(p)
	}
	v, err := crate.ParseVersion(strings.Join(strs, "."))
	if err != nil {
		panic(err)
	}
	return v
}
