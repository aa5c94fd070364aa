package debian

import (
	"fmt"
	"strconv"
	"strings"
)

// Relation is the comparison a Clause applies to its bound.
type Relation int

const (
	// RelNone means the clause accepts any version of its package.
	RelNone Relation = iota
	// RelGE is the inclusive lower bound ">=".
	RelGE
	// RelLT is the exclusive upper bound "<<".
	RelLT
)

func (r Relation) String() string {
	switch r {
	case RelGE:
		return ">="
	case RelLT:
		return "<<"
	}
	return ""
}

// Clause is one alternative of a Constraint: a single package name with
// at most one explicit version restriction.
//
// The version series embedded in the package name already bounds the
// candidate set on both sides, so Relation and Bound only ever tighten
// one side within the series. A range that needs explicit bounds on
// both sides is split across consecutive series alternatives instead;
// Debian relationship syntax admits only one restriction per package
// name, and the split keeps every alternative expressible.
type Clause struct {
	// Package is the full binary package name, including any version
	// series and feature components, e.g. "librust-serde-1+derive-dev".
	Package string

	// Series is the version prefix embedded in Package, e.g. "1" or
	// "0.3". Empty when the package name carries no series.
	Series string

	Relation Relation

	// Bound is a dotted version number without the "-~~" marker, which
	// is attached at render time. Empty when Relation is RelNone.
	Bound string
}

// String renders the clause in control-file syntax. Bounds gain a
// "-~~" pseudo-revision so that any real Debian revision of the bound
// version satisfies a >= restriction and violates a << one.
func (c Clause) String() string {
	switch c.Relation {
	case RelGE:
		return fmt.Sprintf("%s (>= %s-~~)", c.Package, c.Bound)
	case RelLT:
		return fmt.Sprintf("%s (<< %s-~~)", c.Package, c.Bound)
	}
	return c.Package
}

// Validate checks that the clause admits at least one version. A
// clause whose explicit bound excludes its entire series can never be
// satisfied and must not be emitted.
func (c Clause) Validate() error {
	if c.Package == "" {
		return fmt.Errorf("clause has no package name")
	}
	if c.Relation == RelNone {
		if c.Bound != "" {
			return fmt.Errorf("clause %q has a bound but no relation", c.Package)
		}
		return nil
	}
	if c.Bound == "" {
		return fmt.Errorf("clause %q has relation %s but no bound", c.Package, c.Relation)
	}
	bound, err := parseDotted(c.Bound)
	if err != nil {
		return fmt.Errorf("clause %q: %w", c.Package, err)
	}
	if c.Series == "" {
		return nil
	}
	series, err := parseDotted(c.Series)
	if err != nil {
		return fmt.Errorf("clause %q: bad series: %w", c.Package, err)
	}
	switch c.Relation {
	case RelGE:
		// Unsatisfiable when the lower bound is at or past the series
		// ceiling.
		ceiling := append([]int(nil), series...)
		ceiling[len(ceiling)-1]++
		if compareDotted(bound, ceiling) >= 0 {
			return fmt.Errorf("clause %q: bound >= %s excludes series %s", c.Package, c.Bound, c.Series)
		}
	case RelLT:
		// Unsatisfiable when the upper bound is at or below the series
		// floor.
		if compareDotted(bound, series) <= 0 {
			return fmt.Errorf("clause %q: bound << %s excludes series %s", c.Package, c.Bound, c.Series)
		}
	}
	return nil
}

// Satisfies reports whether a version in Debian upstream form falls
// inside the range this clause admits.
func (c Clause) Satisfies(version string) (bool, error) {
	if c.Series != "" && !seriesContains(c.Series, version) {
		return false, nil
	}
	if c.Relation == RelNone {
		return true, nil
	}
	cmp, err := CompareVersions(version, c.Bound+"-~~")
	if err != nil {
		return false, err
	}
	switch c.Relation {
	case RelGE:
		return cmp >= 0, nil
	case RelLT:
		return cmp < 0, nil
	}
	return true, nil
}

// Constraint is the set of alternatives a single crate dependency
// translates to. Alternatives are rendered highest series first, so a
// resolver that takes the first match prefers the newest candidate.
type Constraint struct {
	Clauses []Clause
}

// String renders the constraint as one dependency entry, alternatives
// joined with " | ".
func (c Constraint) String() string {
	parts := make([]string, len(c.Clauses))
	for i, cl := range c.Clauses {
		parts[i] = cl.String()
	}
	return strings.Join(parts, " | ")
}

// Validate checks that the constraint has at least one alternative and
// that every alternative is satisfiable.
func (c Constraint) Validate() error {
	if len(c.Clauses) == 0 {
		return fmt.Errorf("constraint has no alternatives")
	}
	for _, cl := range c.Clauses {
		if err := cl.Validate(); err != nil {
			return err
		}
	}
	return nil
}

// Satisfies reports whether any alternative admits the given version.
func (c Constraint) Satisfies(version string) (bool, error) {
	for _, cl := range c.Clauses {
		ok, err := cl.Satisfies(version)
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}
	return false, nil
}

// AddNocheck marks every alternative of a rendered dependency entry
// with the <!nocheck> build profile.
func AddNocheck(entry string) string {
	parts := strings.Split(entry, "|")
	for i, p := range parts {
		parts[i] = strings.TrimRight(p, " ") + " <!nocheck> "
	}
	return strings.TrimRight(strings.Join(parts, "|"), " ")
}

// parseDotted parses a dotted version number like "1.2" into its
// numeric components.
func parseDotted(s string) ([]int, error) {
	parts := strings.Split(s, ".")
	out := make([]int, len(parts))
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("not a dotted number: %q", s)
		}
		out[i] = n
	}
	return out, nil
}

// compareDotted orders two component slices, treating missing trailing
// components as zero.
func compareDotted(a, b []int) int {
	for i := 0; i < len(a) || i < len(b); i++ {
		var av, bv int
		if i < len(a) {
			av = a[i]
		}
		if i < len(b) {
			bv = b[i]
		}
		switch {
		case av < bv:
			return -1
		case av > bv:
			return 1
		}
	}
	return 0
}

// seriesContains reports whether a Debian upstream version lies inside
// a version series. Only the numeric prefix of each version component
// is considered, so "1.2.0~alpha" still counts as series "1.2".
func seriesContains(series, version string) bool {
	sp := strings.Split(series, ".")
	vp := strings.Split(version, ".")
	if len(vp) < len(sp) {
		return false
	}
	for i, s := range sp {
		n := leadingNumber(vp[i])
		if n != s {
			return false
		}
	}
	return true
}

func leadingNumber(s string) string {
	end := 0
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}
