package crate

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
)

// Op is a requirement comparator operator.
type Op int

const (
	// OpCaret is "^1.2.3" and the bare default "1.2.3".
	OpCaret Op = iota
	// OpTilde is "~1.2.3".
	OpTilde
	// OpExact is "=1.2.3".
	OpExact
	// OpGreater is ">1.2.3".
	OpGreater
	// OpGreaterEq is ">=1.2.3".
	OpGreaterEq
	// OpLess is "<1.2.3".
	OpLess
	// OpLessEq is "<=1.2.3".
	OpLessEq
	// OpWildcard is a trailing-wildcard form such as "1.*" or "1.2.x".
	OpWildcard
)

// String returns the operator token as written in a requirement.
func (o Op) String() string {
	switch o {
	case OpCaret:
		return "^"
	case OpTilde:
		return "~"
	case OpExact:
		return "="
	case OpGreater:
		return ">"
	case OpGreaterEq:
		return ">="
	case OpLess:
		return "<"
	case OpLessEq:
		return "<="
	case OpWildcard:
		return "*"
	}
	return "?"
}

// Comparator is a single operator-version predicate within a requirement.
type Comparator struct {
	Op      Op
	Version Version
}

// Requirement is a version predicate as written in a manifest: a
// comma-joined conjunction of comparators, or the match-anything "*".
// Immutable once parsed.
type Requirement struct {
	raw         string
	comparators []Comparator
}

// comparatorRegex splits one comparator into operator token and version
// text. Longer operator tokens are listed first.
var comparatorRegex = regexp.MustCompile(`^(>=|<=|\^|~|=|>|<)?\s*(\S+)$`)

// ParseRequirement parses a requirement string such as "1.2", "^0.3.0",
// "~1.2.3", "=1.0.0", "1.*" or ">=1.2, <2.5". A bare version means caret.
func ParseRequirement(s string) (Requirement, error) {
	raw := strings.TrimSpace(s)
	if raw == "" {
		return Requirement{}, fmt.Errorf("empty requirement")
	}
	if raw == "*" || raw == "x" || raw == "X" {
		return Requirement{raw: "*"}, nil
	}
	parts := strings.Split(raw, ",")
	comps := make([]Comparator, 0, len(parts))
	for _, part := range parts {
		c, err := parseComparator(strings.TrimSpace(part))
		if err != nil {
			return Requirement{}, fmt.Errorf("invalid requirement %q: %w", s, err)
		}
		comps = append(comps, c)
	}
	return Requirement{raw: raw, comparators: comps}, nil
}

// MustRequirement parses a requirement or panics. Use only for
// constants/tests.
func MustRequirement(s string) Requirement {
	r, err := ParseRequirement(s)
	if err != nil {
		panic(err)
	}
	return r
}

func parseComparator(s string) (Comparator, error) {
	m := comparatorRegex.FindStringSubmatch(s)
	if m == nil {
		return Comparator{}, fmt.Errorf("malformed comparator %q", s)
	}
	token, vs := m[1], m[2]

	wildcard := false
	for _, suffix := range []string{".*", ".x", ".X"} {
		if strings.HasSuffix(vs, suffix) {
			vs = strings.TrimSuffix(vs, suffix)
			wildcard = true
			break
		}
	}
	switch {
	case vs == "*" || vs == "x" || vs == "X":
		return Comparator{}, fmt.Errorf("bare wildcard %q cannot be combined with other comparators", s)
	case wildcard && token != "":
		return Comparator{}, fmt.Errorf("wildcard %q cannot follow an operator", s)
	}

	v, err := ParseVersion(vs)
	if err != nil {
		return Comparator{}, err
	}
	if wildcard {
		if v.Arity() > 2 {
			return Comparator{}, fmt.Errorf("wildcard %q has too many components", s)
		}
		if v.IsPrerelease() {
			return Comparator{}, fmt.Errorf("wildcard %q cannot carry a pre-release tag", s)
		}
		return Comparator{Op: OpWildcard, Version: v}, nil
	}
	if v.IsPrerelease() && v.Arity() < 3 {
		return Comparator{}, fmt.Errorf("pre-release tag in %q requires a full three-component version", s)
	}

	op := OpCaret
	switch token {
	case "", "^":
		op = OpCaret
	case "~":
		op = OpTilde
	case "=":
		op = OpExact
	case ">":
		op = OpGreater
	case ">=":
		op = OpGreaterEq
	case "<":
		op = OpLess
	case "<=":
		op = OpLessEq
	}
	return Comparator{Op: op, Version: v}, nil
}

// String returns the requirement as written.
func (r Requirement) String() string {
	if r.raw == "" {
		return "*"
	}
	return r.raw
}

// IsAny reports whether the requirement matches every version ("*", or a
// dependency declared without a version).
func (r Requirement) IsAny() bool {
	return len(r.comparators) == 0
}

// Comparators returns a copy of the requirement's comparators. Empty for
// the match-anything requirement.
func (r Requirement) Comparators() []Comparator {
	return slices.Clone(r.comparators)
}

// Matches reports whether a version satisfies the requirement. All
// comparators must match, and a pre-release version additionally needs
// at least one comparator naming the same three components with a
// pre-release tag of its own.
func (r Requirement) Matches(v Version) bool {
	for _, c := range r.comparators {
		if !c.matches(v) {
			return false
		}
	}
	if !v.IsPrerelease() {
		return true
	}
	for _, c := range r.comparators {
		cv := c.Version
		if cv.IsPrerelease() && cv.Arity() == 3 &&
			cv.Major() == v.Major() && cv.Minor() == v.Minor() && cv.Patch() == v.Patch() {
			return true
		}
	}
	return false
}

func (c Comparator) matches(v Version) bool {
	switch c.Op {
	case OpExact, OpWildcard:
		return c.matchesExact(v)
	case OpGreater:
		return c.matchesGreater(v)
	case OpGreaterEq:
		return c.matchesExact(v) || c.matchesGreater(v)
	case OpLess:
		return c.matchesLess(v)
	case OpLessEq:
		return c.matchesExact(v) || c.matchesLess(v)
	case OpTilde:
		return c.matchesTilde(v)
	case OpCaret:
		return c.matchesCaret(v)
	}
	return false
}

// matchesExact compares only the components the comparator spells out.
func (c Comparator) matchesExact(v Version) bool {
	cv := c.Version
	if v.Major() != cv.Major() {
		return false
	}
	if cv.Arity() >= 2 && v.Minor() != cv.Minor() {
		return false
	}
	if cv.Arity() >= 3 && v.Patch() != cv.Patch() {
		return false
	}
	return v.Prerelease() == cv.Prerelease()
}

func (c Comparator) matchesGreater(v Version) bool {
	cv := c.Version
	if v.Major() != cv.Major() {
		return v.Major() > cv.Major()
	}
	if cv.Arity() < 2 {
		return false
	}
	if v.Minor() != cv.Minor() {
		return v.Minor() > cv.Minor()
	}
	if cv.Arity() < 3 {
		return false
	}
	if v.Patch() != cv.Patch() {
		return v.Patch() > cv.Patch()
	}
	return prereleaseCompare(v.Prerelease(), cv.Prerelease()) > 0
}

func (c Comparator) matchesLess(v Version) bool {
	cv := c.Version
	if v.Major() != cv.Major() {
		return v.Major() < cv.Major()
	}
	if cv.Arity() < 2 {
		return false
	}
	if v.Minor() != cv.Minor() {
		return v.Minor() < cv.Minor()
	}
	if cv.Arity() < 3 {
		return false
	}
	if v.Patch() != cv.Patch() {
		return v.Patch() < cv.Patch()
	}
	return prereleaseCompare(v.Prerelease(), cv.Prerelease()) < 0
}

func (c Comparator) matchesTilde(v Version) bool {
	cv := c.Version
	if v.Major() != cv.Major() {
		return false
	}
	if cv.Arity() >= 2 && v.Minor() != cv.Minor() {
		return false
	}
	if cv.Arity() >= 3 && v.Patch() != cv.Patch() {
		return v.Patch() > cv.Patch()
	}
	return prereleaseCompare(v.Prerelease(), cv.Prerelease()) >= 0
}

func (c Comparator) matchesCaret(v Version) bool {
	cv := c.Version
	if v.Major() != cv.Major() {
		return false
	}
	if cv.Arity() < 2 {
		return true
	}
	if cv.Arity() < 3 {
		if cv.Major() > 0 {
			return v.Minor() >= cv.Minor()
		}
		return v.Minor() == cv.Minor()
	}
	switch {
	case cv.Major() > 0:
		if v.Minor() != cv.Minor() {
			return v.Minor() > cv.Minor()
		}
		if v.Patch() != cv.Patch() {
			return v.Patch() > cv.Patch()
		}
	case cv.Minor() > 0:
		if v.Minor() != cv.Minor() {
			return false
		}
		if v.Patch() != cv.Patch() {
			return v.Patch() > cv.Patch()
		}
	default:
		if v.Minor() != cv.Minor() || v.Patch() != cv.Patch() {
			return false
		}
	}
	return prereleaseCompare(v.Prerelease(), cv.Prerelease()) >= 0
}

// prereleaseCompare orders pre-release tags, with the empty tag (a plain
// release) above every pre-release.
func prereleaseCompare(a, b string) int {
	switch {
	case a == b:
		return 0
	case a == "":
		return 1
	case b == "":
		return -1
	}
	return comparePrerelease(a, b)
}
