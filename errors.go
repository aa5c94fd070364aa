package cratedeb

import (
	"errors"
	"fmt"
	"strings"

	"github.com/cratedeb/cratedeb/graph"
)

// Sentinel errors for common fetch failures.
var (
	// ErrCrateNotFound indicates the requested crate does not exist in
	// the consulted source.
	ErrCrateNotFound = errors.New("crate not found")

	// ErrVersionNotFound indicates no published version satisfies the
	// requested requirement.
	ErrVersionNotFound = errors.New("no version satisfies the requirement")
)

// UnrepresentablePredicate reports a version requirement that has no
// equivalent in Debian dependency syntax, such as a pre-release bound.
type UnrepresentablePredicate struct {
	// Crate is the dependency the requirement applies to.
	Crate string

	// Requirement is the requirement as written in the manifest.
	Requirement string
}

func (e *UnrepresentablePredicate) Error() string {
	return fmt.Sprintf("crate %s: requirement %q cannot be expressed as a Debian dependency", e.Crate, e.Requirement)
}

// DanglingFeatureReference reports a feature whose definition names a
// feature or dependency that the manifest does not declare.
type DanglingFeatureReference struct {
	// Feature is the feature whose definition contains the reference.
	Feature string

	// Ref is the undeclared name.
	Ref string
}

func (e *DanglingFeatureReference) Error() string {
	return fmt.Sprintf("feature %q references %q, which the manifest does not declare", e.Feature, e.Ref)
}

// FetchError wraps a failure to obtain crate metadata, recording which
// crate and version were being fetched.
type FetchError struct {
	// Name is the crate being fetched.
	Name string

	// Version is the requested version or requirement. May be empty
	// when the failure happened before a version was chosen.
	Version string

	// Err is the underlying failure.
	Err error
}

func (e *FetchError) Error() string {
	if e.Version == "" {
		return fmt.Sprintf("fetch crate %s: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("fetch crate %s %s: %v", e.Name, e.Version, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

// DependencyCycleError reports a dependency cycle that makes a build
// order impossible. Cycle holds the nodes along one offending loop in
// dependency order.
type DependencyCycleError struct {
	Cycle []graph.Node
}

func (e *DependencyCycleError) Error() string {
	var b strings.Builder
	b.WriteString("dependency cycle: ")
	for i, n := range e.Cycle {
		if i > 0 {
			b.WriteString(" -> ")
		}
		b.WriteString(n.String())
	}
	if len(e.Cycle) > 0 {
		b.WriteString(" -> ")
		b.WriteString(e.Cycle[0].String())
	}
	b.WriteString("\nthese crates cannot be ordered; patch one of them to drop the offending dependency and break the cycle")
	return b.String()
}

// OverrideConflict reports a configuration override that contradicts a
// value derived from the crate itself. It is surfaced as a diagnostic,
// not an error: the override wins.
type OverrideConflict struct {
	// Field is the overridden field.
	Field string

	// Detected is the value derived from the crate.
	Detected string

	// Override is the configured replacement.
	Override string
}

func (e *OverrideConflict) Error() string {
	return fmt.Sprintf("override for %s replaces detected value %q with %q", e.Field, e.Detected, e.Override)
}
