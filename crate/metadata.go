// Package crate models the source ecosystem: crate versions, version
// requirements as manifests spell them, dependency metadata and the
// feature activation graph.
//
// The package is pure. Nothing here performs I/O or holds global state,
// and every resolution result is a function of its inputs. Nothing here
// knows about Debian packaging either; the translation layer in the
// repository root is the only place both worlds meet.
//
// # Types
//
// The main types are:
//   - [Version]: an arity-preserving crate version ("1.2" is not "1.2.0")
//   - [Requirement]: a version predicate ("^1.2", ">=1.2, <2.5", "1.*")
//   - [Metadata]: one crate release with its dependencies and features
//   - [FeatureGraph]: the feature activation graph of a release
//   - [ActivationSet]: the closure of a set of activated features
package crate

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
	"unicode/utf8"
)

// DependencyKind classifies how a dependency takes part in a build.
type DependencyKind int

const (
	// KindNormal dependencies are needed to compile the crate's code.
	KindNormal DependencyKind = iota
	// KindBuild dependencies are needed by build scripts. They behave
	// like normal dependencies for packaging purposes.
	KindBuild
	// KindDev dependencies are needed only by tests and benches and are
	// excluded from resolution.
	KindDev
)

// String returns the kind as the registry spells it.
func (k DependencyKind) String() string {
	switch k {
	case KindBuild:
		return "build"
	case KindDev:
		return "dev"
	}
	return "normal"
}

// Dependency is one dependency declaration of a crate release.
type Dependency struct {
	// Name is the crate's name in the registry.
	Name string
	// Rename is the name the manifest refers to the dependency by, when
	// it differs from Name.
	Rename string
	// Req is the declared version requirement.
	Req Requirement
	// Kind tells normal, build and dev dependencies apart.
	Kind DependencyKind
	// Optional dependencies are activated through features only.
	Optional bool
	// DefaultFeatures is false when the manifest opts out of the
	// dependency's default features.
	DefaultFeatures bool
	// Features lists the dependency features the manifest asks for.
	Features []string
	// Target is the cfg expression of a target-specific dependency,
	// empty for unconditional ones.
	Target string
}

// NameInManifest returns the name feature edges refer to the dependency
// by: the rename when one is declared, the crate name otherwise.
func (d Dependency) NameInManifest() string {
	if d.Rename != "" {
		return d.Rename
	}
	return d.Name
}

// Key renders the dependency's identity as a deterministic string:
// two dependencies with the same key activate the same thing. Usable
// as a map key.
func (d Dependency) Key() string {
	var b strings.Builder
	b.WriteString(d.Name)
	b.WriteByte(0x1f)
	b.WriteString(d.Req.String())
	b.WriteByte(0x1f)
	b.WriteString(d.Kind.String())
	if d.Optional {
		b.WriteString("?")
	}
	if d.DefaultFeatures {
		b.WriteString("+d")
	}
	b.WriteByte(0x1f)
	b.WriteString(strings.Join(d.Features, ","))
	b.WriteByte(0x1f)
	b.WriteString(d.Target)
	return b.String()
}

// Metadata describes one crate release as resolution sees it. Fields are
// filled by a fetcher or manifest parser and treated as read-only
// afterwards.
type Metadata struct {
	Name         string
	Version      Version
	Description  string
	Homepage     string
	Repository   string
	Dependencies []Dependency
	// Features maps each declared feature to its raw edge strings, as
	// written in the manifest.
	Features map[string][]string
	// HasLib is true when the release builds a library target. Registry
	// metadata cannot tell, so fetchers default it to true.
	HasLib bool
	// Binaries lists binary target names.
	Binaries []string
}

// RequiredDependencies returns the non-optional, non-dev dependencies:
// what building the crate always needs.
func (m *Metadata) RequiredDependencies() []Dependency {
	var out []Dependency
	for _, d := range m.Dependencies {
		if d.Kind != KindDev && !d.Optional {
			out = append(out, d)
		}
	}
	return out
}

// descriptionLeadPatterns strip the crate restating its own name,
// leading articles, and "Rust library for" style openers.
var descriptionLeadPatterns = []string{
	`^(?i:(%s|This(\s+\w+)?)(\s*,|\s+is|\s+provides)\s+)`,
	`^(?i:(a|an|the)\s+)`,
	`^(?i:(rust\s+)?(implementation|library|tool|crate)\s+(of|to|for)\s+)`,
}

// SummaryDescription derives a one-line summary and a longer body from
// the crate description. Paragraph breaks survive as newlines in the
// body; the summary is the first sentence or first paragraph, whichever
// ends sooner, with boilerplate lead-ins stripped.
func (m *Metadata) SummaryDescription() (summary, body string) {
	desc := strings.ReplaceAll(m.Description, "\n\n", "\r")
	desc = strings.ReplaceAll(desc, "\n", " ")
	desc = strings.ReplaceAll(desc, "\r", "\n")
	desc = strings.TrimSpace(desc)

	for i, pattern := range descriptionLeadPatterns {
		if i == 0 {
			pattern = fmt.Sprintf(pattern, regexp.QuoteMeta(m.Name))
		}
		desc = regexp.MustCompile(pattern).ReplaceAllString(desc, "")
	}
	desc = capitalizeFirst(desc)

	sentence := strings.Index(desc, ". ")
	paragraph := strings.Index(desc, "\n")
	switch {
	case sentence >= 0 && (paragraph < 0 || sentence < paragraph):
		return desc[:sentence], strings.TrimSpace(desc[sentence+2:])
	case paragraph >= 0:
		return strings.TrimSuffix(desc[:paragraph], "."), strings.TrimSpace(desc[paragraph+1:])
	}
	return strings.TrimSuffix(desc, "."), ""
}

func capitalizeFirst(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	if r == utf8.RuneError {
		return s
	}
	return string(unicode.ToUpper(r)) + s[size:]
}
