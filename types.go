package cratedeb

import (
	"fmt"
	"strings"

	"github.com/cratedeb/cratedeb/crate"
)

// DiagLevel classifies how much attention a diagnostic deserves.
type DiagLevel int

const (
	// LevelInfo marks observations that need no action.
	LevelInfo DiagLevel = iota

	// LevelWarning marks output that is usable but degraded, or that
	// contains a placeholder the packager must resolve.
	LevelWarning
)

// String returns "info" or "warning".
func (l DiagLevel) String() string {
	if l == LevelWarning {
		return "warning"
	}
	return "info"
}

// Diagnostic codes.
const (
	// CodeUnrepresentable marks requirements that degraded to a looser
	// Debian dependency than the manifest asked for.
	CodeUnrepresentable = "unrepresentable-requirement"

	// CodePrereleaseStripped marks a pre-release bound that was
	// flattened to its release version.
	CodePrereleaseStripped = "prerelease-stripped"

	// CodeZeroBoundCoerced marks a ">= 0" bound rewritten to "> 0".
	CodeZeroBoundCoerced = "zero-bound-coerced"

	// CodeDanglingFeature marks a feature definition referencing an
	// undeclared feature or dependency.
	CodeDanglingFeature = "dangling-feature"

	// CodeOverrideConflict marks an override that replaced a value
	// derived from the crate.
	CodeOverrideConflict = "override-conflict"

	// CodePlaceholder marks generated output containing a FIXME the
	// packager has to fill in.
	CodePlaceholder = "placeholder"

	// CodeLongSummary marks a crate description too long for the
	// control-file synopsis line.
	CodeLongSummary = "summary-too-long"
)

// Diagnostic is a non-fatal finding produced while translating or
// generating. Diagnostics never abort an operation; they tell the
// packager what to double-check.
type Diagnostic struct {
	Level   DiagLevel
	Code    string
	Message string

	// Fixme indicates the generated output contains a literal FIXME
	// placeholder corresponding to this diagnostic.
	Fixme bool
}

// String renders the diagnostic for terminal output.
func (d Diagnostic) String() string {
	s := fmt.Sprintf("%s [%s]: %s", d.Level, d.Code, d.Message)
	if d.Fixme {
		s += " (FIXME left in output)"
	}
	return s
}

func warnf(code, format string, args ...any) Diagnostic {
	return Diagnostic{Level: LevelWarning, Code: code, Message: fmt.Sprintf(format, args...)}
}

func fixmef(code, format string, args ...any) Diagnostic {
	d := warnf(code, format, args...)
	d.Fixme = true
	return d
}

// dedupDiagnostics removes exact duplicates, keeping first occurrences
// in order.
func dedupDiagnostics(diags []Diagnostic) []Diagnostic {
	if len(diags) < 2 {
		return diags
	}
	seen := make(map[Diagnostic]bool, len(diags))
	out := diags[:0]
	for _, d := range diags {
		if seen[d] {
			continue
		}
		seen[d] = true
		out = append(out, d)
	}
	return out
}

// Policy carries the translation knobs that change which requirements
// are accepted.
type Policy struct {
	// AllowPrerelease admits pre-release bounds by stripping the tag
	// and warning, instead of failing the translation.
	AllowPrerelease bool
}

// Mode selects which dependencies a build order must satisfy.
type Mode int

const (
	// SourceBuildDeps orders crates so that each one's source package
	// can build: only the dependencies its default features pull in
	// are required first.
	SourceBuildDeps Mode = iota

	// BinaryAllDeps additionally requires the dependencies reachable
	// through any feature, so that every feature package is
	// installable once the order completes. The extra dependencies are
	// followed but do not constrain the ordering.
	BinaryAllDeps
)

// String returns the mode's command-line token.
func (m Mode) String() string {
	if m == BinaryAllDeps {
		return "binary"
	}
	return "source"
}

// ParseMode parses a command-line mode token.
func ParseMode(s string) (Mode, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "source":
		return SourceBuildDeps, nil
	case "binary":
		return BinaryAllDeps, nil
	}
	return SourceBuildDeps, fmt.Errorf("unknown mode %q (want source or binary)", s)
}

// VersionInfo is one release in a fetcher's version listing.
type VersionInfo struct {
	Version crate.Version

	// Yanked releases remain listed but are never selected by a
	// requirement.
	Yanked bool
}

// Root identifies a crate to start an operation from: a name plus an
// optional requirement selecting the release.
type Root struct {
	Name string
	Req  crate.Requirement
}

// String renders the root as "name" or "name@requirement".
func (r Root) String() string {
	if r.Req.IsAny() {
		return r.Name
	}
	return r.Name + "@" + r.Req.String()
}

// ParseRoot parses "name" or "name@requirement". A bare name means the
// newest release.
func ParseRoot(s string) (Root, error) {
	name, reqStr, hasReq := strings.Cut(strings.TrimSpace(s), "@")
	if name == "" {
		return Root{}, fmt.Errorf("crate spec %q has no name", s)
	}
	if !hasReq {
		return Root{Name: name, Req: crate.Requirement{}}, nil
	}
	req, err := crate.ParseRequirement(reqStr)
	if err != nil {
		return Root{}, fmt.Errorf("crate spec %q: %w", s, err)
	}
	return Root{Name: name, Req: req}, nil
}
