package debian

import (
	"fmt"
	"strings"
)

const (
	sourcePrefix  = "rust"
	packagePrefix = "librust"
)

// BaseName normalizes a crate or feature name for use in a Debian
// package name: lowercased, underscores become hyphens.
func BaseName(name string) string {
	return strings.ToLower(strings.ReplaceAll(name, "_", "-"))
}

// SourceName returns the source package name for a (possibly
// semver-suffixed) package base name.
func SourceName(pkgbase string) string {
	return fmt.Sprintf("%s-%s", sourcePrefix, BaseName(pkgbase))
}

// LibName returns the development library package name.
func LibName(pkgbase string) string {
	return fmt.Sprintf("%s-%s-dev", packagePrefix, BaseName(pkgbase))
}

// FeatureName returns the package name of one feature of a library.
func FeatureName(pkgbase, feature string) string {
	return fmt.Sprintf("%s-%s+%s-dev", packagePrefix, BaseName(pkgbase), BaseName(feature))
}

// SemverSuffix returns the name suffix that pins a package to its
// release series: "-1" for 1.x.y, "-0.3" for 0.3.x. Major version zero
// promotes the minor component to the series identifier.
func SemverSuffix(major, minor int) string {
	if major == 0 {
		return fmt.Sprintf("-0.%d", minor)
	}
	return fmt.Sprintf("-%d", major)
}

// pinned renders a same-source dependency entry, locked to the exact
// binary version.
func pinned(pkgbase, feature string) string {
	name := LibName(pkgbase)
	if feature != "" {
		name = FeatureName(pkgbase, feature)
	}
	return name + " (= ${binary:Version})"
}
