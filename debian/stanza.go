package debian

import (
	"fmt"
	"slices"
	"strconv"
	"strings"
)

// Description is a two-part field value: the detected or overridden
// text plus a generated suffix. A per-package override replaces the
// whole field, a global override keeps the suffix.
type Description struct {
	Prefix string
	Suffix string
}

func (d Description) String() string {
	return d.Prefix + d.Suffix
}

// ApplyOverride merges override values into the description. Empty
// strings mean no override.
func (d *Description) ApplyOverride(global, perPackage string) {
	if perPackage != "" {
		d.Prefix = perPackage
		d.Suffix = ""
		return
	}
	if global != "" {
		d.Prefix = global
	}
}

// Classification tells what role a binary package plays for its crate.
type Classification int

const (
	// ClassMain is the bare library package carrying the crate source.
	ClassMain Classification = iota
	// ClassFeatureGroup is a metapackage enabling one feature.
	ClassFeatureGroup
	// ClassDefault is the metapackage for the default feature set. It
	// only exists when the default set pulls in dependencies beyond the
	// unconditional ones.
	ClassDefault
	// ClassBinary packages executables built from the crate.
	ClassBinary
)

func (c Classification) String() string {
	switch c {
	case ClassMain:
		return "main"
	case ClassFeatureGroup:
		return "feature"
	case ClassDefault:
		return "default"
	case ClassBinary:
		return "binary"
	}
	return fmt.Sprintf("Classification(%d)", int(c))
}

// SourceStanza is the source paragraph of a control file.
type SourceStanza struct {
	Name             string
	Section          string
	Priority         string
	Maintainer       string
	Uploaders        []string
	StandardsVersion string
	BuildDepends     []string
	VcsGit           string
	VcsBrowser       string
	Homepage         string
	CrateName        string
	RequiresRoot     string
}

// SourceParams carries the inputs for NewSource.
type SourceParams struct {
	// Basename is the crate's base package name, without any series
	// suffix.
	Basename string
	// NameSuffix is the series suffix including its leading hyphen,
	// e.g. "-1" or "-0.3". Empty when the package tracks the latest
	// version.
	NameSuffix string
	// CrateName is the exact upstream crate name.
	CrateName string
	Homepage  string
	// Lib selects the "rust" section; crates that only ship binaries
	// get a placeholder the maintainer has to fill in.
	Lib          bool
	Maintainer   string
	Uploaders    []string
	BuildDepends []string
}

// NewSource builds the source stanza with the team's conventional
// field values.
func NewSource(p SourceParams) *SourceStanza {
	pkgbase := p.Basename + p.NameSuffix
	section := "FIXME-IN-THE-SOURCE-SECTION"
	if p.Lib {
		section = "rust"
	}
	return &SourceStanza{
		Name:             SourceName(pkgbase),
		Section:          section,
		Priority:         "optional",
		Maintainer:       p.Maintainer,
		Uploaders:        slices.Clone(p.Uploaders),
		StandardsVersion: "4.6.0",
		BuildDepends:     slices.Clone(p.BuildDepends),
		VcsGit: fmt.Sprintf(
			"https://salsa.debian.org/rust-team/debcargo-conf.git [src/%s]", pkgbase),
		VcsBrowser: fmt.Sprintf(
			"https://salsa.debian.org/rust-team/debcargo-conf/tree/master/src/%s", pkgbase),
		Homepage:     p.Homepage,
		CrateName:    p.CrateName,
		RequiresRoot: "no",
	}
}

// PackageStanza is one binary package paragraph of a control file.
type PackageStanza struct {
	Name           string
	Classification Classification
	// Feature is the feature this stanza enables, empty for the main
	// library and for binary packages.
	Feature      string
	Architecture string
	MultiArch    string
	// Section is omitted from output when empty.
	Section     string
	Depends     []string
	Recommends  []string
	Suggests    []string
	Provides    []string
	Summary     Description
	Description Description
	ExtraLines  []string
}

// PackageParams carries the inputs for NewPackage.
type PackageParams struct {
	Basename   string
	NameSuffix string
	// Version is the full crate version, e.g. "1.2.3".
	Version     string
	Summary     Description
	Description Description
	// Feature is empty for the main library stanza.
	Feature string
	// FeatureDepends are sibling features this stanza's feature pulls
	// in, as raw feature names; "" stands for the bare library.
	FeatureDepends []string
	// OtherDepends are fully rendered dependency entries on other
	// crates' packages.
	OtherDepends []string
	// ProvidedFeatures are features this stanza satisfies without a
	// separate package existing for them.
	ProvidedFeatures []string
	// RecommendedFeatures and SuggestedFeatures only apply to the main
	// stanza; entries also listed in ProvidedFeatures are dropped.
	RecommendedFeatures []string
	SuggestedFeatures   []string
}

// NewPackage builds a library or feature package stanza.
func NewPackage(p PackageParams) (*PackageStanza, error) {
	major, minor, patch, err := versionComponents(p.Version)
	if err != nil {
		return nil, err
	}
	pkgbase := p.Basename + p.NameSuffix

	filterProvides := func(features []string) []string {
		var out []string
		for _, f := range features {
			if !slices.Contains(p.ProvidedFeatures, f) {
				out = append(out, pinned(pkgbase, f))
			}
		}
		return out
	}
	var recommends, suggests []string
	if p.Feature == "" {
		recommends = filterProvides(p.RecommendedFeatures)
		suggests = filterProvides(p.SuggestedFeatures)
	}

	// Provide every name a dependency clause could ask for: the
	// unversioned name and each series-qualified one, for the stanza's
	// own feature and everything it subsumes. The entry matching the
	// package's own name is dropped.
	versionSuffixes := []string{
		"",
		fmt.Sprintf("-%d", major),
		fmt.Sprintf("-%d.%d", major, minor),
		fmt.Sprintf("-%d.%d.%d", major, minor, patch),
	}
	var provides []string
	for _, suffix := range versionSuffixes {
		base := p.Basename + suffix
		provides = append(provides, pinned(base, p.Feature))
		for _, f := range p.ProvidedFeatures {
			provides = append(provides, pinned(base, f))
		}
	}
	self := pinned(pkgbase, p.Feature)
	if i := slices.Index(provides, self); i >= 0 {
		provides = slices.Delete(provides, i, i+1)
	}

	depends := []string{"${misc:Depends}"}
	if p.Feature != "" && !slices.Contains(p.FeatureDepends, "") {
		// dh-cargo symlinks the feature package's doc directory to the
		// bare library's, so the direct dependency must always be
		// there even when the feature only reaches it indirectly.
		depends = append(depends, pinned(pkgbase, ""))
	}
	for _, f := range p.FeatureDepends {
		depends = append(depends, pinned(pkgbase, f))
	}
	depends = append(depends, p.OtherDepends...)

	name := LibName(pkgbase)
	class := ClassMain
	switch p.Feature {
	case "":
	case "default":
		name = FeatureName(pkgbase, p.Feature)
		class = ClassDefault
	default:
		name = FeatureName(pkgbase, p.Feature)
		class = ClassFeatureGroup
	}

	var extra []string
	if p.NameSuffix != "" && p.Feature == "" {
		// The semver-suffixed package replaces the older fully
		// version-suffixed naming scheme.
		full := LibName(fmt.Sprintf("%s-%s", p.Basename, p.Version))
		extra = []string{"Replaces: " + full, "Breaks: " + full}
	}

	return &PackageStanza{
		Name:           name,
		Classification: class,
		Feature:        p.Feature,
		Architecture:   "any",
		// arch:any + M-A:same rather than arch:all: dpkg resolves an
		// arch:all package's dependencies with the build architecture
		// during cross-builds, which breaks host-architecture
		// resolution further down the dependency chain.
		MultiArch:   "same",
		Depends:     depends,
		Recommends:  recommends,
		Suggests:    suggests,
		Provides:    provides,
		Summary:     p.Summary,
		Description: p.Description,
		ExtraLines:  extra,
	}, nil
}

// BinaryParams carries the inputs for NewBinaryPackage.
type BinaryParams struct {
	// Basename is the binary package name; unlike library packages it
	// carries no "librust" prefix.
	Basename    string
	NameSuffix  string
	Section     string
	Summary     Description
	Description Description
}

// NewBinaryPackage builds the stanza packaging a crate's executables.
// Dependency information comes from dh-cargo's substitution variables
// at build time rather than from translated constraints.
func NewBinaryPackage(p BinaryParams) *PackageStanza {
	name := p.Basename + p.NameSuffix
	var provides []string
	if p.NameSuffix != "" {
		provides = append(provides, p.Basename+" (= ${binary:Version})")
	}
	provides = append(provides, "${cargo:Provides}")
	return &PackageStanza{
		Name:           name,
		Classification: ClassBinary,
		Architecture:   "any",
		MultiArch:      "allowed",
		Section:        p.Section,
		Depends: []string{
			"${misc:Depends}",
			"${shlibs:Depends}",
			"${cargo:Depends}",
		},
		Recommends:  []string{"${cargo:Recommends}"},
		Suggests:    []string{"${cargo:Suggests}"},
		Provides:    provides,
		Summary:     p.Summary,
		Description: p.Description,
		ExtraLines: []string{
			"Built-Using: ${cargo:Built-Using}",
			"XB-X-Cargo-Built-Using: ${cargo:X-Cargo-Built-Using}",
		},
	}
}

// SummaryOverLength reports whether the summary exceeds the 80 column
// limit lintian warns about. Only the detected or overridden part
// counts; the generated suffix is exempt.
func (p *PackageStanza) SummaryOverLength() bool {
	return len(p.Summary.Prefix) > 80
}

func versionComponents(v string) (major, minor, patch int, err error) {
	parts := strings.SplitN(v, ".", 3)
	nums := [3]int{}
	for i := range parts {
		n := leadingNumber(parts[i])
		if n == "" {
			return 0, 0, 0, fmt.Errorf("version %q is not a dotted number", v)
		}
		nums[i], err = strconv.Atoi(n)
		if err != nil {
			return 0, 0, 0, fmt.Errorf("version %q is not a dotted number", v)
		}
	}
	return nums[0], nums[1], nums[2], nil
}
