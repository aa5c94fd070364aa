package cratedeb

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strings"

	"github.com/cratedeb/cratedeb/config"
	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/debian"
)

// ControlBundle is the generated packaging content for one crate
// release: the control file and, for library crates, the autopkgtest
// control file.
type ControlBundle struct {
	Control *debian.ControlFile

	// Tests is nil for crates that ship no library.
	Tests *debian.TestsuiteFile
}

// baseBuildDepends is the packaging toolchain every generated source
// package needs regardless of the crate's own dependencies.
var baseBuildDepends = []string{
	"debhelper (>= 12)",
	"dh-cargo (>= 25)",
}

// libBuildDepends is appended for library crates. A library source
// package only compiles anything when its tests run, so the Rust
// toolchain and the crate dependencies all carry the nocheck profile.
var libBuildDepends = []string{
	"cargo:native <!nocheck>",
	"rustc:native <!nocheck>",
	"libstd-rust-dev <!nocheck>",
}

// BuildPackages generates the control stanzas for one crate release.
//
// The bare library package carries the crate's unconditional
// dependencies; every feature surviving provides-reduction becomes a
// metapackage depending on its direct activations; executables get a
// package of their own when the config asks for one. Overrides from
// cfg apply last and always win; where an override contradicts a
// value derived from the manifest, a warning diagnostic records the
// detected value. Equal inputs render byte-identical output.
func BuildPackages(meta *crate.Metadata, cfg *config.Config, opts ...Option) (*ControlBundle, []Diagnostic, error) {
	opCfg, err := newOpConfig(opts...)
	if err != nil {
		return nil, nil, err
	}
	if meta == nil {
		return nil, nil, errors.New("stanza generation needs crate metadata")
	}
	if cfg == nil {
		cfg = config.Default()
	}

	policy := opCfg.policy
	if cfg.AllowPrereleaseDeps {
		policy.AllowPrerelease = true
	}
	b := &stanzaBuilder{
		meta:     meta,
		cfg:      cfg,
		policy:   policy,
		collapse: opCfg.collapseFeatures || cfg.CollapseFeatures,
		log:      opCfg.log(),
	}
	bundle, err := b.build()
	if err != nil {
		return nil, dedupDiagnostics(b.diags), err
	}
	return bundle, dedupDiagnostics(b.diags), nil
}

// stanzaBuilder carries the state of one BuildPackages run.
type stanzaBuilder struct {
	meta     *crate.Metadata
	cfg      *config.Config
	policy   Policy
	collapse bool
	log      *slog.Logger

	base    string
	suffix  string
	version string
	summary string
	body    string
	srcName string

	// devDepends are the translated dev-dependency entries; test
	// stanzas install them on top of the packages under test.
	devDepends []string

	diags []Diagnostic
}

func (b *stanzaBuilder) build() (*ControlBundle, error) {
	meta := b.meta
	b.base = debian.BaseName(meta.Name)
	b.version = meta.Version.String()
	if b.cfg.SemverSuffix {
		b.suffix = debian.SemverSuffix(meta.Version.Major(), meta.Version.Minor())
	}

	fg, dangling := crate.NewFeatureGraph(meta)
	if len(dangling) > 0 {
		seen := make(map[danglingKey]bool, len(dangling))
		for _, d := range dangling {
			seen[danglingKey{crate: meta.Name, feature: d.Feature, ref: d.Ref}] = true
		}
		b.diags = append(b.diags, danglingDiagnostics(seen)...)
	}

	// Closures and the feature list are taken before the reduction:
	// Reduce prunes the provided vertices from the graph.
	defaultSet := fg.Closure("default")
	allNamed := fg.Features()[1:]
	var collapsed []crate.Dependency
	if b.collapse {
		collapsed = allDeps(fg)
	}
	provides := fg.Reduce()

	lib := meta.HasLib
	bins := meta.Binaries
	if len(bins) > 0 && lib && !b.cfg.BuildBinPackage() {
		b.log.Debug("not packaging executables from a library crate",
			"crate", meta.Name, "binaries", strings.Join(bins, ", "))
		bins = nil
	}

	b.summary, b.body = meta.SummaryDescription()
	if b.summary == "" {
		b.summary = fmt.Sprintf("Rust crate %q", meta.Name)
		b.diags = append(b.diags, warnf(CodePlaceholder,
			"crate %s: manifest has no description, the summary is a placeholder", meta.Name))
	}
	b.conflict("summary", b.summary, b.cfg.Summary)
	b.conflict("description", b.body, b.cfg.Description)

	var err error
	if b.devDepends, err = b.translateDevDependencies(); err != nil {
		return nil, err
	}

	src, err := b.sourceStanza(lib, defaultSet.Dependencies)
	if err != nil {
		return nil, err
	}
	b.srcName = src.Name
	if !lib {
		b.diags = append(b.diags, fixmef(CodePlaceholder,
			"crate %s: no library target, the source section is a placeholder, set one under [source]", meta.Name))
	}

	ctrl := &debian.ControlFile{Source: src}
	var tests *debian.TestsuiteFile

	if lib {
		packages, suite, err := b.libraryStanzas(fg, provides, collapsed, defaultSet, allNamed)
		if err != nil {
			return nil, err
		}
		ctrl.Packages = append(ctrl.Packages, packages...)
		tests = suite
	}
	if len(bins) > 0 {
		ctrl.Packages = append(ctrl.Packages, b.binaryStanza(bins))
	}

	ctrl.Sort()
	if tests != nil {
		tests.Sort()
	}
	b.log.Debug("stanzas generated",
		"crate", meta.Name,
		"packages", len(ctrl.Packages),
		"warnings", len(b.diags))
	return &ControlBundle{Control: ctrl, Tests: tests}, nil
}

func (b *stanzaBuilder) translateDevDependencies() ([]string, error) {
	var devDeps []crate.Dependency
	for _, d := range b.meta.Dependencies {
		if d.Kind == crate.KindDev {
			devDeps = append(devDeps, d)
		}
	}
	entries, ds, err := TranslateDependencies(devDeps, b.policy)
	b.diags = append(b.diags, ds...)
	return entries, err
}

// sourceStanza builds the source paragraph. Its Build-Depends carry
// the default feature set's dependencies: that is what a source build
// resolves when it compiles the crate for its test suite.
func (b *stanzaBuilder) sourceStanza(lib bool, defaultDeps []crate.Dependency) (*debian.SourceStanza, error) {
	entries, ds, err := TranslateDependencies(defaultDeps, b.policy)
	b.diags = append(b.diags, ds...)
	if err != nil {
		return nil, err
	}

	buildDeps := slices.Clone(baseBuildDepends)
	if lib {
		buildDeps = append(buildDeps, libBuildDepends...)
		for _, e := range entries {
			buildDeps = append(buildDeps, debian.AddNocheck(e))
		}
	} else {
		buildDeps = append(buildDeps, entries...)
	}

	maintainer := b.cfg.Maintainer
	if maintainer == "" {
		maintainer = config.DefaultMaintainer
	}

	src := debian.NewSource(debian.SourceParams{
		Basename:     b.base,
		NameSuffix:   b.suffix,
		CrateName:    b.meta.Name,
		Homepage:     b.meta.Homepage,
		Lib:          lib,
		Maintainer:   maintainer,
		Uploaders:    b.cfg.Uploaders,
		BuildDepends: buildDeps,
	})

	if so := b.cfg.Source; so != nil {
		if so.Section != "" {
			src.Section = so.Section
		}
		if so.Policy != "" {
			src.StandardsVersion = so.Policy
		}
		for _, e := range so.BuildDepends {
			if slices.Contains(src.BuildDepends, e) {
				b.diags = append(b.diags, warnf(CodeOverrideConflict,
					"crate %s: build_depends override repeats the generated entry %q", b.meta.Name, e))
				continue
			}
			src.BuildDepends = append(src.BuildDepends, e)
		}
		if len(so.BuildDependsExcludes) > 0 {
			src.BuildDepends = slices.DeleteFunc(src.BuildDepends, func(e string) bool {
				return slices.Contains(so.BuildDependsExcludes, e)
			})
		}
		b.conflict("homepage", src.Homepage, so.Homepage)
		if so.Homepage != "" {
			src.Homepage = so.Homepage
		}
		if so.VcsGit != "" {
			src.VcsGit = so.VcsGit
		}
		if so.VcsBrowser != "" {
			src.VcsBrowser = so.VcsBrowser
		}
	}
	if b.cfg.RequiresRoot != "" {
		src.RequiresRoot = b.cfg.RequiresRoot
	}
	return src, nil
}

// libraryStanzas builds the bare library package, one metapackage per
// surviving feature, and the matching test stanzas.
func (b *stanzaBuilder) libraryStanzas(fg *crate.FeatureGraph, provides map[string][]string, collapsed []crate.Dependency, defaultSet crate.ActivationSet, allNamed []string) ([]*debian.PackageStanza, *debian.TestsuiteFile, error) {
	_, bareDeps, _ := fg.Vertex("")
	mainDeps := bareDeps
	mainProvides := provides[""]
	features := fg.Features()[1:]
	if b.collapse {
		mainDeps = collapsed
		mainProvides = allNamed
		features = nil
	}

	entries, ds, err := TranslateDependencies(mainDeps, b.policy)
	b.diags = append(b.diags, ds...)
	if err != nil {
		return nil, nil, err
	}

	// Features outside the default set are worth pointing at; the
	// default set itself comes in through the recommended +default.
	var suggested []string
	for _, f := range allNamed {
		if !defaultSet.HasFeature(f) {
			suggested = append(suggested, f)
		}
	}

	main, err := debian.NewPackage(debian.PackageParams{
		Basename:            b.base,
		NameSuffix:          b.suffix,
		Version:             b.version,
		Summary:             debian.Description{Prefix: b.summary, Suffix: " - Rust source code"},
		Description:         debian.Description{Prefix: b.body, Suffix: b.librarySuffix()},
		OtherDepends:        entries,
		ProvidedFeatures:    mainProvides,
		RecommendedFeatures: []string{"default"},
		SuggestedFeatures:   suggested,
	})
	if err != nil {
		return nil, nil, err
	}
	b.applyPackageOverrides(main, config.KeyLib, mainProvides)
	packages := []*debian.PackageStanza{main}

	suite := &debian.TestsuiteFile{}
	b.addTest(suite, main.Name, "", []string{"--no-default-features"}, config.KeyLib, mainProvides)
	b.addTest(suite, b.srcName, "@", []string{"--all-features"}, config.KeyLib, mainProvides)

	for _, f := range features {
		refs, deps, _ := fg.Vertex(f)
		fEntries, ds, err := TranslateDependencies(deps, b.policy)
		b.diags = append(b.diags, ds...)
		if err != nil {
			return nil, nil, err
		}
		p, err := debian.NewPackage(debian.PackageParams{
			Basename:         b.base,
			NameSuffix:       b.suffix,
			Version:          b.version,
			Feature:          f,
			Summary:          debian.Description{Prefix: b.summary, Suffix: fmt.Sprintf(" - feature %q", f)},
			Description:      debian.Description{Suffix: b.featureSuffix(f)},
			FeatureDepends:   refs,
			OtherDepends:     fEntries,
			ProvidedFeatures: provides[f],
		})
		if err != nil {
			return nil, nil, err
		}
		b.applyPackageOverrides(p, config.FeatureKey(f), provides[f])
		packages = append(packages, p)
		b.addTest(suite, p.Name, f,
			[]string{"--no-default-features", "--features " + f},
			config.FeatureKey(f), provides[f])
	}
	return packages, suite, nil
}

func (b *stanzaBuilder) binaryStanza(bins []string) *debian.PackageStanza {
	name := b.cfg.BinNameFor(b.base)
	desc := debian.Description{Prefix: b.body}
	if len(bins) > 1 || bins[0] != name {
		desc.Suffix = fmt.Sprintf(
			"\n\nThis package contains the following binaries built from the Rust %q crate:\n- %s",
			b.meta.Name, strings.Join(bins, "\n- "))
	}
	p := debian.NewBinaryPackage(debian.BinaryParams{
		Basename:    name,
		NameSuffix:  b.suffix,
		Summary:     debian.Description{Prefix: b.summary},
		Description: desc,
	})
	b.applyPackageOverrides(p, config.KeyBin, nil)
	return p
}

func (b *stanzaBuilder) addTest(suite *debian.TestsuiteFile, pkg, feature string, args []string, key config.PackageKey, provides []string) {
	depends := b.devDepends
	if over, ok := b.cfg.TestDepends(key, provides); ok {
		depends = over
	}
	var restricts []string
	if b.cfg.TestIsBroken(key, provides) {
		restricts = []string{"flaky"}
	}
	suite.Stanzas = append(suite.Stanzas, &debian.TestStanza{
		Name:           pkg,
		CrateName:      b.meta.Name,
		Feature:        feature,
		Version:        b.version,
		ExtraTestArgs:  args,
		Depends:        depends,
		ExtraRestricts: restricts,
	})
}

// applyPackageOverrides layers the config's package paragraph over a
// generated stanza. Section, summary and description replace the
// generated values; the list fields append, skipping entries the
// generator already emitted.
func (b *stanzaBuilder) applyPackageOverrides(p *debian.PackageStanza, key config.PackageKey, provides []string) {
	cfg := b.cfg
	var perSummary, perDescription string
	if o := cfg.Package(key); o != nil {
		if o.Section != "" {
			p.Section = o.Section
		}
		perSummary = o.Summary
		perDescription = o.Description
		b.conflict("summary", p.Summary.Prefix, o.Summary)
		b.conflict("description", p.Description.Prefix, o.Description)
		p.ExtraLines = append(p.ExtraLines, o.ExtraLines...)
	}
	p.Summary.ApplyOverride(cfg.Summary, perSummary)
	p.Description.ApplyOverride(cfg.Description, perDescription)

	b.extendList(&p.Depends, "depends", key, provides, func(o *config.PackageOverride) []string { return o.Depends })
	b.extendList(&p.Recommends, "recommends", key, provides, func(o *config.PackageOverride) []string { return o.Recommends })
	b.extendList(&p.Suggests, "suggests", key, provides, func(o *config.PackageOverride) []string { return o.Suggests })
	b.extendList(&p.Provides, "provides", key, provides, func(o *config.PackageOverride) []string { return o.Provides })

	if p.SummaryOverLength() {
		b.diags = append(b.diags, warnf(CodeLongSummary,
			"crate %s: summary for %s exceeds 80 columns, shorten it with an override", b.meta.Name, p.Name))
	}
}

func (b *stanzaBuilder) extendList(dst *[]string, field string, key config.PackageKey, provides []string, get func(*config.PackageOverride) []string) {
	for _, e := range b.cfg.MergedList(key, provides, get) {
		if slices.Contains(*dst, e) {
			b.diags = append(b.diags, warnf(CodeOverrideConflict,
				"crate %s: %s override repeats the generated entry %q", b.meta.Name, field, e))
			continue
		}
		*dst = append(*dst, e)
	}
}

func (b *stanzaBuilder) conflict(field, detected, override string) {
	if override == "" || detected == "" || override == detected {
		return
	}
	oc := &OverrideConflict{Field: field, Detected: detected, Override: override}
	b.diags = append(b.diags, warnf(CodeOverrideConflict, "crate %s: %v", b.meta.Name, oc))
}

func (b *stanzaBuilder) librarySuffix() string {
	return fmt.Sprintf(
		"\n\nThis package contains the source for the Rust %s crate, packaged by cratedeb for use with cargo and dh-cargo.",
		b.meta.Name)
}

func (b *stanzaBuilder) featureSuffix(f string) string {
	return fmt.Sprintf(
		"This metapackage enables feature %q for the Rust %s crate, by pulling in any additional dependencies needed by that feature.",
		f, b.meta.Name)
}
