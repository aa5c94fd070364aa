package cratedeb

import (
	"bytes"
	"slices"
	"strings"
	"testing"

	"github.com/cratedeb/cratedeb/config"
	"github.com/cratedeb/cratedeb/crate"
	"github.com/cratedeb/cratedeb/debian"
)

// demoMeta is a library crate with a required dependency, an optional
// dependency behind a feature, and a dev-dependency for its tests.
func demoMeta(t *testing.T) *crate.Metadata {
	t.Helper()
	return &crate.Metadata{
		Name:        "demo",
		Version:     crate.MustVersion("1.2.3"),
		Description: "A fast demo library. It does things.",
		Homepage:    "https://example.org/demo",
		Dependencies: []crate.Dependency{
			{Name: "itoa", Req: mustReq(t, "^1"), DefaultFeatures: true},
			{Name: "serde", Req: mustReq(t, "^1.0.100"), Optional: true, DefaultFeatures: true},
			{Name: "tempfile", Req: mustReq(t, "^3"), Kind: crate.KindDev, DefaultFeatures: true},
		},
		Features: map[string][]string{
			"default":       {"std"},
			"std":           {},
			"serde-support": {"dep:serde", "std"},
		},
		HasLib: true,
	}
}

func packageNames(ctrl *debian.ControlFile) []string {
	names := make([]string, len(ctrl.Packages))
	for i, p := range ctrl.Packages {
		names[i] = p.Name
	}
	return names
}

func findPackage(t *testing.T, ctrl *debian.ControlFile, name string) *debian.PackageStanza {
	t.Helper()
	for _, p := range ctrl.Packages {
		if p.Name == name {
			return p
		}
	}
	t.Fatalf("no package %s in %v", name, packageNames(ctrl))
	return nil
}

func diagCount(diags []Diagnostic, code string) int {
	n := 0
	for _, d := range diags {
		if d.Code == code {
			n++
		}
	}
	return n
}

func TestBuildPackagesLibrary(t *testing.T) {
	bundle, diags, err := BuildPackages(demoMeta(t), nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	if len(diags) != 0 {
		t.Fatalf("diagnostics = %v, want none", diags)
	}

	src := bundle.Control.Source
	if src.Name != "rust-demo" {
		t.Errorf("source name = %s, want rust-demo", src.Name)
	}
	if src.Section != "rust" {
		t.Errorf("section = %s, want rust", src.Section)
	}
	if src.Maintainer != config.DefaultMaintainer {
		t.Errorf("maintainer = %q, want the team default", src.Maintainer)
	}
	if src.CrateName != "demo" {
		t.Errorf("crate name = %s, want demo", src.CrateName)
	}
	if src.Homepage != "https://example.org/demo" {
		t.Errorf("homepage = %s", src.Homepage)
	}
	wantBuildDeps := []string{
		"debhelper (>= 12)",
		"dh-cargo (>= 25)",
		"cargo:native <!nocheck>",
		"rustc:native <!nocheck>",
		"libstd-rust-dev <!nocheck>",
		"librust-itoa-1+default-dev <!nocheck>",
	}
	if !slices.Equal(src.BuildDepends, wantBuildDeps) {
		t.Errorf("build depends = %v, want %v", src.BuildDepends, wantBuildDeps)
	}

	// default and std add nothing of their own, so the bare library
	// provides them and only serde and serde-support keep packages.
	wantNames := []string{
		"librust-demo-dev",
		"librust-demo+serde-dev",
		"librust-demo+serde-support-dev",
	}
	if got := packageNames(bundle.Control); !slices.Equal(got, wantNames) {
		t.Fatalf("packages = %v, want %v", got, wantNames)
	}

	main := findPackage(t, bundle.Control, "librust-demo-dev")
	if main.Classification != debian.ClassMain {
		t.Errorf("classification = %v, want main", main.Classification)
	}
	wantDepends := []string{"${misc:Depends}", "librust-itoa-1+default-dev"}
	if !slices.Equal(main.Depends, wantDepends) {
		t.Errorf("depends = %v, want %v", main.Depends, wantDepends)
	}
	if len(main.Recommends) != 0 {
		t.Errorf("recommends = %v, want none, the bare package provides default", main.Recommends)
	}
	wantSuggests := []string{
		"librust-demo+serde-dev (= ${binary:Version})",
		"librust-demo+serde-support-dev (= ${binary:Version})",
	}
	if !slices.Equal(main.Suggests, wantSuggests) {
		t.Errorf("suggests = %v, want %v", main.Suggests, wantSuggests)
	}
	if len(main.Provides) != 11 {
		t.Errorf("provides has %d entries, want 11: %v", len(main.Provides), main.Provides)
	}
	for _, want := range []string{
		"librust-demo+default-dev (= ${binary:Version})",
		"librust-demo+std-dev (= ${binary:Version})",
		"librust-demo-1.2.3+std-dev (= ${binary:Version})",
		"librust-demo-1-dev (= ${binary:Version})",
	} {
		if !slices.Contains(main.Provides, want) {
			t.Errorf("provides misses %q", want)
		}
	}
	if slices.Contains(main.Provides, "librust-demo-dev (= ${binary:Version})") {
		t.Errorf("provides lists the package itself")
	}
	if got := main.Summary.String(); got != "Fast demo library - Rust source code" {
		t.Errorf("summary = %q", got)
	}
	if main.Description.Prefix != "It does things." {
		t.Errorf("description prefix = %q", main.Description.Prefix)
	}
	if !strings.Contains(main.Description.Suffix, "source for the Rust demo crate") {
		t.Errorf("description suffix = %q", main.Description.Suffix)
	}

	serde := findPackage(t, bundle.Control, "librust-demo+serde-dev")
	if serde.Classification != debian.ClassFeatureGroup {
		t.Errorf("serde classification = %v", serde.Classification)
	}
	wantSerdeDepends := []string{
		"${misc:Depends}",
		"librust-demo-dev (= ${binary:Version})",
		"librust-serde-1+default-dev (>= 1.0.100-~~)",
	}
	if !slices.Equal(serde.Depends, wantSerdeDepends) {
		t.Errorf("serde depends = %v, want %v", serde.Depends, wantSerdeDepends)
	}
	if got := serde.Summary.String(); got != `Fast demo library - feature "serde"` {
		t.Errorf("serde summary = %q", got)
	}

	// serde-support still names std even though std collapsed into the
	// bare package; the provides entry up there satisfies the pin.
	support := findPackage(t, bundle.Control, "librust-demo+serde-support-dev")
	wantSupportDepends := []string{
		"${misc:Depends}",
		"librust-demo-dev (= ${binary:Version})",
		"librust-demo+std-dev (= ${binary:Version})",
		"librust-serde-1+default-dev (>= 1.0.100-~~)",
	}
	if !slices.Equal(support.Depends, wantSupportDepends) {
		t.Errorf("serde-support depends = %v, want %v", support.Depends, wantSupportDepends)
	}

	if bundle.Tests == nil {
		t.Fatal("library crate has no test suite")
	}
	stanzas := bundle.Tests.Stanzas
	wantTests := []string{
		"librust-demo-dev",
		"librust-demo+serde-dev",
		"librust-demo+serde-support-dev",
		"rust-demo",
	}
	gotTests := make([]string, len(stanzas))
	for i, s := range stanzas {
		gotTests[i] = s.Name
	}
	if !slices.Equal(gotTests, wantTests) {
		t.Fatalf("test stanzas = %v, want %v", gotTests, wantTests)
	}
	bare := stanzas[0]
	if bare.Feature != "" {
		t.Errorf("first stanza tests feature %q, want the bare library", bare.Feature)
	}
	if !slices.Equal(bare.Depends, []string{"librust-tempfile-3+default-dev"}) {
		t.Errorf("test depends = %v, want the dev-dependency", bare.Depends)
	}
	if !slices.Equal(bare.ExtraTestArgs, []string{"--no-default-features"}) {
		t.Errorf("bare test args = %v", bare.ExtraTestArgs)
	}
	all := stanzas[3]
	if all.Feature != "@" {
		t.Errorf("last stanza feature = %q, want @", all.Feature)
	}
	if !slices.Equal(all.ExtraTestArgs, []string{"--all-features"}) {
		t.Errorf("all-features args = %v", all.ExtraTestArgs)
	}
}

// A crate whose default feature only pulls in an optional dependency
// keeps no default package; the feature package provides it instead.
func TestBuildPackagesDefaultProvidedByFeature(t *testing.T) {
	meta := &crate.Metadata{
		Name:    "demo",
		Version: crate.MustVersion("1.2.3"),
		Dependencies: []crate.Dependency{
			{Name: "serde", Req: mustReq(t, "^1.0.100"), Optional: true, DefaultFeatures: true},
		},
		Features: map[string][]string{
			"default": {"serde"},
		},
		HasLib: true,
	}
	bundle, _, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	wantNames := []string{"librust-demo-dev", "librust-demo+serde-dev"}
	if got := packageNames(bundle.Control); !slices.Equal(got, wantNames) {
		t.Fatalf("packages = %v, want %v", got, wantNames)
	}

	main := findPackage(t, bundle.Control, "librust-demo-dev")
	wantRecommends := []string{"librust-demo+default-dev (= ${binary:Version})"}
	if !slices.Equal(main.Recommends, wantRecommends) {
		t.Errorf("recommends = %v, want %v", main.Recommends, wantRecommends)
	}
	if len(main.Suggests) != 0 {
		t.Errorf("suggests = %v, want none", main.Suggests)
	}

	serde := findPackage(t, bundle.Control, "librust-demo+serde-dev")
	for _, want := range []string{
		"librust-demo+default-dev (= ${binary:Version})",
		"librust-demo-1.2.3+default-dev (= ${binary:Version})",
	} {
		if !slices.Contains(serde.Provides, want) {
			t.Errorf("serde provides misses %q, have %v", want, serde.Provides)
		}
	}
}

// A default feature that activates more than one thing keeps its own
// metapackage, and features with identical activations collapse onto
// the lexically first of them.
func TestBuildPackagesDefaultPackage(t *testing.T) {
	meta := &crate.Metadata{
		Name:    "demo",
		Version: crate.MustVersion("1.2.3"),
		Dependencies: []crate.Dependency{
			{Name: "itoa", Req: mustReq(t, "^1"), DefaultFeatures: true},
			{Name: "serde", Req: mustReq(t, "^1.0.100"), Optional: true, DefaultFeatures: true},
		},
		Features: map[string][]string{
			"default":       {"std", "serde-support"},
			"std":           {},
			"serde-support": {"dep:serde"},
		},
		HasLib: true,
	}
	bundle, _, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	wantNames := []string{
		"librust-demo-dev",
		"librust-demo+default-dev",
		"librust-demo+serde-dev",
	}
	if got := packageNames(bundle.Control); !slices.Equal(got, wantNames) {
		t.Fatalf("packages = %v, want %v", got, wantNames)
	}

	def := findPackage(t, bundle.Control, "librust-demo+default-dev")
	if def.Classification != debian.ClassDefault {
		t.Errorf("classification = %v, want default", def.Classification)
	}
	wantDepends := []string{
		"${misc:Depends}",
		"librust-demo-dev (= ${binary:Version})",
		"librust-demo+std-dev (= ${binary:Version})",
		"librust-demo+serde-support-dev (= ${binary:Version})",
	}
	if !slices.Equal(def.Depends, wantDepends) {
		t.Errorf("default depends = %v, want %v", def.Depends, wantDepends)
	}

	main := findPackage(t, bundle.Control, "librust-demo-dev")
	wantRecommends := []string{"librust-demo+default-dev (= ${binary:Version})"}
	if !slices.Equal(main.Recommends, wantRecommends) {
		t.Errorf("recommends = %v, want %v", main.Recommends, wantRecommends)
	}
	wantSuggests := []string{"librust-demo+serde-dev (= ${binary:Version})"}
	if !slices.Equal(main.Suggests, wantSuggests) {
		t.Errorf("suggests = %v, want %v", main.Suggests, wantSuggests)
	}
	if !slices.Contains(main.Provides, "librust-demo+std-dev (= ${binary:Version})") {
		t.Errorf("main provides misses std, have %v", main.Provides)
	}

	// serde-support collapsed onto serde, so the serde package provides it.
	serde := findPackage(t, bundle.Control, "librust-demo+serde-dev")
	if !slices.Contains(serde.Provides, "librust-demo+serde-support-dev (= ${binary:Version})") {
		t.Errorf("serde provides misses serde-support, have %v", serde.Provides)
	}

	// The default feature set reaches serde, so a source build needs it.
	if !slices.Contains(bundle.Control.Source.BuildDepends,
		"librust-serde-1+default-dev (>= 1.0.100-~~) <!nocheck>") {
		t.Errorf("build depends = %v, want the serde entry", bundle.Control.Source.BuildDepends)
	}
}

func TestBuildPackagesCollapseFeatures(t *testing.T) {
	for _, tc := range []struct {
		name string
		cfg  *config.Config
		opts []Option
	}{
		{name: "config", cfg: &config.Config{CollapseFeatures: true}},
		{name: "option", opts: []Option{WithCollapseFeatures()}},
	} {
		t.Run(tc.name, func(t *testing.T) {
			bundle, diags, err := BuildPackages(demoMeta(t), tc.cfg, tc.opts...)
			if err != nil {
				t.Fatalf("BuildPackages: %v", err)
			}
			if len(diags) != 0 {
				t.Fatalf("diagnostics = %v, want none", diags)
			}

			if got := packageNames(bundle.Control); !slices.Equal(got, []string{"librust-demo-dev"}) {
				t.Fatalf("packages = %v, want the bare library only", got)
			}
			main := bundle.Control.Packages[0]
			wantDepends := []string{
				"${misc:Depends}",
				"librust-itoa-1+default-dev",
				"librust-serde-1+default-dev (>= 1.0.100-~~)",
			}
			if !slices.Equal(main.Depends, wantDepends) {
				t.Errorf("depends = %v, want %v", main.Depends, wantDepends)
			}
			if len(main.Recommends) != 0 || len(main.Suggests) != 0 {
				t.Errorf("recommends = %v, suggests = %v, want none", main.Recommends, main.Suggests)
			}
			// 4 version suffixes times the bare name and 4 features,
			// minus the package's own name.
			if len(main.Provides) != 19 {
				t.Errorf("provides has %d entries, want 19: %v", len(main.Provides), main.Provides)
			}
			if !slices.Contains(main.Provides, "librust-demo+serde-support-dev (= ${binary:Version})") {
				t.Errorf("provides misses serde-support")
			}

			if got := len(bundle.Tests.Stanzas); got != 2 {
				t.Fatalf("test stanzas = %d, want bare and all-features only", got)
			}
		})
	}
}

func TestBuildPackagesSemverSuffix(t *testing.T) {
	bundle, _, err := BuildPackages(demoMeta(t), &config.Config{SemverSuffix: true})
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	src := bundle.Control.Source
	if src.Name != "rust-demo-1" {
		t.Errorf("source name = %s, want rust-demo-1", src.Name)
	}
	if !strings.Contains(src.VcsGit, "src/demo-1") {
		t.Errorf("vcs git = %q, want the suffixed directory", src.VcsGit)
	}

	wantNames := []string{
		"librust-demo-1-dev",
		"librust-demo-1+serde-dev",
		"librust-demo-1+serde-support-dev",
	}
	if got := packageNames(bundle.Control); !slices.Equal(got, wantNames) {
		t.Fatalf("packages = %v, want %v", got, wantNames)
	}

	main := findPackage(t, bundle.Control, "librust-demo-1-dev")
	wantExtra := []string{
		"Replaces: librust-demo-1.2.3-dev",
		"Breaks: librust-demo-1.2.3-dev",
	}
	if !slices.Equal(main.ExtraLines, wantExtra) {
		t.Errorf("extra lines = %v, want %v", main.ExtraLines, wantExtra)
	}
	if !slices.Contains(main.Provides, "librust-demo-dev (= ${binary:Version})") {
		t.Errorf("provides misses the unsuffixed name, have %v", main.Provides)
	}

	serde := findPackage(t, bundle.Control, "librust-demo-1+serde-dev")
	if !slices.Contains(serde.Depends, "librust-demo-1-dev (= ${binary:Version})") {
		t.Errorf("serde depends = %v, want the suffixed bare pin", serde.Depends)
	}
}

func TestBuildPackagesExecutables(t *testing.T) {
	meta := demoMeta(t)
	meta.Binaries = []string{"demo"}

	// Packaging executables is the default for unsuffixed crates.
	bundle, _, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	wantNames := []string{
		"librust-demo-dev",
		"librust-demo+serde-dev",
		"librust-demo+serde-support-dev",
		"demo",
	}
	if got := packageNames(bundle.Control); !slices.Equal(got, wantNames) {
		t.Fatalf("packages = %v, want %v", got, wantNames)
	}
	bin := findPackage(t, bundle.Control, "demo")
	if bin.Classification != debian.ClassBinary {
		t.Errorf("classification = %v, want binary", bin.Classification)
	}
	if bin.MultiArch != "allowed" {
		t.Errorf("multi-arch = %s, want allowed", bin.MultiArch)
	}
	if !slices.Equal(bin.Provides, []string{"${cargo:Provides}"}) {
		t.Errorf("provides = %v", bin.Provides)
	}
	if bin.Description.Suffix != "" {
		t.Errorf("single matching binary needs no listing, got %q", bin.Description.Suffix)
	}

	// A semver-suffixed library keeps its executables out.
	bundle, _, err = BuildPackages(meta, &config.Config{SemverSuffix: true})
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	for _, name := range packageNames(bundle.Control) {
		if name == "demo" || name == "demo-1" {
			t.Fatalf("suffixed build still packages executables: %v", packageNames(bundle.Control))
		}
	}

	// Multiple binaries under a renamed package get listed.
	meta.Binaries = []string{"demo", "demo-helper"}
	bundle, _, err = BuildPackages(meta, &config.Config{BinName: "demo-tools"})
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	bin = findPackage(t, bundle.Control, "demo-tools")
	if !strings.Contains(bin.Description.Suffix, `binaries built from the Rust "demo" crate`) {
		t.Errorf("description suffix = %q", bin.Description.Suffix)
	}
	if !strings.Contains(bin.Description.Suffix, "- demo\n- demo-helper") {
		t.Errorf("description suffix misses the binary list: %q", bin.Description.Suffix)
	}
}

func TestBuildPackagesBinaryOnlyCrate(t *testing.T) {
	meta := &crate.Metadata{
		Name:        "mytool",
		Version:     crate.MustVersion("0.5.1"),
		Description: "A tool. Does tool things.",
		Binaries:    []string{"mytool"},
	}
	bundle, diags, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	src := bundle.Control.Source
	if src.Section != "FIXME-IN-THE-SOURCE-SECTION" {
		t.Errorf("section = %q, want the placeholder", src.Section)
	}
	wantBuildDeps := []string{"debhelper (>= 12)", "dh-cargo (>= 25)"}
	if !slices.Equal(src.BuildDepends, wantBuildDeps) {
		t.Errorf("build depends = %v, want %v", src.BuildDepends, wantBuildDeps)
	}

	if got := packageNames(bundle.Control); !slices.Equal(got, []string{"mytool"}) {
		t.Fatalf("packages = %v, want mytool only", got)
	}
	bin := bundle.Control.Packages[0]
	wantDepends := []string{"${misc:Depends}", "${shlibs:Depends}", "${cargo:Depends}"}
	if !slices.Equal(bin.Depends, wantDepends) {
		t.Errorf("depends = %v, want %v", bin.Depends, wantDepends)
	}
	if got := bin.Summary.String(); got != "Tool" {
		t.Errorf("summary = %q, want Tool", got)
	}

	if bundle.Tests != nil {
		t.Errorf("crate without a library got a test suite")
	}

	if n := diagCount(diags, CodePlaceholder); n != 1 {
		t.Fatalf("placeholder diagnostics = %d, want 1: %v", n, diags)
	}
	for _, d := range diags {
		if d.Code == CodePlaceholder && !d.Fixme {
			t.Errorf("placeholder diagnostic not marked as a FIXME: %+v", d)
		}
	}
}

func TestBuildPackagesOverrides(t *testing.T) {
	cfg := &config.Config{
		Summary:      "Speedy demo bits",
		Description:  "Hand-written body.",
		RequiresRoot: "binary-targets",
		Source: &config.SourceOverride{
			Section:              "net",
			Policy:               "4.7.0",
			Homepage:             "https://override.example.net",
			BuildDepends:         []string{"cmake", "debhelper (>= 12)"},
			BuildDependsExcludes: []string{"libstd-rust-dev <!nocheck>"},
		},
		Packages: map[string]*config.PackageOverride{
			"lib": {
				Depends:    []string{"libfoo-dev", "${misc:Depends}"},
				ExtraLines: []string{"X-Custom: yes"},
			},
			"lib+serde": {
				Summary: "Serde glue for demo",
			},
		},
	}
	bundle, diags, err := BuildPackages(demoMeta(t), cfg)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	src := bundle.Control.Source
	if src.Section != "net" {
		t.Errorf("section = %s, want net", src.Section)
	}
	if src.StandardsVersion != "4.7.0" {
		t.Errorf("standards version = %s, want 4.7.0", src.StandardsVersion)
	}
	if src.Homepage != "https://override.example.net" {
		t.Errorf("homepage = %s", src.Homepage)
	}
	if src.RequiresRoot != "binary-targets" {
		t.Errorf("requires root = %s", src.RequiresRoot)
	}
	wantBuildDeps := []string{
		"debhelper (>= 12)",
		"dh-cargo (>= 25)",
		"cargo:native <!nocheck>",
		"rustc:native <!nocheck>",
		"librust-itoa-1+default-dev <!nocheck>",
		"cmake",
	}
	if !slices.Equal(src.BuildDepends, wantBuildDeps) {
		t.Errorf("build depends = %v, want %v", src.BuildDepends, wantBuildDeps)
	}

	main := findPackage(t, bundle.Control, "librust-demo-dev")
	if got := main.Summary.String(); got != "Speedy demo bits - Rust source code" {
		t.Errorf("summary = %q, the global override keeps the suffix", got)
	}
	if main.Description.Prefix != "Hand-written body." {
		t.Errorf("description prefix = %q", main.Description.Prefix)
	}
	if main.Description.Suffix == "" {
		t.Errorf("global description override dropped the boilerplate suffix")
	}
	wantDepends := []string{"${misc:Depends}", "librust-itoa-1+default-dev", "libfoo-dev"}
	if !slices.Equal(main.Depends, wantDepends) {
		t.Errorf("depends = %v, want %v", main.Depends, wantDepends)
	}
	if !slices.Equal(main.ExtraLines, []string{"X-Custom: yes"}) {
		t.Errorf("extra lines = %v", main.ExtraLines)
	}

	serde := findPackage(t, bundle.Control, "librust-demo+serde-dev")
	if got := serde.Summary.String(); got != "Serde glue for demo" {
		t.Errorf("serde summary = %q, the package override replaces the whole line", got)
	}

	// Every contradiction between the manifest and the config leaves a
	// trace: summary, description and homepage replacements, plus the
	// two redundant list entries.
	if n := diagCount(diags, CodeOverrideConflict); n != 6 {
		t.Fatalf("override conflicts = %d, want 6: %v", n, diags)
	}
	var messages []string
	for _, d := range diags {
		messages = append(messages, d.Message)
	}
	joined := strings.Join(messages, "\n")
	for _, want := range []string{
		`override for summary replaces detected value "Fast demo library"`,
		`build_depends override repeats the generated entry "debhelper (>= 12)"`,
		`depends override repeats the generated entry "${misc:Depends}"`,
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("diagnostics miss %q:\n%s", want, joined)
		}
	}
}

func TestBuildPackagesTestOverrides(t *testing.T) {
	broken := true
	cfg := &config.Config{
		Packages: map[string]*config.PackageOverride{
			// std is provided by the bare library, so its paragraph
			// applies to the bare library's test.
			"lib+std":   {TestIsBroken: &broken},
			"lib+serde": {TestDepends: []string{"custom-tester"}},
		},
	}
	bundle, _, err := BuildPackages(demoMeta(t), cfg)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}

	stanzas := bundle.Tests.Stanzas
	bare := stanzas[0]
	if !slices.Equal(bare.ExtraRestricts, []string{"flaky"}) {
		t.Errorf("bare restricts = %v, want flaky", bare.ExtraRestricts)
	}
	if !slices.Equal(bare.Depends, []string{"librust-tempfile-3+default-dev"}) {
		t.Errorf("bare depends = %v", bare.Depends)
	}
	all := stanzas[3]
	if all.Feature != "@" {
		t.Fatalf("stanza order changed: %v", stanzas)
	}
	if !slices.Equal(all.ExtraRestricts, []string{"flaky"}) {
		t.Errorf("all-features restricts = %v, want flaky", all.ExtraRestricts)
	}

	serde := stanzas[1]
	if serde.Feature != "serde" {
		t.Fatalf("stanza order changed: %v", stanzas)
	}
	if !slices.Equal(serde.Depends, []string{"custom-tester"}) {
		t.Errorf("serde depends = %v, want the override", serde.Depends)
	}
	if len(serde.ExtraRestricts) != 0 {
		t.Errorf("serde restricts = %v, want none", serde.ExtraRestricts)
	}

	// An empty test_depends list clears the dev-dependencies rather
	// than falling back to them.
	cfg = &config.Config{
		Packages: map[string]*config.PackageOverride{
			"lib": {TestDepends: []string{}},
		},
	}
	bundle, _, err = BuildPackages(demoMeta(t), cfg)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	if got := bundle.Tests.Stanzas[0].Depends; len(got) != 0 {
		t.Errorf("bare depends = %v, want none", got)
	}
}

func TestBuildPackagesPlaceholderSummary(t *testing.T) {
	meta := &crate.Metadata{
		Name:    "blank",
		Version: crate.MustVersion("0.1.0"),
		HasLib:  true,
	}
	bundle, diags, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	main := findPackage(t, bundle.Control, "librust-blank-dev")
	if got := main.Summary.String(); got != `Rust crate "blank" - Rust source code` {
		t.Errorf("summary = %q", got)
	}
	if n := diagCount(diags, CodePlaceholder); n != 1 {
		t.Fatalf("placeholder diagnostics = %d, want 1: %v", n, diags)
	}
}

func TestBuildPackagesLongSummary(t *testing.T) {
	meta := &crate.Metadata{
		Name:        "longish",
		Version:     crate.MustVersion("1.0.0"),
		Description: "A " + strings.Repeat("very ", 20) + "long thing",
		HasLib:      true,
	}
	_, diags, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	if n := diagCount(diags, CodeLongSummary); n != 1 {
		t.Fatalf("long-summary diagnostics = %d, want 1: %v", n, diags)
	}
	if !strings.Contains(diags[0].Message, "librust-longish-dev") {
		t.Errorf("diagnostic = %q, want the package name", diags[0].Message)
	}
}

func TestBuildPackagesDanglingFeature(t *testing.T) {
	meta := &crate.Metadata{
		Name:     "loose",
		Version:  crate.MustVersion("1.0.0"),
		Features: map[string][]string{"default": {"nosuch"}},
		HasLib:   true,
	}
	bundle, diags, err := BuildPackages(meta, nil)
	if err != nil {
		t.Fatalf("BuildPackages: %v", err)
	}
	if n := diagCount(diags, CodeDanglingFeature); n != 1 {
		t.Fatalf("dangling diagnostics = %d, want 1: %v", n, diags)
	}
	for _, part := range []string{"loose", `"default"`, `"nosuch"`} {
		if !strings.Contains(diags[0].Message, part) {
			t.Errorf("diagnostic %q misses %s", diags[0].Message, part)
		}
	}
	// The broken edge is dropped, not fatal.
	if got := packageNames(bundle.Control); !slices.Equal(got, []string{"librust-loose-dev"}) {
		t.Errorf("packages = %v", got)
	}
}

func TestBuildPackagesDeterministic(t *testing.T) {
	cfg := &config.Config{
		Uploaders: []string{"Jane Doe <jane@example.org>"},
		Packages: map[string]*config.PackageOverride{
			"lib": {Depends: []string{"libfoo-dev"}},
		},
	}
	meta := demoMeta(t)
	meta.Binaries = []string{"demo"}

	var control, tests []byte
	for i := 0; i < 5; i++ {
		bundle, _, err := BuildPackages(meta, cfg)
		if err != nil {
			t.Fatalf("BuildPackages: %v", err)
		}
		gotControl := bundle.Control.Render()
		gotTests := bundle.Tests.Render()
		if i == 0 {
			control, tests = gotControl, gotTests
			continue
		}
		if !bytes.Equal(gotControl, control) {
			t.Fatalf("control file changed between runs:\n%s\n---\n%s", control, gotControl)
		}
		if !bytes.Equal(gotTests, tests) {
			t.Fatalf("test suite changed between runs:\n%s\n---\n%s", tests, gotTests)
		}
	}
}

func TestBuildPackagesNilMetadata(t *testing.T) {
	_, _, err := BuildPackages(nil, nil)
	if err == nil || !strings.Contains(err.Error(), "crate metadata") {
		t.Fatalf("err = %v, want a metadata error", err)
	}
}
