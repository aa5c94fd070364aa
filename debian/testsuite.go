package debian

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"
)

// TestStanza is one autopkgtest paragraph of a debian/tests/control
// file, running the crate's test suite against one feature package.
type TestStanza struct {
	// Name is the binary package under test.
	Name      string
	CrateName string
	// Feature is empty for the bare library test.
	Feature string
	Version string
	// ExtraTestArgs are appended to the cargo-auto-test invocation,
	// e.g. "--no-default-features".
	ExtraTestArgs []string
	// Depends lists test dependencies beyond dh-cargo.
	Depends []string
	// ExtraRestricts are appended to the standard restrictions; broken
	// tests carry "flaky" here.
	ExtraRestricts []string
}

func (t *TestStanza) render(b *strings.Builder) {
	parts := []string{
		"/usr/share/cargo/bin/cargo-auto-test",
		t.CrateName,
		t.Version,
		"--all-targets",
	}
	parts = append(parts, t.ExtraTestArgs...)
	fmt.Fprintf(b, "Test-Command: %s\n", strings.Join(parts, " "))
	fmt.Fprintf(b, "Features: test-name=%s:%s\n", t.Name, t.Feature)

	// TODO: depend on just the tested package once rust-lang/cargo#5133
	// is fixed; "@" pulls in every binary package of the source
	// meanwhile, which makes the tests harder to install.
	depends := append([]string{"dh-cargo (>= 31)"}, t.Depends...)
	depends = append(depends, "@")
	fmt.Fprintf(b, "Depends: %s\n", strings.Join(depends, ", "))

	restricts := append([]string{"allow-stderr", "skip-not-installable"}, t.ExtraRestricts...)
	fmt.Fprintf(b, "Restrictions: %s\n", strings.Join(restricts, ", "))
}

// TestsuiteFile is a debian/tests/control file: one stanza per
// packaged feature.
type TestsuiteFile struct {
	Stanzas []*TestStanza
}

// Sort orders the stanzas with the bare library test first and the
// feature tests lexically after it.
func (t *TestsuiteFile) Sort() {
	slices.SortStableFunc(t.Stanzas, func(a, b *TestStanza) int {
		if (a.Feature == "") != (b.Feature == "") {
			if a.Feature == "" {
				return -1
			}
			return 1
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

// Render serializes the testsuite control file, stanzas separated by
// one blank line.
func (t *TestsuiteFile) Render() []byte {
	blocks := make([]string, len(t.Stanzas))
	for i, s := range t.Stanzas {
		var b strings.Builder
		s.render(&b)
		blocks[i] = b.String()
	}
	return []byte(strings.Join(blocks, "\n"))
}

// WriteTo writes the rendered file to the given writer.
func (t *TestsuiteFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(t.Render())
	return int64(n), err
}

// WriteFile writes the rendered file to the given path.
func (t *TestsuiteFile) WriteFile(path string) error {
	return os.WriteFile(path, t.Render(), controlPermissions)
}
