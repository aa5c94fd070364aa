package debian

import (
	"cmp"
	"fmt"
	"io"
	"os"
	"slices"
	"strings"

	"github.com/mitchellh/go-wordwrap"
)

// controlPermissions is the file permission mode for rendered control
// files.
const controlPermissions = 0o644

// descriptionWidth is the fill width for long descriptions; the
// leading space added per line keeps the output within 80 columns.
const descriptionWidth = 79

// ControlFile is a full debian/control file: one source stanza and the
// binary package stanzas generated for a crate.
type ControlFile struct {
	Source   *SourceStanza
	Packages []*PackageStanza
}

// Sort puts the stanzas into their canonical order: the main library
// first, feature metapackages lexically by name, the binary package
// last. Rendering after Sort is byte-identical across runs.
func (c *ControlFile) Sort() {
	slices.SortStableFunc(c.Packages, func(a, b *PackageStanza) int {
		if d := cmp.Compare(classRank(a.Classification), classRank(b.Classification)); d != 0 {
			return d
		}
		return cmp.Compare(a.Name, b.Name)
	})
}

func classRank(c Classification) int {
	switch c {
	case ClassMain:
		return 0
	case ClassBinary:
		return 2
	}
	return 1
}

// Render serializes the control file. Paragraphs are separated by one
// blank line and the output ends with a single newline.
func (c *ControlFile) Render() []byte {
	var blocks []string
	if c.Source != nil {
		var b strings.Builder
		c.Source.render(&b)
		blocks = append(blocks, b.String())
	}
	for _, p := range c.Packages {
		var b strings.Builder
		p.render(&b)
		blocks = append(blocks, b.String())
	}
	return []byte(strings.Join(blocks, "\n"))
}

// WriteTo writes the rendered control file to the given writer.
func (c *ControlFile) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(c.Render())
	return int64(n), err
}

// WriteFile writes the rendered control file to the given path.
func (c *ControlFile) WriteFile(path string) error {
	return os.WriteFile(path, c.Render(), controlPermissions)
}

func (s *SourceStanza) render(b *strings.Builder) {
	fmt.Fprintf(b, "Source: %s\n", s.Name)
	fmt.Fprintf(b, "Section: %s\n", s.Section)
	fmt.Fprintf(b, "Priority: %s\n", s.Priority)
	fmt.Fprintf(b, "Build-Depends: %s\n", strings.Join(s.BuildDepends, ",\n "))
	fmt.Fprintf(b, "Maintainer: %s\n", s.Maintainer)
	if len(s.Uploaders) > 0 {
		fmt.Fprintf(b, "Uploaders:\n %s\n", strings.Join(s.Uploaders, ",\n "))
	}
	fmt.Fprintf(b, "Standards-Version: %s\n", s.StandardsVersion)
	fmt.Fprintf(b, "Vcs-Git: %s\n", s.VcsGit)
	fmt.Fprintf(b, "Vcs-Browser: %s\n", s.VcsBrowser)
	if s.Homepage != "" {
		fmt.Fprintf(b, "Homepage: %s\n", s.Homepage)
	}
	// Always written, even when it just repeats the package name: once
	// the name carries a series suffix, the "utf-8" crate and the
	// "utf" crate at series 8 become indistinguishable without it.
	fmt.Fprintf(b, "X-Cargo-Crate: %s\n", s.CrateName)
	fmt.Fprintf(b, "Rules-Requires-Root: %s\n", s.RequiresRoot)
}

func (p *PackageStanza) render(b *strings.Builder) {
	fmt.Fprintf(b, "Package: %s\n", p.Name)
	fmt.Fprintf(b, "Architecture: %s\n", p.Architecture)
	fmt.Fprintf(b, "Multi-Arch: %s\n", p.MultiArch)
	if p.Section != "" {
		fmt.Fprintf(b, "Section: %s\n", p.Section)
	}
	writeList(b, "Depends", p.Depends)
	writeList(b, "Recommends", p.Recommends)
	writeList(b, "Suggests", p.Suggests)
	writeList(b, "Provides", p.Provides)
	for _, line := range p.ExtraLines {
		fmt.Fprintf(b, "%s\n", line)
	}
	p.renderDescription(b)
}

// writeList renders a list-valued field with one entry per line, the
// way the Debian Rust team formats dependency fields.
func writeList(b *strings.Builder, key string, values []string) {
	if len(values) == 0 {
		return
	}
	fmt.Fprintf(b, "%s:\n %s\n", key, strings.Join(values, ",\n "))
}

func (p *PackageStanza) renderDescription(b *strings.Builder) {
	fmt.Fprintf(b, "Description: %s\n", p.Summary)
	body := strings.TrimSpace(p.Description.String())
	if body == "" {
		return
	}
	for _, line := range strings.Split(wordwrap.WrapString(body, descriptionWidth), "\n") {
		line = strings.TrimRight(line, " \t")
		switch {
		case line == "":
			b.WriteString(" .\n")
		case strings.HasPrefix(line, "- "):
			fmt.Fprintf(b, "  %s\n", line)
		default:
			fmt.Fprintf(b, " %s\n", line)
		}
	}
}
