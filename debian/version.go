package debian

import (
	"fmt"
	"strings"

	version "github.com/knqyf263/go-deb-version"
)

// UpstreamVersion converts a crate version string into the Debian
// upstream version used for the source package. Partial versions are
// zero-filled to three components, build metadata is discarded, and a
// pre-release tag is reattached with "~" so that dpkg sorts it before
// the final release.
func UpstreamVersion(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return "", fmt.Errorf("empty version")
	}
	base, _, _ := strings.Cut(s, "+")
	base, pre, _ := strings.Cut(base, "-")
	parts := strings.Split(base, ".")
	if len(parts) > 3 {
		return "", fmt.Errorf("version %q has more than three components", s)
	}
	for _, p := range parts {
		if p == "" || strings.IndexFunc(p, isNotDigit) >= 0 {
			return "", fmt.Errorf("version %q is not a dotted number", s)
		}
	}
	for len(parts) < 3 {
		parts = append(parts, "0")
	}
	out := strings.Join(parts, ".")
	if pre != "" {
		out += "~" + pre
	}
	return out, nil
}

func isNotDigit(r rune) bool {
	return r < '0' || r > '9'
}

// CompareVersions orders two Debian version strings, returning -1, 0,
// or 1. Comparison follows dpkg rules, so "1.0.0~alpha" sorts before
// "1.0.0" and "1.0.0-~~" before "1.0.0-1".
func CompareVersions(a, b string) (int, error) {
	va, err := version.NewVersion(a)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", a, err)
	}
	vb, err := version.NewVersion(b)
	if err != nil {
		return 0, fmt.Errorf("parsing version %q: %w", b, err)
	}
	switch {
	case va.LessThan(vb):
		return -1, nil
	case vb.LessThan(va):
		return 1, nil
	}
	return 0, nil
}

// ValidateVersion reports whether s is a well-formed Debian version.
func ValidateVersion(s string) error {
	if _, err := version.NewVersion(s); err != nil {
		return fmt.Errorf("invalid Debian version %q: %w", s, err)
	}
	return nil
}
