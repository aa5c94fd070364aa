package crate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Version is a crate version: up to three numeric components plus an
// optional pre-release tag. The arity (how many components the source
// text spelled out) is preserved across parsing: "1.2" and "1.2.0"
// compare equal but widen to different upper bounds.
type Version struct {
	major      int
	minor      int
	patch      int
	arity      int
	prerelease string
}

// versionRegex matches versions as they appear in manifests and
// requirement strings: one to three numeric components, an optional
// pre-release tag, optional build metadata (accepted, ignored).
// A patch component without a minor component is unrepresentable.
var versionRegex = regexp.MustCompile(`^(\d+)(?:\.(\d+)(?:\.(\d+))?)?(?:-([0-9A-Za-z.-]+))?(?:\+[0-9A-Za-z.-]+)?$`)

// ParseVersion parses a version string such as "1", "0.3" or "1.2.3-beta.1".
func ParseVersion(s string) (Version, error) {
	m := versionRegex.FindStringSubmatch(s)
	if m == nil {
		return Version{}, fmt.Errorf("invalid version %q", s)
	}
	v := Version{arity: 1, prerelease: m[4]}
	v.major, _ = strconv.Atoi(m[1])
	if m[2] != "" {
		v.minor, _ = strconv.Atoi(m[2])
		v.arity = 2
	}
	if m[3] != "" {
		v.patch, _ = strconv.Atoi(m[3])
		v.arity = 3
	}
	return v, nil
}

// MustVersion parses a version or panics. Use only for constants/tests.
func MustVersion(s string) Version {
	v, err := ParseVersion(s)
	if err != nil {
		panic(err)
	}
	return v
}

// String prints only the components the version actually carries.
func (v Version) String() string {
	var b strings.Builder
	b.WriteString(strconv.Itoa(v.major))
	if v.arity >= 2 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.minor))
	}
	if v.arity >= 3 {
		b.WriteByte('.')
		b.WriteString(strconv.Itoa(v.patch))
	}
	if v.prerelease != "" {
		b.WriteByte('-')
		b.WriteString(v.prerelease)
	}
	return b.String()
}

// Major returns the major component.
func (v Version) Major() int { return v.major }

// Minor returns the minor component, zero when unspecified.
func (v Version) Minor() int { return v.minor }

// Patch returns the patch component, zero when unspecified.
func (v Version) Patch() int { return v.patch }

// Arity returns how many components the version spells out (1 to 3).
func (v Version) Arity() int { return v.arity }

// Prerelease returns the pre-release tag, if any.
func (v Version) Prerelease() string { return v.prerelease }

// IsPrerelease reports whether the version carries a pre-release tag.
func (v Version) IsPrerelease() bool { return v.prerelease != "" }

// IsZero reports whether every spelled-out component is zero ("0", "0.0",
// "0.0.0") with no pre-release tag. Nothing sorts below such a version.
func (v Version) IsZero() bool {
	return v.major == 0 && v.minor == 0 && v.patch == 0 && v.prerelease == ""
}

// WithoutPrerelease returns the version with its pre-release tag removed.
func (v Version) WithoutPrerelease() Version {
	v.prerelease = ""
	return v
}

// NextAfter returns the next version at the granularity the arity defines:
// the last spelled-out component is incremented and any pre-release tag
// dropped. "1" becomes "2", "1.2" becomes "1.3", "1.2.3" becomes "1.2.4".
func (v Version) NextAfter() Version {
	v.prerelease = ""
	switch v.arity {
	case 1:
		v.major++
	case 2:
		v.minor++
	default:
		v.patch++
	}
	return v
}

// Truncate returns the first n components of the zero-filled version as an
// arity-n version, dropping any pre-release tag. n must be 1, 2 or 3.
func (v Version) Truncate(n int) Version {
	t := Version{arity: n, major: v.major}
	if n >= 2 {
		t.minor = v.minor
	}
	if n >= 3 {
		t.patch = v.patch
	}
	return t
}

// Compare compares two versions, zero-filling unspecified components.
// Returns -1 if v < other, 0 if equal, 1 if v > other.
// Pre-release versions sort below the release with the same components.
func (v Version) Compare(other Version) int {
	if v.major != other.major {
		return intCompare(v.major, other.major)
	}
	if v.minor != other.minor {
		return intCompare(v.minor, other.minor)
	}
	if v.patch != other.patch {
		return intCompare(v.patch, other.patch)
	}
	if v.prerelease == "" && other.prerelease != "" {
		return 1
	}
	if v.prerelease != "" && other.prerelease == "" {
		return -1
	}
	if v.prerelease != other.prerelease {
		return comparePrerelease(v.prerelease, other.prerelease)
	}
	return 0
}

// Less reports whether v sorts before other.
func (v Version) Less(other Version) bool {
	return v.Compare(other) < 0
}

func intCompare(a, b int) int {
	if a < b {
		return -1
	}
	if a > b {
		return 1
	}
	return 0
}

// comparePrerelease orders dot-separated pre-release tags: numeric parts
// compare numerically and sort below alphanumeric parts, shorter tags
// sort below longer ones when all shared parts are equal.
func comparePrerelease(a, b string) int {
	aParts := strings.Split(a, ".")
	bParts := strings.Split(b, ".")

	for i := 0; i < min(len(aParts), len(bParts)); i++ {
		aNum, aIsNum := tryParseInt(aParts[i])
		bNum, bIsNum := tryParseInt(bParts[i])

		switch {
		case aIsNum && bIsNum:
			if aNum != bNum {
				return intCompare(aNum, bNum)
			}
		case aIsNum:
			return -1
		case bIsNum:
			return 1
		default:
			if c := strings.Compare(aParts[i], bParts[i]); c != 0 {
				return c
			}
		}
	}

	return intCompare(len(aParts), len(bParts))
}

func tryParseInt(s string) (int, bool) {
	n, err := strconv.Atoi(s)
	return n, err == nil
}
