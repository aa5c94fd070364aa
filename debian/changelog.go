package debian

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/mitchellh/go-wordwrap"
)

// ChangelogEntry is one block of a debian/changelog file.
type ChangelogEntry struct {
	Source string
	// Version is the full Debian version including the revision, e.g.
	// "1.2.3-1".
	Version      string
	Distribution string
	Urgency      string
	Maintainer   string
	Date         time.Time
	Entries      []string
}

// Render serializes the changelog block. The output ends with a blank
// line so that older entries can be appended directly after it.
func (e *ChangelogEntry) Render() []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "%s (%s) %s; urgency=%s\n\n",
		e.Source, e.Version, e.Distribution, e.Urgency)
	for _, entry := range e.Entries {
		fmt.Fprintf(&b, "  * %s\n", wordwrap.WrapString(entry, descriptionWidth))
	}
	fmt.Fprintf(&b, "\n -- %s  %s\n\n", e.Maintainer, e.Date.Format(time.RFC1123Z))
	return []byte(b.String())
}

// WriteTo writes the rendered changelog block to the given writer.
func (e *ChangelogEntry) WriteTo(w io.Writer) (int64, error) {
	n, err := w.Write(e.Render())
	return int64(n), err
}

// WriteFile writes the rendered changelog block to the given path.
func (e *ChangelogEntry) WriteFile(path string) error {
	return os.WriteFile(path, e.Render(), controlPermissions)
}

// MaintainerFromEnv determines the changelog signer from the
// conventional environment variables.
func MaintainerFromEnv() (string, error) {
	name := firstEnv("DEBFULLNAME", "NAME")
	if name == "" {
		return "", fmt.Errorf("unable to determine your name; set $DEBFULLNAME or $NAME")
	}
	email := firstEnv("DEBEMAIL", "EMAIL")
	if email == "" {
		return "", fmt.Errorf("unable to determine your email; set $DEBEMAIL or $EMAIL")
	}
	return fmt.Sprintf("%s <%s>", name, email), nil
}

func firstEnv(keys ...string) string {
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return ""
}
