// Package debian models the target ecosystem: package names, version
// constraints with their "-~~" revision floors, control-file stanzas and
// changelog entries.
//
// The package is pure and knows nothing about crates. Constraints and
// stanzas arrive fully computed from the translation layer in the
// repository root; this package owns naming rules, Debian version
// ordering and deterministic serialization.
//
// # Serialization
//
// [ControlFile] and [TestsuiteFile] render byte-identical output for
// equal inputs. Stanza fields appear in the conventional order, long
// descriptions are wrapped at 79 columns, and empty list fields are
// omitted entirely.
package debian
