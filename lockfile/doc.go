// Package lockfile reads Cargo.lock files.
//
// A lockfile pins the exact version of every crate in a workspace's
// dependency closure together with the resolved dependency edges
// between them. That is enough to reconstruct the whole build graph
// without consulting a registry, which makes lockfiles the natural
// offline input for build-order work.
//
// # Format versions
//
// Cargo has revised the format several times; the revision is declared
// in a top-level "version" field from v3 on:
//
//	| Format | Introduced | Notes                                        |
//	|--------|------------|----------------------------------------------|
//	| v1     | 1.0        | Checksums live in a trailing [metadata] table |
//	| v2     | 1.38       | Checksums move inline, dep entries shorten    |
//	| v3     | 1.53       | Explicit "version = 3" header                 |
//	| v4     | 1.78       | Source URL encoding changes                   |
//
// This package parses all four. Checksums in a v1 [metadata] table are
// ignored rather than re-attached; nothing here verifies archives.
//
// # Dependency references
//
// A [[package]] entry names its dependencies as strings of one to
// three fields:
//
//	"serde"                       unique in the lockfile
//	"serde 1.0.200"               several versions present
//	"serde 1.0.200 (registry+url)"  several sources present
//
// Resolve turns these back into package references, failing loudly on
// dangling or ambiguous entries instead of guessing.
//
// # Usage
//
// Read a lockfile and derive its build graph:
//
//	lf, err := lockfile.ReadFile("Cargo.lock")
//	if err != nil {
//	    log.Fatal(err)
//	}
//	g, err := lf.Graph()
package lockfile
