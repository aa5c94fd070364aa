package graph

import "strings"

// Node identifies one crate release in the graph.
type Node struct {
	Name    string `json:"name" yaml:"name"`
	Version string `json:"version" yaml:"version"`
}

// String renders the node the way build-order output spells it.
func (n Node) String() string {
	return n.Name + " " + n.Version
}

// Compare orders nodes by name, then version, both lexically. The
// ordering exists for deterministic output, not for semantic version
// comparison.
func (n Node) Compare(other Node) int {
	if c := strings.Compare(n.Name, other.Name); c != 0 {
		return c
	}
	return strings.Compare(n.Version, other.Version)
}

// Less reports whether n orders before other.
func (n Node) Less(other Node) bool {
	return n.Compare(other) < 0
}

// Graph is a sealed dependency graph. It supports traversal in both
// directions: Dependencies answers "what must be built before this",
// Dependents answers "what is waiting on this".
type Graph struct {
	// Roots are the releases resolution started from.
	Roots []Node

	// Dependencies maps every node to its hard dependencies, sorted.
	// Every node in the graph has an entry, empty for leaves.
	Dependencies map[Node][]Node

	// Dependents holds the reverse edges, sorted.
	Dependents map[Node][]Node
}

// Stats summarizes a graph.
type Stats struct {
	// TotalNodes is the number of releases in the graph.
	TotalNodes int

	// Edges is the number of hard dependency edges.
	Edges int

	// Leaves is the number of nodes with no dependencies.
	Leaves int

	// MaxDepth is the length of the longest dependency chain from any
	// root, zero for a graph whose roots are leaves.
	MaxDepth int
}
