// Package graph represents the hard-dependency graph a build-order
// resolution discovers: which crate releases must be built, and which
// of them must be built before which others.
//
// Nodes are (name, version) pairs. An edge a -> b means a cannot build
// until b is installed. Soft relationships (crates that must exist
// eventually but do not gate a build) appear as nodes without edges.
//
// # Building a Graph
//
// Discovery code accumulates edges through a Builder and seals them:
//
//	b := graph.NewBuilder()
//	b.AddRoot(graph.Node{Name: "serde", Version: "1.0.100"})
//	b.AddEdge(serde, serdeDerive)
//	g := b.Build()
//
// # Querying
//
//	deps := g.DirectDeps(node)
//	path := g.Path(from, to)
//	order, blocked := g.Toposort()
//
// Toposort returns a leaves-first order: every node comes after all of
// its dependencies, ties broken toward the lexically smallest node, so
// the same graph always sorts the same way.
//
// # Output Formats
//
//	jsonBytes, _ := g.ToJSON()
//	yamlBytes, _ := g.ToYAML()
//	dotString := g.ToDOT()
//	textString := graph.FormatNodes(order)
package graph
