package graph

import "sort"

// Builder accumulates nodes and hard edges during discovery and seals
// them into a Graph. The zero value is not usable; call NewBuilder.
//
// A Builder is not safe for concurrent use. Discovery code that runs
// workers serializes access itself.
type Builder struct {
	roots map[Node]bool
	succ  map[Node]map[Node]bool
}

// NewBuilder creates an empty builder.
func NewBuilder() *Builder {
	return &Builder{
		roots: make(map[Node]bool),
		succ:  make(map[Node]map[Node]bool),
	}
}

// AddRoot records a resolution root. The node joins the graph even if
// no edge ever touches it.
func (b *Builder) AddRoot(n Node) {
	b.roots[n] = true
	b.ensure(n)
}

// AddNode records a node without edges. Adding a node twice is fine.
func (b *Builder) AddNode(n Node) {
	b.ensure(n)
}

// AddEdge records that from cannot build until to is installed. Both
// endpoints join the graph; duplicate edges collapse.
func (b *Builder) AddEdge(from, to Node) {
	b.ensure(from)
	b.ensure(to)
	b.succ[from][to] = true
}

func (b *Builder) ensure(n Node) {
	if b.succ[n] == nil {
		b.succ[n] = make(map[Node]bool)
	}
}

// Build seals the accumulated edges into a Graph with sorted adjacency
// in both directions. The builder stays usable; later additions do not
// affect graphs already built.
func (b *Builder) Build() *Graph {
	g := &Graph{
		Dependencies: make(map[Node][]Node, len(b.succ)),
		Dependents:   make(map[Node][]Node, len(b.succ)),
	}

	for n, targets := range b.succ {
		deps := make([]Node, 0, len(targets))
		for t := range targets {
			deps = append(deps, t)
		}
		sortNodes(deps)
		g.Dependencies[n] = deps
		if _, ok := g.Dependents[n]; !ok {
			g.Dependents[n] = nil
		}
	}
	for n, deps := range g.Dependencies {
		for _, d := range deps {
			g.Dependents[d] = append(g.Dependents[d], n)
		}
	}
	for n := range g.Dependents {
		sortNodes(g.Dependents[n])
	}

	for r := range b.roots {
		g.Roots = append(g.Roots, r)
	}
	sortNodes(g.Roots)
	return g
}

func sortNodes(nodes []Node) {
	sort.Slice(nodes, func(i, j int) bool { return nodes[i].Less(nodes[j]) })
}
