package lockfile

import (
	"fmt"

	"github.com/cratedeb/cratedeb/graph"
)

// Node returns the entry as a build-graph node.
func (p Package) Node() graph.Node {
	return graph.Node{Name: p.Name, Version: p.Version}
}

// Graph derives the build graph the lockfile pins: one node per
// package, one edge per resolved dependency, workspace members as
// roots.
//
// Lockfiles record the union of every feature's and every platform's
// dependencies, so the graph is a superset of what any single build
// uses.
func (l *Lockfile) Graph() (*graph.Graph, error) {
	b := graph.NewBuilder()
	for _, p := range l.Packages {
		if p.IsMember() {
			b.AddRoot(p.Node())
		} else {
			b.AddNode(p.Node())
		}
	}
	for _, p := range l.Packages {
		for _, ref := range p.Dependencies {
			dep, err := l.Resolve(ref)
			if err != nil {
				return nil, fmt.Errorf("package %s %s: %w", p.Name, p.Version, err)
			}
			b.AddEdge(p.Node(), dep.Node())
		}
	}
	return b.Build(), nil
}
