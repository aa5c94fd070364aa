package graph

import (
	"container/heap"
	"slices"
)

// Contains reports whether the graph holds the given release.
func (g *Graph) Contains(n Node) bool {
	_, ok := g.Dependencies[n]
	return ok
}

// Nodes returns every node in sorted order.
func (g *Graph) Nodes() []Node {
	nodes := make([]Node, 0, len(g.Dependencies))
	for n := range g.Dependencies {
		nodes = append(nodes, n)
	}
	sortNodes(nodes)
	return nodes
}

// DirectDeps returns the hard dependencies of a node, nil for unknown
// nodes and leaves.
func (g *Graph) DirectDeps(n Node) []Node {
	return g.Dependencies[n]
}

// DirectDependents returns the nodes that directly depend on n.
func (g *Graph) DirectDependents(n Node) []Node {
	return g.Dependents[n]
}

// TransitiveDeps returns everything that must be built before n, in
// breadth-first order.
func (g *Graph) TransitiveDeps(n Node) []Node {
	return g.walk(n, g.Dependencies)
}

// TransitiveDependents returns everything waiting on n, closest
// dependents first.
func (g *Graph) TransitiveDependents(n Node) []Node {
	return g.walk(n, g.Dependents)
}

func (g *Graph) walk(start Node, edges map[Node][]Node) []Node {
	var result []Node
	visited := map[Node]bool{start: true}
	queue := []Node{start}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, next := range edges[current] {
			if !visited[next] {
				visited[next] = true
				result = append(result, next)
				queue = append(queue, next)
			}
		}
	}
	return result
}

// Path finds the shortest dependency path from one node to another,
// endpoints included. It returns nil when no path exists.
func (g *Graph) Path(from, to Node) []Node {
	if from == to {
		return []Node{from}
	}
	type item struct {
		node Node
		path []Node
	}
	visited := map[Node]bool{from: true}
	queue := []item{{node: from, path: []Node{from}}}
	for len(queue) > 0 {
		current := queue[0]
		queue = queue[1:]
		for _, dep := range g.Dependencies[current.node] {
			if dep == to {
				return append(current.path, dep)
			}
			if !visited[dep] {
				visited[dep] = true
				next := make([]Node, len(current.path)+1)
				copy(next, current.path)
				next[len(current.path)] = dep
				queue = append(queue, item{node: dep, path: next})
			}
		}
	}
	return nil
}

// Leaves returns the nodes with no dependencies, sorted.
func (g *Graph) Leaves() []Node {
	var leaves []Node
	for n, deps := range g.Dependencies {
		if len(deps) == 0 {
			leaves = append(leaves, n)
		}
	}
	sortNodes(leaves)
	return leaves
}

// Toposort returns the nodes in leaves-first order: every node comes
// after all of its dependencies. Among the nodes ready at any point the
// lexically smallest goes first, so equal graphs always sort the same
// way. blocked holds the nodes caught in dependency cycles, sorted,
// empty on success; order then covers the whole graph.
func (g *Graph) Toposort() (order []Node, blocked []Node) {
	remaining := make(map[Node]int, len(g.Dependencies))
	var ready nodeHeap
	for n, deps := range g.Dependencies {
		remaining[n] = len(deps)
		if len(deps) == 0 {
			ready = append(ready, n)
		}
	}
	heap.Init(&ready)

	order = make([]Node, 0, len(remaining))
	for ready.Len() > 0 {
		n := heap.Pop(&ready).(Node)
		order = append(order, n)
		for _, dep := range g.Dependents[n] {
			remaining[dep]--
			if remaining[dep] == 0 {
				heap.Push(&ready, dep)
			}
		}
	}
	if len(order) == len(remaining) {
		return order, nil
	}
	for n, left := range remaining {
		if left > 0 {
			blocked = append(blocked, n)
		}
	}
	sortNodes(blocked)
	return order, blocked
}

// HasCycles reports whether the graph contains a dependency cycle.
func (g *Graph) HasCycles() bool {
	_, blocked := g.Toposort()
	return len(blocked) > 0
}

// FindCycles returns the dependency cycles of the graph, each as the
// sequence of nodes around the loop starting at its entry point.
// Traversal starts from the lexically smallest nodes, so the result is
// deterministic.
func (g *Graph) FindCycles() [][]Node {
	var cycles [][]Node
	visited := make(map[Node]bool)
	onStack := make(map[Node]bool)
	var path []Node

	var walk func(n Node)
	walk = func(n Node) {
		visited[n] = true
		onStack[n] = true
		path = append(path, n)
		for _, dep := range g.Dependencies[n] {
			if !visited[dep] {
				walk(dep)
			} else if onStack[dep] {
				if start := slices.Index(path, dep); start >= 0 {
					cycles = append(cycles, slices.Clone(path[start:]))
				}
			}
		}
		path = path[:len(path)-1]
		onStack[n] = false
	}

	for _, n := range g.Nodes() {
		if !visited[n] {
			walk(n)
		}
	}
	return cycles
}

// Stats summarizes the graph.
func (g *Graph) Stats() Stats {
	s := Stats{TotalNodes: len(g.Dependencies)}
	for _, deps := range g.Dependencies {
		s.Edges += len(deps)
		if len(deps) == 0 {
			s.Leaves++
		}
	}
	s.MaxDepth = g.maxDepth()
	return s
}

func (g *Graph) maxDepth() int {
	depths := make(map[Node]int)
	onPath := make(map[Node]bool)
	var max int

	var dfs func(n Node, depth int)
	dfs = func(n Node, depth int) {
		// An edge back onto the current path is a cycle; following it
		// would never terminate.
		if onPath[n] {
			return
		}
		if existing, ok := depths[n]; ok && existing >= depth {
			return
		}
		depths[n] = depth
		if depth > max {
			max = depth
		}
		onPath[n] = true
		for _, dep := range g.Dependencies[n] {
			dfs(dep, depth+1)
		}
		delete(onPath, n)
	}

	for _, r := range g.Roots {
		dfs(r, 0)
	}
	return max
}

// nodeHeap is a min-heap of nodes in lexical order.
type nodeHeap []Node

func (h nodeHeap) Len() int            { return len(h) }
func (h nodeHeap) Less(i, j int) bool  { return h[i].Less(h[j]) }
func (h nodeHeap) Swap(i, j int)       { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)         { *h = append(*h, x.(Node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}
