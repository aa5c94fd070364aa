package graph

import (
	"encoding/json"
	"slices"
	"strings"
	"testing"
)

func node(name, version string) Node {
	return Node{Name: name, Version: version}
}

// diamond builds app -> {alpha, beta} -> gamma.
func diamond() *Graph {
	app := node("app", "1.0.0")
	alpha := node("alpha", "0.3.0")
	beta := node("beta", "2.1.0")
	gamma := node("gamma", "1.2.3")

	b := NewBuilder()
	b.AddRoot(app)
	b.AddEdge(app, alpha)
	b.AddEdge(app, beta)
	b.AddEdge(alpha, gamma)
	b.AddEdge(beta, gamma)
	return b.Build()
}

func TestBuilderBuild(t *testing.T) {
	g := diamond()

	if got := len(g.Dependencies); got != 4 {
		t.Fatalf("node count = %d, want 4", got)
	}
	if want := []Node{node("app", "1.0.0")}; !slices.Equal(g.Roots, want) {
		t.Errorf("Roots = %v, want %v", g.Roots, want)
	}

	deps := g.DirectDeps(node("app", "1.0.0"))
	want := []Node{node("alpha", "0.3.0"), node("beta", "2.1.0")}
	if !slices.Equal(deps, want) {
		t.Errorf("DirectDeps(app) = %v, want %v", deps, want)
	}

	dependents := g.DirectDependents(node("gamma", "1.2.3"))
	want = []Node{node("alpha", "0.3.0"), node("beta", "2.1.0")}
	if !slices.Equal(dependents, want) {
		t.Errorf("DirectDependents(gamma) = %v, want %v", dependents, want)
	}
}

func TestBuilderDuplicateEdges(t *testing.T) {
	b := NewBuilder()
	b.AddEdge(node("a", "1"), node("b", "1"))
	b.AddEdge(node("a", "1"), node("b", "1"))
	g := b.Build()

	if got := g.DirectDeps(node("a", "1")); len(got) != 1 {
		t.Errorf("duplicate edge kept: %v", got)
	}
}

func TestNodeOrdering(t *testing.T) {
	tests := []struct {
		a, b Node
		less bool
	}{
		{node("a", "1.0.0"), node("b", "0.1.0"), true},
		{node("a", "1.0.0"), node("a", "1.0.1"), true},
		{node("b", "1.0.0"), node("a", "2.0.0"), false},
		{node("a", "1.0.0"), node("a", "1.0.0"), false},
	}
	for _, tt := range tests {
		if got := tt.a.Less(tt.b); got != tt.less {
			t.Errorf("%v.Less(%v) = %v, want %v", tt.a, tt.b, got, tt.less)
		}
	}
}

func TestToposortLeavesFirst(t *testing.T) {
	g := diamond()
	order, blocked := g.Toposort()

	if len(blocked) != 0 {
		t.Fatalf("blocked = %v, want none", blocked)
	}
	want := []Node{
		node("gamma", "1.2.3"),
		node("alpha", "0.3.0"),
		node("beta", "2.1.0"),
		node("app", "1.0.0"),
	}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestToposortTieBreak(t *testing.T) {
	// Three independent leaves must come out in lexical order.
	b := NewBuilder()
	b.AddNode(node("zlib", "1.0.0"))
	b.AddNode(node("adler", "1.0.0"))
	b.AddNode(node("miniz", "0.7.0"))
	order, blocked := b.Build().Toposort()

	if len(blocked) != 0 {
		t.Fatalf("blocked = %v, want none", blocked)
	}
	want := []Node{node("adler", "1.0.0"), node("miniz", "0.7.0"), node("zlib", "1.0.0")}
	if !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
}

func TestToposortCycle(t *testing.T) {
	a := node("a", "1.0.0")
	b := node("b", "1.0.0")
	c := node("c", "1.0.0")

	builder := NewBuilder()
	builder.AddEdge(a, b)
	builder.AddEdge(b, a)
	builder.AddNode(c)
	g := builder.Build()

	order, blocked := g.Toposort()
	if want := []Node{c}; !slices.Equal(order, want) {
		t.Errorf("order = %v, want %v", order, want)
	}
	if want := []Node{a, b}; !slices.Equal(blocked, want) {
		t.Errorf("blocked = %v, want %v", blocked, want)
	}
	if !g.HasCycles() {
		t.Error("HasCycles() = false, want true")
	}

	cycles := g.FindCycles()
	if len(cycles) != 1 {
		t.Fatalf("FindCycles() = %v, want one cycle", cycles)
	}
	if want := []Node{a, b}; !slices.Equal(cycles[0], want) {
		t.Errorf("cycle = %v, want %v", cycles[0], want)
	}
}

func TestToposortDeterminism(t *testing.T) {
	first, _ := diamond().Toposort()
	for i := 0; i < 20; i++ {
		order, _ := diamond().Toposort()
		if !slices.Equal(order, first) {
			t.Fatalf("run %d: order = %v, want %v", i, order, first)
		}
	}
}

func TestTransitiveDeps(t *testing.T) {
	g := diamond()
	got := g.TransitiveDeps(node("app", "1.0.0"))
	want := []Node{node("alpha", "0.3.0"), node("beta", "2.1.0"), node("gamma", "1.2.3")}
	if !slices.Equal(got, want) {
		t.Errorf("TransitiveDeps(app) = %v, want %v", got, want)
	}
}

func TestTransitiveDependents(t *testing.T) {
	g := diamond()
	got := g.TransitiveDependents(node("gamma", "1.2.3"))
	want := []Node{node("alpha", "0.3.0"), node("beta", "2.1.0"), node("app", "1.0.0")}
	if !slices.Equal(got, want) {
		t.Errorf("TransitiveDependents(gamma) = %v, want %v", got, want)
	}
}

func TestPath(t *testing.T) {
	g := diamond()

	got := g.Path(node("app", "1.0.0"), node("gamma", "1.2.3"))
	want := []Node{node("app", "1.0.0"), node("alpha", "0.3.0"), node("gamma", "1.2.3")}
	if !slices.Equal(got, want) {
		t.Errorf("Path(app, gamma) = %v, want %v", got, want)
	}

	if got := g.Path(node("gamma", "1.2.3"), node("app", "1.0.0")); got != nil {
		t.Errorf("Path against edge direction = %v, want nil", got)
	}
}

func TestLeaves(t *testing.T) {
	g := diamond()
	if want := []Node{node("gamma", "1.2.3")}; !slices.Equal(g.Leaves(), want) {
		t.Errorf("Leaves() = %v, want %v", g.Leaves(), want)
	}
}

func TestStats(t *testing.T) {
	g := diamond()
	stats := g.Stats()
	want := Stats{TotalNodes: 4, Edges: 4, Leaves: 1, MaxDepth: 2}
	if stats != want {
		t.Errorf("Stats() = %+v, want %+v", stats, want)
	}
}

func TestFormatNodes(t *testing.T) {
	got := FormatNodes([]Node{node("adler", "1.0.2"), node("miniz", "0.7.4")})
	want := "adler 1.0.2\nminiz 0.7.4\n"
	if got != want {
		t.Errorf("FormatNodes = %q, want %q", got, want)
	}
}

func TestToJSONRoundTrip(t *testing.T) {
	g := diamond()
	data, err := g.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	var doc Doc
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(doc.Nodes) != 4 {
		t.Errorf("doc has %d nodes, want 4", len(doc.Nodes))
	}
	if want := []Node{node("app", "1.0.0")}; !slices.Equal(doc.Roots, want) {
		t.Errorf("doc roots = %v, want %v", doc.Roots, want)
	}
	// Records come out sorted.
	if doc.Nodes[0].Name != "alpha" || doc.Nodes[3].Name != "gamma" {
		t.Errorf("node order = %v", doc.Nodes)
	}
}

func TestToYAML(t *testing.T) {
	data, err := diamond().ToYAML()
	if err != nil {
		t.Fatalf("ToYAML: %v", err)
	}
	for _, want := range []string{"roots:", "name: app", "name: gamma", "version: 1.2.3"} {
		if !strings.Contains(string(data), want) {
			t.Errorf("YAML output missing %q:\n%s", want, data)
		}
	}
}

func TestToDOT(t *testing.T) {
	dot := diamond().ToDOT()
	for _, want := range []string{
		`"app 1.0.0" [label="app\n1.0.0", style=bold];`,
		`"app 1.0.0" -> "alpha 0.3.0";`,
		`"beta 2.1.0" -> "gamma 1.2.3";`,
	} {
		if !strings.Contains(dot, want) {
			t.Errorf("DOT output missing %q:\n%s", want, dot)
		}
	}
}
