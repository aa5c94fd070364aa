package graph

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"gopkg.in/yaml.v3"
)

// Doc is the serializable form of a Graph. Maps keyed by Node do not
// marshal, so output flattens into sorted node records.
type Doc struct {
	Roots []Node    `json:"roots" yaml:"roots"`
	Nodes []NodeDoc `json:"nodes" yaml:"nodes"`
}

// NodeDoc is one node record of a Doc.
type NodeDoc struct {
	Name         string `json:"name" yaml:"name"`
	Version      string `json:"version" yaml:"version"`
	Dependencies []Node `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
}

// Doc flattens the graph into its serializable form.
func (g *Graph) Doc() Doc {
	doc := Doc{Roots: g.Roots}
	for _, n := range g.Nodes() {
		doc.Nodes = append(doc.Nodes, NodeDoc{
			Name:         n.Name,
			Version:      n.Version,
			Dependencies: g.Dependencies[n],
		})
	}
	return doc
}

// ToJSON renders the graph as indented JSON.
func (g *Graph) ToJSON() ([]byte, error) {
	return json.MarshalIndent(g.Doc(), "", "  ")
}

// ToYAML renders the graph as YAML.
func (g *Graph) ToYAML() ([]byte, error) {
	return yaml.Marshal(g.Doc())
}

// ToDOT renders the graph in Graphviz DOT format. Roots are bold.
func (g *Graph) ToDOT() string {
	var buf bytes.Buffer

	buf.WriteString("digraph buildorder {\n")
	buf.WriteString("  rankdir=LR;\n")
	buf.WriteString("  node [shape=box];\n\n")

	roots := make(map[Node]bool, len(g.Roots))
	for _, r := range g.Roots {
		roots[r] = true
	}
	for _, n := range g.Nodes() {
		attrs := fmt.Sprintf(`label="%s\n%s"`, n.Name, n.Version)
		if roots[n] {
			attrs += ", style=bold"
		}
		fmt.Fprintf(&buf, "  %q [%s];\n", n.String(), attrs)
	}

	buf.WriteString("\n")
	for _, n := range g.Nodes() {
		for _, dep := range g.Dependencies[n] {
			fmt.Fprintf(&buf, "  %q -> %q;\n", n.String(), dep.String())
		}
	}

	buf.WriteString("}\n")
	return buf.String()
}

// FormatNodes renders a node sequence one "name version" line at a
// time, the way build-order output spells it.
func FormatNodes(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		b.WriteString(n.String())
		b.WriteByte('\n')
	}
	return b.String()
}
