package graph

import (
	"fmt"
	"strings"
)

// DOT renders the graph in Graphviz DOT syntax. States keep declaration
// order; terminal states are drawn with a double circle.
func (g *Graph) DOT() string {
	var sb strings.Builder
	sb.WriteString("digraph stategraph {\n")
	sb.WriteString("\trankdir=LR;\n")
	fmt.Fprintf(&sb, "\tnode [shape=circle];\n")

	for _, def := range g.order {
		shape := "circle"
		if len(def.Edges) == 0 {
			shape = "doublecircle"
		}
		fmt.Fprintf(&sb, "\t%q [shape=%s];\n", string(def.Name), shape)
	}

	// Entry arrow into the initial state.
	sb.WriteString("\t\"\" [shape=point];\n")
	fmt.Fprintf(&sb, "\t\"\" -> %q;\n", string(g.Initial()))

	for _, def := range g.order {
		for _, e := range def.Edges {
			fmt.Fprintf(&sb, "\t%q -> %q [label=%q];\n", string(def.Name), string(e.To), string(e.Transition))
		}
	}

	sb.WriteString("}\n")
	return sb.String()
}

// Mermaid renders the graph as a Mermaid stateDiagram-v2.
func (g *Graph) Mermaid() string {
	var sb strings.Builder
	sb.WriteString("stateDiagram-v2\n")
	fmt.Fprintf(&sb, "\t[*] --> %s\n", string(g.Initial()))

	for _, def := range g.order {
		for _, e := range def.Edges {
			fmt.Fprintf(&sb, "\t%s --> %s: %s\n", string(def.Name), string(e.To), string(e.Transition))
		}
		if len(def.Edges) == 0 {
			fmt.Fprintf(&sb, "\t%s --> [*]\n", string(def.Name))
		}
	}

	return sb.String()
}
