// Package viz renders graph definitions to textual formats for
// inspection: Graphviz DOT and Mermaid flowcharts.
package viz

import (
	"fmt"
	"strings"

	"github.com/sicko7947/flowgraph"
)

// DOT renders the graph as a Graphviz digraph, left to right, with
// box-shaped nodes labelled by node name and rank hints pinning the
// entry to the source rank and the exits to the sink rank.
func DOT(g *flowgraph.GraphDefinition) string {
	var b strings.Builder

	name := g.Name()
	if name == "" {
		name = g.ID()
	}
	fmt.Fprintf(&b, "digraph %s {\n", sanitizeID(name))
	b.WriteString("  rankdir=LR;\n")
	b.WriteString("  node [shape=box];\n")

	for _, id := range g.NodeIDs() {
		label := id
		if n, ok := g.Node(id); ok && n.Name() != "" {
			label = n.Name()
		}
		fmt.Fprintf(&b, "  %q [label=%q];\n", id, escape(label))
	}

	seen := make(map[string]struct{})
	for _, e := range g.Edges() {
		key := e.Source + "\x00" + e.Target + "\x00" + e.Label
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if e.Label != "" {
			fmt.Fprintf(&b, "  %q -> %q [label=%q];\n", e.Source, e.Target, escape(e.Label))
		} else {
			fmt.Fprintf(&b, "  %q -> %q;\n", e.Source, e.Target)
		}
	}

	if entry := g.EntryNodeID(); entry != "" {
		fmt.Fprintf(&b, "  { rank=source; %q; }\n", entry)
	}
	if exits := g.ExitNodeIDs(); len(exits) > 0 {
		quoted := make([]string, len(exits))
		for i, id := range exits {
			quoted[i] = fmt.Sprintf("%q;", id)
		}
		fmt.Fprintf(&b, "  { rank=sink; %s }\n", strings.Join(quoted, " "))
	}

	b.WriteString("}\n")
	return b.String()
}

// escape flattens line breaks in label text; quotes are escaped by the
// %q verb at the call sites
func escape(s string) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	return s
}

// sanitizeID produces a bare DOT identifier from a free-form name
func sanitizeID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "graph"
	}
	return b.String()
}
