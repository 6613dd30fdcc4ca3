package viz

import (
	"fmt"
	"strings"

	"github.com/sicko7947/flowgraph"
)

// Mermaid renders the graph as a Mermaid flowchart, top down, with
// id("label") nodes and labelled edges.
func Mermaid(g *flowgraph.GraphDefinition) string {
	var b strings.Builder
	b.WriteString("flowchart TD\n")

	for _, id := range g.NodeIDs() {
		label := id
		if n, ok := g.Node(id); ok && n.Name() != "" {
			label = n.Name()
		}
		fmt.Fprintf(&b, "    %s(\"%s\")\n", mermaidID(id), mermaidEscape(label))
	}

	seen := make(map[string]struct{})
	for _, e := range g.Edges() {
		key := e.Source + "\x00" + e.Target + "\x00" + e.Label
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		if e.Label != "" {
			fmt.Fprintf(&b, "    %s -->|%s| %s\n", mermaidID(e.Source), mermaidEscape(e.Label), mermaidID(e.Target))
		} else {
			fmt.Fprintf(&b, "    %s --> %s\n", mermaidID(e.Source), mermaidID(e.Target))
		}
	}

	return b.String()
}

// mermaidEscape flattens quotes and line breaks that would break the
// flowchart syntax
func mermaidEscape(s string) string {
	s = strings.ReplaceAll(s, "\"", "'")
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\r", " ")
	s = strings.ReplaceAll(s, "|", "/")
	return s
}

// mermaidID produces a node identifier safe for the flowchart grammar
func mermaidID(s string) string {
	var b strings.Builder
	for _, r := range s {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			b.WriteRune(r)
		default:
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "node"
	}
	return b.String()
}
