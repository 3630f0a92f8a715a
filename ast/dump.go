package ast

import (
	"fmt"
	"strings"
)

// Dump renders the tree in a readable indented form for inspection:
//
//	call
//	  name print
//	  string "hi"
func Dump(n *Node) string {
	var sb strings.Builder
	dumpNode(&sb, n, 0)
	return sb.String()
}

func dumpNode(sb *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	sb.WriteString(strings.Repeat("  ", depth))
	sb.WriteString(n.Kind.String())
	if n.Name != "" {
		fmt.Fprintf(sb, " %s", n.Name)
	}
	if n.Literal != "" {
		fmt.Fprintf(sb, " %q", n.Literal)
	}
	sb.WriteByte('\n')
	for _, c := range n.Children {
		dumpNode(sb, c, depth+1)
	}
}
