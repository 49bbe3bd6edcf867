package snapshot

import (
	"fmt"
	"strings"
)

// Format renders an annotated tree as an indented text report, two
// spaces per depth level, one line per node in pre-order. Nodes with
// nothing to show produce no line but their children still render at
// their own depth. The output is deterministic for a given tree.
func Format(root *Node) string {
	var b strings.Builder
	writeNode(&b, root, 0)
	return b.String()
}

func writeNode(b *strings.Builder, n *Node, depth int) {
	if n == nil {
		return
	}
	if line := nodeLine(n); line != "" {
		b.WriteString(strings.Repeat("  ", depth))
		b.WriteString(line)
		b.WriteByte('\n')
	}
	for _, c := range n.Children {
		writeNode(b, c, depth+1)
	}
}

// nodeLine composes one report line: [uid] role "name" value="v" (states).
func nodeLine(n *Node) string {
	var parts []string
	if n.UID != "" {
		parts = append(parts, "["+n.UID+"]")
	}
	if n.Role != "" {
		parts = append(parts, n.Role)
	}
	if n.Name != "" {
		parts = append(parts, fmt.Sprintf("%q", n.Name))
	}
	// Truthiness, not presence: a value of 0 or "" is dropped. This
	// mirrors what assistants relying on the output already expect, so
	// it stays even though it loses meaningful zeroes.
	if truthy(n.Value) {
		parts = append(parts, fmt.Sprintf(`value="%v"`, n.Value))
	}
	if states := stateList(n); len(states) > 0 {
		parts = append(parts, "("+strings.Join(states, ", ")+")")
	}
	return strings.Join(parts, " ")
}

func stateList(n *Node) []string {
	var states []string
	if n.Disabled {
		states = append(states, "disabled")
	}
	switch n.Checked {
	case "true":
		states = append(states, "checked")
	case "mixed":
		states = append(states, "mixed")
	}
	if n.Expanded != nil {
		if *n.Expanded {
			states = append(states, "expanded")
		} else {
			states = append(states, "collapsed")
		}
	}
	if n.Selected {
		states = append(states, "selected")
	}
	if n.Focused {
		states = append(states, "focused")
	}
	if n.Required {
		states = append(states, "required")
	}
	if n.Readonly {
		states = append(states, "readonly")
	}
	return states
}

func truthy(v any) bool {
	switch x := v.(type) {
	case nil:
		return false
	case string:
		return x != ""
	case bool:
		return x
	case float64:
		return x != 0
	case int:
		return x != 0
	default:
		return true
	}
}
