package snapshot

import "fmt"

// interactiveRoles is the fixed set of widget roles that get a uid in
// every snapshot mode. Everything else is only addressable in verbose
// snapshots.
var interactiveRoles = map[string]bool{
	"button":     true,
	"link":       true,
	"textbox":    true,
	"searchbox":  true,
	"checkbox":   true,
	"radio":      true,
	"combobox":   true,
	"listbox":    true,
	"option":     true,
	"menuitem":   true,
	"tab":        true,
	"switch":     true,
	"slider":     true,
	"spinbutton": true,
}

// Annotate walks the tree in pre-order, tagging addressable nodes with
// "uid_<n>" identifiers and, unless verbose, stripping descriptive
// attributes from every node. It mutates the tree in place and returns
// the number of uids assigned. Nodes are never removed or reordered.
//
// The counter is local to this call, so concurrent snapshots of
// separate trees never interfere.
func Annotate(root *Node, verbose bool) int {
	if root == nil {
		return 0
	}
	counter := 0
	annotate(root, verbose, &counter)
	return counter
}

func annotate(n *Node, verbose bool, counter *int) {
	if n.Role != "" && (interactiveRoles[n.Role] || verbose) {
		*counter++
		n.UID = fmt.Sprintf("uid_%d", *counter)
	}
	if !verbose {
		n.Description = ""
		n.KeyShortcuts = ""
		n.RoleDescription = ""
		n.ValueText = ""
		n.Autocomplete = ""
		n.HasPopup = ""
		n.Invalid = ""
		n.Orientation = ""
	}
	for _, c := range n.Children {
		annotate(c, verbose, counter)
	}
}
