// Package snapshot turns raw accessibility trees into uid-tagged text
// reports. The transforms are pure and synchronous; retrieving the tree
// from a live page is the browser package's job.
package snapshot

import (
	"fmt"
	"strings"
)

// NoTreeSentinel is the full report for a page that exposes no
// accessibility tree. A normal outcome, not an error.
const NoTreeSentinel = "No accessibility tree is available for this page."

const separatorWidth = 60

// Render annotates and formats a tree into the complete snapshot
// report: a summary header with the interactive-element count, a
// separator rule, then the indented tree. A nil root yields
// NoTreeSentinel with no header.
func Render(root *Node, verbose bool) string {
	if root == nil {
		return NoTreeSentinel
	}
	count := Annotate(root, verbose)

	var b strings.Builder
	fmt.Fprintf(&b, "Accessibility Snapshot (%d interactive elements)\n", count)
	b.WriteString(strings.Repeat("=", separatorWidth))
	b.WriteByte('\n')
	b.WriteString(Format(root))
	return b.String()
}
